package ws

import (
	"sync"
	"time"
)

// BackupFunc runs one backup attempt. The reason string is diagnostic only.
type BackupFunc func(reason string) error

// Scheduler decides when a workspace snapshot gets pushed to remote storage.
// Routine edits go through ScheduleDebounced: rapid successive calls coalesce
// into one backup after a quiet window. Structurally significant operations
// (create, delete, rename) go through TriggerInstant, which cancels any
// pending debounce and runs immediately.
//
// The single pending-timer slot is the only mutable shared state; exactly one
// Scheduler instance must exist per user session or concurrent duplicate
// backups become possible.
type Scheduler struct {
	run      BackupFunc
	logger   Logger
	notifier Notifier

	mu         sync.Mutex
	timer      *time.Timer
	timerGen   uint64
	lastReason string
}

func NewScheduler(run BackupFunc, logger Logger, notifier Notifier) *Scheduler {
	return &Scheduler{run: run, logger: logger, notifier: notifier}
}

// ScheduleDebounced arms (or re-arms) the debounce timer. An existing pending
// timer is cancelled and restarted, so N calls within delay of each other
// produce exactly one backup carrying the last reason.
//
// Each arming bumps the generation counter and the callback re-checks it
// under the lock: a callback that lost the race against timer.Stop has a
// stale generation and must neither fire nor touch the timer slot.
func (s *Scheduler) ScheduleDebounced(reason string, delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerGen++
	gen := s.timerGen
	s.lastReason = reason
	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if gen != s.timerGen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		r := s.lastReason
		s.mu.Unlock()
		s.runBackup(r)
	})
	s.logger.Debug("backup debounced", "reason", reason, "delay", delay)
}

// TriggerInstant cancels any pending debounced timer and runs the backup
// immediately. Reserved for operations where losing the change on crash or
// tab close is unacceptable.
func (s *Scheduler) TriggerInstant(reason string) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
	s.lastReason = reason
	s.mu.Unlock()

	s.runBackup(reason)
}

// LastReason returns the most recent trigger reason, for diagnostics.
func (s *Scheduler) LastReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReason
}

// Stop cancels any pending debounced backup without firing it. The
// generation bump also invalidates a callback that already fired and is
// waiting on the lock.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

// runBackup funnels both trigger paths into one call. Backup is best-effort:
// failures are reported as warnings and never propagate to the user action
// that triggered them.
func (s *Scheduler) runBackup(reason string) {
	if err := s.run(reason); err != nil {
		s.logger.Warn("backup failed", "reason", reason, "error", err)
		s.notifier.Notify("warning", "backup failed: "+err.Error())
		return
	}
	s.logger.Debug("backup complete", "reason", reason)
}
