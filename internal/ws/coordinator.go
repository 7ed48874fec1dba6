package ws

import (
	"context"
	"sync"
	"time"
)

// CoordinatorState is the restore coordinator's session state.
type CoordinatorState string

const (
	StateIdle       CoordinatorState = "idle"
	StateRestoring  CoordinatorState = "restoring"
	StateSuppressed CoordinatorState = "suppressed"
)

// Coordinator decides whether entering a workspace should trigger an
// automatic restore from cloud storage. Its one invariant: restore never
// runs while suppressed. Suppression starts the instant a workspace is
// created locally and holds for a fixed cool-down window, long enough for
// the creation pipeline (project record, template files, first writes) to
// land before any restore could race it and wipe the new project.
type Coordinator struct {
	sync   *CloudSync
	window time.Duration
	clock  Clock
	logger Logger

	mu              sync.Mutex
	restoring       bool
	suppressedUntil time.Time
}

func NewCoordinator(cloudSync *CloudSync, window time.Duration, clock Clock, logger Logger) *Coordinator {
	return &Coordinator{sync: cloudSync, window: window, clock: clock, logger: logger}
}

// State reports the current session state. Suppression is deadline-based,
// so it expires by clock reading rather than a background timer.
func (c *Coordinator) State() CoordinatorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Coordinator) stateLocked() CoordinatorState {
	if c.restoring {
		return StateRestoring
	}
	if c.clock.Now().Before(c.suppressedUntil) {
		return StateSuppressed
	}
	return StateIdle
}

// Suppress disables automatic restore for the cool-down window, starting
// now. Called whenever a workspace is created locally in this session;
// repeated calls extend the window.
func (c *Coordinator) Suppress() {
	c.mu.Lock()
	defer c.mu.Unlock()
	until := c.clock.Now().Add(c.window)
	if until.After(c.suppressedUntil) {
		c.suppressedUntil = until
	}
	c.logger.Debug("restore suppressed", "until", c.suppressedUntil)
}

// EnterWorkspace is called when a workspace route is entered. It runs an
// automatic restore when sync is enabled, the route does not carry a
// just-created marker, and no local creation is inside its cool-down window.
// Returns whether a restore ran. Restore failure degrades silently to "use
// local data": the coordinator returns to Idle either way.
func (c *Coordinator) EnterWorkspace(ctx context.Context, userID, workspaceID string, justCreated bool) bool {
	if justCreated {
		// A freshly created workspace has nothing remote worth pulling,
		// and pulling would destroy the files being written right now.
		c.Suppress()
		c.logger.Debug("restore skipped, workspace just created", "workspace", workspaceID)
		return false
	}

	c.mu.Lock()
	switch c.stateLocked() {
	case StateSuppressed:
		c.mu.Unlock()
		c.logger.Debug("restore skipped, suppression window active", "workspace", workspaceID)
		return false
	case StateRestoring:
		c.mu.Unlock()
		c.logger.Debug("restore skipped, already restoring", "workspace", workspaceID)
		return false
	}
	if !c.sync.IsSyncEnabled(ctx, userID) {
		c.mu.Unlock()
		return false
	}
	c.restoring = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.restoring = false
		c.mu.Unlock()
	}()

	ok := c.sync.Restore(ctx, userID)
	c.logger.Info("automatic restore finished", "workspace", workspaceID, "ok", ok)
	return true
}
