package testutil

import (
	"context"
	"sync"

	"wsync-go/internal/remote"
	"wsync-go/internal/store"
	"wsync-go/internal/ws"
)

// NewTestStore creates a new in-memory record store for testing.
func NewTestStore() *store.MemoryStore {
	return store.NewMemoryStore()
}

// NewTestRemote creates a new in-memory snapshot store for testing.
func NewTestRemote() *remote.MemoryStore {
	return remote.NewMemoryStore()
}

// StubGate is a SyncGate with a settable answer.
type StubGate struct {
	mu      sync.Mutex
	Enabled bool
	Err     error
}

func (g *StubGate) IsSyncEnabled(context.Context, string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Enabled, g.Err
}

var _ ws.SyncGate = (*StubGate)(nil)

// CaptureNotifier records every notification it receives.
type CaptureNotifier struct {
	mu       sync.Mutex
	Messages []string
	Levels   []string
}

func (n *CaptureNotifier) Notify(level, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Levels = append(n.Levels, level)
	n.Messages = append(n.Messages, msg)
}

// Count returns how many notifications were received.
func (n *CaptureNotifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Messages)
}

var _ ws.Notifier = (*CaptureNotifier)(nil)

// CaptureLogger records log messages by level. Args are discarded.
type CaptureLogger struct {
	mu    sync.Mutex
	Warns []string
	Infos []string
}

func (l *CaptureLogger) Debug(string, ...any) {}

func (l *CaptureLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Infos = append(l.Infos, msg)
}

func (l *CaptureLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Warns = append(l.Warns, msg)
}

func (l *CaptureLogger) Error(string, ...any) {}

// WarnCount returns how many warnings were logged.
func (l *CaptureLogger) WarnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Warns)
}

var _ ws.Logger = (*CaptureLogger)(nil)
