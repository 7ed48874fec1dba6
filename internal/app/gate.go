package app

import (
	"context"

	"wsync-go/internal/ws"
)

// configGate is a SyncGate backed by the config's sync.enabled flag. A real
// deployment would swap in a plan/feature-flag lookup; the interface is the
// contract, this is the local default.
type configGate struct {
	enabled bool
}

func (g *configGate) IsSyncEnabled(_ context.Context, _ string) (bool, error) {
	return g.enabled, nil
}

var _ ws.SyncGate = (*configGate)(nil)

// logNotifier surfaces UI notifications through the logger. Headless stand-in
// for a real notification channel; it never blocks.
type logNotifier struct {
	logger ws.Logger
}

func (n *logNotifier) Notify(level, msg string) {
	switch level {
	case "warning":
		n.logger.Warn("notification", "msg", msg)
	default:
		n.logger.Info("notification", "msg", msg)
	}
}

var _ ws.Notifier = (*logNotifier)(nil)
