package ws

// Logger provides structured logging for the service layer.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger is a Logger that discards all output. Use in tests.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// Notifier is the fire-and-forget channel for surfacing backup, restore and
// contamination outcomes to a UI. Implementations must not block; the core
// never waits on a notification.
type Notifier interface {
	Notify(level string, msg string)
}

// NopNotifier discards all notifications. Use in tests and headless runs.
type NopNotifier struct{}

func (NopNotifier) Notify(string, string) {}
