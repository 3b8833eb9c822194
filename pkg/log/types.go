package log

// Logger is the structured logging interface used across walletcore.
// keysAndValues are alternating key/value pairs, e.g. ("callId", id).
type Logger interface {
	// Debug logs low-level detail useful during development.
	Debug(msg string, keysAndValues ...any)
	// Info logs routine progress and state changes.
	Info(msg string, keysAndValues ...any)
	// Warn logs unexpected but recoverable situations.
	Warn(msg string, keysAndValues ...any)
	// Error logs failures that need attention.
	Error(msg string, keysAndValues ...any)
	// Fatal logs an unrecoverable failure and may terminate the process.
	Fatal(msg string, keysAndValues ...any)

	// With returns a logger that attaches the key-value pair to every
	// future message.
	With(key string, value any) Logger
	// Named returns a logger scoped to the given component name.
	// Names accumulate dot-separated.
	Named(name string) Logger
	// Name returns the logger's accumulated name.
	Name() string
}

// Level is the severity of a log message.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelFatal Level = "fatal"
)
