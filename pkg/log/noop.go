package log

var _ Logger = NoopLogger{}

// NoopLogger discards every message. It is the safe default wherever a
// Logger was not injected.
type NoopLogger struct{}

// NewNoopLogger returns a Logger that drops everything it is given.
func NewNoopLogger() Logger {
	return NoopLogger{}
}

func (NoopLogger) Debug(msg string, keysAndValues ...any) {}
func (NoopLogger) Info(msg string, keysAndValues ...any)  {}
func (NoopLogger) Warn(msg string, keysAndValues ...any)  {}
func (NoopLogger) Error(msg string, keysAndValues ...any) {}
func (NoopLogger) Fatal(msg string, keysAndValues ...any) {}

func (n NoopLogger) With(key string, value any) Logger { return n }
func (n NoopLogger) Named(name string) Logger          { return n }
func (NoopLogger) Name() string                        { return "noop" }
