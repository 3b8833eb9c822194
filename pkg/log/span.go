package log

import (
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ Logger = spanLogger{}

// spanLogger mirrors log messages onto an OpenTelemetry span so that log
// lines and traces stay correlated. Warn and below become span events,
// Error and Fatal additionally mark the span status.
type spanLogger struct {
	next Logger
	span trace.Span
}

// newSpanLogger wraps next so every message is also recorded on span.
func newSpanLogger(next Logger, span trace.Span) Logger {
	return spanLogger{next: next, span: span}
}

func (sl spanLogger) Debug(msg string, keysAndValues ...any) {
	sl.record(LevelDebug, msg, keysAndValues)
	sl.next.Debug(msg, keysAndValues...)
}

func (sl spanLogger) Info(msg string, keysAndValues ...any) {
	sl.record(LevelInfo, msg, keysAndValues)
	sl.next.Info(msg, keysAndValues...)
}

func (sl spanLogger) Warn(msg string, keysAndValues ...any) {
	sl.record(LevelWarn, msg, keysAndValues)
	sl.next.Warn(msg, keysAndValues...)
}

func (sl spanLogger) Error(msg string, keysAndValues ...any) {
	sl.record(LevelError, msg, keysAndValues)
	sl.span.SetStatus(codes.Error, msg)
	sl.next.Error(msg, keysAndValues...)
}

func (sl spanLogger) Fatal(msg string, keysAndValues ...any) {
	sl.record(LevelFatal, msg, keysAndValues)
	sl.span.SetStatus(codes.Error, msg)
	sl.next.Fatal(msg, keysAndValues...)
}

func (sl spanLogger) With(key string, value any) Logger {
	return spanLogger{next: sl.next.With(key, value), span: sl.span}
}

func (sl spanLogger) Named(name string) Logger {
	return spanLogger{next: sl.next.Named(name), span: sl.span}
}

func (sl spanLogger) Name() string { return sl.next.Name() }

func (sl spanLogger) record(level Level, msg string, keysAndValues []any) {
	attrs := make([]attribute.KeyValue, 0, len(keysAndValues)/2+1)
	attrs = append(attrs, attribute.String("log.level", string(level)))
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		attrs = append(attrs, attribute.String(key, fmt.Sprint(keysAndValues[i+1])))
	}
	sl.span.AddEvent(msg, trace.WithAttributes(attrs...))
}
