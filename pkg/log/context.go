package log

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

type contextKey struct{}

var loggerContextKey = contextKey{}

// SetContextLogger attaches lg to the context. When the context carries a
// recording OpenTelemetry span, the logger is wrapped so messages are also
// recorded as span events. A nil logger is replaced with a NoopLogger.
func SetContextLogger(ctx context.Context, lg Logger) context.Context {
	if lg == nil {
		lg = NewNoopLogger()
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		lg = newSpanLogger(lg, span)
	}

	return context.WithValue(ctx, loggerContextKey, lg)
}

// FromContext returns the logger stored in the context, or a NoopLogger
// when none was attached.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerContextKey).(Logger); ok {
		return l
	}
	return NewNoopLogger()
}
