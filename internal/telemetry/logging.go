package telemetry

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// LoggerWithTrace returns a logger with trace_id and span_id fields added
// from ctx's active span, if any. A nil ctx or an invalid span context just
// returns logger unchanged.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		return logger
	}

	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return logger
	}

	return logger.With(
		slog.String("trace_id", spanCtx.TraceID().String()),
		slog.String("span_id", spanCtx.SpanID().String()),
	)
}

// LoggerWithSession adds a session_id field on top of LoggerWithTrace, for
// logging within a single client session's worth of store calls.
func LoggerWithSession(ctx context.Context, logger *slog.Logger, sessionID string) *slog.Logger {
	return LoggerWithTrace(ctx, logger).With(slog.String("session_id", sessionID))
}

// LoggerWithLevel adds a graph_level field (spec's "user" / "project:<key>"
// graph level) on top of LoggerWithTrace. Named graph_level rather than
// level to avoid colliding with slog's own severity-level key.
func LoggerWithLevel(ctx context.Context, logger *slog.Logger, level string) *slog.Logger {
	return LoggerWithTrace(ctx, logger).With(slog.String("graph_level", level))
}
