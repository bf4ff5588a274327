package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func levelAttr(level string) attribute.KeyValue {
	return attribute.String("kgraph.level", level)
}

// StartOp starts a span named "kgraph.store.<op>" with a level attribute.
// The returned end func records err on the span (if non-nil) and closes it;
// callers defer end(&err) with a named error return.
func StartOp(ctx context.Context, tracer trace.Tracer, op, level string) (context.Context, func(*error)) {
	if tracer == nil {
		return ctx, func(*error) {}
	}
	ctx, span := tracer.Start(ctx, "kgraph.store."+op, trace.WithAttributes(levelAttr(level)))
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}
		span.End()
	}
}
