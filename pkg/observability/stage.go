package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "bubblestat."

// StageEnd finishes a stage started by StartStage with its outcome.
type StageEnd func(err error)

// StartStage opens a span named bubblestat.<stage>. The returned StageEnd
// marks the span failed on a non-nil error, records the stage duration on
// metrics and ends the span. metrics may be nil.
func StartStage(
	ctx context.Context, tracer trace.Tracer, metrics *RunMetrics, stage string, attrs ...attribute.KeyValue,
) (context.Context, StageEnd) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, spanPrefix+stage,
		trace.WithAttributes(append(attrs, attribute.String("stage.name", stage))...))

	return ctx, func(err error) {
		status := StatusOK

		if err != nil {
			status = StatusError

			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}

		metrics.StageDone(ctx, stage, status, time.Since(start))
		span.End()
	}
}
