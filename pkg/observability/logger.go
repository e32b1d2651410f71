package observability

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrMode    = "mode"
)

// TracingHandler is an [slog.Handler] that adds the active span's trace_id
// and span_id to every record. Service, mode, env and run_id are attached
// at construction. All of them stay at the top level under WithGroup.
type TracingHandler struct {
	// base carries the top-level attributes only.
	base slog.Handler
	// ops replays WithAttrs and WithGroup calls made after construction.
	ops []handlerOp
	// inner is base with ops applied.
	inner slog.Handler
}

type handlerOp struct {
	group string
	attrs []slog.Attr
}

// NewTracingHandler wraps inner. Empty env and runID are omitted.
func NewTracingHandler(inner slog.Handler, service, env string, appMode AppMode, runID string) *TracingHandler {
	attrs := []slog.Attr{
		slog.String(attrService, service),
		slog.String(attrMode, string(appMode)),
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	if runID != "" {
		attrs = append(attrs, slog.String(attrRunID, runID))
	}

	base := inner.WithAttrs(attrs)

	return &TracingHandler{base: base, inner: base}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds trace context attributes from the span context, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	handler := th.inner

	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		handler = th.base.WithAttrs([]slog.Attr{
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		})

		for _, op := range th.ops {
			handler = op.apply(handler)
		}
	}

	err := handler.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

func (op handlerOp) apply(h slog.Handler) slog.Handler {
	if op.group != "" {
		return h.WithGroup(op.group)
	}

	return h.WithAttrs(op.attrs)
}

func (th *TracingHandler) with(op handlerOp) *TracingHandler {
	return &TracingHandler{
		base:  th.base,
		ops:   append(slices.Clip(th.ops), op),
		inner: op.apply(th.inner),
	}
}

// WithAttrs implements [slog.Handler].
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return th
	}

	return th.with(handlerOp{attrs: attrs})
}

// WithGroup implements [slog.Handler].
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return th
	}

	return th.with(handlerOp{group: name})
}
