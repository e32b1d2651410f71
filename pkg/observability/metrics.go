package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRowsLoaded    = "bubblestat.rows.loaded.total"
	metricRowsDropped   = "bubblestat.rows.dropped.total"
	metricResamples     = "bubblestat.resamples.total"
	metricFigures       = "bubblestat.figures.total"
	metricStageDuration = "bubblestat.stage.duration.seconds"

	attrTable  = "table"
	attrGroup  = "group"
	attrSink   = "sink"
	attrStage  = "stage"
	attrStatus = "status"

	// StatusOK and StatusError label a finished stage.
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms to 10min.
var durationBucketBoundaries = []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// RunMetrics holds the instruments a run records.
type RunMetrics struct {
	rowsLoaded    metric.Int64Counter
	rowsDropped   metric.Int64Counter
	resamples     metric.Int64Counter
	figures       metric.Int64Counter
	stageDuration metric.Float64Histogram
}

// NewRunMetrics creates the run instruments from mt.
func NewRunMetrics(mt metric.Meter) (*RunMetrics, error) {
	loaded, err := mt.Int64Counter(metricRowsLoaded,
		metric.WithDescription("Rows read from input tables"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRowsLoaded, err)
	}

	dropped, err := mt.Int64Counter(metricRowsDropped,
		metric.WithDescription("Rows dropped by the join"),
		metric.WithUnit("{row}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRowsDropped, err)
	}

	resamples, err := mt.Int64Counter(metricResamples,
		metric.WithDescription("Bootstrap resamples drawn"),
		metric.WithUnit("{resample}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricResamples, err)
	}

	figures, err := mt.Int64Counter(metricFigures,
		metric.WithDescription("Figures written"),
		metric.WithUnit("{figure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricFigures, err)
	}

	duration, err := mt.Float64Histogram(metricStageDuration,
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStageDuration, err)
	}

	return &RunMetrics{
		rowsLoaded:    loaded,
		rowsDropped:   dropped,
		resamples:     resamples,
		figures:       figures,
		stageDuration: duration,
	}, nil
}

// RowsLoaded records n rows read from table. Safe on a nil receiver, as
// are the other recorders.
func (rm *RunMetrics) RowsLoaded(ctx context.Context, table string, n int) {
	if rm == nil {
		return
	}

	rm.rowsLoaded.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrTable, table)))
}

// RowsDropped records n rows of table that found no join partner.
func (rm *RunMetrics) RowsDropped(ctx context.Context, table string, n int) {
	if rm == nil {
		return
	}

	rm.rowsDropped.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrTable, table)))
}

// Resamples records n bootstrap resamples drawn for group.
func (rm *RunMetrics) Resamples(ctx context.Context, group string, n int) {
	if rm == nil {
		return
	}

	rm.resamples.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrGroup, group)))
}

// Figures records n figures written by sink.
func (rm *RunMetrics) Figures(ctx context.Context, sink string, n int) {
	if rm == nil {
		return
	}

	rm.figures.Add(ctx, int64(n), metric.WithAttributes(attribute.String(attrSink, sink)))
}

// StageDone records how long a stage took and how it ended.
func (rm *RunMetrics) StageDone(ctx context.Context, stage, status string, d time.Duration) {
	if rm == nil {
		return
	}

	rm.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(attrStage, stage),
		attribute.String(attrStatus, status),
	))
}
