// Package pipeline runs the bubblestat stages in order: load, merge,
// aggregate, bootstrap, export and render.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/bubblestat/pkg/aggregate"
	"github.com/Sumatoshi-tech/bubblestat/pkg/bootstrap"
	"github.com/Sumatoshi-tech/bubblestat/pkg/chart"
	"github.com/Sumatoshi-tech/bubblestat/pkg/cohort"
	"github.com/Sumatoshi-tech/bubblestat/pkg/config"
	"github.com/Sumatoshi-tech/bubblestat/pkg/dataset"
	"github.com/Sumatoshi-tech/bubblestat/pkg/merge"
	"github.com/Sumatoshi-tech/bubblestat/pkg/observability"
	"github.com/Sumatoshi-tech/bubblestat/pkg/plotpage"
	"github.com/Sumatoshi-tech/bubblestat/pkg/report"
	"github.com/Sumatoshi-tech/bubblestat/pkg/summary"
)

const tracerName = "bubblestat"

// Stage names, used for spans and the stage duration metric.
const (
	StageLoad      = "load"
	StageMerge     = "merge"
	StageAggregate = "aggregate"
	StageBootstrap = "bootstrap"
	StageExport    = "export"
	StageRender    = "render"
)

// Table names for row metrics.
const (
	tableMetrics   = "metrics"
	tableLabels    = "labels"
	tableCoverage  = "coverage"
	tableEstimates = "estimates"
)

// Runner executes one run. Only Config is required.
type Runner struct {
	Config *config.Config
	Logger *slog.Logger

	// Tracer creates stage spans. Nil falls back to the global provider.
	Tracer trace.Tracer

	// Metrics records run metrics. May be nil.
	Metrics *observability.RunMetrics

	// Samplers overrides the seeded resampler.
	Samplers bootstrap.SamplerFactory

	// RunID identifies the run. Generated when empty.
	RunID string
}

func (r *Runner) tracer() trace.Tracer {
	if r.Tracer != nil {
		return r.Tracer
	}

	return otel.Tracer(tracerName)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}

	return slog.Default()
}

func (r *Runner) runID() string {
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}

	return r.RunID
}

// stage runs fn inside a span and records its duration.
func (r *Runner) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, end := observability.StartStage(ctx, r.tracer(), r.Metrics, name)

	err := fn(ctx)
	end(err)

	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	return nil
}

// Run executes the full pipeline from the raw tables.
func (r *Runner) Run(ctx context.Context) (*summary.Summary, error) {
	cfg := r.Config
	if err := cfg.ValidateRun(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := r.logger()
	sum := &summary.Summary{RunID: r.runID(), Command: string(observability.ModeRun)}

	var (
		metrics  []dataset.UserMonthRecord
		labels   []dataset.AddictionLabel
		merged   *merge.Result
		coverage []dataset.CoverageRow
		est      *bootstrap.Report
	)

	err := r.stage(ctx, StageLoad, func(ctx context.Context) error {
		var err error

		if metrics, err = dataset.LoadMetrics(cfg.Input.Metrics); err != nil {
			return err
		}

		if labels, err = dataset.LoadLabels(cfg.Input.Labels, cfg.Input.LabelColumn); err != nil {
			return err
		}

		r.Metrics.RowsLoaded(ctx, tableMetrics, len(metrics))
		r.Metrics.RowsLoaded(ctx, tableLabels, len(labels))
		log.InfoContext(ctx, "tables loaded",
			"metrics_rows", len(metrics), "label_rows", len(labels))

		return nil
	})
	if err != nil {
		return nil, err
	}

	err = r.stage(ctx, StageMerge, func(ctx context.Context) error {
		var err error

		if merged, err = merge.Merge(metrics, labels); err != nil {
			return err
		}

		r.Metrics.RowsDropped(ctx, tableMetrics, merged.DroppedMetrics)
		r.Metrics.RowsDropped(ctx, tableLabels, merged.DroppedLabels)
		log.InfoContext(ctx, "tables merged",
			"rows", len(merged.Records),
			"dropped_metrics", merged.DroppedMetrics,
			"dropped_labels", merged.DroppedLabels)

		return nil
	})
	if err != nil {
		return nil, err
	}

	sum.Rows = summary.Rows{
		Metrics:        len(metrics),
		Labels:         len(labels),
		Merged:         len(merged.Records),
		DroppedMetrics: merged.DroppedMetrics,
		DroppedLabels:  merged.DroppedLabels,
	}

	err = r.stage(ctx, StageAggregate, func(ctx context.Context) error {
		if cfg.Input.Coverage != "" {
			var err error

			if coverage, err = dataset.LoadCoverage(cfg.Input.Coverage); err != nil {
				return err
			}

			r.Metrics.RowsLoaded(ctx, tableCoverage, len(coverage))
			log.InfoContext(ctx, "coverage table loaded", "rows", len(coverage))

			return nil
		}

		coverage = aggregate.CoverageRows(aggregate.ByMonth(merged.Records))
		log.InfoContext(ctx, "monthly aggregates computed", "rows", len(coverage))

		return nil
	})
	if err != nil {
		return nil, err
	}

	sum.Rows.Coverage = len(coverage)

	err = r.stage(ctx, StageBootstrap, func(ctx context.Context) error {
		var err error

		est, err = r.estimate(ctx, merged.Records, labels)

		return err
	})
	if err != nil {
		return nil, err
	}

	estimates := est.Rows()
	sum.Rows.Estimates = len(estimates)
	fillEstimates(sum, est, cfg.Bootstrap.Resamples)

	if cfg.Output.Estimates != "" {
		err = r.stage(ctx, StageExport, func(ctx context.Context) error {
			if err := dataset.WriteEstimates(cfg.Output.Estimates, estimates); err != nil {
				return err
			}

			log.InfoContext(ctx, "estimates exported", "path", cfg.Output.Estimates, "rows", len(estimates))

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if err = r.render(ctx, sum, report.FromCoverage(coverage), report.FromEstimates(estimates)); err != nil {
		return nil, err
	}

	sum.Duration = time.Since(start)

	return sum, nil
}

// Render redraws figures from an exported coverage table, an exported
// estimates table, or both.
func (r *Runner) Render(ctx context.Context) (*summary.Summary, error) {
	cfg := r.Config
	if err := cfg.ValidateRender(); err != nil {
		return nil, err
	}

	start := time.Now()
	log := r.logger()
	sum := &summary.Summary{RunID: r.runID(), Command: string(observability.ModeRender)}

	var (
		coverage  []dataset.CoverageRow
		estimates []dataset.EstimateRow
	)

	err := r.stage(ctx, StageLoad, func(ctx context.Context) error {
		var err error

		if cfg.Input.Coverage != "" {
			if coverage, err = dataset.LoadCoverage(cfg.Input.Coverage); err != nil {
				return err
			}

			r.Metrics.RowsLoaded(ctx, tableCoverage, len(coverage))
		}

		if cfg.Input.Estimates != "" {
			if estimates, err = dataset.LoadEstimates(cfg.Input.Estimates); err != nil {
				return err
			}

			r.Metrics.RowsLoaded(ctx, tableEstimates, len(estimates))
		}

		log.InfoContext(ctx, "tables loaded", "coverage_rows", len(coverage), "estimate_rows", len(estimates))

		return nil
	})
	if err != nil {
		return nil, err
	}

	sum.Rows.Coverage = len(coverage)
	sum.Rows.Estimates = len(estimates)

	for _, e := range estimates {
		sum.Estimates = append(sum.Estimates, estimateSummary(e))
	}

	if err = r.render(ctx, sum, report.FromCoverage(coverage), report.FromEstimates(estimates)); err != nil {
		return nil, err
	}

	sum.Duration = time.Since(start)

	return sum, nil
}

func (r *Runner) estimate(ctx context.Context, records []merge.Record, labels []dataset.AddictionLabel) (*bootstrap.Report, error) {
	cfg := r.Config.Bootstrap

	samplers := r.Samplers
	if samplers == nil {
		samplers = bootstrap.Seeded(cfg.Seed)
	}

	opts := bootstrap.Options{
		Quantile:   cfg.Quantile,
		Resamples:  cfg.Resamples,
		Confidence: cfg.Confidence,
		Membership: bootstrap.Membership(cfg.Membership),
		EmptyMonth: bootstrap.EmptyMonthPolicy(cfg.EmptyMonth),
		Samplers:   samplers,
	}

	var history map[string]cohort.Set

	if opts.Membership == bootstrap.MembershipEver {
		var err error

		if history, err = merge.LabelHistory(labels); err != nil {
			return nil, err
		}
	}

	est, err := bootstrap.NewEstimator(opts, r.logger()).Run(ctx, records, history)
	if err != nil {
		return nil, err
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("bootstrap.group_size", est.GroupSize),
		attribute.Int("bootstrap.cells", len(est.Estimates)),
		attribute.Int("bootstrap.skipped", len(est.Skipped)),
	)

	for _, e := range est.Estimates {
		r.Metrics.Resamples(ctx, e.Group.String(), e.Resamples)
	}

	return est, nil
}

func (r *Runner) render(ctx context.Context, sum *summary.Summary, coverage, estimates []report.Point) error {
	cfg := r.Config

	return r.stage(ctx, StageRender, func(ctx context.Context) error {
		mode, err := report.ParseMode(cfg.Combine.Mode)
		if err != nil {
			return err
		}

		format, err := chart.ParseFormat(cfg.Output.Format)
		if err != nil {
			return err
		}

		var figs []chart.Figure

		if len(coverage) > 0 {
			coverageFigs, figErr := chart.CoverageFigures(coverage, mode)
			if figErr != nil {
				return figErr
			}

			figs = append(figs, coverageFigs...)
		}

		if len(estimates) > 0 {
			bubbleFigs, figErr := chart.BubbleFigures(estimates, mode)
			if figErr != nil {
				return figErr
			}

			figs = append(figs, bubbleFigs...)
		}

		sink, err := chart.NewSink(cfg.Output.Sink, cfg.Output.Dir, format, cfg.Output.Title,
			plotpage.ParseTheme(cfg.Output.Theme))
		if err != nil {
			return err
		}

		written, renderErr := chart.Render(ctx, sink, figs)

		sum.Figures = written
		for _, a := range sink.Artifacts() {
			sum.Artifacts = append(sum.Artifacts, summary.Artifact{Sink: a.Sink, Path: a.Path, Bytes: a.Bytes})
		}

		r.Metrics.Figures(ctx, sink.Name(), written)
		r.logger().InfoContext(ctx, "figures rendered",
			"figures", written, "artifacts", len(sum.Artifacts), "dir", cfg.Output.Dir)

		return renderErr
	})
}

func fillEstimates(sum *summary.Summary, est *bootstrap.Report, resamples int) {
	sum.GroupSize = est.GroupSize
	sum.Resamples = resamples

	for _, g := range cohort.Classified() {
		sum.Cohorts = append(sum.Cohorts, summary.Cohort{
			Group:      g.DisplayName(),
			Users:      est.Users[g],
			Thresholds: est.Thresholds[g],
		})
	}

	for _, row := range est.Rows() {
		sum.Estimates = append(sum.Estimates, estimateSummary(row))
	}

	for _, c := range est.Skipped {
		sum.Skipped = append(sum.Skipped, summary.Cell{Month: c.Month, Group: c.Group.DisplayName()})
	}
}

func estimateSummary(e dataset.EstimateRow) summary.Estimate {
	return summary.Estimate{
		Month:      e.Month,
		Group:      e.Group.DisplayName(),
		Proportion: e.Proportion,
		Low:        e.Low,
		High:       e.High,
		Users:      e.Users,
	}
}
