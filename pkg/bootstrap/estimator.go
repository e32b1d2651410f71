package bootstrap

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Sumatoshi-tech/bubblestat/pkg/alg/stats"
	"github.com/Sumatoshi-tech/bubblestat/pkg/cohort"
	"github.com/Sumatoshi-tech/bubblestat/pkg/dataset"
	"github.com/Sumatoshi-tech/bubblestat/pkg/merge"
)

// Membership selects which rows make up a cohort's population.
type Membership string

// Membership modes.
const (
	// MembershipRow puts each row in the cohort of its own label.
	MembershipRow Membership = "row"
	// MembershipEver puts every row of a user in each cohort the user was
	// ever labeled with.
	MembershipEver Membership = "ever"
)

// EmptyMonthPolicy selects what happens to a cohort-month with no rows.
type EmptyMonthPolicy string

// Empty-month policies.
const (
	EmptyMonthSkip EmptyMonthPolicy = "skip"
	EmptyMonthFail EmptyMonthPolicy = "fail"
)

// Default estimator settings.
const (
	DefaultResamples = 1000
	DefaultQuantile  = stats.QuantileMedian
)

// Options configures an Estimator.
type Options struct {
	Quantile   float64
	Resamples  int
	Confidence float64
	Membership Membership
	EmptyMonth EmptyMonthPolicy
	// Samplers builds the sampler for each (cohort, month). Nil selects
	// Seeded(0).
	Samplers SamplerFactory
}

// DefaultOptions returns the settings used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Quantile:   DefaultQuantile,
		Resamples:  DefaultResamples,
		Confidence: DefaultConfidence,
		Membership: MembershipRow,
		EmptyMonth: EmptyMonthSkip,
		Samplers:   Seeded(0),
	}
}

// Cell identifies one (month, cohort) estimate.
type Cell struct {
	Month int
	Group cohort.Group
}

// CellEstimate is the estimate for one cohort-month.
type CellEstimate struct {
	Cell
	Result
	// Users is the distinct-user count of the cohort-month population.
	Users int
}

// Report is the output of Estimator.Run.
type Report struct {
	// GroupSize is the common resample size: the smallest distinct-user
	// count across the classified cohorts.
	GroupSize  int
	Thresholds map[cohort.Group]dataset.Coverage
	Users      map[cohort.Group]int
	Estimates  []CellEstimate
	// Skipped lists cohort-months with no rows.
	Skipped []Cell
}

// Rows converts the estimates to the exported table shape.
func (r *Report) Rows() []dataset.EstimateRow {
	out := make([]dataset.EstimateRow, len(r.Estimates))

	for i, e := range r.Estimates {
		out[i] = dataset.EstimateRow{
			Month:      e.Month,
			Group:      e.Group,
			Proportion: e.Proportion,
			StdDev:     e.StdDev,
			Low:        e.Low,
			High:       e.High,
			SampleSize: e.SampleSize,
			Resamples:  e.Resamples,
			Users:      e.Users,
		}
	}

	return out
}

// Estimator runs the per-cohort, per-month resampling.
type Estimator struct {
	opts   Options
	logger *slog.Logger
}

// NewEstimator creates an Estimator. Zero-valued options take defaults.
func NewEstimator(opts Options, logger *slog.Logger) *Estimator {
	def := DefaultOptions()

	if opts.Quantile == 0 {
		opts.Quantile = def.Quantile
	}

	if opts.Resamples == 0 {
		opts.Resamples = def.Resamples
	}

	if opts.Confidence == 0 {
		opts.Confidence = def.Confidence
	}

	if opts.Membership == "" {
		opts.Membership = def.Membership
	}

	if opts.EmptyMonth == "" {
		opts.EmptyMonth = def.EmptyMonth
	}

	if opts.Samplers == nil {
		opts.Samplers = def.Samplers
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Estimator{opts: opts, logger: logger}
}

type population struct {
	rows    []merge.Record
	byMonth map[int][]dataset.Coverage
	users   map[int]map[string]struct{}
	all     map[string]struct{}
}

func newPopulation() *population {
	return &population{
		byMonth: make(map[int][]dataset.Coverage),
		users:   make(map[int]map[string]struct{}),
		all:     make(map[string]struct{}),
	}
}

func (p *population) add(r merge.Record) {
	p.rows = append(p.rows, r)
	p.byMonth[r.Month] = append(p.byMonth[r.Month], r.Raw)

	if p.users[r.Month] == nil {
		p.users[r.Month] = make(map[string]struct{})
	}

	p.users[r.Month][r.UserID] = struct{}{}
	p.all[r.UserID] = struct{}{}
}

// Run estimates filter-bubble shares for every classified cohort and every
// month observed in any cohort. history is consulted only under
// MembershipEver and may be nil otherwise.
func (e *Estimator) Run(ctx context.Context, records []merge.Record, history map[string]cohort.Set) (*Report, error) {
	pops, err := e.populations(records, history)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Thresholds: make(map[cohort.Group]dataset.Coverage),
		Users:      make(map[cohort.Group]int),
	}

	monthSet := make(map[int]struct{})

	for _, g := range cohort.Classified() {
		pop := pops[g]
		if len(pop.rows) == 0 {
			return nil, &EmptyCohortError{Group: g}
		}

		raw := make([]dataset.Coverage, len(pop.rows))
		for i, r := range pop.rows {
			raw[i] = r.Raw
		}

		thr, qErr := Quantiles(raw, e.opts.Quantile)
		if qErr != nil {
			return nil, fmt.Errorf("thresholds for %s: %w", g.DisplayName(), qErr)
		}

		report.Thresholds[g] = thr
		report.Users[g] = len(pop.all)

		if report.GroupSize == 0 || len(pop.all) < report.GroupSize {
			report.GroupSize = len(pop.all)
		}

		for m := range pop.byMonth {
			monthSet[m] = struct{}{}
		}

		e.logger.DebugContext(ctx, "cohort thresholds",
			"group", g.DisplayName(), "users", len(pop.all), "rows", len(pop.rows),
			"level_1", thr[0], "level_2", thr[1], "level_3", thr[2])
	}

	months := make([]int, 0, len(monthSet))
	for m := range monthSet {
		months = append(months, m)
	}

	slices.Sort(months)

	for _, g := range cohort.Classified() {
		for _, month := range months {
			if err = ctx.Err(); err != nil {
				return nil, err
			}

			est, ok, cellErr := e.cell(ctx, pops[g], g, month, report)
			if cellErr != nil {
				return nil, cellErr
			}

			if !ok {
				report.Skipped = append(report.Skipped, Cell{Month: month, Group: g})

				continue
			}

			report.Estimates = append(report.Estimates, est)
		}
	}

	slices.SortFunc(report.Estimates, func(a, b CellEstimate) int {
		return cmp.Or(cmp.Compare(a.Month, b.Month), cmp.Compare(a.Group, b.Group))
	})

	e.logger.InfoContext(ctx, "bootstrap complete",
		"group_size", report.GroupSize, "resamples", e.opts.Resamples,
		"estimates", len(report.Estimates), "skipped", len(report.Skipped))

	return report, nil
}

func (e *Estimator) cell(ctx context.Context, pop *population, g cohort.Group, month int,
	report *Report,
) (CellEstimate, bool, error) {
	raw := pop.byMonth[month]
	if len(raw) == 0 {
		if e.opts.EmptyMonth == EmptyMonthFail {
			return CellEstimate{}, false, &EmptyCohortError{Group: g, Month: month}
		}

		e.logger.InfoContext(ctx, "skipping empty cohort month", "group", g.DisplayName(), "month", month)

		return CellEstimate{}, false, nil
	}

	res, err := Estimate(raw, report.Thresholds[g], report.GroupSize, e.opts.Resamples,
		e.opts.Samplers(g, month), e.opts.Confidence)
	if err != nil {
		return CellEstimate{}, false, fmt.Errorf("%s month %d: %w", g.DisplayName(), month, err)
	}

	e.logger.DebugContext(ctx, "cohort month estimated",
		"group", g.DisplayName(), "month", month, "rows", len(raw),
		"level_1", res.Proportion[0], "level_2", res.Proportion[1], "level_3", res.Proportion[2])

	return CellEstimate{
		Cell:   Cell{Month: month, Group: g},
		Result: res,
		Users:  len(pop.users[month]),
	}, true, nil
}

func (e *Estimator) populations(records []merge.Record, history map[string]cohort.Set) (map[cohort.Group]*population, error) {
	pops := make(map[cohort.Group]*population, len(cohort.Classified()))
	for _, g := range cohort.Classified() {
		pops[g] = newPopulation()
	}

	switch e.opts.Membership {
	case MembershipRow:
		for _, r := range records {
			pops[r.Group].add(r)
		}
	case MembershipEver:
		for _, r := range records {
			for _, g := range history[r.UserID].Members() {
				pops[g].add(r)
			}
		}
	default:
		return nil, fmt.Errorf("unknown membership mode %q", e.opts.Membership)
	}

	return pops, nil
}
