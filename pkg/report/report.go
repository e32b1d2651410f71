// Package report shapes long (month, cohort) tables into the wide series
// the chart builders draw, and folds the addicted cohorts into one.
package report

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/Sumatoshi-tech/bubblestat/pkg/cohort"
	"github.com/Sumatoshi-tech/bubblestat/pkg/dataset"
)

// ErrDuplicateCell is returned when two points share a (month, cohort) cell.
var ErrDuplicateCell = errors.New("duplicate (month, group) cell")

// Point is one (month, cohort) observation of the three level values.
// Weight is the cohort-month user count; zero when unknown.
type Point struct {
	Month  int
	Group  cohort.Group
	Values dataset.Coverage
	Weight float64
}

// FromCoverage converts coverage rows to points weighted by user count.
func FromCoverage(rows []dataset.CoverageRow) []Point {
	out := make([]Point, len(rows))

	for i, r := range rows {
		out[i] = Point{Month: r.Month, Group: r.Group, Values: r.Values, Weight: float64(r.Users)}
	}

	return out
}

// FromEstimates converts filter-bubble estimates to points weighted by
// user count.
func FromEstimates(rows []dataset.EstimateRow) []Point {
	out := make([]Point, len(rows))

	for i, r := range rows {
		out[i] = Point{Month: r.Month, Group: r.Group, Values: r.Proportion, Weight: float64(r.Users)}
	}

	return out
}

type cellKey struct {
	month int
	group cohort.Group
}

// Table is a pivot of points: one row per month, one column per cohort and
// level. Cells that were never observed stay empty.
type Table struct {
	months []int
	groups []cohort.Group
	cells  map[cellKey]dataset.Coverage
}

// Pivot builds a Table from points.
func Pivot(points []Point) (*Table, error) {
	t := &Table{cells: make(map[cellKey]dataset.Coverage, len(points))}

	for _, p := range points {
		k := cellKey{p.Month, p.Group}
		if _, dup := t.cells[k]; dup {
			return nil, fmt.Errorf("%w: month %d, %s", ErrDuplicateCell, p.Month, p.Group)
		}

		t.cells[k] = p.Values

		if !slices.Contains(t.months, p.Month) {
			t.months = append(t.months, p.Month)
		}

		if !slices.Contains(t.groups, p.Group) {
			t.groups = append(t.groups, p.Group)
		}
	}

	slices.Sort(t.months)
	slices.SortFunc(t.groups, func(a, b cohort.Group) int { return cmp.Compare(a, b) })

	return t, nil
}

// Months returns the sorted month index.
func (t *Table) Months() []int {
	return t.months
}

// Groups returns the cohorts present, in canonical order.
func (t *Table) Groups() []cohort.Group {
	return t.groups
}

// Has reports whether any cell exists for g.
func (t *Table) Has(g cohort.Group) bool {
	return slices.Contains(t.groups, g)
}

// Value returns the cell at (month, g).
func (t *Table) Value(month int, g cohort.Group) (dataset.Coverage, bool) {
	v, ok := t.cells[cellKey{month, g}]

	return v, ok
}

// Series returns the level values of g aligned with Months. Missing cells
// are NaN; renderers treat NaN as a gap.
func (t *Table) Series(g cohort.Group, level int) []float64 {
	return t.series(g, func(c dataset.Coverage) float64 { return c[level] })
}

// Average returns the mean across levels of g aligned with Months.
func (t *Table) Average(g cohort.Group) []float64 {
	return t.series(g, dataset.Coverage.Mean)
}

func (t *Table) series(g cohort.Group, pick func(dataset.Coverage) float64) []float64 {
	out := make([]float64, len(t.months))

	for i, m := range t.months {
		v, ok := t.cells[cellKey{m, g}]
		if !ok {
			out[i] = math.NaN()

			continue
		}

		out[i] = pick(v)
	}

	return out
}
