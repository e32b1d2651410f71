// Package aggregate computes per (month, cohort) means of the normalized
// coverage metrics.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/Sumatoshi-tech/bubblestat/pkg/alg/stats"
	"github.com/Sumatoshi-tech/bubblestat/pkg/cohort"
	"github.com/Sumatoshi-tech/bubblestat/pkg/dataset"
	"github.com/Sumatoshi-tech/bubblestat/pkg/merge"
)

// Row is the aggregate of one observed (month, cohort) combination.
type Row struct {
	Month int
	Group cohort.Group
	Mean  dataset.Coverage
	Users int
}

type cell struct {
	month int
	group cohort.Group
}

type accumulator struct {
	levels [dataset.NumLevels][]float64
	users  map[string]struct{}
}

// ByMonth groups records by (month, cohort). Only observed combinations
// produce a row; output is sorted by month, then canonical cohort order.
func ByMonth(records []merge.Record) []Row {
	cells := make(map[cell]*accumulator)

	for _, r := range records {
		k := cell{r.Month, r.Group}

		acc, ok := cells[k]
		if !ok {
			acc = &accumulator{users: make(map[string]struct{})}
			cells[k] = acc
		}

		for level, v := range r.Norm {
			acc.levels[level] = append(acc.levels[level], v)
		}

		acc.users[r.UserID] = struct{}{}
	}

	out := make([]Row, 0, len(cells))

	for k, acc := range cells {
		row := Row{Month: k.month, Group: k.group, Users: len(acc.users)}

		for level := range dataset.NumLevels {
			row.Mean[level] = stats.Mean(acc.levels[level])
		}

		out = append(out, row)
	}

	slices.SortFunc(out, func(a, b Row) int {
		return cmp.Or(cmp.Compare(a.Month, b.Month), cmp.Compare(a.Group, b.Group))
	})

	return out
}

// CoverageRows converts aggregates to the coverage-table shape consumed by
// the renderer.
func CoverageRows(rows []Row) []dataset.CoverageRow {
	out := make([]dataset.CoverageRow, len(rows))

	for i, r := range rows {
		out[i] = dataset.CoverageRow{Month: r.Month, Group: r.Group, Values: r.Mean, Users: r.Users}
	}

	return out
}
