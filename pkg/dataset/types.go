// Package dataset loads and writes the tabular inputs and intermediate
// tables of a bubblestat run.
//
// All tables are delimited text with a header row. Header names are matched
// case-insensitively and a few aliases are accepted for each column. Paths
// ending in ".lz4" are read and written through an LZ4 frame stream.
package dataset

import "github.com/Sumatoshi-tech/bubblestat/pkg/cohort"

// NumLevels is the depth of the content hierarchy coverage is measured on.
const NumLevels = 3

// Coverage holds one value per hierarchy level; index 0 is level 1.
type Coverage [NumLevels]float64

// Mean returns the unweighted mean across levels.
func (c Coverage) Mean() float64 {
	var sum float64

	for _, v := range c {
		sum += v
	}

	return sum / NumLevels
}

// UserMonthRecord is one row of the behavioral-metrics table.
type UserMonthRecord struct {
	UserID   string   `validate:"required"`
	WindowID int      `validate:"gte=0"`
	Month    int      `validate:"gte=1"`
	Raw      Coverage `validate:"dive,gte=0"`
	Norm     Coverage `validate:"dive,gte=0"`
}

// AddictionLabel is one row of the classification table.
// Code is left unmapped here; cohort.FromCode owns the domain check.
type AddictionLabel struct {
	UserID string `validate:"required"`
	Month  int    `validate:"gte=1"`
	Code   int
}

// CoverageRow is one row of a precomputed bootstrap-normalized coverage
// table. Users is zero when the table carries no user_count column.
type CoverageRow struct {
	Month  int `validate:"gte=1"`
	Group  cohort.Group
	Values Coverage `validate:"dive,gte=0"`
	Users  int      `validate:"gte=0"`
}

// EstimateRow is one (month, cohort) row of filter-bubble estimates.
type EstimateRow struct {
	Month      int `validate:"gte=1"`
	Group      cohort.Group
	Proportion Coverage `validate:"dive,gte=0,lte=1"`
	StdDev     Coverage `validate:"dive,gte=0"`
	Low        Coverage `validate:"dive,gte=0,lte=1"`
	High       Coverage `validate:"dive,gte=0,lte=1"`
	SampleSize int      `validate:"gte=1"`
	Resamples  int      `validate:"gte=1"`
	Users      int      `validate:"gte=0"`
}
