package report_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bubblestat/pkg/cohort"
	"github.com/Sumatoshi-tech/bubblestat/pkg/dataset"
	"github.com/Sumatoshi-tech/bubblestat/pkg/report"
)

func TestPivot(t *testing.T) {
	t.Parallel()

	table, err := report.Pivot([]report.Point{
		{Month: 2, Group: cohort.HardAddicted, Values: dataset.Coverage{0.3, 0.6, 0.9}},
		{Month: 1, Group: cohort.NonAddicted, Values: dataset.Coverage{0.1, 0.2, 0.3}},
		{Month: 2, Group: cohort.NonAddicted, Values: dataset.Coverage{0.4, 0.5, 0.6}},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, table.Months())
	assert.Equal(t, []cohort.Group{cohort.NonAddicted, cohort.HardAddicted}, table.Groups())
	assert.True(t, table.Has(cohort.HardAddicted))
	assert.False(t, table.Has(cohort.SoftAddicted))

	assert.Equal(t, []float64{0.2, 0.5}, table.Series(cohort.NonAddicted, 1))

	hard := table.Series(cohort.HardAddicted, 0)
	require.Len(t, hard, 2)
	assert.True(t, math.IsNaN(hard[0]))
	assert.InDelta(t, 0.3, hard[1], 1e-12)

	avg := table.Average(cohort.HardAddicted)
	assert.True(t, math.IsNaN(avg[0]))
	assert.InDelta(t, 0.6, avg[1], 1e-12)

	v, ok := table.Value(1, cohort.NonAddicted)
	require.True(t, ok)
	assert.Equal(t, dataset.Coverage{0.1, 0.2, 0.3}, v)

	_, ok = table.Value(1, cohort.HardAddicted)
	assert.False(t, ok)
}

func TestPivot_Duplicate(t *testing.T) {
	t.Parallel()

	_, err := report.Pivot([]report.Point{
		{Month: 1, Group: cohort.NonAddicted},
		{Month: 1, Group: cohort.NonAddicted},
	})
	require.ErrorIs(t, err, report.ErrDuplicateCell)
}

func combineFixture() []report.Point {
	return []report.Point{
		{Month: 1, Group: cohort.NonAddicted, Values: dataset.Coverage{0.5, 0.5, 0.5}, Weight: 10},
		{Month: 1, Group: cohort.SoftAddicted, Values: dataset.Coverage{0.2, 0.4, 0.6}, Weight: 3},
		{Month: 1, Group: cohort.HardAddicted, Values: dataset.Coverage{0.6, 0.0, 0.2}, Weight: 1},
		{Month: 2, Group: cohort.SoftAddicted, Values: dataset.Coverage{0.1, 0.1, 0.1}, Weight: 2},
	}
}

func TestCombine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mode   report.Mode
		month1 dataset.Coverage
		month2 dataset.Coverage
	}{
		{
			name:   "weighted_by_user_count",
			mode:   report.ModeWeighted,
			month1: dataset.Coverage{0.3, 0.3, 0.5},
			month2: dataset.Coverage{0.1, 0.1, 0.1},
		},
		{
			name:   "unweighted_mean",
			mode:   report.ModeMean,
			month1: dataset.Coverage{0.4, 0.2, 0.4},
			month2: dataset.Coverage{0.1, 0.1, 0.1},
		},
		{
			name:   "sum_fills_missing_with_zero",
			mode:   report.ModeSum,
			month1: dataset.Coverage{0.8, 0.4, 0.8},
			month2: dataset.Coverage{0.1, 0.1, 0.1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := report.Combine(combineFixture(), tt.mode)
			require.NoError(t, err)
			require.Len(t, got, 3)

			assert.Equal(t, cohort.NonAddicted, got[0].Group)
			assert.Equal(t, cohort.Addicted, got[1].Group)
			assert.Equal(t, 1, got[1].Month)
			assert.Equal(t, cohort.Addicted, got[2].Group)
			assert.Equal(t, 2, got[2].Month)
			assert.InDelta(t, 4.0, got[1].Weight, 1e-12)

			for level := range dataset.NumLevels {
				assert.InDelta(t, tt.month1[level], got[1].Values[level], 1e-12)
				assert.InDelta(t, tt.month2[level], got[2].Values[level], 1e-12)
			}
		})
	}
}

func TestCombine_WeightedWithoutCountsIsMean(t *testing.T) {
	t.Parallel()

	points := combineFixture()
	for i := range points {
		points[i].Weight = 0
	}

	weighted, err := report.Combine(points, report.ModeWeighted)
	require.NoError(t, err)

	mean, err := report.Combine(points, report.ModeMean)
	require.NoError(t, err)

	assert.Equal(t, mean, weighted)
}

func TestCombine_UnknownMode(t *testing.T) {
	t.Parallel()

	_, err := report.Combine(combineFixture(), "median")
	require.ErrorIs(t, err, report.ErrUnknownMode)
}

func TestFromRows(t *testing.T) {
	t.Parallel()

	cov := report.FromCoverage([]dataset.CoverageRow{
		{Month: 1, Group: cohort.SoftAddicted, Values: dataset.Coverage{1, 2, 3}, Users: 4},
	})
	assert.Equal(t, []report.Point{
		{Month: 1, Group: cohort.SoftAddicted, Values: dataset.Coverage{1, 2, 3}, Weight: 4},
	}, cov)

	est := report.FromEstimates([]dataset.EstimateRow{
		{Month: 2, Group: cohort.HardAddicted, Proportion: dataset.Coverage{0.1, 0.2, 0.3}, Users: 6},
	})
	assert.Equal(t, []report.Point{
		{Month: 2, Group: cohort.HardAddicted, Values: dataset.Coverage{0.1, 0.2, 0.3}, Weight: 6},
	}, est)
}
