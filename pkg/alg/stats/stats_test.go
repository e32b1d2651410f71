package stats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bubblestat/pkg/alg/stats"
)

func TestMean(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0, stats.Mean(nil), 1e-12)
	assert.InDelta(t, 0.7, stats.Mean([]float64{0.7}), 1e-12)
	assert.InDelta(t, 2.5, stats.Mean([]float64{1, 2, 3, 4}), 1e-12)
}

func TestQuantile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values []float64
		q      float64
		want   float64
	}{
		{name: "single", values: []float64{3}, q: 0.5, want: 3},
		{name: "odd_median", values: []float64{5, 1, 3}, q: 0.5, want: 3},
		{name: "even_median_interpolates", values: []float64{4, 1, 3, 2}, q: 0.5, want: 2.5},
		{name: "min", values: []float64{4, 1, 3, 2}, q: 0, want: 1},
		{name: "max", values: []float64{4, 1, 3, 2}, q: 1, want: 4},
		{name: "quarter", values: []float64{10, 20, 30, 40, 50}, q: 0.25, want: 20},
		{name: "type7", values: []float64{1, 2, 3, 4}, q: 0.1, want: 1.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := stats.Quantile(tt.values, tt.q)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestQuantile_DoesNotModifyInput(t *testing.T) {
	t.Parallel()

	values := []float64{3, 1, 2}

	_, err := stats.Quantile(values, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestQuantile_Errors(t *testing.T) {
	t.Parallel()

	_, err := stats.Quantile(nil, 0.5)
	require.ErrorIs(t, err, stats.ErrEmptySample)

	_, err = stats.Quantile([]float64{1}, 1.5)
	require.ErrorIs(t, err, stats.ErrQuantileRange)

	_, err = stats.Quantile([]float64{1}, -0.1)
	require.ErrorIs(t, err, stats.ErrQuantileRange)
}

func TestMedian(t *testing.T) {
	t.Parallel()

	got, err := stats.Median([]float64{0.1, 0.4, 0.2, 0.3})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, got, 1e-12)
}
