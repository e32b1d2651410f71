package aggregate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bubblestat/pkg/aggregate"
	"github.com/Sumatoshi-tech/bubblestat/pkg/cohort"
	"github.com/Sumatoshi-tech/bubblestat/pkg/dataset"
	"github.com/Sumatoshi-tech/bubblestat/pkg/merge"
)

func record(user string, month int, group cohort.Group, norm dataset.Coverage) merge.Record {
	return merge.Record{UserID: user, Month: month, Group: group, Norm: norm}
}

func TestByMonth(t *testing.T) {
	t.Parallel()

	rows := aggregate.ByMonth([]merge.Record{
		record("a", 2, cohort.HardAddicted, dataset.Coverage{0.2, 0.4, 0.6}),
		record("b", 1, cohort.NonAddicted, dataset.Coverage{0.1, 0.2, 0.3}),
		record("c", 1, cohort.NonAddicted, dataset.Coverage{0.3, 0.4, 0.5}),
		record("d", 1, cohort.SoftAddicted, dataset.Coverage{1, 1, 1}),
	})

	require.Len(t, rows, 3)

	assert.Equal(t, 1, rows[0].Month)
	assert.Equal(t, cohort.NonAddicted, rows[0].Group)
	assert.Equal(t, 2, rows[0].Users)
	assert.InDelta(t, 0.2, rows[0].Mean[0], 1e-12)
	assert.InDelta(t, 0.3, rows[0].Mean[1], 1e-12)
	assert.InDelta(t, 0.4, rows[0].Mean[2], 1e-12)

	assert.Equal(t, cohort.SoftAddicted, rows[1].Group)
	assert.Equal(t, 2, rows[2].Month)
	assert.Equal(t, cohort.HardAddicted, rows[2].Group)
}

func TestByMonth_SingleRowMeanIsRowValue(t *testing.T) {
	t.Parallel()

	norm := dataset.Coverage{0.12, 0.34, 0.56}
	rows := aggregate.ByMonth([]merge.Record{record("a", 4, cohort.SoftAddicted, norm)})

	require.Len(t, rows, 1)
	assert.Equal(t, norm, rows[0].Mean)
	assert.Equal(t, 1, rows[0].Users)
}

func TestByMonth_Empty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, aggregate.ByMonth(nil))
}

func TestCoverageRows(t *testing.T) {
	t.Parallel()

	got := aggregate.CoverageRows([]aggregate.Row{
		{Month: 3, Group: cohort.HardAddicted, Mean: dataset.Coverage{1, 2, 3}, Users: 7},
	})

	assert.Equal(t, []dataset.CoverageRow{
		{Month: 3, Group: cohort.HardAddicted, Values: dataset.Coverage{1, 2, 3}, Users: 7},
	}, got)
}
