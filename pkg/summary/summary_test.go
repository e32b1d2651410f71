package summary_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/bubblestat/pkg/summary"
)

func fixture() *summary.Summary {
	return &summary.Summary{
		RunID:   "3f1c",
		Command: "run",
		Rows:    summary.Rows{Metrics: 12345, Labels: 12000, Merged: 11000, DroppedMetrics: 1345, DroppedLabels: 1000},
		Cohorts: []summary.Cohort{
			{Group: "Non-Addicted", Users: 900, Thresholds: [3]float64{0.5, 0.4, 0.3}},
		},
		GroupSize: 120,
		Resamples: 1000,
		Estimates: []summary.Estimate{
			{
				Month: 1, Group: "Non-Addicted", Users: 900,
				Proportion: [3]float64{0.5, 0.25, 0.125},
				Low:        [3]float64{0.4, 0.2, 0.1},
				High:       [3]float64{0.6, 0.3, 0.15},
			},
		},
		Skipped:   []summary.Cell{{Month: 2, Group: "Mildly Addicted"}},
		Figures:   6,
		Artifacts: []summary.Artifact{{Sink: "file", Path: "out/figure_average_coverage.pdf", Bytes: 1234}},
		Duration:  1500 * time.Millisecond,
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"text", "json", "yaml", "none"} {
		f, err := summary.ParseFormat(name)
		require.NoError(t, err)
		assert.Equal(t, summary.Format(name), f)
	}

	_, err := summary.ParseFormat("xml")
	require.ErrorIs(t, err, summary.ErrUnknownFormat)
}

func TestWrite_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, summary.Write(&buf, fixture(), summary.Options{Format: summary.FormatText}))

	out := buf.String()
	assert.Contains(t, out, "bubblestat run finished in 1.5s (run 3f1c)")
	assert.Contains(t, out, "12,345")
	assert.Contains(t, out, "0.500 [0.400, 0.600]")
	assert.Contains(t, out, "skipped Mildly Addicted in month 2")
	assert.Contains(t, out, "1.2 kB")
	assert.NotContains(t, out, "\x1b[", "color disabled")
}

func TestWrite_TextColor(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, summary.Write(&buf, fixture(), summary.Options{Format: summary.FormatText, Color: true}))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestWrite_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, summary.Write(&buf, fixture(), summary.Options{Format: summary.FormatJSON}))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "3f1c", got["run_id"])
	assert.InDelta(t, 1.5, got["duration_seconds"], 1e-9)
	assert.InDelta(t, 120, got["group_size"], 1e-9)
}

func TestWrite_YAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, summary.Write(&buf, fixture(), summary.Options{Format: summary.FormatYAML}))

	var got summary.Summary
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 12345, got.Rows.Metrics)
	assert.Equal(t, [3]float64{0.5, 0.25, 0.125}, got.Estimates[0].Proportion)
	assert.True(t, strings.Contains(buf.String(), "thresholds: [0.5, 0.4, 0.3]"))
}

func TestWrite_None(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, summary.Write(&buf, fixture(), summary.Options{Format: summary.FormatNone}))
	assert.Zero(t, buf.Len())
}
