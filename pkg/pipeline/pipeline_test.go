package pipeline_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/bubblestat/pkg/bootstrap"
	"github.com/Sumatoshi-tech/bubblestat/pkg/config"
	"github.com/Sumatoshi-tech/bubblestat/pkg/dataset"
	"github.com/Sumatoshi-tech/bubblestat/pkg/pipeline"
)

const metricsHeader = "user_id,window_id,level_1_coverage,level_2_coverage,level_3_coverage," +
	"level_1_coverage_norm,level_2_coverage_norm,level_3_coverage_norm\n"

// writeInputs writes two months of data for six users, two per cohort.
// Users listed in skip get no labels.
func writeInputs(t *testing.T, dir string, skipCodes ...int) (metricsPath, labelsPath string) {
	t.Helper()

	var metrics, labels strings.Builder

	metrics.WriteString(metricsHeader)
	labels.WriteString("user_id,month,preds_3_label_criteria\n")

	codes := map[string]int{"u1": 0, "u2": 0, "u3": 1, "u4": 1, "u5": 2, "u6": 2}

	for i, user := range []string{"u1", "u2", "u3", "u4", "u5", "u6"} {
		for window := range 2 {
			base := 0.1 * float64(i+1)
			fmt.Fprintf(&metrics, "%s,%d,%.2f,%.2f,%.2f,0.5,0.5,0.5\n",
				user, window, base, base/2, base/4)

			skipped := false

			for _, c := range skipCodes {
				if codes[user] == c {
					skipped = true
				}
			}

			if !skipped {
				fmt.Fprintf(&labels, "%s,%d,%d\n", user, window+1, codes[user])
			}
		}
	}

	metricsPath = filepath.Join(dir, "metrics.csv")
	labelsPath = filepath.Join(dir, "labels.csv")

	require.NoError(t, os.WriteFile(metricsPath, []byte(metrics.String()), 0o600))
	require.NoError(t, os.WriteFile(labelsPath, []byte(labels.String()), 0o600))

	return metricsPath, labelsPath
}

func newConfig(t *testing.T, skipCodes ...int) *config.Config {
	t.Helper()

	dir := t.TempDir()
	metricsPath, labelsPath := writeInputs(t, dir, skipCodes...)

	cfg := config.Default()
	cfg.Input.Metrics = metricsPath
	cfg.Input.Labels = labelsPath
	cfg.Bootstrap.Resamples = 20
	cfg.Bootstrap.Seed = 7
	cfg.Output.Dir = filepath.Join(dir, "figures")
	cfg.Output.Format = "svg"

	return cfg
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	cfg.Output.Estimates = filepath.Join(t.TempDir(), "estimates.csv")

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	runner := &pipeline.Runner{Config: cfg, Tracer: tp.Tracer("test"), RunID: "run-1"}

	sum, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", sum.RunID)
	assert.Equal(t, "run", sum.Command)
	assert.Equal(t, 12, sum.Rows.Metrics)
	assert.Equal(t, 12, sum.Rows.Labels)
	assert.Equal(t, 12, sum.Rows.Merged)
	assert.Zero(t, sum.Rows.DroppedMetrics)
	assert.Equal(t, 6, sum.Rows.Coverage)
	assert.Equal(t, 6, sum.Rows.Estimates)
	assert.Equal(t, 2, sum.GroupSize)
	assert.Equal(t, 20, sum.Resamples)
	assert.Len(t, sum.Cohorts, 3)
	assert.Empty(t, sum.Skipped)
	assert.Positive(t, sum.Figures)
	assert.Len(t, sum.Artifacts, sum.Figures)

	for _, a := range sum.Artifacts {
		assert.FileExists(t, a.Path)
		assert.Equal(t, ".svg", filepath.Ext(a.Path))
	}

	exported, err := dataset.LoadEstimates(cfg.Output.Estimates)
	require.NoError(t, err)
	assert.Len(t, exported, 6)

	var names []string
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}

	assert.Equal(t, []string{
		"bubblestat.load", "bubblestat.merge", "bubblestat.aggregate",
		"bubblestat.bootstrap", "bubblestat.export", "bubblestat.render",
	}, names)
}

func TestRunner_Run_Deterministic(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)

	first, err := (&pipeline.Runner{Config: cfg}).Run(context.Background())
	require.NoError(t, err)

	second, err := (&pipeline.Runner{Config: cfg}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first.Estimates, second.Estimates)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunner_Run_EverMembership(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	cfg.Bootstrap.Membership = string(bootstrap.MembershipEver)

	sum, err := (&pipeline.Runner{Config: cfg}).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, sum.Estimates, 6)
}

func TestRunner_Run_EmptyCohort(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t, 2)

	_, err := (&pipeline.Runner{Config: cfg}).Run(context.Background())
	require.Error(t, err)

	var empty *bootstrap.EmptyCohortError
	require.ErrorAs(t, err, &empty)
	assert.Contains(t, err.Error(), "bootstrap")
}

func TestRunner_Run_MissingInputs(t *testing.T) {
	t.Parallel()

	_, err := (&pipeline.Runner{Config: config.Default()}).Run(context.Background())
	require.ErrorIs(t, err, config.ErrMissingInput)
}

func TestRunner_Run_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&pipeline.Runner{Config: newConfig(t)}).Run(ctx)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunner_Render(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	cfg.Output.Estimates = filepath.Join(t.TempDir(), "estimates.csv")

	_, err := (&pipeline.Runner{Config: cfg}).Run(context.Background())
	require.NoError(t, err)

	render := config.Default()
	render.Input.Estimates = cfg.Output.Estimates
	render.Output.Dir = filepath.Join(t.TempDir(), "html")
	render.Output.Sink = "html"

	sum, err := (&pipeline.Runner{Config: render}).Render(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "render", sum.Command)
	assert.Equal(t, 6, sum.Rows.Estimates)
	assert.Zero(t, sum.Rows.Coverage)
	assert.Positive(t, sum.Figures)
	require.Len(t, sum.Artifacts, 1)
	assert.Equal(t, "report.html", filepath.Base(sum.Artifacts[0].Path))
}

func TestRunner_Render_MissingInputs(t *testing.T) {
	t.Parallel()

	_, err := (&pipeline.Runner{Config: config.Default()}).Render(context.Background())
	require.ErrorIs(t, err, config.ErrMissingInput)
}

func TestRunner_Run_BadFormat(t *testing.T) {
	t.Parallel()

	cfg := newConfig(t)
	cfg.Output.Format = "gif"

	_, err := (&pipeline.Runner{Config: cfg}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render")
}
