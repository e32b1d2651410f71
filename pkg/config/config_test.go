package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bubblestat/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bubblestat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""), nil)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultResamples, cfg.Bootstrap.Resamples)
	assert.InDelta(t, config.DefaultQuantile, cfg.Bootstrap.Quantile, 1e-12)
	assert.InDelta(t, config.DefaultConfidence, cfg.Bootstrap.Confidence, 1e-12)
	assert.Equal(t, config.DefaultMembership, cfg.Bootstrap.Membership)
	assert.Equal(t, config.DefaultEmptyMonth, cfg.Bootstrap.EmptyMonth)
	assert.Equal(t, config.DefaultCombineMode, cfg.Combine.Mode)
	assert.Equal(t, config.DefaultOutputDir, cfg.Output.Dir)
	assert.Equal(t, config.DefaultOutputSink, cfg.Output.Sink)
	assert.Equal(t, config.DefaultOutputFormat, cfg.Output.Format)
	assert.Equal(t, config.DefaultOutputSummary, cfg.Output.Summary)
	assert.Equal(t, config.DefaultLogFormat, cfg.Logging.Format)
	assert.Equal(t, config.DefaultShutdownTimeout, cfg.Telemetry.ShutdownTimeout)
	assert.Empty(t, cfg.Input.Metrics)
}

func TestLoadConfig_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `input:
  metrics: data/metrics.csv.lz4
  labels: data/labels.csv
  label_column: severity
bootstrap:
  resamples: 200
  seed: 7
  membership: ever
  empty_month: fail
combine:
  mode: sum
output:
  sink: both
  format: svg
  theme: dark
logging:
  level: debug
  format: json
telemetry:
  metrics_textfile: /tmp/bubblestat.prom
`)

	cfg, err := config.LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "data/metrics.csv.lz4", cfg.Input.Metrics)
	assert.Equal(t, "severity", cfg.Input.LabelColumn)
	assert.Equal(t, 200, cfg.Bootstrap.Resamples)
	assert.Equal(t, uint64(7), cfg.Bootstrap.Seed)
	assert.Equal(t, "ever", cfg.Bootstrap.Membership)
	assert.Equal(t, "fail", cfg.Bootstrap.EmptyMonth)
	assert.Equal(t, "sum", cfg.Combine.Mode)
	assert.Equal(t, "both", cfg.Output.Sink)
	assert.Equal(t, "svg", cfg.Output.Format)
	assert.Equal(t, "/tmp/bubblestat.prom", cfg.Telemetry.MetricsTextfile)

	level, err := cfg.Logging.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	require.NoError(t, cfg.ValidateRun())
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "bootstrap:\n  resamples: 200\n  quantile: 0.25\n")

	flags := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flags.Int("resamples", config.DefaultResamples, "")
	flags.Float64("quantile", config.DefaultQuantile, "")
	flags.String("sink", config.DefaultOutputSink, "")
	require.NoError(t, flags.Parse([]string{"--resamples=50", "--sink=html"}))

	cfg, err := config.LoadConfig(path, flags)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Bootstrap.Resamples)
	// Unset flags leave file values alone.
	assert.InDelta(t, 0.25, cfg.Bootstrap.Quantile, 1e-12)
	assert.Equal(t, "html", cfg.Output.Sink)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("BUBBLESTAT_BOOTSTRAP_RESAMPLES", "321")
	t.Setenv("BUBBLESTAT_OUTPUT_DIR", "/srv/figures")

	cfg, err := config.LoadConfig(writeConfig(t, "bootstrap:\n  resamples: 200\n"), nil)
	require.NoError(t, err)

	assert.Equal(t, 321, cfg.Bootstrap.Resamples)
	assert.Equal(t, "/srv/figures", cfg.Output.Dir)
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{name: "zero_resamples", content: "bootstrap:\n  resamples: 0\n", want: config.ErrInvalidResamples},
		{name: "quantile_one", content: "bootstrap:\n  quantile: 1\n", want: config.ErrInvalidQuantile},
		{name: "confidence", content: "bootstrap:\n  confidence: 1.5\n", want: config.ErrInvalidConfidence},
		{name: "membership", content: "bootstrap:\n  membership: always\n", want: config.ErrInvalidOption},
		{name: "combine", content: "combine:\n  mode: median\n", want: config.ErrInvalidOption},
		{name: "format", content: "output:\n  format: png\n", want: config.ErrInvalidOption},
		{name: "log_level", content: "logging:\n  level: loud\n", want: config.ErrInvalidOption},
		{name: "sample_ratio", content: "telemetry:\n  sample_ratio: 2\n", want: config.ErrInvalidRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content), nil)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateInputs(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""), nil)
	require.NoError(t, err)

	require.ErrorIs(t, cfg.ValidateRun(), config.ErrMissingInput)
	require.ErrorIs(t, cfg.ValidateRender(), config.ErrMissingInput)

	cfg.Input.Metrics = "m.csv"
	require.ErrorIs(t, cfg.ValidateRun(), config.ErrMissingInput)

	cfg.Input.Labels = "l.csv"
	require.NoError(t, cfg.ValidateRun())

	cfg.Input.Estimates = "e.csv"
	require.NoError(t, cfg.ValidateRender())
}

func TestDefault_MatchesEmptyFile(t *testing.T) {
	t.Parallel()

	loaded, err := config.LoadConfig(writeConfig(t, ""), nil)
	require.NoError(t, err)

	assert.Equal(t, config.Default(), loaded)
	require.NoError(t, config.Default().Validate())
}
