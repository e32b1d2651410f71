// Package commands implements the bubblestat subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Sumatoshi-tech/bubblestat/pkg/config"
	"github.com/Sumatoshi-tech/bubblestat/pkg/observability"
	"github.com/Sumatoshi-tech/bubblestat/pkg/pipeline"
	"github.com/Sumatoshi-tech/bubblestat/pkg/summary"
	"github.com/Sumatoshi-tech/bubblestat/pkg/version"
)

// Global flag names.
const (
	flagConfig  = "config"
	flagVerbose = "verbose"
	flagQuiet   = "quiet"
	flagNoColor = "no-color"
)

// AddGlobalFlags registers the persistent flags shared by all subcommands.
func AddGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.String(flagConfig, "", "Config file (default: bubblestat.yaml in ., ./config or /etc/bubblestat)")
	flags.BoolP(flagVerbose, "v", false, "Log at debug level")
	flags.BoolP(flagQuiet, "q", false, "Only log errors and skip the summary")
	flags.Bool(flagNoColor, false, "Disable colored summary output")
}

func boolFlag(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		return false
	}

	return v
}

func stringFlag(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		return ""
	}

	return v
}

// addOutputFlags registers flags shared by run and render.
func addOutputFlags(fs *pflag.FlagSet) {
	fs.String("combine", config.DefaultCombineMode, "How addicted groups are merged: weighted, mean, sum")
	fs.StringP("out", "o", config.DefaultOutputDir, "Figure output directory")
	fs.String("sink", config.DefaultOutputSink, "Figure sink: file, html, both")
	fs.StringP("format", "f", config.DefaultOutputFormat, "Vector figure format: pdf, svg, eps")
	fs.String("title", config.DefaultOutputTitle, "Title of the HTML report page")
	fs.String("theme", config.DefaultOutputTheme, "HTML report theme: light, dark")
	fs.String("summary", config.DefaultOutputSummary, "Summary format: text, json, yaml, none")
	fs.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	fs.String("log-format", config.DefaultLogFormat, "Log format: text, json")
	fs.String("metrics-textfile", "", "Write run metrics in Prometheus text format to this file")
}

type stageFunc func(ctx context.Context, runner *pipeline.Runner) (*summary.Summary, error)

// execute loads configuration, sets up telemetry, runs fn and prints the
// summary.
func execute(cmd *cobra.Command, mode observability.AppMode, fn stageFunc) (err error) {
	cfg, err := config.LoadConfig(stringFlag(cmd, flagConfig), cmd.Flags())
	if err != nil {
		return err
	}

	summaryFormat, err := summary.ParseFormat(cfg.Output.Summary)
	if err != nil {
		return err
	}

	quiet := boolFlag(cmd, flagQuiet)
	runID := uuid.NewString()

	providers, err := observability.Init(cmd.Context(), observabilityConfig(cmd, cfg, mode, runID))
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		err = errors.Join(err, providers.Shutdown(context.WithoutCancel(cmd.Context())))
	}()

	metrics, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		return err
	}

	runner := &pipeline.Runner{
		Config:  cfg,
		Logger:  providers.Logger,
		Tracer:  providers.Tracer,
		Metrics: metrics,
		RunID:   runID,
	}

	sum, err := fn(cmd.Context(), runner)
	if err != nil {
		return err
	}

	if quiet {
		return nil
	}

	return summary.Write(cmd.OutOrStdout(), sum, summary.Options{
		Format: summaryFormat,
		Color:  !boolFlag(cmd, flagNoColor) && !color.NoColor,
	})
}

func observabilityConfig(cmd *cobra.Command, cfg *config.Config, mode observability.AppMode, runID string) observability.Config {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	switch {
	case boolFlag(cmd, flagQuiet):
		level = slog.LevelError
	case boolFlag(cmd, flagVerbose):
		level = slog.LevelDebug
	}

	obs := observability.DefaultConfig()
	obs.ServiceVersion = version.Version
	obs.Environment = cfg.Telemetry.Environment
	obs.Mode = mode
	obs.RunID = runID
	obs.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obs.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Telemetry.OTLPHeaders)
	obs.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obs.SampleRatio = cfg.Telemetry.SampleRatio
	obs.MetricsTextfile = cfg.Telemetry.MetricsTextfile
	obs.LogLevel = level
	obs.LogJSON = cfg.Logging.Format == "json"
	obs.LogWriter = cmd.ErrOrStderr()

	if cfg.Telemetry.ShutdownTimeout > 0 {
		obs.ShutdownTimeoutSec = cfg.Telemetry.ShutdownTimeout
	}

	return obs
}
