package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/bubblestat/pkg/config"
	"github.com/Sumatoshi-tech/bubblestat/pkg/observability"
	"github.com/Sumatoshi-tech/bubblestat/pkg/pipeline"
	"github.com/Sumatoshi-tech/bubblestat/pkg/summary"
)

// NewRunCommand creates the command that runs the full pipeline.
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Compute coverage and filter-bubble estimates and draw figures",
		Long: `Load the per-user monthly metrics and the addiction labels, merge them,
aggregate coverage by month and group, estimate filter-bubble shares by
bootstrap resampling and render every figure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, observability.ModeRun,
				func(ctx context.Context, runner *pipeline.Runner) (*summary.Summary, error) {
					return runner.Run(ctx)
				})
		},
	}

	fs := cmd.Flags()
	fs.StringP("metrics", "m", "", "Per-user monthly coverage table (.csv or .csv.lz4)")
	fs.StringP("labels", "l", "", "Per-user monthly addiction label table (.csv or .csv.lz4)")
	fs.String("coverage", "", "Precomputed coverage table used instead of the computed aggregates")
	fs.String("label-column", "", "Severity code column of the labels table")
	fs.Int("resamples", config.DefaultResamples, "Bootstrap resamples per group and month")
	fs.Float64("quantile", config.DefaultQuantile, "Per-group quantile used as the bubble threshold")
	fs.Float64("confidence", config.DefaultConfidence, "Confidence level of the reported intervals")
	fs.Uint64("seed", config.DefaultSeed, "Resampling seed")
	fs.String("membership", config.DefaultMembership, "Group membership: row, ever")
	fs.String("empty-month", config.DefaultEmptyMonth, "Empty group-month policy: skip, fail")
	fs.String("export-estimates", "", "Write the estimates table to this path")
	addOutputFlags(fs)

	return cmd
}
