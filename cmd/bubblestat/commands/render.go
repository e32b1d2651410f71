package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/bubblestat/pkg/observability"
	"github.com/Sumatoshi-tech/bubblestat/pkg/pipeline"
	"github.com/Sumatoshi-tech/bubblestat/pkg/summary"
)

// NewRenderCommand creates the command that redraws figures from exported
// tables.
func NewRenderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Draw figures from exported coverage or estimates tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return execute(cmd, observability.ModeRender,
				func(ctx context.Context, runner *pipeline.Runner) (*summary.Summary, error) {
					return runner.Render(ctx)
				})
		},
	}

	fs := cmd.Flags()
	fs.String("coverage", "", "Coverage table to draw coverage figures from")
	fs.String("estimates", "", "Estimates table to draw filter-bubble figures from")
	addOutputFlags(fs)

	return cmd
}
