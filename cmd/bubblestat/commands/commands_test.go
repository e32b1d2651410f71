package commands_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bubblestat/cmd/bubblestat/commands"
	"github.com/Sumatoshi-tech/bubblestat/pkg/config"
)

const metricsHeader = "user_id,window_id,level_1_coverage,level_2_coverage,level_3_coverage," +
	"level_1_coverage_norm,level_2_coverage_norm,level_3_coverage_norm\n"

func writeInputs(t *testing.T) (dir, metricsPath, labelsPath string) {
	t.Helper()

	dir = t.TempDir()

	var metrics, labels strings.Builder

	metrics.WriteString(metricsHeader)
	labels.WriteString("user_id,month,preds_3_label_criteria\n")

	for i := range 6 {
		user := fmt.Sprintf("u%d", i+1)

		for window := range 2 {
			v := 0.1 * float64(i+1)
			fmt.Fprintf(&metrics, "%s,%d,%.2f,%.2f,%.2f,0.5,0.5,0.5\n", user, window, v, v/2, v/3)
			fmt.Fprintf(&labels, "%s,%d,%d\n", user, window+1, i/2)
		}
	}

	metricsPath = filepath.Join(dir, "metrics.csv")
	labelsPath = filepath.Join(dir, "labels.csv")

	require.NoError(t, os.WriteFile(metricsPath, []byte(metrics.String()), 0o600))
	require.NoError(t, os.WriteFile(labelsPath, []byte(labels.String()), 0o600))

	return dir, metricsPath, labelsPath
}

func newRoot() *cobra.Command {
	root := &cobra.Command{Use: "bubblestat", SilenceUsage: true, SilenceErrors: true}
	commands.AddGlobalFlags(root)
	root.AddCommand(commands.NewRunCommand(), commands.NewRenderCommand())

	return root
}

func execute(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()

	var out, errOut bytes.Buffer

	root := newRoot()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)

	err = root.Execute()

	return out.String(), err
}

func TestRunCommand_JSONSummary(t *testing.T) {
	t.Parallel()

	dir, metricsPath, labelsPath := writeInputs(t)
	estimates := filepath.Join(dir, "estimates.csv")
	textfile := filepath.Join(dir, "metrics.prom")

	out, err := execute(t, "run",
		"--metrics", metricsPath, "--labels", labelsPath,
		"--resamples", "10", "--seed", "3",
		"--out", filepath.Join(dir, "figures"), "--format", "svg",
		"--export-estimates", estimates,
		"--metrics-textfile", textfile,
		"--summary", "json")
	require.NoError(t, err)

	var got struct {
		Command   string `json:"command"`
		GroupSize int    `json:"group_size"`
		Resamples int    `json:"resamples"`
		Figures   int    `json:"figures"`
		Rows      struct {
			Merged int `json:"merged"`
		} `json:"rows"`
	}

	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "run", got.Command)
	assert.Equal(t, 2, got.GroupSize)
	assert.Equal(t, 10, got.Resamples)
	assert.Equal(t, 12, got.Rows.Merged)
	assert.Positive(t, got.Figures)

	assert.FileExists(t, estimates)

	prom, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "bubblestat_rows_loaded")
}

func TestRunCommand_Quiet(t *testing.T) {
	t.Parallel()

	dir, metricsPath, labelsPath := writeInputs(t)

	out, err := execute(t, "run", "-q",
		"-m", metricsPath, "-l", labelsPath,
		"--resamples", "5", "-o", filepath.Join(dir, "figures"), "-f", "eps")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRunCommand_TextSummary(t *testing.T) {
	t.Parallel()

	dir, metricsPath, labelsPath := writeInputs(t)

	out, err := execute(t, "run", "--no-color",
		"-m", metricsPath, "-l", labelsPath,
		"--resamples", "5", "-o", filepath.Join(dir, "figures"), "--sink", "html")
	require.NoError(t, err)
	assert.Contains(t, out, "bubblestat run finished")
	assert.Contains(t, out, "report.html")
	assert.FileExists(t, filepath.Join(dir, "figures", "report.html"))
}

func TestRunCommand_Errors(t *testing.T) {
	t.Parallel()

	_, metricsPath, labelsPath := writeInputs(t)

	tests := []struct {
		name string
		args []string
		want error
	}{
		{
			name: "missing_labels",
			args: []string{"run", "-m", metricsPath},
			want: config.ErrMissingInput,
		},
		{
			name: "bad_resamples",
			args: []string{"run", "-m", metricsPath, "-l", labelsPath, "--resamples", "0"},
			want: config.ErrInvalidResamples,
		},
		{
			name: "bad_format",
			args: []string{"run", "-m", metricsPath, "-l", labelsPath, "--format", "gif"},
			want: config.ErrInvalidOption,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := execute(t, tt.args...)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRenderCommand(t *testing.T) {
	t.Parallel()

	dir, metricsPath, labelsPath := writeInputs(t)
	estimates := filepath.Join(dir, "estimates.csv")

	_, err := execute(t, "run", "-q", "-m", metricsPath, "-l", labelsPath,
		"--resamples", "5", "-o", filepath.Join(dir, "first"), "--export-estimates", estimates)
	require.NoError(t, err)

	out, err := execute(t, "render", "--estimates", estimates,
		"-o", filepath.Join(dir, "second"), "-f", "svg", "--summary", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "command: render")

	entries, err := os.ReadDir(filepath.Join(dir, "second"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestRenderCommand_MissingInputs(t *testing.T) {
	t.Parallel()

	_, err := execute(t, "render")
	require.ErrorIs(t, err, config.ErrMissingInput)
}
