package summary

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
)

const ratioFormat = "%.3f"

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

func paint(enabled bool, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}

	return c
}

func writeText(w io.Writer, s *Summary, colored bool) error {
	var b strings.Builder

	title := paint(colored, color.FgGreen, color.Bold)
	heading := paint(colored, color.FgCyan)
	warn := paint(colored, color.FgYellow)

	title.Fprintf(&b, "bubblestat %s finished in %s (run %s)\n", s.Command, s.Duration.Round(1e6), s.RunID)

	rows := newTable()
	rows.AppendHeader(table.Row{"Table", "Rows"})

	for _, r := range []struct {
		name  string
		count int
	}{
		{"metrics", s.Rows.Metrics},
		{"labels", s.Rows.Labels},
		{"merged", s.Rows.Merged},
		{"dropped metrics", s.Rows.DroppedMetrics},
		{"dropped labels", s.Rows.DroppedLabels},
		{"coverage", s.Rows.Coverage},
		{"estimates", s.Rows.Estimates},
	} {
		if r.count > 0 {
			rows.AppendRow(table.Row{r.name, humanize.Comma(int64(r.count))})
		}
	}

	if rows.Length() > 0 {
		heading.Fprintln(&b, "\nRows")
		b.WriteString(rows.Render() + "\n")
	}

	if len(s.Cohorts) > 0 {
		heading.Fprintf(&b, "\nCohorts (resample size %s, %s resamples)\n",
			humanize.Comma(int64(s.GroupSize)), humanize.Comma(int64(s.Resamples)))

		tbl := newTable()
		tbl.AppendHeader(table.Row{"Group", "Users", "t1", "t2", "t3"})

		for _, c := range s.Cohorts {
			tbl.AppendRow(table.Row{
				c.Group, humanize.Comma(int64(c.Users)),
				ratio(c.Thresholds[0]), ratio(c.Thresholds[1]), ratio(c.Thresholds[2]),
			})
		}

		b.WriteString(tbl.Render() + "\n")
	}

	if len(s.Estimates) > 0 {
		heading.Fprintln(&b, "\nFilter bubble estimates")

		tbl := newTable()
		tbl.AppendHeader(table.Row{"Month", "Group", "Level 1", "Level 2", "Level 3", "Users"})

		for _, e := range s.Estimates {
			tbl.AppendRow(table.Row{
				e.Month, e.Group,
				interval(e, 0), interval(e, 1), interval(e, 2),
				humanize.Comma(int64(e.Users)),
			})
		}

		tbl.AppendFooter(table.Row{"", fmt.Sprintf("Total: %d cells", len(s.Estimates))})
		b.WriteString(tbl.Render() + "\n")
	}

	for _, c := range s.Skipped {
		warn.Fprintf(&b, "skipped %s in month %d: no rows\n", c.Group, c.Month)
	}

	if len(s.Artifacts) > 0 {
		heading.Fprintf(&b, "\nWrote %d figures\n", s.Figures)

		tbl := newTable()
		tbl.AppendHeader(table.Row{"Sink", "Path", "Size"})

		for _, a := range s.Artifacts {
			tbl.AppendRow(table.Row{a.Sink, a.Path, humanize.Bytes(uint64(max(a.Bytes, 0)))})
		}

		b.WriteString(tbl.Render() + "\n")
	}

	_, err := io.WriteString(w, b.String())
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	return nil
}

func ratio(v float64) string {
	return fmt.Sprintf(ratioFormat, v)
}

// interval prints a level proportion, with its percentile interval when
// resampling produced one.
func interval(e Estimate, level int) string {
	p, lo, hi := e.Proportion[level], e.Low[level], e.High[level]
	if lo == p && hi == p {
		return ratio(p)
	}

	return fmt.Sprintf(ratioFormat+" [%.3f, %.3f]", p, lo, hi)
}
