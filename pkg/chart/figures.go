package chart

import (
	"fmt"

	"github.com/Sumatoshi-tech/bubblestat/pkg/cohort"
	"github.com/Sumatoshi-tech/bubblestat/pkg/dataset"
	"github.com/Sumatoshi-tech/bubblestat/pkg/report"
)

// Figure file stems.
const (
	NameBootstrapCoverage       = "figure_bootstrap_coverage"
	NameAverageCoverage         = "figure_average_coverage"
	NameCombinedCoverage        = "figure_combined_coverage"
	NameAverageCombinedCoverage = "figure_average_combined_coverage"
	NameBubbleRatios            = "filter_bubble_ratios_all_groups"
	NameCombinedBubbleRatios    = "filter_bubble_ratios_combined_addicted"
)

// Axis labels.
const (
	labelMonth    = "Month"
	labelCoverage = "Coverage Ratio"
	labelBubble   = "Ratio of Users in Filter Bubble"
)

const (
	coverageLineWidth = 4
	averageLineWidth  = 5
	barWidth          = 0.25
	legendColor       = "#000000"
)

var (
	coverageLevelColors = [dataset.NumLevels]string{"#22974F", "#25B1E8", "#E8335A"}
	bubbleLevelColors   = [dataset.NumLevels]string{"#22974F", "#76c8e9", "#e9768f"}
)

// lineStyle is the dash and opacity a cohort is drawn with on line charts.
type lineStyle struct {
	dash    Dash
	opacity float64
}

var (
	classifiedLineStyles = map[cohort.Group]lineStyle{
		cohort.NonAddicted:  {DashDotted, 0.35},
		cohort.SoftAddicted: {DashDashed, 0.55},
		cohort.HardAddicted: {DashSolid, 0.9},
	}
	combinedLineStyles = map[cohort.Group]lineStyle{
		cohort.NonAddicted: {DashDashed, 0.40},
		cohort.Addicted:    {DashSolid, 0.9},
	}
	combinedAverageStyles = map[cohort.Group]Line{
		cohort.NonAddicted: {Color: "#2A5580", Dash: DashDashed, Opacity: 0.55, Width: averageLineWidth},
		cohort.Addicted:    {Color: "#FF6F61", Dash: DashSolid, Opacity: 0.9, Width: averageLineWidth},
	}
	averageColor = "#2A5580"
)

// barStyle is the position and opacity of a cohort's stack.
type barStyle struct {
	offset  float64
	opacity float64
}

var (
	classifiedBarStyles = map[cohort.Group]barStyle{
		cohort.NonAddicted:  {-barWidth, 0.3},
		cohort.SoftAddicted: {0, 0.55},
		cohort.HardAddicted: {barWidth, 0.99},
	}
	combinedBarStyles = map[cohort.Group]barStyle{
		cohort.NonAddicted: {-barWidth / 2, 0.5},
		cohort.Addicted:    {barWidth / 2, 0.99},
	}
)

func lineFigure(name, title string, t *report.Table) Figure {
	return Figure{
		Name:      name,
		Title:     title,
		XLabel:    labelMonth,
		YLabel:    labelCoverage,
		Kind:      KindLine,
		Months:    t.Months(),
		Width:     9,
		Height:    6,
		LabelSize: 24,
		TickSize:  22,
	}
}

func barFigure(name, title string, t *report.Table, width, height float64) Figure {
	return Figure{
		Name:      name,
		Title:     title,
		XLabel:    labelMonth,
		YLabel:    labelBubble,
		Kind:      KindStackedBar,
		Months:    t.Months(),
		BarWidth:  barWidth,
		Width:     width,
		Height:    height,
		LabelSize: 16,
		TickSize:  12,
		Grid:      true,
	}
}

func levelLegend(colors [dataset.NumLevels]string, title, format string, swatch bool) Legend {
	legend := Legend{Title: title}

	for level, c := range colors {
		legend.Entries = append(legend.Entries, LegendEntry{
			Label:   fmt.Sprintf(format, level+1),
			Color:   c,
			Opacity: 1,
			Swatch:  swatch,
		})
	}

	return legend
}

// BootstrapCoverage draws every level of every classified cohort: level
// by color, cohort by dash and opacity.
func BootstrapCoverage(t *report.Table) Figure {
	fig := lineFigure(NameBootstrapCoverage, "Bootstrap-normalized coverage by level and group", t)
	groups := Legend{Title: "Groups"}

	for _, g := range cohort.Classified() {
		style := classifiedLineStyles[g]
		groups.Entries = append(groups.Entries, LegendEntry{
			Label: g.DisplayName(), Color: legendColor, Dash: style.dash, Opacity: 1,
		})
	}

	for level := range dataset.NumLevels {
		for _, g := range cohort.Classified() {
			if !t.Has(g) {
				continue
			}

			style := classifiedLineStyles[g]
			fig.Lines = append(fig.Lines, Line{
				Label:   fmt.Sprintf("L%d %s", level+1, g.DisplayName()),
				Values:  t.Series(g, level),
				Color:   coverageLevelColors[level],
				Dash:    style.dash,
				Opacity: style.opacity,
				Width:   coverageLineWidth,
			})
		}
	}

	fig.Legends = []Legend{levelLegend(coverageLevelColors, "Levels", "L%d", false), groups}

	return fig
}

// AverageCoverage draws the mean across levels for each classified cohort.
func AverageCoverage(t *report.Table) Figure {
	fig := lineFigure(NameAverageCoverage, "Average coverage by group", t)
	legend := Legend{}

	for _, g := range cohort.Classified() {
		if !t.Has(g) {
			continue
		}

		style := classifiedLineStyles[g]
		line := Line{
			Label:   g.DisplayName(),
			Values:  t.Average(g),
			Color:   averageColor,
			Dash:    style.dash,
			Opacity: style.opacity,
			Width:   coverageLineWidth,
		}
		fig.Lines = append(fig.Lines, line)
		legend.Entries = append(legend.Entries, line.legendEntry())
	}

	fig.Legends = []Legend{legend}

	return fig
}

// CombinedCoverage draws every level for Non-Addicted against the combined
// Addicted cohort. t must be pivoted from combined points.
func CombinedCoverage(t *report.Table) Figure {
	fig := lineFigure(NameCombinedCoverage, "Coverage: Non-Addicted vs Addicted", t)
	legend := Legend{}

	for level := range dataset.NumLevels {
		for _, g := range cohort.Combined() {
			if !t.Has(g) {
				continue
			}

			style := combinedLineStyles[g]
			line := Line{
				Label:   fmt.Sprintf("L%d %s", level+1, g.DisplayName()),
				Values:  t.Series(g, level),
				Color:   coverageLevelColors[level],
				Dash:    style.dash,
				Opacity: style.opacity,
				Width:   coverageLineWidth,
			}
			fig.Lines = append(fig.Lines, line)
			legend.Entries = append(legend.Entries, line.legendEntry())
		}
	}

	fig.Legends = []Legend{legend}

	return fig
}

// AverageCombinedCoverage draws the mean across levels for Non-Addicted
// against the combined Addicted cohort.
func AverageCombinedCoverage(t *report.Table) Figure {
	fig := lineFigure(NameAverageCombinedCoverage, "Average coverage: Non-Addicted vs Addicted", t)
	legend := Legend{}

	for _, g := range cohort.Combined() {
		if !t.Has(g) {
			continue
		}

		line := combinedAverageStyles[g]
		line.Label = g.DisplayName()
		line.Values = t.Average(g)
		fig.Lines = append(fig.Lines, line)
		legend.Entries = append(legend.Entries, line.legendEntry())
	}

	fig.Legends = []Legend{legend}

	return fig
}

func (l Line) legendEntry() LegendEntry {
	return LegendEntry{Label: l.Label, Color: l.Color, Dash: l.Dash, Opacity: l.Opacity}
}

func bubbleStacks(t *report.Table, groups []cohort.Group, styles map[cohort.Group]barStyle) ([]Stack, Legend) {
	legend := levelLegend(bubbleLevelColors, "Levels and Groups", "Level %d", true)

	var stacks []Stack

	for _, g := range groups {
		style := styles[g]
		legend.Entries = append(legend.Entries, LegendEntry{
			Label: g.DisplayName(), Color: legendColor, Opacity: style.opacity, Swatch: true,
		})

		if !t.Has(g) {
			continue
		}

		stack := Stack{Label: g.DisplayName(), Offset: style.offset, Opacity: style.opacity}

		for level := range dataset.NumLevels {
			stack.Layers = append(stack.Layers, Layer{
				Label:  fmt.Sprintf("Level %d - %s", level+1, g.DisplayName()),
				Values: t.Series(g, level),
				Color:  bubbleLevelColors[level],
			})
		}

		stacks = append(stacks, stack)
	}

	return stacks, legend
}

// BubbleRatios draws, per month, one stacked bar per classified cohort
// with a layer per filter-bubble level.
func BubbleRatios(t *report.Table) Figure {
	fig := barFigure(NameBubbleRatios, "Filter bubble ratios by group", t, 15, 8)

	stacks, legend := bubbleStacks(t, cohort.Classified(), classifiedBarStyles)
	fig.Stacks = stacks
	fig.Legends = []Legend{legend}

	return fig
}

// CombinedBubbleRatios draws stacked bars for Non-Addicted against the
// combined Addicted cohort. t must be pivoted from combined points.
func CombinedBubbleRatios(t *report.Table) Figure {
	fig := barFigure(NameCombinedBubbleRatios, "Filter bubble ratios: Non-Addicted vs Addicted", t, 10, 6)

	stacks, legend := bubbleStacks(t, cohort.Combined(), combinedBarStyles)
	fig.Stacks = stacks
	fig.Legends = []Legend{legend}

	return fig
}

// CoverageFigures builds the four coverage figures from coverage points.
func CoverageFigures(points []report.Point, mode report.Mode) ([]Figure, error) {
	classified, combined, err := pivots(points, mode)
	if err != nil {
		return nil, fmt.Errorf("coverage figures: %w", err)
	}

	return []Figure{
		BootstrapCoverage(classified),
		AverageCoverage(classified),
		CombinedCoverage(combined),
		AverageCombinedCoverage(combined),
	}, nil
}

// BubbleFigures builds the two filter-bubble figures from estimate points.
func BubbleFigures(points []report.Point, mode report.Mode) ([]Figure, error) {
	classified, combined, err := pivots(points, mode)
	if err != nil {
		return nil, fmt.Errorf("filter bubble figures: %w", err)
	}

	return []Figure{BubbleRatios(classified), CombinedBubbleRatios(combined)}, nil
}

func pivots(points []report.Point, mode report.Mode) (classified, combined *report.Table, err error) {
	classified, err = report.Pivot(points)
	if err != nil {
		return nil, nil, err
	}

	folded, err := report.Combine(points, mode)
	if err != nil {
		return nil, nil, err
	}

	combined, err = report.Pivot(folded)
	if err != nil {
		return nil, nil, err
	}

	return classified, combined, nil
}
