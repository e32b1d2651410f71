package plotpage

import (
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// gapValue is the ECharts marker for a missing data point.
const gapValue = "-"

// LineType is the dash pattern of a line series.
type LineType string

// Line types understood by ECharts.
const (
	LineSolid  LineType = "solid"
	LineDashed LineType = "dashed"
	LineDotted LineType = "dotted"
)

// Axes holds the title and axis names of a chart.
type Axes struct {
	Title  string
	XLabel string
	YLabel string
}

// LineSeries defines the properties and data for a single line chart series.
// NaN values are drawn as gaps.
type LineSeries struct {
	Name    string
	Data    []float64
	Color   string   // Optional, uses theme if empty.
	Type    LineType // Optional, solid if empty.
	Opacity float32  // Optional, opaque if zero.
	Width   float32  // Optional.
}

// BarSeries defines the properties and data for a single bar chart series.
// NaN values leave the bar empty.
type BarSeries struct {
	Name    string
	Data    []float64
	Color   string  // Optional, uses theme if empty.
	Stack   string  // Optional, stack grouping.
	Opacity float32 // Optional, opaque if zero.
}

func baseOptions(cOpts *ChartOpts, axes Axes) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(cOpts.Init(chartWidth, chartHeight)),
		charts.WithTitleOpts(cOpts.Title(axes.Title, "")),
		charts.WithTooltipOpts(cOpts.Tooltip("axis")),
		charts.WithDataZoomOpts(cOpts.DataZoom()...),
		charts.WithXAxisOpts(cOpts.XAxis(axes.XLabel)),
		charts.WithYAxisOpts(cOpts.YAxis(axes.YLabel)),
		charts.WithLegendOpts(cOpts.Legend()),
		charts.WithGridOpts(cOpts.Grid()),
	}
}

func value(v float64) any {
	if math.IsNaN(v) {
		return gapValue
	}

	return v
}

// BuildBarChart constructs a fully configured go-echarts Bar chart using ChartOpts.
// If cOpts is nil, DefaultChartOpts() is used.
func BuildBarChart(cOpts *ChartOpts, axes Axes, labels []string, series []BarSeries) *charts.Bar {
	if cOpts == nil {
		cOpts = DefaultChartOpts()
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(baseOptions(cOpts, axes)...)
	bar.SetXAxis(labels)

	for _, s := range series {
		barData := make([]opts.BarData, len(s.Data))
		for i, v := range s.Data {
			barData[i] = opts.BarData{Value: value(v)}
		}

		style := opts.ItemStyle{Color: s.Color}
		if s.Opacity > 0 {
			style.Opacity = opts.Float(s.Opacity)
		}

		seriesOpts := []charts.SeriesOpts{charts.WithItemStyleOpts(style)}

		if s.Stack != "" {
			seriesOpts = append(seriesOpts, charts.WithBarChartOpts(opts.BarChart{Stack: s.Stack}))
		}

		bar.AddSeries(s.Name, barData, seriesOpts...)
	}

	return bar
}

// BuildLineChart constructs a fully configured go-echarts Line chart using ChartOpts.
// If cOpts is nil, DefaultChartOpts() is used.
func BuildLineChart(cOpts *ChartOpts, axes Axes, labels []string, series []LineSeries) *charts.Line {
	if cOpts == nil {
		cOpts = DefaultChartOpts()
	}

	line := charts.NewLine()
	line.SetGlobalOptions(baseOptions(cOpts, axes)...)
	line.SetXAxis(labels)

	for _, s := range series {
		lineData := make([]opts.LineData, len(s.Data))
		for i, v := range s.Data {
			lineData[i] = opts.LineData{Value: value(v)}
		}

		lineStyle := opts.LineStyle{Color: s.Color, Type: string(s.Type), Width: s.Width}
		itemStyle := opts.ItemStyle{Color: s.Color}

		if s.Opacity > 0 {
			lineStyle.Opacity = opts.Float(s.Opacity)
			itemStyle.Opacity = opts.Float(s.Opacity)
		}

		line.AddSeries(s.Name, lineData,
			charts.WithLineStyleOpts(lineStyle),
			charts.WithItemStyleOpts(itemStyle),
			charts.WithLineChartOpts(opts.LineChart{ConnectNulls: opts.Bool(false)}),
		)
	}

	return line
}
