package chart

import (
	"strconv"

	"github.com/go-echarts/go-echarts/v2/components"

	"github.com/Sumatoshi-tech/bubblestat/pkg/plotpage"
)

var echartsLineTypes = map[Dash]plotpage.LineType{
	DashSolid:  plotpage.LineSolid,
	DashDashed: plotpage.LineDashed,
	DashDotted: plotpage.LineDotted,
}

// Interactive builds the ECharts rendition of fig.
func Interactive(fig Figure, cOpts *plotpage.ChartOpts) components.Charter {
	axes := plotpage.Axes{Title: fig.Title, XLabel: fig.XLabel, YLabel: fig.YLabel}

	labels := make([]string, len(fig.Months))
	for i, m := range fig.Months {
		labels[i] = strconv.Itoa(m)
	}

	if fig.Kind == KindStackedBar {
		var series []plotpage.BarSeries

		for _, s := range fig.Stacks {
			for _, layer := range s.Layers {
				series = append(series, plotpage.BarSeries{
					Name:    layer.Label,
					Data:    layer.Values,
					Color:   layer.Color,
					Stack:   s.Label,
					Opacity: float32(s.Opacity),
				})
			}
		}

		return plotpage.BuildBarChart(cOpts, axes, labels, series)
	}

	series := make([]plotpage.LineSeries, len(fig.Lines))

	for i, l := range fig.Lines {
		series[i] = plotpage.LineSeries{
			Name:    l.Label,
			Data:    l.Values,
			Color:   l.Color,
			Type:    echartsLineTypes[l.Dash],
			Opacity: float32(l.Opacity),
			Width:   float32(l.Width),
		}
	}

	return plotpage.BuildLineChart(cOpts, axes, labels, series)
}
