package plotpage_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/bubblestat/pkg/plotpage"
)

func TestBuildBarChart(t *testing.T) {
	t.Parallel()

	axes := plotpage.Axes{Title: "Ratios", XLabel: "Month", YLabel: "Ratio"}
	labels := []string{"1", "2"}
	series := []plotpage.BarSeries{
		{Name: "Level 1", Data: []float64{0.5, math.NaN()}, Color: "#22974F", Stack: "g0", Opacity: 0.3},
		{Name: "Level 2", Data: []float64{0.2, 0.1}, Stack: "g0"},
	}

	chart := plotpage.BuildBarChart(plotpage.DefaultChartOpts(), axes, labels, series)
	require.NotNil(t, chart)
	require.Len(t, chart.MultiSeries, 2)
	assert.Equal(t, "Level 1", chart.MultiSeries[0].Name)
	assert.Equal(t, "g0", chart.MultiSeries[0].Stack)
	assert.Equal(t, "#22974F", chart.MultiSeries[0].ItemStyle.Color)
}

func TestBuildBarChart_NilOpts(t *testing.T) {
	t.Parallel()

	chart := plotpage.BuildBarChart(nil, plotpage.Axes{}, []string{"1"},
		[]plotpage.BarSeries{{Name: "Data", Data: []float64{1}}})
	require.NotNil(t, chart)
	require.Len(t, chart.MultiSeries, 1)
}

func TestBuildLineChart(t *testing.T) {
	t.Parallel()

	series := []plotpage.LineSeries{
		{
			Name:    "L1 Non-Addicted",
			Data:    []float64{0.1, math.NaN(), 0.3},
			Color:   "#22974F",
			Type:    plotpage.LineDotted,
			Opacity: 0.35,
			Width:   4,
		},
	}

	chart := plotpage.BuildLineChart(plotpage.NewChartOpts(plotpage.ThemeDark), plotpage.Axes{YLabel: "Coverage Ratio"},
		[]string{"1", "2", "3"}, series)
	require.NotNil(t, chart)
	require.Len(t, chart.MultiSeries, 1)
	assert.Equal(t, "L1 Non-Addicted", chart.MultiSeries[0].Name)
	assert.Equal(t, "dotted", chart.MultiSeries[0].LineStyle.Type)
}

func TestPage_Render(t *testing.T) {
	t.Parallel()

	page := plotpage.NewPage("bubblestat report")
	page.Add(plotpage.BuildLineChart(nil, plotpage.Axes{Title: "coverage"}, []string{"1"},
		[]plotpage.LineSeries{{Name: "a", Data: []float64{1}}}))
	assert.Equal(t, 1, page.Len())

	var buf bytes.Buffer
	require.NoError(t, page.Render(&buf))
	assert.Contains(t, buf.String(), "bubblestat report")
	assert.Contains(t, buf.String(), "echarts")
}

func TestParseTheme(t *testing.T) {
	t.Parallel()

	assert.Equal(t, plotpage.ThemeDark, plotpage.ParseTheme("dark"))
	assert.Equal(t, plotpage.ThemeLight, plotpage.ParseTheme("light"))
	assert.Equal(t, plotpage.ThemeLight, plotpage.ParseTheme("unknown"))
	assert.Equal(t, "#1c1917", plotpage.GetThemeConfig(plotpage.ThemeDark).ChartBackground)
}
