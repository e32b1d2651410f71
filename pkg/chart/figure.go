// Package chart builds the report figures and renders them through output
// sinks: vector documents on disk, or an interactive HTML page.
package chart

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Kind is the chart type of a figure.
type Kind int

// Figure kinds.
const (
	KindLine Kind = iota
	KindStackedBar
)

// Dash is the stroke pattern of a line.
type Dash int

// Dash patterns.
const (
	DashSolid Dash = iota
	DashDashed
	DashDotted
)

// Line is one line series. Values align with Figure.Months; NaN is a gap.
type Line struct {
	Label   string
	Values  []float64
	Color   string
	Dash    Dash
	Opacity float64
	// Width is the stroke width in points.
	Width float64
}

// Layer is one level of a bar stack. Values align with Figure.Months; NaN
// leaves the segment empty.
type Layer struct {
	Label  string
	Values []float64
	Color  string
}

// Stack is one cohort's column of stacked layers at every month.
type Stack struct {
	Label string
	// Offset shifts the stack from the month position, in bar-width units
	// of the x axis.
	Offset  float64
	Opacity float64
	Layers  []Layer
}

// LegendEntry is one legend row. Swatch entries draw a filled square;
// others draw a line sample.
type LegendEntry struct {
	Label   string
	Color   string
	Dash    Dash
	Opacity float64
	Swatch  bool
}

// Legend is a titled group of legend entries.
type Legend struct {
	Title   string
	Entries []LegendEntry
}

// Figure is a renderer-independent description of one chart.
type Figure struct {
	// Name is the output file stem.
	Name   string
	Title  string
	XLabel string
	YLabel string
	Kind   Kind
	Months []int
	Lines  []Line
	Stacks []Stack
	// BarWidth is the width of one bar in x-axis units.
	BarWidth float64
	Legends  []Legend
	// Width and Height are the document size in inches.
	Width     float64
	Height    float64
	LabelSize float64
	TickSize  float64
	// Grid draws horizontal grid lines.
	Grid bool
}

// Empty reports whether the figure has nothing to draw.
func (f Figure) Empty() bool {
	return len(f.Months) == 0 || (len(f.Lines) == 0 && len(f.Stacks) == 0)
}

// rgba parses a #rrggbb color and applies opacity.
func rgba(hex string, opacity float64) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("parse color %q: %w", hex, err)
	}

	r, g, b := c.RGB255()

	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}

	return color.NRGBA{R: r, G: g, B: b, A: uint8(opacity*255 + 0.5)}, nil
}
