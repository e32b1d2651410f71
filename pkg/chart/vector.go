package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgeps"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"
)

// Format is a vector document format.
type Format string

// Supported vector formats.
const (
	FormatPDF Format = "pdf"
	FormatSVG Format = "svg"
	FormatEPS Format = "eps"
)

// ErrUnknownFormat is returned for an unsupported document format.
var ErrUnknownFormat = errors.New("unknown document format")

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatPDF, FormatSVG, FormatEPS:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

func newCanvas(format Format, w, h vg.Length) (vg.CanvasWriterTo, error) {
	switch format {
	case FormatPDF:
		return vgpdf.New(w, h), nil
	case FormatSVG:
		return vgsvg.New(w, h), nil
	case FormatEPS:
		return vgeps.New(w, h), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

var dashPatterns = map[Dash][]vg.Length{
	DashSolid:  nil,
	DashDashed: {vg.Points(10), vg.Points(5)},
	DashDotted: {vg.Points(2), vg.Points(4)},
}

// WriteVector draws fig and writes it to w as a document in format.
func WriteVector(w io.Writer, fig Figure, format Format) error {
	p, err := newPlot(fig)
	if err != nil {
		return err
	}

	canvas, err := newCanvas(format, vg.Length(fig.Width)*vg.Inch, vg.Length(fig.Height)*vg.Inch)
	if err != nil {
		return err
	}

	p.Draw(draw.New(canvas))

	if _, err = canvas.WriteTo(w); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}

	return nil
}

func newPlot(fig Figure) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = fig.XLabel
	p.Y.Label.Text = fig.YLabel
	p.X.Label.TextStyle.Font.Size = vg.Points(fig.LabelSize)
	p.Y.Label.TextStyle.Font.Size = vg.Points(fig.LabelSize)
	p.X.Tick.Label.Font.Size = vg.Points(fig.TickSize)
	p.Y.Tick.Label.Font.Size = vg.Points(fig.TickSize)
	p.Legend.Top = true
	p.Legend.Left = true

	if fig.Grid {
		grid := plotter.NewGrid()
		grid.Vertical.Color = nil
		grid.Horizontal.Dashes = dashPatterns[DashDashed]
		p.Add(grid)
	}

	var err error

	switch fig.Kind {
	case KindLine:
		err = addLines(p, fig)
	case KindStackedBar:
		err = addStacks(p, fig)
	default:
		err = fmt.Errorf("unknown figure kind %d", fig.Kind)
	}

	if err != nil {
		return nil, fmt.Errorf("figure %s: %w", fig.Name, err)
	}

	if err = addLegends(p, fig.Legends); err != nil {
		return nil, fmt.Errorf("figure %s: %w", fig.Name, err)
	}

	return p, nil
}

func addLines(p *plot.Plot, fig Figure) error {
	ticks := make(plot.ConstantTicks, len(fig.Months))
	for i, m := range fig.Months {
		ticks[i] = plot.Tick{Value: float64(m), Label: strconv.Itoa(m)}
	}

	p.X.Tick.Marker = ticks

	for _, line := range fig.Lines {
		style, err := strokeStyle(line.Color, line.Dash, line.Opacity, line.Width)
		if err != nil {
			return err
		}

		for _, segment := range segments(fig.Months, line.Values) {
			if len(segment) == 1 {
				scatter, scatterErr := plotter.NewScatter(segment)
				if scatterErr != nil {
					return fmt.Errorf("line %s: %w", line.Label, scatterErr)
				}

				scatter.GlyphStyle.Color = style.Color
				scatter.GlyphStyle.Radius = style.Width
				p.Add(scatter)

				continue
			}

			l, lineErr := plotter.NewLine(segment)
			if lineErr != nil {
				return fmt.Errorf("line %s: %w", line.Label, lineErr)
			}

			l.LineStyle = style
			p.Add(l)
		}
	}

	return nil
}

// segments splits a series at NaN values into runs of drawable points.
func segments(months []int, values []float64) []plotter.XYs {
	var (
		out     []plotter.XYs
		current plotter.XYs
	)

	for i, m := range months {
		if i >= len(values) || math.IsNaN(values[i]) {
			if len(current) > 0 {
				out = append(out, current)
				current = nil
			}

			continue
		}

		current = append(current, plotter.XY{X: float64(m), Y: values[i]})
	}

	if len(current) > 0 {
		out = append(out, current)
	}

	return out
}

func addStacks(p *plot.Plot, fig Figure) error {
	bars := &stackedBars{width: fig.BarWidth}
	ticks := make(plot.ConstantTicks, len(fig.Months))

	for i, m := range fig.Months {
		bars.positions = append(bars.positions, float64(i+1))
		ticks[i] = plot.Tick{Value: float64(i + 1), Label: strconv.Itoa(m)}
	}

	for _, s := range fig.Stacks {
		stack := drawStack{offset: s.Offset}

		for _, layer := range s.Layers {
			fill, err := rgba(layer.Color, s.Opacity)
			if err != nil {
				return err
			}

			stack.layers = append(stack.layers, drawLayer{values: layer.Values, fill: fill})
		}

		bars.stacks = append(bars.stacks, stack)
	}

	p.X.Tick.Marker = ticks
	p.Y.Min = 0
	p.Add(bars)

	return nil
}

func addLegends(p *plot.Plot, legends []Legend) error {
	for _, legend := range legends {
		if legend.Title != "" {
			p.Legend.Add(legend.Title)
		}

		for _, entry := range legend.Entries {
			thumb, err := thumbnail(entry)
			if err != nil {
				return err
			}

			p.Legend.Add(entry.Label, thumb)
		}
	}

	return nil
}

func thumbnail(entry LegendEntry) (plot.Thumbnailer, error) {
	if entry.Swatch {
		fill, err := rgba(entry.Color, entry.Opacity)
		if err != nil {
			return nil, err
		}

		return swatch{fill: fill}, nil
	}

	style, err := strokeStyle(entry.Color, entry.Dash, entry.Opacity, coverageLineWidth)
	if err != nil {
		return nil, err
	}

	return &plotter.Line{LineStyle: style}, nil
}

func strokeStyle(hex string, dash Dash, opacity, width float64) (draw.LineStyle, error) {
	c, err := rgba(hex, opacity)
	if err != nil {
		return draw.LineStyle{}, err
	}

	return draw.LineStyle{Color: c, Width: vg.Points(width), Dashes: dashPatterns[dash]}, nil
}

// swatch is a filled-square legend thumbnail.
type swatch struct {
	fill color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	side := min(c.Max.X-c.Min.X, c.Max.Y-c.Min.Y)
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Min.Y + side},
		{X: c.Min.X + side, Y: c.Min.Y + side},
		{X: c.Min.X + side, Y: c.Min.Y},
	}

	c.FillPolygon(s.fill, c.ClipPolygonXY(pts))
}

type drawLayer struct {
	values []float64
	fill   color.Color
}

type drawStack struct {
	offset float64
	layers []drawLayer
}

// stackedBars draws grouped stacks of bars in data coordinates.
type stackedBars struct {
	positions []float64
	stacks    []drawStack
	width     float64
}

func (b *stackedBars) Plot(c draw.Canvas, p *plot.Plot) {
	trX, trY := p.Transforms(&c)

	for _, s := range b.stacks {
		for i, x := range b.positions {
			center := x + s.offset
			x0, x1 := trX(center-b.width/2), trX(center+b.width/2)
			bottom := 0.0

			for _, layer := range s.layers {
				if i >= len(layer.values) || math.IsNaN(layer.values[i]) {
					continue
				}

				top := bottom + layer.values[i]
				pts := []vg.Point{
					{X: x0, Y: trY(bottom)},
					{X: x0, Y: trY(top)},
					{X: x1, Y: trY(top)},
					{X: x1, Y: trY(bottom)},
				}
				c.FillPolygon(layer.fill, c.ClipPolygonXY(pts))

				bottom = top
			}
		}
	}
}

func (b *stackedBars) DataRange() (xmin, xmax, ymin, ymax float64) {
	if len(b.positions) == 0 {
		return 0, 1, 0, 1
	}

	xmin, xmax = b.positions[0]-0.5, b.positions[len(b.positions)-1]+0.5

	for _, s := range b.stacks {
		for i := range b.positions {
			var total float64

			for _, layer := range s.layers {
				if i < len(layer.values) && !math.IsNaN(layer.values[i]) {
					total += layer.values[i]
				}
			}

			ymax = max(ymax, total)
		}
	}

	if ymax == 0 {
		ymax = 1
	}

	return xmin, xmax, 0, ymax
}
