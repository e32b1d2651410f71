package chart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Sumatoshi-tech/bubblestat/pkg/plotpage"
)

// Sink names.
const (
	SinkFile = "file"
	SinkHTML = "html"
	SinkBoth = "both"
)

// ReportPage is the file name of the interactive page.
const ReportPage = "report.html"

// ErrUnknownSink is returned for an unsupported sink name.
var ErrUnknownSink = errors.New("unknown output sink")

// Artifact is a file a sink wrote.
type Artifact struct {
	Sink  string
	Path  string
	Bytes int64
}

// Sink receives rendered figures.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// Write renders one figure.
	Write(ctx context.Context, fig Figure) error
	// Close flushes anything the sink buffers.
	Close() error
	// Discard drops anything the sink buffers without writing it.
	Discard()
	// Artifacts lists the files written so far.
	Artifacts() []Artifact
}

// Render writes every non-empty figure to sink and closes it. Figures
// written before a failure stay on disk; buffered output such as the HTML
// page is discarded. It returns the number of figures written.
func Render(ctx context.Context, sink Sink, figs []Figure) (written int, err error) {
	defer func() {
		if err != nil {
			sink.Discard()

			return
		}

		err = sink.Close()
	}()

	for _, fig := range figs {
		if err = ctx.Err(); err != nil {
			return written, err
		}

		if fig.Empty() {
			continue
		}

		if err = sink.Write(ctx, fig); err != nil {
			return written, fmt.Errorf("%s sink: %w", sink.Name(), err)
		}

		written++
	}

	return written, nil
}

// FileSink writes each figure as its own vector document.
type FileSink struct {
	dir       string
	format    Format
	artifacts []Artifact
}

// NewFileSink creates dir if needed and returns a sink writing into it.
func NewFileSink(dir string, format Format) (*FileSink, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &FileSink{dir: dir, format: format}, nil
}

// Name implements Sink.
func (s *FileSink) Name() string { return SinkFile }

// Write implements Sink. The document appears under its final name only
// once fully written.
func (s *FileSink) Write(_ context.Context, fig Figure) error {
	path := filepath.Join(s.dir, fig.Name+"."+string(s.format))

	n, err := writeAtomic(path, func(w io.Writer) error {
		return WriteVector(w, fig, s.format)
	})
	if err != nil {
		return err
	}

	s.artifacts = append(s.artifacts, Artifact{Sink: SinkFile, Path: path, Bytes: n})

	return nil
}

// Close implements Sink.
func (s *FileSink) Close() error { return nil }

// Discard implements Sink. Written documents are kept.
func (s *FileSink) Discard() {}

// Artifacts implements Sink.
func (s *FileSink) Artifacts() []Artifact { return s.artifacts }

// HTMLSink collects interactive charts into one page written on Close.
type HTMLSink struct {
	path      string
	page      *plotpage.Page
	opts      *plotpage.ChartOpts
	artifacts []Artifact
	closed    bool
}

// NewHTMLSink returns a sink writing the page to dir/report.html.
func NewHTMLSink(dir, title string, theme plotpage.Theme) (*HTMLSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &HTMLSink{
		path: filepath.Join(dir, ReportPage),
		page: plotpage.NewPage(title),
		opts: plotpage.NewChartOpts(theme),
	}, nil
}

// Name implements Sink.
func (s *HTMLSink) Name() string { return SinkHTML }

// Write implements Sink.
func (s *HTMLSink) Write(_ context.Context, fig Figure) error {
	s.page.Add(Interactive(fig, s.opts))

	return nil
}

// Close implements Sink. An empty page is not written.
func (s *HTMLSink) Close() error {
	if s.closed || s.page.Len() == 0 {
		return nil
	}

	s.closed = true

	n, err := writeAtomic(s.path, s.page.Render)
	if err != nil {
		return err
	}

	s.artifacts = append(s.artifacts, Artifact{Sink: SinkHTML, Path: s.path, Bytes: n})

	return nil
}

// Discard implements Sink. The page is never written.
func (s *HTMLSink) Discard() {
	s.closed = true
}

// Artifacts implements Sink.
func (s *HTMLSink) Artifacts() []Artifact { return s.artifacts }

// MultiSink fans figures out to several sinks.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink combines sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Name implements Sink.
func (m *MultiSink) Name() string { return SinkBoth }

// Write implements Sink.
func (m *MultiSink) Write(ctx context.Context, fig Figure) error {
	for _, s := range m.sinks {
		if err := s.Write(ctx, fig); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}

	return nil
}

// Close implements Sink.
func (m *MultiSink) Close() error {
	var errs []error

	for _, s := range m.sinks {
		errs = append(errs, s.Close())
	}

	return errors.Join(errs...)
}

// Discard implements Sink.
func (m *MultiSink) Discard() {
	for _, s := range m.sinks {
		s.Discard()
	}
}

// Artifacts implements Sink.
func (m *MultiSink) Artifacts() []Artifact {
	var out []Artifact

	for _, s := range m.sinks {
		out = append(out, s.Artifacts()...)
	}

	return out
}

// NewSink builds the sink named by kind.
func NewSink(kind, dir string, format Format, title string, theme plotpage.Theme) (Sink, error) {
	switch kind {
	case SinkFile:
		return NewFileSink(dir, format)
	case SinkHTML:
		return NewHTMLSink(dir, title, theme)
	case SinkBoth:
		files, err := NewFileSink(dir, format)
		if err != nil {
			return nil, err
		}

		page, err := NewHTMLSink(dir, title, theme)
		if err != nil {
			return nil, err
		}

		return NewMultiSink(files, page), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSink, kind)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}

// writeAtomic writes through a temporary file in the target directory and
// renames it into place. On failure no file is left at path.
func writeAtomic(path string, write func(io.Writer) error) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp for %s: %w", path, err)
	}

	counter := &countingWriter{w: tmp}
	writeErr := write(counter)
	closeErr := tmp.Close()

	if err = errors.Join(writeErr, closeErr); err != nil {
		_ = os.Remove(tmp.Name())

		return 0, fmt.Errorf("write %s: %w", path, err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())

		return 0, fmt.Errorf("rename %s: %w", path, err)
	}

	return counter.n, nil
}
