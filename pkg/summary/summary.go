// Package summary reports what a run loaded, estimated and wrote.
package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Format selects how a summary is printed.
type Format string

// Summary formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatNone Format = "none"
)

// ErrUnknownFormat is returned for an unsupported summary format.
var ErrUnknownFormat = errors.New("unknown summary format")

// ParseFormat validates a summary format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatText, FormatJSON, FormatYAML, FormatNone:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Rows counts table rows through load and merge.
type Rows struct {
	Metrics        int `json:"metrics"         yaml:"metrics"`
	Labels         int `json:"labels"          yaml:"labels"`
	Merged         int `json:"merged"          yaml:"merged"`
	DroppedMetrics int `json:"dropped_metrics" yaml:"dropped_metrics"`
	DroppedLabels  int `json:"dropped_labels"  yaml:"dropped_labels"`
	Coverage       int `json:"coverage"        yaml:"coverage"`
	Estimates      int `json:"estimates"       yaml:"estimates"`
}

// Cohort describes one classified cohort's population.
type Cohort struct {
	Group      string     `json:"group"      yaml:"group"`
	Users      int        `json:"users"      yaml:"users"`
	Thresholds [3]float64 `json:"thresholds" yaml:"thresholds,flow"`
}

// Estimate is one (month, cohort) filter-bubble estimate.
type Estimate struct {
	Month      int        `json:"month"       yaml:"month"`
	Group      string     `json:"group"       yaml:"group"`
	Proportion [3]float64 `json:"proportion"  yaml:"proportion,flow"`
	Low        [3]float64 `json:"low"         yaml:"low,flow"`
	High       [3]float64 `json:"high"        yaml:"high,flow"`
	Users      int        `json:"users"       yaml:"users"`
}

// Cell names a (month, cohort) the estimator skipped.
type Cell struct {
	Month int    `json:"month" yaml:"month"`
	Group string `json:"group" yaml:"group"`
}

// Artifact is a file the run wrote.
type Artifact struct {
	Sink  string `json:"sink"  yaml:"sink"`
	Path  string `json:"path"  yaml:"path"`
	Bytes int64  `json:"bytes" yaml:"bytes"`
}

// Summary is the outcome of one run.
type Summary struct {
	RunID     string        `json:"run_id"               yaml:"run_id"`
	Command   string        `json:"command"              yaml:"command"`
	Rows      Rows          `json:"rows"                 yaml:"rows"`
	Cohorts   []Cohort      `json:"cohorts,omitempty"    yaml:"cohorts,omitempty"`
	GroupSize int           `json:"group_size,omitempty" yaml:"group_size,omitempty"`
	Resamples int           `json:"resamples,omitempty"  yaml:"resamples,omitempty"`
	Estimates []Estimate    `json:"estimates,omitempty"  yaml:"estimates,omitempty"`
	Skipped   []Cell        `json:"skipped,omitempty"    yaml:"skipped,omitempty"`
	Figures   int           `json:"figures"              yaml:"figures"`
	Artifacts []Artifact    `json:"artifacts,omitempty"  yaml:"artifacts,omitempty"`
	Duration  time.Duration `json:"-"                    yaml:"-"`
	Seconds   float64       `json:"duration_seconds"     yaml:"duration_seconds"`
}

// Options controls printing.
type Options struct {
	Format Format
	Color  bool
}

// Write prints s to w.
func Write(w io.Writer, s *Summary, opts Options) error {
	s.Seconds = s.Duration.Seconds()

	switch opts.Format {
	case FormatNone:
		return nil
	case FormatText, "":
		return writeText(w, s, opts.Color)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}

		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode summary: %w", err)
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, opts.Format)
	}
}
