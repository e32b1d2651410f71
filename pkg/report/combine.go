package report

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/Sumatoshi-tech/bubblestat/pkg/cohort"
	"github.com/Sumatoshi-tech/bubblestat/pkg/dataset"
)

// Mode selects how the mildly and severely addicted cohorts are folded
// into the combined Addicted cohort.
type Mode string

// Combine modes.
const (
	// ModeWeighted averages by cohort-month user count. Cells without a
	// known count fall back to equal weights.
	ModeWeighted Mode = "weighted"
	// ModeMean averages the two cohort values with equal weight.
	ModeMean Mode = "mean"
	// ModeSum adds the two cohort values; a missing side counts as zero.
	ModeSum Mode = "sum"
)

// ErrUnknownMode is returned for an unsupported combine mode.
var ErrUnknownMode = errors.New("unknown combine mode")

// ParseMode validates a combine mode name.
func ParseMode(name string) (Mode, error) {
	switch m := Mode(name); m {
	case ModeWeighted, ModeMean, ModeSum:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
}

// Combine returns the Non-Addicted points unchanged plus one Addicted point
// per month in which either addicted cohort was observed.
func Combine(points []Point, mode Mode) ([]Point, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}

	var out []Point

	addicted := make(map[int][]Point)

	for _, p := range points {
		switch {
		case p.Group == cohort.NonAddicted:
			out = append(out, p)
		case p.Group.IsAddicted():
			addicted[p.Month] = append(addicted[p.Month], p)
		}
	}

	for month, parts := range addicted {
		out = append(out, fold(month, parts, mode))
	}

	slices.SortFunc(out, func(a, b Point) int {
		return cmp.Or(cmp.Compare(a.Month, b.Month), cmp.Compare(a.Group, b.Group))
	})

	return out, nil
}

func fold(month int, parts []Point, mode Mode) Point {
	combined := Point{Month: month, Group: cohort.Addicted}

	values := make([]float64, len(parts))
	weights := make([]float64, len(parts))

	var total float64

	for i, p := range parts {
		weights[i] = p.Weight
		total += p.Weight
	}

	combined.Weight = total

	if mode != ModeWeighted || total == 0 {
		weights = nil
	}

	for level := range dataset.NumLevels {
		for i, p := range parts {
			values[i] = p.Values[level]
		}

		if mode == ModeSum {
			combined.Values[level] = floats.Sum(values)

			continue
		}

		combined.Values[level] = stat.Mean(values, weights)
	}

	return combined
}
