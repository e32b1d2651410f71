// Package cohort defines the closed set of addiction groups users are
// classified into, and the mapping from classifier severity codes.
package cohort

import (
	"errors"
	"fmt"
	"strings"
)

// Group is an addiction cohort.
type Group int

// Classifier cohorts, in canonical presentation order. Addicted is the
// presentation-only union of SoftAddicted and HardAddicted.
const (
	NonAddicted Group = iota
	SoftAddicted
	HardAddicted
	Addicted
)

// Severity codes emitted by the external classifier.
const (
	CodeNonAddicted  = 0
	CodeSoftAddicted = 1
	CodeHardAddicted = 2
)

// ErrUnknownGroup is returned when a group name cannot be parsed.
var ErrUnknownGroup = errors.New("unknown addiction group")

// UnmappedLabelError reports a severity code outside the classifier domain.
type UnmappedLabelError struct {
	Code int
}

func (e *UnmappedLabelError) Error() string {
	return fmt.Sprintf("unmapped addiction label code %d (want %d, %d or %d)",
		e.Code, CodeNonAddicted, CodeSoftAddicted, CodeHardAddicted)
}

// FromCode maps a classifier severity code to its cohort.
// There is no default: codes outside {0, 1, 2} yield *UnmappedLabelError.
func FromCode(code int) (Group, error) {
	switch code {
	case CodeNonAddicted:
		return NonAddicted, nil
	case CodeSoftAddicted:
		return SoftAddicted, nil
	case CodeHardAddicted:
		return HardAddicted, nil
	default:
		return 0, &UnmappedLabelError{Code: code}
	}
}

// Classified returns the three cohorts produced by the classifier.
func Classified() []Group {
	return []Group{NonAddicted, SoftAddicted, HardAddicted}
}

// Combined returns the cohorts of the binary Non-Addicted vs Addicted view.
func Combined() []Group {
	return []Group{NonAddicted, Addicted}
}

// IsAddicted reports whether g folds into the combined Addicted cohort.
func (g Group) IsAddicted() bool {
	return g == SoftAddicted || g == HardAddicted || g == Addicted
}

// String returns the canonical label used in data files.
func (g Group) String() string {
	switch g {
	case NonAddicted:
		return "Non-Addicted"
	case SoftAddicted:
		return "Soft Addicted"
	case HardAddicted:
		return "Hard Addicted"
	case Addicted:
		return "Addicted"
	default:
		return fmt.Sprintf("Group(%d)", int(g))
	}
}

// DisplayName returns the label used on charts and reports.
func (g Group) DisplayName() string {
	switch g {
	case SoftAddicted:
		return "Mildly Addicted"
	case HardAddicted:
		return "Severely Addicted"
	default:
		return g.String()
	}
}

// Parse accepts either the canonical or the display name of a group,
// case-insensitively.
func Parse(name string) (Group, error) {
	norm := strings.ToLower(strings.TrimSpace(name))

	for _, g := range []Group{NonAddicted, SoftAddicted, HardAddicted, Addicted} {
		if norm == strings.ToLower(g.String()) || norm == strings.ToLower(g.DisplayName()) {
			return g, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
}

// Set is a small bitset of groups.
type Set uint8

// Add returns s with g included.
func (s Set) Add(g Group) Set {
	return s | 1<<uint(g)
}

// Has reports whether g is in s.
func (s Set) Has(g Group) bool {
	return s&(1<<uint(g)) != 0
}

// Members returns the classified cohorts in s, in canonical order.
func (s Set) Members() []Group {
	var out []Group

	for _, g := range Classified() {
		if s.Has(g) {
			out = append(out, g)
		}
	}

	return out
}
