// Package merge joins the behavioral-metrics table with the classification
// table and assigns each joined row its addiction cohort.
package merge

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/bubblestat/pkg/cohort"
	"github.com/Sumatoshi-tech/bubblestat/pkg/dataset"
)

// ErrJoinKeyMismatch is returned when the two tables share no (user, month) key.
var ErrJoinKeyMismatch = errors.New("no overlapping (user_id, month) keys between metrics and labels")

// Record is one joined (user, month) observation.
type Record struct {
	UserID   string
	Month    int
	WindowID int
	Raw      dataset.Coverage
	Norm     dataset.Coverage
	Code     int
	Group    cohort.Group
}

// Result is the output of Merge.
type Result struct {
	Records []Record
	// DroppedMetrics counts metric rows with no matching label.
	DroppedMetrics int
	// DroppedLabels counts label rows with no matching metric row.
	DroppedLabels int
}

type key struct {
	user  string
	month int
}

type labeled struct {
	code  int
	group cohort.Group
}

// Merge inner-joins metrics and labels on (user, month). Output follows the
// order of metrics. Both inputs are assumed key-unique, which the loaders
// guarantee. Every label code is mapped, matched or not.
func Merge(metrics []dataset.UserMonthRecord, labels []dataset.AddictionLabel) (*Result, error) {
	byKey := make(map[key]labeled, len(labels))

	for _, l := range labels {
		group, err := cohort.FromCode(l.Code)
		if err != nil {
			return nil, fmt.Errorf("user %s month %d: %w", l.UserID, l.Month, err)
		}

		byKey[key{l.UserID, l.Month}] = labeled{code: l.Code, group: group}
	}

	res := &Result{Records: make([]Record, 0, min(len(metrics), len(labels)))}
	matched := 0

	for _, m := range metrics {
		l, ok := byKey[key{m.UserID, m.Month}]
		if !ok {
			res.DroppedMetrics++

			continue
		}

		matched++

		res.Records = append(res.Records, Record{
			UserID:   m.UserID,
			Month:    m.Month,
			WindowID: m.WindowID,
			Raw:      m.Raw,
			Norm:     m.Norm,
			Code:     l.code,
			Group:    l.group,
		})
	}

	if len(res.Records) == 0 {
		return nil, fmt.Errorf("%w (%d metric rows, %d label rows)", ErrJoinKeyMismatch, len(metrics), len(labels))
	}

	res.DroppedLabels = len(labels) - matched

	return res, nil
}

// LabelHistory returns, per user, every cohort the user was ever labeled
// with across the whole classification table.
func LabelHistory(labels []dataset.AddictionLabel) (map[string]cohort.Set, error) {
	out := make(map[string]cohort.Set)

	for _, l := range labels {
		group, err := cohort.FromCode(l.Code)
		if err != nil {
			return nil, fmt.Errorf("user %s month %d: %w", l.UserID, l.Month, err)
		}

		out[l.UserID] = out[l.UserID].Add(group)
	}

	return out, nil
}
