package bootstrap

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/bubblestat/pkg/cohort"
)

// Sentinel estimator errors.
var (
	ErrEmptyPopulation = errors.New("empty resampling population")
	ErrSampleSize      = errors.New("sample size must be positive")
	ErrResamples       = errors.New("resample count must be positive")
)

// EmptyCohortError reports a cohort with no rows. Month is zero when the
// cohort is empty over its whole history.
type EmptyCohortError struct {
	Group cohort.Group
	Month int
}

func (e *EmptyCohortError) Error() string {
	if e.Month == 0 {
		return fmt.Sprintf("cohort %s has no rows", e.Group.DisplayName())
	}

	return fmt.Sprintf("cohort %s has no rows in month %d", e.Group.DisplayName(), e.Month)
}
