package dataset

import (
	"errors"
	"fmt"
	"io"

	"github.com/Sumatoshi-tech/bubblestat/pkg/cohort"
)

// Column names and accepted aliases.
const (
	ColUserID    = "user_id"
	ColWindowID  = "window_id"
	ColMonth     = "month_chronological_order"
	ColMonthAlt  = "month"
	ColLabelCode = "preds_3_label_criteria"
	ColGroup     = "addiction_group"
	ColUserCount = "user_count"

	rawCoverageFmt        = "level_%d_coverage"
	normCoverageFmt       = "level_%d_coverage_norm"
	normalizedCoverageFmt = "level_%d_coverage_normalized"
	proportionFmt         = "level_%d_filter_bubble"
	stdDevFmt             = "level_%d_filter_bubble_std"
	lowFmt                = "level_%d_filter_bubble_low"
	highFmt               = "level_%d_filter_bubble_high"

	ColSampleSize = "sample_size"
	ColResamples  = "resamples"
)

var labelCodeAliases = []string{ColLabelCode, "addiction_label", "label"}

type userWindow struct {
	user  string
	month int
}

// LoadMetrics reads the behavioral-metrics table. The 0-based window_id is
// converted to a 1-based month index.
func LoadMetrics(path string) (out []UserMonthRecord, err error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}

	defer func() { err = errors.Join(err, src.close()) }()

	userIdx, err := src.column(ColUserID)
	if err != nil {
		return nil, err
	}

	windowIdx, err := src.column(ColWindowID)
	if err != nil {
		return nil, err
	}

	rawIdx, rawNames, err := src.levelColumns(rawCoverageFmt)
	if err != nil {
		return nil, err
	}

	normIdx, normNames, err := src.levelColumns(normCoverageFmt)
	if err != nil {
		return nil, err
	}

	seen := make(map[userWindow]int)

	for {
		record, nextErr := src.next()
		if errors.Is(nextErr, io.EOF) {
			break
		}

		if nextErr != nil {
			return nil, nextErr
		}

		var row UserMonthRecord

		if row.UserID, err = src.text(record, userIdx, ColUserID); err != nil {
			return nil, err
		}

		if row.WindowID, err = src.integer(record, windowIdx, ColWindowID); err != nil {
			return nil, err
		}

		row.Month = row.WindowID + 1

		if row.Raw, err = src.levels(record, rawIdx, rawNames); err != nil {
			return nil, err
		}

		if row.Norm, err = src.levels(record, normIdx, normNames); err != nil {
			return nil, err
		}

		if err = src.validate(row); err != nil {
			return nil, err
		}

		if err = checkUnique(src, seen, userWindow{row.UserID, row.Month}); err != nil {
			return nil, err
		}

		out = append(out, row)
	}

	if len(out) == 0 {
		return nil, &LoadError{Path: path, Err: ErrEmptyTable}
	}

	return out, nil
}

// LoadLabels reads the classification table. codeColumn overrides the
// severity code column name; empty selects the default and its aliases.
func LoadLabels(path, codeColumn string) (out []AddictionLabel, err error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}

	defer func() { err = errors.Join(err, src.close()) }()

	userIdx, err := src.column(ColUserID)
	if err != nil {
		return nil, err
	}

	monthIdx, err := src.column(ColMonth, ColMonthAlt)
	if err != nil {
		return nil, err
	}

	codeAliases := labelCodeAliases
	if codeColumn != "" {
		codeAliases = []string{codeColumn}
	}

	codeIdx, err := src.column(codeAliases...)
	if err != nil {
		return nil, err
	}

	seen := make(map[userWindow]int)

	for {
		record, nextErr := src.next()
		if errors.Is(nextErr, io.EOF) {
			break
		}

		if nextErr != nil {
			return nil, nextErr
		}

		var row AddictionLabel

		if row.UserID, err = src.text(record, userIdx, ColUserID); err != nil {
			return nil, err
		}

		if row.Month, err = src.integer(record, monthIdx, ColMonth); err != nil {
			return nil, err
		}

		if row.Code, err = src.integer(record, codeIdx, codeAliases[0]); err != nil {
			return nil, err
		}

		if err = src.validate(row); err != nil {
			return nil, err
		}

		if err = checkUnique(src, seen, userWindow{row.UserID, row.Month}); err != nil {
			return nil, err
		}

		out = append(out, row)
	}

	if len(out) == 0 {
		return nil, &LoadError{Path: path, Err: ErrEmptyTable}
	}

	return out, nil
}

// LoadCoverage reads a precomputed bootstrap-normalized coverage table.
func LoadCoverage(path string) (out []CoverageRow, err error) {
	src, err := openSource(path)
	if err != nil {
		return nil, err
	}

	defer func() { err = errors.Join(err, src.close()) }()

	monthIdx, err := src.column(ColMonth, ColMonthAlt)
	if err != nil {
		return nil, err
	}

	groupIdx, err := src.column(ColGroup)
	if err != nil {
		return nil, err
	}

	valueIdx, valueNames, err := src.levelColumns(normalizedCoverageFmt)
	if err != nil {
		return nil, err
	}

	usersIdx := src.optionalColumn(ColUserCount)
	seen := make(map[groupMonth]int)

	for {
		record, nextErr := src.next()
		if errors.Is(nextErr, io.EOF) {
			break
		}

		if nextErr != nil {
			return nil, nextErr
		}

		var row CoverageRow

		if row.Month, err = src.integer(record, monthIdx, ColMonth); err != nil {
			return nil, err
		}

		if row.Group, err = src.group(record, groupIdx); err != nil {
			return nil, err
		}

		if row.Values, err = src.levels(record, valueIdx, valueNames); err != nil {
			return nil, err
		}

		if usersIdx >= 0 {
			if row.Users, err = src.integer(record, usersIdx, ColUserCount); err != nil {
				return nil, err
			}
		}

		if err = src.validate(row); err != nil {
			return nil, err
		}

		if err = checkUnique(src, seen, groupMonth{row.Group, row.Month}); err != nil {
			return nil, err
		}

		out = append(out, row)
	}

	if len(out) == 0 {
		return nil, &LoadError{Path: path, Err: ErrEmptyTable}
	}

	return out, nil
}

type groupMonth struct {
	group cohort.Group
	month int
}

func (s *source) group(record []string, idx int) (cohort.Group, error) {
	raw, err := s.text(record, idx, ColGroup)
	if err != nil {
		return 0, err
	}

	g, err := cohort.Parse(raw)
	if err != nil {
		return 0, s.cellError(ColGroup, fmt.Errorf("%w: %w", ErrInvalidValue, err))
	}

	return g, nil
}

func checkUnique[K comparable](src *source, seen map[K]int, key K) error {
	if first, dup := seen[key]; dup {
		return &LoadError{
			Path: src.path,
			Line: src.line,
			Err:  fmt.Errorf("%w: %v first seen on line %d", ErrDuplicateKey, key, first),
		}
	}

	seen[key] = src.line

	return nil
}
