package dataset

import (
	"errors"
	"fmt"
	"io"
	"strconv"
)

// WriteEstimates exports filter-bubble estimates so a later render run can
// chart them without resampling again.
func WriteEstimates(path string, rows []EstimateRow) (err error) {
	out, err := createSink(path)
	if err != nil {
		return err
	}

	defer func() { err = errors.Join(err, out.close()) }()

	header := []string{ColMonth, ColGroup}
	for _, format := range []string{proportionFmt, stdDevFmt, lowFmt, highFmt} {
		for level := range NumLevels {
			header = append(header, fmt.Sprintf(format, level+1))
		}
	}

	header = append(header, ColSampleSize, ColResamples, ColUserCount)

	if err = out.write(header); err != nil {
		return err
	}

	record := make([]string, 0, len(header))

	for _, row := range rows {
		record = record[:0]
		record = append(record, strconv.Itoa(row.Month), row.Group.String())

		for _, values := range []Coverage{row.Proportion, row.StdDev, row.Low, row.High} {
			for _, v := range values {
				record = append(record, formatFloat(v))
			}
		}

		record = append(record,
			strconv.Itoa(row.SampleSize),
			strconv.Itoa(row.Resamples),
			strconv.Itoa(row.Users),
		)

		if err = out.write(record); err != nil {
			return err
		}
	}

	return nil
}

// LoadEstimates reads a table written by WriteEstimates. Spread columns are
// optional; when absent the interval collapses onto the point estimate.
func LoadEstimates(path string) (out []EstimateRow, err error) {
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

	propIdx, propNames, err := src.levelColumns(proportionFmt)
	if err != nil {
		return nil, err
	}

	stdIdx, stdNames, stdErr := src.levelColumns(stdDevFmt)
	lowIdx, lowNames, lowErr := src.levelColumns(lowFmt)
	highIdx, highNames, highErr := src.levelColumns(highFmt)
	hasSpread := stdErr == nil && lowErr == nil && highErr == nil

	sizeIdx := src.optionalColumn(ColSampleSize)
	resamplesIdx := src.optionalColumn(ColResamples)
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

		row := EstimateRow{SampleSize: 1, Resamples: 1}

		if row.Month, err = src.integer(record, monthIdx, ColMonth); err != nil {
			return nil, err
		}

		if row.Group, err = src.group(record, groupIdx); err != nil {
			return nil, err
		}

		if row.Proportion, err = src.levels(record, propIdx, propNames); err != nil {
			return nil, err
		}

		row.Low, row.High = row.Proportion, row.Proportion

		if hasSpread {
			if row.StdDev, err = src.levels(record, stdIdx, stdNames); err != nil {
				return nil, err
			}

			if row.Low, err = src.levels(record, lowIdx, lowNames); err != nil {
				return nil, err
			}

			if row.High, err = src.levels(record, highIdx, highNames); err != nil {
				return nil, err
			}
		}

		if row.SampleSize, err = optionalInt(src, record, sizeIdx, ColSampleSize, row.SampleSize); err != nil {
			return nil, err
		}

		if row.Resamples, err = optionalInt(src, record, resamplesIdx, ColResamples, row.Resamples); err != nil {
			return nil, err
		}

		if row.Users, err = optionalInt(src, record, usersIdx, ColUserCount, 0); err != nil {
			return nil, err
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

func optionalInt(src *source, record []string, idx int, column string, fallback int) (int, error) {
	if idx < 0 {
		return fallback, nil
	}

	return src.integer(record, idx, column)
}
