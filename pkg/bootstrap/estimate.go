// Package bootstrap estimates, per cohort and month, the share of users in
// a filter bubble at each level of the content hierarchy.
//
// A user-month is in a level-k bubble when its raw level-k coverage falls
// below the cohort's level-k threshold and no shallower level already
// claimed it. Shares are estimated by resampling each cohort-month with
// replacement at a common sample size, so cohorts of different sizes are
// compared on equal footing.
package bootstrap

import (
	"fmt"
	"slices"

	"github.com/aclements/go-moremath/stats"

	algstats "github.com/Sumatoshi-tech/bubblestat/pkg/alg/stats"
	"github.com/Sumatoshi-tech/bubblestat/pkg/dataset"
)

// Bucket is the filter-bubble level a row falls into.
type Bucket int

// NoBucket marks a row whose coverage is at or above every threshold.
const NoBucket Bucket = -1

// Buckets for the three hierarchy levels.
const (
	Level1 Bucket = iota
	Level2
	Level3
)

// DefaultConfidence is the coverage of the reported resample interval.
const DefaultConfidence = 0.95

// Classify assigns raw coverage to the shallowest level whose value is
// strictly below its threshold. Buckets are mutually exclusive.
func Classify(raw, thresholds dataset.Coverage) Bucket {
	for level := range dataset.NumLevels {
		if raw[level] < thresholds[level] {
			return Bucket(level)
		}
	}

	return NoBucket
}

// Quantiles returns, per level, the q-quantile of raw coverage over rows.
func Quantiles(rows []dataset.Coverage, q float64) (dataset.Coverage, error) {
	var out dataset.Coverage

	if len(rows) == 0 {
		return out, ErrEmptyPopulation
	}

	column := make([]float64, len(rows))

	for level := range dataset.NumLevels {
		for i, r := range rows {
			column[i] = r[level]
		}

		v, err := algstats.Quantile(column, q)
		if err != nil {
			return out, fmt.Errorf("level %d: %w", level+1, err)
		}

		out[level] = v
	}

	return out, nil
}

// Result is the estimate for one population.
type Result struct {
	// Proportion is the mean over resamples of bucket count / sample size.
	Proportion dataset.Coverage
	// StdDev is the standard deviation of the per-resample proportions.
	StdDev dataset.Coverage
	// Low and High bound the central confidence interval of the
	// per-resample proportions, using Hyndman-Fan type 8 quantiles.
	Low        dataset.Coverage
	High       dataset.Coverage
	SampleSize int
	Resamples  int
}

// Estimate draws resamples samples of sampleSize rows with replacement from
// raw and returns the bucket proportions. It is a pure function of its
// arguments and the sampler state.
func Estimate(raw []dataset.Coverage, thresholds dataset.Coverage, sampleSize, resamples int,
	sampler Sampler, confidence float64,
) (Result, error) {
	switch {
	case len(raw) == 0:
		return Result{}, ErrEmptyPopulation
	case sampleSize < 1:
		return Result{}, fmt.Errorf("%w: %d", ErrSampleSize, sampleSize)
	case resamples < 1:
		return Result{}, fmt.Errorf("%w: %d", ErrResamples, resamples)
	}

	buckets := make([]Bucket, len(raw))
	for i, r := range raw {
		buckets[i] = Classify(r, thresholds)
	}

	var perResample [dataset.NumLevels][]float64
	for level := range dataset.NumLevels {
		perResample[level] = make([]float64, resamples)
	}

	for b := range resamples {
		var counts [dataset.NumLevels]int

		for range sampleSize {
			if bucket := buckets[sampler.Index(len(raw))]; bucket != NoBucket {
				counts[bucket]++
			}
		}

		for level, c := range counts {
			perResample[level][b] = float64(c) / float64(sampleSize)
		}
	}

	res := Result{SampleSize: sampleSize, Resamples: resamples}
	tail := (1 - confidence) / 2

	for level := range dataset.NumLevels {
		xs := perResample[level]
		res.Proportion[level] = algstats.Mean(xs)

		if resamples < 2 {
			res.Low[level] = res.Proportion[level]
			res.High[level] = res.Proportion[level]

			continue
		}

		slices.Sort(xs)
		sample := stats.Sample{Xs: xs, Sorted: true}
		res.StdDev[level] = sample.StdDev()
		res.Low[level] = sample.Quantile(tail)
		res.High[level] = sample.Quantile(1 - tail)
	}

	return res, nil
}
