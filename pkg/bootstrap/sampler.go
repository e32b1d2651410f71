package bootstrap

import (
	"math/rand/v2"

	"github.com/Sumatoshi-tech/bubblestat/pkg/cohort"
)

// Sampler picks row indices for resampling with replacement.
type Sampler interface {
	// Index returns an index in [0, n). n is always positive.
	Index(n int) int
}

// RandomSampler draws uniformly from a PCG stream.
type RandomSampler struct {
	rng *rand.Rand
}

// NewRandomSampler returns a sampler whose stream is derived from seed and
// the (cohort, month) cell, so draws for one cell do not depend on how many
// cells were processed before it.
func NewRandomSampler(seed uint64, group cohort.Group, month int) *RandomSampler {
	stream := uint64(group)<<32 | uint64(uint32(month))

	//nolint:gosec // statistical resampling, reproducibility is the requirement.
	return &RandomSampler{rng: rand.New(rand.NewPCG(seed, stream))}
}

// Index implements Sampler.
func (s *RandomSampler) Index(n int) int {
	return s.rng.IntN(n)
}

// SequentialSampler cycles through the population in order. A single
// resample of the population size visits every row exactly once, which
// yields the exact bucket fractions.
type SequentialSampler struct {
	next int
}

// Index implements Sampler.
func (s *SequentialSampler) Index(n int) int {
	idx := s.next % n
	s.next++

	return idx
}

// SamplerFactory builds the sampler for one (cohort, month) cell.
type SamplerFactory func(group cohort.Group, month int) Sampler

// Seeded returns a factory of RandomSamplers sharing a base seed.
func Seeded(seed uint64) SamplerFactory {
	return func(group cohort.Group, month int) Sampler {
		return NewRandomSampler(seed, group, month)
	}
}

// Sequential returns a factory of fresh SequentialSamplers.
func Sequential() SamplerFactory {
	return func(cohort.Group, int) Sampler {
		return &SequentialSampler{}
	}
}
