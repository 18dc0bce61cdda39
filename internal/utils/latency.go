package utils

import "sort"

// SampleSet accumulates latency samples in milliseconds and answers percentile queries.
// When maxSize is positive the oldest samples are dropped to bound memory.
type SampleSet struct {
	samples []float64
	maxSize int
}

// NewSampleSet creates a set storing up to maxSize samples; zero or negative means unbounded.
func NewSampleSet(maxSize int) *SampleSet {
	return &SampleSet{maxSize: maxSize}
}

// Observe records a new sample.
func (s *SampleSet) Observe(v float64) {
	s.samples = append(s.samples, v)
	if s.maxSize > 0 && len(s.samples) > s.maxSize {
		copy(s.samples[0:], s.samples[1:])
		s.samples = s.samples[:s.maxSize]
	}
}

// Quantile returns the sample at rank int(len*q) of the sorted samples, clamped to the last
// element. Returns zero if no samples.
func (s *SampleSet) Quantile(q float64) float64 {
	if len(s.samples) == 0 {
		return 0
	}
	sorted := append([]float64(nil), s.samples...)
	sort.Float64s(sorted)

	index := int(float64(len(sorted)) * q)
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// Count returns number of samples recorded.
func (s *SampleSet) Count() int {
	return len(s.samples)
}
