// Package linkage emits support calls for transaction facts and corrupts a bounded share of
// their transaction references with closed-loop noise allocation.
package linkage

import (
	"fmt"
	"math"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
)

// Target is a noise rate with its tolerance band, all as fractions.
type Target struct {
	Rate float64 `yaml:"rate"`
	Min  float64 `yaml:"min"`
	Max  float64 `yaml:"max"`
}

// Validate rejects bands that do not contain their rate.
func (t Target) Validate() error {
	if t.Min < 0 || t.Max > 1 || t.Min > t.Rate || t.Rate > t.Max {
		return fmt.Errorf("need 0 <= min <= rate <= max <= 1, got min=%v rate=%v max=%v", t.Min, t.Rate, t.Max)
	}
	return nil
}

// desired is the count that should exist once denominator items have been seen.
func (t Target) desired(denominator int) int {
	d := float64(denominator)
	floor := int(math.Floor(t.Min * d))
	ceil := int(math.Floor(t.Max * d))
	want := int(math.Floor(t.Rate * d))
	return min(max(want, floor), ceil)
}

// NoiseTargets configures every noise category.
type NoiseTargets struct {
	Missing       Target `yaml:"missing"`
	Fabricated    Target `yaml:"fabricated"`
	WrongCustomer Target `yaml:"wrongCustomer"`
}

// DefaultNoiseTargets are the rates the corpus is tuned for.
var DefaultNoiseTargets = NoiseTargets{
	Missing:       Target{Rate: 0.027, Min: 0.020, Max: 0.035},
	Fabricated:    Target{Rate: 0.0015, Min: 0.001, Max: 0.002},
	WrongCustomer: Target{Rate: 0.006, Min: 0.005, Max: 0.007},
}

// Validate checks each category.
func (n NoiseTargets) Validate() error {
	checks := []struct {
		name   string
		target Target
	}{
		{"missing", n.Missing},
		{"fabricated", n.Fabricated},
		{"wrongCustomer", n.WrongCustomer},
	}
	for _, c := range checks {
		if err := c.target.Validate(); err != nil {
			return fmt.Errorf("noise target %s: %w", c.name, err)
		}
	}
	return nil
}

// Counts are the running totals the allocator steers by.
type Counts struct {
	Rows          int
	NonEmptyRefs  int
	Clean         int
	Missing       int
	Fabricated    int
	WrongCustomer int
}

// Of returns the total for one category.
func (c Counts) Of(nt models.NoiseType) int {
	switch nt {
	case models.NoiseClean:
		return c.Clean
	case models.NoiseMissing:
		return c.Missing
	case models.NoiseFabricated:
		return c.Fabricated
	case models.NoiseWrongCustomer:
		return c.WrongCustomer
	}
	return 0
}

// Allocate picks the category for the next call given the counts before it. Categories are
// tried in priority order (missing, fabricated, wrong customer); each is chosen when its
// running count is below the count its target demands with this call included in the
// category's denominator:
//
//	missing:        every call
//	fabricated:     calls carrying a reference
//	wrong customer: calls that would otherwise join correctly
func Allocate(counts Counts, targets NoiseTargets) models.NoiseType {
	if counts.Missing < targets.Missing.desired(counts.Rows+1) {
		return models.NoiseMissing
	}
	if counts.Fabricated < targets.Fabricated.desired(counts.NonEmptyRefs+1) {
		return models.NoiseFabricated
	}
	if counts.WrongCustomer < targets.WrongCustomer.desired(counts.Clean+counts.WrongCustomer+1) {
		return models.NoiseWrongCustomer
	}
	return models.NoiseClean
}
