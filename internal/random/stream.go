// Package random provides the seeded pseudorandom stream every generator draws from.
package random

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

const hexDigits = "0123456789abcdef"

// Weighted is one entry of an ordered categorical distribution.
type Weighted struct {
	Key    string
	Weight float64
}

// Stream is a deterministic pseudorandom source. Two streams built from the same seed
// yield identical sequences. A Stream is not safe for concurrent use.
type Stream struct {
	rng *rand.Rand
}

// New returns a Stream seeded with seed.
func New(seed int64) *Stream {
	s := uint64(seed)
	return &Stream{rng: rand.New(rand.NewPCG(s, s^0x9e3779b97f4a7c15))}
}

// Float64 returns a uniform value in [0,1).
func (s *Stream) Float64() float64 {
	return s.rng.Float64()
}

// Uniform returns a uniform value in [a,b).
func (s *Stream) Uniform(a, b float64) float64 {
	return a + (b-a)*s.rng.Float64()
}

// IntRange returns a uniform integer in [a,b], both ends inclusive.
func (s *Stream) IntRange(a, b int) int {
	if b <= a {
		return a
	}
	return a + s.rng.IntN(b-a+1)
}

// WeightedChoice picks a key proportionally to its weight. Keys with a weight of zero or less
// are never chosen.
// Iteration follows slice order so results are reproducible.
func (s *Stream) WeightedChoice(weights []Weighted) (string, error) {
	total := 0.0
	for _, w := range weights {
		total += max(w.Weight, 0)
	}
	if total <= 0 {
		return "", fmt.Errorf("weights must sum to > 0")
	}
	return pick(weights, s.Uniform(0, total)), nil
}

// pick returns the key whose cumulative weight interval contains r, for r in [0,total).
func pick(weights []Weighted, r float64) string {
	upto := 0.0
	last := ""
	for _, w := range weights {
		if w.Weight <= 0 {
			continue
		}
		upto += w.Weight
		last = w.Key
		if r < upto {
			return w.Key
		}
	}
	return last
}

// HexID returns prefix followed by length random lowercase hex digits.
func (s *Stream) HexID(prefix string, length int) string {
	var b strings.Builder
	b.Grow(len(prefix) + length)
	b.WriteString(prefix)
	for i := 0; i < length; i++ {
		b.WriteByte(hexDigits[s.rng.IntN(len(hexDigits))])
	}
	return b.String()
}

// Read fills p with pseudorandom bytes. It never fails, which lets a Stream seed
// identifier generators that expect an io.Reader.
func (s *Stream) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(s.rng.Uint32())
	}
	return len(p), nil
}

// Choice returns a uniformly chosen element of items. It panics on an empty slice,
// matching indexing semantics.
func Choice[T any](s *Stream, items []T) T {
	return items[s.rng.IntN(len(items))]
}
