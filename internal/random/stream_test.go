package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamDeterministic(t *testing.T) {
	a := New(42)
	b := New(42)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.Float64(), b.Float64())
	}
	assert.Equal(t, a.HexID("tr", 12), b.HexID("tr", 12))
}

func TestIntRangeInclusive(t *testing.T) {
	s := New(1)
	seenLow, seenHigh := false, false
	for i := 0; i < 2000; i++ {
		v := s.IntRange(1, 3)
		require.GreaterOrEqual(t, v, 1)
		require.LessOrEqual(t, v, 3)
		seenLow = seenLow || v == 1
		seenHigh = seenHigh || v == 3
	}
	assert.True(t, seenLow && seenHigh, "expected both bounds to be reachable")
	assert.Equal(t, 5, s.IntRange(5, 5))
}

func TestWeightedChoice(t *testing.T) {
	s := New(3)
	counts := map[string]int{}
	weights := []Weighted{{Key: "a", Weight: 0.9}, {Key: "b", Weight: 0.1}, {Key: "c", Weight: -1}}
	for i := 0; i < 5000; i++ {
		key, err := s.WeightedChoice(weights)
		require.NoError(t, err)
		counts[key]++
	}
	assert.Zero(t, counts["c"])
	assert.Greater(t, counts["a"], counts["b"]*5)

	_, err := s.WeightedChoice([]Weighted{{Key: "x", Weight: 0}})
	assert.Error(t, err)
}

func TestPickSkipsZeroWeights(t *testing.T) {
	weights := []Weighted{{Key: "zero", Weight: 0}, {Key: "neg", Weight: -2}, {Key: "a", Weight: 1}, {Key: "b", Weight: 1}}
	assert.Equal(t, "a", pick(weights, 0))
	assert.Equal(t, "a", pick(weights, 0.999))
	assert.Equal(t, "b", pick(weights, 1))
	assert.Equal(t, "b", pick(weights, 2))
}

func TestHexIDShape(t *testing.T) {
	id := New(9).HexID("sp", 12)
	require.Len(t, id, 14)
	assert.Regexp(t, `^sp[0-9a-f]{12}$`, id)
}

func TestReadFillsBuffer(t *testing.T) {
	buf := make([]byte, 16)
	n, err := New(5).Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 16, n)
	assert.NotEqual(t, make([]byte, 16), buf)
}
