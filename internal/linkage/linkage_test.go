package linkage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
)

var horizonStart = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

func apply(c Counts, nt models.NoiseType) Counts {
	c.Rows++
	switch nt {
	case models.NoiseClean:
		c.Clean++
		c.NonEmptyRefs++
	case models.NoiseMissing:
		c.Missing++
	case models.NoiseFabricated:
		c.Fabricated++
		c.NonEmptyRefs++
	case models.NoiseWrongCustomer:
		c.WrongCustomer++
		c.NonEmptyRefs++
	}
	return c
}

func TestAllocateFirstCallIsClean(t *testing.T) {
	assert.Equal(t, models.NoiseClean, Allocate(Counts{}, DefaultNoiseTargets))
}

func TestAllocateConvergesIntoBands(t *testing.T) {
	var c Counts
	for i := 0; i < 100000; i++ {
		prev := c
		c = apply(c, Allocate(c, DefaultNoiseTargets))
		require.GreaterOrEqual(t, c.Missing, prev.Missing)
		require.LessOrEqual(t, c.Missing, int(0.035*float64(c.Rows)))
	}
	assert.GreaterOrEqual(t, c.Missing, 2000)
	assert.LessOrEqual(t, c.Missing, 3500)

	fabricated := float64(c.Fabricated) / float64(c.NonEmptyRefs)
	assert.GreaterOrEqual(t, fabricated, 0.001)
	assert.LessOrEqual(t, fabricated, 0.002)

	wrong := float64(c.WrongCustomer) / float64(c.Clean+c.WrongCustomer)
	assert.GreaterOrEqual(t, wrong, 0.005)
	assert.LessOrEqual(t, wrong, 0.007)
}

func TestAllocatePriority(t *testing.T) {
	// Every category is behind: missing wins.
	behind := Counts{Rows: 1000, NonEmptyRefs: 1000, Clean: 1000}
	assert.Equal(t, models.NoiseMissing, Allocate(behind, DefaultNoiseTargets))

	behind.Missing = 27
	assert.Equal(t, models.NoiseFabricated, Allocate(behind, DefaultNoiseTargets))

	behind.Fabricated = 1
	assert.Equal(t, models.NoiseWrongCustomer, Allocate(behind, DefaultNoiseTargets))

	behind.WrongCustomer = 6
	assert.Equal(t, models.NoiseClean, Allocate(behind, DefaultNoiseTargets))
}

func TestTargetsValidate(t *testing.T) {
	require.NoError(t, DefaultNoiseTargets.Validate())
	bad := DefaultNoiseTargets
	bad.Fabricated = Target{Rate: 0.5, Min: 0.1, Max: 0.2}
	assert.ErrorContains(t, bad.Validate(), "fabricated")
}

func fact(id int, region, customer string, end time.Time) models.TransactionFact {
	return models.TransactionFact{
		TransactionID:  fmt.Sprintf("TX-%07d", id),
		CustomerID:     customer,
		CustomerRegion: region,
		Region:         region,
		EndTS:          end,
	}
}

func TestFactBufferPrunesByHorizon(t *testing.T) {
	b := NewFactBuffer(time.Hour, 100)
	b.Add(fact(1, "east", "C1", horizonStart))
	b.Add(fact(2, "east", "C2", horizonStart.Add(30*time.Minute)))
	require.Equal(t, 2, b.Len())

	b.Add(fact(3, "east", "C3", horizonStart.Add(90*time.Minute)))
	assert.Equal(t, 2, b.Len())

	// An out-of-order completion does not move the horizon back.
	b.Add(fact(4, "east", "C4", horizonStart.Add(40*time.Minute)))
	assert.Equal(t, 3, b.Len())
}

func TestFactBufferCapacity(t *testing.T) {
	b := NewFactBuffer(24*time.Hour, 3)
	for i := 0; i < 10; i++ {
		b.Add(fact(i, "east", fmt.Sprintf("C%d", i), horizonStart.Add(time.Duration(i)*time.Minute)))
	}
	assert.Equal(t, 3, b.Len())
	got := b.Decoys(horizonStart.Add(time.Hour), "east", "nobody", 0, 2*time.Hour)
	assert.Equal(t, []string{"TX-0000007", "TX-0000008", "TX-0000009"}, got)
}

func TestFactBufferDecoysFilter(t *testing.T) {
	b := NewFactBuffer(4*time.Hour, 100)
	callTS := horizonStart.Add(3 * time.Hour)
	b.Add(fact(1, "east", "C1", callTS.Add(-30*time.Minute)))
	b.Add(fact(2, "west", "C2", callTS.Add(-30*time.Minute)))
	b.Add(fact(3, "east", "SELF", callTS.Add(-30*time.Minute)))
	b.Add(fact(4, "east", "C4", callTS.Add(-100*time.Minute)))

	assert.Equal(t, []string{"TX-0000001"}, b.Decoys(callTS, "east", "SELF", 20*time.Minute, 80*time.Minute))
	assert.Equal(t, []string{"TX-0000001", "TX-0000004"}, b.Decoys(callTS, "east", "SELF", 0, 120*time.Minute))
}

func newTestGenerator(t *testing.T, seed int64) *Generator {
	t.Helper()
	g, err := NewGenerator(Options{
		HorizonEnd:        horizonStart.Add(7 * 24 * time.Hour),
		Targets:           DefaultNoiseTargets,
		BufferHorizon:     4 * time.Hour,
		BufferCapacity:    50000,
		IncidentSrcRegion: "central",
		ImpactedTypes:     []string{"provision_fiber_sqs"},
	}, random.New(seed), nil)
	require.NoError(t, err)
	return g
}

func TestCallProbabilityTiers(t *testing.T) {
	g := newTestGenerator(t, 1)
	base := models.TransactionFact{Type: "provision_fiber_sqs", CustomerRegion: "central"}
	assert.Equal(t, 0.04, g.CallProbability(base))
	base.ImpactedByPrimary = true
	assert.Equal(t, 0.12, g.CallProbability(base))

	other := models.TransactionFact{Type: "update_billing", CustomerRegion: "central", ImpactedByConfounder: true}
	assert.Equal(t, 0.05, g.CallProbability(other))
	other = models.TransactionFact{Type: "update_billing", FinalStatus: models.StatusTimeout}
	assert.Equal(t, 0.03, g.CallProbability(other))
	assert.Equal(t, 0.01, g.CallProbability(models.TransactionFact{Type: "update_billing"}))
}

func TestGeneratorLinksCalls(t *testing.T) {
	g := newTestGenerator(t, 23)
	regions := []string{"central", "east", "west"}
	byID := map[string]models.TransactionFact{}
	calls := map[string]struct{}{}
	var prev Stats

	for i := 0; i < 150000; i++ {
		end := horizonStart.Add(time.Duration(i) * 4 * time.Second)
		f := fact(i, regions[i%len(regions)], fmt.Sprintf("CUST-%08d", i), end)
		f.Type = "provision_fiber_sqs"
		f.ImpactedByPrimary = i%2 == 0
		byID[f.TransactionID] = f

		call, ok := g.ProcessFact(f)
		stats := g.Stats()
		require.GreaterOrEqual(t, stats.Rows, prev.Rows)
		require.GreaterOrEqual(t, stats.NonEmptyRefs, prev.NonEmptyRefs)
		require.GreaterOrEqual(t, stats.Matches, prev.Matches)
		require.GreaterOrEqual(t, stats.IncidentCalls, prev.IncidentCalls)
		prev = stats
		if !ok {
			continue
		}
		require.True(t, call.Timestamp.After(f.EndTS))
		require.False(t, call.Timestamp.After(horizonStart.Add(7*24*time.Hour-5*time.Minute)))
		_, dup := calls[call.CallID]
		require.False(t, dup, call.CallID)
		calls[call.CallID] = struct{}{}
	}

	stats := g.Stats()
	require.Len(t, stats.Records, stats.Rows)
	require.Positive(t, stats.WrongCustomer)
	assert.Equal(t, stats.Rows, stats.Clean+stats.Missing+stats.Fabricated+stats.WrongCustomer)
	assert.Equal(t, stats.Clean, stats.Matches)

	for _, rec := range stats.Records {
		truth := byID[rec.TrueTransactionID]
		switch rec.NoiseType {
		case models.NoiseClean:
			assert.Equal(t, rec.TrueTransactionID, rec.EmittedTransactionID)
		case models.NoiseMissing:
			assert.Empty(t, rec.EmittedTransactionID)
		case models.NoiseFabricated:
			assert.Regexp(t, `^FAKE-TX-\d{14}-\d{4}$`, rec.EmittedTransactionID)
		case models.NoiseWrongCustomer:
			decoy, ok := byID[rec.EmittedTransactionID]
			require.True(t, ok)
			assert.NotEqual(t, truth.CustomerID, decoy.CustomerID)
			assert.Equal(t, truth.CustomerRegion, decoy.CustomerRegion)
		}
		assert.GreaterOrEqual(t, rec.DelayMinutes, 0)
	}
	assert.InDelta(t, 0.027, stats.Rate(models.NoiseMissing), 0.0075)
}

func TestGeneratorSkipsFactsTooLateForACall(t *testing.T) {
	g := newTestGenerator(t, 5)
	late := horizonStart.Add(7*24*time.Hour - 2*time.Minute)
	for i := 0; i < 2000; i++ {
		f := fact(i, "central", "C", late)
		f.Type = "provision_fiber_sqs"
		f.ImpactedByPrimary = true
		_, ok := g.ProcessFact(f)
		require.False(t, ok)
	}
	assert.Zero(t, g.Stats().Rows)
}
