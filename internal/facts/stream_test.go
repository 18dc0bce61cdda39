package facts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/network"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
	"github.com/miradorstack/mirador-rca-corpus/internal/scenario"
)

type fixture struct {
	catalog     scenario.Catalog
	incident    models.IncidentWindow
	confounders []models.ConfounderWindow
	topology    *network.Topology
}

func newFixture(seed int64) fixture {
	catalog := scenario.DefaultCatalog()
	incident := scenario.BuildIncident(seed)
	return fixture{
		catalog:     catalog,
		incident:    incident,
		confounders: scenario.DefaultConfounders(),
		topology:    network.BuildTopology(incident, catalog.RegionPairs(), random.New(seed+51)),
	}
}

func collect(t *testing.T, seed int64, cfg Config) ([]models.TransactionFact, fixture) {
	t.Helper()
	fx := newFixture(seed)
	stream, err := NewStream(cfg, random.New(seed), fx.catalog, fx.incident, fx.confounders, fx.topology)
	require.NoError(t, err)
	var out []models.TransactionFact
	for {
		fact, ok := stream.Next()
		if !ok {
			break
		}
		out = append(out, fact)
	}
	assert.Equal(t, len(out), stream.Generated())
	return out, fx
}

func fullHorizon(n int) Config {
	return Config{TargetCount: n, Start: scenario.DefaultStart, End: scenario.DefaultEnd}
}

func TestStreamExactCardinality(t *testing.T) {
	for _, n := range []int{0, 1, 500, 5000} {
		facts, _ := collect(t, 7, fullHorizon(n))
		assert.Len(t, facts, n)
	}
}

func TestStreamFillPhaseOnShortHorizon(t *testing.T) {
	start := scenario.DefaultStart
	cfg := Config{TargetCount: 2000, Start: start, End: start.Add(30 * time.Minute)}
	facts, _ := collect(t, 5, cfg)
	require.Len(t, facts, 2000)
	for _, f := range facts {
		assert.False(t, f.StartTS.Before(cfg.Start))
		assert.True(t, f.StartTS.Before(cfg.End))
	}
}

func TestStreamFactInvariants(t *testing.T) {
	facts, fx := collect(t, 7, fullHorizon(20000))
	ids := make(map[string]struct{}, len(facts))
	primary := 0
	for _, f := range facts {
		require.True(t, f.EndTS.After(f.StartTS), f.TransactionID)
		require.NoError(t, fx.topology.VerifyFact(f))

		want := fx.incident.InBurst(f.StartTS) && f.Region == fx.incident.SrcRegion && fx.catalog.IsImpactedType(f.Type)
		require.Equal(t, want, f.ImpactedByPrimary, f.TransactionID)
		if f.ImpactedByPrimary {
			primary++
			assert.Equal(t, fx.incident.CircuitID, f.CircuitID)
			assert.GreaterOrEqual(t, f.RetryCount, 1)
		}
		if f.CrossRegion && f.CircuitID != fx.incident.CircuitID {
			assert.NotEqual(t, f.Region, f.DependencyRegion)
		}
		if f.TimedOut() {
			assert.Equal(t, "504", f.HTTPStatus)
			assert.NotEmpty(t, f.ErrorCode)
		}
		assert.GreaterOrEqual(t, f.ClockSkewMS, -500)
		assert.LessOrEqual(t, f.ClockSkewMS, 500)
		assert.Regexp(t, `^TX-\d{14}-\d{7}$`, f.TransactionID)
		assert.Regexp(t, `^CUST-\d{8}$`, f.CustomerID)

		_, dup := ids[f.TransactionID]
		require.False(t, dup, f.TransactionID)
		ids[f.TransactionID] = struct{}{}
	}
	assert.Positive(t, primary)
}

func TestStreamConfounderTagging(t *testing.T) {
	facts, fx := collect(t, 9, fullHorizon(20000))
	tagged := 0
	for _, f := range facts {
		if !f.ImpactedByConfounder {
			assert.Empty(t, f.ConfounderLabel)
			continue
		}
		tagged++
		c, ok := scenario.FindConfounder(fx.confounders, f.ConfounderLabel)
		require.True(t, ok)
		assert.True(t, c.Affects(f.StartTS, f.Region))
	}
	assert.Positive(t, tagged)
}

func TestStreamDeterministic(t *testing.T) {
	a, _ := collect(t, 11, fullHorizon(1500))
	b, _ := collect(t, 11, fullHorizon(1500))
	require.Equal(t, a, b)

	c, _ := collect(t, 12, fullHorizon(1500))
	assert.NotEqual(t, a[0].TransactionID+a[0].CustomerID, c[0].TransactionID+c[0].CustomerID)
}

func TestNewStreamRejectsBadInput(t *testing.T) {
	fx := newFixture(1)
	_, err := NewStream(Config{TargetCount: 10, Start: scenario.DefaultStart, End: scenario.DefaultStart},
		random.New(1), fx.catalog, fx.incident, fx.confounders, fx.topology)
	assert.Error(t, err)

	catalog := fx.catalog
	catalog.RegionWeights = []random.Weighted{{Key: "east", Weight: 0}}
	_, err = NewStream(fullHorizon(10), random.New(1), catalog, fx.incident, fx.confounders, fx.topology)
	assert.Error(t, err)
}
