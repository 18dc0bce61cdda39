package facts

import (
	"fmt"
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

func (s *Stream) pick(weights []random.Weighted) string {
	key, err := s.rng.WeightedChoice(weights)
	if err != nil {
		// Weights were validated in NewStream.
		return weights[0].Key
	}
	return key
}

func (s *Stream) build(ts time.Time, seq int) models.TransactionFact {
	region := s.pick(s.catalog.RegionWeights)
	txnType := s.pick(s.catalog.TypeWeights(region))
	impactedType := s.catalog.IsImpactedType(txnType)

	fact := models.TransactionFact{
		TransactionID:  fmt.Sprintf("TX-%s-%07d", utils.Compact(ts), seq),
		CustomerID:     fmt.Sprintf("CUST-%d", s.rng.IntRange(10000000, 99999999)),
		CustomerRegion: region,
		Type:           txnType,
		ServiceType:    s.catalog.ServiceTypes[txnType],
		Region:         region,
		StartTS:        ts,
		ServicesChain:  s.catalog.ServicesChain,
	}
	fact.TraceID = s.rng.HexID("tr", 12)

	fact.BaseLatencyMS = defaultBaseLatencyMS
	if impactedType {
		fact.BaseLatencyMS = impactedBaseLatencyMS
	}

	if impactedType && region == s.incident.SrcRegion {
		fact.CrossRegion = true
		fact.DependencyRegion = s.incident.DstRegion
		fact.DependencyService = s.catalog.DependencyService
		fact.CircuitID = s.incident.CircuitID
		if s.incident.InBurst(ts) {
			fact.ImpactedByPrimary = true
			fact.DependencyLatencyMS = fact.BaseLatencyMS * s.rng.Uniform(5, 12)
		} else {
			fact.DependencyLatencyMS = fact.BaseLatencyMS * s.rng.Uniform(0.9, 1.6)
		}
	} else if routes := s.topology.RoutesFrom(region); len(routes) > 0 && s.rng.Float64() < crossRegionChance {
		route := random.Choice(s.rng, routes)
		fact.CrossRegion = true
		fact.DependencyRegion = route.Dst
		fact.DependencyService = s.catalog.DependencyService
		fact.CircuitID = random.Choice(s.rng, s.topology.PreferredCircuits(route))
		fact.DependencyLatencyMS = fact.BaseLatencyMS * s.rng.Uniform(0.8, 1.8)
	}

	for _, c := range s.confounders {
		if c.Affects(ts, region) {
			fact.ImpactedByConfounder = true
			fact.ConfounderLabel = c.Name
			break
		}
	}

	burstMultiplier := 1.0
	switch {
	case fact.ImpactedByPrimary:
		burstMultiplier = s.rng.Uniform(2.5, 4.5)
	case fact.ImpactedByConfounder:
		burstMultiplier = s.rng.Uniform(1.2, 1.8)
	}
	fact.EndToEndLatencyMS = fact.BaseLatencyMS * (0.8 + s.rng.Uniform(0, 0.4)) * burstMultiplier

	switch {
	case fact.ImpactedByPrimary:
		fact.RetryCount = s.rng.IntRange(1, 3)
	case fact.ImpactedByConfounder && s.rng.Float64() < 0.4:
		fact.RetryCount = 1
	}

	failureBias := 0.05
	switch {
	case fact.ImpactedByPrimary:
		failureBias = 0.35
	case fact.ImpactedByConfounder:
		failureBias = 0.12
	}
	fact.FinalStatus, fact.HTTPStatus = models.StatusSuccess, "200"
	if s.rng.Float64() < failureBias {
		fact.FinalStatus, fact.HTTPStatus = models.StatusTimeout, "504"
		fact.ErrorCode = ErrorOrchestratorTimeout
		if fact.CrossRegion {
			fact.ErrorCode = ErrorDependencyTimeout
		}
	} else if s.rng.Float64() < 0.08 {
		fact.FinalStatus, fact.HTTPStatus = models.StatusRetry, "202"
	} else if fact.RetryCount > 0 {
		fact.FinalStatus = models.StatusCompletedAfterRetry
	}

	fact.ClockSkewMS = s.rng.IntRange(-500, 500)
	fact.EndTS = ts.Add(time.Duration(fact.EndToEndLatencyMS * float64(time.Millisecond)))
	return fact
}
