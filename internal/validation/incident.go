package validation

import (
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
)

// IncidentStats accumulates dependency latency and timeouts of facts on the incident path,
// split by whether they fell in a burst.
type IncidentStats struct {
	srcRegion string
	impacted  map[string]struct{}

	BurstCount         int
	BurstLatencySum    float64
	BurstTimeouts      int
	BaselineCount      int
	BaselineLatencySum float64
	BaselineTimeouts   int
}

// NewIncidentStats tracks cross-region facts of impactedTypes originating in srcRegion.
func NewIncidentStats(srcRegion string, impactedTypes []string) *IncidentStats {
	impacted := make(map[string]struct{}, len(impactedTypes))
	for _, t := range impactedTypes {
		impacted[t] = struct{}{}
	}
	return &IncidentStats{srcRegion: srcRegion, impacted: impacted}
}

// Observe folds fact in when it is on the incident path.
func (s *IncidentStats) Observe(fact models.TransactionFact) {
	if !fact.CrossRegion || fact.Region != s.srcRegion {
		return
	}
	if _, ok := s.impacted[fact.Type]; !ok {
		return
	}
	if fact.ImpactedByPrimary {
		s.BurstCount++
		s.BurstLatencySum += fact.DependencyLatencyMS
		if fact.TimedOut() {
			s.BurstTimeouts++
		}
		return
	}
	s.BaselineCount++
	s.BaselineLatencySum += fact.DependencyLatencyMS
	if fact.TimedOut() {
		s.BaselineTimeouts++
	}
}

// BurstLatencyAvg is the mean dependency latency of facts inside a burst.
func (s IncidentStats) BurstLatencyAvg() float64 {
	return s.BurstLatencySum / float64(max(1, s.BurstCount))
}

// BaselineLatencyAvg is the mean dependency latency of incident-path facts outside bursts.
func (s IncidentStats) BaselineLatencyAvg() float64 {
	return s.BaselineLatencySum / float64(max(1, s.BaselineCount))
}

// BurstTimeoutRate is the share of burst facts that timed out.
func (s IncidentStats) BurstTimeoutRate() float64 {
	return float64(s.BurstTimeouts) / float64(max(1, s.BurstCount))
}

// BaselineTimeoutRate is the share of baseline facts that timed out.
func (s IncidentStats) BaselineTimeoutRate() float64 {
	return float64(s.BaselineTimeouts) / float64(max(1, s.BaselineCount))
}

// ScoreAlerts grades network events against the incident. Warning or critical events on
// the incident circuit between incident start and fix time are true positives; every other
// warning or critical event is a false positive. The incident is a false negative when no
// true positive exists.
func ScoreAlerts(events []models.NetworkEvent, incident models.IncidentWindow) AlertQuality {
	var q AlertQuality
	for _, ev := range events {
		if !ev.Severity.Actionable() {
			continue
		}
		if ev.CircuitID == incident.CircuitID && within(ev.Timestamp, incident.Start, incident.FixTime) {
			q.TP++
			continue
		}
		q.FP++
	}
	if q.TP == 0 {
		q.FN = 1
	}
	return q
}

func within(ts, start, end time.Time) bool {
	return !ts.Before(start) && !ts.After(end)
}
