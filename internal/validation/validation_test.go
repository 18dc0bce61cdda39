package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/scenario"
)

func TestReferentialIntegrity(t *testing.T) {
	v := NewValidator()
	v.CheckReferentialIntegrity(0, 0, 0, 0)
	assert.Equal(t, 100.0, v.Result().ReferentialIntegrity.TSOMatchPct)
	assert.Equal(t, 100.0, v.Result().ReferentialIntegrity.TraceMatchPct)

	v.CheckReferentialIntegrity(3, 2, 10, 10)
	assert.Equal(t, 66.667, v.Result().ReferentialIntegrity.TSOMatchPct)
	assert.Equal(t, 100.0, v.Result().ReferentialIntegrity.TraceMatchPct)
}

func TestIncidentStatsAndCoherence(t *testing.T) {
	s := NewIncidentStats("central", []string{"provision_fiber_sqs"})
	onPath := models.TransactionFact{CrossRegion: true, Region: "central", Type: "provision_fiber_sqs"}

	burst := onPath
	burst.ImpactedByPrimary = true
	burst.DependencyLatencyMS = 3000
	burst.FinalStatus = models.StatusTimeout
	s.Observe(burst)
	burst.FinalStatus = models.StatusSuccess
	burst.DependencyLatencyMS = 5000
	s.Observe(burst)

	base := onPath
	base.DependencyLatencyMS = 500
	s.Observe(base)

	offPath := base
	offPath.Region = "west"
	offPath.DependencyLatencyMS = 99999
	s.Observe(offPath)

	require.Equal(t, 2, s.BurstCount)
	require.Equal(t, 1, s.BaselineCount)

	v := NewValidator()
	v.CheckIncidentCoherence(*s, 250, 16.5)
	got := v.Result().IncidentCoherence
	assert.Equal(t, 8.0, got.DependencyLatencyMultiplier)
	// 0.5 burst timeout rate over a zero baseline floored at 0.01.
	assert.Equal(t, 50.0, got.TimeoutRateMultiplier)
	assert.Equal(t, 15.15, got.NetworkRTTMultiplier)
}

func TestCoherenceWithNoFacts(t *testing.T) {
	v := NewValidator()
	v.CheckIncidentCoherence(*NewIncidentStats("central", nil), 1, 0)
	assert.Equal(t, IncidentCoherence{NetworkRTTMultiplier: 1}, v.Result().IncidentCoherence)
}

func TestConfounderSeparability(t *testing.T) {
	v := NewValidator()
	v.CheckConfounderSeparability(96.4567, 0)
	assert.Equal(t, 96.46, v.Result().ConfounderSeparability.CPUPeakPct)
	assert.Equal(t, 0.0001, v.Result().ConfounderSeparability.NetworkPeakDuringCPU)
}

func TestScoreAlerts(t *testing.T) {
	incident := scenario.BuildIncident(7)
	events := []models.NetworkEvent{
		{CircuitID: incident.CircuitID, Timestamp: incident.Start, Severity: "critical"},
		{CircuitID: incident.CircuitID, Timestamp: incident.FixTime, Severity: "info"},
		{CircuitID: "CKT-WES-EAS-250", Timestamp: incident.Start.Add(time.Hour), Severity: "warning"},
		{CircuitID: incident.CircuitID, Timestamp: incident.Start.Add(-time.Hour), Severity: "warning"},
	}
	assert.Equal(t, AlertQuality{TP: 1, FP: 2, FN: 0}, ScoreAlerts(events, incident))
	assert.Equal(t, AlertQuality{FN: 1}, ScoreAlerts(nil, incident))
}

func TestSummaryJSON(t *testing.T) {
	v := NewValidator()
	v.CheckReferentialIntegrity(0, 0, 0, 0)
	out, err := v.Summary()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"tso_match_pct": 100`)
	assert.NotContains(t, string(out), "alert_quality")

	v.CheckAlertQuality(AlertQuality{TP: 1})
	out, err = v.Summary()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"alert_quality"`)
}
