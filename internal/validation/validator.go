// Package validation computes the post-generation coherence report. It is a reporting pass:
// every ratio floors its denominator and nothing here fails a run.
package validation

import (
	jsoniter "github.com/json-iterator/go"

	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

// ReferentialIntegrity reports how many emitted references resolve correctly.
type ReferentialIntegrity struct {
	TSOMatchPct   float64 `json:"tso_match_pct"`
	TraceMatchPct float64 `json:"trace_match_pct"`
}

// IncidentCoherence compares burst and baseline behaviour of the incident path.
type IncidentCoherence struct {
	DependencyLatencyMultiplier float64 `json:"dependency_latency_multiplier"`
	TimeoutRateMultiplier       float64 `json:"timeout_rate_multiplier"`
	NetworkRTTMultiplier        float64 `json:"network_rtt_multiplier"`
}

// ConfounderSeparability shows the CPU confounder did not leak into the incident circuit.
type ConfounderSeparability struct {
	CPUPeakPct           float64 `json:"cpu_peak_pct"`
	NetworkPeakDuringCPU float64 `json:"network_peak_during_cpu"`
}

// AlertQuality counts network events against the incident.
type AlertQuality struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	FN int `json:"fn"`
}

// Result is the validation summary document.
type Result struct {
	ReferentialIntegrity   ReferentialIntegrity   `json:"referential_integrity"`
	IncidentCoherence      IncidentCoherence      `json:"incident_coherence"`
	ConfounderSeparability ConfounderSeparability `json:"confounder_separability"`
	AlertQuality           *AlertQuality          `json:"alert_quality,omitempty"`
}

// Validator accumulates the checks into a Result.
type Validator struct {
	result Result
}

// NewValidator returns an empty Validator.
func NewValidator() *Validator {
	return &Validator{}
}

func matchPct(refs, matches int) float64 {
	if refs <= 0 {
		return 100.0
	}
	return utils.Round(100.0*float64(matches)/float64(refs), 3)
}

// CheckReferentialIntegrity records match percentages; no references counts as 100%.
func (v *Validator) CheckReferentialIntegrity(tsoRefs, tsoMatches, traceRefs, traceMatches int) {
	v.result.ReferentialIntegrity = ReferentialIntegrity{
		TSOMatchPct:   matchPct(tsoRefs, tsoMatches),
		TraceMatchPct: matchPct(traceRefs, traceMatches),
	}
}

// CheckIncidentCoherence records burst-over-baseline ratios.
func (v *Validator) CheckIncidentCoherence(s IncidentStats, networkRTTBurst, networkRTTBase float64) {
	v.result.IncidentCoherence = IncidentCoherence{
		DependencyLatencyMultiplier: utils.Round(s.BurstLatencyAvg()/max(1.0, s.BaselineLatencyAvg()), 2),
		TimeoutRateMultiplier:       utils.Round(s.BurstTimeoutRate()/max(0.01, s.BaselineTimeoutRate()), 2),
		NetworkRTTMultiplier:        utils.Round(networkRTTBurst/max(1.0, networkRTTBase), 2),
	}
}

// CheckConfounderSeparability records the CPU peak and the incident circuit's peak
// multiplier during the CPU window.
func (v *Validator) CheckConfounderSeparability(cpuPeak, networkPeakDuringCPU float64) {
	v.result.ConfounderSeparability = ConfounderSeparability{
		CPUPeakPct:           utils.Round(cpuPeak, 2),
		NetworkPeakDuringCPU: utils.Round(max(0.0001, networkPeakDuringCPU), 4),
	}
}

// CheckAlertQuality records alert counts.
func (v *Validator) CheckAlertQuality(q AlertQuality) {
	v.result.AlertQuality = &q
}

// Result returns the accumulated report.
func (v *Validator) Result() Result {
	return v.result
}

// Summary renders the report as indented JSON.
func (v *Validator) Summary() ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v.result, "", "  ")
}
