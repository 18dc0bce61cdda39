package network

import (
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

// Degradation range applied to the incident circuit during a burst.
const (
	BurstMultiplierMin = 6.0
	BurstMultiplierMax = 14.0
)

// Sample observes c at ts. Every metric gets independent jitter and is scaled by multiplier;
// throughput is divided by it instead.
func Sample(stream *random.Stream, c models.Circuit, ts time.Time, multiplier float64) models.NetworkSample {
	b := c.Baseline
	rtt := b.RTTMS * stream.Uniform(0.9, 1.1) * multiplier
	loss := b.LossPct * stream.Uniform(0.8, 1.2) * multiplier
	retx := b.RetransmitsPS * stream.Uniform(0.9, 1.3) * multiplier
	throughput := b.ThroughputMbps * stream.Uniform(0.85, 1.1) / max(1.0, multiplier)
	return models.NetworkSample{
		Timestamp:      ts,
		CircuitID:      c.ID,
		RTTMS:          utils.Round(rtt, 2),
		LossPct:        utils.Round(loss, 4),
		RetransmitsPS:  utils.Round(retx, 2),
		ThroughputMbps: utils.Round(throughput, 2),
		Multiplier:     multiplier,
	}
}

// MultiplierAt returns the degradation applied to circuitID at ts: a draw from the burst
// range on the incident circuit inside a burst, 1 otherwise. The stream is only consumed
// when a burst applies.
func MultiplierAt(stream *random.Stream, incident models.IncidentWindow, circuitID string, ts time.Time) float64 {
	if circuitID != incident.CircuitID || !incident.InBurst(ts) {
		return 1.0
	}
	return stream.Uniform(BurstMultiplierMin, BurstMultiplierMax)
}
