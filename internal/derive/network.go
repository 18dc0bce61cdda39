package derive

import (
	"context"
	"fmt"
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/network"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
	"github.com/miradorstack/mirador-rca-corpus/internal/sink"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

// NetworkSummary condenses the incident circuit's samples without retaining them.
type NetworkSummary struct {
	Rows int

	BurstSamples    int
	BaselineSamples int
	BurstRTTMax     float64
	BaselineRTTMin  float64
	firstBurstRTT   float64
	firstBaseRTT    float64

	// Watch is the window whose peak multiplier is tracked, typically a confounder.
	Watch               utils.Window
	WatchSamples        int
	WatchPeakMultiplier float64
}

func (s *NetworkSummary) observe(sample models.NetworkSample) {
	if sample.Multiplier > 1.0 {
		if s.BurstSamples == 0 {
			s.firstBurstRTT = sample.RTTMS
			s.BurstRTTMax = sample.RTTMS
		}
		s.BurstSamples++
		s.BurstRTTMax = max(s.BurstRTTMax, sample.RTTMS)
	} else {
		if s.BaselineSamples == 0 {
			s.firstBaseRTT = sample.RTTMS
			s.BaselineRTTMin = sample.RTTMS
		}
		s.BaselineSamples++
		s.BaselineRTTMin = min(s.BaselineRTTMin, sample.RTTMS)
	}
	if s.Watch.Contains(sample.Timestamp) {
		if s.WatchSamples == 0 {
			s.WatchPeakMultiplier = sample.Multiplier
		}
		s.WatchSamples++
		s.WatchPeakMultiplier = max(s.WatchPeakMultiplier, sample.Multiplier)
	}
}

// BurstRTT is the peak incident-circuit RTT during bursts. Without burst samples it falls
// back to the first baseline sample, and to 1 when nothing was sampled.
func (s NetworkSummary) BurstRTT() float64 {
	switch {
	case s.BurstSamples > 0:
		return s.BurstRTTMax
	case s.BaselineSamples > 0:
		return s.firstBaseRTT
	}
	return 1.0
}

// BaselineRTT is the lowest incident-circuit RTT outside bursts, with the mirror fallbacks
// of BurstRTT.
func (s NetworkSummary) BaselineRTT() float64 {
	switch {
	case s.BaselineSamples > 0:
		return s.BaselineRTTMin
	case s.BurstSamples > 0:
		return s.firstBurstRTT
	}
	return 1.0
}

// PeakMultiplierInWatch is the highest incident-circuit multiplier inside Watch, or 1 when
// no sample fell inside it.
func (s NetworkSummary) PeakMultiplierInWatch() float64 {
	if s.WatchSamples == 0 {
		return 1.0
	}
	return s.WatchPeakMultiplier
}

// NetworkSweep samples every circuit once per minute across [start,end) and summarizes the
// incident circuit, tracking its peak multiplier inside watch.
func NetworkSweep(
	ctx context.Context,
	w sink.RowWriter,
	rng *random.Stream,
	topology *network.Topology,
	incident models.IncidentWindow,
	start, end time.Time,
	watch utils.Window,
) (NetworkSummary, error) {
	summary := NetworkSummary{Watch: watch}
	circuits := topology.Circuits()
	var sweepErr error
	utils.Steps(start, end, time.Minute, func(ts time.Time) bool {
		if err := ctx.Err(); err != nil {
			sweepErr = err
			return false
		}
		for _, c := range circuits {
			sample := network.Sample(rng, c, ts, network.MultiplierAt(rng, incident, c.ID, ts))
			row := []string{
				utils.ISOSecond(ts),
				c.SrcRegion,
				c.DstRegion,
				c.ID,
				utils.FormatFloat(sample.RTTMS, 2),
				utils.FormatFloat(sample.LossPct, 4),
				utils.FormatFloat(sample.RetransmitsPS, 2),
				utils.FormatFloat(sample.ThroughputMbps, 2),
			}
			if err := w.WriteRow(sink.NetworkCircuitMetrics, row); err != nil {
				sweepErr = err
				return false
			}
			summary.Rows++
			if c.ID == incident.CircuitID {
				summary.observe(sample)
			}
		}
		return true
	})
	return summary, sweepErr
}

var backgroundEventTypes = []string{"flap", "maintenance", "reroute", "packet_loss_burst"}

// BackgroundEvents is the number of low-severity events scattered over other circuits.
const BackgroundEvents = 10

// NetworkEvents builds the operational event log: a critical packet-loss burst on the
// incident circuit at incident start, a reroute at fix time, and background warnings on
// other circuits. Background events never reach critical severity.
func NetworkEvents(rng *random.Stream, topology *network.Topology, incident models.IncidentWindow, start, end time.Time) []models.NetworkEvent {
	events := []models.NetworkEvent{
		{
			Timestamp:   incident.Start,
			EventType:   "packet_loss_burst",
			SrcRegion:   incident.SrcRegion,
			DstRegion:   incident.DstRegion,
			CircuitID:   incident.CircuitID,
			Severity:    models.SeverityCritical,
			Description: "Packet loss burst and RTT elevation detected on primary circuit",
		},
		{
			Timestamp:   incident.FixTime,
			EventType:   "reroute",
			SrcRegion:   incident.SrcRegion,
			DstRegion:   incident.DstRegion,
			CircuitID:   incident.CircuitID,
			Severity:    models.SeverityInfo,
			Description: "Traffic rerouted away from degraded circuit; service latency recovers",
		},
	}

	var others []models.Circuit
	for _, c := range topology.Circuits() {
		if c.ID != incident.CircuitID {
			others = append(others, c)
		}
	}
	totalMinutes := utils.MinutesBetween(start, end)
	if len(others) > 0 && totalMinutes > 0 {
		for i := 0; i < BackgroundEvents; i++ {
			c := random.Choice(rng, others)
			ts := start.Add(time.Duration(rng.IntRange(0, totalMinutes-1)) * time.Minute)
			ev := models.NetworkEvent{
				Timestamp: ts,
				EventType: random.Choice(rng, backgroundEventTypes),
				SrcRegion: c.SrcRegion,
				DstRegion: c.DstRegion,
				CircuitID: c.ID,
			}
			switch ev.EventType {
			case "maintenance":
				ev.Severity, ev.Description = models.SeverityInfo, "Planned maintenance window on circuit"
			case "reroute":
				ev.Severity, ev.Description = models.SeverityWarning, "Routing policy change applied; path flaps briefly"
			case "flap":
				ev.Severity, ev.Description = models.SeverityWarning, "Intermittent circuit flap observed"
			default:
				ev.Severity, ev.Description = models.SeverityWarning, "Short packet loss burst on circuit"
			}
			events = append(events, ev)
		}
	}

	for i := range events {
		events[i].EventID = fmt.Sprintf("EVT-%06d", i)
	}
	return events
}

// WriteNetworkEvents writes events in order.
func WriteNetworkEvents(w sink.RowWriter, events []models.NetworkEvent) (int, error) {
	for i, ev := range events {
		row := []string{
			ev.EventID,
			utils.ISOSecond(ev.Timestamp),
			ev.EventType,
			ev.SrcRegion,
			ev.DstRegion,
			ev.CircuitID,
			string(ev.Severity),
			ev.Description,
		}
		if err := w.WriteRow(sink.NetworkEvents, row); err != nil {
			return i, err
		}
	}
	return len(events), nil
}
