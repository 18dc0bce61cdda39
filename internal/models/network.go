package models

import "time"

// CircuitBaseline is the stable statistical signature of a circuit.
type CircuitBaseline struct {
	RTTMS          float64
	LossPct        float64
	RetransmitsPS  float64
	ThroughputMbps float64
}

// Circuit is a directional network path between two regions.
type Circuit struct {
	ID        string
	SrcRegion string
	DstRegion string
	Baseline  CircuitBaseline
}

// NetworkSample is one observation of a circuit.
type NetworkSample struct {
	Timestamp      time.Time
	CircuitID      string
	RTTMS          float64
	LossPct        float64
	RetransmitsPS  float64
	ThroughputMbps float64
	Multiplier     float64
}

// NetworkEvent is an operational event raised against a circuit.
type NetworkEvent struct {
	EventID     string
	Timestamp   time.Time
	EventType   string
	SrcRegion   string
	DstRegion   string
	CircuitID   string
	Severity    Severity
	Description string
}

// Severity captures the impact level of a network event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Actionable reports whether the event should page an operator.
func (s Severity) Actionable() bool {
	return s == SeverityWarning || s == SeverityCritical
}
