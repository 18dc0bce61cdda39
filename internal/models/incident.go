package models

import (
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

// WildcardRegion matches every region in a ConfounderWindow.
const WildcardRegion = "*"

// IncidentWindow is the ground-truth narrative of the primary incident.
type IncidentWindow struct {
	Start     time.Time
	End       time.Time
	FixTime   time.Time
	Bursts    []utils.Window
	CircuitID string
	SrcRegion string
	DstRegion string
}

// InBurst reports whether ts falls inside one of the burst sub-intervals.
func (w IncidentWindow) InBurst(ts time.Time) bool {
	return utils.InAnyWindow(ts, w.Bursts)
}

// ConfounderWindow is an anomaly unrelated to the primary incident.
type ConfounderWindow struct {
	Name        string    `yaml:"name" json:"name"`
	Start       time.Time `yaml:"start" json:"start"`
	End         time.Time `yaml:"end" json:"end"`
	Region      string    `yaml:"region" json:"region"`
	Component   string    `yaml:"component" json:"component"`
	Description string    `yaml:"description" json:"description"`
}

// Affects reports whether a transaction starting at ts in region falls under the confounder.
func (c ConfounderWindow) Affects(ts time.Time, region string) bool {
	if c.Region != region && c.Region != WildcardRegion {
		return false
	}
	return utils.Window{Start: c.Start, End: c.End}.Contains(ts)
}
