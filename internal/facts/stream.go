// Package facts generates the transaction facts every other table is derived from.
package facts

import (
	"fmt"
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/network"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
	"github.com/miradorstack/mirador-rca-corpus/internal/scenario"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

// Error codes attached to timed-out transactions.
const (
	ErrorDependencyTimeout   = "DEP_TIMEOUT"
	ErrorOrchestratorTimeout = "ORCH_TIMEOUT"
)

const (
	impactedBaseLatencyMS = 420.0
	defaultBaseLatencyMS  = 280.0
	crossRegionChance     = 0.08
)

// Config bounds one stream.
type Config struct {
	TargetCount int
	Start       time.Time
	End         time.Time
}

// Stream emits exactly Config.TargetCount facts in roughly chronological order. Arrivals
// follow a diurnal curve with the fractional expectation of each minute carried forward;
// any shortfall once the horizon is exhausted is filled at random minutes.
type Stream struct {
	cfg         Config
	rng         *random.Stream
	catalog     scenario.Catalog
	incident    models.IncidentWindow
	confounders []models.ConfounderWindow
	topology    *network.Topology

	totalMinutes  int
	basePerMinute float64
	cursor        time.Time
	minute        time.Time
	pending       int
	carry         float64
	generated     int
}

// NewStream validates cfg and prepares a stream. rng must not be shared with other generators.
func NewStream(
	cfg Config,
	rng *random.Stream,
	catalog scenario.Catalog,
	incident models.IncidentWindow,
	confounders []models.ConfounderWindow,
	topology *network.Topology,
) (*Stream, error) {
	if cfg.TargetCount < 0 {
		return nil, fmt.Errorf("target count must not be negative")
	}
	totalMinutes := utils.MinutesBetween(cfg.Start, cfg.End)
	if totalMinutes < 1 {
		return nil, fmt.Errorf("horizon must span at least one minute")
	}
	total := 0.0
	for _, w := range catalog.RegionWeights {
		total += max(w.Weight, 0)
	}
	if total <= 0 {
		return nil, fmt.Errorf("region weights must sum to > 0")
	}
	if topology == nil {
		return nil, fmt.Errorf("topology is required")
	}
	return &Stream{
		cfg:           cfg,
		rng:           rng,
		catalog:       catalog,
		incident:      incident,
		confounders:   confounders,
		topology:      topology,
		totalMinutes:  totalMinutes,
		basePerMinute: float64(cfg.TargetCount) / float64(totalMinutes),
		cursor:        cfg.Start,
	}, nil
}

// Generated returns how many facts have been emitted.
func (s *Stream) Generated() int {
	return s.generated
}

// Next returns the next fact, or false once TargetCount facts have been produced.
func (s *Stream) Next() (models.TransactionFact, bool) {
	for s.generated < s.cfg.TargetCount {
		if s.pending > 0 {
			s.pending--
			return s.emit(s.minute), true
		}
		if s.cursor.Before(s.cfg.End) {
			s.minute = s.cursor
			s.pending = s.arrivalsFor(s.minute)
			s.cursor = s.cursor.Add(time.Minute)
			continue
		}
		minute := s.cfg.Start.Add(time.Duration(s.rng.IntRange(0, s.totalMinutes-1)) * time.Minute)
		return s.emit(minute), true
	}
	return models.TransactionFact{}, false
}

func (s *Stream) emit(minute time.Time) models.TransactionFact {
	ts := minute.Add(time.Duration(s.rng.Uniform(0, 60) * float64(time.Second)))
	fact := s.build(ts, s.generated)
	s.generated++
	return fact
}

// arrivalsFor draws the expected arrivals for minute and returns the integer count,
// carrying the fractional remainder.
func (s *Stream) arrivalsFor(minute time.Time) int {
	lambda := s.basePerMinute * utils.DiurnalFactor(minute) * s.rng.Uniform(0.9, 1.1)
	count := int(lambda)
	s.carry += lambda - float64(count)
	if s.carry >= 1 {
		count++
		s.carry--
	}
	return count
}
