package linkage

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

var (
	issueCategories = []string{"slow_provisioning", "timeout", "failure"}
	resolutionCodes = []string{"system_resolved", "manual_intervention", "customer_callback"}
	issueNotes      = []string{
		"customer experiencing slow provisioning",
		"reported stalled order",
		"timeout observed during modify",
		"customer claims service stuck",
		"tso triage indicates regional delay",
		"TSO call referencing long queue",
	}
)

// Decoy search windows, measured back from the call time.
const (
	preferredDecoyMin = 20 * time.Minute
	preferredDecoyMax = 80 * time.Minute
	fallbackDecoyMin  = 0
	fallbackDecoyMax  = 120 * time.Minute
)

// Options configures a Generator.
type Options struct {
	// HorizonEnd bounds call timestamps; calls land no later than five minutes before it.
	HorizonEnd     time.Time
	Targets        NoiseTargets
	BufferHorizon  time.Duration
	BufferCapacity int
	// IncidentSrcRegion and ImpactedTypes select the elevated call-probability tier.
	IncidentSrcRegion string
	ImpactedTypes     []string
}

// Stats are the running linkage counters. They only ever grow.
type Stats struct {
	Counts
	Matches       int
	IncidentCalls int
	Records       []models.TSOCallRecord
}

// Rate returns the share of all calls in category nt.
func (s Stats) Rate(nt models.NoiseType) float64 {
	return float64(s.Of(nt)) / float64(max(1, s.Rows))
}

// Generator turns facts into support calls. Not safe for concurrent use.
type Generator struct {
	opts     Options
	rng      *random.Stream
	buffer   *FactBuffer
	impacted map[string]struct{}
	stats    Stats
	logger   *slog.Logger
}

// NewGenerator builds a Generator drawing from rng.
func NewGenerator(opts Options, rng *random.Stream, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := opts.Targets.Validate(); err != nil {
		return nil, err
	}
	if opts.BufferHorizon <= 0 {
		return nil, fmt.Errorf("buffer horizon must be positive")
	}
	impacted := make(map[string]struct{}, len(opts.ImpactedTypes))
	for _, t := range opts.ImpactedTypes {
		impacted[t] = struct{}{}
	}
	return &Generator{
		opts:     opts,
		rng:      rng,
		buffer:   NewFactBuffer(opts.BufferHorizon, opts.BufferCapacity),
		impacted: impacted,
		logger:   logger,
	}, nil
}

// Stats returns the counters accumulated so far.
func (g *Generator) Stats() Stats {
	return g.stats
}

// CallProbability is the chance a fact triggers a support call.
func (g *Generator) CallProbability(fact models.TransactionFact) float64 {
	_, impactedType := g.impacted[fact.Type]
	switch {
	case impactedType && fact.CustomerRegion == g.opts.IncidentSrcRegion:
		if fact.ImpactedByPrimary {
			return 0.12
		}
		return 0.04
	case fact.ImpactedByConfounder:
		return 0.05
	case fact.TimedOut():
		return 0.03
	}
	return 0.01
}

// callTime returns completion plus delay clamped to the horizon, or false when no instant
// strictly after completion fits.
func (g *Generator) callTime(end time.Time, delay time.Duration) (time.Time, bool) {
	latest := g.opts.HorizonEnd.Add(-5 * time.Minute)
	ts := end.Add(delay)
	if ts.After(latest) {
		ts = latest
	}
	if !ts.After(end) {
		return time.Time{}, false
	}
	return ts, true
}

// ProcessFact buffers fact as a decoy candidate and possibly emits a call for it.
func (g *Generator) ProcessFact(fact models.TransactionFact) (models.TSOCall, bool) {
	g.buffer.Add(fact)

	if g.rng.Float64() > g.CallProbability(fact) {
		return models.TSOCall{}, false
	}
	delay := time.Duration(g.rng.IntRange(5, 120)) * time.Minute
	callTS, ok := g.callTime(fact.EndTS, delay)
	if !ok {
		g.logger.Debug("fact completes too late for a support call", slog.String("transaction_id", fact.TransactionID))
		return models.TSOCall{}, false
	}

	call := models.TSOCall{
		CallID:         fmt.Sprintf("TSO-%s-%06d", utils.Compact(callTS), g.stats.Rows+1),
		Timestamp:      callTS,
		CustomerID:     fact.CustomerID,
		CustomerRegion: fact.CustomerRegion,
		IssueCategory:  random.Choice(g.rng, issueCategories),
		ServiceType:    fact.ServiceType,
		ResolutionMins: g.rng.IntRange(10, 180),
	}
	call.Escalated = fact.ImpactedByPrimary && g.rng.Float64() < 0.6
	call.ResolutionCode = random.Choice(g.rng, resolutionCodes)

	noise, ref := g.assignReference(fact, callTS)
	call.TransactionRef = ref
	call.IssueDescription = random.Choice(g.rng, issueNotes)

	g.record(fact, call, noise)
	return call, true
}

func (g *Generator) assignReference(fact models.TransactionFact, callTS time.Time) (models.NoiseType, string) {
	switch Allocate(g.stats.Counts, g.opts.Targets) {
	case models.NoiseMissing:
		return models.NoiseMissing, ""
	case models.NoiseFabricated:
		return models.NoiseFabricated, "FAKE-TX-" + utils.Compact(callTS) + "-" + strconv.Itoa(g.rng.IntRange(1000, 9999))
	case models.NoiseWrongCustomer:
		if decoy, ok := g.findDecoy(fact, callTS); ok {
			return models.NoiseWrongCustomer, decoy
		}
	}
	return models.NoiseClean, fact.TransactionID
}

func (g *Generator) findDecoy(fact models.TransactionFact, callTS time.Time) (string, bool) {
	pool := g.buffer.Decoys(callTS, fact.CustomerRegion, fact.CustomerID, preferredDecoyMin, preferredDecoyMax)
	if len(pool) == 0 {
		pool = g.buffer.Decoys(callTS, fact.CustomerRegion, fact.CustomerID, fallbackDecoyMin, fallbackDecoyMax)
	}
	if len(pool) == 0 {
		return "", false
	}
	return random.Choice(g.rng, pool), true
}

func (g *Generator) record(fact models.TransactionFact, call models.TSOCall, noise models.NoiseType) {
	s := &g.stats
	s.Rows++
	switch noise {
	case models.NoiseClean:
		s.Clean++
	case models.NoiseMissing:
		s.Missing++
	case models.NoiseFabricated:
		s.Fabricated++
	case models.NoiseWrongCustomer:
		s.WrongCustomer++
	}
	if call.TransactionRef != "" {
		s.NonEmptyRefs++
		if noise == models.NoiseClean {
			s.Matches++
		}
	}
	if fact.ImpactedByPrimary {
		s.IncidentCalls++
	}
	s.Records = append(s.Records, models.TSOCallRecord{
		CallID:               call.CallID,
		TrueTransactionID:    fact.TransactionID,
		EmittedTransactionID: call.TransactionRef,
		NoiseType:            noise,
		DelayMinutes:         int(call.Timestamp.Sub(fact.EndTS) / time.Minute),
	})
}
