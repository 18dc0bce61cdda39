package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/miradorstack/mirador-rca-corpus/internal/derive"
	"github.com/miradorstack/mirador-rca-corpus/internal/facts"
	"github.com/miradorstack/mirador-rca-corpus/internal/linkage"
	"github.com/miradorstack/mirador-rca-corpus/internal/metrics"
	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/network"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
	"github.com/miradorstack/mirador-rca-corpus/internal/scenario"
	"github.com/miradorstack/mirador-rca-corpus/internal/sink"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
	"github.com/miradorstack/mirador-rca-corpus/internal/validation"
)

// Offsets added to the run seed so every table draws from its own stream.
const (
	deriveSeedOffset  = 11
	tsoSeedOffset     = 23
	networkSeedOffset = 37
	circuitSeedOffset = 51
	infraSeedOffset   = 67
	alertSeedOffset   = 79
	runIDSeedOffset   = 101
)

// Options configures one generation run.
type Options struct {
	Seed             int64
	TransactionCount int
	Start            time.Time
	End              time.Time
	EnableTier2      bool
	Confounders      []models.ConfounderWindow
	Noise            linkage.NoiseTargets
	BufferHorizon    time.Duration
	BufferCapacity   int
}

// Report is everything a run produced besides the table rows.
type Report struct {
	RunID       string
	Seed        int64
	Start       time.Time
	End         time.Time
	Catalog     scenario.Catalog
	Incident    models.IncidentWindow
	Confounders []models.ConfounderWindow
	RowCounts   sink.RowCounts
	Linkage     linkage.Stats
	Events      []models.NetworkEvent
	Validation  validation.Result
	Summary     []byte
}

// Pipeline drives a single-pass generation: the fact stream feeds the per-fact derivations
// and the support-call linkage, then the time-driven sweeps run and the result is validated.
type Pipeline struct {
	logger   *slog.Logger
	opts     Options
	catalog  scenario.Catalog
	writer   sink.RowWriter
	topology *network.Topology
}

// NewPipeline constructs a pipeline writing rows to writer.
func NewPipeline(logger *slog.Logger, opts Options, writer sink.RowWriter) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if writer == nil {
		writer = sink.Discard
	}
	if opts.Noise == (linkage.NoiseTargets{}) {
		opts.Noise = linkage.DefaultNoiseTargets
	}
	if opts.BufferHorizon <= 0 {
		opts.BufferHorizon = 4 * time.Hour
	}
	if opts.BufferCapacity <= 0 {
		opts.BufferCapacity = 65536
	}
	return &Pipeline{
		logger:  logger,
		opts:    opts,
		catalog: scenario.DefaultCatalog(),
		writer:  writer,
	}
}

// WithTopology replaces the generated circuit topology.
func (p *Pipeline) WithTopology(t *network.Topology) *Pipeline {
	p.topology = t
	return p
}

// Run generates the corpus. A topology violation aborts the run with a *network.TopologyError.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	opts := p.opts
	incident := scenario.BuildIncident(opts.Seed)
	if incident.Start.Before(opts.Start) || incident.FixTime.After(opts.End) {
		return nil, fmt.Errorf("incident window %s..%s lies outside the horizon", utils.ISOSecond(incident.Start), utils.ISOSecond(incident.FixTime))
	}

	topology := p.topology
	if topology == nil {
		topology = network.BuildTopology(incident, p.catalog.RegionPairs(), random.New(opts.Seed+circuitSeedOffset))
	}

	stream, err := facts.NewStream(
		facts.Config{TargetCount: opts.TransactionCount, Start: opts.Start, End: opts.End},
		random.New(opts.Seed),
		p.catalog,
		incident,
		opts.Confounders,
		topology,
	)
	if err != nil {
		return nil, fmt.Errorf("fact stream: %w", err)
	}
	calls, err := linkage.NewGenerator(linkage.Options{
		HorizonEnd:        opts.End,
		Targets:           opts.Noise,
		BufferHorizon:     opts.BufferHorizon,
		BufferCapacity:    opts.BufferCapacity,
		IncidentSrcRegion: incident.SrcRegion,
		ImpactedTypes:     p.catalog.ImpactedTypes,
	}, random.New(opts.Seed+tsoSeedOffset), p.logger)
	if err != nil {
		return nil, fmt.Errorf("linkage: %w", err)
	}

	tables := sink.Tables(opts.EnableTier2)
	counter := sink.NewCounter(p.writer, tables)
	deriver := derive.NewDeriver(random.New(opts.Seed + deriveSeedOffset))
	incidentStats := validation.NewIncidentStats(incident.SrcRegion, p.catalog.ImpactedTypes)
	var serviceMetrics *derive.ServiceMetrics
	if opts.EnableTier2 {
		serviceMetrics = derive.NewServiceMetrics()
	}

	p.logger.Info("generating transaction facts",
		slog.Int64("seed", opts.Seed),
		slog.Int("target", opts.TransactionCount),
		slog.Bool("tier2", opts.EnableTier2))

	traceRefs := 0
	progressEvery := max(1, opts.TransactionCount/10)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fact, ok := stream.Next()
		if !ok {
			break
		}
		if err := topology.VerifyFact(fact); err != nil {
			return nil, fmt.Errorf("verify fact: %w", err)
		}
		metrics.ObserveFact(fact)

		if _, err := deriver.Logs(counter, fact); err != nil {
			return nil, err
		}
		spans, err := deriver.Spans(counter, fact)
		if err != nil {
			return nil, err
		}
		traceRefs += spans

		if call, ok := calls.ProcessFact(fact); ok {
			if err := counter.WriteRow(sink.TSOCalls, tsoRow(call)); err != nil {
				return nil, err
			}
		}
		if serviceMetrics != nil {
			serviceMetrics.Add(fact)
			if err := counter.WriteRow(sink.TxnFacts, derive.FactRow(fact)); err != nil {
				return nil, err
			}
		}
		incidentStats.Observe(fact)

		if n := stream.Generated(); n%progressEvery == 0 {
			p.logger.Debug("fact stream progress", slog.Int("facts", n), slog.Int("tso_calls", calls.Stats().Rows))
		}
	}
	linkStats := calls.Stats()
	for _, rec := range linkStats.Records {
		metrics.ObserveCall(rec.NoiseType)
	}

	if serviceMetrics != nil {
		if _, err := serviceMetrics.Flush(counter); err != nil {
			return nil, err
		}
	}

	cpuWindow := utils.Window{}
	if cpu, ok := scenario.FindConfounder(opts.Confounders, scenario.CPUSpikeConfounder); ok {
		cpuWindow = utils.Window{Start: cpu.Start, End: cpu.End}
	}
	p.logger.Info("sweeping network circuits",
		slog.Int("circuits", len(topology.Circuits())),
		slog.String("incident_circuit", topology.IncidentCircuitID()))
	netSummary, err := derive.NetworkSweep(ctx, counter, random.New(opts.Seed+networkSeedOffset), topology, incident, opts.Start, opts.End, cpuWindow)
	if err != nil {
		return nil, err
	}

	p.logger.Info("sweeping infrastructure hosts")
	infraSummary, err := derive.InfraSweep(ctx, counter, random.New(opts.Seed+infraSeedOffset), derive.Hosts(), opts.Confounders, opts.Start, opts.End)
	if err != nil {
		return nil, err
	}

	validator := validation.NewValidator()
	var events []models.NetworkEvent
	if opts.EnableTier2 {
		events = derive.NetworkEvents(random.New(opts.Seed+alertSeedOffset), topology, incident, opts.Start, opts.End)
		if _, err := derive.WriteNetworkEvents(counter, events); err != nil {
			return nil, err
		}
		validator.CheckAlertQuality(validation.ScoreAlerts(events, incident))
	}

	validator.CheckReferentialIntegrity(linkStats.NonEmptyRefs, linkStats.Matches, traceRefs, traceRefs)
	validator.CheckIncidentCoherence(*incidentStats, netSummary.BurstRTT(), netSummary.BaselineRTT())
	validator.CheckConfounderSeparability(infraSummary.CPUMax[incident.SrcRegion], netSummary.PeakMultiplierInWatch())
	summary, err := validator.Summary()
	if err != nil {
		return nil, fmt.Errorf("encode validation summary: %w", err)
	}

	counts := counter.Counts()
	for _, table := range counts.Order {
		metrics.AddRows(table, counts.Counts[table])
	}

	runID, err := uuid.NewRandomFromReader(random.New(opts.Seed + runIDSeedOffset))
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}

	p.logger.Info("generation complete",
		slog.Int("facts", stream.Generated()),
		slog.Int("tso_calls", linkStats.Rows),
		slog.Int("network_rows", netSummary.Rows),
		slog.Int("infra_rows", infraSummary.Rows))

	return &Report{
		RunID:       runID.String(),
		Seed:        opts.Seed,
		Start:       opts.Start,
		End:         opts.End,
		Catalog:     p.catalog,
		Incident:    incident,
		Confounders: opts.Confounders,
		RowCounts:   counts,
		Linkage:     linkStats,
		Events:      events,
		Validation:  validator.Result(),
		Summary:     summary,
	}, nil
}

func tsoRow(call models.TSOCall) []string {
	return []string{
		call.CallID,
		utils.ISOSecond(call.Timestamp),
		call.CustomerID,
		call.CustomerRegion,
		call.IssueCategory,
		call.IssueDescription,
		call.ServiceType,
		call.TransactionRef,
		strconv.Itoa(call.ResolutionMins),
		strconv.FormatBool(call.Escalated),
		call.ResolutionCode,
	}
}
