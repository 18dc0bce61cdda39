package derive

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/network"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
	"github.com/miradorstack/mirador-rca-corpus/internal/scenario"
	"github.com/miradorstack/mirador-rca-corpus/internal/sink"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

type capture struct {
	rows map[string][][]string
}

func newCapture() *capture {
	return &capture{rows: map[string][][]string{}}
}

func (c *capture) WriteRow(table sink.Table, row []string) error {
	c.rows[table.Name] = append(c.rows[table.Name], row)
	return nil
}

func (c *capture) column(table sink.Table, row []string, name string) string {
	for i, col := range table.Columns {
		if col == name {
			return row[i]
		}
	}
	return ""
}

var t0 = time.Date(2025, 12, 3, 14, 0, 0, 0, time.UTC)

func simpleFact() models.TransactionFact {
	return models.TransactionFact{
		TransactionID:     "TX-20251203140000-0000001",
		TraceID:           "tr0123456789ab",
		CustomerID:        "CUST-12345678",
		CustomerRegion:    "west",
		Type:              "update_billing",
		ServiceType:       "fiber_internet",
		Region:            "west",
		StartTS:           t0,
		EndTS:             t0.Add(300 * time.Millisecond),
		FinalStatus:       models.StatusSuccess,
		HTTPStatus:        "200",
		EndToEndLatencyMS: 300,
		BaseLatencyMS:     280,
	}
}

func crossRegionTimeout() models.TransactionFact {
	f := simpleFact()
	f.Region, f.CustomerRegion = "central", "central"
	f.Type = "provision_fiber_sqs"
	f.CrossRegion = true
	f.DependencyRegion = "east"
	f.DependencyService = "inventory-client"
	f.CircuitID = scenario.IncidentCircuitID
	f.DependencyLatencyMS = 4000
	f.RetryCount = 2
	f.FinalStatus, f.HTTPStatus, f.ErrorCode = models.StatusTimeout, "504", "DEP_TIMEOUT"
	f.ImpactedByPrimary = true
	f.ClockSkewMS = -250
	return f
}

func TestLogsSimpleFact(t *testing.T) {
	c := newCapture()
	counter := sink.NewCounter(c, nil)
	n, err := NewDeriver(random.New(11)).Logs(counter, simpleFact())
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	rows := c.rows["app_logs"]
	require.Len(t, rows, 5)
	var events []string
	for _, row := range rows {
		events = append(events, c.column(sink.AppLogs, row, "event"))
	}
	assert.Equal(t, []string{"received", "queued", "orchestrated", "worker_progress", "completed"}, events)
	last := rows[4]
	assert.Equal(t, "300", c.column(sink.AppLogs, last, "end_to_end_latency_ms"))
	assert.Empty(t, c.column(sink.AppLogs, last, "dependency_latency_ms"))
	assert.Equal(t, "completed", c.column(sink.AppLogs, last, "message"))
	assert.Regexp(t, `^fibersqs-prod-west-host\d{2}$`, c.column(sink.AppLogs, last, "host"))
}

func TestLogsCrossRegionTimeout(t *testing.T) {
	c := newCapture()
	fact := crossRegionTimeout()
	n, err := NewDeriver(random.New(11)).Logs(sink.NewCounter(c, nil), fact)
	require.NoError(t, err)
	// received, queued, orchestrated, 3 x (dependency_call, worker_progress), timeout, retry
	assert.Equal(t, 11, n)

	rows := c.rows["app_logs"]
	assert.Equal(t, utils.ISO(fact.StartTS.Add(-250*time.Millisecond)), rows[0][0])

	var deps, retries int
	for _, row := range rows {
		switch c.column(sink.AppLogs, row, "event") {
		case "dependency_call":
			deps++
			assert.Equal(t, "WARN", c.column(sink.AppLogs, row, "level"))
			assert.NotEmpty(t, c.column(sink.AppLogs, row, "dependency_latency_ms"))
		case "worker_progress":
			if c.column(sink.AppLogs, row, "service") == "worker-retry" {
				retries++
			}
		case "timeout":
			assert.Equal(t, "ERROR", c.column(sink.AppLogs, row, "level"))
			assert.Equal(t, "DEP_TIMEOUT", c.column(sink.AppLogs, row, "error_code"))
			assert.Equal(t, "4000", c.column(sink.AppLogs, row, "dependency_latency_ms"))
		}
		assert.Equal(t, scenario.IncidentCircuitID, c.column(sink.AppLogs, row, "circuit_id"))
	}
	assert.Equal(t, 3, deps)
	assert.Equal(t, 2, retries)
	assert.Equal(t, "retry", c.column(sink.AppLogs, rows[10], "event"))
}

func TestSpans(t *testing.T) {
	c := newCapture()
	d := NewDeriver(random.New(3))

	n, err := d.Spans(c, simpleFact())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = d.Spans(c, crossRegionTimeout())
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rows := c.rows["trace_spans"]
	require.Len(t, rows, 7)
	root, orch, dep := rows[3], rows[4], rows[6]
	assert.Empty(t, root[3])
	assert.Equal(t, root[2], orch[3])
	assert.Equal(t, orch[2], dep[3])
	assert.Equal(t, "inventory-client", dep[6])
	assert.Equal(t, "error", dep[9])
	assert.Equal(t, scenario.IncidentCircuitID, dep[10])
	assert.Equal(t, "120", orch[8])
}

func TestFactRow(t *testing.T) {
	row := FactRow(crossRegionTimeout())
	require.Len(t, row, len(sink.TxnFacts.Columns))
	assert.Equal(t, "central", row[2])
	assert.Equal(t, "false", row[6])
	assert.Equal(t, "DEP_TIMEOUT", row[7])
	assert.Equal(t, "true", FactRow(simpleFact())[6])
}

func TestServiceMetrics(t *testing.T) {
	agg := NewServiceMetrics()
	for i := 0; i < 4; i++ {
		f := simpleFact()
		f.StartTS = t0.Add(time.Duration(i) * 10 * time.Second)
		f.EndToEndLatencyMS = float64(100 * (i + 1))
		agg.Add(f)
	}
	timeout := crossRegionTimeout()
	agg.Add(timeout)
	require.Equal(t, 2, agg.Len())

	c := newCapture()
	n, err := agg.Flush(sink.NewCounter(c, nil))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := c.rows["service_metrics"]
	assert.Equal(t, []string{utils.ISO(t0), "west", "update_billing", "4", "300", "400", "0", "0", "0"}, rows[0])
	assert.Equal(t, []string{"1", "1", "1"}, []string{rows[1][3], rows[1][6], rows[1][7]})
}

func TestInfraSweepCPUSpike(t *testing.T) {
	confounders := scenario.DefaultConfounders()
	cpu, _ := scenario.FindConfounder(confounders, scenario.CPUSpikeConfounder)
	c := newCapture()
	summary, err := InfraSweep(context.Background(), c, random.New(67), Hosts(), confounders, cpu.Start.Add(-time.Hour), cpu.Start.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 24*3*HostsPerRegion, summary.Rows)
	assert.Len(t, c.rows["infra_host_metrics"], summary.Rows)
	assert.GreaterOrEqual(t, summary.CPUMax["central"], 75.0)
	assert.Less(t, summary.CPUMax["west"], 52.0)
	assert.Less(t, summary.CPUMax["east"], 52.0)
}

func TestInfraSweepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := InfraSweep(ctx, newCapture(), random.New(1), Hosts(), nil, t0, t0.Add(time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNetworkSweepSummary(t *testing.T) {
	incident := scenario.BuildIncident(7)
	topo := network.BuildTopology(incident, scenario.DefaultCatalog().RegionPairs(), random.New(58))
	start := incident.Start.Add(-30 * time.Minute)
	end := incident.Start.Add(90 * time.Minute)
	cpuWindow := utils.Window{Start: start, End: incident.Start}

	c := newCapture()
	summary, err := NetworkSweep(context.Background(), c, random.New(44), topo, incident, start, end, cpuWindow)
	require.NoError(t, err)

	assert.Equal(t, 120*len(topo.Circuits()), summary.Rows)
	require.Positive(t, summary.BurstSamples)
	require.Positive(t, summary.BaselineSamples)
	assert.Greater(t, summary.BurstRTT()/summary.BaselineRTT(), 4.0)
	assert.Equal(t, 30, summary.WatchSamples)
	assert.Equal(t, 1.0, summary.PeakMultiplierInWatch())
}

func TestNetworkSummaryFallbacks(t *testing.T) {
	var empty NetworkSummary
	assert.Equal(t, 1.0, empty.BurstRTT())
	assert.Equal(t, 1.0, empty.BaselineRTT())
	assert.Equal(t, 1.0, empty.PeakMultiplierInWatch())

	var onlyBase NetworkSummary
	onlyBase.observe(models.NetworkSample{RTTMS: 20, Multiplier: 1})
	onlyBase.observe(models.NetworkSample{RTTMS: 17, Multiplier: 1})
	assert.Equal(t, 20.0, onlyBase.BurstRTT())
	assert.Equal(t, 17.0, onlyBase.BaselineRTT())
}

func TestNetworkEvents(t *testing.T) {
	incident := scenario.BuildIncident(7)
	topo := network.BuildTopology(incident, scenario.DefaultCatalog().RegionPairs(), random.New(58))
	events := NetworkEvents(random.New(86), topo, incident, scenario.DefaultStart, scenario.DefaultEnd)
	require.Len(t, events, 2+BackgroundEvents)

	assert.Equal(t, models.SeverityCritical, events[0].Severity)
	assert.Equal(t, incident.Start, events[0].Timestamp)
	assert.Equal(t, incident.FixTime, events[1].Timestamp)
	for i, ev := range events {
		assert.Equal(t, fmt.Sprintf("EVT-%06d", i), ev.EventID)
		if i >= 2 {
			assert.NotEqual(t, models.SeverityCritical, ev.Severity)
			assert.NotEqual(t, incident.CircuitID, ev.CircuitID)
		}
	}

	c := newCapture()
	n, err := WriteNetworkEvents(sink.NewCounter(c, nil), events)
	require.NoError(t, err)
	assert.Equal(t, len(events), n)
}
