// Package derive turns transaction facts and the scenario into table rows: per-fact
// application logs and trace spans, aggregated service metrics, and the time-driven
// infrastructure and network sweeps.
package derive

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
	"github.com/miradorstack/mirador-rca-corpus/internal/sink"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

// Deriver emits the per-fact log and span rows. It owns its random stream.
type Deriver struct {
	rng *random.Stream
}

// NewDeriver returns a Deriver drawing from rng.
func NewDeriver(rng *random.Stream) *Deriver {
	return &Deriver{rng: rng}
}

func ms(v float64) time.Duration {
	return time.Duration(v * float64(time.Millisecond))
}

// jitter shifts ts forward by up to one second.
func (d *Deriver) jitter(ts time.Time) time.Time {
	return ts.Add(time.Duration(d.rng.Uniform(0, 1) * float64(time.Second)))
}

type logLine struct {
	event      string
	service    string
	ts         time.Time
	level      string
	depLatency *float64
	endToEnd   *float64
	httpStatus string
	errorCode  string
	message    string
}

// Logs writes the application log lines of fact and returns how many were written.
// Timestamps carry the fact's clock skew.
func (d *Deriver) Logs(w sink.RowWriter, fact models.TransactionFact) (int, error) {
	skew := time.Duration(fact.ClockSkewMS) * time.Millisecond
	base := fact.StartTS.Add(skew)
	cluster := "fibersqs-prod-" + fact.Region
	host := fmt.Sprintf("fibersqs-prod-%s-host%02d", fact.Region, d.rng.IntRange(1, 48))

	rows := 0
	emit := func(l logLine) error {
		row := []string{
			utils.ISO(l.ts),
			fact.Region,
			cluster,
			l.service,
			host,
			l.level,
			fact.TransactionID,
			fact.TraceID,
			d.rng.HexID("sp", 12),
			fact.CustomerID,
			fact.Type,
			l.event,
			fact.DependencyRegion,
			fact.DependencyService,
			"",
			"",
			l.httpStatus,
			l.errorCode,
			fact.CircuitID,
			l.message,
		}
		if l.depLatency != nil {
			row[14] = strconv.Itoa(int(*l.depLatency))
		}
		if l.endToEnd != nil {
			row[15] = utils.FormatFloat(*l.endToEnd, 2)
		}
		if err := w.WriteRow(sink.AppLogs, row); err != nil {
			return err
		}
		rows++
		return nil
	}

	lines := []logLine{
		{event: "received", service: "api", ts: base, level: "INFO", message: "request received"},
		{event: "queued", service: "api", ts: d.jitter(base.Add(10 * time.Millisecond)), level: "INFO", message: "queued for orchestrator"},
	}
	for _, l := range lines {
		if err := emit(l); err != nil {
			return rows, err
		}
	}

	orchestrated := d.jitter(base.Add(40 * time.Millisecond))
	if err := emit(logLine{event: "orchestrated", service: "orchestrator", ts: orchestrated, level: "INFO", message: "routing transaction"}); err != nil {
		return rows, err
	}

	for attempt := 0; attempt < fact.AttemptCount(); attempt++ {
		attemptTS := d.jitter(orchestrated.Add(time.Duration(50+attempt*30) * time.Millisecond))
		workerDelay := 80.0
		if fact.CrossRegion {
			latency := fact.DependencyLatencyMS * (1.0 + d.rng.Uniform(-0.15, 0.15))
			workerDelay = latency
			level := "INFO"
			if fact.ImpactedByPrimary {
				level = "WARN"
			}
			if err := emit(logLine{event: "dependency_call", service: "orchestrator", ts: attemptTS, level: level, depLatency: &latency, message: "dependency call"}); err != nil {
				return rows, err
			}
		}
		worker := "worker-retry"
		if attempt == fact.RetryCount {
			worker = "worker"
		}
		if err := emit(logLine{event: "worker_progress", service: worker, ts: attemptTS.Add(ms(workerDelay)), level: "INFO", message: "worker progressing"}); err != nil {
			return rows, err
		}
	}

	completion := fact.EndTS.Add(skew)
	final := logLine{
		event:      "completed",
		service:    "api",
		ts:         completion,
		level:      "INFO",
		endToEnd:   &fact.EndToEndLatencyMS,
		httpStatus: fact.HTTPStatus,
		errorCode:  fact.ErrorCode,
		message:    fact.FinalStatus,
	}
	if fact.CrossRegion {
		final.depLatency = &fact.DependencyLatencyMS
	}
	if strings.HasPrefix(fact.FinalStatus, "completed") {
		final.message = "completed"
	}
	if fact.TimedOut() {
		final.event, final.level = "timeout", "ERROR"
	}
	if err := emit(final); err != nil {
		return rows, err
	}

	if fact.TimedOut() {
		if err := emit(logLine{event: "retry", service: "api", ts: completion.Add(5 * time.Millisecond), level: "WARN", message: "queued for manual retry"}); err != nil {
			return rows, err
		}
	}
	return rows, nil
}
