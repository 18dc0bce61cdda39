package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
)

const (
	// OutcomeSuccess labels completed generation runs.
	OutcomeSuccess = "success"
	// OutcomeError labels runs aborted by a consistency or I/O failure.
	OutcomeError = "error"
)

var (
	rowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_corpus",
			Name:      "rows_total",
			Help:      "Rows written, partitioned by output table.",
		},
		[]string{"table"},
	)

	tsoCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_corpus",
			Name:      "tso_calls_total",
			Help:      "Support calls emitted, partitioned by reference noise type.",
		},
		[]string{"noise_type"},
	)

	factsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_corpus",
			Name:      "facts_total",
			Help:      "Transaction facts generated, partitioned by impact tier.",
		},
		[]string{"impact"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_corpus",
			Name:      "runs_total",
			Help:      "Generation runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	generationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_corpus",
			Name:      "generation_seconds",
			Help:      "Wall-clock duration of a generation run in seconds.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 2400},
		},
	)
)

// Register attaches corpus collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		rowsTotal,
		tsoCallsTotal,
		factsTotal,
		runsTotal,
		generationDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// AddRows records n rows written to table.
func AddRows(table string, n int) {
	if n <= 0 {
		return
	}
	rowsTotal.WithLabelValues(table).Add(float64(n))
}

// ObserveFact counts one generated fact under its impact tier.
func ObserveFact(fact models.TransactionFact) {
	factsTotal.WithLabelValues(fact.ImpactTier()).Inc()
}

// ObserveCall counts one emitted support call.
func ObserveCall(noise models.NoiseType) {
	tsoCallsTotal.WithLabelValues(string(noise)).Inc()
}

// ObserveRun records a run duration and outcome label.
func ObserveRun(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	runsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	generationDurationSeconds.Observe(duration.Seconds())
}

// WriteTextfile dumps every metric gathered by g to path in the node-exporter textfile format.
func WriteTextfile(g prometheus.Gatherer, path string) error {
	return prometheus.WriteToTextfile(path, g)
}
