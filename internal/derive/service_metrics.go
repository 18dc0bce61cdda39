package derive

import (
	"strconv"
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/sink"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

type bucketKey struct {
	minute  time.Time
	region  string
	txnType string
}

type metricBucket struct {
	latencies  *utils.SampleSet
	requests   int
	retries    int
	timeouts   int
	queueDepth float64
}

// ServiceMetrics aggregates facts per minute, region and transaction type. Buckets are
// flushed in the order they were first seen.
type ServiceMetrics struct {
	order   []bucketKey
	buckets map[bucketKey]*metricBucket
}

// NewServiceMetrics returns an empty aggregator.
func NewServiceMetrics() *ServiceMetrics {
	return &ServiceMetrics{buckets: make(map[bucketKey]*metricBucket)}
}

// Add folds fact into its bucket.
func (s *ServiceMetrics) Add(fact models.TransactionFact) {
	key := bucketKey{minute: fact.StartTS.Truncate(time.Minute), region: fact.Region, txnType: fact.Type}
	b, ok := s.buckets[key]
	if !ok {
		b = &metricBucket{latencies: utils.NewSampleSet(0)}
		s.buckets[key] = b
		s.order = append(s.order, key)
	}
	b.latencies.Observe(fact.EndToEndLatencyMS)
	b.requests++
	b.queueDepth += float64(max(0, fact.RetryCount-1))
	if fact.RetryCount > 0 {
		b.retries++
	}
	if fact.TimedOut() {
		b.timeouts++
	}
}

// Len returns the number of buckets.
func (s *ServiceMetrics) Len() int {
	return len(s.order)
}

// Flush writes one row per bucket and returns the row count.
func (s *ServiceMetrics) Flush(w sink.RowWriter) (int, error) {
	for i, key := range s.order {
		b := s.buckets[key]
		req := float64(max(1, b.requests))
		row := []string{
			utils.ISO(key.minute),
			key.region,
			key.txnType,
			strconv.Itoa(b.requests),
			utils.FormatFloat(b.latencies.Quantile(0.5), 2),
			utils.FormatFloat(b.latencies.Quantile(0.95), 2),
			utils.FormatFloat(float64(b.timeouts)/req, 4),
			utils.FormatFloat(float64(b.retries)/req, 4),
			utils.FormatFloat(b.queueDepth/req, 2),
		}
		if err := w.WriteRow(sink.ServiceMetrics, row); err != nil {
			return i, err
		}
	}
	return len(s.order), nil
}
