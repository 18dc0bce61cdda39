// Package sink persists generated rows. Every table is written through a RowWriter so the
// generators stay unaware of whether rows land in CSV files, SQLite, or both.
package sink

// Table names an output table and its column order.
type Table struct {
	Name    string
	Columns []string
	// Tier2 tables are only produced when tier-2 output is enabled.
	Tier2 bool
}

// FileName is the CSV file name used for t.
func (t Table) FileName() string {
	return "clickhouse-" + t.Name + ".csv"
}

// Output tables. Tier 2 tables are only written when enabled.
var (
	AppLogs = Table{Name: "app_logs", Columns: []string{
		"timestamp", "region", "cluster", "service", "host", "level", "transaction_id", "trace_id",
		"span_id", "customer_id", "transaction_type", "event", "dependency_region", "dependency_service",
		"dependency_latency_ms", "end_to_end_latency_ms", "http_status", "error_code", "circuit_id", "message",
	}}
	TraceSpans = Table{Name: "trace_spans", Columns: []string{
		"timestamp", "trace_id", "span_id", "parent_span_id", "transaction_id", "region", "service",
		"operation", "duration_ms", "status", "circuit_id",
	}}
	NetworkCircuitMetrics = Table{Name: "network_circuit_metrics", Columns: []string{
		"timestamp", "src_region", "dst_region", "circuit_id", "rtt_ms", "packet_loss_pct",
		"retransmits_per_s", "throughput_mbps",
	}}
	InfraHostMetrics = Table{Name: "infra_host_metrics", Columns: []string{
		"timestamp", "region", "host", "cpu_pct", "mem_pct", "disk_io_util_pct", "net_errs_per_s",
	}}
	TSOCalls = Table{Name: "tso_calls", Columns: []string{
		"call_id", "timestamp", "customer_id", "customer_region", "issue_category", "issue_description",
		"service_type", "transaction_id", "resolution_time_minutes", "escalated", "resolution_code",
	}}
	ServiceMetrics = Table{Tier2: true, Name: "service_metrics", Columns: []string{
		"timestamp", "region", "transaction_type", "req_count", "p50_latency_ms", "p95_latency_ms",
		"timeout_rate", "retry_rate", "queue_depth",
	}}
	NetworkEvents = Table{Tier2: true, Name: "network_events", Columns: []string{
		"event_id", "timestamp", "event_type", "src_region", "dst_region", "circuit_id", "severity", "description",
	}}
	TxnFacts = Table{Tier2: true, Name: "txn_facts", Columns: []string{
		"transaction_id", "customer_id", "origin_region", "txn_type", "start_ts", "end_ts", "success",
		"error_code", "end_to_end_latency_ms",
	}}
)

// AllTables lists every table in output order.
var AllTables = []Table{
	AppLogs, TraceSpans, TxnFacts, TSOCalls, ServiceMetrics, NetworkCircuitMetrics, InfraHostMetrics, NetworkEvents,
}

// Tables returns the tables produced for the given tier setting.
func Tables(tier2 bool) []Table {
	out := make([]Table, 0, len(AllTables))
	for _, t := range AllTables {
		if t.Tier2 && !tier2 {
			continue
		}
		out = append(out, t)
	}
	return out
}
