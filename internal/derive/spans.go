package derive

import (
	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/sink"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

func spanStatus(fact models.TransactionFact) string {
	if fact.TimedOut() {
		return "error"
	}
	return "ok"
}

// Spans writes the trace of fact: api root, orchestrator, worker, and a dependency span when
// the fact crosses regions. It returns the number of spans written.
func (d *Deriver) Spans(w sink.RowWriter, fact models.TransactionFact) (int, error) {
	start := utils.ISO(fact.StartTS)
	status := spanStatus(fact)
	span := func(spanID, parent, service, operation string, durationMS float64, status, circuit string) []string {
		return []string{
			start, fact.TraceID, spanID, parent, fact.TransactionID, fact.Region,
			service, operation, utils.FormatFloat(durationMS, 2), status, circuit,
		}
	}

	root := d.rng.HexID("sp", 12)
	orchestrator := d.rng.HexID("sp", 12)
	worker := d.rng.HexID("sp", 12)
	rows := [][]string{
		span(root, "", "api", "POST /fiber/txn", fact.EndToEndLatencyMS, status, ""),
		span(orchestrator, root, "orchestrator", "coordinate", fact.EndToEndLatencyMS*0.4, "ok", ""),
		span(worker, orchestrator, "worker", "apply", fact.EndToEndLatencyMS*0.5, status, ""),
	}
	if fact.CrossRegion {
		service := fact.DependencyService
		if service == "" {
			service = "inventory-client"
		}
		rows = append(rows, span(d.rng.HexID("sp", 12), orchestrator, service, "HTTP POST", fact.DependencyLatencyMS, status, fact.CircuitID))
	}
	for i, row := range rows {
		if err := w.WriteRow(sink.TraceSpans, row); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}

// FactRow projects fact onto the txn_facts table.
func FactRow(fact models.TransactionFact) []string {
	success := "true"
	if fact.TimedOut() {
		success = "false"
	}
	return []string{
		fact.TransactionID,
		fact.CustomerID,
		fact.Region,
		fact.Type,
		utils.ISO(fact.StartTS),
		utils.ISO(fact.EndTS),
		success,
		fact.ErrorCode,
		utils.FormatFloat(fact.EndToEndLatencyMS, 2),
	}
}
