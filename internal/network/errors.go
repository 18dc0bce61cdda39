package network

import (
	"errors"
	"fmt"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
)

// ErrTopologyMismatch is matched by every TopologyError.
var ErrTopologyMismatch = errors.New("circuit topology mismatch")

// TopologyError reports a cross-region fact that does not resolve to a matching circuit.
// It is fatal: a partially consistent corpus is discarded.
type TopologyError struct {
	TransactionID string
	CircuitID     string
	Reason        string
	FactSrc       string
	FactDst       string
	CircuitSrc    string
	CircuitDst    string
}

func (e *TopologyError) Error() string {
	if e.CircuitSrc == "" && e.CircuitDst == "" {
		return fmt.Sprintf("txn %s: %s (circuit=%q)", e.TransactionID, e.Reason, e.CircuitID)
	}
	return fmt.Sprintf("txn %s: %s: fact=(%s->%s) circuit %s=(%s->%s)",
		e.TransactionID, e.Reason, e.FactSrc, e.FactDst, e.CircuitID, e.CircuitSrc, e.CircuitDst)
}

func (e *TopologyError) Unwrap() error {
	return ErrTopologyMismatch
}

// VerifyFact checks that a cross-region fact names a known circuit whose endpoints equal
// (fact.Region, fact.DependencyRegion). Facts that stay in-region always pass.
func (t *Topology) VerifyFact(fact models.TransactionFact) error {
	if !fact.CrossRegion {
		return nil
	}
	if fact.CircuitID == "" {
		return &TopologyError{TransactionID: fact.TransactionID, Reason: "cross-region fact missing circuit id"}
	}
	circuit, ok := t.Circuit(fact.CircuitID)
	if !ok {
		return &TopologyError{TransactionID: fact.TransactionID, CircuitID: fact.CircuitID, Reason: "unknown circuit"}
	}
	if circuit.SrcRegion != fact.Region || circuit.DstRegion != fact.DependencyRegion {
		return &TopologyError{
			TransactionID: fact.TransactionID,
			CircuitID:     fact.CircuitID,
			Reason:        "circuit endpoints do not match fact",
			FactSrc:       fact.Region,
			FactDst:       fact.DependencyRegion,
			CircuitSrc:    circuit.SrcRegion,
			CircuitDst:    circuit.DstRegion,
		}
	}
	return nil
}
