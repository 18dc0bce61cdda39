package linkage

import (
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
)

type bufferedFact struct {
	endTS         time.Time
	region        string
	transactionID string
	customerID    string
}

// FactBuffer is a ring-buffer FIFO of recently completed facts. Entries older than horizon
// relative to the latest completion seen are evicted from the front; when full the oldest
// entry is evicted as well.
type FactBuffer struct {
	entries []bufferedFact
	head    int
	size    int
	horizon time.Duration
	latest  time.Time
}

// NewFactBuffer returns a buffer holding at most capacity facts.
func NewFactBuffer(horizon time.Duration, capacity int) *FactBuffer {
	return &FactBuffer{entries: make([]bufferedFact, max(1, capacity)), horizon: horizon}
}

// Len returns the number of buffered facts.
func (b *FactBuffer) Len() int {
	return b.size
}

// Add records a completed fact.
func (b *FactBuffer) Add(fact models.TransactionFact) {
	if fact.EndTS.After(b.latest) {
		b.latest = fact.EndTS
	}
	b.prune()
	if b.size == len(b.entries) {
		b.popFront()
	}
	idx := (b.head + b.size) % len(b.entries)
	b.entries[idx] = bufferedFact{
		endTS:         fact.EndTS,
		region:        fact.CustomerRegion,
		transactionID: fact.TransactionID,
		customerID:    fact.CustomerID,
	}
	b.size++
}

func (b *FactBuffer) prune() {
	cutoff := b.latest.Add(-b.horizon)
	for b.size > 0 && b.entries[b.head].endTS.Before(cutoff) {
		b.popFront()
	}
}

func (b *FactBuffer) popFront() {
	b.entries[b.head] = bufferedFact{}
	b.head = (b.head + 1) % len(b.entries)
	b.size--
}

// Decoys returns transaction ids of facts in region from another customer that completed
// between minAge and maxAge (inclusive) before at.
func (b *FactBuffer) Decoys(at time.Time, region, customerID string, minAge, maxAge time.Duration) []string {
	var out []string
	for i := 0; i < b.size; i++ {
		e := b.entries[(b.head+i)%len(b.entries)]
		if e.region != region || e.customerID == customerID {
			continue
		}
		age := at.Sub(e.endTS)
		if age >= minAge && age <= maxAge {
			out = append(out, e.transactionID)
		}
	}
	return out
}
