// Package scenario holds the incident narrative: the primary incident window with its bursts,
// the confounding windows, and the immutable business catalog every generator reads.
package scenario

import (
	"slices"
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/random"
)

// DatasetName names the generated corpus.
const DatasetName = "simulated_fibersqs_cross_region_latency_tso"

// Default simulation horizon.
var (
	DefaultStart = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	DefaultEnd   = time.Date(2025, 12, 8, 0, 0, 0, 0, time.UTC)
)

// Catalog is the per-run business vocabulary: regions, transaction types and their weights.
// Build one with DefaultCatalog and treat it as read-only.
type Catalog struct {
	Regions           []string
	RegionWeights     []random.Weighted
	ImpactedTypes     []string
	NonImpactedTypes  []string
	ServiceTypes      map[string]string
	DependencyService string
	ServicesChain     []string
	// HotRegion receives the heavier provisioning mix.
	HotRegion         string
}

// DefaultCatalog returns the Fiber SQS catalog.
func DefaultCatalog() Catalog {
	return Catalog{
		Regions: []string{"east", "west", "central", "north", "south"},
		RegionWeights: []random.Weighted{
			{Key: "east", Weight: 0.25},
			{Key: "west", Weight: 0.20},
			{Key: "central", Weight: 0.35},
			{Key: "north", Weight: 0.10},
			{Key: "south", Weight: 0.10},
		},
		ImpactedTypes: []string{"provision_fiber_sqs", "modify_service_profile"},
		NonImpactedTypes: []string{
			"cancel_subscription",
			"diagnostic_ping",
			"update_billing",
			"firmware_update",
			"service_health_check",
		},
		ServiceTypes: map[string]string{
			"provision_fiber_sqs":    "fiber_sqs",
			"modify_service_profile": "fiber_sqs",
			"cancel_subscription":    "fiber_tv",
			"diagnostic_ping":        "fiber_sqs",
			"update_billing":         "fiber_internet",
			"firmware_update":        "fiber_internet",
			"service_health_check":   "fiber_sqs",
		},
		DependencyService: "inventory-client",
		ServicesChain:     []string{"api", "orchestrator", "worker"},
		HotRegion:         "central",
	}
}

// IsImpactedType reports whether txnType degrades during the primary incident.
func (c Catalog) IsImpactedType(txnType string) bool {
	return slices.Contains(c.ImpactedTypes, txnType)
}

// TypeWeights returns the transaction mix for region.
func (c Catalog) TypeWeights(region string) []random.Weighted {
	provision, modify := 0.15, 0.12
	if region == c.HotRegion {
		provision, modify = 0.25, 0.18
	}
	return []random.Weighted{
		{Key: "provision_fiber_sqs", Weight: provision},
		{Key: "modify_service_profile", Weight: modify},
		{Key: "cancel_subscription", Weight: 0.08},
		{Key: "diagnostic_ping", Weight: 0.17},
		{Key: "update_billing", Weight: 0.17},
		{Key: "firmware_update", Weight: 0.10},
		{Key: "service_health_check", Weight: 0.15},
	}
}

// RegionPairs returns every ordered pair of distinct regions.
func (c Catalog) RegionPairs() [][2]string {
	pairs := make([][2]string, 0, len(c.Regions)*(len(c.Regions)-1))
	for _, src := range c.Regions {
		for _, dst := range c.Regions {
			if src != dst {
				pairs = append(pairs, [2]string{src, dst})
			}
		}
	}
	return pairs
}
