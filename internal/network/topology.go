// Package network models the inter-region circuits: their baseline signatures, the
// incident-driven degradation applied while sampling, and the route lookup facts use to
// pick a circuit.
package network

import (
	"fmt"
	"strings"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
)

// IncidentBaseline is the fixed signature of the incident circuit.
var IncidentBaseline = models.CircuitBaseline{
	RTTMS:          18.0,
	LossPct:        0.0002,
	RetransmitsPS:  8.0,
	ThroughputMbps: 360.0,
}

// Route is one ordered region pair and the circuits serving it, in creation order.
type Route struct {
	Src        string
	Dst        string
	CircuitIDs []string
}

// Topology is the circuit catalog plus its region-pair lookup. Iteration always follows
// insertion order so sweeps and route choices are reproducible.
type Topology struct {
	incidentID string
	circuits   []models.Circuit
	byID       map[string]int
	routes     []Route
	routeIndex map[[2]string]int
}

// BuildTopology creates the incident circuit first and then one circuit per pair with a
// randomized baseline.
func BuildTopology(incident models.IncidentWindow, pairs [][2]string, stream *random.Stream) *Topology {
	t := &Topology{
		incidentID: incident.CircuitID,
		byID:       make(map[string]int, len(pairs)+1),
		routeIndex: make(map[[2]string]int, len(pairs)+1),
	}
	t.add(models.Circuit{
		ID:        incident.CircuitID,
		SrcRegion: incident.SrcRegion,
		DstRegion: incident.DstRegion,
		Baseline:  IncidentBaseline,
	})
	for _, pair := range pairs {
		src, dst := pair[0], pair[1]
		id := fmt.Sprintf("CKT-%s-%s-%d", regionCode(src), regionCode(dst), stream.IntRange(210, 298))
		t.add(models.Circuit{
			ID:        id,
			SrcRegion: src,
			DstRegion: dst,
			Baseline: models.CircuitBaseline{
				RTTMS:          stream.Uniform(20, 45),
				LossPct:        stream.Uniform(0.00005, 0.0004),
				RetransmitsPS:  stream.Uniform(3, 12),
				ThroughputMbps: stream.Uniform(300, 650),
			},
		})
	}
	return t
}

func regionCode(region string) string {
	if len(region) > 3 {
		region = region[:3]
	}
	return strings.ToUpper(region)
}

// add registers c. A repeated id replaces the earlier circuit's signature but keeps its slot.
func (t *Topology) add(c models.Circuit) {
	if idx, ok := t.byID[c.ID]; ok {
		t.circuits[idx] = c
		return
	}
	t.byID[c.ID] = len(t.circuits)
	t.circuits = append(t.circuits, c)

	key := [2]string{c.SrcRegion, c.DstRegion}
	idx, ok := t.routeIndex[key]
	if !ok {
		idx = len(t.routes)
		t.routeIndex[key] = idx
		t.routes = append(t.routes, Route{Src: c.SrcRegion, Dst: c.DstRegion})
	}
	t.routes[idx].CircuitIDs = append(t.routes[idx].CircuitIDs, c.ID)
}

// IncidentCircuitID returns the id of the degraded circuit.
func (t *Topology) IncidentCircuitID() string {
	return t.incidentID
}

// Circuits returns all circuits in creation order. Callers must not modify the slice.
func (t *Topology) Circuits() []models.Circuit {
	return t.circuits
}

// Circuit looks a circuit up by id.
func (t *Topology) Circuit(id string) (models.Circuit, bool) {
	idx, ok := t.byID[id]
	if !ok {
		return models.Circuit{}, false
	}
	return t.circuits[idx], true
}

// CircuitsFor returns the circuits serving src -> dst.
func (t *Topology) CircuitsFor(src, dst string) []string {
	idx, ok := t.routeIndex[[2]string{src, dst}]
	if !ok {
		return nil
	}
	return t.routes[idx].CircuitIDs
}

// RoutesFrom lists the routes leaving src towards another region.
func (t *Topology) RoutesFrom(src string) []Route {
	var out []Route
	for _, r := range t.routes {
		if r.Src == src && r.Dst != src {
			out = append(out, r)
		}
	}
	return out
}

// PreferredCircuits returns the circuits for r excluding the incident circuit, falling back
// to every circuit of the route and finally to the incident circuit alone.
func (t *Topology) PreferredCircuits(r Route) []string {
	var out []string
	for _, id := range r.CircuitIDs {
		if id != t.incidentID {
			out = append(out, id)
		}
	}
	if len(out) > 0 {
		return out
	}
	if len(r.CircuitIDs) > 0 {
		return r.CircuitIDs
	}
	return []string{t.incidentID}
}
