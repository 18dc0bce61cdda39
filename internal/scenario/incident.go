package scenario

import (
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

// IncidentCircuitID is the degraded central -> east circuit.
const IncidentCircuitID = "CKT-CEN-EAS-003"

// BurstParams shapes the periodic-with-jitter burst process.
type BurstParams struct {
	Period      time.Duration
	Jitter      time.Duration
	MinDuration time.Duration
	MaxDuration time.Duration
}

// DefaultBurstParams starts a burst every 20 minutes, jittered by up to two minutes,
// lasting 4 to 7 minutes.
var DefaultBurstParams = BurstParams{
	Period:      20 * time.Minute,
	Jitter:      2 * time.Minute,
	MinDuration: 4 * time.Minute,
	MaxDuration: 7 * time.Minute,
}

// BuildIncident deterministically builds the primary incident window for seed.
func BuildIncident(seed int64) models.IncidentWindow {
	stream := random.New(seed + 991)
	start := time.Date(2025, 12, 3, 12, 20, 0, 0, time.UTC)
	end := time.Date(2025, 12, 5, 18, 10, 0, 0, time.UTC)
	return models.IncidentWindow{
		Start:     start,
		End:       end,
		FixTime:   time.Date(2025, 12, 5, 18, 15, 0, 0, time.UTC),
		Bursts:    GenerateBursts(start, end, stream, DefaultBurstParams),
		CircuitID: IncidentCircuitID,
		SrcRegion: "central",
		DstRegion: "east",
	}
}

// GenerateBursts lays bursts across [start,end): one every Period, each start jittered by
// ±Jitter and each duration uniform in [MinDuration,MaxDuration], clipped to the window.
func GenerateBursts(start, end time.Time, stream *random.Stream, p BurstParams) []utils.Window {
	var bursts []utils.Window
	for cursor := start; cursor.Before(end); cursor = cursor.Add(p.Period) {
		jitter := time.Duration(stream.Uniform(-float64(p.Jitter), float64(p.Jitter)))
		burstStart := cursor.Add(jitter)
		duration := time.Duration(stream.Uniform(float64(p.MinDuration), float64(p.MaxDuration)))
		burstEnd := burstStart.Add(duration)
		if burstEnd.After(end) {
			burstEnd = end
		}
		if burstStart.Before(start) {
			burstStart = start
		}
		if !burstEnd.After(burstStart) {
			continue
		}
		bursts = append(bursts, utils.Window{Start: burstStart, End: burstEnd})
	}
	return bursts
}

// DefaultConfounders returns the two hand-placed anomalies that must not be attributed
// to the primary incident.
func DefaultConfounders() []models.ConfounderWindow {
	return []models.ConfounderWindow{
		{
			Name:        CPUSpikeConfounder,
			Start:       time.Date(2025, 12, 2, 9, 30, 0, 0, time.UTC),
			End:         time.Date(2025, 12, 2, 11, 0, 0, 0, time.UTC),
			Region:      "central",
			Component:   "infra",
			Description: "Short CPU saturation on central hosts",
		},
		{
			Name:        DeploymentBlipConfounder,
			Start:       time.Date(2025, 12, 6, 17, 0, 0, 0, time.UTC),
			End:         time.Date(2025, 12, 6, 18, 0, 0, 0, time.UTC),
			Region:      "west",
			Component:   "app",
			Description: "Deployment-induced latency bump in west",
		},
	}
}

// Confounder names with dedicated infra signatures.
const (
	CPUSpikeConfounder       = "central_cpu_spike"
	DeploymentBlipConfounder = "west_deployment_blip"
)

// FindConfounder returns the confounder named name.
func FindConfounder(confounders []models.ConfounderWindow, name string) (models.ConfounderWindow, bool) {
	for _, c := range confounders {
		if c.Name == name {
			return c, true
		}
	}
	return models.ConfounderWindow{}, false
}
