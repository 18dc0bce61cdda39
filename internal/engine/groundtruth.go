package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/network"
	"github.com/miradorstack/mirador-rca-corpus/internal/scenario"
	"github.com/miradorstack/mirador-rca-corpus/internal/sink"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

// Artifact file names written next to the data directory.
const (
	GroundTruthFile       = "ground_truth.json"
	ValidationSummaryFile = "validation_summary.json"
)

// GroundTruth is the answer key shipped with every dataset.
type GroundTruth struct {
	DatasetName     string              `json:"dataset_name"`
	RunID           string              `json:"run_id"`
	TimeRange       TimeRange           `json:"time_range"`
	PrimaryIncident PrimaryIncident     `json:"primary_incident"`
	Confounders     []ConfounderSummary `json:"confounders"`
	Generation      GenerationSummary   `json:"generation"`
	TSONoise        NoiseSummary        `json:"tso_noise"`
}

// TimeRange is the simulated horizon.
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// PrimaryIncident describes the injected root cause.
type PrimaryIncident struct {
	RootCauseType            string   `json:"root_cause_type"`
	CircuitID                string   `json:"circuit_id"`
	SrcRegion                string   `json:"src_region"`
	DstRegion                string   `json:"dst_region"`
	Start                    string   `json:"start"`
	End                      string   `json:"end"`
	FixTime                  string   `json:"fix_time"`
	BurstCount               int      `json:"burst_count"`
	AffectedTransactionTypes []string `json:"affected_transaction_types"`
}

// ConfounderSummary is one decoy anomaly that is not the root cause.
type ConfounderSummary struct {
	Name        string `json:"name"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Component   string `json:"component"`
	Region      string `json:"region"`
	Description string `json:"description"`
}

// GenerationSummary records how the corpus was produced.
type GenerationSummary struct {
	Seed       int64            `json:"seed"`
	RowCounts  sink.RowCounts   `json:"row_counts"`
	Parameters GenerationParams `json:"parameters"`
}

// GenerationParams records the fixed shape of the injected incident.
type GenerationParams struct {
	BurstIntervalMinutes int        `json:"incident_burst_interval_minutes"`
	BurstDurationMinutes [2]int     `json:"incident_burst_duration_minutes"`
	BaselineRTTMS        float64    `json:"network_baseline_rtt_ms"`
	BurstRTTRangeMS      [2]float64 `json:"network_burst_rtt_range_ms"`
	DependencyMultiplier [2]float64 `json:"dependency_latency_multiplier"`
	TransactionCount     int        `json:"transaction_count"`
	Tier2                bool       `json:"tier2"`
}

// NoiseCounts keeps the four categories in reporting order.
type NoiseCounts struct {
	Clean         int `json:"clean"`
	Missing       int `json:"missing"`
	Fabricated    int `json:"fabricated"`
	WrongCustomer int `json:"wrong_customer"`
}

// NoiseRates are the NoiseCounts as shares of all calls, rounded to four places.
type NoiseRates struct {
	Clean         float64 `json:"clean"`
	Missing       float64 `json:"missing"`
	Fabricated    float64 `json:"fabricated"`
	WrongCustomer float64 `json:"wrong_customer"`
}

// NoiseSummary is the support-call linkage audit.
type NoiseSummary struct {
	TotalCalls  int                    `json:"total_calls"`
	NoiseCounts NoiseCounts            `json:"noise_counts"`
	NoiseRates  NoiseRates             `json:"noise_rates"`
	CallDetails []models.TSOCallRecord `json:"call_details"`
}

// BuildGroundTruth assembles the answer key from a finished run.
func BuildGroundTruth(r *Report, transactionCount int, tier2 bool) GroundTruth {
	inc := r.Incident
	confounders := make([]ConfounderSummary, 0, len(r.Confounders))
	for _, c := range r.Confounders {
		confounders = append(confounders, ConfounderSummary{
			Name:        c.Name,
			Start:       utils.ISO(c.Start),
			End:         utils.ISO(c.End),
			Component:   c.Component,
			Region:      c.Region,
			Description: c.Description,
		})
	}

	stats := r.Linkage
	rate := func(nt models.NoiseType) float64 { return utils.Round(stats.Rate(nt), 4) }
	details := stats.Records
	if details == nil {
		details = []models.TSOCallRecord{}
	}
	burst := scenario.DefaultBurstParams

	return GroundTruth{
		DatasetName: scenario.DatasetName,
		RunID:       r.RunID,
		TimeRange:   TimeRange{Start: utils.ISO(r.Start), End: utils.ISO(r.End)},
		PrimaryIncident: PrimaryIncident{
			RootCauseType:            "network",
			CircuitID:                inc.CircuitID,
			SrcRegion:                inc.SrcRegion,
			DstRegion:                inc.DstRegion,
			Start:                    utils.ISO(inc.Start),
			End:                      utils.ISO(inc.End),
			FixTime:                  utils.ISO(inc.FixTime),
			BurstCount:               len(inc.Bursts),
			AffectedTransactionTypes: r.Catalog.ImpactedTypes,
		},
		Confounders: confounders,
		Generation: GenerationSummary{
			Seed:      r.Seed,
			RowCounts: r.RowCounts,
			Parameters: GenerationParams{
				BurstIntervalMinutes: int(burst.Period.Minutes()),
				BurstDurationMinutes: [2]int{int(burst.MinDuration.Minutes()), int(burst.MaxDuration.Minutes())},
				BaselineRTTMS:        network.IncidentBaseline.RTTMS,
				BurstRTTRangeMS: [2]float64{
					network.IncidentBaseline.RTTMS * network.BurstMultiplierMin,
					network.IncidentBaseline.RTTMS * network.BurstMultiplierMax,
				},
				DependencyMultiplier: [2]float64{5, 12},
				TransactionCount:     transactionCount,
				Tier2:                tier2,
			},
		},
		TSONoise: NoiseSummary{
			TotalCalls: stats.Rows,
			NoiseCounts: NoiseCounts{
				Clean:         stats.Clean,
				Missing:       stats.Missing,
				Fabricated:    stats.Fabricated,
				WrongCustomer: stats.WrongCustomer,
			},
			NoiseRates: NoiseRates{
				Clean:         rate(models.NoiseClean),
				Missing:       rate(models.NoiseMissing),
				Fabricated:    rate(models.NoiseFabricated),
				WrongCustomer: rate(models.NoiseWrongCustomer),
			},
			CallDetails: details,
		},
	}
}

// WriteArtifacts writes the validation summary, README and ground truth into dir and,
// when zipDataset is set, packages the whole directory. It returns the archive path.
func WriteArtifacts(dir string, r *Report, transactionCount int, tier2, zipDataset bool) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ValidationSummaryFile), append(append([]byte(nil), r.Summary...), '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write validation summary: %w", err)
	}
	if err := sink.WriteReadme(dir); err != nil {
		return "", err
	}
	if err := sink.WriteJSON(filepath.Join(dir, GroundTruthFile), BuildGroundTruth(r, transactionCount, tier2)); err != nil {
		return "", err
	}
	if !zipDataset {
		return "", nil
	}
	return sink.PackageZip(dir, scenario.DatasetName)
}
