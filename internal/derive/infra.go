package derive

import (
	"context"
	"fmt"
	"time"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
	"github.com/miradorstack/mirador-rca-corpus/internal/random"
	"github.com/miradorstack/mirador-rca-corpus/internal/scenario"
	"github.com/miradorstack/mirador-rca-corpus/internal/sink"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

// HostsPerRegion is the size of each region's infrastructure fleet.
const HostsPerRegion = 12

// InfraInterval is the spacing of infrastructure samples.
const InfraInterval = 5 * time.Minute

// InfraRegions are the regions with reported hosts.
var InfraRegions = []string{"central", "east", "west"}

// RegionHosts is one region's fleet.
type RegionHosts struct {
	Region string
	Hosts  []string
}

// Hosts returns the infrastructure fleet in reporting order.
func Hosts() []RegionHosts {
	out := make([]RegionHosts, 0, len(InfraRegions))
	for _, region := range InfraRegions {
		hosts := make([]string, HostsPerRegion)
		for i := range hosts {
			hosts[i] = fmt.Sprintf("fibersqs-%s-infra%02d", region, i+1)
		}
		out = append(out, RegionHosts{Region: region, Hosts: hosts})
	}
	return out
}

// InfraSummary keeps the peak CPU seen per region.
type InfraSummary struct {
	Rows   int
	CPUMax map[string]float64
}

// InfraSweep writes a sample for every host every InfraInterval across [start,end). Hosts
// in a CPU-spike confounder run hot; hosts in a deployment blip report network errors.
func InfraSweep(
	ctx context.Context,
	w sink.RowWriter,
	rng *random.Stream,
	fleet []RegionHosts,
	confounders []models.ConfounderWindow,
	start, end time.Time,
) (InfraSummary, error) {
	summary := InfraSummary{CPUMax: map[string]float64{"central": 0, "west": 0}}
	var sweepErr error
	utils.Steps(start, end, InfraInterval, func(ts time.Time) bool {
		if err := ctx.Err(); err != nil {
			sweepErr = err
			return false
		}
		for _, rh := range fleet {
			for _, host := range rh.Hosts {
				cpu := rng.Uniform(18, 52)
				mem := rng.Uniform(40, 70)
				disk := rng.Uniform(20, 60)
				netErrs := rng.Uniform(0.01, 0.08)
				for _, c := range confounders {
					if !c.Affects(ts, rh.Region) {
						continue
					}
					switch c.Name {
					case scenario.CPUSpikeConfounder:
						cpu = rng.Uniform(75, 97)
					case scenario.DeploymentBlipConfounder:
						netErrs = rng.Uniform(0.1, 0.4)
					}
				}
				row := []string{
					utils.ISOSecond(ts),
					rh.Region,
					host,
					utils.FormatFloat(cpu, 2),
					utils.FormatFloat(mem, 2),
					utils.FormatFloat(disk, 2),
					utils.FormatFloat(netErrs, 3),
				}
				if err := w.WriteRow(sink.InfraHostMetrics, row); err != nil {
					sweepErr = err
					return false
				}
				summary.Rows++
				summary.CPUMax[rh.Region] = max(summary.CPUMax[rh.Region], cpu)
			}
		}
		return true
	})
	return summary, sweepErr
}
