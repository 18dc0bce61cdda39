package sink

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// WriteJSON writes v as indented JSON to path.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

const readme = `# Fiber SQS Cross-Region Latency Dataset

## Scenario
Synthetic telemetry for Fiber SQS investigating intermittent latency hitting Central-region provisioning
traffic, requiring correlation across application logs, distributed traces, network metrics, infra stats,
and TSO call queues.

## Tables
- Tier 1: clickhouse-app_logs, clickhouse-trace_spans, clickhouse-network_circuit_metrics, clickhouse-infra_host_metrics, clickhouse-tso_calls
- Tier 2 (optional): clickhouse-service_metrics, clickhouse-network_events, clickhouse-txn_facts

## Incident Summary
Central provisioning flows intermittently degrade on the eastbound dependency during a multi-day window.
Engineers must disentangle this from a Central CPU spike and a minor West deployment blip.

## Loading into ClickHouse
Example using ` + "`clickhouse-client`" + `:

` + "```bash" + `
for file in data/clickhouse-*.csv; do
  table=$(basename "$file" | sed 's/clickhouse-//; s/.csv//')
  clickhouse-client --query "INSERT INTO $table FORMAT CSVWithNames" < "$file"
done
` + "```" + `

## Realism Notes
- Diurnal traffic drives transaction volumes and retries
- Retry amplification and dependency latency spikes during bursts
- Cross-region traces include clock skew and multi-span chains
- Network metrics emit bursty packet loss and RTT spikes
- Support-call references carry bounded, audited noise (see ground_truth.json)
`

// WriteReadme writes the dataset README into dir.
func WriteReadme(dir string) error {
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(readme), 0o644); err != nil {
		return fmt.Errorf("write readme: %w", err)
	}
	return nil
}

// PackageZip archives everything under dir into dir/name.zip, skipping existing archives.
// Entries are stored with slash-separated paths relative to dir.
func PackageZip(dir, name string) (string, error) {
	zipPath := filepath.Join(dir, name+".zip")
	out, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create zip: %w", err)
	}
	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(d.Name(), ".zip") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})
	if walkErr != nil {
		zw.Close()
		out.Close()
		return "", fmt.Errorf("package zip: %w", walkErr)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		return "", fmt.Errorf("finish zip: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close zip: %w", err)
	}
	return zipPath, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
