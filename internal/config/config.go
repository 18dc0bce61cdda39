package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-rca-corpus/internal/linkage"
	"github.com/miradorstack/mirador-rca-corpus/internal/scenario"
	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

// Config captures every setting of a corpus generation run.
type Config struct {
	Generation GenerationConfig `yaml:"generation"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
	Scenario   ScenarioConfig   `yaml:"scenario"`
	Linkage    LinkageConfig    `yaml:"linkage"`
}

// GenerationConfig sizes and seeds the corpus.
type GenerationConfig struct {
	Seed            int64   `yaml:"seed"`
	AppLogRows      int     `yaml:"appLogRows"`
	ScaleLogs       float64 `yaml:"scaleLogs"`
	AvgLogsPerTxn   int     `yaml:"avgLogsPerTxn"`
	MinTransactions int     `yaml:"minTransactions"`
	EnableTier2     bool    `yaml:"enableTier2"`
	// Start and End are RFC 3339 instants bounding the simulation horizon.
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// OutputConfig controls where and how tables are written.
type OutputConfig struct {
	Dir             string `yaml:"dir"`
	Zip             bool   `yaml:"zip"`
	SQLitePath      string `yaml:"sqlitePath"`
	MetricsTextfile string `yaml:"metricsTextfile"`
	MetricsAddress  string `yaml:"metricsAddress"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ScenarioConfig points at an optional confounder override file.
type ScenarioConfig struct {
	Path string `yaml:"path"`
}

// LinkageConfig tunes support-call noise.
type LinkageConfig struct {
	Noise          linkage.NoiseTargets `yaml:"noise"`
	BufferHorizon  time.Duration        `yaml:"bufferHorizon"`
	BufferCapacity int                  `yaml:"bufferCapacity"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("MIRADOR_CORPUS_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Generation: GenerationConfig{
			Seed:            7,
			AppLogRows:      15_000_000,
			ScaleLogs:       1.0,
			AvgLogsPerTxn:   10,
			MinTransactions: 500,
			Start:           scenario.DefaultStart.Format(time.RFC3339),
			End:             scenario.DefaultEnd.Format(time.RFC3339),
		},
		Output:  OutputConfig{Dir: "out", Zip: true},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Linkage: LinkageConfig{
			Noise:          linkage.DefaultNoiseTargets,
			BufferHorizon:  4 * time.Hour,
			BufferCapacity: 65536,
		},
	}
}

// TransactionCount is the number of facts to generate: the scaled log budget divided by the
// average lines per transaction, never below MinTransactions.
func (g GenerationConfig) TransactionCount() int {
	rows := max(1, int(float64(g.AppLogRows)*g.ScaleLogs))
	return max(g.MinTransactions, rows/max(1, g.AvgLogsPerTxn))
}

// Horizon parses Start and End.
func (g GenerationConfig) Horizon() (time.Time, time.Time, error) {
	start, err := utils.ParseRFC3339(g.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("generation.start: %w", err)
	}
	end, err := utils.ParseRFC3339(g.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("generation.end: %w", err)
	}
	return start, end, nil
}

// Validate rejects settings no run could satisfy.
func (c Config) Validate() error {
	g := c.Generation
	if g.AppLogRows < 0 {
		return fmt.Errorf("generation.appLogRows must not be negative")
	}
	if g.ScaleLogs <= 0 {
		return fmt.Errorf("generation.scaleLogs must be positive")
	}
	if g.AvgLogsPerTxn <= 0 {
		return fmt.Errorf("generation.avgLogsPerTxn must be positive")
	}
	if g.MinTransactions < 0 {
		return fmt.Errorf("generation.minTransactions must not be negative")
	}
	start, end, err := g.Horizon()
	if err != nil {
		return err
	}
	if end.Sub(start) < 10*time.Minute {
		return fmt.Errorf("generation horizon must span at least 10 minutes")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if err := c.Linkage.Noise.Validate(); err != nil {
		return fmt.Errorf("linkage: %w", err)
	}
	if c.Linkage.BufferHorizon <= 0 {
		return fmt.Errorf("linkage.bufferHorizon must be positive")
	}
	if c.Linkage.BufferCapacity <= 0 {
		return fmt.Errorf("linkage.bufferCapacity must be positive")
	}
	return nil
}

func parseBool(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MIRADOR_CORPUS_SEED"); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Generation.Seed = seed
		}
	}
	if v := os.Getenv("MIRADOR_CORPUS_APP_LOG_ROWS"); v != "" {
		if rows, err := strconv.Atoi(v); err == nil {
			cfg.Generation.AppLogRows = rows
		}
	}
	if v := os.Getenv("MIRADOR_CORPUS_SCALE_LOGS"); v != "" {
		if scale, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Generation.ScaleLogs = scale
		}
	}
	if v := os.Getenv("MIRADOR_CORPUS_ENABLE_TIER2"); v != "" {
		cfg.Generation.EnableTier2 = parseBool(v)
	}
	if v := os.Getenv("MIRADOR_CORPUS_START"); v != "" {
		cfg.Generation.Start = v
	}
	if v := os.Getenv("MIRADOR_CORPUS_END"); v != "" {
		cfg.Generation.End = v
	}
	if v := os.Getenv("MIRADOR_CORPUS_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("MIRADOR_CORPUS_ZIP"); v != "" {
		cfg.Output.Zip = parseBool(v)
	}
	if v := os.Getenv("MIRADOR_CORPUS_SQLITE_PATH"); v != "" {
		cfg.Output.SQLitePath = v
	}
	if v := os.Getenv("MIRADOR_CORPUS_METRICS_TEXTFILE"); v != "" {
		cfg.Output.MetricsTextfile = v
	}
	if v := os.Getenv("MIRADOR_CORPUS_METRICS_ADDRESS"); v != "" {
		cfg.Output.MetricsAddress = v
	}
	if v := os.Getenv("MIRADOR_CORPUS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MIRADOR_CORPUS_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("MIRADOR_CORPUS_SCENARIO_PATH"); v != "" {
		cfg.Scenario.Path = v
	}
	if v := os.Getenv("MIRADOR_CORPUS_BUFFER_HORIZON"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Linkage.BufferHorizon = d
		}
	}
}
