package scenario

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-rca-corpus/internal/models"
)

// File is the YAML root of a scenario override.
type File struct {
	Confounders []models.ConfounderWindow `yaml:"confounders"`
}

// LoadConfounders reads confounder windows from path. An empty path or a missing file yields
// DefaultConfounders. Windows must be non-empty and lie inside [start,end).
func LoadConfounders(path string, start, end time.Time, logger *slog.Logger) ([]models.ConfounderWindow, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return DefaultConfounders(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("scenario file not found, using default confounders", slog.String("path", path))
			return DefaultConfounders(), nil
		}
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(file.Confounders) == 0 {
		return DefaultConfounders(), nil
	}
	for i, c := range file.Confounders {
		if c.Name == "" {
			return nil, fmt.Errorf("confounder %d: name is required", i)
		}
		if !c.End.After(c.Start) {
			return nil, fmt.Errorf("confounder %s: end must be after start", c.Name)
		}
		if c.Start.Before(start) || c.End.After(end) {
			return nil, fmt.Errorf("confounder %s: window outside simulation horizon", c.Name)
		}
		if c.Region == "" {
			file.Confounders[i].Region = models.WildcardRegion
		}
		file.Confounders[i].Start = c.Start.UTC()
		file.Confounders[i].End = c.End.UTC()
	}
	logger.Info("loaded scenario confounders", slog.String("path", path), slog.Int("count", len(file.Confounders)))
	return file.Confounders, nil
}
