package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/ironvale/vanguard/config"
)

// OutputManager handles structured experiment output with CSV logging.
// A nil OutputManager is valid and discards everything.
type OutputManager struct {
	dir         string
	statsFile   *os.File
	datasetFile *os.File

	statsHeaderWritten   bool
	datasetHeaderWritten bool
}

// NewOutputManager creates an output manager rooted at dir. Returns nil
// if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "stats.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating stats.csv: %w", err)
	}
	om.statsFile = f

	f, err = os.Create(filepath.Join(dir, "dataset.csv"))
	if err != nil {
		om.statsFile.Close()
		return nil, fmt.Errorf("creating dataset.csv: %w", err)
	}
	om.datasetFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML next to the CSVs.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteStats appends a window stats row to stats.csv.
func (om *OutputManager) WriteStats(stats WindowStats) error {
	if om == nil {
		return nil
	}
	records := []WindowStats{stats}
	if !om.statsHeaderWritten {
		if err := gocsv.Marshal(records, om.statsFile); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		om.statsHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.statsFile); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

// WriteDataset appends behavior-cloning rows to dataset.csv.
func (om *OutputManager) WriteDataset(records []DatasetRecord) error {
	if om == nil || len(records) == 0 {
		return nil
	}
	if !om.datasetHeaderWritten {
		if err := gocsv.Marshal(records, om.datasetFile); err != nil {
			return fmt.Errorf("writing dataset: %w", err)
		}
		om.datasetHeaderWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, om.datasetFile); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	return nil
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var first error
	if err := om.statsFile.Close(); err != nil {
		first = err
	}
	if err := om.datasetFile.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
