package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironvale/vanguard/policy"
)

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("NewOutputManager(\"\"): %v", err)
	}
	if om != nil {
		t.Fatal("empty dir must disable output")
	}

	// Every method is a no-op on the nil manager.
	if err := om.WriteStats(WindowStats{}); err != nil {
		t.Errorf("nil WriteStats: %v", err)
	}
	if err := om.WriteDataset([]DatasetRecord{{}}); err != nil {
		t.Errorf("nil WriteDataset: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestOutputManagerStatsHeaderOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	if err := om.WriteStats(WindowStats{WindowEndTick: 600, SimTimeSec: 10}); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	if err := om.WriteStats(WindowStats{WindowEndTick: 1200, SimTimeSec: 20}); err != nil {
		t.Fatalf("WriteStats: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "stats.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("stats.csv lines: got %d, want header plus 2 rows\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "window_end") || !strings.Contains(lines[0], "awareness_p90") {
		t.Errorf("stats header missing columns: %q", lines[0])
	}
	if strings.Contains(lines[1], "window_end") {
		t.Error("header repeated in data rows")
	}
}

func TestOutputManagerDatasetRows(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager: %v", err)
	}

	obs := policy.Observation{Clearances: []float64{0.5, 1}}
	rows := []DatasetRecord{
		NewDatasetRecord(1, 10, &obs, policy.Action{Throttle: 0.5}),
		NewDatasetRecord(2, 11, &obs, policy.Action{Throttle: -0.5}),
	}
	if err := om.WriteDataset(rows); err != nil {
		t.Fatalf("WriteDataset: %v", err)
	}
	if err := om.WriteDataset(rows[:1]); err != nil {
		t.Fatalf("WriteDataset: %v", err)
	}
	if err := om.WriteDataset(nil); err != nil {
		t.Fatalf("WriteDataset(nil): %v", err)
	}
	if err := om.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "dataset.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("dataset.csv lines: got %d, want header plus 3 rows\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "act_throttle") || !strings.Contains(lines[0], "clearances") {
		t.Errorf("dataset header missing columns: %q", lines[0])
	}
}
