package telemetry

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated detection and navigation statistics for
// one time window, in CSV row form.
type WindowStats struct {
	WindowStartTick int     `csv:"-"`
	WindowEndTick   int     `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Fleet state at window end
	VehicleCount int `csv:"vehicles"`
	TrackedTotal int `csv:"tracked_total"`
	CombatCount  int `csv:"in_combat"`

	// Events during window
	Detections      int `csv:"detections"`
	StateChanges    int `csv:"state_changes"`
	ConeEntries     int `csv:"cone_entries"`
	WaypointsHit    int `csv:"waypoints_hit"`
	Regenerations   int `csv:"regenerations"`
	StuckEvents     int `csv:"stuck_events"`
	RecoveryOK      int `csv:"recovery_ok"`
	RecoveryFailed  int `csv:"recovery_failed"`
	ModeTransitions int `csv:"mode_transitions"`

	// Awareness distribution over tracked contacts at window end
	AwarenessMean float64 `csv:"awareness_mean"`
	AwarenessP50  float64 `csv:"awareness_p50"`
	AwarenessP90  float64 `csv:"awareness_p90"`
}

// summarizeAwareness fills the distribution fields from a sample of
// per-contact awareness values.
func (w *WindowStats) summarizeAwareness(values []float64) {
	if len(values) == 0 {
		return
	}
	sort.Float64s(values)
	w.AwarenessMean = stat.Mean(values, nil)
	w.AwarenessP50 = stat.Quantile(0.5, stat.Empirical, values, nil)
	w.AwarenessP90 = stat.Quantile(0.9, stat.Empirical, values, nil)
}
