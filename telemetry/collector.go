// Package telemetry accumulates simulation events into windowed stats
// rows and writes structured experiment output.
package telemetry

// Collector accumulates events within fixed-duration windows and
// produces WindowStats rows. Counters reset on flush; fleet-state
// fields are sampled at flush time by the caller.
type Collector struct {
	windowDurationTicks int
	dt                  float64

	windowStartTick int

	detections      int
	stateChanges    int
	coneEntries     int
	waypointsHit    int
	regenerations   int
	stuckEvents     int
	recoveryOK      int
	recoveryFailed  int
	modeTransitions int
}

// NewCollector creates a collector with the given window length in
// simulation seconds.
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticks := int(windowDurationSec / dt)
	if ticks < 1 {
		ticks = 1
	}
	return &Collector{windowDurationTicks: ticks, dt: dt}
}

// RecordDetection counts a first-contact detection event.
func (c *Collector) RecordDetection() { c.detections++ }

// RecordStateChange counts an awareness state transition.
func (c *Collector) RecordStateChange() { c.stateChanges++ }

// RecordConeEntry counts a target entering the firing cone.
func (c *Collector) RecordConeEntry() { c.coneEntries++ }

// RecordWaypointReached counts a waypoint advance.
func (c *Collector) RecordWaypointReached() { c.waypointsHit++ }

// RecordRegeneration counts a route regeneration.
func (c *Collector) RecordRegeneration() { c.regenerations++ }

// RecordStuck counts a stuck condition firing.
func (c *Collector) RecordStuck() { c.stuckEvents++ }

// RecordRecovery counts a recovery attempt outcome.
func (c *Collector) RecordRecovery(succeeded bool) {
	if succeeded {
		c.recoveryOK++
	} else {
		c.recoveryFailed++
	}
}

// RecordModeTransition counts a patrol/combat mode flip.
func (c *Collector) RecordModeTransition() { c.modeTransitions++ }

// ShouldFlush reports whether the current window is over.
func (c *Collector) ShouldFlush(currentTick int) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// FleetSample is the fleet-wide state sampled at window end.
type FleetSample struct {
	VehicleCount int
	TrackedTotal int
	CombatCount  int
	Awareness    []float64 // per-contact awareness values, consumed
}

// Flush produces a WindowStats row and resets counters.
func (c *Collector) Flush(currentTick int, sample FleetSample) WindowStats {
	w := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		VehicleCount: sample.VehicleCount,
		TrackedTotal: sample.TrackedTotal,
		CombatCount:  sample.CombatCount,

		Detections:      c.detections,
		StateChanges:    c.stateChanges,
		ConeEntries:     c.coneEntries,
		WaypointsHit:    c.waypointsHit,
		Regenerations:   c.regenerations,
		StuckEvents:     c.stuckEvents,
		RecoveryOK:      c.recoveryOK,
		RecoveryFailed:  c.recoveryFailed,
		ModeTransitions: c.modeTransitions,
	}
	w.summarizeAwareness(sample.Awareness)

	c.windowStartTick = currentTick
	c.detections = 0
	c.stateChanges = 0
	c.coneEntries = 0
	c.waypointsHit = 0
	c.regenerations = 0
	c.stuckEvents = 0
	c.recoveryOK = 0
	c.recoveryFailed = 0
	c.modeTransitions = 0

	return w
}
