package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironvale/vanguard/components"
	"github.com/ironvale/vanguard/config"
)

// NavMode selects between patrolling waypoints and combat maneuvering.
type NavMode uint8

const (
	ModePatrol NavMode = iota
	ModeCombat
)

// String returns a short display name for the mode.
func (m NavMode) String() string {
	if m == ModeCombat {
		return "combat"
	}
	return "patrol"
}

// Controls are the drive commands produced each tick.
type Controls struct {
	Throttle float64 // [-1, 1]
	Steering float64 // [-1, 1]
	Brake    float64 // [0, 1]
}

// ModeChangeEvent fires when the navigation mode flips.
type ModeChangeEvent struct {
	Old, New NavMode
}

// StuckEvent fires when the stuck condition has held long enough.
type StuckEvent struct {
	Pos r3.Vec
}

// RecoveryEvent fires when a recovery attempt ends. Succeeded is false
// for the explicit terminal "recovery failed" outcome.
type RecoveryEvent struct {
	Succeeded bool
	Attempt   int
}

// ManeuverController combines two independent per-agent concerns: the
// Patrol/Combat navigation mode and the stuck/recovery state machine.
// All timers are elapsed-simulation-time comparisons, never wall clock.
type ManeuverController struct {
	rcfg config.RecoveryConfig
	ccfg config.CombatConfig

	mode           NavMode
	disengageTimer float64

	stuck         bool
	stuckTimer    float64
	recovering    bool
	attempts      int
	recoveryStart r3.Vec
	recoveryTimer float64

	OnModeChanged Emitter[ModeChangeEvent]
	OnStuck       Emitter[StuckEvent]
	OnRecovery    Emitter[RecoveryEvent]
}

// NewManeuverController creates a controller in patrol mode.
func NewManeuverController(rcfg config.RecoveryConfig, ccfg config.CombatConfig) *ManeuverController {
	return &ManeuverController{rcfg: rcfg, ccfg: ccfg}
}

// ManeuverInput is the per-tick pose sample for Update.
type ManeuverInput struct {
	Pos          r3.Vec
	Yaw          float64 // body yaw, degrees
	ForwardSpeed float64 // signed, units/s
	DT           float64
}

// Update picks drive controls and steers the turret for one tick.
func (m *ManeuverController) Update(in ManeuverInput, sensor *ObstacleSensor, detect *DetectionEngine, nav *WaypointNavigator, turret *components.Turret) Controls {
	target, engaged := m.updateMode(in.DT, detect)

	var out Controls
	if m.recovering {
		out = m.updateRecovery(in, nav)
	} else {
		out = m.driveTowardWaypoint(in, nav)
		m.updateStuckDetection(in, out, sensor, nav)
		if m.recovering {
			// Recovery begins on the same tick the stuck timer fires.
			out = m.updateRecovery(in, nav)
		}
	}

	m.aimTurret(in, target, engaged, out.Steering, nav, turret)
	return out
}

// updateMode runs the Patrol/Combat transition and returns the
// qualifying target, if any.
func (m *ManeuverController) updateMode(dt float64, detect *DetectionEngine) (*DetectedEntity, bool) {
	var target *DetectedEntity
	if detect != nil {
		if entry, ok := detect.PriorityTarget(); ok &&
			entry.Awareness >= m.ccfg.MinAwareness &&
			math.Abs(entry.AngleTo) <= m.ccfg.EngagementAngle {
			target = entry
		}
	}

	switch {
	case target != nil:
		m.disengageTimer = 0
		if m.mode != ModeCombat {
			m.setMode(ModeCombat)
		}
	case m.mode == ModeCombat:
		m.disengageTimer += dt
		if m.disengageTimer >= m.ccfg.DisengageDelay {
			m.setMode(ModePatrol)
		}
	}
	return target, target != nil
}

func (m *ManeuverController) setMode(mode NavMode) {
	old := m.mode
	m.mode = mode
	m.OnModeChanged.Emit(ModeChangeEvent{Old: old, New: mode})
}

// driveTowardWaypoint produces patrol controls toward the current
// waypoint. Without a waypoint the vehicle brakes to a halt.
func (m *ManeuverController) driveTowardWaypoint(in ManeuverInput, nav *WaypointNavigator) Controls {
	if nav == nil {
		return Controls{Brake: 1}
	}
	wp, ok := nav.CurrentWaypoint()
	if !ok {
		return Controls{Brake: 1}
	}

	forward := AnglesToDirection(in.Yaw, 0)
	to := r3.Sub(wp, in.Pos)
	angle := SignedHorizontalAngle(forward, to)

	// Steering is proportional; throttle backs off through sharp turns.
	steering := clampFloat(angle/45, -1, 1)
	throttle := clampFloat(1-math.Abs(angle)/120, 0.25, 1)

	return Controls{Throttle: throttle, Steering: steering}
}

// updateStuckDetection accumulates the stuck timer and starts recovery
// when it fires. The steering exemption keeps intentional sharp turns
// from counting as stalls.
func (m *ManeuverController) updateStuckDetection(in ManeuverInput, cmd Controls, sensor *ObstacleSensor, nav *WaypointNavigator) {
	stalled := math.Abs(in.ForwardSpeed) < m.rcfg.StuckSpeedThreshold &&
		cmd.Throttle > m.rcfg.MinThrottle &&
		math.Abs(cmd.Steering) < m.rcfg.TurnSteeringThreshold

	if !stalled {
		m.stuckTimer = 0
		m.stuck = false
		return
	}

	m.stuckTimer += in.DT
	if m.stuckTimer < m.rcfg.StuckTimeThreshold {
		return
	}
	if !m.stuck {
		m.stuck = true
		m.OnStuck.Emit(StuckEvent{Pos: in.Pos})
	}

	// Recovery is gated on rear clearance: with an obstacle close
	// behind, reversing is skipped entirely rather than attempted and
	// failed.
	if sensor != nil && sensor.RearClearance() < m.rcfg.MinRearClearance {
		return
	}

	if m.attempts >= m.rcfg.MaxAttempts {
		// Attempt budget spent: a full route regeneration replaces
		// further blind reversing.
		if nav != nil {
			nav.RegenerateFromCurrentPosition(in.Pos)
		}
		m.attempts = 0
		m.stuck = false
		m.stuckTimer = 0
		return
	}

	m.attempts++
	m.recovering = true
	m.recoveryStart = in.Pos
	m.recoveryTimer = 0
}

// updateRecovery reverses until distance or timeout ends the attempt.
func (m *ManeuverController) updateRecovery(in ManeuverInput, nav *WaypointNavigator) Controls {
	m.recoveryTimer += in.DT

	if dist2D(in.Pos, m.recoveryStart) >= m.rcfg.MaxReverseDistance {
		attempt := m.attempts
		m.recovering = false
		m.stuck = false
		m.stuckTimer = 0
		m.attempts = 0
		m.OnRecovery.Emit(RecoveryEvent{Succeeded: true, Attempt: attempt})
		return Controls{}
	}

	if m.recoveryTimer >= m.rcfg.RecoveryTimeout {
		m.recovering = false
		m.stuckTimer = 0
		m.OnRecovery.Emit(RecoveryEvent{Succeeded: false, Attempt: m.attempts})
		if m.attempts >= m.rcfg.MaxAttempts && nav != nil {
			nav.RegenerateFromCurrentPosition(in.Pos)
			m.attempts = 0
			m.stuck = false
		}
		return Controls{}
	}

	return Controls{Throttle: -m.rcfg.ReverseThrottle}
}

// aimTurret rotates the turret toward the engaged target, or the
// current waypoint while patrolling, via bounded per-tick interpolation.
func (m *ManeuverController) aimTurret(in ManeuverInput, target *DetectedEntity, engaged bool, steering float64, nav *WaypointNavigator, turret *components.Turret) {
	if turret == nil {
		return
	}

	var aim r3.Vec
	switch {
	case engaged:
		aim = target.BestVisiblePos
		if aim == (r3.Vec{}) {
			aim = target.LastKnownPos
		}
	case nav != nil:
		wp, ok := nav.CurrentWaypoint()
		if !ok {
			return
		}
		aim = wp
	default:
		return
	}

	yawDeg, pitchDeg := AimAngles(in.Pos, aim)
	relYaw := WrapDeg(yawDeg - in.Yaw)

	speed := m.ccfg.TurretTurnSpeed
	if m.mode == ModeCombat && math.Abs(steering) > 0.1 {
		// Body rotation pushes the turret off-target while steering;
		// compensate with a faster slew.
		speed *= m.ccfg.CombatSteerMultiplier
	}
	step := speed * in.DT

	turret.Yaw = MoveTowardAngle(turret.Yaw, relYaw, step)
	turret.Pitch = clampFloat(MoveTowardAngle(turret.Pitch, pitchDeg, step), -90, 90)
}

// Mode returns the current navigation mode.
func (m *ManeuverController) Mode() NavMode { return m.mode }

// IsStuck reports whether the stuck condition is currently latched.
func (m *ManeuverController) IsStuck() bool { return m.stuck }

// IsRecovering reports whether a reverse recovery is in progress.
func (m *ManeuverController) IsRecovering() bool { return m.recovering }

// Attempts returns the recovery attempts consumed since the last
// success or regeneration.
func (m *ManeuverController) Attempts() int { return m.attempts }
