package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironvale/vanguard/components"
	"github.com/ironvale/vanguard/config"
)

// maxYawRate clamps the angular velocity estimate, degrees per second.
const maxYawRate = 360.0

// ObstacleSensor produces, once per tick, a clearance reading in each of
// N evenly spaced directions around a vehicle. Clearances measure
// distance from the hull surface, not the hull center. The probe set is
// a pure snapshot: fully recomputed every tick, no cross-tick identity.
type ObstacleSensor struct {
	cfg config.SensingConfig

	clearances   []float64
	lateralLeft  float64
	lateralRight float64

	prevYaw float64
	hasPrev bool
	yawRate float64 // degrees per second, signed
}

// NewObstacleSensor creates a sensor with all clearances at full probe reach.
func NewObstacleSensor(cfg config.SensingConfig) *ObstacleSensor {
	s := &ObstacleSensor{
		cfg:          cfg,
		clearances:   make([]float64, cfg.NumProbes),
		lateralLeft:  cfg.LateralProbeLength,
		lateralRight: cfg.LateralProbeLength,
	}
	for i := range s.clearances {
		theta := EllipseAngle(i, cfg.NumProbes)
		s.clearances[i] = s.reach(theta, 0)
	}
	return s
}

// reach returns the unobstructed clearance for sample angle theta given
// the surface offset already subtracted.
func (s *ObstacleSensor) reach(theta, offset float64) float64 {
	ex := s.cfg.MajorAxis * math.Cos(theta)
	ey := s.cfg.MinorAxis * math.Sin(theta)
	return math.Sqrt(ex*ex+ey*ey) - offset
}

// Update recomputes all clearances and the angular velocity estimate.
// A nil caster or zero self entity is a no-op: clearances hold their
// previous values.
func (s *ObstacleSensor) Update(caster RayCaster, self ecs.Entity, pos r3.Vec, yawDeg float64, hull components.Hull, dt float64) {
	if caster == nil || self == (ecs.Entity{}) {
		return
	}

	ignore := []ecs.Entity{self}
	n := s.cfg.NumProbes

	for i := 0; i < n; i++ {
		theta := EllipseAngle(i, n)
		local := EllipsePoint(i, n, s.cfg.MajorAxis, s.cfg.MinorAxis)

		var offset float64
		if s.cfg.SurfaceOffset {
			offset = SurfaceOffset(theta, hull.HalfLength, hull.HalfWidth)
		}

		// Trace from the hull surface to the ellipse point.
		dir := r3.Vec{X: math.Cos(theta), Y: math.Sin(theta)}
		start := r3.Add(pos, rotateZ(r3.Scale(offset, dir), yawDeg))
		end := r3.Add(pos, rotateZ(local, yawDeg))

		hit := caster.CastRay(start, end, ignore)
		if hit.Hit {
			s.clearances[i] = hit.Distance
		} else {
			s.clearances[i] = r3.Norm(local) - offset
		}
	}

	// Lateral corridor probes, strictly perpendicular to forward.
	s.lateralLeft = s.lateralProbe(caster, ignore, pos, yawDeg+90)
	s.lateralRight = s.lateralProbe(caster, ignore, pos, yawDeg-90)

	s.updateYawRate(yawDeg, dt)
}

// lateralProbe casts one fixed-length ray perpendicular to forward and
// returns the clearance, or the full probe length if unobstructed.
func (s *ObstacleSensor) lateralProbe(caster RayCaster, ignore []ecs.Entity, pos r3.Vec, worldYawDeg float64) float64 {
	dir := AnglesToDirection(worldYawDeg, 0)
	end := r3.Add(pos, r3.Scale(s.cfg.LateralProbeLength, dir))
	hit := caster.CastRay(pos, end, ignore)
	if hit.Hit {
		return hit.Distance
	}
	return s.cfg.LateralProbeLength
}

// updateYawRate estimates angular velocity from consecutive yaw samples.
// Degenerate dt skips the update and retains the last value.
func (s *ObstacleSensor) updateYawRate(yawDeg, dt float64) {
	if !s.hasPrev {
		s.prevYaw = yawDeg
		s.hasPrev = true
		return
	}
	if dt <= 0 {
		return
	}
	delta := WrapDeg(yawDeg - s.prevYaw)
	s.yawRate = clampFloat(delta/dt, -maxYawRate, maxYawRate)
	s.prevYaw = yawDeg
}

// Clearances returns the current probe snapshot. The slice is owned by
// the sensor and overwritten next tick.
func (s *ObstacleSensor) Clearances() []float64 {
	return s.clearances
}

// Normalized fills out with the clearances normalized by the major
// probe axis, clamped to [0, 1]. out is reused when it has capacity.
func (s *ObstacleSensor) Normalized(out []float64) []float64 {
	out = out[:0]
	for _, c := range s.clearances {
		out = append(out, clamp01(c/s.cfg.MajorAxis))
	}
	return out
}

// RearClearance returns the clearance of the probe opposite forward.
func (s *ObstacleSensor) RearClearance() float64 {
	return s.clearances[s.cfg.NumProbes/2]
}

// Lateral returns the left and right corridor probe clearances.
func (s *ObstacleSensor) Lateral() (left, right float64) {
	return s.lateralLeft, s.lateralRight
}

// YawRate returns the latest angular velocity estimate in degrees per
// second, clamped to ±360.
func (s *ObstacleSensor) YawRate() float64 {
	return s.yawRate
}
