// Package policy defines the boundary between the agent core and the
// machine-learning side: fixed-shape observation and action records, the
// Policy interface, and a feedforward inference implementation.
package policy

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironvale/vanguard/systems"
)

// NumActions is the size of the action vector.
const NumActions = 5

// Observation is the fixed-shape input record handed to a policy each
// tick. Field order is part of the contract; Vector flattens it in
// exactly this order.
type Observation struct {
	Clearances   []float64 // normalized [0,1], one per probe direction
	LinVel       r3.Vec    // world units/s
	BodyYaw      float64   // degrees
	ForwardSpeed float64   // signed, units/s
	TurretYaw    float64   // hull-relative, degrees
	TurretPitch  float64   // degrees
	DirToRef     r3.Vec    // unit direction to the reference entity, zero if none
}

// Dim returns the flattened observation length for n probe directions.
func Dim(numProbes int) int {
	return numProbes + 10
}

// Vector flattens the observation into dst, which is grown as needed
// and returned. Layout: clearances, linvel xyz, body yaw, forward
// speed, turret yaw, turret pitch, dir-to-ref xyz.
func (o *Observation) Vector(dst []float64) []float64 {
	dst = dst[:0]
	dst = append(dst, o.Clearances...)
	dst = append(dst, o.LinVel.X, o.LinVel.Y, o.LinVel.Z)
	dst = append(dst, o.BodyYaw, o.ForwardSpeed, o.TurretYaw, o.TurretPitch)
	dst = append(dst, o.DirToRef.X, o.DirToRef.Y, o.DirToRef.Z)
	return dst
}

// Action is the fixed-shape output record a policy produces each tick.
type Action struct {
	Throttle    float64 // [-1, 1]
	Steering    float64 // [-1, 1]
	Brake       float64 // [0, 1]
	TurretYaw   float64 // hull-relative target, [-180, 180] degrees
	TurretPitch float64 // target, [-90, 90] degrees
}

// Clamped returns the action with every field forced into its range.
func (a Action) Clamped() Action {
	return Action{
		Throttle:    clamp(a.Throttle, -1, 1),
		Steering:    clamp(a.Steering, -1, 1),
		Brake:       clamp(a.Brake, 0, 1),
		TurretYaw:   clamp(systems.WrapDeg(a.TurretYaw), -180, 180),
		TurretPitch: clamp(a.TurretPitch, -90, 90),
	}
}

// Vector flattens the action in contract order.
func (a Action) Vector() [NumActions]float64 {
	return [NumActions]float64{a.Throttle, a.Steering, a.Brake, a.TurretYaw, a.TurretPitch}
}

// ActionFromVector rebuilds an action from a flattened vector.
func ActionFromVector(v [NumActions]float64) Action {
	return Action{
		Throttle:    v[0],
		Steering:    v[1],
		Brake:       v[2],
		TurretYaw:   v[3],
		TurretPitch: v[4],
	}
}

// Policy maps an observation to an action. Implementations must be
// side-effect free with respect to the observation.
type Policy interface {
	Act(obs *Observation) Action
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
