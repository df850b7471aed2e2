package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// surfaceEps guards the axis-aligned degenerate cases of the
// surface-offset projection.
const surfaceEps = 1e-4

// AnglesToDirection converts yaw/pitch in degrees to a unit direction.
// Yaw 0 points along +X; pitch is degrees above the horizon.
func AnglesToDirection(yawDeg, pitchDeg float64) r3.Vec {
	yaw := degToRad(yawDeg)
	pitch := degToRad(pitchDeg)
	cp := math.Cos(pitch)
	return r3.Vec{
		X: cp * math.Cos(yaw),
		Y: cp * math.Sin(yaw),
		Z: math.Sin(pitch),
	}
}

// DirectionToAngles recovers yaw/pitch in degrees from a direction vector.
// Returns (0, ±90) for vertical directions where yaw is undefined.
func DirectionToAngles(d r3.Vec) (yawDeg, pitchDeg float64) {
	h := horizLen(d)
	if h < surfaceEps {
		if d.Z >= 0 {
			return 0, 90
		}
		return 0, -90
	}
	yawDeg = radToDeg(math.Atan2(d.Y, d.X))
	pitchDeg = radToDeg(math.Atan2(d.Z, h))
	return yawDeg, pitchDeg
}

// AimAngles returns the yaw/pitch in degrees that point from one
// position toward another.
func AimAngles(from, to r3.Vec) (yawDeg, pitchDeg float64) {
	return DirectionToAngles(r3.Sub(to, from))
}

// SignedHorizontalAngle returns the signed angle in degrees from the
// look direction to the target direction, projected onto the ground
// plane. Positive means the target is to the left (counter-clockwise),
// per the Z component of the cross product. Result is in (-180, 180].
func SignedHorizontalAngle(look, to r3.Vec) float64 {
	lh := horizLen(look)
	th := horizLen(to)
	if lh < surfaceEps || th < surfaceEps {
		return 0
	}
	dot := (look.X*to.X + look.Y*to.Y) / (lh * th)
	dot = clampFloat(dot, -1, 1)
	ang := radToDeg(math.Acos(dot))
	cross := look.X*to.Y - look.Y*to.X
	if cross < 0 {
		ang = -ang
	}
	return WrapDeg(ang)
}

// AngleBetween returns the unsigned angle in degrees between two
// vectors, in [0, 180].
func AngleBetween(a, b r3.Vec) float64 {
	na := r3.Norm(a)
	nb := r3.Norm(b)
	if na < surfaceEps || nb < surfaceEps {
		return 0
	}
	dot := clampFloat(r3.Dot(a, b)/(na*nb), -1, 1)
	return radToDeg(math.Acos(dot))
}

// MoveTowardAngle steps an angle toward a target by at most maxDelta
// degrees, taking the short way around. All arguments in degrees.
func MoveTowardAngle(current, target, maxDelta float64) float64 {
	diff := WrapDeg(target - current)
	if math.Abs(diff) <= maxDelta {
		return target
	}
	if diff > 0 {
		return WrapDeg(current + maxDelta)
	}
	return WrapDeg(current - maxDelta)
}

// SurfaceOffset returns the distance from the hull center to the hull
// rectangle boundary along a local ray at angle theta (radians).
// The hull is halfLength along local X and halfWidth along local Y.
func SurfaceOffset(theta, halfLength, halfWidth float64) float64 {
	c := math.Abs(math.Cos(theta))
	s := math.Abs(math.Sin(theta))
	if c < surfaceEps {
		// Ray is lateral: boundary is the side wall.
		return halfWidth / s
	}
	if s < surfaceEps {
		// Ray is axial: boundary is the front or rear wall.
		return halfLength / c
	}
	lx := halfLength / c
	ly := halfWidth / s
	if lx < ly {
		return lx
	}
	return ly
}

// EllipsePoint returns the i-th of n evenly spaced sample points on an
// ellipse in hull-local space: (major·cosθ, minor·sinθ, 0) with
// θ = 2π·i/n.
func EllipsePoint(i, n int, majorAxis, minorAxis float64) r3.Vec {
	theta := 2 * math.Pi * float64(i) / float64(n)
	return r3.Vec{
		X: majorAxis * math.Cos(theta),
		Y: minorAxis * math.Sin(theta),
	}
}

// EllipseAngle returns the local angle θ of the i-th of n samples.
func EllipseAngle(i, n int) float64 {
	return 2 * math.Pi * float64(i) / float64(n)
}
