package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Clamp functions for common value ranges

// clampFloat clamps a value between min and max.
func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// clamp01 clamps a value to the [0, 1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Angle helpers (degrees)

// WrapDeg wraps an angle in degrees to (-180, 180].
func WrapDeg(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	} else if a <= -180 {
		a += 360
	}
	return a
}

// degToRad converts degrees to radians.
func degToRad(d float64) float64 { return d * math.Pi / 180 }

// radToDeg converts radians to degrees.
func radToDeg(r float64) float64 { return r * 180 / math.Pi }

// Vector helpers

// rotateZ rotates a vector about the Z axis by yaw degrees.
func rotateZ(v r3.Vec, yawDeg float64) r3.Vec {
	rad := degToRad(yawDeg)
	c, s := math.Cos(rad), math.Sin(rad)
	return r3.Vec{
		X: v.X*c - v.Y*s,
		Y: v.X*s + v.Y*c,
		Z: v.Z,
	}
}

// dist2D returns the horizontal (XY plane) distance between two points.
func dist2D(a, b r3.Vec) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// distSq2D returns the squared horizontal distance between two points.
func distSq2D(a, b r3.Vec) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

// horizLen returns the length of a vector's XY projection.
func horizLen(v r3.Vec) float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}
