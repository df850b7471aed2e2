package systems

import (
	"math"
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironvale/vanguard/components"
	"github.com/ironvale/vanguard/config"
)

// stubCaster returns canned hits and counts calls.
type stubCaster struct {
	fn    func(from, to r3.Vec, ignore []ecs.Entity) RayHit
	calls int
}

func (s *stubCaster) CastRay(from, to r3.Vec, ignore []ecs.Entity) RayHit {
	s.calls++
	if s.fn != nil {
		return s.fn(from, to, ignore)
	}
	return RayHit{}
}

func testSensingConfig(n int) config.SensingConfig {
	return config.SensingConfig{
		NumProbes:          n,
		MajorAxis:          2000,
		MinorAxis:          1500,
		LateralProbeLength: 800,
		SurfaceOffset:      true,
	}
}

func testHull() components.Hull {
	return components.Hull{HalfLength: 400, HalfWidth: 180, EyeHeight: 220}
}

func newTestEntity(t *testing.T) (*ecs.World, ecs.Entity) {
	t.Helper()
	w := ecs.NewWorld()
	tr := components.Transform{}
	e := ecs.NewMap1[components.Transform](w).NewEntity(&tr)
	return w, e
}

func TestObstacleSensorOpenField(t *testing.T) {
	const n = 16
	_, self := newTestEntity(t)
	s := NewObstacleSensor(testSensingConfig(n))
	caster := &stubCaster{}
	hull := testHull()

	s.Update(caster, self, r3.Vec{X: 5000, Y: 5000}, 30, hull, 1.0/60)

	clear := s.Clearances()
	if len(clear) != n {
		t.Fatalf("clearance count: got %d, want %d", len(clear), n)
	}
	for i := 0; i < n; i++ {
		theta := EllipseAngle(i, n)
		local := EllipsePoint(i, n, 2000, 1500)
		want := r3.Norm(local) - SurfaceOffset(theta, hull.HalfLength, hull.HalfWidth)
		if clear[i] <= 0 {
			t.Errorf("probe %d: clearance %v not positive", i, clear[i])
		}
		if !scalar.EqualWithinAbs(clear[i], want, 1e-9) {
			t.Errorf("probe %d: got %v, want %v", i, clear[i], want)
		}
	}

	left, right := s.Lateral()
	if left != 800 || right != 800 {
		t.Errorf("lateral probes: got (%v, %v), want (800, 800)", left, right)
	}
}

func TestObstacleSensorHitDistance(t *testing.T) {
	const n = 8
	_, self := newTestEntity(t)
	s := NewObstacleSensor(testSensingConfig(n))
	caster := &stubCaster{fn: func(from, to r3.Vec, ignore []ecs.Entity) RayHit {
		return RayHit{Hit: true, Distance: 321}
	}}

	s.Update(caster, self, r3.Vec{}, 0, testHull(), 1.0/60)

	for i, c := range s.Clearances() {
		if c != 321 {
			t.Errorf("probe %d: got %v, want hit distance 321", i, c)
		}
	}
	if l, r := s.Lateral(); l != 321 || r != 321 {
		t.Errorf("lateral probes: got (%v, %v), want (321, 321)", l, r)
	}
}

func TestObstacleSensorNilCasterIsNoOp(t *testing.T) {
	const n = 8
	_, self := newTestEntity(t)
	s := NewObstacleSensor(testSensingConfig(n))
	before := append([]float64(nil), s.Clearances()...)

	s.Update(nil, self, r3.Vec{}, 0, testHull(), 1.0/60)
	for i, c := range s.Clearances() {
		if c != before[i] {
			t.Errorf("probe %d changed with nil caster", i)
		}
	}

	s.Update(&stubCaster{}, ecs.Entity{}, r3.Vec{}, 0, testHull(), 1.0/60)
	for i, c := range s.Clearances() {
		if c != before[i] {
			t.Errorf("probe %d changed with zero self entity", i)
		}
	}
}

func TestObstacleSensorRearClearance(t *testing.T) {
	const n = 16
	_, self := newTestEntity(t)
	s := NewObstacleSensor(testSensingConfig(n))
	caster := &stubCaster{}
	hull := testHull()

	s.Update(caster, self, r3.Vec{}, 0, hull, 1.0/60)

	// Probe n/2 points along local -X: major axis reach minus the rear
	// wall offset.
	want := 2000 - hull.HalfLength
	if !scalar.EqualWithinAbs(s.RearClearance(), want, 1e-9) {
		t.Errorf("rear clearance: got %v, want %v", s.RearClearance(), want)
	}
}

func TestObstacleSensorNormalized(t *testing.T) {
	const n = 8
	_, self := newTestEntity(t)
	s := NewObstacleSensor(testSensingConfig(n))
	s.Update(&stubCaster{}, self, r3.Vec{}, 0, testHull(), 1.0/60)

	out := s.Normalized(nil)
	if len(out) != n {
		t.Fatalf("normalized length: got %d, want %d", len(out), n)
	}
	for i, v := range out {
		if v < 0 || v > 1 {
			t.Errorf("probe %d: normalized value %v outside [0,1]", i, v)
		}
	}

	// Reusing the buffer must not grow it.
	out = s.Normalized(out)
	if len(out) != n {
		t.Errorf("reused buffer length: got %d, want %d", len(out), n)
	}
}

func TestYawRateEstimation(t *testing.T) {
	const dt = 0.1
	_, self := newTestEntity(t)
	s := NewObstacleSensor(testSensingConfig(8))
	caster := &stubCaster{}
	hull := testHull()

	// First sample only seeds the estimator.
	s.Update(caster, self, r3.Vec{}, 10, hull, dt)
	if s.YawRate() != 0 {
		t.Fatalf("yaw rate after first sample: got %v, want 0", s.YawRate())
	}

	s.Update(caster, self, r3.Vec{}, 15, hull, dt)
	if !scalar.EqualWithinAbs(s.YawRate(), 50, 1e-9) {
		t.Errorf("yaw rate: got %v, want 50", s.YawRate())
	}
}

func TestYawRateWrapAndClamp(t *testing.T) {
	const dt = 0.1
	_, self := newTestEntity(t)
	s := NewObstacleSensor(testSensingConfig(8))
	caster := &stubCaster{}
	hull := testHull()

	// Crossing the 180 boundary must read as a small rotation.
	s.Update(caster, self, r3.Vec{}, 179, hull, dt)
	s.Update(caster, self, r3.Vec{}, -179, hull, dt)
	if !scalar.EqualWithinAbs(s.YawRate(), 20, 1e-9) {
		t.Errorf("wrapped yaw rate: got %v, want 20", s.YawRate())
	}

	// A large jump clamps to the configured limit.
	s.Update(caster, self, r3.Vec{}, -179+170, hull, dt)
	if math.Abs(s.YawRate()) > maxYawRate {
		t.Errorf("yaw rate %v exceeds clamp %v", s.YawRate(), maxYawRate)
	}
	if !scalar.EqualWithinAbs(s.YawRate(), maxYawRate, 1e-9) {
		t.Errorf("yaw rate: got %v, want clamp %v", s.YawRate(), maxYawRate)
	}
}

func TestYawRateDegenerateDT(t *testing.T) {
	_, self := newTestEntity(t)
	s := NewObstacleSensor(testSensingConfig(8))
	caster := &stubCaster{}
	hull := testHull()

	s.Update(caster, self, r3.Vec{}, 0, hull, 0.1)
	s.Update(caster, self, r3.Vec{}, 30, hull, 0.1)
	rate := s.YawRate()

	s.Update(caster, self, r3.Vec{}, 90, hull, 0)
	if s.YawRate() != rate {
		t.Errorf("yaw rate changed on zero dt: got %v, want %v", s.YawRate(), rate)
	}
}
