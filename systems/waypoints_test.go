package systems

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironvale/vanguard/config"
)

// stubNav is a canned navigation query service.
type stubNav struct {
	snapFn func(r3.Vec) (r3.Vec, bool)
	pathFn func(start, goal r3.Vec) ([]r3.Vec, bool, bool)
}

func (s *stubNav) SnapToNavigable(p r3.Vec) (r3.Vec, bool) {
	if s.snapFn != nil {
		return s.snapFn(p)
	}
	return p, true
}

func (s *stubNav) FindPath(start, goal r3.Vec) ([]r3.Vec, bool, bool) {
	if s.pathFn != nil {
		return s.pathFn(start, goal)
	}
	return []r3.Vec{start, goal}, true, true
}

func testNavConfig() config.NavigationConfig {
	return config.NavigationConfig{
		WaypointReachRadius: 300,
		RandomTargetMin:     3000,
		RandomTargetMax:     12000,
		PartialPathAppend:   50,
	}
}

func newTestNavigator(nav NavQuerier) *WaypointNavigator {
	return NewWaypointNavigator(testNavConfig(), nav, rand.New(rand.NewSource(1)))
}

func TestNoPathFallsBackToDirectRoute(t *testing.T) {
	nav := &stubNav{pathFn: func(start, goal r3.Vec) ([]r3.Vec, bool, bool) {
		return nil, false, false
	}}
	n := newTestNavigator(nav)

	start := r3.Vec{X: 100, Y: 100}
	target := r3.Vec{X: 5000, Y: 5000}
	n.SetTarget(start, target)

	if !n.HasTarget() {
		t.Fatal("target dropped on path failure")
	}
	wps := n.Waypoints()
	if len(wps) != 2 {
		t.Fatalf("waypoint count: got %d, want 2", len(wps))
	}
	if wps[0] != start || wps[1] != target {
		t.Errorf("fallback route: got %v, want [%v %v]", wps, start, target)
	}
}

func TestPartialPathAppendsTarget(t *testing.T) {
	target := r3.Vec{X: 5000}
	farEnd := r3.Vec{X: 4000}

	nav := &stubNav{pathFn: func(start, goal r3.Vec) ([]r3.Vec, bool, bool) {
		return []r3.Vec{start, farEnd}, false, true
	}}
	n := newTestNavigator(nav)
	n.SetTarget(r3.Vec{}, target)

	wps := n.Waypoints()
	if len(wps) != 3 {
		t.Fatalf("waypoint count: got %d, want 3", len(wps))
	}
	if wps[2] != target {
		t.Errorf("last waypoint: got %v, want appended target %v", wps[2], target)
	}
}

func TestPartialPathNearTargetNotAppended(t *testing.T) {
	target := r3.Vec{X: 5000}
	nearEnd := r3.Vec{X: 4980} // within the append threshold

	nav := &stubNav{pathFn: func(start, goal r3.Vec) ([]r3.Vec, bool, bool) {
		return []r3.Vec{start, nearEnd}, false, true
	}}
	n := newTestNavigator(nav)
	n.SetTarget(r3.Vec{}, target)

	wps := n.Waypoints()
	if len(wps) != 2 {
		t.Errorf("waypoint count: got %d, want 2 (no append)", len(wps))
	}
}

func TestCompletePathNotAppended(t *testing.T) {
	target := r3.Vec{X: 5000}
	// Complete paths keep their endpoint even when snapping moved it.
	end := r3.Vec{X: 4800}
	nav := &stubNav{pathFn: func(start, goal r3.Vec) ([]r3.Vec, bool, bool) {
		return []r3.Vec{start, end}, true, true
	}}
	n := newTestNavigator(nav)
	n.SetTarget(r3.Vec{}, target)

	if len(n.Waypoints()) != 2 {
		t.Errorf("complete path was extended: %v", n.Waypoints())
	}
}

func TestWaypointAdvanceAndCompletion(t *testing.T) {
	points := []r3.Vec{{X: 0}, {X: 1000}, {X: 2000}}
	nav := &stubNav{pathFn: func(start, goal r3.Vec) ([]r3.Vec, bool, bool) {
		return points, true, true
	}}
	n := newTestNavigator(nav)
	n.SetTarget(r3.Vec{}, r3.Vec{X: 2000})

	var reached []int
	n.OnWaypointReached.Subscribe(func(ev WaypointEvent) { reached = append(reached, ev.Index) })

	// Out of reach: no advance.
	n.Update(r3.Vec{X: 500})
	if wp, _ := n.CurrentWaypoint(); wp != points[0] {
		t.Errorf("cursor advanced out of reach: %v", wp)
	}

	// Walk the route. Reach radius is 2D.
	n.Update(r3.Vec{X: 100, Z: 9999})
	n.Update(r3.Vec{X: 900})
	n.Update(r3.Vec{X: 2100})

	if !n.AllCompleted() {
		t.Error("route not completed")
	}
	if len(reached) != 3 {
		t.Errorf("reached events: got %v, want [0 1 2]", reached)
	}
}

func TestGenerateRandomTargetWithinBounds(t *testing.T) {
	n := newTestNavigator(&stubNav{})
	from := r3.Vec{X: 20000, Y: 20000}

	if !n.GenerateRandomTarget(from, 3000, 12000) {
		t.Fatal("random target generation failed with permissive nav")
	}
	d := dist2D(from, n.Target())
	if d < 3000-1e-9 || d > 12000+1e-9 {
		t.Errorf("target distance %v outside [3000, 12000]", d)
	}
}

func TestGenerateRandomTargetExhaustsAttempts(t *testing.T) {
	attempts := 0
	nav := &stubNav{snapFn: func(p r3.Vec) (r3.Vec, bool) {
		attempts++
		return r3.Vec{}, false
	}}
	n := newTestNavigator(nav)

	if n.GenerateRandomTarget(r3.Vec{}, 3000, 12000) {
		t.Fatal("generation succeeded with rejecting nav")
	}
	if attempts != randomTargetAttempts {
		t.Errorf("attempts: got %d, want %d", attempts, randomTargetAttempts)
	}
	if n.HasTarget() {
		t.Error("target set despite failure")
	}
}

func TestGenerateRandomTargetShrinksRadius(t *testing.T) {
	var dists []float64
	from := r3.Vec{}
	nav := &stubNav{snapFn: func(p r3.Vec) (r3.Vec, bool) {
		dists = append(dists, dist2D(from, p))
		return r3.Vec{}, false
	}}
	n := newTestNavigator(nav)
	n.GenerateRandomTarget(from, 3000, 12000)

	// After five failures the search radius contracts by 0.7.
	shrunk := 12000 * radiusShrinkFactor
	for i := attemptsPerRadiusShrink; i < 2*attemptsPerRadiusShrink; i++ {
		if dists[i] > shrunk+1e-9 {
			t.Errorf("attempt %d distance %v exceeds shrunk radius %v", i, dists[i], shrunk)
		}
	}
}

func TestRegenerateFromCurrentPosition(t *testing.T) {
	n := newTestNavigator(&stubNav{})
	n.SetTarget(r3.Vec{}, r3.Vec{X: 5000})

	var regen int
	n.OnRegenerated.Subscribe(func(RegeneratedEvent) { regen++ })

	if !n.RegenerateFromCurrentPosition(r3.Vec{X: 2500, Y: 100}) {
		t.Fatal("regeneration failed")
	}
	if regen != 1 {
		t.Errorf("regeneration events: got %d, want 1", regen)
	}
	if wp, ok := n.CurrentWaypoint(); !ok || wp != (r3.Vec{X: 2500, Y: 100}) {
		t.Errorf("route does not restart from current position: %v", wp)
	}

	n.ClearTarget()
	if n.RegenerateFromCurrentPosition(r3.Vec{}) {
		t.Error("regeneration succeeded without a target")
	}
}

func TestClearTarget(t *testing.T) {
	n := newTestNavigator(&stubNav{})
	n.SetTarget(r3.Vec{}, r3.Vec{X: 5000})
	n.ClearTarget()

	if n.HasTarget() {
		t.Error("target survives clear")
	}
	if _, ok := n.CurrentWaypoint(); ok {
		t.Error("waypoint survives clear")
	}
	if n.AllCompleted() {
		t.Error("cleared navigator reports completion")
	}
}
