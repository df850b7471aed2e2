package systems

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironvale/vanguard/config"
)

// Random target search: total attempts, and how often the search radius
// shrinks while attempts keep failing.
const (
	randomTargetAttempts    = 20
	attemptsPerRadiusShrink = 5
	radiusShrinkFactor      = 0.7
)

// WaypointEvent fires when the cursor advances past a waypoint.
type WaypointEvent struct {
	Index int
	Point r3.Vec
}

// RegeneratedEvent fires when the route is rebuilt from the current
// position toward the existing target.
type RegeneratedEvent struct {
	Waypoints int
}

// WaypointNavigator translates a target point into a traversable
// sequence of intermediate points and tracks progress along it.
// The waypoint list is replaced whole on regeneration; only the cursor
// advances otherwise.
type WaypointNavigator struct {
	cfg config.NavigationConfig
	nav NavQuerier
	rng *rand.Rand

	waypoints []r3.Vec
	cursor    int
	target    r3.Vec
	hasTarget bool

	OnWaypointReached Emitter[WaypointEvent]
	OnRegenerated     Emitter[RegeneratedEvent]
}

// NewWaypointNavigator creates a navigator over the given query service.
func NewWaypointNavigator(cfg config.NavigationConfig, nav NavQuerier, rng *rand.Rand) *WaypointNavigator {
	return &WaypointNavigator{cfg: cfg, nav: nav, rng: rng}
}

// SetTarget establishes a navigation target, snapped to the navigable
// surface, and generates waypoints from the given start position.
// Returns false only when no navigation service is available.
func (n *WaypointNavigator) SetTarget(from, target r3.Vec) bool {
	if n.nav == nil {
		return false
	}
	if snapped, ok := n.nav.SnapToNavigable(target); ok {
		target = snapped
	}
	n.target = target
	n.hasTarget = true
	n.GenerateWaypointsToTarget(from)
	return true
}

// GenerateRandomTarget picks a reachable point at a radial distance in
// [minDist, maxDist] from the start. Up to 20 attempts are made, with
// the search radius shrinking every 5 failures. Returns false when all
// attempts fail.
func (n *WaypointNavigator) GenerateRandomTarget(from r3.Vec, minDist, maxDist float64) bool {
	if n.nav == nil {
		return false
	}
	radius := maxDist
	for attempt := 0; attempt < randomTargetAttempts; attempt++ {
		if attempt > 0 && attempt%attemptsPerRadiusShrink == 0 {
			radius *= radiusShrinkFactor
			if radius < minDist {
				radius = minDist
			}
		}
		ang := n.rng.Float64() * 2 * math.Pi
		d := minDist + n.rng.Float64()*(radius-minDist)
		candidate := r3.Vec{
			X: from.X + math.Cos(ang)*d,
			Y: from.Y + math.Sin(ang)*d,
		}
		snapped, ok := n.nav.SnapToNavigable(candidate)
		if !ok {
			continue
		}
		n.target = snapped
		n.hasTarget = true
		n.GenerateWaypointsToTarget(from)
		return true
	}
	return false
}

// GenerateWaypointsToTarget builds the waypoint sequence from the given
// position to the current target. Both endpoints are snapped to the
// navigable surface best-effort. A partial path ending far from the
// true target gets the target appended; total path failure falls back
// to a direct two-point route, so an agent is never left without one.
func (n *WaypointNavigator) GenerateWaypointsToTarget(from r3.Vec) bool {
	if !n.hasTarget || n.nav == nil {
		return false
	}

	start := from
	if snapped, ok := n.nav.SnapToNavigable(start); ok {
		start = snapped
	}
	goal := n.target
	if snapped, ok := n.nav.SnapToNavigable(goal); ok {
		goal = snapped
	}

	points, complete, ok := n.nav.FindPath(start, goal)
	if !ok || len(points) == 0 {
		// Forward progress over correctness: drive straight at it.
		n.waypoints = []r3.Vec{start, n.target}
		n.cursor = 0
		return false
	}

	n.waypoints = append(n.waypoints[:0], points...)
	last := n.waypoints[len(n.waypoints)-1]
	if !complete && dist2D(last, n.target) > n.cfg.PartialPathAppend {
		// Partial path: make sure the sequence still terminates at the
		// real goal.
		n.waypoints = append(n.waypoints, n.target)
	}
	n.cursor = 0
	return true
}

// RegenerateFromCurrentPosition recomputes the route to the existing
// target, emitting a regeneration event on success.
func (n *WaypointNavigator) RegenerateFromCurrentPosition(pos r3.Vec) bool {
	if !n.hasTarget {
		return false
	}
	if !n.GenerateWaypointsToTarget(pos) {
		return false
	}
	n.OnRegenerated.Emit(RegeneratedEvent{Waypoints: len(n.waypoints)})
	return true
}

// Update advances the cursor when the current waypoint is within the
// reach radius (2D distance), emitting a reached event per waypoint.
// Completion is polled via AllCompleted, not pushed.
func (n *WaypointNavigator) Update(pos r3.Vec) {
	if !n.hasTarget || n.cursor >= len(n.waypoints) {
		return
	}
	wp := n.waypoints[n.cursor]
	if dist2D(pos, wp) <= n.cfg.WaypointReachRadius {
		idx := n.cursor
		n.cursor++
		n.OnWaypointReached.Emit(WaypointEvent{Index: idx, Point: wp})
	}
}

// CurrentWaypoint returns the waypoint under the cursor, or false when
// the route is exhausted or absent.
func (n *WaypointNavigator) CurrentWaypoint() (r3.Vec, bool) {
	if !n.hasTarget || n.cursor >= len(n.waypoints) {
		return r3.Vec{}, false
	}
	return n.waypoints[n.cursor], true
}

// AllCompleted reports whether every waypoint has been reached.
func (n *WaypointNavigator) AllCompleted() bool {
	return n.hasTarget && n.cursor >= len(n.waypoints)
}

// HasTarget reports whether a target is established.
func (n *WaypointNavigator) HasTarget() bool { return n.hasTarget }

// Target returns the current target point.
func (n *WaypointNavigator) Target() r3.Vec { return n.target }

// Waypoints returns the current sequence for read access.
func (n *WaypointNavigator) Waypoints() []r3.Vec { return n.waypoints }

// ClearTarget drops the target and the waypoint sequence.
func (n *WaypointNavigator) ClearTarget() {
	n.hasTarget = false
	n.waypoints = n.waypoints[:0]
	n.cursor = 0
}
