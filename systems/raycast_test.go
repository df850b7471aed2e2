package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironvale/vanguard/components"
)

func casterFixture(t *testing.T) (*ecs.World, *Battlefield, *WorldCaster) {
	t.Helper()
	w := ecs.NewWorld()
	field := emptyBattlefield(t)
	return w, field, NewWorldCaster(w, field)
}

func spawnVehicleAt(w *ecs.World, pos r3.Vec) ecs.Entity {
	tr := components.Transform{Pos: pos}
	hull := components.Hull{HalfLength: 400, HalfWidth: 180, EyeHeight: 220}
	return ecs.NewMap2[components.Transform, components.Hull](w).NewEntity(&tr, &hull)
}

func TestCastRayOpenGround(t *testing.T) {
	_, _, c := casterFixture(t)

	hit := c.CastRay(r3.Vec{X: 500, Y: 500, Z: 200}, r3.Vec{X: 3500, Y: 500, Z: 200}, nil)
	if hit.Hit {
		t.Errorf("hit on open ground: %+v", hit)
	}
}

func TestCastRayHitsRock(t *testing.T) {
	_, field, c := casterFixture(t)
	// Rock column at field cell (10, 2): world X in [2000, 2200).
	field.SetBlocked(10, 2, true)

	from := r3.Vec{X: 500, Y: 500, Z: 200}
	to := r3.Vec{X: 3500, Y: 500, Z: 200}
	hit := c.CastRay(from, to, nil)
	if !hit.Hit {
		t.Fatal("ray passed through rock")
	}
	if hit.Entity != (ecs.Entity{}) {
		t.Errorf("terrain hit carries an entity: %+v", hit.Entity)
	}
	// March resolution is half a cell; the reported distance lands on
	// the rock within one step of its front face.
	front := 2000.0 - from.X
	if hit.Distance < front-1e-9 || hit.Distance > front+field.CellSize() {
		t.Errorf("hit distance %v not at the rock face (~%v)", hit.Distance, front)
	}
}

func TestCastRayClearsRockAboveHeight(t *testing.T) {
	_, field, c := casterFixture(t)
	field.SetBlocked(10, 2, true)

	from := r3.Vec{X: 500, Y: 500, Z: RockHeight + 50}
	to := r3.Vec{X: 3500, Y: 500, Z: RockHeight + 50}
	if hit := c.CastRay(from, to, nil); hit.Hit {
		t.Errorf("high ray blocked by rock: %+v", hit)
	}
}

func TestCastRayHitsVehicleSphere(t *testing.T) {
	w, _, c := casterFixture(t)
	target := spawnVehicleAt(w, r3.Vec{X: 2000, Y: 500})

	from := r3.Vec{X: 500, Y: 500, Z: VehicleCenterHeight}
	to := r3.Vec{X: 3500, Y: 500, Z: VehicleCenterHeight}
	hit := c.CastRay(from, to, nil)
	if !hit.Hit || hit.Entity != target {
		t.Fatalf("vehicle not hit: %+v", hit)
	}

	// Bounding radius is the hull half-length.
	want := 1500.0 - 400
	if !scalar.EqualWithinAbs(hit.Distance, want, 1e-6) {
		t.Errorf("hit distance: got %v, want %v", hit.Distance, want)
	}
}

func TestCastRayIgnoreList(t *testing.T) {
	w, _, c := casterFixture(t)
	self := spawnVehicleAt(w, r3.Vec{X: 500, Y: 500})
	target := spawnVehicleAt(w, r3.Vec{X: 2000, Y: 500})

	from := r3.Vec{X: 500, Y: 500, Z: VehicleCenterHeight}
	to := r3.Vec{X: 3500, Y: 500, Z: VehicleCenterHeight}

	// Starting inside our own sphere, we would hit ourselves first.
	hit := c.CastRay(from, to, []ecs.Entity{self})
	if !hit.Hit || hit.Entity != target {
		t.Errorf("ignore list not honored: %+v", hit)
	}

	hit = c.CastRay(from, to, []ecs.Entity{self, target})
	if hit.Hit {
		t.Errorf("ignored vehicle still hit: %+v", hit)
	}
}

func TestCastRayNearestWins(t *testing.T) {
	w, field, c := casterFixture(t)
	// Vehicle in front of the rock along the same ray.
	field.SetBlocked(10, 2, true)
	near := spawnVehicleAt(w, r3.Vec{X: 1200, Y: 500})

	hit := c.CastRay(
		r3.Vec{X: 500, Y: 500, Z: VehicleCenterHeight},
		r3.Vec{X: 3500, Y: 500, Z: VehicleCenterHeight},
		nil,
	)
	if !hit.Hit || hit.Entity != near {
		t.Errorf("nearer vehicle lost to terrain: %+v", hit)
	}
}

func TestCastRayDegenerate(t *testing.T) {
	_, _, c := casterFixture(t)
	p := r3.Vec{X: 500, Y: 500, Z: 100}
	if hit := c.CastRay(p, p, nil); hit.Hit {
		t.Errorf("zero-length ray reported a hit: %+v", hit)
	}
}

func TestHullRadius(t *testing.T) {
	hull := components.Hull{HalfLength: 400, HalfWidth: 180}
	if hull.Radius() != 400 {
		t.Errorf("hull radius: got %v, want the larger half-extent 400", hull.Radius())
	}
	wide := components.Hull{HalfLength: 100, HalfWidth: 250}
	if wide.Radius() != 250 {
		t.Errorf("wide hull radius: got %v, want 250", wide.Radius())
	}
}
