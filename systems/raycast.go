package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironvale/vanguard/components"
)

// VehicleCenterHeight is the height of a vehicle's bounding sphere
// center above the ground plane.
const VehicleCenterHeight = 150.0

// RayHit is the result of a single occlusion ray.
type RayHit struct {
	Hit      bool
	Entity   ecs.Entity // first-hit vehicle; zero entity for terrain
	Point    r3.Vec
	Distance float64
}

// RayCaster is the world query service: a single-ray occlusion test
// between two points, ignoring the given entities.
type RayCaster interface {
	CastRay(from, to r3.Vec, ignore []ecs.Entity) RayHit
}

// WorldCaster casts rays against the battlefield obstacle grid and
// vehicle bounding spheres.
type WorldCaster struct {
	world  *ecs.World
	field  *Battlefield
	filter ecs.Filter2[components.Transform, components.Hull]
}

// NewWorldCaster creates a ray caster over the given world and battlefield.
func NewWorldCaster(w *ecs.World, field *Battlefield) *WorldCaster {
	return &WorldCaster{
		world:  w,
		field:  field,
		filter: *ecs.NewFilter2[components.Transform, components.Hull](w),
	}
}

// CastRay traces from one point to another and returns the first hit.
func (c *WorldCaster) CastRay(from, to r3.Vec, ignore []ecs.Entity) RayHit {
	delta := r3.Sub(to, from)
	dist := r3.Norm(delta)
	if dist < 1e-9 {
		return RayHit{}
	}
	dir := r3.Scale(1/dist, delta)

	best := RayHit{}
	bestT := math.Inf(1)

	// Terrain: march the segment through the obstacle grid.
	if c.field != nil {
		step := c.field.CellSize() * 0.5
		steps := int(dist/step) + 1
		for i := 0; i <= steps; i++ {
			t := float64(i) * step
			if t > dist {
				t = dist
			}
			p := r3.Add(from, r3.Scale(t, dir))
			if p.Z < RockHeight && c.field.IsBlockedWorld(p.X, p.Y) {
				bestT = t
				best = RayHit{Hit: true, Point: p, Distance: t}
				break
			}
		}
	}

	// Vehicles: segment vs bounding sphere, nearest wins.
	query := c.filter.Query()
	for query.Next() {
		entity := query.Entity()
		if containsEntity(ignore, entity) {
			continue
		}
		tr, hull := query.Get()
		center := r3.Add(tr.Pos, r3.Vec{Z: VehicleCenterHeight})
		t, ok := raySphere(from, dir, dist, center, hull.Radius())
		if ok && t < bestT {
			bestT = t
			best = RayHit{
				Hit:      true,
				Entity:   entity,
				Point:    r3.Add(from, r3.Scale(t, dir)),
				Distance: t,
			}
		}
	}

	return best
}

// raySphere intersects a segment of length maxT starting at origin along
// dir with a sphere. Returns the nearest non-negative hit distance.
func raySphere(origin, dir r3.Vec, maxT float64, center r3.Vec, radius float64) (float64, bool) {
	oc := r3.Sub(origin, center)
	b := r3.Dot(oc, dir)
	cc := r3.Dot(oc, oc) - radius*radius
	disc := b*b - cc
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq // origin inside the sphere
	}
	if t < 0 || t > maxT {
		return 0, false
	}
	return t, true
}

func containsEntity(list []ecs.Entity, e ecs.Entity) bool {
	for _, x := range list {
		if x == e {
			return true
		}
	}
	return false
}
