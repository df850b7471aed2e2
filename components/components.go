// Package components defines ECS components for combat vehicles.
package components

import "gonum.org/v1/gonum/spatial/r3"

// TeamID identifies which side a vehicle fights for.
type TeamID uint8

const (
	TeamRed TeamID = iota
	TeamBlue
)

// Transform holds a vehicle's world position and body yaw.
// The world is Z-up; yaw is degrees about Z with 0 along +X.
type Transform struct {
	Pos r3.Vec
	Yaw float64
}

// Velocity holds a vehicle's linear velocity in world units per second.
type Velocity struct {
	Lin r3.Vec
}

// Team marks a vehicle's side.
type Team struct {
	ID TeamID
}

// Hull holds the physical footprint of a vehicle.
// The hull is an axis-aligned rectangle in local space: X forward
// (half-length) and Y lateral (half-width).
type Hull struct {
	HalfLength float64
	HalfWidth  float64
	EyeHeight  float64 // fallback eye offset above hull center
}

// Radius returns the bounding radius used for coarse ray intersection.
func (h Hull) Radius() float64 {
	if h.HalfLength > h.HalfWidth {
		return h.HalfLength
	}
	return h.HalfWidth
}

// Turret holds turret rotation state and mount geometry.
// Yaw is hull-relative degrees; pitch is degrees above the horizon.
type Turret struct {
	Yaw   float64
	Pitch float64

	// Mount offsets in hull-local space. The pitch mount (gun cradle) is
	// preferred as the eye; the yaw mount (ring) is the fallback.
	PitchMount    r3.Vec
	YawMount      r3.Vec
	HasPitchMount bool
	HasYawMount   bool
}

// Socket is a named visibility sample point on a vehicle.
type Socket struct {
	Name   string
	Offset r3.Vec // hull-local
	Weight float64
}

// SocketSet holds the detection sockets of a vehicle. At most 8 sockets
// are supported; socket i maps to bit i of a visibility mask.
type SocketSet struct {
	Sockets []Socket
}

// Named returns the socket with the given name, or false if absent.
func (s *SocketSet) Named(name string) (Socket, bool) {
	for _, sock := range s.Sockets {
		if sock.Name == name {
			return sock, true
		}
	}
	return Socket{}, false
}
