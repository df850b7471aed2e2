// Package game ties the agent subsystems into a tick-driven battlefield
// simulation: vehicle spawning, the per-tick update order, drive
// kinematics, and episode management.
package game

import (
	"math/rand"

	"github.com/ironvale/vanguard/systems"
	"github.com/ironvale/vanguard/telemetry"
)

// SharedContext holds the services every vehicle controller needs.
// It is passed explicitly; nothing in this package reads globals.
type SharedContext struct {
	Field     *systems.Battlefield
	Caster    systems.RayCaster
	Mesh      systems.NavQuerier
	RNG       *rand.Rand
	Collector *telemetry.Collector
}
