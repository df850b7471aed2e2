package game

import (
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/ironvale/vanguard/config"
	"github.com/ironvale/vanguard/policy"
	"github.com/ironvale/vanguard/systems"
)

// VehicleService is the shared sensing and navigation stack composed
// into every agent, scripted or policy-driven.
type VehicleService struct {
	Entity   ecs.Entity
	Sensor   *systems.ObstacleSensor
	Detect   *systems.DetectionEngine
	Nav      *systems.WaypointNavigator
	Maneuver *systems.ManeuverController
}

// NewVehicleService wires the subsystem stack for one vehicle.
func NewVehicleService(cfg *config.Config, ctx *SharedContext, world *ecs.World, entity ecs.Entity, rng *rand.Rand) *VehicleService {
	return &VehicleService{
		Entity:   entity,
		Sensor:   systems.NewObstacleSensor(cfg.Sensing),
		Detect:   systems.NewDetectionEngine(world, cfg.Detection, ctx.Caster, entity),
		Nav:      systems.NewWaypointNavigator(cfg.Navigation, ctx.Mesh, rng),
		Maneuver: systems.NewManeuverController(cfg.Recovery, cfg.Combat),
	}
}

// Agent converts a per-tick observation into an action. The scripted
// controls computed by the maneuver layer are offered alongside, so a
// demonstrator can pass them through while a learned policy ignores
// them.
type Agent interface {
	Act(obs *policy.Observation, scripted systems.Controls) policy.Action

	// Scripted reports whether the maneuver layer drives this agent
	// (and therefore owns the turret).
	Scripted() bool
}

// ScriptedAgent replays the maneuver layer's decisions as actions.
// Used as the behavior-cloning demonstrator.
type ScriptedAgent struct{}

func (ScriptedAgent) Act(obs *policy.Observation, c systems.Controls) policy.Action {
	// The turret angles in the observation are the post-aim values,
	// which double as the commanded targets.
	return policy.Action{
		Throttle:    c.Throttle,
		Steering:    c.Steering,
		Brake:       c.Brake,
		TurretYaw:   obs.TurretYaw,
		TurretPitch: obs.TurretPitch,
	}
}

func (ScriptedAgent) Scripted() bool { return true }

// PolicyAgent defers every decision to a learned policy.
type PolicyAgent struct {
	Policy policy.Policy
}

func (a *PolicyAgent) Act(obs *policy.Observation, _ systems.Controls) policy.Action {
	return a.Policy.Act(obs).Clamped()
}

func (*PolicyAgent) Scripted() bool { return false }
