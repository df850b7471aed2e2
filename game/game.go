package game

import (
	"log/slog"
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironvale/vanguard/components"
	"github.com/ironvale/vanguard/config"
	"github.com/ironvale/vanguard/policy"
	"github.com/ironvale/vanguard/systems"
	"github.com/ironvale/vanguard/telemetry"
)

// Vehicle spawn layout: lateral spacing between teammates, in world units.
const spawnSpacing = 1500.0

// vehicleState is the per-vehicle bookkeeping the game loop carries
// between ticks.
type vehicleState struct {
	entity ecs.Entity
	svc    *VehicleService
	agent  Agent

	speed float64 // signed forward speed, units/s
	clear []float64
	obs   policy.Observation
}

// Game holds the complete simulation state for one battlefield.
type Game struct {
	world *ecs.World
	rng   *rand.Rand
	cfg   *config.Config

	vehicleMapper *ecs.Map6[
		components.Transform,
		components.Velocity,
		components.Team,
		components.Hull,
		components.Turret,
		components.SocketSet,
	]
	transformMap *ecs.Map1[components.Transform]
	velMap       *ecs.Map1[components.Velocity]
	turretMap    *ecs.Map1[components.Turret]
	hullMap      *ecs.Map1[components.Hull]

	ctx    *SharedContext
	output *telemetry.OutputManager

	vehicles []*vehicleState
	tick     int

	demoRows []telemetry.DatasetRecord
	net      *policy.FFNN
}

// NewGame builds the world, terrain, navigation mesh and both teams.
func NewGame(cfg *config.Config, seed int64, output *telemetry.OutputManager) (*Game, error) {
	world := ecs.NewWorld()
	rng := rand.New(rand.NewSource(seed))

	field := systems.NewBattlefield(cfg.World, seed)
	grid := systems.NewNavGridFromBattlefield(field, cfg.Navigation.NavCellSize, cfg.Navigation.NavInflation)

	g := &Game{
		world: world,
		rng:   rng,
		cfg:   cfg,
		vehicleMapper: ecs.NewMap6[
			components.Transform,
			components.Velocity,
			components.Team,
			components.Hull,
			components.Turret,
			components.SocketSet,
		](world),
		transformMap: ecs.NewMap1[components.Transform](world),
		velMap:       ecs.NewMap1[components.Velocity](world),
		turretMap:    ecs.NewMap1[components.Turret](world),
		hullMap:      ecs.NewMap1[components.Hull](world),
		output:       output,
	}

	g.ctx = &SharedContext{
		Field:     field,
		Caster:    systems.NewWorldCaster(world, field),
		Mesh:      systems.NewNavMesh(grid),
		RNG:       rng,
		Collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Sim.DT),
	}

	if cfg.Policy.WeightsPath != "" {
		net, err := policy.LoadFFNN(cfg.Policy.WeightsPath)
		if err != nil {
			return nil, err
		}
		g.net = net
	}

	g.spawnTeams()
	return g, nil
}

// spawnTeams places both teams on opposite edges, facing each other.
func (g *Game) spawnTeams() {
	width, height := g.ctx.Field.Bounds()
	margin := width / 10 * 0.5
	n := g.cfg.Sim.TeamSize

	for i := 0; i < n; i++ {
		y := height/2 + (float64(i)-float64(n-1)/2)*spawnSpacing
		g.spawnVehicle(margin, y, 0, components.TeamRed)
		g.spawnVehicle(width-margin, y, 180, components.TeamBlue)
	}
}

// spawnVehicle creates one vehicle entity with its full subsystem stack.
func (g *Game) spawnVehicle(x, y, yaw float64, team components.TeamID) *vehicleState {
	cfg := g.cfg

	tr := components.Transform{Pos: r3.Vec{X: x, Y: y}, Yaw: yaw}
	vel := components.Velocity{}
	tm := components.Team{ID: team}
	hull := components.Hull{
		HalfLength: cfg.Hull.HalfLength,
		HalfWidth:  cfg.Hull.HalfWidth,
		EyeHeight:  cfg.Hull.EyeHeight,
	}
	turret := components.Turret{}

	sockets := components.SocketSet{Sockets: make([]components.Socket, 0, len(cfg.Detection.Sockets))}
	for _, s := range cfg.Detection.Sockets {
		var off r3.Vec
		if len(s.Offset) == 3 {
			off = r3.Vec{X: s.Offset[0], Y: s.Offset[1], Z: s.Offset[2]}
		}
		sockets.Sockets = append(sockets.Sockets, components.Socket{
			Name:   s.Name,
			Offset: off,
			Weight: s.Weight,
		})
	}

	entity := g.vehicleMapper.NewEntity(&tr, &vel, &tm, &hull, &turret, &sockets)

	svc := NewVehicleService(cfg, g.ctx, g.world, entity, g.rng)

	var agent Agent
	if g.net != nil {
		agent = &PolicyAgent{Policy: policy.NewFFNNPolicy(g.net)}
	} else {
		agent = ScriptedAgent{}
	}

	vs := &vehicleState{
		entity: entity,
		svc:    svc,
		agent:  agent,
		clear:  make([]float64, cfg.Sensing.NumProbes),
	}
	g.wireTelemetry(vs)
	g.vehicles = append(g.vehicles, vs)
	return vs
}

// wireTelemetry subscribes the shared collector to a vehicle's events.
func (g *Game) wireTelemetry(vs *vehicleState) {
	c := g.ctx.Collector
	vs.svc.Detect.OnDetected.Subscribe(func(systems.DetectionEvent) { c.RecordDetection() })
	vs.svc.Detect.OnStateChanged.Subscribe(func(systems.StateChangeEvent) { c.RecordStateChange() })
	vs.svc.Detect.OnConeChanged.Subscribe(func(ev systems.ConeEvent) {
		if ev.Entered {
			c.RecordConeEntry()
		}
	})
	vs.svc.Nav.OnWaypointReached.Subscribe(func(systems.WaypointEvent) { c.RecordWaypointReached() })
	vs.svc.Nav.OnRegenerated.Subscribe(func(systems.RegeneratedEvent) { c.RecordRegeneration() })
	vs.svc.Maneuver.OnStuck.Subscribe(func(systems.StuckEvent) { c.RecordStuck() })
	vs.svc.Maneuver.OnRecovery.Subscribe(func(ev systems.RecoveryEvent) { c.RecordRecovery(ev.Succeeded) })
	vs.svc.Maneuver.OnModeChanged.Subscribe(func(systems.ModeChangeEvent) { c.RecordModeTransition() })
}

// Step advances the simulation one tick: sensing, detection, navigation,
// maneuvering, then the policy boundary and drive integration, in that
// order for every vehicle.
func (g *Game) Step() {
	dt := g.cfg.Sim.DT

	for _, vs := range g.vehicles {
		tr := g.transformMap.Get(vs.entity)
		vel := g.velMap.Get(vs.entity)
		hull := g.hullMap.Get(vs.entity)
		turret := g.turretMap.Get(vs.entity)
		if tr == nil || vel == nil || hull == nil || turret == nil {
			continue
		}

		vs.svc.Sensor.Update(g.ctx.Caster, vs.entity, tr.Pos, tr.Yaw, *hull, dt)
		vs.svc.Detect.Update(dt)

		if !vs.svc.Nav.HasTarget() || vs.svc.Nav.AllCompleted() {
			vs.svc.Nav.GenerateRandomTarget(tr.Pos, g.cfg.Navigation.RandomTargetMin, g.cfg.Navigation.RandomTargetMax)
		}
		vs.svc.Nav.Update(tr.Pos)

		in := systems.ManeuverInput{
			Pos:          tr.Pos,
			Yaw:          tr.Yaw,
			ForwardSpeed: vs.speed,
			DT:           dt,
		}
		// Scripted agents hand the turret to the maneuver layer; policy
		// agents keep it and slew it from the action instead.
		var mTurret *components.Turret
		if vs.agent.Scripted() {
			mTurret = turret
		}
		controls := vs.svc.Maneuver.Update(in, vs.svc.Sensor, vs.svc.Detect, vs.svc.Nav, mTurret)

		g.buildObservation(vs, tr, vel, turret)
		act := vs.agent.Act(&vs.obs, controls).Clamped()

		g.integrateDrive(vs, tr, vel, act, dt)
		if !vs.agent.Scripted() {
			step := g.cfg.Combat.TurretTurnSpeed * dt
			turret.Yaw = systems.MoveTowardAngle(turret.Yaw, act.TurretYaw, step)
			turret.Pitch = systems.MoveTowardAngle(turret.Pitch, act.TurretPitch, step)
		}

		if g.cfg.Policy.RecordDemos && vs.agent.Scripted() {
			g.demoRows = append(g.demoRows,
				telemetry.NewDatasetRecord(g.tick, uint32(vs.entity.ID()), &vs.obs, act))
		}
	}

	g.tick++
	g.flushTelemetry()
}

// buildObservation fills the vehicle's observation record in place.
func (g *Game) buildObservation(vs *vehicleState, tr *components.Transform, vel *components.Velocity, turret *components.Turret) {
	vs.clear = vs.svc.Sensor.Normalized(vs.clear)

	var dirToRef r3.Vec
	if entry, ok := vs.svc.Detect.PriorityTarget(); ok {
		d := r3.Sub(entry.LastKnownPos, tr.Pos)
		if n := r3.Norm(d); n > 0 {
			dirToRef = r3.Scale(1/n, d)
		}
	}

	vs.obs = policy.Observation{
		Clearances:   vs.clear,
		LinVel:       vel.Lin,
		BodyYaw:      tr.Yaw,
		ForwardSpeed: vs.speed,
		TurretYaw:    turret.Yaw,
		TurretPitch:  turret.Pitch,
		DirToRef:     dirToRef,
	}
}

// integrateDrive applies one tick of drive kinematics. Driving into a
// rock cell stops the vehicle in place.
func (g *Game) integrateDrive(vs *vehicleState, tr *components.Transform, vel *components.Velocity, act policy.Action, dt float64) {
	h := g.cfg.Hull

	target := act.Throttle * h.MaxSpeed
	if act.Throttle < 0 {
		target = act.Throttle * h.MaxReverseSpeed
	}
	target *= 1 - act.Brake

	accel := h.Acceleration + act.Brake*h.BrakeDecel
	delta := target - vs.speed
	maxStep := accel * dt
	if math.Abs(delta) > maxStep {
		delta = math.Copysign(maxStep, delta)
	}
	vs.speed += delta

	tr.Yaw = systems.WrapDeg(tr.Yaw + act.Steering*h.TurnRate*dt)

	forward := systems.AnglesToDirection(tr.Yaw, 0)
	next := r3.Add(tr.Pos, r3.Scale(vs.speed*dt, forward))

	width, height := g.ctx.Field.Bounds()
	if next.X < 0 || next.X >= width || next.Y < 0 || next.Y >= height ||
		g.ctx.Field.IsBlockedWorld(next.X, next.Y) {
		vs.speed = 0
		vel.Lin = r3.Vec{}
		return
	}

	tr.Pos = next
	vel.Lin = r3.Scale(vs.speed, forward)
}

// flushTelemetry emits a stats row and buffered demo rows when the
// current window closes.
func (g *Game) flushTelemetry() {
	c := g.ctx.Collector
	if !c.ShouldFlush(g.tick) {
		return
	}

	sample := telemetry.FleetSample{VehicleCount: len(g.vehicles)}
	for _, vs := range g.vehicles {
		entries := vs.svc.Detect.Tracker().Entries()
		sample.TrackedTotal += len(entries)
		for _, entry := range entries {
			sample.Awareness = append(sample.Awareness, entry.Awareness)
		}
		if vs.svc.Maneuver.Mode() == systems.ModeCombat {
			sample.CombatCount++
		}
	}

	stats := c.Flush(g.tick, sample)
	if err := g.output.WriteStats(stats); err != nil {
		slog.Error("writing stats row", "error", err)
	}
	if err := g.output.WriteDataset(g.demoRows); err != nil {
		slog.Error("writing dataset rows", "error", err)
	}
	g.demoRows = g.demoRows[:0]
}

// RunEpisode steps until maxTicks and returns the tick count.
func (g *Game) RunEpisode(maxTicks int) int {
	for t := 0; t < maxTicks; t++ {
		g.Step()
	}
	return maxTicks
}

// Reset returns every vehicle to its spawn pose and clears all contact
// memory and navigation state for a fresh episode.
func (g *Game) Reset() {
	width, height := g.ctx.Field.Bounds()
	margin := width / 10 * 0.5
	n := g.cfg.Sim.TeamSize

	for i, vs := range g.vehicles {
		tr := g.transformMap.Get(vs.entity)
		vel := g.velMap.Get(vs.entity)
		turret := g.turretMap.Get(vs.entity)
		if tr == nil || vel == nil || turret == nil {
			continue
		}

		pair := i / 2
		y := height/2 + (float64(pair)-float64(n-1)/2)*spawnSpacing
		if i%2 == 0 {
			tr.Pos = r3.Vec{X: margin, Y: y}
			tr.Yaw = 0
		} else {
			tr.Pos = r3.Vec{X: width - margin, Y: y}
			tr.Yaw = 180
		}
		*vel = components.Velocity{}
		*turret = components.Turret{}
		vs.speed = 0

		vs.svc.Detect.Tracker().Clear()
		vs.svc.Nav.ClearTarget()
	}
	g.tick = 0
}

// Tick returns the current tick counter.
func (g *Game) Tick() int { return g.tick }

// Vehicles returns the vehicle states for inspection.
func (g *Game) Vehicles() []*VehicleService {
	out := make([]*VehicleService, len(g.vehicles))
	for i, vs := range g.vehicles {
		out[i] = vs.svc
	}
	return out
}
