package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ironvale/vanguard/components"
	"github.com/ironvale/vanguard/config"
)

// LOD distance bands as fractions of max detection range, and the
// visibility recomputation period (in frames) for each band.
var lodBands = [4]struct {
	maxFraction float64
	period      uint64
}{
	{0.25, 1},
	{0.50, 2},
	{0.75, 4},
	{math.Inf(1), 8},
}

// Priority target scoring weights.
const (
	priorityAwarenessWeight = 2.0
	priorityCombatBonus     = 10.0
	priorityAlertedBonus    = 5.0
	priorityConeBonus       = 8.0
	priorityProximityWeight = 3.0
)

// eyeMode records which rung of the eye resolution chain succeeded;
// cached after the first lookup.
type eyeMode uint8

const (
	eyeUnresolved eyeMode = iota
	eyePitchMount
	eyeYawMount
	eyeTurret
	eyeHullSocket
	eyeHullOffset
	eyeWorldForward
)

// DetectionEvent fires when a contact leaves the Unaware state for the
// first time since tracking began.
type DetectionEvent struct {
	Entity ecs.Entity
	Entry  *DetectedEntity
}

// StateChangeEvent fires on every awareness state transition.
type StateChangeEvent struct {
	Entity ecs.Entity
	Old    AwarenessState
	New    AwarenessState
}

// ConeEvent fires when a contact enters or leaves the firing cone.
type ConeEvent struct {
	Entity  ecs.Entity
	Entered bool
}

// DetectionEngine runs the layered visibility pipeline for one vehicle:
// candidate caching, budget-limited multi-socket raycasts, LOD
// scheduling, awareness accumulation and the bounded contact memory.
// It only runs on the authoritative simulation instance.
type DetectionEngine struct {
	cfg    config.DetectionConfig
	world  *ecs.World
	caster RayCaster
	owner  ecs.Entity

	posMap    ecs.Map1[components.Transform]
	velMap    ecs.Map1[components.Velocity]
	teamMap   ecs.Map1[components.Team]
	hullMap   ecs.Map1[components.Hull]
	socketMap ecs.Map1[components.SocketSet]
	turretMap ecs.Map1[components.Turret]
	scan      ecs.Filter2[components.Transform, components.Team]

	enabled   bool
	authority bool

	tracker      *Tracker
	candidates   []ecs.Entity
	refreshTimer float64
	rrIndex      int
	frameCounter uint64
	budget       int

	eye eyeMode

	// Edge-triggered events, dispatched synchronously within the tick
	// that computed the change.
	OnDetected     Emitter[DetectionEvent]
	OnStateChanged Emitter[StateChangeEvent]
	OnConeChanged  Emitter[ConeEvent]
}

// NewDetectionEngine creates a detection engine for the given owner
// vehicle. The config is read-only after this call.
func NewDetectionEngine(w *ecs.World, cfg config.DetectionConfig, caster RayCaster, owner ecs.Entity) *DetectionEngine {
	return &DetectionEngine{
		cfg:       cfg,
		world:     w,
		caster:    caster,
		owner:     owner,
		posMap:    *ecs.NewMap1[components.Transform](w),
		velMap:    *ecs.NewMap1[components.Velocity](w),
		teamMap:   *ecs.NewMap1[components.Team](w),
		hullMap:   *ecs.NewMap1[components.Hull](w),
		socketMap: *ecs.NewMap1[components.SocketSet](w),
		turretMap: *ecs.NewMap1[components.Turret](w),
		scan:      *ecs.NewFilter2[components.Transform, components.Team](w),
		enabled:   true,
		authority: true,
		tracker:   NewTracker(cfg.MaxTracked, cfg.MemoryDuration),
	}
}

// SetEnabled toggles the whole pipeline.
func (e *DetectionEngine) SetEnabled(v bool) { e.enabled = v }

// SetAuthority marks whether this instance is authoritative. Without
// authority the pipeline is fully skipped; callers hold only the
// replicated contact summary.
func (e *DetectionEngine) SetAuthority(v bool) { e.authority = v }

// Tracker exposes the contact memory for read access.
func (e *DetectionEngine) Tracker() *Tracker { return e.tracker }

// Update runs one detection cycle. No-op without authority, when
// disabled, or when the owner handle no longer resolves.
func (e *DetectionEngine) Update(dt float64) {
	if !e.authority || !e.enabled {
		return
	}
	if !e.world.Alive(e.owner) {
		return
	}
	e.frameCounter++

	// Time passes for every tracked contact, processed or not.
	for _, entry := range e.tracker.Entries() {
		entry.pendingDT += dt
		entry.TimeSinceSeen += dt
	}

	e.refreshTimer -= dt
	if e.refreshTimer <= 0 {
		e.rebuildCandidates()
		e.refreshTimer = e.cfg.RefreshInterval
	}

	e.budget = e.cfg.MaxRaycastsPerFrame

	nc := len(e.candidates)
	if nc > 0 {
		processed := 0
		for k := 0; k < nc; k++ {
			if e.budget <= 0 {
				break
			}
			cand := e.candidates[(e.rrIndex+k)%nc]
			processed++
			if !e.world.Alive(cand) {
				continue
			}
			if !e.lodDue(cand) {
				continue
			}
			e.processCandidate(cand)
		}
		// Fairness under budget pressure: continue where we stopped.
		e.rrIndex = (e.rrIndex + processed) % nc
	}

	e.decayLostContacts()
	e.tracker.Purge(e.world.Alive)
}

// decayLostContacts ages tracked contacts that fell out of the
// candidate cache (left max range). Without this a Combat entry beyond
// range would hold its awareness forever and pin an unevictable
// tracker slot.
func (e *DetectionEngine) decayLostContacts() {
	for _, entry := range e.tracker.Entries() {
		if e.isCandidate(entry.Entity) {
			continue
		}
		entry.Visibility = 0
		entry.VisibleMask = 0
		entry.Awareness = math.Max(0, entry.Awareness-e.cfg.DecayRate*entry.pendingDT)
		entry.pendingDT = 0
		e.applyDerivedState(entry)
	}
}

func (e *DetectionEngine) isCandidate(ent ecs.Entity) bool {
	for _, c := range e.candidates {
		if c == ent {
			return true
		}
	}
	return false
}

// rebuildCandidates caches opposing-team entities within max range
// using a cheap squared-distance filter.
func (e *DetectionEngine) rebuildCandidates() {
	e.candidates = e.candidates[:0]
	ownerPos := e.posMap.Get(e.owner).Pos
	ownerTeam := e.teamMap.Get(e.owner).ID
	maxSq := e.cfg.MaxRange * e.cfg.MaxRange

	query := e.scan.Query()
	for query.Next() {
		entity := query.Entity()
		if entity == e.owner {
			continue
		}
		tr, team := query.Get()
		if team.ID == ownerTeam {
			continue
		}
		d := r3.Sub(tr.Pos, ownerPos)
		if r3.Dot(d, d) > maxSq {
			continue
		}
		e.candidates = append(e.candidates, entity)
	}
	if len(e.candidates) > 0 {
		e.rrIndex %= len(e.candidates)
	} else {
		e.rrIndex = 0
	}
}

// lodDue applies distance-band frequency throttling.
func (e *DetectionEngine) lodDue(cand ecs.Entity) bool {
	ownerPos := e.posMap.Get(e.owner).Pos
	candPos := e.posMap.Get(cand).Pos
	frac := dist2D(ownerPos, candPos) / e.cfg.MaxRange

	for _, band := range lodBands {
		if frac < band.maxFraction {
			return e.frameCounter%band.period == 0
		}
	}
	return true
}

// processCandidate computes layered visibility for one candidate and
// folds the result into its tracked entry.
func (e *DetectionEngine) processCandidate(cand ecs.Entity) {
	vis, mask, bestVisible := e.computeVisibility(cand)

	entry, tracked := e.tracker.Get(cand)
	if !tracked {
		if vis <= 0 {
			return
		}
		var ok bool
		entry, ok = e.tracker.Track(cand)
		if !ok {
			// Capacity exhausted with no evictable slot: the new
			// detection is silently dropped this tick.
			return
		}
	}

	elapsed := entry.pendingDT
	entry.pendingDT = 0

	candPos := e.posMap.Get(cand).Pos
	eyePos, lookDir := e.resolveEye()
	toTarget := r3.Sub(targetCenter(candPos), eyePos)

	entry.Visibility = vis
	entry.VisibleMask = mask
	entry.Distance = r3.Norm(toTarget)
	entry.AngleTo = SignedHorizontalAngle(lookDir, toTarget)

	if vis > 0 {
		entry.Awareness = clamp01(entry.Awareness + vis*e.cfg.GainRate*elapsed)
		entry.TimeSinceSeen = 0
		entry.LastKnownPos = candPos
		entry.BestVisiblePos = bestVisible
		if vel := e.velMap.Get(cand); vel != nil {
			entry.LastKnownVel = vel.Lin
		}
	} else {
		entry.Awareness = math.Max(0, entry.Awareness-e.cfg.DecayRate*elapsed)
	}

	e.applyDerivedState(entry)
}

// applyDerivedState recomputes the level-triggered awareness state and
// firing-cone flag, firing edge-triggered events on change.
func (e *DetectionEngine) applyDerivedState(entry *DetectedEntity) {
	oldState := entry.State
	entry.State = StateForAwareness(entry.Awareness)
	if entry.State != oldState {
		if oldState == StateUnaware {
			e.OnDetected.Emit(DetectionEvent{Entity: entry.Entity, Entry: entry})
		}
		e.OnStateChanged.Emit(StateChangeEvent{Entity: entry.Entity, Old: oldState, New: entry.State})
	}

	inCone := math.Abs(entry.AngleTo) <= e.cfg.FiringConeHalfAngle
	if inCone != entry.InFiringCone {
		entry.InFiringCone = inCone
		e.OnConeChanged.Emit(ConeEvent{Entity: entry.Entity, Entered: inCone})
	}
}

// computeVisibility runs the cheapest-first visibility layers: FOV,
// range, distance falloff, then budget-limited multi-socket raycasts.
func (e *DetectionEngine) computeVisibility(cand ecs.Entity) (vis float64, mask uint8, bestVisible r3.Vec) {
	eyePos, lookDir := e.resolveEye()
	candTr := e.posMap.Get(cand)
	center := targetCenter(candTr.Pos)
	toTarget := r3.Sub(center, eyePos)
	dist := r3.Norm(toTarget)

	// FOV layer with peripheral extension.
	halfFOV := e.cfg.FOV / 2
	angle := AngleBetween(lookDir, toTarget)
	fovEff := 0.0
	switch {
	case angle <= halfFOV:
		fovEff = 1.0
	case angle <= halfFOV+e.cfg.PeripheralExtension:
		t := (angle - halfFOV) / e.cfg.PeripheralExtension
		fovEff = 1 - t*(1-e.cfg.PeripheralFloor)
	default:
		return 0, 0, r3.Vec{}
	}

	// Range layers.
	if dist > e.cfg.MaxRange {
		return 0, 0, r3.Vec{}
	}
	if dist <= e.cfg.InstantRange {
		// Point blank: fully visible regardless of occlusion, no casts.
		return 1.0, 0xFF, center
	}

	falloff := 1 - (dist/e.cfg.MaxRange)*(dist/e.cfg.MaxRange)

	// Multi-socket raycasts.
	sockets := e.candidateSockets(cand)
	totalWeight := 0.0
	for _, s := range sockets {
		totalWeight += s.Weight
	}

	ignore := []ecs.Entity{e.owner}
	visibleWeight := 0.0
	checked := 0
	bestWeight := 0.0

	for i, sock := range sockets {
		if e.budget <= 0 {
			// Partial check: rescale the denominator by the fraction of
			// sockets actually cast so visibility is not biased low.
			totalWeight *= float64(checked) / float64(len(sockets))
			break
		}
		sockWorld := r3.Add(candTr.Pos, rotateZ(sock.Offset, candTr.Yaw))
		hit := e.caster.CastRay(eyePos, sockWorld, ignore)
		e.budget--
		checked++

		if !hit.Hit || hit.Entity == cand {
			visibleWeight += sock.Weight
			mask |= 1 << uint(i)
			if sock.Weight > bestWeight {
				bestWeight = sock.Weight
				bestVisible = sockWorld
			}
		}
	}

	if totalWeight <= 0 {
		return 0, 0, r3.Vec{}
	}
	vis = clamp01((visibleWeight / totalWeight) * fovEff * falloff)
	return vis, mask, bestVisible
}

// candidateSockets returns the candidate's configured sockets, or a
// single unit-weight sample at the vehicle center as fallback.
func (e *DetectionEngine) candidateSockets(cand ecs.Entity) []components.Socket {
	if set := e.socketMap.Get(cand); set != nil && len(set.Sockets) > 0 {
		return set.Sockets
	}
	return []components.Socket{{Name: "center", Offset: r3.Vec{Z: VehicleCenterHeight}, Weight: 1}}
}

// resolveEye returns the eye position and look direction. The chain
// prefers the turret pitch mount, then the yaw mount, then the turret
// itself, then a hull socket named "eye", then the configured hull eye
// offset, then world forward. The successful rung is cached.
func (e *DetectionEngine) resolveEye() (r3.Vec, r3.Vec) {
	tr := e.posMap.Get(e.owner)

	if e.eye == eyeUnresolved {
		e.eye = e.classifyEye()
	}

	switch e.eye {
	case eyePitchMount:
		t := e.turretMap.Get(e.owner)
		eye := r3.Add(tr.Pos, rotateZ(t.PitchMount, tr.Yaw))
		return eye, AnglesToDirection(tr.Yaw+t.Yaw, t.Pitch)
	case eyeYawMount:
		t := e.turretMap.Get(e.owner)
		eye := r3.Add(tr.Pos, rotateZ(t.YawMount, tr.Yaw))
		return eye, AnglesToDirection(tr.Yaw+t.Yaw, 0)
	case eyeTurret:
		t := e.turretMap.Get(e.owner)
		eye := r3.Add(tr.Pos, r3.Vec{Z: e.ownerEyeHeight()})
		return eye, AnglesToDirection(tr.Yaw+t.Yaw, t.Pitch)
	case eyeHullSocket:
		set := e.socketMap.Get(e.owner)
		sock, _ := set.Named("eye")
		return r3.Add(tr.Pos, rotateZ(sock.Offset, tr.Yaw)), AnglesToDirection(tr.Yaw, 0)
	case eyeHullOffset:
		return r3.Add(tr.Pos, r3.Vec{Z: e.ownerEyeHeight()}), AnglesToDirection(tr.Yaw, 0)
	default:
		return tr.Pos, r3.Vec{X: 1}
	}
}

func (e *DetectionEngine) classifyEye() eyeMode {
	if t := e.turretMap.Get(e.owner); t != nil {
		if t.HasPitchMount {
			return eyePitchMount
		}
		if t.HasYawMount {
			return eyeYawMount
		}
		return eyeTurret
	}
	if set := e.socketMap.Get(e.owner); set != nil {
		if _, ok := set.Named("eye"); ok {
			return eyeHullSocket
		}
	}
	if e.hullMap.Get(e.owner) != nil {
		return eyeHullOffset
	}
	return eyeWorldForward
}

func (e *DetectionEngine) ownerEyeHeight() float64 {
	if h := e.hullMap.Get(e.owner); h != nil {
		return h.EyeHeight
	}
	return 0
}

// ReportContact seeds or raises awareness of an entity from an external
// contact report (for example a teammate radio call). Returns false if
// the contact could not be tracked.
func (e *DetectionEngine) ReportContact(cand ecs.Entity, awarenessFloor float64) bool {
	if !e.authority || !e.enabled || !e.world.Alive(cand) {
		return false
	}
	entry, ok := e.tracker.Track(cand)
	if !ok {
		return false
	}
	if entry.Awareness < awarenessFloor {
		entry.Awareness = clamp01(awarenessFloor)
	}
	entry.LastKnownPos = e.posMap.Get(cand).Pos
	if vel := e.velMap.Get(cand); vel != nil {
		entry.LastKnownVel = vel.Lin
	}

	eyePos, lookDir := e.resolveEye()
	toTarget := r3.Sub(targetCenter(entry.LastKnownPos), eyePos)
	entry.Distance = r3.Norm(toTarget)
	entry.AngleTo = SignedHorizontalAngle(lookDir, toTarget)

	e.applyDerivedState(entry)
	return true
}

// PriorityTarget returns the highest-scoring tracked contact, or false
// if none is tracked. Ties keep the first entry in iteration order.
func (e *DetectionEngine) PriorityTarget() (*DetectedEntity, bool) {
	var best *DetectedEntity
	bestScore := math.Inf(-1)
	for _, entry := range e.tracker.Entries() {
		score := priorityAwarenessWeight * entry.Awareness
		switch entry.State {
		case StateCombat:
			score += priorityCombatBonus
		case StateAlerted:
			score += priorityAlertedBonus
		}
		if entry.InFiringCone {
			score += priorityConeBonus
		}
		score += priorityProximityWeight * (1 - entry.Distance/e.cfg.MaxRange)
		if score > bestScore {
			bestScore = score
			best = entry
		}
	}
	return best, best != nil
}

// targetCenter is the aim point used for FOV and range layers.
func targetCenter(pos r3.Vec) r3.Vec {
	return r3.Add(pos, r3.Vec{Z: VehicleCenterHeight})
}
