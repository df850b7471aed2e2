package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"
)

// AwarenessState is the graduated alert level toward one tracked enemy.
// It is always a pure function of accumulated awareness, never set
// independently.
type AwarenessState uint8

const (
	StateUnaware AwarenessState = iota
	StateSuspicious
	StateAlerted
	StateCombat
)

// Awareness thresholds separating the four states.
const (
	suspiciousThreshold = 0.15
	alertedThreshold    = 0.45
	combatThreshold     = 0.75
)

// String returns a short display name for the state.
func (s AwarenessState) String() string {
	switch s {
	case StateUnaware:
		return "unaware"
	case StateSuspicious:
		return "suspicious"
	case StateAlerted:
		return "alerted"
	case StateCombat:
		return "combat"
	default:
		return "unknown"
	}
}

// StateForAwareness derives the awareness state from an awareness level.
func StateForAwareness(a float64) AwarenessState {
	switch {
	case a >= combatThreshold:
		return StateCombat
	case a >= alertedThreshold:
		return StateAlerted
	case a >= suspiciousThreshold:
		return StateSuspicious
	default:
		return StateUnaware
	}
}

// DetectedEntity is the per-contact memory of the detection engine.
// The Entity field is a generation-checked handle; it must be resolved
// against the world before every use.
type DetectedEntity struct {
	Entity ecs.Entity

	Visibility float64 // this tick's raycast-weighted exposure, [0,1]
	Awareness  float64 // accumulated belief, [0,1]
	State      AwarenessState

	LastKnownPos   r3.Vec
	BestVisiblePos r3.Vec // position of the best visible socket
	LastKnownVel   r3.Vec

	TimeSinceSeen float64
	Distance      float64
	AngleTo       float64 // signed degrees, positive = left of look direction
	InFiringCone  bool
	VisibleMask   uint8 // bit i set = socket i unobstructed

	// pendingDT accumulates sim time between visibility recomputations
	// so LOD-skipped ticks still integrate into awareness.
	pendingDT float64
}

// evictionScore ranks entries for replacement; lowest goes first.
func (d *DetectedEntity) evictionScore(memoryDuration float64) float64 {
	return d.Awareness - d.TimeSinceSeen/memoryDuration
}

// Tracker is the bounded memory of detected entities. At most capacity
// entries are held; an entry in Combat state is never evicted to make
// room for a new one.
type Tracker struct {
	capacity       int
	memoryDuration float64

	entries []*DetectedEntity // iteration order = insertion order
	index   map[ecs.Entity]int
}

// NewTracker creates a tracker with the given capacity and memory duration.
func NewTracker(capacity int, memoryDuration float64) *Tracker {
	return &Tracker{
		capacity:       capacity,
		memoryDuration: memoryDuration,
		index:          make(map[ecs.Entity]int, capacity),
	}
}

// Get returns the entry for an entity, or false if not tracked.
func (t *Tracker) Get(e ecs.Entity) (*DetectedEntity, bool) {
	i, ok := t.index[e]
	if !ok {
		return nil, false
	}
	return t.entries[i], true
}

// Track returns the existing entry for an entity, or creates one.
// Creation fails (returns nil, false) when the tracker is full and
// every slot is in Combat state.
func (t *Tracker) Track(e ecs.Entity) (*DetectedEntity, bool) {
	if entry, ok := t.Get(e); ok {
		return entry, true
	}
	if len(t.entries) >= t.capacity {
		if !t.evictOne() {
			return nil, false
		}
	}
	entry := &DetectedEntity{Entity: e}
	t.index[e] = len(t.entries)
	t.entries = append(t.entries, entry)
	return entry, true
}

// evictOne removes the lowest-scoring non-Combat entry. Returns false
// if every entry is in Combat state.
func (t *Tracker) evictOne() bool {
	victim := -1
	var worst float64
	for i, entry := range t.entries {
		if entry.State == StateCombat {
			continue
		}
		score := entry.evictionScore(t.memoryDuration)
		if victim < 0 || score < worst {
			victim = i
			worst = score
		}
	}
	if victim < 0 {
		return false
	}
	t.removeAt(victim)
	return true
}

// Remove drops the entry for an entity if present.
func (t *Tracker) Remove(e ecs.Entity) {
	if i, ok := t.index[e]; ok {
		t.removeAt(i)
	}
}

func (t *Tracker) removeAt(i int) {
	delete(t.index, t.entries[i].Entity)
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	for j := i; j < len(t.entries); j++ {
		t.index[t.entries[j].Entity] = j
	}
}

// Purge removes entries whose handle no longer resolves, and forgotten
// entries: awareness at zero with time since seen beyond the memory
// duration.
func (t *Tracker) Purge(alive func(ecs.Entity) bool) {
	for i := len(t.entries) - 1; i >= 0; i-- {
		entry := t.entries[i]
		if !alive(entry.Entity) {
			t.removeAt(i)
			continue
		}
		if entry.Awareness <= 0 && entry.TimeSinceSeen > t.memoryDuration {
			t.removeAt(i)
		}
	}
}

// Clear drops all entries.
func (t *Tracker) Clear() {
	t.entries = t.entries[:0]
	for k := range t.index {
		delete(t.index, k)
	}
}

// Entries returns the tracked entries in stable iteration order.
func (t *Tracker) Entries() []*DetectedEntity {
	return t.entries
}

// Len returns the tracked entry count.
func (t *Tracker) Len() int {
	return len(t.entries)
}
