// Package phase implements the per-entity finite state machine. Script code
// requests transitions; the machine commits them on a strict schedule with
// exit-before-enter ordering and a bounded same-frame chain.
package phase

import (
	"sort"

	"go.uber.org/zap"

	"github.com/lunara/engine/internal/core/ecs"
	"github.com/lunara/engine/internal/world"
)

// Phase is one entity's state container. Previous is meaningful only during
// the enter callback of the current state.
type Phase struct {
	Current    string
	Previous   string
	TimeIn     float64
	Pending    string
	HasPending bool
}

// Callbacks is implemented by the scripting layer. Each callback runs to
// completion before the machine proceeds; none may block.
type Callbacks interface {
	Enter(id ecs.EntityID, state, previous string)
	Update(id ecs.EntityID, state string, timeIn, dt float64)
	Exit(id ecs.EntityID, state, next string)
}

// Machine owns the phase component store and commits transitions once per
// frame. Exactly one state is current per attached entity at any observation
// point.
type Machine struct {
	store        *ecs.Store[Phase]
	state        *world.State
	cb           Callbacks
	onTransition func(id ecs.EntityID, from, to string)
	chainCap     int
	log          *zap.Logger

	order []ecs.EntityID // scratch, reused across frames
}

func NewMachine(state *world.State, chainCap int, log *zap.Logger) *Machine {
	m := &Machine{
		store:    ecs.NewStore[Phase](),
		state:    state,
		chainCap: chainCap,
		log:      log,
		order:    make([]ecs.EntityID, 0, 64),
	}
	state.World.Registry().Register(m.store)
	return m
}

// SetCallbacks wires the scripting layer. Must be called before Step.
func (m *Machine) SetCallbacks(cb Callbacks) {
	m.cb = cb
}

// OnTransition registers a hook that fires after each committed transition,
// once the new state's enter callback has returned.
func (m *Machine) OnTransition(fn func(id ecs.EntityID, from, to string)) {
	m.onTransition = fn
}

// Get returns the entity's phase, if attached.
func (m *Machine) Get(id ecs.EntityID) (*Phase, bool) {
	return m.store.Get(id)
}

// Attach gives an entity its initial state and runs the enter callback. A
// transition requested during this enter commits at the next Step.
func (m *Machine) Attach(id ecs.EntityID, state string) {
	m.store.Set(id, &Phase{Current: state})
	if m.cb != nil {
		m.cb.Enter(id, state, "")
	}
}

// Request records a pending transition for the entity. At most one request
// is outstanding per entity; the last one wins. Requests for unattached or
// dead entities are dropped.
func (m *Machine) Request(id ecs.EntityID, state string) {
	if !m.state.Alive(id) {
		return
	}
	p, ok := m.store.Get(id)
	if !ok {
		return
	}
	p.Pending = state
	p.HasPending = true
}

// Step runs one frame of the machine: every attached entity's update
// callback, then all pending transition commits. Update order is sorted by
// handle so callback order is deterministic.
func (m *Machine) Step(dt float64) {
	m.order = m.order[:0]
	m.store.Each(func(id ecs.EntityID, _ *Phase) {
		m.order = append(m.order, id)
	})
	sort.Slice(m.order, func(i, j int) bool { return m.order[i] < m.order[j] })

	// Update pass. A request recorded here does not interrupt the in-flight
	// callback; it is committed below, after every entity has updated.
	for _, id := range m.order {
		if !m.state.Alive(id) {
			continue
		}
		p, ok := m.store.Get(id)
		if !ok {
			continue
		}
		if m.cb != nil {
			m.cb.Update(id, p.Current, p.TimeIn, dt)
		}
		// Re-read: the callback may have committed a despawn indirectly.
		if p2, ok := m.store.Get(id); ok && p2.Current == p.Current {
			p2.TimeIn += dt
		}
	}

	// Commit pass: exit old, enter new, chase same-frame chains up to the
	// configured cap.
	for _, id := range m.order {
		if !m.state.Alive(id) {
			continue
		}
		m.commit(id)
	}
}

func (m *Machine) commit(id ecs.EntityID) {
	for depth := 0; ; depth++ {
		p, ok := m.store.Get(id)
		if !ok || !p.HasPending {
			return
		}
		if depth >= m.chainCap {
			m.log.Warn("phase transition chain cap reached, breaking",
				zap.Uint64("entity", uint64(id)),
				zap.String("state", p.Current),
				zap.String("dropped", p.Pending),
				zap.Int("cap", m.chainCap))
			p.Pending = ""
			p.HasPending = false
			return
		}

		next := p.Pending
		p.Pending = ""
		p.HasPending = false
		old := p.Current

		if m.cb != nil {
			m.cb.Exit(id, old, next)
		}
		// The exit callback may have despawned the entity.
		if !m.state.Alive(id) {
			return
		}
		p, ok = m.store.Get(id)
		if !ok {
			return
		}
		p.Current = next
		p.Previous = old
		p.TimeIn = 0
		if m.cb != nil {
			m.cb.Enter(id, next, old)
		}
		if m.onTransition != nil {
			m.onTransition(id, old, next)
		}
	}
}
