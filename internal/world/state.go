package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/lunara/engine/internal/component"
	"github.com/lunara/engine/internal/core/ecs"
)

// State is the live entity/component store. It is owned by the frame driver;
// script code never touches it directly, only through snapshots, pooled
// contexts, and drained commands. Accessed only from the simulation
// goroutine, so no locks.
type State struct {
	World *ecs.World

	Transforms *ecs.Store[component.Transform]
	Boxes      *ecs.Store[component.Box]
	Groups     *ecs.Store[component.Group]
	Signals    *ecs.Store[component.Signals]
	Sprites    *ecs.Store[component.Sprite]
	Follows    *ecs.Store[component.Follow]
	Effects    *ecs.Store[component.Effects]

	// Global named values shared with scripts through the snapshot.
	Scalars map[string]float64
	Ints    map[string]int64
	Strings map[string]string
	Flags   map[string]bool

	// Groups whose membership counts appear in the snapshot.
	TrackedGroups []string
}

func NewState() *State {
	s := &State{
		World:      ecs.NewWorld(),
		Transforms: ecs.NewStore[component.Transform](),
		Boxes:      ecs.NewStore[component.Box](),
		Groups:     ecs.NewStore[component.Group](),
		Signals:    ecs.NewStore[component.Signals](),
		Sprites:    ecs.NewStore[component.Sprite](),
		Follows:    ecs.NewStore[component.Follow](),
		Effects:    ecs.NewStore[component.Effects](),
		Scalars:    make(map[string]float64),
		Ints:       make(map[string]int64),
		Strings:    make(map[string]string),
		Flags:      make(map[string]bool),
	}
	reg := s.World.Registry()
	reg.Register(s.Transforms)
	reg.Register(s.Boxes)
	reg.Register(s.Groups)
	reg.Register(s.Signals)
	reg.Register(s.Sprites)
	reg.Register(s.Follows)
	reg.Register(s.Effects)
	return s
}

// Alive reports whether the handle still resolves. Commands targeting a dead
// handle are applied as no-ops.
func (s *State) Alive(id ecs.EntityID) bool {
	return s.World.Alive(id)
}

// Despawn marks an entity for end-of-frame destruction. The handle stops
// resolving immediately so later pair tests in the same frame skip it.
func (s *State) Despawn(id ecs.EntityID) {
	s.World.MarkForDestruction(id)
}

// GroupOf returns the entity's group tag, or "" when untagged.
func (s *State) GroupOf(id ecs.EntityID) string {
	if g, ok := s.Groups.Get(id); ok {
		return g.Name
	}
	return ""
}

// GroupCount counts live entities carrying the given group tag.
func (s *State) GroupCount(group string) int {
	n := 0
	s.Groups.Each(func(id ecs.EntityID, g *component.Group) {
		if g.Name == group && s.World.Alive(id) {
			n++
		}
	})
	return n
}

// TrackGroup registers a group for snapshot membership counting.
// Re-tracking an already tracked group is a no-op.
func (s *State) TrackGroup(group string) {
	for _, g := range s.TrackedGroups {
		if g == group {
			return
		}
	}
	s.TrackedGroups = append(s.TrackedGroups, group)
}

// SetSignal sets a per-entity signal value, creating the map on first use.
func (s *State) SetSignal(id ecs.EntityID, key string, value float64) {
	sig, ok := s.Signals.Get(id)
	if !ok {
		sig = &component.Signals{Values: make(map[string]float64, 4)}
		s.Signals.Set(id, sig)
	}
	if sig.Values == nil {
		sig.Values = make(map[string]float64, 4)
	}
	sig.Values[key] = value
}

// ClearSignal removes a per-entity signal value.
func (s *State) ClearSignal(id ecs.EntityID, key string) {
	if sig, ok := s.Signals.Get(id); ok {
		delete(sig.Values, key)
	}
}

// AddEffect inserts or refreshes a timed effect on an entity.
func (s *State) AddEffect(id ecs.EntityID, name string, duration float64) {
	eff, ok := s.Effects.Get(id)
	if !ok {
		eff = &component.Effects{}
		s.Effects.Set(id, eff)
	}
	for i := range eff.Active {
		if eff.Active[i].Name == name {
			eff.Active[i].Remaining = duration
			return
		}
	}
	eff.Active = append(eff.Active, component.Effect{Name: name, Remaining: duration})
}

// RemoveEffect removes a timed effect by name. Unknown names are no-ops.
func (s *State) RemoveEffect(id ecs.EntityID, name string) {
	eff, ok := s.Effects.Get(id)
	if !ok {
		return
	}
	for i := range eff.Active {
		if eff.Active[i].Name == name {
			eff.Active = append(eff.Active[:i], eff.Active[i+1:]...)
			return
		}
	}
}

// SpawnSpec carries everything a spawn command needs to instantiate an
// entity. It is assembled by the script-side builder or from a scene file.
type SpawnSpec struct {
	Group     string
	Position  mgl64.Vec2
	Velocity  mgl64.Vec2
	Rotation  float64
	Scale     float64
	BoxSize   mgl64.Vec2
	BoxOffset mgl64.Vec2
	HasBox    bool
	Sheet     string
	Animation string
	Phase     string
	Signals   map[string]float64
}

// Spawn instantiates an entity from a fully-resolved spec and returns its
// handle. The phase component, if any, is attached by the caller (the phase
// machine owns that store).
func (s *State) Spawn(spec SpawnSpec) ecs.EntityID {
	id := s.World.CreateEntity()

	scale := spec.Scale
	if scale == 0 {
		scale = 1
	}
	s.Transforms.Set(id, &component.Transform{
		Position: spec.Position,
		Velocity: spec.Velocity,
		Rotation: spec.Rotation,
		Scale:    scale,
	})
	if spec.Group != "" {
		s.Groups.Set(id, &component.Group{Name: spec.Group})
	}
	if spec.HasBox {
		s.Boxes.Set(id, &component.Box{Size: spec.BoxSize, Offset: spec.BoxOffset})
	}
	if spec.Sheet != "" || spec.Animation != "" {
		s.Sprites.Set(id, &component.Sprite{Sheet: spec.Sheet, Animation: spec.Animation})
	}
	if len(spec.Signals) > 0 {
		values := make(map[string]float64, len(spec.Signals))
		for k, v := range spec.Signals {
			values[k] = v
		}
		s.Signals.Set(id, &component.Signals{Values: values})
	}
	return id
}
