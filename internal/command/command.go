// Package command defines the deferred mutation protocol between script code
// and the entity store. Script bindings append self-describing commands to
// categorized queues; the frame driver drains and applies them on a strict
// schedule. Commands carry plain values only, no live references into the
// store, so a despawned target simply makes the apply a no-op.
package command

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/lunara/engine/internal/core/ecs"
)

// Command is a closed tagged union of mutation requests. The unexported
// marker keeps the set of variants confined to this package; the frame
// driver applies them with an exhaustive type switch.
type Command interface {
	isCommand()
}

// SetVelocity replaces an entity's velocity.
type SetVelocity struct {
	Target   ecs.EntityID
	Velocity mgl64.Vec2
}

// SetPosition teleports an entity.
type SetPosition struct {
	Target   ecs.EntityID
	Position mgl64.Vec2
}

// Despawn marks an entity for end-of-frame destruction.
type Despawn struct {
	Target ecs.EntityID
}

// SetSignal sets a per-entity signal value.
type SetSignal struct {
	Target ecs.EntityID
	Key    string
	Value  float64
}

// ClearSignal removes a per-entity signal value.
type ClearSignal struct {
	Target ecs.EntityID
	Key    string
}

// AttachFollow anchors Target to Anchor at a fixed offset.
type AttachFollow struct {
	Target ecs.EntityID
	Anchor ecs.EntityID
	Offset mgl64.Vec2
}

// DetachFollow removes a follow relationship.
type DetachFollow struct {
	Target ecs.EntityID
}

// AddEffect inserts or refreshes a timed effect.
type AddEffect struct {
	Target   ecs.EntityID
	Name     string
	Duration float64
}

// RemoveEffect removes a timed effect by name.
type RemoveEffect struct {
	Target ecs.EntityID
	Name   string
}

// RequestPhase records a pending phase transition for the target. The phase
// machine commits it at its next commit point.
type RequestPhase struct {
	Target ecs.EntityID
	State  string
}

// SetValue sets a global named scalar.
type SetValue struct {
	Key   string
	Value float64
}

// SetInt sets a global named integer.
type SetInt struct {
	Key   string
	Value int64
}

// SetString sets a global named string.
type SetString struct {
	Key   string
	Value string
}

// SetFlag sets a global named flag.
type SetFlag struct {
	Key   string
	Value bool
}

// Spawn instantiates a new entity. The archetype is resolved by the driver
// against the loaded archetype table at apply time; an unknown archetype is
// a logged no-op. Builder overrides win over template values.
type Spawn struct {
	Archetype   string
	Position    mgl64.Vec2
	HasPosition bool
	Velocity    mgl64.Vec2
	HasVelocity bool
	Phase       string             // "" keeps the template's initial phase
	Signals     map[string]float64 // merged over template signals
}

// PlaySound requests a fire-and-forget sound effect.
type PlaySound struct {
	Name string
}

// StartTimer registers (or restarts) a named timer.
type StartTimer struct {
	Name      string
	Seconds   float64
	Repeating bool
}

// CancelTimer removes a named timer. Unknown names are no-ops.
type CancelTimer struct {
	Name string
}

func (SetVelocity) isCommand()  {}
func (SetPosition) isCommand()  {}
func (Despawn) isCommand()      {}
func (SetSignal) isCommand()    {}
func (ClearSignal) isCommand()  {}
func (AttachFollow) isCommand() {}
func (DetachFollow) isCommand() {}
func (AddEffect) isCommand()    {}
func (RemoveEffect) isCommand() {}
func (RequestPhase) isCommand() {}
func (SetValue) isCommand()     {}
func (SetInt) isCommand()       {}
func (SetString) isCommand()    {}
func (SetFlag) isCommand()      {}
func (Spawn) isCommand()        {}
func (PlaySound) isCommand()    {}
func (StartTimer) isCommand()   {}
func (CancelTimer) isCommand()  {}
