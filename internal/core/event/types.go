package event

import "github.com/lunara/engine/internal/core/ecs"

// PhaseChanged fires when an entity commits a phase transition.
type PhaseChanged struct {
	EntityID ecs.EntityID
	From     string
	To       string
}

// EntityDespawned fires when a despawned entity's components are flushed.
type EntityDespawned struct {
	EntityID ecs.EntityID
	Group    string
}

// SoundRequested fires when a play-sound command is applied.
type SoundRequested struct {
	Name string
}

// EffectExpired fires when a timed effect's duration runs out.
type EffectExpired struct {
	EntityID ecs.EntityID
	Name     string
}
