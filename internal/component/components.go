package component

import "github.com/go-gl/mathgl/mgl64"

// Components are pure data. Systems and drained commands mutate them; script
// code only ever sees copies packed into pooled contexts.

// Transform holds an entity's kinematic state.
type Transform struct {
	Position mgl64.Vec2
	Velocity mgl64.Vec2
	Rotation float64
	Scale    float64
}

// Box is an axis-aligned collision shape: a size plus an origin offset.
// The derived world-space rectangle is Position+Offset .. +Size.
type Box struct {
	Size   mgl64.Vec2
	Offset mgl64.Vec2
}

// Group tags an entity for collision-rule matching and tracked counting.
type Group struct {
	Name string
}

// Signals is a per-entity string→value map scripts read in collision
// contexts and mutate through set/clear signal commands.
type Signals struct {
	Values map[string]float64
}

// Sprite is the render summary exposed to script contexts. The rendering
// pipeline itself lives outside this core.
type Sprite struct {
	Sheet     string
	Animation string
	Frame     int
	FlipX     bool
}

// Follow locks an entity's position to its target plus an offset. A
// despawned target detaches silently at the next integration step.
type Follow struct {
	Target uint64 // ecs.EntityID of the anchor
	Offset mgl64.Vec2
}

// Effect is one timed per-entity effect. Expiry removes it and fires an
// event; Remaining counts down by dt each frame.
type Effect struct {
	Name      string
	Remaining float64
}

// Effects holds an entity's active timed effects.
type Effects struct {
	Active []Effect
}
