package collision

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/lunara/engine/internal/core/ecs"
)

// Side describes one participant of an overlapping pair as passed to a rule
// handler. Values are copies; handlers describe mutations through commands.
type Side struct {
	Entity   ecs.EntityID
	Group    string
	Position mgl64.Vec2
	Velocity mgl64.Vec2
	SpeedSq  float64
	Rect     Rect
	Signals  map[string]float64 // nil when the entity carries no signals
	Contact  Sides
}

// Pair is one dispatched overlap. Side A always belongs to the
// lexicographically-first group of the rule, so a rule registered for
// ("ball","brick") sees the ball as A no matter which entity was iterated
// first.
type Pair struct {
	A Side
	B Side
}

// Handler is invoked synchronously for each overlapping pair with a
// registered rule. The pair is pooled; it is valid only for the duration of
// the call.
type Handler func(p *Pair)

type pairKey struct {
	a, b string
}

// normalize orders a pair key lexicographically so ("brick","ball") and
// ("ball","brick") address the same rule.
func normalize(a, b string) (pairKey, bool) {
	if b < a {
		return pairKey{a: b, b: a}, true
	}
	return pairKey{a: a, b: b}, false
}

// Rules maps normalized group pairs to handlers. At most one rule exists per
// pair; re-registering replaces the previous handler.
type Rules struct {
	handlers map[pairKey]Handler
}

func NewRules() *Rules {
	return &Rules{handlers: make(map[pairKey]Handler, 16)}
}

// Register installs a handler for the (a, b) group pair, order-insensitive.
func (r *Rules) Register(a, b string, h Handler) {
	key, _ := normalize(a, b)
	r.handlers[key] = h
}

// Lookup finds the handler for an overlap reported as (a, b). swapped is
// true when b is the rule's first group, meaning the caller must present the
// second iterated entity as side A.
func (r *Rules) Lookup(a, b string) (h Handler, swapped bool) {
	key, swapped := normalize(a, b)
	h = r.handlers[key]
	return h, swapped
}

// Clear removes all registered rules. Used on scene teardown.
func (r *Rules) Clear() {
	r.handlers = make(map[pairKey]Handler, 16)
}
