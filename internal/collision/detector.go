// Package collision implements the pairwise AABB detector and rule
// dispatcher. Dispatch is synchronous: a rule handler runs to completion and
// its collision-scoped commands are applied before the next pair is tested,
// so corrections made by one overlap are visible to every later test in the
// same frame.
package collision

import (
	"sort"

	"go.uber.org/zap"

	"github.com/lunara/engine/internal/component"
	"github.com/lunara/engine/internal/core/ecs"
	"github.com/lunara/engine/internal/world"
)

// Detector finds overlapping group-tagged, box-bearing entities and invokes
// registered rules. Small-N sweep: every unordered candidate pair is tested
// brute force, which is exact at this scale.
type Detector struct {
	state   *world.State
	rules   *Rules
	epsilon float64
	log     *zap.Logger

	// flush drains the collision command queue and applies its contents.
	// Wired by the frame driver; called after every dispatched handler.
	flush func()

	candidates []ecs.EntityID
	pair       Pair // pooled, repopulated per dispatch
}

func NewDetector(state *world.State, rules *Rules, epsilon float64, flush func(), log *zap.Logger) *Detector {
	return &Detector{
		state:      state,
		rules:      rules,
		epsilon:    epsilon,
		log:        log,
		flush:      flush,
		candidates: make([]ecs.EntityID, 0, 64),
	}
}

// Run performs one frame's pair tests. Candidate order is sorted by handle so
// dispatch order is deterministic across frames regardless of map iteration.
func (d *Detector) Run() {
	d.candidates = d.candidates[:0]
	ecs.Each3(d.state.Groups, d.state.Boxes, d.state.Transforms,
		func(id ecs.EntityID, _ *component.Group, _ *component.Box, _ *component.Transform) {
			d.candidates = append(d.candidates, id)
		})
	sort.Slice(d.candidates, func(i, j int) bool { return d.candidates[i] < d.candidates[j] })

	for i := 0; i < len(d.candidates); i++ {
		a := d.candidates[i]
		if !d.state.Alive(a) {
			continue // despawned by an earlier pair's handler
		}
		for j := i + 1; j < len(d.candidates); j++ {
			b := d.candidates[j]
			if !d.state.Alive(a) {
				break // a despawned mid-row
			}
			if !d.state.Alive(b) {
				continue
			}
			d.test(a, b)
		}
	}
}

// test re-reads both entities' current geometry (earlier handlers may have
// moved them), checks overlap, and dispatches the registered rule if any.
func (d *Detector) test(a, b ecs.EntityID) {
	ta, ok := d.state.Transforms.Get(a)
	if !ok {
		return
	}
	tb, ok := d.state.Transforms.Get(b)
	if !ok {
		return
	}
	ba, ok := d.state.Boxes.Get(a)
	if !ok {
		return
	}
	bb, ok := d.state.Boxes.Get(b)
	if !ok {
		return
	}

	ra := FromBox(ta, ba)
	rb := FromBox(tb, bb)
	if !ra.Overlaps(rb) {
		return
	}

	ga := d.state.GroupOf(a)
	gb := d.state.GroupOf(b)
	handler, swapped := d.rules.Lookup(ga, gb)
	if handler == nil {
		return // no rule registered: overlap is silently ignored
	}
	if swapped {
		a, b = b, a
		ta, tb = tb, ta
		ra, rb = rb, ra
		ga, gb = gb, ga
	}

	d.fillSide(&d.pair.A, a, ga, ta, ra, rb)
	d.fillSide(&d.pair.B, b, gb, tb, rb, ra)

	handler(&d.pair)
	if d.flush != nil {
		d.flush()
	}
}

// fillSide repopulates one pooled side in place. Every field is written on
// every call so no state survives from the previous occupant.
func (d *Detector) fillSide(s *Side, id ecs.EntityID, group string, t *component.Transform, own, other Rect) {
	s.Entity = id
	s.Group = group
	s.Position = t.Position
	s.Velocity = t.Velocity
	s.SpeedSq = t.Velocity.Dot(t.Velocity)
	s.Rect = own
	s.Signals = nil
	if sig, ok := d.state.Signals.Get(id); ok {
		s.Signals = sig.Values
	}
	s.Contact = ContactSides(own, other, d.epsilon)
}
