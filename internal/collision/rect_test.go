package collision

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/lunara/engine/internal/component"
)

func rect(x, y, w, h float64) Rect {
	return Rect{Min: mgl64.Vec2{x, y}, Max: mgl64.Vec2{x + w, y + h}}
}

const eps = 1e-4

func TestOverlap(t *testing.T) {
	a := rect(0, 0, 10, 10)

	assert.True(t, a.Overlaps(rect(5, 5, 10, 10)))
	assert.True(t, rect(5, 5, 10, 10).Overlaps(a))

	// edge-touching is non-overlap on both axes
	assert.False(t, a.Overlaps(rect(10, 0, 10, 10)))
	assert.False(t, a.Overlaps(rect(0, 10, 10, 10)))
	assert.False(t, a.Overlaps(rect(10, 10, 10, 10)))

	// fully disjoint
	assert.False(t, a.Overlaps(rect(20, 20, 5, 5)))

	// containment overlaps
	assert.True(t, a.Overlaps(rect(2, 2, 4, 4)))
}

func TestContactSidesDiagonal(t *testing.T) {
	a := rect(0, 0, 10, 10)
	b := rect(5, 5, 10, 10)

	// b extends past a's right and bottom edges (y-down)
	sa := ContactSides(a, b, eps)
	assert.Equal(t, Sides{Bottom: true, Right: true}, sa)

	// a extends past b's left and top edges
	sb := ContactSides(b, a, eps)
	assert.Equal(t, Sides{Top: true, Left: true}, sb)
}

func TestContactSidesVerticalStack(t *testing.T) {
	ball := rect(0, 0, 10, 10)
	brick := rect(0, 9, 10, 10) // ball's bottom edge inside brick's top

	assert.Equal(t, Sides{Bottom: true}, ContactSides(ball, brick, eps))
	assert.Equal(t, Sides{Top: true}, ContactSides(brick, ball, eps))
}

func TestContactSidesContainment(t *testing.T) {
	inner := rect(4, 4, 2, 2)
	outer := rect(0, 0, 10, 10)

	// the containing rect penetrates past all four edges of the inner one
	assert.Equal(t, Sides{Top: true, Bottom: true, Left: true, Right: true},
		ContactSides(inner, outer, eps))
	assert.Equal(t, Sides{}, ContactSides(outer, inner, eps))
}

func TestContactSidesEpsilon(t *testing.T) {
	a := rect(0, 0, 10, 10)
	// edges aligned within epsilon: no side activates
	b := rect(0, 5, 10, 5.00001)
	s := ContactSides(a, b, 1e-3)
	assert.False(t, s.Bottom)
	assert.True(t, ContactSides(a, rect(0, 5, 10, 6), 1e-3).Bottom)
}

func TestFromBox(t *testing.T) {
	tr := &component.Transform{Position: mgl64.Vec2{100, 50}}
	box := &component.Box{Size: mgl64.Vec2{8, 8}, Offset: mgl64.Vec2{-4, -4}}

	r := FromBox(tr, box)
	assert.Equal(t, mgl64.Vec2{96, 46}, r.Min)
	assert.Equal(t, mgl64.Vec2{104, 54}, r.Max)
}
