package collision

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/lunara/engine/internal/component"
)

// Rect is a world-space axis-aligned rectangle in y-down screen coordinates.
type Rect struct {
	Min mgl64.Vec2
	Max mgl64.Vec2
}

// FromBox derives the world-space rectangle of a box shape anchored at a
// transform's position.
func FromBox(t *component.Transform, b *component.Box) Rect {
	min := t.Position.Add(b.Offset)
	return Rect{Min: min, Max: min.Add(b.Size)}
}

// Overlaps reports whether two rectangles intersect on both axes. Strict
// inequality throughout: edge-touching rectangles do not overlap, which
// avoids perpetual micro-collisions between resting bodies.
func (r Rect) Overlaps(o Rect) bool {
	return r.Min.X() < o.Max.X() && o.Min.X() < r.Max.X() &&
		r.Min.Y() < o.Max.Y() && o.Min.Y() < r.Max.Y()
}

// Sides is the four-direction contact set of one rectangle in an overlap.
type Sides struct {
	Top    bool
	Bottom bool
	Left   bool
	Right  bool
}

// ContactSides computes which sides of r are in contact with o, assuming the
// rectangles overlap. A side is active when o extends past the corresponding
// edge of r by more than eps; full containment of r activates all four.
func ContactSides(r, o Rect, eps float64) Sides {
	return Sides{
		Top:    o.Min.Y() < r.Min.Y()-eps,
		Bottom: o.Max.Y() > r.Max.Y()+eps,
		Left:   o.Min.X() < r.Min.X()-eps,
		Right:  o.Max.X() > r.Max.X()+eps,
	}
}
