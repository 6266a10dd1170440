// Package coords translates positions between the absolute space used by
// layout engines and the parent-relative space used by render front-ends.
//
// Both functions are pure. For any point p and container origin c:
//
//	ToLayoutSpace(ToRenderSpace(p, &c), &c) == p
//
// up to floating-point rounding, which [Equal] absorbs.
package coords

import "math"

// Tolerance is the default epsilon for comparing translated points.
const Tolerance = 1e-9

// Point is a position in layout units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ToRenderSpace converts an absolute position into one relative to the
// absolute origin of its parent container. A nil parent means the element is
// top-level and the position is returned unchanged.
func ToRenderSpace(abs Point, parent *Point) Point {
	if parent == nil {
		return abs
	}
	return Point{X: abs.X - parent.X, Y: abs.Y - parent.Y}
}

// ToLayoutSpace is the inverse of [ToRenderSpace].
func ToLayoutSpace(rel Point, parent *Point) Point {
	if parent == nil {
		return rel
	}
	return Point{X: rel.X + parent.X, Y: rel.Y + parent.Y}
}

// Equal reports whether a and b differ by at most tol in each axis, scaled by
// magnitude for large coordinates.
func Equal(a, b Point, tol float64) bool {
	return near(a.X, b.X, tol) && near(a.Y, b.Y, tol)
}

func near(a, b, tol float64) bool {
	d := math.Abs(a - b)
	if d <= tol {
		return true
	}
	return d <= tol*max(math.Abs(a), math.Abs(b))
}
