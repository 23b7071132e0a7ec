// Package hull computes planar convex hulls and their areas.
package hull

import (
	"math"
	"sort"

	"github.com/sells-group/glad-clusters/internal/model"
)

// Hull is a convex polygon. Vertices are listed once each, without the
// closing repeat of the first vertex.
type Hull struct {
	Vertices []model.Point `json:"vertices"`
	Area     float64       `json:"area"`
}

// Ring returns the vertices closed back onto the first one, or nil when the
// hull is not a polygon.
func (h Hull) Ring() []model.Point {
	if len(h.Vertices) < 3 {
		return nil
	}
	ring := make([]model.Point, 0, len(h.Vertices)+1)
	ring = append(ring, h.Vertices...)
	return append(ring, h.Vertices[0])
}

// Compute returns the convex hull of points by quickhull. Fewer than two
// distinct points yield the distinct points themselves; collinear input
// yields its two extremes. Both cases have zero area.
func Compute(points []model.Point) Hull {
	pts := distinct(points)
	if len(pts) < 2 {
		return Hull{Vertices: pts}
	}

	// pts is sorted, so the extremes are the first and last entries.
	u, v := pts[0], pts[len(pts)-1]
	left, right := split(u, v, pts), split(v, u, pts)

	vertices := make([]model.Point, 0, len(pts))
	vertices = append(vertices, v)
	vertices = append(vertices, extend(u, v, left)...)
	vertices = append(vertices, u)
	vertices = append(vertices, extend(v, u, right)...)

	return Hull{Vertices: vertices, Area: Area(vertices)}
}

// Area is the shoelace area of a polygon given by its vertices in order.
func Area(vertices []model.Point) float64 {
	n := len(vertices)
	if n < 3 {
		return 0
	}
	var s float64
	for i, p := range vertices {
		q := vertices[(i+1)%n]
		s += p.X*q.Y - p.Y*q.X
	}
	return 0.5 * math.Abs(s)
}

func cross(p, u, v model.Point) float64 {
	return (p.X-u.X)*(v.Y-u.Y) - (p.Y-u.Y)*(v.X-u.X)
}

// split keeps the points strictly on the negative side of u->v.
func split(u, v model.Point, pts []model.Point) []model.Point {
	var out []model.Point
	for _, p := range pts {
		if cross(p, u, v) < 0 {
			out = append(out, p)
		}
	}
	return out
}

func extend(u, v model.Point, pts []model.Point) []model.Point {
	if len(pts) == 0 {
		return nil
	}
	w := pts[0]
	best := cross(w, u, v)
	for _, p := range pts[1:] {
		if c := cross(p, u, v); c < best {
			w, best = p, c
		}
	}

	out := extend(w, v, split(w, v, pts))
	out = append(out, w)
	return append(out, extend(u, w, split(u, w, pts))...)
}

// distinct returns the unique points sorted by (x, y).
func distinct(points []model.Point) []model.Point {
	pts := make([]model.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	out := pts[:0]
	for _, p := range pts {
		if len(out) > 0 && p == out[len(out)-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}
