package tile

import (
	"math"

	"github.com/rotisserie/eris"
)

// Range is an inclusive rectangle of tile columns and rows.
type Range struct {
	MinX int `json:"x_min" yaml:"x_min"`
	MaxX int `json:"x_max" yaml:"x_max"`
	MinY int `json:"y_min" yaml:"y_min"`
	MaxY int `json:"y_max" yaml:"y_max"`
}

// Validate rejects inverted ranges and tiles outside the zoom's grid.
func (r Range) Validate(z int) error {
	if r.MinX > r.MaxX || r.MinY > r.MaxY {
		return eris.Errorf("tile: inverted range x[%d,%d] y[%d,%d]", r.MinX, r.MaxX, r.MinY, r.MaxY)
	}
	if err := (Coord{Z: z, X: r.MinX, Y: r.MinY}).Validate(); err != nil {
		return err
	}
	return (Coord{Z: z, X: r.MaxX, Y: r.MaxY}).Validate()
}

// Size is the number of tiles in the range, saturating at math.MaxInt64.
func (r Range) Size() int64 {
	if r.MinX > r.MaxX || r.MinY > r.MaxY {
		return 0
	}
	w := int64(r.MaxX) - int64(r.MinX) + 1
	h := int64(r.MaxY) - int64(r.MinY) + 1
	if w <= 0 || h <= 0 || w > math.MaxInt64/h {
		return math.MaxInt64
	}
	return w * h
}

// Tiles enumerates every tile of the range, columns outermost. Callers
// bound Size first.
func (r Range) Tiles(z int) []Coord {
	var out []Coord
	if n := r.Size(); n <= math.MaxInt32 {
		out = make([]Coord, 0, n)
	}
	for x := r.MinX; x <= r.MaxX; x++ {
		for y := r.MinY; y <= r.MaxY; y++ {
			out = append(out, Coord{Z: z, X: x, Y: y})
		}
	}
	return out
}

// Bounds returns the lon/lat extent covered by the range.
func (r Range) Bounds(z int) (west, south, east, north float64) {
	west = Lon(z, r.MinX, 0)
	east = Lon(z, r.MaxX+1, 0)
	north = Lat(z, r.MinY, 0)
	south = Lat(z, r.MaxY+1, 0)
	return west, south, east, north
}

// BoundingBox returns Bounds as a closed lon/lat ring.
func (r Range) BoundingBox(z int) [][2]float64 {
	w, s, e, n := r.Bounds(z)
	return [][2]float64{{w, s}, {e, s}, {e, n}, {w, n}, {w, s}}
}

// RangeFromBounds returns the tiles covering a lon/lat box, clamped to the
// grid of zoom z.
func RangeFromBounds(z int, west, south, east, north float64) Range {
	x0, y0 := XY(z, west, north)
	x1, y1 := XY(z, east, south)
	return Range{
		MinX: clamp(z, math.Min(x0, x1)),
		MaxX: clamp(z, math.Max(x0, x1)),
		MinY: clamp(z, math.Min(y0, y1)),
		MaxY: clamp(z, math.Max(y0, y1)),
	}
}

// RangeFromPoint returns the single tile containing lon/lat.
func RangeFromPoint(z int, lon, lat float64) Range {
	x, y := XY(z, lon, lat)
	cx, cy := clamp(z, x), clamp(z, y)
	return Range{MinX: cx, MaxX: cx, MinY: cy, MaxY: cy}
}

func clamp(z int, v float64) int {
	n := 1 << z
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v >= float64(n):
		return n - 1
	}
	return int(v)
}
