// Package tile implements slippy-map tile math for 256 pixel tiles.
package tile

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/model"
)

const (
	// Size is the tile edge length in pixels.
	Size = 256
	// MaxZoom is the deepest zoom level accepted in requests.
	MaxZoom = 30
	// CenterPixel is the pixel used as a tile's representative position.
	CenterPixel = 128
)

// Lon returns the longitude of pixel column i of tile column x.
func Lon(z, x int, i float64) float64 {
	return (360/math.Exp2(float64(z)))*(float64(x)+i/Size) - 180
}

// Lat returns the latitude of pixel row j of tile row y.
func Lat(z, y int, j float64) float64 {
	n := math.Pi * (1 - 2*(float64(y)+j/Size)/math.Exp2(float64(z)))
	return math.Atan(math.Sinh(n)) * 180 / math.Pi
}

// XY returns the fractional tile coordinates of a lon/lat at zoom z.
func XY(z int, lon, lat float64) (x, y float64) {
	n := math.Exp2(float64(z))
	rad := lat * math.Pi / 180
	x = n * (lon + 180) / 360
	y = n * (1 - math.Log(math.Tan(rad)+1/math.Cos(rad))/math.Pi) / 2
	return x, y
}

// Coord addresses a single tile.
type Coord struct {
	Z int `json:"z"`
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

// FileName is the relative path of the tile raster.
func (c Coord) FileName() string {
	return c.String() + ".png"
}

// LonLat returns the position of pixel (i, j) of the tile.
func (c Coord) LonLat(i, j float64) (lon, lat float64) {
	return Lon(c.Z, c.X, i), Lat(c.Z, c.Y, j)
}

// LonLats projects pixel positions of the tile to lon/lat pairs.
func (c Coord) LonLats(pts []model.Point) [][2]float64 {
	out := make([][2]float64, len(pts))
	for k, p := range pts {
		out[k][0], out[k][1] = c.LonLat(p.X, p.Y)
	}
	return out
}

// Center returns the position of the tile's centre pixel.
func (c Coord) Center() (lon, lat float64) {
	return c.LonLat(CenterPixel, CenterPixel)
}

// Validate checks the zoom level and that the tile exists at that zoom.
func (c Coord) Validate() error {
	if c.Z < 0 || c.Z > MaxZoom {
		return eris.Errorf("tile: zoom %d out of range [0, %d]", c.Z, MaxZoom)
	}
	n := 1 << c.Z
	if c.X < 0 || c.X >= n || c.Y < 0 || c.Y >= n {
		return eris.Errorf("tile: %s outside the %dx%d grid", c, n, n)
	}
	return nil
}

// PixelOf returns the tile containing lon/lat and the fractional pixel
// position inside it.
func PixelOf(z int, lon, lat float64) (Coord, float64, float64) {
	fx, fy := XY(z, lon, lat)
	c := Coord{Z: z, X: int(math.Floor(fx)), Y: int(math.Floor(fy))}
	return c, (fx - float64(c.X)) * Size, (fy - float64(c.Y)) * Size
}
