package tile

import (
	"github.com/golang/geo/s2"

	"github.com/sells-group/glad-clusters/internal/model"
)

// EarthRadiusMeters is the mean Earth radius used to scale s2 areas.
const EarthRadiusMeters = 6371008.8

// HullAreaM2 returns the geodesic area in square metres of a convex hull
// given in pixel coordinates of tile c. Hulls with fewer than three vertices
// have zero area.
func HullAreaM2(c Coord, vertices []model.Point) float64 {
	if len(vertices) < 3 {
		return 0
	}
	pts := make([]s2.Point, len(vertices))
	for k, v := range vertices {
		lon, lat := c.LonLat(v.X, v.Y)
		pts[k] = s2.PointFromLatLng(s2.LatLngFromDegrees(lat, lon))
	}
	loop := s2.LoopFromPoints(pts)
	loop.Normalize()
	return loop.Area() * EarthRadiusMeters * EarthRadiusMeters
}
