package store

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/tile"
)

// SRID of every geometry written to PostGIS.
const SRID = 4326

// clusterGeometries holds the EWKB encodings of one cluster.
type clusterGeometries struct {
	centroid []byte
	alerts   []byte
	hull     []byte // nil for degenerate hulls
}

func encodeCluster(c model.ClusterRow) (clusterGeometries, error) {
	var (
		g   clusterGeometries
		err error
	)
	t := tile.Coord{Z: c.Z, X: c.X, Y: c.Y}

	g.centroid, err = encodePoint(c.Longitude, c.Latitude)
	if err != nil {
		return g, err
	}
	g.alerts, err = marshal(alertPoints(t, c.Members))
	if err != nil {
		return g, err
	}
	if len(c.Hull) >= 3 {
		ring := t.LonLats(append(append([]model.Point{}, c.Hull...), c.Hull[0]))
		flat := flatCoords(ring)
		g.hull, err = marshal(geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}).SetSRID(SRID))
		if err != nil {
			return g, err
		}
	}
	return g, nil
}

// alertPoints places each member at its pixel position with the band value
// as Z.
func alertPoints(t tile.Coord, members []model.AlertPixel) *geom.MultiPoint {
	lonlats := t.LonLats(model.PointsOf(members))
	flat := make([]float64, 0, 3*len(members))
	for k, m := range members {
		flat = append(flat, lonlats[k][0], lonlats[k][1], m.Value)
	}
	return geom.NewMultiPointFlat(geom.XYZ, flat).SetSRID(SRID)
}

func encodePoint(lon, lat float64) ([]byte, error) {
	return marshal(geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(SRID))
}

func marshal(g geom.T) ([]byte, error) {
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode EWKB")
	}
	return data, nil
}

func flatCoords(pairs [][2]float64) []float64 {
	flat := make([]float64, 0, 2*len(pairs))
	for _, p := range pairs {
		flat = append(flat, p[0], p[1])
	}
	return flat
}
