package export

import (
	"encoding/json"
	"io"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/pipeline"
	"github.com/sells-group/glad-clusters/internal/tile"
)

// FeatureCollection converts cluster rows to GeoJSON features. A cluster
// is drawn as its hull polygon, or as its centroid when the hull is
// degenerate. Tile errors become point features at the tile centre.
func FeatureCollection(rows []model.ClusterRow, errs []model.ErrorRecord) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range rows {
		f := geojson.NewFeature(clusterGeometry(r))
		f.Properties["count"] = r.Count
		f.Properties["area"] = r.Area
		f.Properties["area_m2"] = r.AreaM2
		f.Properties["min_date"] = r.MinDate.Format(time.DateOnly)
		f.Properties["max_date"] = r.MaxDate.Format(time.DateOnly)
		f.Properties["longitude"] = r.Longitude
		f.Properties["latitude"] = r.Latitude
		f.Properties["z"] = r.Z
		f.Properties["x"] = r.X
		f.Properties["y"] = r.Y
		f.Properties["i"] = r.Col
		f.Properties["j"] = r.Row
		f.Properties["file_name"] = r.FileName
		fc.Append(f)
	}
	for _, e := range errs {
		f := geojson.NewFeature(orb.Point{e.CentroidLongitude, e.CentroidLatitude})
		f.Properties["z"] = e.Z
		f.Properties["x"] = e.X
		f.Properties["y"] = e.Y
		f.Properties["kind"] = string(e.Kind)
		f.Properties["error"] = e.Message
		fc.Append(f)
	}
	return fc
}

func clusterGeometry(r model.ClusterRow) orb.Geometry {
	if len(r.Hull) < 3 {
		return orb.Point{r.Longitude, r.Latitude}
	}
	c := tile.Coord{Z: r.Z, X: r.X, Y: r.Y}
	lonlats := c.LonLats(r.Hull)
	ring := make(orb.Ring, 0, len(lonlats)+1)
	for _, p := range lonlats {
		ring = append(ring, orb.Point{p[0], p[1]})
	}
	ring = append(ring, ring[0])
	return orb.Polygon{ring}
}

// WriteGeoJSON encodes the clusters and errors of res.
func WriteGeoJSON(w io.Writer, res *pipeline.Result) error {
	data, err := json.Marshal(FeatureCollection(res.Clusters, res.Errors))
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	_, err = w.Write(data)
	return eris.Wrap(err, "export: write geojson")
}

// SaveGeoJSON writes res to path as a GeoJSON feature collection.
func SaveGeoJSON(path string, res *pipeline.Result) error {
	return createWith(path, func(w io.Writer) error {
		return WriteGeoJSON(w, res)
	})
}
