package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/glad-clusters/internal/alerts"
	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/tile"
)

// shapeFields are the DBF attributes, named within the 10 character limit.
var shapeFields = []shp.Field{
	shp.NumberField("count", 10),
	shp.FloatField("area", 16, 2),
	shp.FloatField("area_m2", 20, 2),
	shp.NumberField("min_date", 8),
	shp.NumberField("max_date", 8),
	shp.FloatField("longitude", 16, 8),
	shp.FloatField("latitude", 16, 8),
	shp.NumberField("z", 2),
	shp.NumberField("x", 10),
	shp.NumberField("y", 10),
	shp.NumberField("i", 3),
	shp.NumberField("j", 3),
	shp.StringField("file_name", 64),
}

// SaveShapefile writes cluster hulls as a polygon shapefile (.shp, .shx and
// .dbf next to path). Clusters with degenerate hulls have no polygon and are
// skipped.
func SaveShapefile(path string, rows []model.ClusterRow) error {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	w, err := shp.Create(base+".shp", shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	if err := w.SetFields(shapeFields); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}
	if err := writeShapes(w, rows); err != nil {
		w.Close()
		return err
	}
	w.Close()

	// The writer names the attribute table "<base>dbf".
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrap(err, "export: rename dbf")
	}
	return nil
}

func writeShapes(w *shp.Writer, rows []model.ClusterRow) error {
	var skipped int
	for _, r := range rows {
		poly := hullPolygon(r)
		if poly == nil {
			skipped++
			continue
		}
		n := int(w.Write(poly))
		for field, v := range []any{
			r.Count, r.Area, r.AreaM2,
			alerts.DateInt(r.MinDate), alerts.DateInt(r.MaxDate),
			r.Longitude, r.Latitude,
			r.Z, r.X, r.Y, r.Col, r.Row,
			truncate(r.FileName, 64),
		} {
			if err := w.WriteAttribute(n, field, v); err != nil {
				return eris.Wrapf(err, "export: write shapefile attribute %d", field)
			}
		}
	}

	if skipped > 0 {
		zap.L().Debug("export: skipped degenerate hulls",
			zap.Int("skipped", skipped),
		)
	}
	return nil
}

func hullPolygon(r model.ClusterRow) *shp.Polygon {
	if len(r.Hull) < 3 {
		return nil
	}
	lonlats := tile.Coord{Z: r.Z, X: r.X, Y: r.Y}.LonLats(r.Hull)
	ring := make([]shp.Point, 0, len(lonlats)+1)
	for _, p := range lonlats {
		ring = append(ring, shp.Point{X: p[0], Y: p[1]})
	}
	ring = append(ring, ring[0])
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{ring}))
	return &poly
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
