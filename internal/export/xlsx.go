package export

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/glad-clusters/internal/alerts"
	"github.com/sells-group/glad-clusters/internal/pipeline"
)

// SaveXLSX writes a workbook with clusters, errors and summary sheets.
func SaveXLSX(path string, res *pipeline.Result) error {
	f, err := buildWorkbook(res)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "export: save xlsx %s", path)
}

func buildWorkbook(res *pipeline.Result) (*xlsx.File, error) {
	f := xlsx.NewFile()

	clusters, err := f.AddSheet("clusters")
	if err != nil {
		return nil, eris.Wrap(err, "export: add clusters sheet")
	}
	header(clusters, "count", "area", "area_m2", "min_date", "max_date",
		"longitude", "latitude", "z", "x", "y", "i", "j", "file_name", "timestamp")
	for _, c := range res.Clusters {
		row := clusters.AddRow()
		row.AddCell().SetInt(c.Count)
		row.AddCell().SetFloat(c.Area)
		row.AddCell().SetFloat(c.AreaM2)
		row.AddCell().SetInt(alerts.DateInt(c.MinDate))
		row.AddCell().SetInt(alerts.DateInt(c.MaxDate))
		row.AddCell().SetFloat(c.Longitude)
		row.AddCell().SetFloat(c.Latitude)
		row.AddCell().SetInt(c.Z)
		row.AddCell().SetInt(c.X)
		row.AddCell().SetInt(c.Y)
		row.AddCell().SetInt(c.Col)
		row.AddCell().SetInt(c.Row)
		row.AddCell().SetString(c.FileName)
		row.AddCell().SetString(c.Timestamp.UTC().Format(time.RFC3339))
	}

	errs, err := f.AddSheet("errors")
	if err != nil {
		return nil, eris.Wrap(err, "export: add errors sheet")
	}
	header(errs, ErrorColumns...)
	for _, e := range res.Errors {
		row := errs.AddRow()
		row.AddCell().SetInt(e.Z)
		row.AddCell().SetInt(e.X)
		row.AddCell().SetInt(e.Y)
		row.AddCell().SetFloat(e.CentroidLongitude)
		row.AddCell().SetFloat(e.CentroidLatitude)
		row.AddCell().SetString(string(e.Kind))
		row.AddCell().SetString(e.Message)
	}

	summary, err := f.AddSheet("summary")
	if err != nil {
		return nil, eris.Wrap(err, "export: add summary sheet")
	}
	s := res.Summary()
	q := res.Request
	for _, kv := range []struct {
		key string
		val any
	}{
		{"name", res.Name("")},
		{"nb_clusters", s.Clusters},
		{"nb_errors", s.Errors},
		{"count", s.Count},
		{"area", s.Area},
		{"area_m2", s.AreaM2},
		{"min_date", alerts.DateInt(s.MinDate)},
		{"max_date", alerts.DateInt(s.MaxDate)},
		{"z", q.Zoom},
		{"width", q.Bandwidth},
		{"min_count", q.MinCount},
		{"iterations", q.Iterations},
	} {
		row := summary.AddRow()
		row.AddCell().SetString(kv.key)
		cell := row.AddCell()
		switch v := kv.val.(type) {
		case int:
			cell.SetInt(v)
		case float64:
			cell.SetFloat(v)
		case string:
			cell.SetString(v)
		}
	}
	return f, nil
}

func header(sheet *xlsx.Sheet, cols ...string) {
	row := sheet.AddRow()
	for _, c := range cols {
		row.AddCell().SetString(c)
	}
}
