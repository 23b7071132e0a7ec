package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/alerts"
	"github.com/sells-group/glad-clusters/internal/hull"
	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/pipeline"
)

// FullColumns are the columns of the full clusters CSV.
var FullColumns = []string{
	"count", "area", "area_m2", "min_date", "max_date",
	"longitude", "latitude",
	"z", "x", "y", "i", "j",
	"file_name", "timestamp", "alerts",
}

// ViewColumns are the summary columns of the clusters view.
var ViewColumns = []string{
	"count", "area", "min_date", "max_date",
	"longitude", "latitude",
	"x", "y", "timestamp",
}

// ErrorColumns are the columns of the errors CSV.
var ErrorColumns = []string{
	"z", "x", "y", "centroid_longitude", "centroid_latitude", "kind", "error",
}

const dateLayout = "20060102"

// SaveCSV writes {stem}.csv and, when withErrors is set, {stem}.errors.csv.
func SaveCSV(stem string, res *pipeline.Result, withErrors bool) ([]string, error) {
	path := stem + ".csv"
	if err := createWith(path, func(w io.Writer) error {
		return WriteCSV(w, res.Clusters, true)
	}); err != nil {
		return nil, err
	}
	paths := []string{path}

	if withErrors {
		epath := stem + ".errors.csv"
		if err := createWith(epath, func(w io.Writer) error {
			return WriteErrorsCSV(w, res.Errors)
		}); err != nil {
			return paths, err
		}
		paths = append(paths, epath)
	}
	return paths, nil
}

// WriteCSV writes cluster rows with the full or the view columns.
func WriteCSV(w io.Writer, rows []model.ClusterRow, full bool) error {
	cw := csv.NewWriter(w)
	cols := ViewColumns
	if full {
		cols = FullColumns
	}
	if err := cw.Write(cols); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range rows {
		rec, err := csvRecord(r, cols)
		if err != nil {
			return err
		}
		if err := cw.Write(rec); err != nil {
			return eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

func csvRecord(r model.ClusterRow, cols []string) ([]string, error) {
	rec := make([]string, len(cols))
	for k, col := range cols {
		switch col {
		case "count":
			rec[k] = strconv.Itoa(r.Count)
		case "area":
			rec[k] = formatFloat(r.Area)
		case "area_m2":
			rec[k] = formatFloat(r.AreaM2)
		case "min_date":
			rec[k] = strconv.Itoa(alerts.DateInt(r.MinDate))
		case "max_date":
			rec[k] = strconv.Itoa(alerts.DateInt(r.MaxDate))
		case "longitude":
			rec[k] = formatFloat(r.Longitude)
		case "latitude":
			rec[k] = formatFloat(r.Latitude)
		case "z":
			rec[k] = strconv.Itoa(r.Z)
		case "x":
			rec[k] = strconv.Itoa(r.X)
		case "y":
			rec[k] = strconv.Itoa(r.Y)
		case "i":
			rec[k] = strconv.Itoa(r.Col)
		case "j":
			rec[k] = strconv.Itoa(r.Row)
		case "file_name":
			rec[k] = r.FileName
		case "timestamp":
			rec[k] = r.Timestamp.UTC().Format(time.RFC3339)
		case "alerts":
			data, err := json.Marshal(alertTriples(r.Members))
			if err != nil {
				return nil, eris.Wrap(err, "export: marshal alerts")
			}
			rec[k] = string(data)
		}
	}
	return rec, nil
}

// alertTriples encodes members as [row, col, days, value] rows.
func alertTriples(members []model.AlertPixel) [][4]float64 {
	out := make([][4]float64, len(members))
	for k, m := range members {
		out[k] = [4]float64{float64(m.Row), float64(m.Col), float64(m.Days), m.Value}
	}
	return out
}

// WriteErrorsCSV writes the errors table.
func WriteErrorsCSV(w io.Writer, errs []model.ErrorRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ErrorColumns); err != nil {
		return eris.Wrap(err, "export: write errors header")
	}
	for _, e := range errs {
		if err := cw.Write([]string{
			strconv.Itoa(e.Z), strconv.Itoa(e.X), strconv.Itoa(e.Y),
			formatFloat(e.CentroidLongitude), formatFloat(e.CentroidLatitude),
			string(e.Kind), e.Message,
		}); err != nil {
			return eris.Wrap(err, "export: write errors row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush errors csv")
}

// ReadCSV parses a full clusters CSV. Hulls are recomputed from the alerts
// column.
func ReadCSV(r io.Reader) ([]model.ClusterRow, error) {
	records, err := readTable(r, FullColumns)
	if err != nil {
		return nil, err
	}

	rows := make([]model.ClusterRow, 0, len(records))
	for n, rec := range records {
		var (
			row model.ClusterRow
			p   fieldParser
		)
		row.Count = p.atoi(rec["count"])
		row.Area = p.float(rec["area"])
		row.AreaM2 = p.float(rec["area_m2"])
		row.MinDate = p.date(rec["min_date"])
		row.MaxDate = p.date(rec["max_date"])
		row.Longitude = p.float(rec["longitude"])
		row.Latitude = p.float(rec["latitude"])
		row.Z = p.atoi(rec["z"])
		row.X = p.atoi(rec["x"])
		row.Y = p.atoi(rec["y"])
		row.Col = p.atoi(rec["i"])
		row.Row = p.atoi(rec["j"])
		row.FileName = rec["file_name"]
		row.Timestamp = p.timestamp(rec["timestamp"])
		row.Members = p.alerts(rec["alerts"])
		if p.err != nil {
			return nil, eris.Wrapf(p.err, "export: csv line %d", n+2)
		}
		row.Hull = hull.Compute(model.PointsOf(row.Members)).Vertices
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadErrorsCSV parses an errors CSV.
func ReadErrorsCSV(r io.Reader) ([]model.ErrorRecord, error) {
	records, err := readTable(r, ErrorColumns)
	if err != nil {
		return nil, err
	}
	out := make([]model.ErrorRecord, 0, len(records))
	for n, rec := range records {
		var p fieldParser
		e := model.ErrorRecord{
			Z:                 p.atoi(rec["z"]),
			X:                 p.atoi(rec["x"]),
			Y:                 p.atoi(rec["y"]),
			CentroidLongitude: p.float(rec["centroid_longitude"]),
			CentroidLatitude:  p.float(rec["centroid_latitude"]),
			Kind:              model.ErrorKind(rec["kind"]),
			Message:           rec["error"],
		}
		if p.err != nil {
			return nil, eris.Wrapf(p.err, "export: errors csv line %d", n+2)
		}
		out = append(out, e)
	}
	return out, nil
}

// readTable reads a headed CSV into maps keyed by column name, requiring
// every column in required.
func readTable(r io.Reader, required []string) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return nil, eris.New("export: empty csv")
	}
	if err != nil {
		return nil, eris.Wrap(err, "export: read csv header")
	}
	index := make(map[string]int, len(header))
	for k, h := range header {
		index[h] = k
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, eris.Errorf("export: csv missing column %q", col)
		}
	}

	var out []map[string]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "export: read csv row")
		}
		m := make(map[string]string, len(header))
		for col, k := range index {
			if k < len(rec) {
				m[col] = rec[k]
			}
		}
		out = append(out, m)
	}
	return out, nil
}

// fieldParser keeps the first parse error so a row can be parsed field by
// field and checked once.
type fieldParser struct {
	err error
}

func (p *fieldParser) atoi(s string) int {
	v, err := strconv.Atoi(s)
	p.keep(err)
	return v
}

func (p *fieldParser) float(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	p.keep(err)
	return v
}

func (p *fieldParser) date(s string) time.Time {
	v, err := time.Parse(dateLayout, s)
	p.keep(err)
	return v
}

func (p *fieldParser) timestamp(s string) time.Time {
	v, err := time.Parse(time.RFC3339, s)
	p.keep(err)
	return v
}

func (p *fieldParser) alerts(s string) []model.AlertPixel {
	var rows [][]float64
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		p.keep(err)
		return nil
	}
	out := make([]model.AlertPixel, 0, len(rows))
	for _, r := range rows {
		switch len(r) {
		case 3:
			out = append(out, model.AlertPixel{Row: int(r[0]), Col: int(r[1]), Value: r[2]})
		case 4:
			out = append(out, model.AlertPixel{Row: int(r[0]), Col: int(r[1]), Days: int(r[2]), Value: r[3]})
		default:
			p.keep(eris.Errorf("alert entry has %d values", len(r)))
			return nil
		}
	}
	return out
}

func (p *fieldParser) keep(err error) {
	if p.err == nil && err != nil {
		p.err = err
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func createWith(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
