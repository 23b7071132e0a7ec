package pipeline

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/tile"
)

// DefaultIdent prefixes result file names.
const DefaultIdent = "clusters"

// Result holds the merged output of a batch.
type Result struct {
	Request   Request             `json:"request"`
	Timestamp time.Time           `json:"timestamp"`
	Clusters  []model.ClusterRow  `json:"clusters"`
	Errors    []model.ErrorRecord `json:"errors"`
}

// Summary aggregates a clusters table.
type Summary struct {
	Clusters int       `json:"nb_clusters"`
	Errors   int       `json:"nb_errors"`
	Count    int       `json:"count"`
	Area     float64   `json:"area"`
	AreaM2   float64   `json:"area_m2"`
	MinDate  time.Time `json:"min_date"`
	MaxDate  time.Time `json:"max_date"`
}

// Summary totals counts and areas and spans the observed dates.
func (r *Result) Summary() Summary {
	s := Summary{Clusters: len(r.Clusters), Errors: len(r.Errors)}
	for _, c := range r.Clusters {
		s.Count += c.Count
		s.Area += c.Area
		s.AreaM2 += c.AreaM2
		if s.MinDate.IsZero() || c.MinDate.Before(s.MinDate) {
			s.MinDate = c.MinDate
		}
		if c.MaxDate.After(s.MaxDate) {
			s.MaxDate = c.MaxDate
		}
	}
	return s
}

// Tile returns the cluster rows found in tile c.
func (r *Result) Tile(c tile.Coord) []model.ClusterRow {
	var out []model.ClusterRow
	for _, row := range r.Clusters {
		if row.Z == c.Z && row.X == c.X && row.Y == c.Y {
			out = append(out, row)
		}
	}
	return out
}

// Cluster returns the cluster whose centre is pixel (i, j) of tile c.
func (r *Result) Cluster(c tile.Coord, i, j int) (model.ClusterRow, bool) {
	for _, row := range r.Clusters {
		if row.Z == c.Z && row.X == c.X && row.Y == c.Y && row.Col == i && row.Row == j {
			return row, true
		}
	}
	return model.ClusterRow{}, false
}

// ClusterAt returns the cluster stored at lon/lat, or else the cluster
// centred on the pixel containing lon/lat at the request zoom.
func (r *Result) ClusterAt(lon, lat float64) (model.ClusterRow, bool) {
	tol := pixelDegrees(r.Request.Zoom) * 1e-3
	for _, row := range r.Clusters {
		if math.Abs(row.Longitude-lon) <= tol && math.Abs(row.Latitude-lat) <= tol {
			return row, true
		}
	}
	c, i, j := tile.PixelOf(r.Request.Zoom, lon, lat)
	return r.Cluster(c, int(math.Floor(i)), int(math.Floor(j)))
}

// pixelDegrees is the longitude span of one pixel at zoom z.
func pixelDegrees(z int) float64 {
	return 360 / (float64(tile.Size) * math.Exp2(float64(z)))
}

// Bounds returns the lon/lat extent of the cluster centroids. ok is false
// when there are no clusters.
func (r *Result) Bounds() (west, south, east, north float64, ok bool) {
	if len(r.Clusters) == 0 {
		return 0, 0, 0, 0, false
	}
	west, south = math.Inf(1), math.Inf(1)
	east, north = math.Inf(-1), math.Inf(-1)
	for _, c := range r.Clusters {
		west = math.Min(west, c.Longitude)
		east = math.Max(east, c.Longitude)
		south = math.Min(south, c.Latitude)
		north = math.Max(north, c.Latitude)
	}
	return west, south, east, north, true
}

// BoundingBox returns Bounds as a closed lon/lat ring.
func (r *Result) BoundingBox() [][2]float64 {
	w, s, e, n, ok := r.Bounds()
	if !ok {
		return nil
	}
	return [][2]float64{{w, s}, {e, s}, {e, n}, {w, n}, {w, s}}
}

// Name builds the file name stem identifying the request:
// {ident}_{start}%{end}_{xmin}%{ymin}%{xmax}%{ymax}_{z}%{width}%{min_count}%{iterations}.
func (r *Result) Name(ident string) string {
	if ident == "" {
		ident = DefaultIdent
	}
	q := r.Request
	return fmt.Sprintf("%s_%s%%%s_%d%%%d%%%d%%%d_%d%%%s%%%d%%%d",
		ident,
		q.StartDate.Format(time.DateOnly), q.EndDate.Format(time.DateOnly),
		q.Range.MinX, q.Range.MinY, q.Range.MaxX, q.Range.MaxY,
		q.Zoom, strconv.FormatFloat(q.Bandwidth, 'f', -1, 64), q.MinCount, q.Iterations,
	)
}

func fileName(z, x, y int) string {
	return tile.Coord{Z: z, X: x, Y: y}.FileName()
}
