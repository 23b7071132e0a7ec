package model

import "time"

// AlertSource identifies the alert product a raster was rendered from.
// Each source counts days from its own epoch.
type AlertSource string

const (
	SourceGLAD  AlertSource = "glad"
	SourceFORMA AlertSource = "forma"
)

var (
	gladEpoch  = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	formaEpoch = time.Date(2012, time.January, 1, 0, 0, 0, 0, time.UTC)
)

// Epoch returns the day-zero date of the source. Unknown sources return the
// zero time and false.
func (s AlertSource) Epoch() (time.Time, bool) {
	switch s {
	case SourceGLAD, "":
		return gladEpoch, true
	case SourceFORMA:
		return formaEpoch, true
	default:
		return time.Time{}, false
	}
}

// AlertPixel is a single alert decoded from a tile raster.
type AlertPixel struct {
	Row       int     `json:"row"`
	Col       int     `json:"col"`
	Days      int     `json:"days"`
	Intensity float64 `json:"intensity"`
	// Value is the band value that survived filtering: days since epoch,
	// the intensity, or a 0/1 mask when a hard threshold is applied.
	Value float64 `json:"value"`
}

// Point is a tile-local position. X is the column, Y is the row.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PointsOf returns the pixel positions of alerts in decode order.
func PointsOf(pixels []AlertPixel) []Point {
	pts := make([]Point, len(pixels))
	for i, p := range pixels {
		pts[i] = Point{X: float64(p.Col), Y: float64(p.Row)}
	}
	return pts
}
