package model

import "time"

// ClusterRecord describes one surviving mean-shift mode of a tile.
type ClusterRecord struct {
	Row       int       `json:"j"`
	Col       int       `json:"i"`
	Longitude float64   `json:"longitude"`
	Latitude  float64   `json:"latitude"`
	Count     int       `json:"count"`
	Area      float64   `json:"area"`
	AreaM2    float64   `json:"area_m2"`
	MinDate   time.Time `json:"min_date"`
	MaxDate   time.Time `json:"max_date"`

	Members []AlertPixel `json:"alerts,omitempty"`
	Hull    []Point      `json:"hull,omitempty"`
}

// ClusterRow is a cluster flattened with the tile it was found in, as it
// appears in the merged clusters table.
type ClusterRow struct {
	Z         int       `json:"z"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	FileName  string    `json:"file_name"`
	Timestamp time.Time `json:"timestamp"`
	ClusterRecord
}

// ErrorKind classifies a per-tile failure.
type ErrorKind string

const (
	ErrorKindFetch   ErrorKind = "fetch"
	ErrorKindDecode  ErrorKind = "decode"
	ErrorKindProcess ErrorKind = "process"
	ErrorKindPanic   ErrorKind = "panic"
)

// ErrorRecord is a row of the errors table. The centroid is the tile centre.
type ErrorRecord struct {
	Z                 int       `json:"z"`
	X                 int       `json:"x"`
	Y                 int       `json:"y"`
	CentroidLongitude float64   `json:"centroid_longitude"`
	CentroidLatitude  float64   `json:"centroid_latitude"`
	Kind              ErrorKind `json:"kind"`
	Message           string    `json:"error"`
}
