package model

import "time"

// ShiftPolicy selects how a mean-shift pass reads neighbour positions.
type ShiftPolicy string

const (
	// PolicySequential updates positions in place, so later points in a
	// pass see the already-shifted positions of earlier points.
	PolicySequential ShiftPolicy = "sequential-mutation"
	// PolicySnapshot reads every neighbour from the positions held at the
	// start of the pass.
	PolicySnapshot ShiftPolicy = "snapshot-per-pass"
)

// Valid reports whether p names a known policy.
func (p ShiftPolicy) Valid() bool {
	return p == PolicySequential || p == PolicySnapshot
}

// TileRequest holds the parameters for one pipeline run over one tile.
type TileRequest struct {
	Zoom       int       `json:"z" yaml:"z"`
	X          int       `json:"x" yaml:"x"`
	Y          int       `json:"y" yaml:"y"`
	StartDate  time.Time `json:"start_date" yaml:"start_date"`
	EndDate    time.Time `json:"end_date" yaml:"end_date"`
	Bandwidth  float64   `json:"width" yaml:"width"`
	MinCount   int       `json:"min_count" yaml:"min_count"`
	Iterations int       `json:"iterations" yaml:"iterations"`

	IntensityThreshold *float64    `json:"intensity_threshold,omitempty" yaml:"intensity_threshold,omitempty"`
	HardThreshold      bool        `json:"hard_threshold,omitempty" yaml:"hard_threshold,omitempty"`
	Policy             ShiftPolicy `json:"policy,omitempty" yaml:"policy,omitempty"`
	Source             AlertSource `json:"source,omitempty" yaml:"source,omitempty"`
}

// TileResult is the outcome of one tile job. Exactly one of Clusters or Err
// is meaningful: a failed tile carries a non-nil Err.
type TileResult struct {
	Request  TileRequest     `json:"request"`
	Clusters []ClusterRecord `json:"clusters"`
	Err      *ErrorRecord    `json:"error,omitempty"`
}

// Failed reports whether the tile job produced an error record.
func (r TileResult) Failed() bool {
	return r.Err != nil
}
