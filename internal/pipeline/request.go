package pipeline

import (
	"math"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/tile"
)

// Defaults for a batch request.
const (
	DefaultZoom       = 12
	DefaultBandwidth  = 5.0
	DefaultMinCount   = 25
	DefaultIterations = 25
)

// DefaultStartDate is the first day of GLAD alerts.
var DefaultStartDate = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrInvalidRequest marks a request rejected before any tile runs.
var ErrInvalidRequest = eris.New("pipeline: invalid request")

// Request describes a batch over a rectangle of tiles. Every tile is run
// with the same parameters.
type Request struct {
	Zoom       int        `json:"z" yaml:"z"`
	Range      tile.Range `json:"tiles" yaml:"tiles"`
	StartDate  time.Time  `json:"start_date" yaml:"start_date"`
	EndDate    time.Time  `json:"end_date" yaml:"end_date"`
	Bandwidth  float64    `json:"width" yaml:"width"`
	MinCount   int        `json:"min_count" yaml:"min_count"`
	Iterations int        `json:"iterations" yaml:"iterations"`

	IntensityThreshold *float64          `json:"intensity_threshold,omitempty" yaml:"intensity_threshold,omitempty"`
	HardThreshold      bool              `json:"hard_threshold,omitempty" yaml:"hard_threshold,omitempty"`
	Policy             model.ShiftPolicy `json:"policy,omitempty" yaml:"policy,omitempty"`
	Source             model.AlertSource `json:"source,omitempty" yaml:"source,omitempty"`
}

// DefaultRequest returns the defaults for a single tile ending today.
func DefaultRequest() Request {
	now := time.Now().UTC()
	return Request{
		Zoom:       DefaultZoom,
		StartDate:  DefaultStartDate,
		EndDate:    time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Bandwidth:  DefaultBandwidth,
		MinCount:   DefaultMinCount,
		Iterations: DefaultIterations,
		Policy:     model.PolicySequential,
		Source:     model.SourceGLAD,
	}
}

// Validate checks the parameters shared by every tile of the batch.
func (r Request) Validate() error {
	if err := r.Range.Validate(r.Zoom); err != nil {
		return eris.Wrapf(ErrInvalidRequest, "%v", err)
	}
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return eris.Wrap(ErrInvalidRequest, "start and end dates are required")
	}
	if r.EndDate.Before(r.StartDate) {
		return eris.Wrapf(ErrInvalidRequest, "end date %s before start date %s",
			r.EndDate.Format(time.DateOnly), r.StartDate.Format(time.DateOnly))
	}
	if r.Bandwidth <= 0 || math.IsInf(r.Bandwidth, 0) || math.IsNaN(r.Bandwidth) {
		return eris.Wrapf(ErrInvalidRequest, "width must be positive, got %v", r.Bandwidth)
	}
	if r.MinCount < 1 {
		return eris.Wrapf(ErrInvalidRequest, "min_count must be >= 1, got %d", r.MinCount)
	}
	if r.Iterations < 0 {
		return eris.Wrapf(ErrInvalidRequest, "iterations must be >= 0, got %d", r.Iterations)
	}
	if r.Policy != "" && !r.Policy.Valid() {
		return eris.Wrapf(ErrInvalidRequest, "unknown policy %q", r.Policy)
	}
	if _, ok := r.Source.Epoch(); !ok {
		return eris.Wrapf(ErrInvalidRequest, "unknown alert source %q", r.Source)
	}
	return nil
}

// ValidateLimits rejects requests larger than a runner is willing to
// schedule.
func (r Request) ValidateLimits(maxTiles, maxIterations int) error {
	if n := r.Range.Size(); n > int64(maxTiles) {
		return eris.Wrapf(ErrInvalidRequest, "range holds %d tiles, limit is %d", n, maxTiles)
	}
	if r.Iterations > maxIterations {
		return eris.Wrapf(ErrInvalidRequest, "iterations must be <= %d, got %d", maxIterations, r.Iterations)
	}
	return nil
}

// TileRequest returns the per-tile parameters for c.
func (r Request) TileRequest(c tile.Coord) model.TileRequest {
	return model.TileRequest{
		Zoom:               c.Z,
		X:                  c.X,
		Y:                  c.Y,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
		Bandwidth:          r.Bandwidth,
		MinCount:           r.MinCount,
		Iterations:         r.Iterations,
		IntensityThreshold: r.IntensityThreshold,
		HardThreshold:      r.HardThreshold,
		Policy:             r.Policy,
		Source:             r.Source,
	}
}

// ParseDate accepts 2006-01-02 or the compact 20060102 form.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	layout := time.DateOnly
	if len(s) == 8 && !strings.Contains(s, "-") {
		layout = "20060102"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, eris.Wrapf(ErrInvalidRequest, "bad date %q", s)
	}
	return t, nil
}
