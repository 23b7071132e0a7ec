package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/pipeline"
	"github.com/sells-group/glad-clusters/internal/tile"
)

// requestFile is the YAML form of a batch request. The tile range is given
// as tiles, bounds (west, south, east, north) or a single point (lon, lat).
type requestFile struct {
	Zoom               *int              `yaml:"z"`
	Tiles              *tile.Range       `yaml:"tiles"`
	Bounds             []float64         `yaml:"bounds"`
	Point              []float64         `yaml:"point"`
	StartDate          string            `yaml:"start_date"`
	EndDate            string            `yaml:"end_date"`
	Width              *float64          `yaml:"width"`
	MinCount           *int              `yaml:"min_count"`
	Iterations         *int              `yaml:"iterations"`
	IntensityThreshold *float64          `yaml:"intensity_threshold"`
	HardThreshold      bool              `yaml:"hard_threshold"`
	Policy             model.ShiftPolicy `yaml:"policy"`
	Source             model.AlertSource `yaml:"source"`
}

// loadRequestFile reads a YAML request and layers it over base.
func loadRequestFile(path string, base pipeline.Request) (pipeline.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, eris.Wrapf(err, "read request file %s", path)
	}
	var f requestFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return base, eris.Wrapf(err, "parse request file %s", path)
	}
	return f.apply(base)
}

func (f requestFile) apply(req pipeline.Request) (pipeline.Request, error) {
	if f.Zoom != nil {
		req.Zoom = *f.Zoom
	}
	switch {
	case f.Tiles != nil:
		req.Range = *f.Tiles
	case f.Bounds != nil:
		if len(f.Bounds) != 4 {
			return req, eris.Wrap(pipeline.ErrInvalidRequest, "bounds needs west, south, east, north")
		}
		req.Range = tile.RangeFromBounds(req.Zoom, f.Bounds[0], f.Bounds[1], f.Bounds[2], f.Bounds[3])
	case f.Point != nil:
		if len(f.Point) != 2 {
			return req, eris.Wrap(pipeline.ErrInvalidRequest, "point needs lon, lat")
		}
		req.Range = tile.RangeFromPoint(req.Zoom, f.Point[0], f.Point[1])
	}

	var err error
	if f.StartDate != "" {
		if req.StartDate, err = pipeline.ParseDate(f.StartDate); err != nil {
			return req, err
		}
	}
	if f.EndDate != "" {
		if req.EndDate, err = pipeline.ParseDate(f.EndDate); err != nil {
			return req, err
		}
	}
	if f.Width != nil {
		req.Bandwidth = *f.Width
	}
	if f.MinCount != nil {
		req.MinCount = *f.MinCount
	}
	if f.Iterations != nil {
		req.Iterations = *f.Iterations
	}
	if f.IntensityThreshold != nil {
		req.IntensityThreshold = f.IntensityThreshold
		req.HardThreshold = f.HardThreshold
	}
	if f.Policy != "" {
		req.Policy = f.Policy
	}
	if f.Source != "" {
		req.Source = f.Source
	}
	return req, nil
}

// requestFlags holds the clustering flags shared by run and tile.
type requestFlags struct {
	start      string
	end        string
	width      float64
	minCount   int
	iterations int
	policy     string
	source     string
	threshold  float64
	hard       bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.start, "start", "", "first alert date, inclusive (YYYY-MM-DD)")
	fl.StringVar(&f.end, "end", "", "last alert date, exclusive (YYYY-MM-DD, default today)")
	fl.Float64Var(&f.width, "width", 0, "mean-shift bandwidth in pixels (default from config)")
	fl.IntVar(&f.minCount, "min-count", 0, "minimum alerts per cluster (default from config)")
	fl.IntVar(&f.iterations, "iterations", 0, "mean-shift passes (default from config)")
	fl.StringVar(&f.policy, "policy", "", "shift policy: sequential-mutation or snapshot-per-pass")
	fl.StringVar(&f.source, "source", "", "alert product: glad or forma")
	fl.Float64Var(&f.threshold, "threshold", 0, "intensity threshold; unset keeps every alert")
	fl.BoolVar(&f.hard, "hard", false, "with --threshold, count alerts as 0/1 instead of by intensity")
}

// apply layers the flags the user set over req.
func (f *requestFlags) apply(cmd *cobra.Command, req pipeline.Request) (pipeline.Request, error) {
	changed := cmd.Flags().Changed
	var err error
	if changed("start") {
		if req.StartDate, err = pipeline.ParseDate(f.start); err != nil {
			return req, err
		}
	}
	if changed("end") {
		if req.EndDate, err = pipeline.ParseDate(f.end); err != nil {
			return req, err
		}
	}
	if changed("width") {
		req.Bandwidth = f.width
	}
	if changed("min-count") {
		req.MinCount = f.minCount
	}
	if changed("iterations") {
		req.Iterations = f.iterations
	}
	if changed("policy") {
		req.Policy = model.ShiftPolicy(f.policy)
	}
	if changed("source") {
		req.Source = model.AlertSource(f.source)
	}
	if changed("threshold") {
		t := f.threshold
		req.IntensityThreshold = &t
		req.HardThreshold = f.hard
	}
	return req, nil
}

// parseFloats parses a comma-separated list of exactly n numbers.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, eris.Errorf("expected %d comma-separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for k, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "parse %q", p)
		}
		out[k] = v
	}
	return out, nil
}

// parseInts parses a comma-separated list of exactly n integers.
func parseInts(s string, n int) ([]int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, eris.Errorf("expected %d comma-separated integers, got %q", n, s)
	}
	out := make([]int, n)
	for k, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, eris.Wrapf(err, "parse %q", p)
		}
		out[k] = v
	}
	return out, nil
}
