package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/alerts"
	"github.com/sells-group/glad-clusters/internal/cluster"
	"github.com/sells-group/glad-clusters/internal/hull"
	"github.com/sells-group/glad-clusters/internal/meanshift"
	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/raster"
	"github.com/sells-group/glad-clusters/internal/tile"
)

// Processor runs the clustering pipeline for one tile at a time. It holds no
// per-tile state and may be shared by concurrent jobs.
type Processor struct {
	src raster.Source
}

// NewProcessor returns a Processor reading rasters from src.
func NewProcessor(src raster.Source) *Processor {
	return &Processor{src: src}
}

// stageError tags a failure with the pipeline stage it came from.
type stageError struct {
	kind model.ErrorKind
	err  error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// Process fetches, decodes and clusters one tile. Failures, including
// panics, come back as an error record rather than an error value.
func (p *Processor) Process(ctx context.Context, req model.TileRequest) (res model.TileResult) {
	c := tile.Coord{Z: req.Zoom, X: req.X, Y: req.Y}
	res.Request = req

	defer func() {
		if v := recover(); v != nil {
			res.Clusters = nil
			res.Err = errorRecord(c, model.ErrorKindPanic, fmt.Sprintf("panic: %v", v))
		}
	}()

	clusters, err := p.clusters(ctx, c, req)
	if err != nil {
		kind := model.ErrorKindProcess
		var se *stageError
		if errors.As(err, &se) {
			kind = se.kind
		}
		res.Err = errorRecord(c, kind, err.Error())
		return res
	}
	res.Clusters = clusters
	return res
}

func (p *Processor) clusters(ctx context.Context, c tile.Coord, req model.TileRequest) ([]model.ClusterRecord, error) {
	dec, err := alerts.NewDecoder(alerts.Options{
		Source:    req.Source,
		Start:     req.StartDate,
		End:       req.EndDate,
		Threshold: req.IntensityThreshold,
		Hard:      req.HardThreshold,
	})
	if err != nil {
		return nil, err
	}
	engine, err := meanshift.New(req.Bandwidth, req.Iterations, req.Policy)
	if err != nil {
		return nil, err
	}

	r, err := raster.Load(ctx, p.src, c)
	if err != nil {
		var de *alerts.DecodeError
		if errors.As(err, &de) {
			return nil, &stageError{kind: model.ErrorKindDecode, err: err}
		}
		return nil, &stageError{kind: model.ErrorKindFetch, err: err}
	}

	pixels := dec.Decode(r)
	shifted := engine.Shift(model.PointsOf(pixels))
	records, err := cluster.Aggregate(shifted, pixels, req.MinCount, dec.Epoch())
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: aggregate %s", c)
	}

	for i := range records {
		describe(c, &records[i])
	}
	return records, nil
}

// describe fills the hull and geographic fields of a cluster.
func describe(c tile.Coord, rec *model.ClusterRecord) {
	h := hull.Compute(model.PointsOf(rec.Members))
	rec.Hull = h.Vertices
	rec.Area = h.Area
	rec.AreaM2 = tile.HullAreaM2(c, h.Vertices)
	rec.Longitude, rec.Latitude = c.LonLat(float64(rec.Col), float64(rec.Row))
}

func errorRecord(c tile.Coord, kind model.ErrorKind, msg string) *model.ErrorRecord {
	lon, lat := c.Center()
	return &model.ErrorRecord{
		Z:                 c.Z,
		X:                 c.X,
		Y:                 c.Y,
		CentroidLongitude: lon,
		CentroidLatitude:  lat,
		Kind:              kind,
		Message:           msg,
	}
}
