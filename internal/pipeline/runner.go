// Package pipeline fans the per-tile clustering pipeline out over a range of
// tiles and merges the outcomes into a clusters table and an errors table.
package pipeline

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/raster"
)

// Limits applied when Options leaves them unset.
const (
	DefaultMaxConcurrency = 200
	DefaultMaxTiles       = 100000
	DefaultMaxIterations  = 1000
)

// Options sizes the worker pool.
type Options struct {
	// MaxConcurrency caps concurrently running tile jobs.
	MaxConcurrency int
	// BatchSize splits the tile list into windows that run one after
	// another. 0 runs all tiles as a single window.
	BatchSize int
	// MaxTiles rejects requests whose range holds more tiles.
	MaxTiles int
	// MaxIterations rejects requests asking for more mean-shift passes.
	MaxIterations int
}

// Runner executes batch requests.
type Runner struct {
	proc *Processor
	opts Options
	now  func() time.Time
}

// NewRunner returns a Runner fetching rasters from src.
func NewRunner(src raster.Source, opts Options) *Runner {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = DefaultMaxConcurrency
	}
	if opts.MaxTiles <= 0 {
		opts.MaxTiles = DefaultMaxTiles
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	return &Runner{proc: NewProcessor(src), opts: opts, now: time.Now}
}

// Processor returns the single-tile processor used by the runner.
func (r *Runner) Processor() *Processor {
	return r.proc
}

// Run validates req and processes every tile of its range. Only an invalid
// request returns an error; tile failures land in Result.Errors.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Policy == "" {
		req.Policy = model.PolicySequential
	}
	if req.Source == "" {
		req.Source = model.SourceGLAD
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := req.ValidateLimits(r.opts.MaxTiles, r.opts.MaxIterations); err != nil {
		return nil, err
	}

	tiles := req.Range.Tiles(req.Zoom)
	results := make([]model.TileResult, len(tiles))
	limit := min(len(tiles), r.opts.MaxConcurrency)
	window := r.opts.BatchSize
	if window <= 0 {
		window = len(tiles)
	}

	zap.L().Info("pipeline: starting batch",
		zap.Int("tiles", len(tiles)),
		zap.Int("concurrency", limit),
		zap.Int("batch_size", window),
	)
	start := r.now()

	var succeeded, failed atomic.Int64
	for lo := 0; lo < len(tiles); lo += window {
		hi := min(lo+window, len(tiles))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for i := lo; i < hi; i++ {
			c := tiles[i]
			g.Go(func() error {
				res := r.proc.Process(gctx, req.TileRequest(c))
				results[i] = res
				if res.Failed() {
					failed.Add(1)
					zap.L().Warn("pipeline: tile failed",
						zap.Int("z", c.Z), zap.Int("x", c.X), zap.Int("y", c.Y),
						zap.String("kind", string(res.Err.Kind)),
						zap.String("error", res.Err.Message),
					)
					return nil // don't abort batch on individual failure
				}
				succeeded.Add(1)
				zap.L().Debug("pipeline: tile complete",
					zap.Int("z", c.Z), zap.Int("x", c.X), zap.Int("y", c.Y),
					zap.Int("clusters", len(res.Clusters)),
				)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, eris.Wrap(err, "pipeline: batch")
		}
	}

	out := Merge(req, results, r.now().UTC())
	zap.L().Info("pipeline: batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Int("clusters", len(out.Clusters)),
		zap.Duration("elapsed", r.now().Sub(start)),
	)
	return out, nil
}

// Merge flattens per-tile results into the clusters and errors tables,
// stamping every cluster row with ts. Rows are ordered by tile, then by
// position inside the tile.
func Merge(req Request, results []model.TileResult, ts time.Time) *Result {
	out := &Result{
		Request:   req,
		Timestamp: ts,
		Clusters:  []model.ClusterRow{},
		Errors:    []model.ErrorRecord{},
	}
	for _, res := range results {
		if res.Failed() {
			out.Errors = append(out.Errors, *res.Err)
			continue
		}
		c := res.Request
		for _, rec := range res.Clusters {
			out.Clusters = append(out.Clusters, model.ClusterRow{
				Z:             c.Zoom,
				X:             c.X,
				Y:             c.Y,
				FileName:      fileName(c.Zoom, c.X, c.Y),
				Timestamp:     ts,
				ClusterRecord: rec,
			})
		}
	}

	sort.SliceStable(out.Clusters, func(i, j int) bool {
		a, b := out.Clusters[i], out.Clusters[j]
		if a.X != b.X {
			return a.X < b.X
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
	sort.SliceStable(out.Errors, func(i, j int) bool {
		if out.Errors[i].X != out.Errors[j].X {
			return out.Errors[i].X < out.Errors[j].X
		}
		return out.Errors[i].Y < out.Errors[j].Y
	})
	return out
}
