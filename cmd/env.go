package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/glad-clusters/internal/db"
	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/pipeline"
	"github.com/sells-group/glad-clusters/internal/raster"
	"github.com/sells-group/glad-clusters/internal/resilience"
	"github.com/sells-group/glad-clusters/internal/store"
)

// initSource builds the configured raster source, wrapped in the tile cache
// when one is configured.
func initSource() (raster.Source, error) {
	rc := cfg.Raster
	retry := rc.Retry

	var src raster.Source
	switch rc.Source {
	case "dir":
		src = raster.NewDirSource(rc.Dir)
	case "http":
		breaker := rc.Breaker
		breaker.Name = "raster-http"
		src = raster.NewHTTPSource(raster.HTTPOptions{
			BaseURL:   rc.BaseURL,
			Format:    rc.Format,
			UserAgent: rc.UserAgent,
			Timeout:   rc.Timeout,
			RateLimit: rc.RateLimit,
			Burst:     rc.Burst,
			Retry:     retry,
			Breaker:   resilience.NewCircuitBreaker(breaker),
		})
	case "ftp":
		ftp, err := raster.NewFTPSource(rc.FTPURL, rc.Timeout, retry)
		if err != nil {
			return nil, err
		}
		src = ftp
	default:
		return nil, eris.Errorf("unsupported raster source: %s", rc.Source)
	}

	if rc.Cache.MaxEntries > 0 {
		src = raster.Cached(src, raster.NewCache(rc.Cache.MaxEntries, rc.Cache.TTL))
	}
	zap.L().Debug("raster source ready",
		zap.String("source", rc.Source),
		zap.Int("cache_entries", rc.Cache.MaxEntries),
	)
	return src, nil
}

// initRunner builds a Runner over the configured source and worker pool.
func initRunner() (*pipeline.Runner, error) {
	src, err := initSource()
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(src, pipeline.Options{
		MaxConcurrency: cfg.Batch.MaxConcurrency,
		BatchSize:      cfg.Batch.BatchSize,
		MaxTiles:       cfg.Batch.MaxTiles,
		MaxIterations:  cfg.Batch.MaxIterations,
	}), nil
}

// defaultRequest returns the configured clustering defaults with an end
// date of today.
func defaultRequest() (pipeline.Request, error) {
	req := pipeline.DefaultRequest()
	cc := cfg.Cluster
	if cc.Zoom > 0 {
		req.Zoom = cc.Zoom
	}
	if cc.Width > 0 {
		req.Bandwidth = cc.Width
	}
	if cc.MinCount > 0 {
		req.MinCount = cc.MinCount
	}
	req.Iterations = cc.Iterations
	if cc.Policy != "" {
		req.Policy = model.ShiftPolicy(cc.Policy)
	}
	if cc.Source != "" {
		req.Source = model.AlertSource(cc.Source)
	}
	if cc.StartDate != "" {
		start, err := pipeline.ParseDate(cc.StartDate)
		if err != nil {
			return req, eris.Wrap(err, "cluster.start_date")
		}
		req.StartDate = start
	}
	return req, nil
}

// initStore opens and migrates the run history database.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initPostGIS connects to the PostGIS export target and ensures its schema.
func initPostGIS(ctx context.Context) (*store.PostGIS, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	pg, err := store.ConnectPostGIS(ctx, cfg.Store.PostGISURL, cfg.Store.Schema, cfg.Store.ConcaveRatio, db.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate postgis")
	}
	return pg, nil
}
