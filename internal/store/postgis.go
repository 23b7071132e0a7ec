package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/glad-clusters/internal/db"
	"github.com/sells-group/glad-clusters/internal/pipeline"
)

const (
	// DefaultSchema holds the PostGIS cluster tables.
	DefaultSchema = "glad"
	// DefaultConcaveRatio is the ST_ConcaveHull target percent of area.
	DefaultConcaveRatio = 0.99
)

var clusterColumns = []string{
	"run", "z", "x", "y", "j", "i",
	"longitude", "latitude", "count", "area", "area_m2",
	"min_date", "max_date", "file_name", "timestamp",
	"centroid", "alerts", "hull",
}

var errorColumns = []string{"run", "z", "x", "y", "kind", "error", "centroid"}

// PostGIS writes cluster tables into PostgreSQL as geometries.
type PostGIS struct {
	pool         db.Pool
	schema       string
	concaveRatio float64
	closeFn      func()
}

// ExportStats counts rows written by Export.
type ExportStats struct {
	Clusters int64 `json:"clusters"`
	Errors   int64 `json:"errors"`
}

// NewPostGIS wraps an open pool. A positive concaveRatio also fills the
// concave_hull column with ST_ConcaveHull of the alert points.
func NewPostGIS(pool db.Pool, schema string, concaveRatio float64) *PostGIS {
	if schema == "" {
		schema = DefaultSchema
	}
	return &PostGIS{pool: pool, schema: schema, concaveRatio: concaveRatio}
}

// ConnectPostGIS opens a pool and wraps it.
func ConnectPostGIS(ctx context.Context, url, schema string, concaveRatio float64, cfg db.PoolConfig) (*PostGIS, error) {
	pool, err := db.Connect(ctx, url, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgis: connect")
	}
	p := NewPostGIS(pool, schema, concaveRatio)
	p.closeFn = pool.Close
	return p, nil
}

// RunKey turns a result name into the value stored in the run column of the
// PostGIS tables.
func RunKey(name string) string {
	return strings.NewReplacer("%", "", ":", "", "-", "", ".", "_").Replace(name)
}

func (p *PostGIS) table(name string) string {
	return p.schema + "." + name
}

func (p *PostGIS) ident(name string) string {
	return pgx.Identifier{p.schema, name}.Sanitize()
}

// Migrate creates the schema and tables.
func (p *PostGIS) Migrate(ctx context.Context) error {
	schema := pgx.Identifier{p.schema}.Sanitize()
	clusters, errs := p.ident("clusters"), p.ident("tile_errors")
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS postgis;
CREATE SCHEMA IF NOT EXISTS %[1]s;

CREATE TABLE IF NOT EXISTS %[2]s (
	run          TEXT NOT NULL,
	z            INTEGER NOT NULL,
	x            INTEGER NOT NULL,
	y            INTEGER NOT NULL,
	j            INTEGER NOT NULL,
	i            INTEGER NOT NULL,
	longitude    DOUBLE PRECISION NOT NULL,
	latitude     DOUBLE PRECISION NOT NULL,
	count        INTEGER NOT NULL,
	area         DOUBLE PRECISION NOT NULL,
	area_m2      DOUBLE PRECISION NOT NULL,
	min_date     DATE NOT NULL,
	max_date     DATE NOT NULL,
	file_name    TEXT NOT NULL,
	timestamp    TIMESTAMPTZ NOT NULL,
	centroid     geometry(Point, 4326) NOT NULL,
	alerts       geometry(MultiPointZ, 4326) NOT NULL,
	hull         geometry(Polygon, 4326),
	concave_hull geometry(Geometry, 4326),
	PRIMARY KEY (run, z, x, y, j, i)
);

CREATE TABLE IF NOT EXISTS %[3]s (
	run      TEXT NOT NULL,
	z        INTEGER NOT NULL,
	x        INTEGER NOT NULL,
	y        INTEGER NOT NULL,
	kind     TEXT NOT NULL,
	error    TEXT NOT NULL,
	centroid geometry(Point, 4326) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_glad_clusters_centroid ON %[2]s USING GIST (centroid);
CREATE INDEX IF NOT EXISTS idx_glad_clusters_hull ON %[2]s USING GIST (hull);
CREATE INDEX IF NOT EXISTS idx_glad_tile_errors_run ON %[3]s (run);
`, schema, clusters, errs)

	_, err := p.pool.Exec(ctx, ddl)
	return eris.Wrap(err, "postgis: migrate")
}

// Export replaces the clusters and tile errors stored under the run key of
// name with those of res. The whole replacement is one transaction.
func (p *PostGIS) Export(ctx context.Context, name string, res *pipeline.Result) (ExportStats, error) {
	var stats ExportStats
	if res == nil {
		return stats, eris.New("postgis: nil result")
	}
	run := RunKey(name)
	log := zap.L().With(
		zap.String("component", "store.postgis"),
		zap.String("run", run),
	)

	rows := make([][]any, 0, len(res.Clusters))
	for _, c := range res.Clusters {
		g, err := encodeCluster(c)
		if err != nil {
			return stats, eris.Wrapf(err, "postgis: encode cluster %d/%d/%d (%d, %d)", c.Z, c.X, c.Y, c.Row, c.Col)
		}
		rows = append(rows, []any{
			run, c.Z, c.X, c.Y, c.Row, c.Col,
			c.Longitude, c.Latitude, c.Count, c.Area, c.AreaM2,
			c.MinDate, c.MaxDate, c.FileName, c.Timestamp,
			g.centroid, g.alerts, g.hull,
		})
	}
	errRows := make([][]any, 0, len(res.Errors))
	for _, e := range res.Errors {
		centroid, err := encodePoint(e.CentroidLongitude, e.CentroidLatitude)
		if err != nil {
			return stats, err
		}
		errRows = append(errRows, []any{run, e.Z, e.X, e.Y, string(e.Kind), e.Message, centroid})
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return stats, eris.Wrap(err, "postgis: begin export")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE run = $1", p.ident("clusters")), run); err != nil {
		return stats, eris.Wrap(err, "postgis: clear clusters")
	}
	if stats.Clusters, err = db.BulkUpsert(ctx, tx, db.UpsertConfig{
		Table:        p.table("clusters"),
		Columns:      clusterColumns,
		ConflictKeys: []string{"run", "z", "x", "y", "j", "i"},
	}, rows); err != nil {
		return stats, eris.Wrap(err, "postgis: upsert clusters")
	}

	if _, err := tx.Exec(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE run = $1", p.ident("tile_errors")), run); err != nil {
		return stats, eris.Wrap(err, "postgis: clear tile errors")
	}
	if stats.Errors, err = db.CopyFrom(ctx, tx, p.table("tile_errors"), errorColumns, errRows); err != nil {
		return stats, eris.Wrap(err, "postgis: copy tile errors")
	}

	if p.concaveRatio > 0 && len(rows) > 0 {
		if _, err := tx.Exec(ctx,
			fmt.Sprintf("UPDATE %s SET concave_hull = ST_ConcaveHull(alerts, $1) WHERE run = $2", p.ident("clusters")),
			p.concaveRatio, run); err != nil {
			return stats, eris.Wrap(err, "postgis: concave hulls")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return ExportStats{}, eris.Wrap(err, "postgis: commit export")
	}
	log.Info("postgis: export complete",
		zap.Int64("clusters", stats.Clusters),
		zap.Int64("errors", stats.Errors),
	)
	return stats, nil
}

// Close releases the pool when the PostGIS value opened it.
func (p *PostGIS) Close() error {
	if p.closeFn != nil {
		p.closeFn()
	}
	return nil
}
