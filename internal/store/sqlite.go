package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/pipeline"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	z          INTEGER NOT NULL,
	request    TEXT NOT NULL,
	summary    TEXT NOT NULL,
	timestamp  DATETIME NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS clusters (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	z         INTEGER NOT NULL,
	x         INTEGER NOT NULL,
	y         INTEGER NOT NULL,
	j         INTEGER NOT NULL,
	i         INTEGER NOT NULL,
	longitude REAL NOT NULL,
	latitude  REAL NOT NULL,
	count     INTEGER NOT NULL,
	area      REAL NOT NULL,
	area_m2   REAL NOT NULL,
	min_date  TEXT NOT NULL,
	max_date  TEXT NOT NULL,
	file_name TEXT NOT NULL,
	alerts    TEXT NOT NULL,
	hull      TEXT NOT NULL,
	PRIMARY KEY (run_id, z, x, y, j, i)
);

CREATE TABLE IF NOT EXISTS tile_errors (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	z         INTEGER NOT NULL,
	x         INTEGER NOT NULL,
	y         INTEGER NOT NULL,
	longitude REAL NOT NULL,
	latitude  REAL NOT NULL,
	kind      TEXT NOT NULL,
	error     TEXT NOT NULL,
	PRIMARY KEY (run_id, z, x, y)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_z ON runs(z);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores the run with its clusters and errors tables in a single
// transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, name string, res *pipeline.Result) (*Run, error) {
	if res == nil {
		return nil, eris.New("sqlite: nil result")
	}
	run := newRun(uuid.New().String(), name, res, time.Now().UTC())

	reqJSON, err := json.Marshal(run.Request)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal request")
	}
	summaryJSON, err := json.Marshal(run.Summary)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal summary")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, name, z, request, summary, timestamp, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Request.Zoom, string(reqJSON), string(summaryJSON), run.Timestamp, run.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	clusterStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clusters (run_id, z, x, y, j, i, longitude, latitude, count, area, area_m2, min_date, max_date, file_name, alerts, hull)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare cluster insert")
	}
	defer clusterStmt.Close()

	for _, c := range res.Clusters {
		alertsJSON, err := json.Marshal(c.Members)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal alerts")
		}
		hullJSON, err := json.Marshal(c.Hull)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal hull")
		}
		_, err = clusterStmt.ExecContext(ctx,
			run.ID, c.Z, c.X, c.Y, c.Row, c.Col, c.Longitude, c.Latitude, c.Count, c.Area, c.AreaM2,
			c.MinDate.Format(time.DateOnly), c.MaxDate.Format(time.DateOnly), c.FileName,
			string(alertsJSON), string(hullJSON),
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert cluster %d/%d/%d (%d, %d)", c.Z, c.X, c.Y, c.Row, c.Col)
		}
	}

	for _, e := range res.Errors {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tile_errors (run_id, z, x, y, longitude, latitude, kind, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, e.Z, e.X, e.Y, e.CentroidLongitude, e.CentroidLatitude, string(e.Kind), e.Message,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert tile error %d/%d/%d", e.Z, e.X, e.Y)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit run")
	}
	return run, nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, request, summary, timestamp, created_at FROM runs WHERE id = ?`,
		id,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, name, request, summary, timestamp, created_at FROM runs WHERE 1=1`
	var args []any

	if filter.Zoom > 0 {
		query += ` AND z = ?`
		args = append(args, filter.Zoom)
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// LoadResult rebuilds the merged result of a stored run.
func (s *SQLiteStore) LoadResult(ctx context.Context, id string) (*pipeline.Result, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	res := &pipeline.Result{
		Request:   run.Request,
		Timestamp: run.Timestamp,
		Clusters:  []model.ClusterRow{},
		Errors:    []model.ErrorRecord{},
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT z, x, y, j, i, longitude, latitude, count, area, area_m2, min_date, max_date, file_name, alerts, hull
		 FROM clusters WHERE run_id = ? ORDER BY x, y, j, i`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query clusters for run %s", id)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			c                  model.ClusterRow
			minDate, maxDate   string
			alertsJSON, hullJS string
		)
		if err := rows.Scan(&c.Z, &c.X, &c.Y, &c.Row, &c.Col, &c.Longitude, &c.Latitude, &c.Count,
			&c.Area, &c.AreaM2, &minDate, &maxDate, &c.FileName, &alertsJSON, &hullJS); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan cluster")
		}
		if c.MinDate, err = time.Parse(time.DateOnly, minDate); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse min_date")
		}
		if c.MaxDate, err = time.Parse(time.DateOnly, maxDate); err != nil {
			return nil, eris.Wrap(err, "sqlite: parse max_date")
		}
		if err := json.Unmarshal([]byte(alertsJSON), &c.Members); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal alerts")
		}
		if err := json.Unmarshal([]byte(hullJS), &c.Hull); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal hull")
		}
		c.Timestamp = run.Timestamp
		res.Clusters = append(res.Clusters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: clusters iterate")
	}

	erows, err := s.db.QueryContext(ctx,
		`SELECT z, x, y, longitude, latitude, kind, error FROM tile_errors WHERE run_id = ? ORDER BY x, y`, id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query tile errors for run %s", id)
	}
	defer erows.Close()

	for erows.Next() {
		var e model.ErrorRecord
		if err := erows.Scan(&e.Z, &e.X, &e.Y, &e.CentroidLongitude, &e.CentroidLatitude, &e.Kind, &e.Message); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan tile error")
		}
		res.Errors = append(res.Errors, e)
	}
	return res, eris.Wrap(erows.Err(), "sqlite: tile errors iterate")
}

// DeleteRun removes a run and its tables.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"clusters", "tile_errors"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, id); err != nil {
			return eris.Wrapf(err, "sqlite: delete %s for run %s", table, id)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete run %s", id)
	}
	if err := checkRowsAffected(res, id); err != nil {
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit delete")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrRunNotFound, "id %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var (
		r                    Run
		reqJSON, summaryJSON string
	)
	err := row.Scan(&r.ID, &r.Name, &reqJSON, &summaryJSON, &r.Timestamp, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrRunNotFound, "sqlite: get run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := json.Unmarshal([]byte(reqJSON), &r.Request); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal request")
	}
	if err := json.Unmarshal([]byte(summaryJSON), &r.Summary); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal summary")
	}
	return &r, nil
}
