// Package store persists batch runs. SQLite keeps the local run history;
// PostGIS receives cluster tables as geometries for spatial analysis.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/pipeline"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = eris.New("store: run not found")

// Run is a stored batch: its request, totals and identifying name.
type Run struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Request   pipeline.Request `json:"request"`
	Summary   pipeline.Summary `json:"summary"`
	Timestamp time.Time        `json:"timestamp"`
	CreatedAt time.Time        `json:"created_at"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Zoom   int `json:"z,omitempty"`
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// Store defines the run history interface.
type Store interface {
	SaveRun(ctx context.Context, name string, res *pipeline.Result) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)
	LoadResult(ctx context.Context, id string) (*pipeline.Result, error)
	DeleteRun(ctx context.Context, id string) error

	Migrate(ctx context.Context) error
	Close() error
}

func newRun(id, name string, res *pipeline.Result, createdAt time.Time) *Run {
	return &Run{
		ID:        id,
		Name:      name,
		Request:   res.Request,
		Summary:   res.Summary(),
		Timestamp: res.Timestamp,
		CreatedAt: createdAt,
	}
}
