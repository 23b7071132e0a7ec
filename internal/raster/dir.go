package raster

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/tile"
)

// DirSource reads tiles laid out as {root}/{z}/{x}/{y}.png.
type DirSource struct {
	root string
}

// NewDirSource returns a source rooted at dir.
func NewDirSource(dir string) *DirSource {
	return &DirSource{root: dir}
}

func (s *DirSource) Name() string { return "dir" }

// Path is the file a tile is read from.
func (s *DirSource) Path(c tile.Coord) string {
	return filepath.Join(s.root, filepath.FromSlash(c.FileName()))
}

func (s *DirSource) Fetch(ctx context.Context, c tile.Coord) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: read tile")
	}
	data, err := os.ReadFile(s.Path(c))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrapf(ErrNotFound, "raster: %s", s.Path(c))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "raster: read %s", s.Path(c))
	}
	return data, nil
}
