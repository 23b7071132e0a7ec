// Package raster fetches encoded alert tiles from local directories, HTTP
// tile servers and FTP mirrors.
package raster

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/alerts"
	"github.com/sells-group/glad-clusters/internal/tile"
)

// ErrNotFound is returned when a source has no raster for a tile.
var ErrNotFound = eris.New("raster: tile not found")

// Source returns the encoded image bytes of a tile.
type Source interface {
	Name() string
	Fetch(ctx context.Context, c tile.Coord) ([]byte, error)
}

// Load fetches a tile from src and decodes it, requiring a full-size tile.
// Fetch errors are returned as-is; decoding problems are *alerts.DecodeError.
func Load(ctx context.Context, src Source, c tile.Coord) (*alerts.Raster, error) {
	data, err := src.Fetch(ctx, c)
	if err != nil {
		return nil, err
	}
	r, err := alerts.DecodeBytes(data)
	if err != nil {
		return nil, err
	}
	if err := r.CheckShape(tile.Size, tile.Size); err != nil {
		return nil, err
	}
	return r, nil
}

// Cached wraps src with a read-through cache.
func Cached(src Source, cache *Cache) Source {
	if cache == nil {
		return src
	}
	return &cachedSource{src: src, cache: cache}
}

type cachedSource struct {
	src   Source
	cache *Cache
}

func (s *cachedSource) Name() string { return s.src.Name() }

func (s *cachedSource) Fetch(ctx context.Context, c tile.Coord) ([]byte, error) {
	if data := s.cache.Get(s.src.Name(), c); data != nil {
		return data, nil
	}
	data, err := s.src.Fetch(ctx, c)
	if err != nil {
		return nil, err
	}
	s.cache.Put(s.src.Name(), c, data)
	return data, nil
}
