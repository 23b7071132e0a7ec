package raster

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/glad-clusters/internal/resilience"
	"github.com/sells-group/glad-clusters/internal/tile"
)

// HTTPOptions configures an HTTPSource.
type HTTPOptions struct {
	// BaseURL is the tile root; tiles are requested at
	// {BaseURL}/{z}/{x}/{y}.{Format}.
	BaseURL   string
	Format    string
	UserAgent string
	Timeout   time.Duration
	// RateLimit caps requests per second across all workers. 0 disables it.
	RateLimit float64
	Burst     int
	Retry     resilience.RetryConfig
	Breaker   *resilience.CircuitBreaker
}

// HTTPSource fetches tiles from a static tile server or bucket endpoint.
type HTTPSource struct {
	opts    HTTPOptions
	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPSource returns a source for opts.BaseURL.
func NewHTTPSource(opts HTTPOptions) *HTTPSource {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Format == "" {
		opts.Format = "png"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "glad-clusters/1.0"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	s := &HTTPSource{opts: opts, client: &http.Client{Timeout: opts.Timeout}}
	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.Burst, 1))
	}
	return s
}

func (s *HTTPSource) Name() string { return "http" }

// URL is the address a tile is requested from.
func (s *HTTPSource) URL(c tile.Coord) string {
	return fmt.Sprintf("%s/%d/%d/%d.%s", s.opts.BaseURL, c.Z, c.X, c.Y, s.opts.Format)
}

// Fetch downloads a tile, retrying transient failures. A 404 is ErrNotFound
// and is never retried.
func (s *HTTPSource) Fetch(ctx context.Context, c tile.Coord) ([]byte, error) {
	retry := s.opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(s.Name(), c.String())
	}
	return resilience.DoVal(ctx, retry, func(ctx context.Context) ([]byte, error) {
		if s.opts.Breaker == nil {
			return s.get(ctx, c)
		}
		return resilience.ExecuteVal(ctx, s.opts.Breaker, func(ctx context.Context) ([]byte, error) {
			return s.get(ctx, c)
		})
	})
}

func (s *HTTPSource) get(ctx context.Context, c tile.Coord) ([]byte, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "raster: rate limit wait")
		}
	}

	url := s.URL(c)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "raster: create tile request")
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: get %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, eris.Wrapf(ErrNotFound, "raster: %s", url)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(eris.Errorf("raster: %s returned %d", url, resp.StatusCode), resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("raster: %s returned %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "raster: read tile body")
	}
	zap.L().Debug("raster: fetched tile", zap.String("url", url), zap.Int("bytes", len(data)))
	return data, nil
}
