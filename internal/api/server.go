// Package api serves cluster runs over HTTP.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/glad-clusters/internal/export"
	"github.com/sells-group/glad-clusters/internal/pipeline"
	"github.com/sells-group/glad-clusters/internal/store"
)

const maxBodyBytes = 1 << 20

// Server holds the handlers' dependencies. Store may be nil, in which case
// the run history routes are not mounted.
type Server struct {
	runner   *pipeline.Runner
	store    store.Store
	defaults pipeline.Request
}

// NewServer returns a Server that fills unset request fields from defaults.
// A zero defaults.EndDate means today, evaluated per request.
func NewServer(runner *pipeline.Runner, st store.Store, defaults pipeline.Request) *Server {
	return &Server{runner: runner, store: st, defaults: defaults}
}

// Router builds the HTTP handler. origins lists the allowed CORS origins.
func (s *Server) Router(origins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/tiles/{z}/{x}/{y}/clusters", s.tileClusters)
		r.Post("/clusters", s.runClusters)
		if s.store != nil {
			r.Get("/runs", s.listRuns)
			r.Get("/runs/{id}", s.getRun)
			r.Get("/runs/{id}/result", s.getRunResult)
			r.Get("/runs/{id}/cluster", s.getRunCluster)
			r.Delete("/runs/{id}", s.deleteRun)
		}
	})
	return r
}

// base returns the defaults for one request.
func (s *Server) base() pipeline.Request {
	req := s.defaults
	if req.EndDate.IsZero() {
		now := time.Now().UTC()
		req.EndDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	return req
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// runResponse is the body returned for a clustering run.
type runResponse struct {
	RunID    string           `json:"run_id,omitempty"`
	Name     string           `json:"name"`
	Summary  pipeline.Summary `json:"summary"`
	Clusters any              `json:"clusters"`
	Errors   any              `json:"errors"`
}

func newRunResponse(res *pipeline.Result) runResponse {
	return runResponse{
		Name:     res.Name(""),
		Summary:  res.Summary(),
		Clusters: res.Clusters,
		Errors:   res.Errors,
	}
}

// writeResult writes res as GeoJSON when format=geojson, JSON otherwise.
func writeResult(w http.ResponseWriter, r *http.Request, body runResponse, res *pipeline.Result) {
	if r.URL.Query().Get("format") == "geojson" {
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		if err := export.WriteGeoJSON(w, res); err != nil {
			zap.L().Error("api: write geojson", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case eris.Is(err, pipeline.ErrInvalidRequest):
		return http.StatusBadRequest
	case eris.Is(err, store.ErrRunNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, eris.Wrapf(pipeline.ErrInvalidRequest, "%s must be an integer", key)
	}
	return n, nil
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, eris.Wrapf(pipeline.ErrInvalidRequest, "%s must be a number", key)
	}
	return f, nil
}

func queryDate(r *http.Request, key string, def time.Time) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return pipeline.ParseDate(v)
}
