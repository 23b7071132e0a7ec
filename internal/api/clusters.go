package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/pipeline"
	"github.com/sells-group/glad-clusters/internal/tile"
)

// tileClusters runs a single tile with query parameters layered over the
// server defaults.
func (s *Server) tileClusters(w http.ResponseWriter, r *http.Request) {
	req, err := s.tileRequest(r)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	res, err := s.runner.Run(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeResult(w, r, newRunResponse(res), res)
}

func (s *Server) tileRequest(r *http.Request) (pipeline.Request, error) {
	req := s.base()
	var coord [3]int
	for k, key := range []string{"z", "x", "y"} {
		n, err := strconv.Atoi(chi.URLParam(r, key))
		if err != nil {
			return req, eris.Wrapf(pipeline.ErrInvalidRequest, "%s must be an integer", key)
		}
		coord[k] = n
	}
	req.Zoom = coord[0]
	req.Range = tile.Range{MinX: coord[1], MaxX: coord[1], MinY: coord[2], MaxY: coord[2]}

	var err error
	if req.StartDate, err = queryDate(r, "start", req.StartDate); err != nil {
		return req, err
	}
	if req.EndDate, err = queryDate(r, "end", req.EndDate); err != nil {
		return req, err
	}
	if req.Bandwidth, err = queryFloat(r, "width", req.Bandwidth); err != nil {
		return req, err
	}
	if req.MinCount, err = queryInt(r, "min_count", req.MinCount); err != nil {
		return req, err
	}
	if req.Iterations, err = queryInt(r, "iterations", req.Iterations); err != nil {
		return req, err
	}
	if v := r.URL.Query().Get("policy"); v != "" {
		req.Policy = model.ShiftPolicy(v)
	}
	if v := r.URL.Query().Get("source"); v != "" {
		req.Source = model.AlertSource(v)
	}
	if v := r.URL.Query().Get("threshold"); v != "" {
		t, err := queryFloat(r, "threshold", 0)
		if err != nil {
			return req, err
		}
		req.IntensityThreshold = &t
		req.HardThreshold = r.URL.Query().Get("hard") == "true"
	}
	return req, nil
}

// clustersBody is the JSON body of POST /v1/clusters. The tile range is
// given either as tiles or as a lon/lat bounding box; unset fields take
// the server defaults.
type clustersBody struct {
	Zoom               *int              `json:"z"`
	Tiles              *tile.Range       `json:"tiles"`
	Bounds             *[4]float64       `json:"bounds"`
	StartDate          string            `json:"start_date"`
	EndDate            string            `json:"end_date"`
	Width              *float64          `json:"width"`
	MinCount           *int              `json:"min_count"`
	Iterations         *int              `json:"iterations"`
	IntensityThreshold *float64          `json:"intensity_threshold"`
	HardThreshold      bool              `json:"hard_threshold"`
	Policy             model.ShiftPolicy `json:"policy"`
	Source             model.AlertSource `json:"source"`
	Save               bool              `json:"save"`
}

func (b clustersBody) request(defaults pipeline.Request) (pipeline.Request, error) {
	req := defaults
	if b.Zoom != nil {
		req.Zoom = *b.Zoom
	}
	switch {
	case b.Tiles != nil:
		req.Range = *b.Tiles
	case b.Bounds != nil:
		req.Range = tile.RangeFromBounds(req.Zoom, b.Bounds[0], b.Bounds[1], b.Bounds[2], b.Bounds[3])
	default:
		return req, eris.Wrap(pipeline.ErrInvalidRequest, "tiles or bounds is required")
	}

	var err error
	if b.StartDate != "" {
		if req.StartDate, err = pipeline.ParseDate(b.StartDate); err != nil {
			return req, err
		}
	}
	if b.EndDate != "" {
		if req.EndDate, err = pipeline.ParseDate(b.EndDate); err != nil {
			return req, err
		}
	}
	if b.Width != nil {
		req.Bandwidth = *b.Width
	}
	if b.MinCount != nil {
		req.MinCount = *b.MinCount
	}
	if b.Iterations != nil {
		req.Iterations = *b.Iterations
	}
	if b.IntensityThreshold != nil {
		req.IntensityThreshold = b.IntensityThreshold
		req.HardThreshold = b.HardThreshold
	}
	if b.Policy != "" {
		req.Policy = b.Policy
	}
	if b.Source != "" {
		req.Source = b.Source
	}
	return req, nil
}

// runClusters runs a batch request and optionally records it in the store.
func (s *Server) runClusters(w http.ResponseWriter, r *http.Request) {
	var body clustersBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "invalid request body"))
		return
	}
	req, err := body.request(s.base())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	res, err := s.runner.Run(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	resp := newRunResponse(res)
	if body.Save && s.store != nil {
		run, err := s.store.SaveRun(r.Context(), resp.Name, res)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.RunID = run.ID
	}
	writeResult(w, r, resp, res)
}
