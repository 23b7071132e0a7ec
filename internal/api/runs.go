package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/pipeline"
	"github.com/sells-group/glad-clusters/internal/store"
	"github.com/sells-group/glad-clusters/internal/tile"
)

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	var (
		f   store.RunFilter
		err error
	)
	if f.Zoom, err = queryInt(r, "z", 0); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	runs, err := s.store.ListRuns(r.Context(), f)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) getRunResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	res, err := s.store.LoadResult(r.Context(), id)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	resp := newRunResponse(res)
	resp.RunID = id
	writeResult(w, r, resp, res)
}

// getRunCluster looks up one cluster of a stored run, either by lon/lat or
// by tile and pixel (z, x, y, i, j).
func (s *Server) getRunCluster(w http.ResponseWriter, r *http.Request) {
	res, err := s.store.LoadResult(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	q := r.URL.Query()
	var (
		found bool
		row   model.ClusterRow
	)
	if q.Has("lon") || q.Has("lat") {
		lon, err := queryFloat(r, "lon", 0)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		lat, err := queryFloat(r, "lat", 0)
		if err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		row, found = res.ClusterAt(lon, lat)
	} else {
		var v [5]int
		for k, key := range []string{"z", "x", "y", "i", "j"} {
			if !q.Has(key) {
				err := eris.Wrap(pipeline.ErrInvalidRequest, "lon/lat or z, x, y, i, j are required")
				writeError(w, statusFor(err), err)
				return
			}
			if v[k], err = queryInt(r, key, 0); err != nil {
				writeError(w, statusFor(err), err)
				return
			}
		}
		row, found = res.Cluster(tile.Coord{Z: v[0], X: v[1], Y: v[2]}, v[3], v[4])
	}

	if !found {
		writeError(w, http.StatusNotFound, eris.New("cluster not found"))
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteRun(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
