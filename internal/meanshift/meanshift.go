// Package meanshift collapses tile-local alert positions onto their local
// density modes using a flat Gaussian-kernel mean shift.
package meanshift

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/model"
)

// Engine runs a fixed number of mean-shift passes. It is immutable and safe
// for concurrent use.
type Engine struct {
	bandwidth  float64
	iterations int
	policy     model.ShiftPolicy
	norm       float64
}

// New returns an Engine. An empty policy selects sequential mutation.
func New(bandwidth float64, iterations int, policy model.ShiftPolicy) (*Engine, error) {
	if bandwidth <= 0 || math.IsInf(bandwidth, 0) || math.IsNaN(bandwidth) {
		return nil, eris.Errorf("meanshift: bandwidth must be positive and finite, got %v", bandwidth)
	}
	if iterations < 0 {
		return nil, eris.Errorf("meanshift: iterations must be >= 0, got %d", iterations)
	}
	if policy == "" {
		policy = model.PolicySequential
	}
	if !policy.Valid() {
		return nil, eris.Errorf("meanshift: unknown policy %q", policy)
	}
	return &Engine{
		bandwidth:  bandwidth,
		iterations: iterations,
		policy:     policy,
		norm:       bandwidth * math.Sqrt(2*math.Pi),
	}, nil
}

// Policy returns the configured shift policy.
func (e *Engine) Policy() model.ShiftPolicy {
	return e.policy
}

// weight is the Gaussian kernel for distance d.
func (e *Engine) weight(d float64) float64 {
	z := d / e.bandwidth
	return math.Exp(-0.5*z*z) / e.norm
}

// Converge returns the position of every input point after all passes,
// without rounding. The result has the same length and order as points and
// the input is not modified.
func (e *Engine) Converge(points []model.Point) []model.Point {
	if len(points) == 0 {
		return []model.Point{}
	}

	work := make([]model.Point, len(points))
	copy(work, points)

	var snapshot []model.Point
	if e.policy == model.PolicySnapshot {
		snapshot = make([]model.Point, len(points))
	}

	for pass := 0; pass < e.iterations; pass++ {
		neighbours := work
		if snapshot != nil {
			copy(snapshot, work)
			neighbours = snapshot
		}
		for i := range work {
			work[i] = centroid(neighbours[i], neighbours, e.weight)
		}
	}
	return work
}

// Shift converges points and snaps each result to the nearest grid cell.
func (e *Engine) Shift(points []model.Point) []model.Point {
	out := e.Converge(points)
	for i := range out {
		out[i] = Round(out[i])
	}
	return out
}

// Round snaps p to the nearest integer cell, halves away from zero.
func Round(p model.Point) model.Point {
	return model.Point{X: math.Round(p.X), Y: math.Round(p.Y)}
}

// centroid returns the kernel-weighted mean of pts as seen from p. A zero
// or non-finite weight sum leaves p where it is.
func centroid(p model.Point, pts []model.Point, weight func(float64) float64) model.Point {
	var sx, sy, sw float64
	for _, q := range pts {
		w := weight(math.Hypot(q.X-p.X, q.Y-p.Y))
		sx += w * q.X
		sy += w * q.Y
		sw += w
	}
	if sw == 0 || math.IsNaN(sw) || math.IsInf(sw, 0) {
		return p
	}
	return model.Point{X: sx / sw, Y: sy / sw}
}
