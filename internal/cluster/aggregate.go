// Package cluster groups converged mean-shift positions into clusters and
// reattaches the alert pixels that fed each one.
package cluster

import (
	"math"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/alerts"
	"github.com/sells-group/glad-clusters/internal/model"
)

type cell struct {
	row, col int
}

// Aggregate groups shifted positions by exact grid cell, drops cells holding
// fewer than minCount points and returns one record per surviving cell,
// ordered by (row, col). shifted[i] must be the converged position of
// pixels[i]. Geometry fields are left for the caller.
func Aggregate(shifted []model.Point, pixels []model.AlertPixel, minCount int, epoch time.Time) ([]model.ClusterRecord, error) {
	if len(shifted) != len(pixels) {
		return nil, eris.Errorf("cluster: %d shifted positions for %d pixels", len(shifted), len(pixels))
	}

	groups := make(map[cell][]int)
	for i, p := range shifted {
		c := cell{row: int(math.Round(p.Y)), col: int(math.Round(p.X))}
		groups[c] = append(groups[c], i)
	}

	out := make([]model.ClusterRecord, 0, len(groups))
	for c, idx := range groups {
		if len(idx) < minCount {
			continue
		}
		out = append(out, record(c, idx, pixels, epoch))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Col < out[j].Col
	})
	return out, nil
}

func record(c cell, idx []int, pixels []model.AlertPixel, epoch time.Time) model.ClusterRecord {
	members := make([]model.AlertPixel, len(idx))
	minDays, maxDays := math.MaxInt, math.MinInt
	for k, i := range idx {
		members[k] = pixels[i]
		minDays = min(minDays, pixels[i].Days)
		maxDays = max(maxDays, pixels[i].Days)
	}

	return model.ClusterRecord{
		Row:     c.row,
		Col:     c.col,
		Count:   len(idx),
		MinDate: alerts.DateFor(epoch, minDays),
		MaxDate: alerts.DateFor(epoch, maxDays),
		Members: members,
	}
}
