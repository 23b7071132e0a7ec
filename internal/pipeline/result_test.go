package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/tile"
)

func day(n int) time.Time { return start.AddDate(0, 0, n) }

func sampleResult() *Result {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	results := []model.TileResult{
		{
			Request: model.TileRequest{Zoom: 12, X: 5, Y: 9},
			Clusters: []model.ClusterRecord{
				{Row: 3, Col: 4, Count: 30, Area: 12, Longitude: 10, Latitude: -2, MinDate: day(10), MaxDate: day(40)},
			},
		},
		{Request: model.TileRequest{Zoom: 12, X: 5, Y: 8}, Err: &model.ErrorRecord{Z: 12, X: 5, Y: 8, Message: "missing"}},
		{
			Request: model.TileRequest{Zoom: 12, X: 4, Y: 9},
			Clusters: []model.ClusterRecord{
				{Row: 9, Col: 1, Count: 26, Area: 7.5, Longitude: 9.5, Latitude: -1, MinDate: day(5), MaxDate: day(20)},
				{Row: 1, Col: 1, Count: 40, Area: 3, Longitude: 9.6, Latitude: -1.5, MinDate: day(8), MaxDate: day(60)},
			},
		},
	}
	return Merge(batchRequest(), results, ts)
}

func TestMerge_FlattensAndSorts(t *testing.T) {
	res := sampleResult()
	require.Len(t, res.Clusters, 3)
	require.Len(t, res.Errors, 1)

	assert.Equal(t, 4, res.Clusters[0].X)
	assert.Equal(t, 1, res.Clusters[0].Row)
	assert.Equal(t, 9, res.Clusters[1].Row)
	assert.Equal(t, 5, res.Clusters[2].X)
	assert.Equal(t, "12/5/9.png", res.Clusters[2].FileName)
	assert.Equal(t, res.Timestamp, res.Clusters[0].Timestamp)
}

func TestMerge_EmptyTablesAreNotNil(t *testing.T) {
	res := Merge(batchRequest(), nil, time.Now())
	assert.NotNil(t, res.Clusters)
	assert.NotNil(t, res.Errors)
}

func TestResult_Summary(t *testing.T) {
	s := sampleResult().Summary()
	assert.Equal(t, 3, s.Clusters)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 96, s.Count)
	assert.InDelta(t, 22.5, s.Area, 1e-9)
	assert.True(t, day(5).Equal(s.MinDate))
	assert.True(t, day(60).Equal(s.MaxDate))
}

func TestResult_Bounds(t *testing.T) {
	res := sampleResult()
	w, s, e, n, ok := res.Bounds()
	require.True(t, ok)
	assert.Equal(t, 9.5, w)
	assert.Equal(t, -2.0, s)
	assert.Equal(t, 10.0, e)
	assert.Equal(t, -1.0, n)

	box := res.BoundingBox()
	require.Len(t, box, 5)
	assert.Equal(t, box[0], box[4])

	empty := &Result{}
	_, _, _, _, ok = empty.Bounds()
	assert.False(t, ok)
	assert.Nil(t, empty.BoundingBox())
}

func TestResult_Tile(t *testing.T) {
	res := sampleResult()
	assert.Len(t, res.Tile(tile.Coord{Z: 12, X: 4, Y: 9}), 2)
	assert.Len(t, res.Tile(tile.Coord{Z: 12, X: 5, Y: 9}), 1)
	assert.Empty(t, res.Tile(tile.Coord{Z: 12, X: 5, Y: 8}))
}

func TestResult_Name(t *testing.T) {
	res := sampleResult()
	assert.Equal(t, "clusters_2015-01-01%2020-01-01_100%200%101%201_12%5%25%25", res.Name(""))

	res.Request.Bandwidth = 2.5
	assert.Equal(t, "run_2015-01-01%2020-01-01_100%200%101%201_12%2.5%25%25", res.Name("run"))
}

func TestResult_Cluster(t *testing.T) {
	res := sampleResult()

	row, ok := res.Cluster(tile.Coord{Z: 12, X: 4, Y: 9}, 1, 9)
	require.True(t, ok)
	assert.Equal(t, 26, row.Count)

	_, ok = res.Cluster(tile.Coord{Z: 12, X: 4, Y: 9}, 9, 1)
	assert.False(t, ok)
}

func TestResult_ClusterAt(t *testing.T) {
	res := sampleResult()
	c := tile.Coord{Z: 12, X: 4, Y: 9}
	lon, lat := c.LonLat(1.5, 9.5)

	row, ok := res.ClusterAt(lon, lat)
	require.True(t, ok)
	assert.Equal(t, 26, row.Count)

	_, ok = res.ClusterAt(0, 0)
	assert.False(t, ok)
}

func TestResult_ClusterAt_OwnCoordinates(t *testing.T) {
	res := &Result{Request: Request{Zoom: 12}}
	tiles := []tile.Coord{{Z: 12, X: 100, Y: 200}, {Z: 12, X: 101, Y: 200}, {Z: 12, X: 100, Y: 201}}
	for _, c := range tiles {
		for i := 0; i < tile.Size; i += 5 {
			for j := 0; j < tile.Size; j += 5 {
				lon, lat := c.LonLat(float64(i), float64(j))
				res.Clusters = append(res.Clusters, model.ClusterRow{
					Z: c.Z, X: c.X, Y: c.Y, ClusterRecord: model.ClusterRecord{
						Col: i, Row: j, Count: i*1000 + j, Longitude: lon, Latitude: lat,
					},
				})
			}
		}
	}

	missed := 0
	for _, want := range res.Clusters {
		got, ok := res.ClusterAt(want.Longitude, want.Latitude)
		if !ok || got.X != want.X || got.Y != want.Y || got.Count != want.Count {
			missed++
		}
	}
	assert.Zero(t, missed, "clusters not found at their own coordinates")
}
