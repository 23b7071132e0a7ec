package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/pipeline"
	"github.com/sells-group/glad-clusters/internal/tile"
)

var epoch = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

func sampleResult() *pipeline.Result {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := tile.Coord{Z: 12, X: 100, Y: 200}
	lon, lat := c.LonLat(2, 2)
	elon, elat := tile.Coord{Z: 12, X: 101, Y: 200}.Center()

	return &pipeline.Result{
		Request: pipeline.Request{
			Zoom:       12,
			Range:      tile.Range{MinX: 100, MaxX: 101, MinY: 200, MaxY: 200},
			StartDate:  epoch,
			EndDate:    epoch.AddDate(5, 0, 0),
			Bandwidth:  5,
			MinCount:   3,
			Iterations: 25,
		},
		Timestamp: ts,
		Clusters: []model.ClusterRow{
			{
				Z: 12, X: 100, Y: 200,
				FileName:  c.FileName(),
				Timestamp: ts,
				ClusterRecord: model.ClusterRecord{
					Row: 2, Col: 2,
					Longitude: lon, Latitude: lat,
					Count:   4,
					Area:    4,
					AreaM2:  1234.5,
					MinDate: epoch.AddDate(0, 0, 10),
					MaxDate: epoch.AddDate(0, 0, 40),
					Members: []model.AlertPixel{
						{Row: 1, Col: 1, Days: 10, Value: 10},
						{Row: 1, Col: 3, Days: 20, Value: 20},
						{Row: 3, Col: 3, Days: 30, Value: 30},
						{Row: 3, Col: 1, Days: 40, Value: 40},
					},
					Hull: []model.Point{{X: 3, Y: 3}, {X: 1, Y: 3}, {X: 1, Y: 1}, {X: 3, Y: 1}},
				},
			},
			{
				Z: 12, X: 100, Y: 200,
				FileName:  c.FileName(),
				Timestamp: ts,
				ClusterRecord: model.ClusterRecord{
					Row: 9, Col: 9,
					Longitude: lon, Latitude: lat,
					Count:   3,
					MinDate: epoch.AddDate(0, 0, 5),
					MaxDate: epoch.AddDate(0, 0, 5),
					Members: []model.AlertPixel{
						{Row: 9, Col: 9, Days: 5, Value: 5},
						{Row: 9, Col: 9, Days: 5, Value: 5},
						{Row: 9, Col: 10, Days: 5, Value: 5},
					},
					Hull: []model.Point{{X: 10, Y: 9}, {X: 9, Y: 9}},
				},
			},
		},
		Errors: []model.ErrorRecord{{
			Z: 12, X: 101, Y: 200,
			CentroidLongitude: elon, CentroidLatitude: elat,
			Kind:    model.ErrorKindFetch,
			Message: "raster: tile not found",
		}},
	}
}

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats("csv, GeoJSON,,snapshot")
	require.NoError(t, err)
	assert.Equal(t, []Format{FormatCSV, FormatGeoJSON, FormatSnapshot}, got)

	_, err = ParseFormats("csv,kml")
	assert.Error(t, err)

	got, err = ParseFormats("")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWrite_AllFormats(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	res := sampleResult()

	paths, err := Write(res, Options{Dir: dir, Formats: AllFormats, Errors: true})
	require.NoError(t, err)

	stem := filepath.Join(dir, res.Name(""))
	assert.Equal(t, []string{
		stem + ".csv",
		stem + ".errors.csv",
		stem + ".xlsx",
		stem + ".geojson",
		stem + ".shp",
		stem + SnapshotExt,
	}, paths)
	for _, p := range append(paths, stem+".shx", stem+".dbf") {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestWrite_NamedNoErrors(t *testing.T) {
	dir := t.TempDir()
	paths, err := Write(sampleResult(), Options{Dir: dir, Name: "run", Formats: []Format{FormatCSV}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "run.csv")}, paths)
}

func TestWrite_Nil(t *testing.T) {
	_, err := Write(nil, Options{Dir: t.TempDir()})
	assert.Error(t, err)
}
