package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/glad-clusters/internal/model"
	"github.com/sells-group/glad-clusters/internal/pipeline"
	"github.com/sells-group/glad-clusters/internal/tile"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRequestFile_Tiles(t *testing.T) {
	path := writeFile(t, "req.yaml", `
z: 11
tiles: {x_min: 10, x_max: 12, y_min: 20, y_max: 21}
start_date: "2016-01-01"
end_date: 20170101
width: 2.5
min_count: 10
iterations: 0
intensity_threshold: 30
hard_threshold: true
policy: snapshot-per-pass
`)
	req, err := loadRequestFile(path, pipeline.DefaultRequest())
	require.NoError(t, err)

	assert.Equal(t, 11, req.Zoom)
	assert.Equal(t, tile.Range{MinX: 10, MaxX: 12, MinY: 20, MaxY: 21}, req.Range)
	assert.True(t, time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC).Equal(req.StartDate))
	assert.True(t, time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC).Equal(req.EndDate))
	assert.Equal(t, 2.5, req.Bandwidth)
	assert.Equal(t, 10, req.MinCount)
	assert.Equal(t, 0, req.Iterations)
	require.NotNil(t, req.IntensityThreshold)
	assert.Equal(t, 30.0, *req.IntensityThreshold)
	assert.True(t, req.HardThreshold)
	assert.Equal(t, model.PolicySnapshot, req.Policy)
	assert.NoError(t, req.Validate())
}

func TestLoadRequestFile_BoundsAndPoint(t *testing.T) {
	c := tile.Coord{Z: 12, X: 100, Y: 200}
	lon, lat := c.Center()

	path := writeFile(t, "point.yaml", "point: ["+jsonFloat(lon)+", "+jsonFloat(lat)+"]\n")
	req, err := loadRequestFile(path, pipeline.DefaultRequest())
	require.NoError(t, err)
	assert.Equal(t, tile.Range{MinX: 100, MaxX: 100, MinY: 200, MaxY: 200}, req.Range)

	path = writeFile(t, "bounds.yaml", "bounds: [1, 2, 3]\n")
	_, err = loadRequestFile(path, pipeline.DefaultRequest())
	assert.True(t, eris.Is(err, pipeline.ErrInvalidRequest))
}

func TestLoadRequestFile_Errors(t *testing.T) {
	_, err := loadRequestFile(filepath.Join(t.TempDir(), "missing.yaml"), pipeline.DefaultRequest())
	assert.Error(t, err)

	path := writeFile(t, "bad.yaml", "tiles: [unclosed")
	_, err = loadRequestFile(path, pipeline.DefaultRequest())
	assert.Error(t, err)

	path = writeFile(t, "date.yaml", "start_date: someday\n")
	_, err = loadRequestFile(path, pipeline.DefaultRequest())
	assert.True(t, eris.Is(err, pipeline.ErrInvalidRequest))
}

func TestRequestFlags_ApplyOnlyChanged(t *testing.T) {
	var f requestFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	require.NoError(t, cmd.Flags().Set("width", "3"))
	require.NoError(t, cmd.Flags().Set("start", "2018-02-03"))
	require.NoError(t, cmd.Flags().Set("threshold", "40"))

	base := pipeline.DefaultRequest()
	req, err := f.apply(cmd, base)
	require.NoError(t, err)

	assert.Equal(t, 3.0, req.Bandwidth)
	assert.True(t, time.Date(2018, 2, 3, 0, 0, 0, 0, time.UTC).Equal(req.StartDate))
	assert.Equal(t, base.MinCount, req.MinCount)
	assert.Equal(t, base.Iterations, req.Iterations)
	assert.True(t, base.EndDate.Equal(req.EndDate))
	require.NotNil(t, req.IntensityThreshold)
	assert.Equal(t, 40.0, *req.IntensityThreshold)
	assert.False(t, req.HardThreshold)
}

func TestParseFloats(t *testing.T) {
	v, err := parseFloats("1, 2.5,-3", 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, -3}, v)

	_, err = parseFloats("1,2", 3)
	assert.Error(t, err)
	_, err = parseFloats("1,x,3", 3)
	assert.Error(t, err)
}

func TestParseInts(t *testing.T) {
	v, err := parseInts("100, 200,101,-1", 4)
	require.NoError(t, err)
	assert.Equal(t, []int{100, 200, 101, -1}, v)

	_, err = parseInts("1.7,200,101,200", 4)
	assert.Error(t, err)
	_, err = parseInts("1,2", 4)
	assert.Error(t, err)
}

func TestParseTile(t *testing.T) {
	c, err := parseTile("12/100/200")
	require.NoError(t, err)
	assert.Equal(t, tile.Coord{Z: 12, X: 100, Y: 200}, c)

	_, err = parseTile("12/100")
	assert.Error(t, err)
	_, err = parseTile("12/100.5/200")
	assert.Error(t, err)
}
