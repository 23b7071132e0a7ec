package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func TestEncodeCluster(t *testing.T) {
	row := sampleResult().Clusters[0]
	g, err := encodeCluster(row)
	require.NoError(t, err)

	pt, err := ewkb.Unmarshal(g.centroid)
	require.NoError(t, err)
	require.IsType(t, &geom.Point{}, pt)
	assert.Equal(t, SRID, pt.SRID())
	assert.InDelta(t, row.Longitude, pt.(*geom.Point).X(), 1e-12)

	mp, err := ewkb.Unmarshal(g.alerts)
	require.NoError(t, err)
	require.IsType(t, &geom.MultiPoint{}, mp)
	assert.Equal(t, 4, mp.(*geom.MultiPoint).NumPoints())
	assert.Equal(t, geom.XYZ, mp.Layout())
	assert.Equal(t, 10.0, mp.(*geom.MultiPoint).Point(0).Z())

	poly, err := ewkb.Unmarshal(g.hull)
	require.NoError(t, err)
	require.IsType(t, &geom.Polygon{}, poly)
	ring := poly.(*geom.Polygon).LinearRing(0)
	assert.Equal(t, 5, ring.NumCoords())
	assert.Equal(t, ring.Coord(0), ring.Coord(4))
}

func TestEncodeCluster_DegenerateHull(t *testing.T) {
	row := sampleResult().Clusters[0]
	row.Hull = row.Hull[:2]

	g, err := encodeCluster(row)
	require.NoError(t, err)
	assert.Nil(t, g.hull)
	assert.NotNil(t, g.alerts)
}
