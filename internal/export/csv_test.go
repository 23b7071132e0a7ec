package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV_View(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleResult().Clusters, false))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "count,area,min_date,max_date,longitude,latitude,x,y,timestamp", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "4,4,20150111,20150210,"))
	assert.True(t, strings.HasSuffix(lines[1], ",100,200,2024-05-01T12:00:00Z"))
}

func TestCSV_RoundTrip(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, res.Clusters, true))

	rows, err := ReadCSV(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for k, want := range res.Clusters {
		got := rows[k]
		assert.Equal(t, want.Count, got.Count)
		assert.Equal(t, want.Row, got.Row)
		assert.Equal(t, want.Col, got.Col)
		assert.Equal(t, want.FileName, got.FileName)
		assert.Equal(t, want.Members, got.Members)
		assert.True(t, want.MinDate.Equal(got.MinDate))
		assert.True(t, want.MaxDate.Equal(got.MaxDate))
		assert.True(t, want.Timestamp.Equal(got.Timestamp))
		assert.Equal(t, want.Longitude, got.Longitude)
		assert.Len(t, got.Hull, len(want.Hull))
	}
}

func TestReadCSV_ThreeValueAlerts(t *testing.T) {
	in := "count,area,area_m2,min_date,max_date,longitude,latitude,z,x,y,i,j,file_name,timestamp,alerts\n" +
		"3,0,0,20150102,20150103,1.5,2.5,12,1,2,3,4,12/1/2.png,2024-05-01T12:00:00Z,\"[[4,3,7],[4,4,8],[5,3,9]]\"\n"

	rows, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Members, 3)
	assert.Equal(t, 4, rows[0].Members[0].Row)
	assert.Equal(t, 3, rows[0].Members[0].Col)
	assert.Equal(t, 7.0, rows[0].Members[0].Value)
	assert.Len(t, rows[0].Hull, 3)
}

func TestReadCSV_Errors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("count,area\n1,2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")

	bad := "count,area,area_m2,min_date,max_date,longitude,latitude,z,x,y,i,j,file_name,timestamp,alerts\n" +
		"many,0,0,20150102,20150103,1,2,12,1,2,3,4,f,2024-05-01T12:00:00Z,[]\n"
	_, err = ReadCSV(strings.NewReader(bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestErrorsCSV_RoundTrip(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, WriteErrorsCSV(&buf, res.Errors))

	got, err := ReadErrorsCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, res.Errors, got)
}
