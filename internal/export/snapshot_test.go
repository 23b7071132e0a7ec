package export

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, res))

	got, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	require.Len(t, got.Clusters, 2)
	assert.Equal(t, res.Clusters[0].Members, got.Clusters[0].Members)
	assert.Equal(t, res.Clusters[0].Hull, got.Clusters[0].Hull)
	assert.Equal(t, res.Errors, got.Errors)
	assert.Equal(t, res.Name(""), got.Name(""))
	assert.Equal(t, res.Summary().Count, got.Summary().Count)
}

func TestSnapshot_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run"+SnapshotExt)
	require.NoError(t, SaveSnapshot(path, sampleResult()))

	got, err := LoadSnapshot(path)
	require.NoError(t, err)
	assert.Len(t, got.Clusters, 2)

	_, err = LoadSnapshot(filepath.Join(t.TempDir(), "missing"+SnapshotExt))
	assert.Error(t, err)
}

func TestReadSnapshot_Garbage(t *testing.T) {
	_, err := ReadSnapshot(bytes.NewReader([]byte("not zstd")))
	assert.Error(t, err)
}
