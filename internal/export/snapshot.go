package export

import (
	"bufio"
	"encoding/json"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/rotisserie/eris"

	"github.com/sells-group/glad-clusters/internal/pipeline"
)

// SnapshotExt is the file extension of result snapshots.
const SnapshotExt = ".json.zst"

// WriteSnapshot writes res as zstd-compressed JSON.
func WriteSnapshot(w io.Writer, res *pipeline.Result) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return eris.Wrap(err, "export: create zstd writer")
	}
	if err := json.NewEncoder(enc).Encode(res); err != nil {
		enc.Close()
		return eris.Wrap(err, "export: encode snapshot")
	}
	return eris.Wrap(enc.Close(), "export: close zstd writer")
}

// ReadSnapshot reads a result written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*pipeline.Result, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "export: create zstd reader")
	}
	defer dec.Close()

	var res pipeline.Result
	if err := json.NewDecoder(dec).Decode(&res); err != nil {
		return nil, eris.Wrap(err, "export: decode snapshot")
	}
	return &res, nil
}

// SaveSnapshot writes a snapshot file.
func SaveSnapshot(path string, res *pipeline.Result) error {
	return createWith(path, func(w io.Writer) error {
		bw := bufio.NewWriterSize(w, 1<<20)
		if err := WriteSnapshot(bw, res); err != nil {
			return err
		}
		return eris.Wrap(bw.Flush(), "export: flush snapshot")
	})
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*pipeline.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open snapshot %s", path)
	}
	defer f.Close()
	return ReadSnapshot(bufio.NewReader(f))
}
