// Package export writes batch results to files: CSV tables, spreadsheets,
// GeoJSON, shapefiles and compressed snapshots.
package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/glad-clusters/internal/pipeline"
)

// Format names an output file format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatXLSX     Format = "xlsx"
	FormatGeoJSON  Format = "geojson"
	FormatShape    Format = "shp"
	FormatSnapshot Format = "snapshot"
)

// AllFormats lists every supported format.
var AllFormats = []Format{FormatCSV, FormatXLSX, FormatGeoJSON, FormatShape, FormatSnapshot}

// ParseFormats parses a comma-separated format list.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" {
			continue
		}
		if !f.Valid() {
			return nil, eris.Errorf("export: unknown format %q", f)
		}
		out = append(out, f)
	}
	return out, nil
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	for _, known := range AllFormats {
		if f == known {
			return true
		}
	}
	return false
}

// Options controls Write.
type Options struct {
	Dir     string
	Name    string // file stem; defaults to res.Name("")
	Formats []Format
	Errors  bool // also write the errors table where the format allows it
}

// Write writes res in every requested format and returns the created paths.
func Write(res *pipeline.Result, opts Options) ([]string, error) {
	if res == nil {
		return nil, eris.New("export: nil result")
	}
	name := opts.Name
	if name == "" {
		name = res.Name("")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", opts.Dir)
	}
	stem := filepath.Join(opts.Dir, name)

	var paths []string
	for _, f := range opts.Formats {
		var (
			written []string
			err     error
		)
		switch f {
		case FormatCSV:
			written, err = SaveCSV(stem, res, opts.Errors)
		case FormatXLSX:
			written, err = one(stem+".xlsx", SaveXLSX(stem+".xlsx", res))
		case FormatGeoJSON:
			written, err = one(stem+".geojson", SaveGeoJSON(stem+".geojson", res))
		case FormatShape:
			written, err = one(stem+".shp", SaveShapefile(stem+".shp", res.Clusters))
		case FormatSnapshot:
			written, err = one(stem+SnapshotExt, SaveSnapshot(stem+SnapshotExt, res))
		default:
			err = eris.Errorf("export: unknown format %q", f)
		}
		if err != nil {
			return paths, err
		}
		paths = append(paths, written...)
	}

	zap.L().Info("export: wrote result",
		zap.String("name", name),
		zap.Strings("paths", paths),
	)
	return paths, nil
}

func one(path string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	return []string{path}, nil
}
