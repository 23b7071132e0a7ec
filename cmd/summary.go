package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/glad-clusters/internal/export"
	"github.com/sells-group/glad-clusters/internal/pipeline"
	"github.com/sells-group/glad-clusters/internal/tile"
)

var (
	summaryClusters bool
	summaryTile     string
)

var summaryCmd = &cobra.Command{
	Use:   "summary <file>",
	Short: "Summarize a saved result",
	Long:  "Reads a snapshot (.json.zst) or a clusters CSV and prints its totals. A CSV's sibling .errors.csv is read when present.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := loadResultFile(args[0])
		if err != nil {
			return err
		}

		if summaryTile != "" {
			c, err := parseTile(summaryTile)
			if err != nil {
				return err
			}
			res = &pipeline.Result{Request: res.Request, Timestamp: res.Timestamp, Clusters: res.Tile(c)}
		}

		name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		name = strings.TrimSuffix(name, ".json")
		formatSummary(os.Stdout, name, res.Summary())
		if summaryClusters {
			formatClusters(os.Stdout, res)
		}
		return nil
	},
}

// loadResultFile reads a snapshot or a clusters CSV.
func loadResultFile(path string) (*pipeline.Result, error) {
	if strings.HasSuffix(path, export.SnapshotExt) {
		return export.LoadSnapshot(path)
	}
	if filepath.Ext(path) != ".csv" {
		return nil, eris.Errorf("unsupported result file %s", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck
	rows, err := export.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	res := &pipeline.Result{Clusters: rows}

	epath := strings.TrimSuffix(path, ".csv") + ".errors.csv"
	ef, err := os.Open(epath)
	if os.IsNotExist(err) {
		return res, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", epath)
	}
	defer ef.Close() //nolint:errcheck
	if res.Errors, err = export.ReadErrorsCSV(ef); err != nil {
		return nil, err
	}
	return res, nil
}

// parseTile parses z/x/y.
func parseTile(s string) (tile.Coord, error) {
	v, err := parseInts(strings.ReplaceAll(s, "/", ","), 3)
	if err != nil {
		return tile.Coord{}, eris.Wrapf(err, "tile %q must be z/x/y", s)
	}
	return tile.Coord{Z: v[0], X: v[1], Y: v[2]}, nil
}

func init() {
	summaryCmd.Flags().BoolVar(&summaryClusters, "clusters", false, "also list every cluster")
	summaryCmd.Flags().StringVar(&summaryTile, "tile", "", "restrict to one tile, as z/x/y")
	rootCmd.AddCommand(summaryCmd)
}
