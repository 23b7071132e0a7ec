package main

import (
	"encoding/json"
	"os"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/glad-clusters/internal/export"
	"github.com/sells-group/glad-clusters/internal/tile"
)

var (
	tileGeoJSON bool
	tileReq     requestFlags
)

var tileCmd = &cobra.Command{
	Use:   "tile <z> <x> <y>",
	Short: "Cluster alerts in a single tile",
	Long:  "Runs one tile and prints its clusters as JSON, or as GeoJSON with --geojson. A failed tile is reported as an error row, not a command failure.",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("run"); err != nil {
			return err
		}

		var c [3]int
		for k, a := range args {
			n, err := strconv.Atoi(a)
			if err != nil {
				return eris.Errorf("tile coordinate %q is not an integer", a)
			}
			c[k] = n
		}

		req, err := defaultRequest()
		if err != nil {
			return err
		}
		req.Zoom = c[0]
		req.Range = tile.Range{MinX: c[1], MaxX: c[1], MinY: c[2], MaxY: c[2]}
		if req, err = tileReq.apply(cmd, req); err != nil {
			return err
		}

		runner, err := initRunner()
		if err != nil {
			return err
		}
		res, err := runner.Run(ctx, req)
		if err != nil {
			return eris.Wrap(err, "tile")
		}

		if tileGeoJSON {
			return export.WriteGeoJSON(os.Stdout, res)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"name":     res.Name(""),
			"summary":  res.Summary(),
			"clusters": res.Clusters,
			"errors":   res.Errors,
		})
	},
}

func init() {
	tileCmd.Flags().BoolVar(&tileGeoJSON, "geojson", false, "print a GeoJSON feature collection")
	tileReq.register(tileCmd)
	rootCmd.AddCommand(tileCmd)
}
