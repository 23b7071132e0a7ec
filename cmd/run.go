package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/glad-clusters/internal/alerts"
	"github.com/sells-group/glad-clusters/internal/export"
	"github.com/sells-group/glad-clusters/internal/pipeline"
	"github.com/sells-group/glad-clusters/internal/tile"
)

var (
	runRequestPath string
	runTiles       string
	runBounds      string
	runPoint       string
	runZoom        int
	runIdent       string
	runOut         string
	runFormats     string
	runNoStore     bool
	runPostGIS     bool
	runReq         requestFlags
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Cluster alerts over a range of tiles",
	Long:  "Runs mean-shift clustering on every tile of a range, writes the clusters and errors tables, and records the run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("run"); err != nil {
			return err
		}
		if runPostGIS {
			if err := cfg.Validate("export"); err != nil {
				return err
			}
		}

		req, err := buildRunRequest(cmd)
		if err != nil {
			return err
		}

		runner, err := initRunner()
		if err != nil {
			return err
		}
		res, err := runner.Run(ctx, req)
		if err != nil {
			return eris.Wrap(err, "run")
		}
		name := res.Name(runIdent)

		formats := runFormats
		if !cmd.Flags().Changed("formats") {
			formats = strings.Join(cfg.Export.Formats, ",")
		}
		fs, err := export.ParseFormats(formats)
		if err != nil {
			return err
		}
		out := runOut
		if out == "" {
			out = cfg.Export.Dir
		}
		paths, err := export.Write(res, export.Options{
			Dir:     out,
			Name:    name,
			Formats: fs,
			Errors:  cfg.Export.Errors,
		})
		if err != nil {
			return eris.Wrap(err, "export result")
		}

		runID := ""
		if !runNoStore {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			run, err := st.SaveRun(ctx, name, res)
			if err != nil {
				return eris.Wrap(err, "save run")
			}
			runID = run.ID
		}

		if runPostGIS {
			pg, err := initPostGIS(ctx)
			if err != nil {
				return err
			}
			defer pg.Close() //nolint:errcheck
			stats, err := pg.Export(ctx, name, res)
			if err != nil {
				return eris.Wrap(err, "postgis export")
			}
			zap.L().Info("postgis export complete",
				zap.Int64("clusters", stats.Clusters),
				zap.Int64("errors", stats.Errors),
			)
		}

		zap.L().Info("run complete",
			zap.String("name", name),
			zap.String("run_id", runID),
			zap.Strings("files", paths),
		)
		formatSummary(os.Stdout, name, res.Summary())
		return nil
	},
}

// buildRunRequest layers config defaults, the request file and flags.
func buildRunRequest(cmd *cobra.Command) (pipeline.Request, error) {
	req, err := defaultRequest()
	if err != nil {
		return req, err
	}
	if runRequestPath != "" {
		if req, err = loadRequestFile(runRequestPath, req); err != nil {
			return req, err
		}
	}
	if cmd.Flags().Changed("z") {
		req.Zoom = runZoom
	}

	switch {
	case runTiles != "":
		v, err := parseInts(runTiles, 4)
		if err != nil {
			return req, eris.Wrap(err, "--tiles")
		}
		req.Range = tile.Range{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}
	case runBounds != "":
		v, err := parseFloats(runBounds, 4)
		if err != nil {
			return req, eris.Wrap(err, "--bounds")
		}
		req.Range = tile.RangeFromBounds(req.Zoom, v[0], v[1], v[2], v[3])
	case runPoint != "":
		v, err := parseFloats(runPoint, 2)
		if err != nil {
			return req, eris.Wrap(err, "--point")
		}
		req.Range = tile.RangeFromPoint(req.Zoom, v[0], v[1])
	case runRequestPath == "":
		return req, eris.New("one of --tiles, --bounds, --point or --request is required")
	}

	return runReq.apply(cmd, req)
}

// formatSummary writes the totals of a result to w.
func formatSummary(out io.Writer, name string, s pipeline.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Name:\t%s\n", name)
	_, _ = fmt.Fprintf(w, "Clusters:\t%d\n", s.Clusters)
	_, _ = fmt.Fprintf(w, "Alerts:\t%d\n", s.Count)
	_, _ = fmt.Fprintf(w, "Area (px):\t%.1f\n", s.Area)
	_, _ = fmt.Fprintf(w, "Area (ha):\t%.1f\n", s.AreaM2/10000)
	if s.Clusters > 0 {
		_, _ = fmt.Fprintf(w, "Dates:\t%s to %s\n", s.MinDate.Format(time.DateOnly), s.MaxDate.Format(time.DateOnly))
	}
	_, _ = fmt.Fprintf(w, "Tile errors:\t%d\n", s.Errors)
	_ = w.Flush()
}

// formatClusters writes one line per cluster to w.
func formatClusters(out io.Writer, res *pipeline.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TILE\tI\tJ\tCOUNT\tAREA\tMIN_DATE\tMAX_DATE\tLON\tLAT")
	for _, c := range res.Clusters {
		_, _ = fmt.Fprintf(w, "%d/%d/%d\t%d\t%d\t%d\t%.1f\t%d\t%d\t%.6f\t%.6f\n",
			c.Z, c.X, c.Y, c.Col, c.Row, c.Count, c.Area,
			alerts.DateInt(c.MinDate), alerts.DateInt(c.MaxDate),
			c.Longitude, c.Latitude,
		)
	}
	_ = w.Flush()
}

func init() {
	runCmd.Flags().StringVar(&runRequestPath, "request", "", "YAML request file")
	runCmd.Flags().StringVar(&runTiles, "tiles", "", "tile range as x_min,y_min,x_max,y_max")
	runCmd.Flags().StringVar(&runBounds, "bounds", "", "lon/lat box as west,south,east,north")
	runCmd.Flags().StringVar(&runPoint, "point", "", "single tile containing lon,lat")
	runCmd.Flags().IntVar(&runZoom, "z", 0, "tile zoom (default from config)")
	runCmd.Flags().StringVar(&runIdent, "ident", pipeline.DefaultIdent, "prefix of the result name")
	runCmd.Flags().StringVar(&runOut, "out", "", "output directory (default from config)")
	runCmd.Flags().StringVar(&runFormats, "formats", "", "comma-separated formats: csv, xlsx, geojson, shp, snapshot")
	runCmd.Flags().BoolVar(&runNoStore, "no-store", false, "skip recording the run in the history database")
	runCmd.Flags().BoolVar(&runPostGIS, "postgis", false, "also export the result to PostGIS")
	runReq.register(runCmd)
	rootCmd.AddCommand(runCmd)
}
