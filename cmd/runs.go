package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/glad-clusters/internal/export"
	"github.com/sells-group/glad-clusters/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect clustering run history",
	Long:  "Commands for listing, viewing, re-exporting and deleting recorded runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		zoom, _ := cmd.Flags().GetInt("z")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{Zoom: zoom, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs export --

var runsExportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Write a recorded run's tables to files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs export")
		}
		res, err := st.LoadResult(ctx, run.ID)
		if err != nil {
			return eris.Wrap(err, "runs export")
		}

		formats, _ := cmd.Flags().GetString("formats")
		if formats == "" {
			formats = strings.Join(cfg.Export.Formats, ",")
		}
		fs, err := export.ParseFormats(formats)
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = cfg.Export.Dir
		}

		paths, err := export.Write(res, export.Options{Dir: out, Name: run.Name, Formats: fs, Errors: cfg.Export.Errors})
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(os.Stdout, p)
		}
		return nil
	},
}

// -- runs delete --

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run and its tables",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return eris.Wrap(st.DeleteRun(ctx, args[0]), "runs delete")
	},
}

func init() {
	runsListCmd.Flags().Int("z", 0, "filter by zoom")
	runsListCmd.Flags().Int("limit", 50, "max number of runs to display")

	runsExportCmd.Flags().String("formats", "", "comma-separated formats (default from config)")
	runsExportCmd.Flags().String("out", "", "output directory (default from config)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsExportCmd)
	runsCmd.AddCommand(runsDeleteCmd)
	rootCmd.AddCommand(runsCmd)
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tZ\tTILES\tCLUSTERS\tALERTS\tERRORS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-\t-----\t--------\t------\t------\t-------")

	for _, r := range runs {
		rg := r.Request.Range
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d-%d/%d-%d\t%d\t%d\t%d\t%s\n",
			truncateID(r.ID),
			r.Request.Zoom,
			rg.MinX, rg.MaxX, rg.MinY, rg.MaxY,
			r.Summary.Clusters,
			r.Summary.Count,
			r.Summary.Errors,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
