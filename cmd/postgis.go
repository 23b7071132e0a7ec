package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/glad-clusters/internal/pipeline"
	"github.com/sells-group/glad-clusters/internal/store"
)

var (
	exportRunID string
	exportFile  string
	exportName  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a result to PostGIS",
	Long:  "Loads a recorded run or a result file and upserts its clusters and tile errors into PostGIS as geometries.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export"); err != nil {
			return err
		}
		if (exportRunID == "") == (exportFile == "") {
			return eris.New("exactly one of --run or --file is required")
		}

		var (
			res  *pipeline.Result
			name = exportName
		)
		if exportRunID != "" {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			run, err := st.GetRun(ctx, exportRunID)
			if err != nil {
				return eris.Wrap(err, "export")
			}
			if res, err = st.LoadResult(ctx, run.ID); err != nil {
				return eris.Wrap(err, "export")
			}
			if name == "" {
				name = run.Name
			}
		} else {
			var err error
			if res, err = loadResultFile(exportFile); err != nil {
				return err
			}
			if name == "" {
				name = res.Name("")
			}
		}

		pg, err := initPostGIS(ctx)
		if err != nil {
			return err
		}
		defer pg.Close() //nolint:errcheck

		stats, err := pg.Export(ctx, name, res)
		if err != nil {
			return eris.Wrap(err, "postgis export")
		}
		fmt.Fprintf(os.Stdout, "exported %d clusters and %d tile errors as run %s\n", stats.Clusters, stats.Errors, store.RunKey(name))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRunID, "run", "", "recorded run id")
	exportCmd.Flags().StringVar(&exportFile, "file", "", "snapshot or clusters CSV")
	exportCmd.Flags().StringVar(&exportName, "name", "", "run name in PostGIS (default from the run)")
	rootCmd.AddCommand(exportCmd)
}
