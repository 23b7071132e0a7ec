package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/glad-clusters/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "glad-clusters",
	Short: "Cluster GLAD forest-change alerts over map tiles",
	Long:  "Decodes GLAD alert tiles, groups alert pixels with mean-shift, and reports each cluster's centroid, size, hull area and date range.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
