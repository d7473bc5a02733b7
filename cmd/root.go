package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sarmoran",
	Short: "Spatial autocorrelation of soil-moisture rasters",
	Long: "Computes global Moran's I over k-nearest-neighbor graphs for C-band SAR soil-moisture rasters, " +
		"one raster per (resolution, year), and keeps a history of batch runs.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyLogFlags(cmd, &c.Log)
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

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json or console)")
}

// applyLogFlags lets the persistent flags override the configured log settings.
func applyLogFlags(cmd *cobra.Command, lc *config.LogConfig) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		lc.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		lc.Format, _ = flags.GetString("log-format")
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
