package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/batch"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/config"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/model"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/report"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compute Moran's I for every (resolution, year) raster of the plan",
	Long: "Expands raster.path_template over raster.resolutions and the year range, analyzes each raster " +
		"with a bounded pool of workers and prints a per-raster report. Missing rasters are skipped; " +
		"unreadable or degenerate ones are reported as failed without stopping the batch.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		applyAnalysisFlags(cmd, cfg)
		applyPlanFlags(cmd, cfg)

		run, err := runAnalyze(ctx, cfg, os.Stdout)
		if err != nil {
			return err
		}
		if run.Status == model.RunStatusCancelled {
			return eris.New("analyze: interrupted")
		}
		if run.Failed > 0 {
			return eris.Errorf("analyze: %d of %d rasters failed", run.Failed, len(run.Items))
		}
		return nil
	},
}

func init() {
	addAnalysisFlags(analyzeCmd)
	f := analyzeCmd.Flags()
	f.String("template", "", "raster path template with {resolution} and {year} (raster.path_template)")
	f.StringSlice("resolutions", nil, "resolutions to analyze, comma separated (raster.resolutions)")
	f.Int("year-start", 0, "first year, inclusive (raster.year_start)")
	f.Int("year-end", 0, "last year, inclusive (raster.year_end)")
	f.Int("concurrency", 0, "rasters analyzed at once (batch.max_concurrent_rasters)")
	f.Bool("save", false, "persist the run to the configured store (store.enabled)")
	rootCmd.AddCommand(analyzeCmd)
}

func applyPlanFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("template") {
		c.Raster.PathTemplate, _ = f.GetString("template")
	}
	if f.Changed("resolutions") {
		c.Raster.Resolutions, _ = f.GetStringSlice("resolutions")
	}
	if f.Changed("year-start") {
		c.Raster.YearStart, _ = f.GetInt("year-start")
	}
	if f.Changed("year-end") {
		c.Raster.YearEnd, _ = f.GetInt("year-end")
	}
	if f.Changed("concurrency") {
		c.Batch.MaxConcurrentRasters, _ = f.GetInt("concurrency")
	}
	if f.Changed("save") {
		c.Store.Enabled, _ = f.GetBool("save")
	}
}

// runAnalyze validates c, runs the batch, writes the report and, when the
// store is enabled, saves the run. Item failures are not errors here.
func runAnalyze(ctx context.Context, c *config.Config, stdout io.Writer) (*model.Run, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := c.ValidatePlan(); err != nil {
		return nil, err
	}
	format, err := report.ParseFormat(c.Report.Format)
	if err != nil {
		return nil, err
	}

	years, err := batch.YearRange(c.Raster.YearStart, c.Raster.YearEnd)
	if err != nil {
		return nil, err
	}
	plan := batch.Plan{
		Resolutions:  c.Raster.Resolutions,
		Years:        years,
		PathTemplate: c.Raster.PathTemplate,
	}

	runner, err := newRunner(c)
	if err != nil {
		return nil, err
	}

	var st store.Store
	if c.Store.Enabled {
		st, err = initStore(ctx, c.Store)
		if err != nil {
			return nil, err
		}
		defer st.Close() //nolint:errcheck
	}

	run, err := runner.Run(ctx, plan)
	if err != nil {
		return nil, eris.Wrap(err, "analyze")
	}

	w, closeFn, err := reportWriter(c.Report, stdout)
	if err != nil {
		return run, err
	}
	if err := report.Write(w, run, format); err != nil {
		_ = closeFn()
		return run, err
	}
	if err := closeFn(); err != nil {
		return run, eris.Wrap(err, "close report")
	}

	if st != nil {
		// Cancelled runs are saved too.
		if err := st.SaveRun(context.WithoutCancel(ctx), run); err != nil {
			return run, eris.Wrap(err, "save run")
		}
		zap.L().Info("run saved", zap.String("run_id", run.ID), zap.String("driver", c.Store.Driver))
		if c.Report.Output != "" {
			_, _ = fmt.Fprintf(stdout, "saved run %s\n", run.ID)
		}
	}
	return run, nil
}
