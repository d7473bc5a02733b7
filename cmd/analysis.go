package main

import (
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/batch"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/config"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/knn"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/raster"
)

// addAnalysisFlags registers the flags shared by analyze and stat. Each one
// overrides the matching config key when set.
func addAnalysisFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("k", 0, "neighbors per point (analysis.k)")
	f.String("strategy", "", "neighbor search: exhaustive or kdtree (analysis.strategy)")
	f.Int("workers", 0, "goroutines per raster for the neighbor search, 0 = GOMAXPROCS (analysis.workers)")
	f.Float64("nodata", 0, "override the raster nodata sentinel (raster.nodata)")
	f.String("format", "", "report format: table, json, yaml or xlsx (report.format)")
	f.StringP("output", "o", "", "write the report to a file instead of stdout (report.output)")
}

func applyAnalysisFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	if f.Changed("k") {
		c.Analysis.K, _ = f.GetInt("k")
	}
	if f.Changed("strategy") {
		c.Analysis.Strategy, _ = f.GetString("strategy")
	}
	if f.Changed("workers") {
		c.Analysis.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("nodata") {
		v, _ := f.GetFloat64("nodata")
		c.Raster.NoData = &v
	}
	if f.Changed("format") {
		c.Report.Format, _ = f.GetString("format")
	}
	if f.Changed("output") {
		c.Report.Output, _ = f.GetString("output")
	}
}

// newRunner builds a batch runner from the analysis settings of c.
func newRunner(c *config.Config) (*batch.Runner, error) {
	strategy, err := knn.ParseStrategy(c.Analysis.Strategy)
	if err != nil {
		return nil, err
	}
	return &batch.Runner{
		Loader: raster.NewFileLoader(raster.Options{NoData: c.Raster.NoData}),
		K:      c.Analysis.K,
		Knn: knn.Options{
			Strategy:  strategy,
			Workers:   c.Analysis.Workers,
			BlockSize: c.Analysis.BlockSize,
		},
		Concurrency: c.Batch.MaxConcurrentRasters,
	}, nil
}

// reportWriter returns where the report goes: the configured file, or stdout.
func reportWriter(rc config.ReportConfig, stdout io.Writer) (io.Writer, func() error, error) {
	if rc.Output == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(rc.Output)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create report %s", rc.Output)
	}
	return f, f.Close, nil
}
