package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom/encoding/wkb"
	"gopkg.in/yaml.v3"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/config"
)

var statCmd = &cobra.Command{
	Use:   "stat <raster>",
	Short: "Compute Moran's I for a single raster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		applyAnalysisFlags(cmd, cfg)
		return statToReport(cmd.Context(), cfg, args[0], os.Stdout)
	},
}

func init() {
	addAnalysisFlags(statCmd)
	rootCmd.AddCommand(statCmd)
}

// statResult is the single-raster report.
type statResult struct {
	Path     string     `json:"path" yaml:"path"`
	K        int        `json:"k" yaml:"k"`
	Strategy string     `json:"strategy" yaml:"strategy"`
	MoranI   float64    `json:"moran_i" yaml:"moran_i"`
	N        int        `json:"n" yaml:"n"`
	Edges    int        `json:"edges" yaml:"edges"`
	Mean     float64    `json:"mean" yaml:"mean"`
	Variance float64    `json:"variance" yaml:"variance"`
	Extent   [4]float64 `json:"extent" yaml:"extent,flow"`
}

// statToReport analyzes one raster and writes the result to the configured
// output, or stdout when none is set.
func statToReport(ctx context.Context, c *config.Config, path string, stdout io.Writer) error {
	res, err := runStat(ctx, c, path)
	if err != nil {
		return err
	}

	out, closeFn, err := reportWriter(c.Report, stdout)
	if err != nil {
		return err
	}
	if err := writeStat(out, res, c.Report.Format); err != nil {
		_ = closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return eris.Wrap(err, "stat: close report")
	}
	return nil
}

func runStat(ctx context.Context, c *config.Config, path string) (*statResult, error) {
	if c.Report.Format == "xlsx" {
		return nil, eris.New("stat: xlsx output is only available for batch runs (want table, json or yaml)")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	runner, err := newRunner(c)
	if err != nil {
		return nil, err
	}

	a, err := runner.Analyze(ctx, path)
	if err != nil {
		return nil, err
	}

	res := &statResult{
		Path:     path,
		K:        a.K,
		Strategy: string(runner.Knn.Strategy),
		MoranI:   a.Statistic.I,
		N:        a.Statistic.N,
		Edges:    a.Statistic.Edges,
		Mean:     a.Statistic.Mean,
		Variance: a.Statistic.Variance,
	}

	footprint, err := wkb.Unmarshal(a.Footprint)
	if err != nil {
		return nil, eris.Wrap(err, "stat: decode footprint")
	}
	b := footprint.Bounds()
	res.Extent = [4]float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
	return res, nil
}

func writeStat(out io.Writer, res *statResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(res), "stat: encode json")
	case "yaml":
		return eris.Wrap(yaml.NewEncoder(out).Encode(res), "stat: encode yaml")
	case "table", "":
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintf(w, "Raster:\t%s\n", res.Path)
		_, _ = fmt.Fprintf(w, "Moran's I:\t%.6f\n", res.MoranI)
		_, _ = fmt.Fprintf(w, "Points:\t%d\n", res.N)
		_, _ = fmt.Fprintf(w, "Edges:\t%d (k=%d, %s)\n", res.Edges, res.K, res.Strategy)
		_, _ = fmt.Fprintf(w, "Mean:\t%.6g\n", res.Mean)
		_, _ = fmt.Fprintf(w, "Variance:\t%.6g\n", res.Variance)
		_, _ = fmt.Fprintf(w, "Extent:\t%g %g %g %g\n", res.Extent[0], res.Extent[1], res.Extent[2], res.Extent[3])
		return eris.Wrap(w.Flush(), "stat: flush")
	default:
		return eris.Errorf("stat: unsupported format %q (want table, json or yaml)", format)
	}
}
