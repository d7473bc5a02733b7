// Package batch runs the Moran's I analysis over a plan of rasters, one per
// (resolution, year) pair, and collects a per-item report.
package batch

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/fault"
)

// Placeholders substituted in a path template.
const (
	PlaceholderYear       = "{year}"
	PlaceholderResolution = "{resolution}"
)

// Plan enumerates the rasters of a batch.
type Plan struct {
	Resolutions  []string
	Years        []int
	PathTemplate string
}

// Target is one raster of a plan.
type Target struct {
	Year       int
	Resolution string
	Path       string
}

// Validate checks that the plan names at least one raster and that its
// template distinguishes years.
func (p Plan) Validate() error {
	if len(p.Years) == 0 {
		return eris.Wrap(fault.ErrInvalidArgument, "batch: plan has no years")
	}
	if len(p.Resolutions) == 0 {
		return eris.Wrap(fault.ErrInvalidArgument, "batch: plan has no resolutions")
	}
	if p.PathTemplate == "" {
		return eris.Wrap(fault.ErrInvalidArgument, "batch: empty path template")
	}
	if len(p.Years) > 1 && !strings.Contains(p.PathTemplate, PlaceholderYear) {
		return eris.Wrapf(fault.ErrInvalidArgument, "batch: path template %q has no %s placeholder", p.PathTemplate, PlaceholderYear)
	}
	if len(p.Resolutions) > 1 && !strings.Contains(p.PathTemplate, PlaceholderResolution) {
		return eris.Wrapf(fault.ErrInvalidArgument, "batch: path template %q has no %s placeholder", p.PathTemplate, PlaceholderResolution)
	}
	return nil
}

// Targets expands the plan, resolution-major, years ascending as given.
func (p Plan) Targets() []Target {
	out := make([]Target, 0, len(p.Resolutions)*len(p.Years))
	for _, res := range p.Resolutions {
		for _, year := range p.Years {
			out = append(out, Target{Year: year, Resolution: res, Path: ResolvePath(p.PathTemplate, res, year)})
		}
	}
	return out
}

// ResolvePath substitutes resolution and year into template.
func ResolvePath(template, resolution string, year int) string {
	return strings.NewReplacer(
		PlaceholderYear, strconv.Itoa(year),
		PlaceholderResolution, resolution,
	).Replace(template)
}

// YearRange returns start..end inclusive.
func YearRange(start, end int) ([]int, error) {
	if end < start {
		return nil, eris.Wrapf(fault.ErrInvalidArgument, "batch: year range %d-%d is inverted", start, end)
	}
	years := make([]int, 0, end-start+1)
	for y := start; y <= end; y++ {
		years = append(years, y)
	}
	return years, nil
}
