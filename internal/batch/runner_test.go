package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/fault"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/knn"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/model"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/raster"
)

// clustered is a 2x3 grid whose left and right halves differ.
const clustered = `ncols 3
nrows 2
xllcorner 0
yllcorner 0
cellsize 1
NODATA_value -1
10 10 20
10 20 20
`

const constant = `ncols 2
nrows 2
xllcorner 0
yllcorner 0
cellsize 1
5 5
5 5
`

func writeRaster(t *testing.T, dir, res string, year int, body string) {
	t.Helper()
	sub := filepath.Join(dir, res)
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, fmt.Sprintf("sm_%d.asc", year)), []byte(body), 0o644))
}

func newRunner() *Runner {
	return &Runner{
		Loader:      raster.NewFileLoader(raster.Options{}),
		K:           2,
		Concurrency: 2,
	}
}

func TestPlanTargets(t *testing.T) {
	p := Plan{
		Resolutions:  []string{"1km", "9km"},
		Years:        []int{2016, 2017},
		PathTemplate: "/data/{resolution}/sm_{year}.tif",
	}
	require.NoError(t, p.Validate())

	targets := p.Targets()
	require.Len(t, targets, 4)
	assert.Equal(t, Target{Year: 2016, Resolution: "1km", Path: "/data/1km/sm_2016.tif"}, targets[0])
	assert.Equal(t, Target{Year: 2017, Resolution: "9km", Path: "/data/9km/sm_2017.tif"}, targets[3])
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
	}{
		{"no years", Plan{Resolutions: []string{"1km"}, PathTemplate: "{year}"}},
		{"no resolutions", Plan{Years: []int{2015}, PathTemplate: "{year}"}},
		{"no template", Plan{Resolutions: []string{"1km"}, Years: []int{2015}}},
		{"years without placeholder", Plan{Resolutions: []string{"1km"}, Years: []int{2015, 2016}, PathTemplate: "/data/{resolution}.asc"}},
		{"resolutions without placeholder", Plan{Resolutions: []string{"1km", "9km"}, Years: []int{2015}, PathTemplate: "/data/{year}.asc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			require.Error(t, err)
			assert.True(t, eris.Is(err, fault.ErrInvalidArgument))
		})
	}
}

func TestYearRange(t *testing.T) {
	years, err := YearRange(2015, 2018)
	require.NoError(t, err)
	assert.Equal(t, []int{2015, 2016, 2017, 2018}, years)

	years, err = YearRange(2020, 2020)
	require.NoError(t, err)
	assert.Equal(t, []int{2020}, years)

	_, err = YearRange(2020, 2019)
	assert.True(t, eris.Is(err, fault.ErrInvalidArgument))
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	writeRaster(t, dir, "1km", 2018, clustered)

	a, err := newRunner().Analyze(context.Background(), filepath.Join(dir, "1km", "sm_2018.asc"))
	require.NoError(t, err)
	assert.Equal(t, 6, a.Statistic.N)
	assert.Equal(t, 12, a.Statistic.Edges)
	assert.Greater(t, a.Statistic.I, 0.0)
	assert.NotEmpty(t, a.Footprint)
}

func TestRun_SkipsMissingAndFailsCorrupt(t *testing.T) {
	dir := t.TempDir()
	writeRaster(t, dir, "1km", 2015, clustered)
	// 2016 is absent.
	writeRaster(t, dir, "1km", 2017, "ncols 2\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\nabc def\n")
	writeRaster(t, dir, "1km", 2018, constant)

	plan := Plan{
		Resolutions:  []string{"1km"},
		Years:        []int{2015, 2016, 2017, 2018},
		PathTemplate: filepath.Join(dir, "{resolution}", "sm_{year}.asc"),
	}

	run, err := newRunner().Run(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, run.Items, 4)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 2, run.K)
	assert.Equal(t, string(knn.StrategyExhaustive), run.Strategy)

	ok := run.Items[0]
	assert.Equal(t, model.ItemSuccess, ok.Status)
	require.NotNil(t, ok.Statistic)
	assert.Greater(t, ok.Statistic.I, 0.0)

	missing := run.Items[1]
	assert.Equal(t, 2016, missing.Year)
	assert.Equal(t, model.ItemSkipped, missing.Status)
	assert.Equal(t, string(fault.KindNotFound), missing.ErrorKind)
	assert.Nil(t, missing.Statistic)

	corrupt := run.Items[2]
	assert.Equal(t, model.ItemFailed, corrupt.Status)
	assert.Equal(t, string(fault.KindFormat), corrupt.ErrorKind)
	assert.Contains(t, corrupt.Reason, "not a number")

	flat := run.Items[3]
	assert.Equal(t, model.ItemFailed, flat.Status)
	assert.Equal(t, string(fault.KindDegenerateInput), flat.ErrorKind)
	assert.Contains(t, flat.Reason, "zero variance")

	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 1, run.Skipped)
	assert.Equal(t, 2, run.Failed)
	assert.False(t, run.FinishedAt.Before(run.CreatedAt))
}

func TestRun_InvalidPlan(t *testing.T) {
	_, err := newRunner().Run(context.Background(), Plan{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, fault.ErrInvalidArgument))
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := Plan{Resolutions: []string{"1km"}, Years: []int{2015, 2016}, PathTemplate: "/nowhere/{resolution}/{year}.asc"}
	run, err := newRunner().Run(ctx, plan)
	require.NoError(t, err)

	assert.Equal(t, model.RunStatusCancelled, run.Status)
	assert.Equal(t, 2, run.Skipped)
	for _, it := range run.Items {
		assert.Equal(t, string(fault.KindCancelled), it.ErrorKind)
	}
}

// countingLoader serves grids from memory and records concurrency.
type countingLoader struct {
	grids    map[string]*raster.Grid
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (l *countingLoader) Load(_ context.Context, path string) (*raster.Grid, error) {
	n := l.inFlight.Add(1)
	defer l.inFlight.Add(-1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			break
		}
	}
	g, ok := l.grids[path]
	if !ok {
		return nil, eris.Wrapf(fault.ErrNotFound, "memory: %s", path)
	}
	return g, nil
}

func TestRun_RespectsConcurrencyLimit(t *testing.T) {
	loader := &countingLoader{grids: make(map[string]*raster.Grid)}
	var years []int
	for y := 2000; y < 2020; y++ {
		years = append(years, y)
		loader.grids[fmt.Sprintf("mem/%d", y)] = &raster.Grid{
			Rows: 1, Cols: 4, Data: []float64{1, 2, 3, float64(y)}, Transform: raster.Identity,
		}
	}
	r := &Runner{Loader: loader, K: 1, Concurrency: 3, Knn: knn.Options{Strategy: knn.StrategyKDTree}}
	run, err := r.Run(context.Background(), Plan{Resolutions: []string{"x"}, Years: years, PathTemplate: "mem/{year}"})
	require.NoError(t, err)

	assert.Equal(t, 20, run.Succeeded)
	assert.LessOrEqual(t, loader.peak.Load(), int32(3))
	assert.Equal(t, "kdtree", run.Strategy)
	for i, it := range run.Items {
		assert.Equal(t, years[i], it.Year, "items keep plan order")
	}
}

func TestResolvePath(t *testing.T) {
	got := ResolvePath("/d/{resolution}/{year}/{year}.tif", "36km", 2019)
	assert.Equal(t, "/d/36km/2019/2019.tif", got)
	assert.False(t, strings.Contains(got, "{"))
}

func TestRun_OversizedHeaderFailsOnlyThatItem(t *testing.T) {
	dir := t.TempDir()
	writeRaster(t, dir, "1km", 2015, "ncols 4000000000\nnrows 4000000000\nxllcorner 0\nyllcorner 0\ncellsize 1\n1 2 3\n")
	writeRaster(t, dir, "1km", 2016, clustered)

	plan := Plan{
		Resolutions:  []string{"1km"},
		Years:        []int{2015, 2016},
		PathTemplate: filepath.Join(dir, "{resolution}", "sm_{year}.asc"),
	}

	run, err := newRunner().Run(context.Background(), plan)
	require.NoError(t, err)
	require.Len(t, run.Items, 2)

	assert.Equal(t, model.ItemFailed, run.Items[0].Status)
	assert.Equal(t, string(fault.KindFormat), run.Items[0].ErrorKind)
	assert.Equal(t, model.ItemSuccess, run.Items[1].Status)
	assert.Equal(t, 1, run.Succeeded)
	assert.Equal(t, 1, run.Failed)
}
