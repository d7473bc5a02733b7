// Package raster reads single-band numeric rasters and turns their valid
// cells into sample points with world coordinates.
package raster

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/fault"
)

// Affine maps a grid position to world coordinates:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
type Affine struct {
	A, B, C, D, E, F float64
}

// Identity is the transform that maps (row, col) to (col, row).
var Identity = Affine{A: 1, E: 1}

// Apply returns the world position of the cell at (row, col).
func (t Affine) Apply(row, col int) (x, y float64) {
	r, c := float64(row), float64(col)
	return t.A*c + t.B*r + t.C, t.D*c + t.E*r + t.F
}

// Grid is one decoded band in row-major order.
type Grid struct {
	Rows      int
	Cols      int
	Data      []float64
	Transform Affine
	NoData    *float64
}

// At returns the sample at (row, col).
func (g *Grid) At(row, col int) float64 { return g.Data[row*g.Cols+col] }

func (g *Grid) validate() error {
	if g.Rows <= 0 || g.Cols <= 0 {
		return eris.Wrapf(fault.ErrFormat, "raster: invalid dimensions %dx%d", g.Rows, g.Cols)
	}
	if len(g.Data) != g.Rows*g.Cols {
		return eris.Wrapf(fault.ErrFormat, "raster: %d samples for a %dx%d grid", len(g.Data), g.Rows, g.Cols)
	}
	return nil
}

// Loader loads one raster file.
type Loader interface {
	Load(ctx context.Context, path string) (*Grid, error)
}

// Options configures a FileLoader.
type Options struct {
	// NoData, when set, replaces whatever sentinel the file declares.
	NoData *float64
}

// reader decodes one file format.
type reader func(path string) (*Grid, error)

var readers = map[string]reader{
	".asc":  readASCIIFile,
	".tif":  readTIFFFile,
	".tiff": readTIFFFile,
}

// FileLoader loads rasters from the local filesystem, choosing a reader by
// file extension.
type FileLoader struct {
	opts Options
}

// NewFileLoader returns a FileLoader with the given options.
func NewFileLoader(opts Options) *FileLoader {
	return &FileLoader{opts: opts}
}

// Load reads the raster at path. A missing file fails with fault.ErrNotFound;
// undecodable content fails with fault.ErrFormat; content without a usable
// numeric band fails with fault.ErrUnsupportedData.
func (l *FileLoader) Load(ctx context.Context, path string) (*Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: load")
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, eris.Wrapf(fault.ErrNotFound, "raster: %s", path)
		}
		return nil, eris.Wrapf(err, "raster: stat %s", path)
	}
	if info.IsDir() {
		return nil, eris.Wrapf(fault.ErrUnsupportedData, "raster: %s is a directory", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	read, ok := readers[ext]
	if !ok {
		return nil, eris.Wrapf(fault.ErrUnsupportedData, "raster: unsupported file extension %q", ext)
	}

	g, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := g.validate(); err != nil {
		return nil, eris.Wrapf(err, "raster: %s", path)
	}
	if l.opts.NoData != nil {
		v := *l.opts.NoData
		g.NoData = &v
	}

	zap.L().Debug("raster: loaded",
		zap.String("path", path),
		zap.Int("rows", g.Rows),
		zap.Int("cols", g.Cols),
	)
	return g, nil
}

// Load reads the raster at path with default options.
func Load(ctx context.Context, path string) (*Grid, error) {
	return NewFileLoader(Options{}).Load(ctx, path)
}
