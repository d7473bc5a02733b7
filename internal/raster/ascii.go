package raster

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/fault"
)

// Header limits. Larger grids are rejected before any sample is read.
const (
	maxASCIIDim   = 1 << 20
	maxASCIICells = 1 << 28
	// Samples beyond this are appended as they are read.
	asciiPrealloc = 1 << 16
)

func readASCIIFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	g, err := ReadASCII(f)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: %s", path)
	}
	return g, nil
}

// ReadASCII decodes an ESRI ASCII grid. The header is a run of "key value"
// pairs (ncols, nrows, xllcorner|xllcenter, yllcorner|yllcenter, cellsize or
// dx/dy, optional NODATA_value) followed by nrows*ncols samples, top row first.
func ReadASCII(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)

	header := make(map[string]float64)
	var first string
	for sc.Scan() {
		tok := sc.Text()
		if _, err := strconv.ParseFloat(tok, 64); err == nil {
			first = tok
			break
		}
		key := strings.ToLower(tok)
		if !sc.Scan() {
			return nil, eris.Wrapf(fault.ErrFormat, "ascii grid: header key %q has no value", tok)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, eris.Wrapf(fault.ErrFormat, "ascii grid: header %s: %q is not a number", key, sc.Text())
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "ascii grid: scan header")
	}

	cols, err := headerInt(header, "ncols")
	if err != nil {
		return nil, err
	}
	rows, err := headerInt(header, "nrows")
	if err != nil {
		return nil, err
	}
	if rows*cols > maxASCIICells {
		return nil, eris.Wrapf(fault.ErrFormat, "ascii grid: %d x %d exceeds %d cells", rows, cols, maxASCIICells)
	}
	t, err := asciiTransform(header, rows)
	if err != nil {
		return nil, err
	}

	g := &Grid{Rows: rows, Cols: cols, Transform: t, Data: make([]float64, 0, min(rows*cols, asciiPrealloc))}
	if nd, ok := header["nodata_value"]; ok {
		g.NoData = &nd
	}

	if first == "" {
		return nil, eris.Wrap(fault.ErrFormat, "ascii grid: no samples")
	}
	tok := first
	for {
		if len(g.Data) == rows*cols {
			return nil, eris.Wrapf(fault.ErrFormat, "ascii grid: more than %d samples", rows*cols)
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, eris.Wrapf(fault.ErrFormat, "ascii grid: sample %d: %q is not a number", len(g.Data), tok)
		}
		g.Data = append(g.Data, v)
		if !sc.Scan() {
			break
		}
		tok = sc.Text()
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "ascii grid: scan samples")
	}
	if len(g.Data) != rows*cols {
		return nil, eris.Wrapf(fault.ErrFormat, "ascii grid: got %d samples, want %d", len(g.Data), rows*cols)
	}
	return g, nil
}

func headerInt(h map[string]float64, key string) (int, error) {
	v, ok := h[key]
	if !ok {
		return 0, eris.Wrapf(fault.ErrFormat, "ascii grid: missing %s", key)
	}
	if v <= 0 || v != math.Trunc(v) {
		return 0, eris.Wrapf(fault.ErrFormat, "ascii grid: %s must be a positive integer, got %v", key, v)
	}
	if v > maxASCIIDim {
		return 0, eris.Wrapf(fault.ErrFormat, "ascii grid: %s %v exceeds %d", key, v, maxASCIIDim)
	}
	return int(v), nil
}

// asciiTransform builds the affine transform to the upper-left corner of each
// cell from the lower-left anchor the header gives.
func asciiTransform(h map[string]float64, rows int) (Affine, error) {
	dx, okx := h["dx"]
	dy, oky := h["dy"]
	if cs, ok := h["cellsize"]; ok {
		dx, dy, okx, oky = cs, cs, true, true
	}
	if !okx || !oky {
		return Affine{}, eris.Wrap(fault.ErrFormat, "ascii grid: missing cellsize")
	}
	if dx <= 0 || dy <= 0 {
		return Affine{}, eris.Wrapf(fault.ErrFormat, "ascii grid: cell size must be positive, got %v x %v", dx, dy)
	}

	var xll, yll float64
	switch {
	case hasKey(h, "xllcorner"):
		xll = h["xllcorner"]
	case hasKey(h, "xllcenter"):
		xll = h["xllcenter"] - dx/2
	default:
		return Affine{}, eris.Wrap(fault.ErrFormat, "ascii grid: missing xllcorner")
	}
	switch {
	case hasKey(h, "yllcorner"):
		yll = h["yllcorner"]
	case hasKey(h, "yllcenter"):
		yll = h["yllcenter"] - dy/2
	default:
		return Affine{}, eris.Wrap(fault.ErrFormat, "ascii grid: missing yllcorner")
	}

	return Affine{A: dx, C: xll, E: -dy, F: yll + float64(rows)*dy}, nil
}

func hasKey(h map[string]float64, key string) bool {
	_, ok := h[key]
	return ok
}
