package raster

import (
	"bufio"
	"errors"
	"image"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/image/tiff"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/fault"
)

func readTIFFFile(path string) (*Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	g, err := ReadTIFF(f)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: %s", path)
	}

	t, wf, err := findWorldFile(path)
	if err != nil {
		return nil, err
	}
	if wf == "" {
		zap.L().Warn("raster: no world file, using pixel coordinates", zap.String("path", path))
		t = Identity
	}
	g.Transform = t
	return g, nil
}

// ReadTIFF decodes a single-band 8 or 16 bit grayscale TIFF. The transform is
// left as the identity; georeferencing comes from a world file.
func ReadTIFF(r io.Reader) (*Grid, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		var ue tiff.UnsupportedError
		if errors.As(err, &ue) {
			return nil, eris.Wrapf(fault.ErrUnsupportedData, "tiff: %v", err)
		}
		return nil, eris.Wrapf(fault.ErrFormat, "tiff: decode: %v", err)
	}

	b := img.Bounds()
	g := &Grid{
		Rows:      b.Dy(),
		Cols:      b.Dx(),
		Data:      make([]float64, 0, b.Dx()*b.Dy()),
		Transform: Identity,
	}

	switch im := img.(type) {
	case *image.Gray:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				g.Data = append(g.Data, float64(im.GrayAt(x, y).Y))
			}
		}
	case *image.Gray16:
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				g.Data = append(g.Data, float64(im.Gray16At(x, y).Y))
			}
		}
	default:
		return nil, eris.Wrapf(fault.ErrUnsupportedData, "tiff: %T is not a single numeric band", img)
	}
	return g, nil
}

// worldFileExts lists sidecar extensions tried for a raster, in order.
var worldFileExts = []string{".tfw", ".tifw", ".wld"}

// findWorldFile looks for an ESRI world file next to path. It returns an
// empty name when none exists.
func findWorldFile(path string) (Affine, string, error) {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range worldFileExts {
		wf := base + ext
		f, err := os.Open(wf)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return Affine{}, "", eris.Wrapf(err, "raster: open world file %s", wf)
		}
		t, err := ReadWorldFile(f)
		_ = f.Close()
		if err != nil {
			return Affine{}, "", eris.Wrapf(err, "raster: %s", wf)
		}
		return t, wf, nil
	}
	return Affine{}, "", nil
}

// ReadWorldFile parses the six lines of an ESRI world file (A, D, B, E, C, F).
// World files anchor C and F at the center of the upper-left pixel; the
// returned transform is shifted to the pixel corner.
func ReadWorldFile(r io.Reader) (Affine, error) {
	sc := bufio.NewScanner(r)
	var v []float64
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		f, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return Affine{}, eris.Wrapf(fault.ErrFormat, "world file: line %d: %q is not a number", len(v)+1, line)
		}
		v = append(v, f)
	}
	if err := sc.Err(); err != nil {
		return Affine{}, eris.Wrap(err, "world file: scan")
	}
	if len(v) != 6 {
		return Affine{}, eris.Wrapf(fault.ErrFormat, "world file: got %d values, want 6", len(v))
	}

	a, d, b, e, c, f := v[0], v[1], v[2], v[3], v[4], v[5]
	return Affine{
		A: a, B: b, C: c - a/2 - b/2,
		D: d, E: e, F: f - d/2 - e/2,
	}, nil
}
