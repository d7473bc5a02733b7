package raster

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkb"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/fault"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/model"
)

// Samples are the valid cells of one grid in row-major order.
type Samples struct {
	Points []model.Point
	Rows   int
	Cols   int
}

// Mask keeps the finite cells of g that are not the no-data value and places
// each at its world position. A grid without any valid cell fails with
// fault.ErrUnsupportedData.
func Mask(g *Grid) (*Samples, error) {
	if g == nil {
		return nil, eris.Wrap(fault.ErrInvalidArgument, "raster: nil grid")
	}
	if err := g.validate(); err != nil {
		return nil, err
	}

	s := &Samples{Rows: g.Rows, Cols: g.Cols}
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			v := g.At(row, col)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if g.NoData != nil && v == *g.NoData {
				continue
			}
			x, y := g.Transform.Apply(row, col)
			s.Points = append(s.Points, model.Point{Value: v, Row: row, Col: col, X: x, Y: y})
		}
	}
	if len(s.Points) == 0 {
		return nil, eris.Wrapf(fault.ErrUnsupportedData, "raster: no valid samples in %dx%d grid", g.Rows, g.Cols)
	}
	return s, nil
}

// Len returns the number of valid samples.
func (s *Samples) Len() int { return len(s.Points) }

// Values returns the sample values in point order.
func (s *Samples) Values() []float64 { return model.Values(s.Points) }

// Extent returns the bounding box of the sample world positions.
func (s *Samples) Extent() *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	if len(s.Points) == 0 {
		return b
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range s.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return b.Set(minX, minY, maxX, maxY)
}

// FootprintWKB encodes the extent as a little-endian WKB polygon.
func (s *Samples) FootprintWKB() ([]byte, error) {
	if len(s.Points) == 0 {
		return nil, nil
	}
	data, err := wkb.Marshal(s.Extent().Polygon(), wkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "raster: encode footprint")
	}
	return data, nil
}
