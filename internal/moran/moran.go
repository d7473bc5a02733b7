// Package moran evaluates global Moran's I over a neighbor graph.
//
// The statistic uses unit weights per directed edge and normalises by the
// total edge count W:
//
//	I = (n / W) * Σ_(i,j) d_i d_j / Σ_i d_i²,  d_i = x_i - mean(x)
//
// This is not the row-standardised textbook form and results outside
// [-1, 1] are returned as-is.
package moran

import (
	"math"

	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/fault"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/model"
)

// Adjacency is a directed neighbor graph over dense indices 0..Len()-1.
type Adjacency interface {
	Len() int
	Neighbors(i int) []int
}

// ComputeMoransI returns only the statistic of Compute.
func ComputeMoransI(values []float64, g Adjacency) (float64, error) {
	s, err := Compute(values, g)
	if err != nil {
		return 0, err
	}
	return s.I, nil
}

// Compute evaluates Moran's I for values indexed like the points g was built
// from. Neither input is modified.
func Compute(values []float64, g Adjacency) (model.Statistic, error) {
	if g == nil {
		return model.Statistic{}, eris.Wrap(fault.ErrInvalidArgument, "moran: nil graph")
	}
	n := len(values)
	if n != g.Len() {
		return model.Statistic{}, eris.Wrapf(fault.ErrInvalidArgument,
			"moran: %d values for a graph over %d points", n, g.Len())
	}

	identical := true
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return model.Statistic{}, eris.Wrapf(fault.ErrInvalidArgument, "moran: value %d is not finite", i)
		}
		if v != values[0] {
			identical = false
		}
	}

	var edges int
	for i := 0; i < n; i++ {
		for _, j := range g.Neighbors(i) {
			if j < 0 || j >= n {
				return model.Statistic{}, eris.Wrapf(fault.ErrInvalidArgument,
					"moran: point %d lists neighbor %d outside [0, %d)", i, j, n)
			}
		}
		edges += len(g.Neighbors(i))
	}
	if edges == 0 {
		return model.Statistic{}, eris.Wrap(fault.ErrDegenerateInput, "moran: no neighbor edges")
	}
	if identical {
		return model.Statistic{}, eris.Wrap(fault.ErrDegenerateInput, "moran: zero variance")
	}

	mean := stat.Mean(values, nil)
	dev := make([]float64, n)
	copy(dev, values)
	floats.AddConst(-mean, dev)

	denominator := floats.Dot(dev, dev)
	if denominator == 0 {
		return model.Statistic{}, eris.Wrap(fault.ErrDegenerateInput, "moran: zero variance")
	}

	var numerator float64
	for i := 0; i < n; i++ {
		di := dev[i]
		for _, j := range g.Neighbors(i) {
			numerator += di * dev[j]
		}
	}

	fn, fw := float64(n), float64(edges)
	return model.Statistic{
		I:        (fn / fw) * (numerator / denominator),
		N:        n,
		Edges:    edges,
		Mean:     mean,
		Variance: denominator / fn,
	}, nil
}
