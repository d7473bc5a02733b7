package knn

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// kdPoint is a world position that remembers its index in the input.
type kdPoint struct {
	x   [2]float64
	idx int
}

func (p kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kdPoint)
	return p.x[d] - q.x[d]
}

func (p kdPoint) Dims() int { return 2 }

// Distance returns the squared Euclidean distance, computed exactly as the
// exhaustive scan does so both strategies rank candidates identically.
func (p kdPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(kdPoint)
	dx := p.x[0] - q.x[0]
	dy := p.x[1] - q.x[1]
	return dx*dx + dy*dy
}

type kdPoints []kdPoint

func (p kdPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p kdPoints) Len() int                              { return len(p) }
func (p kdPoints) Pivot(d kdtree.Dim) int                { return kdPlane{dim: d, kdPoints: p}.Pivot() }
func (p kdPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// kdPlane sorts kdPoints along one dimension for tree construction.
type kdPlane struct {
	dim kdtree.Dim
	kdPoints
}

func (p kdPlane) Less(i, j int) bool { return p.kdPoints[i].x[p.dim] < p.kdPoints[j].x[p.dim] }
func (p kdPlane) Swap(i, j int)      { p.kdPoints[i], p.kdPoints[j] = p.kdPoints[j], p.kdPoints[i] }
func (p kdPlane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	return kdPlane{dim: p.dim, kdPoints: p.kdPoints[start:end]}
}

// kdSearch answers neighbor queries from a kd-tree in two passes. The first
// pass finds the distance of the (k+1)-th closest point, self included. The
// second collects every point within that distance, so all candidates tied at
// the boundary are seen and the shared (distance, index) ranking decides.
type kdSearch struct {
	tree  *kdtree.Tree
	query []kdPoint
	k     int
}

func newKDSearch(xs, ys []float64, k int) *kdSearch {
	query := make([]kdPoint, len(xs))
	for i := range xs {
		query[i] = kdPoint{x: [2]float64{xs[i], ys[i]}, idx: i}
	}
	// kdtree.New reorders its input, so the tree gets its own copy.
	pts := make(kdPoints, len(query))
	copy(pts, query)
	return &kdSearch{tree: kdtree.New(pts, false), query: query, k: k}
}

func (s *kdSearch) nearest(i int, sel *selector) {
	sel.reset()
	q := s.query[i]

	nk := kdtree.NewNKeeper(s.k + 1)
	s.tree.NearestSet(nk, q)
	radius := 0.0
	for _, c := range nk.Heap {
		if c.Comparable == nil {
			radius = math.Inf(1)
			break
		}
		radius = max(radius, c.Dist)
	}

	dk := kdtree.NewDistKeeper(radius)
	s.tree.NearestSet(dk, q)
	for _, c := range dk.Heap {
		if c.Comparable == nil {
			continue
		}
		p := c.Comparable.(kdPoint)
		if p.idx == i {
			continue
		}
		sel.offer(c.Dist, p.idx)
	}
}
