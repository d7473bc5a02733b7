// Package knn builds fixed out-degree k-nearest-neighbor graphs over raster
// sample points in world coordinates.
//
// Candidates are ranked by (squared Euclidean distance, index), so equidistant
// points resolve to the lowest index and repeated builds over the same input
// return identical neighbor lists. A point is never its own neighbor, while
// coincident points at distance zero are.
package knn

// DefaultK is the neighbor count used when the caller does not choose one.
const DefaultK = 4

// Graph is a directed k-nearest-neighbor graph stored as a dense adjacency
// table: row i holds the K() neighbors of point i, nearest first.
type Graph struct {
	n   int
	k   int
	adj []int
}

// Len returns the number of points the graph was built from.
func (g *Graph) Len() int { return g.n }

// K returns the out-degree of every point, min(k, n-1).
func (g *Graph) K() int { return g.k }

// Neighbors returns the neighbor indices of point i, nearest first. The
// returned slice aliases the graph and must not be modified.
func (g *Graph) Neighbors(i int) []int {
	lo, hi := i*g.k, (i+1)*g.k
	return g.adj[lo:hi:hi]
}

// Edges returns the total number of directed edges.
func (g *Graph) Edges() int { return len(g.adj) }
