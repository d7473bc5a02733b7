package knn

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/fault"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/model"
)

func linePoints(xs ...float64) []model.Point {
	pts := make([]model.Point, len(xs))
	for i, x := range xs {
		pts[i] = model.Point{Col: i, X: x}
	}
	return pts
}

func randomPoints(n int, seed int64, grid bool) []model.Point {
	rng := rand.New(rand.NewSource(seed))
	pts := make([]model.Point, n)
	for i := range pts {
		if grid {
			// Integer coordinates on a small lattice produce many ties.
			pts[i] = model.Point{X: float64(rng.Intn(12)), Y: float64(rng.Intn(12))}
		} else {
			pts[i] = model.Point{X: rng.Float64() * 1000, Y: rng.Float64() * 1000}
		}
	}
	return pts
}

func dist2(a, b model.Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx*dx + dy*dy
}

func allStrategies() []Strategy {
	return []Strategy{StrategyExhaustive, StrategyKDTree}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		points []model.Point
		k      int
	}{
		{"empty points", nil, 4},
		{"zero k", linePoints(0, 1, 2), 0},
		{"negative k", linePoints(0, 1, 2), -3},
		{"nan coordinate", []model.Point{{X: 0}, {X: math.NaN()}}, 1},
		{"inf coordinate", []model.Point{{X: 0}, {Y: math.Inf(-1)}}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := BuildNeighborGraph(tt.points, tt.k)
			require.Error(t, err)
			assert.Nil(t, g)
			assert.True(t, eris.Is(err, fault.ErrInvalidArgument))
		})
	}
}

func TestBuild_UnknownStrategy(t *testing.T) {
	_, err := Build(context.Background(), linePoints(0, 1, 2), 1, Options{Strategy: "ball-tree"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, fault.ErrInvalidArgument))
}

func TestBuild_SinglePoint(t *testing.T) {
	for _, s := range allStrategies() {
		t.Run(string(s), func(t *testing.T) {
			g, err := Build(context.Background(), linePoints(7), 4, Options{Strategy: s})
			require.NoError(t, err)
			assert.Equal(t, 1, g.Len())
			assert.Equal(t, 0, g.K())
			assert.Empty(t, g.Neighbors(0))
			assert.Equal(t, 0, g.Edges())
		})
	}
}

func TestBuild_ClampsKToNMinusOne(t *testing.T) {
	pts := linePoints(0, 1, 2, 3)
	for _, s := range allStrategies() {
		t.Run(string(s), func(t *testing.T) {
			g, err := Build(context.Background(), pts, 10, Options{Strategy: s})
			require.NoError(t, err)
			assert.Equal(t, 3, g.K())
			assert.Equal(t, 12, g.Edges())
			for i := range pts {
				nb := g.Neighbors(i)
				assert.Len(t, nb, 3)
				assert.NotContains(t, nb, i)
			}
		})
	}
}

func TestBuild_LineK2(t *testing.T) {
	g, err := BuildNeighborGraph(linePoints(0, 1, 2, 3, 4, 5), 2)
	require.NoError(t, err)

	// Interior points tie between left and right at distance 1; the lower
	// index comes first.
	expected := [][]int{
		{1, 2},
		{0, 2},
		{1, 3},
		{2, 4},
		{3, 5},
		{4, 3},
	}
	for i, want := range expected {
		assert.Equal(t, want, g.Neighbors(i), "point %d", i)
	}
	assert.Equal(t, 12, g.Edges())
}

func TestBuild_ThreePointScenario(t *testing.T) {
	pts := []model.Point{
		{Value: 1, X: 0, Y: 0},
		{Value: 1, X: 1, Y: 0},
		{Value: 100, X: 100, Y: 0},
	}
	g, err := BuildNeighborGraph(pts, 1)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, g.Neighbors(0))
	assert.Equal(t, []int{0}, g.Neighbors(1))
	assert.Equal(t, []int{1}, g.Neighbors(2))
	assert.Equal(t, 3, g.Edges())
}

func TestBuild_DuplicateCoordinatesAreNeighbors(t *testing.T) {
	pts := []model.Point{{X: 5, Y: 5}, {X: 5, Y: 5}, {X: 9, Y: 9}}
	for _, s := range allStrategies() {
		t.Run(string(s), func(t *testing.T) {
			g, err := Build(context.Background(), pts, 1, Options{Strategy: s})
			require.NoError(t, err)
			assert.Equal(t, []int{1}, g.Neighbors(0))
			assert.Equal(t, []int{0}, g.Neighbors(1))
			assert.Equal(t, []int{0}, g.Neighbors(2))
		})
	}
}

func TestBuild_NearestProperty(t *testing.T) {
	for _, s := range allStrategies() {
		for _, grid := range []bool{false, true} {
			pts := randomPoints(300, 42, grid)
			g, err := Build(context.Background(), pts, 5, Options{Strategy: s, Workers: 3, BlockSize: 17})
			require.NoError(t, err)
			require.Equal(t, 5, g.K())

			for i := range pts {
				nb := g.Neighbors(i)
				require.Len(t, nb, 5)
				selected := make(map[int]bool, len(nb))
				var worst float64
				for pos, j := range nb {
					require.NotEqual(t, i, j)
					require.GreaterOrEqual(t, j, 0)
					require.Less(t, j, len(pts))
					d := dist2(pts[i], pts[j])
					if pos > 0 {
						require.GreaterOrEqual(t, d, dist2(pts[i], pts[nb[pos-1]]), "neighbors of %d out of order", i)
					}
					worst = max(worst, d)
					selected[j] = true
				}
				for j := range pts {
					if j == i || selected[j] {
						continue
					}
					require.GreaterOrEqual(t, dist2(pts[i], pts[j]), worst, "point %d missed closer candidate %d", i, j)
				}
			}
		}
	}
}

func TestBuild_Deterministic(t *testing.T) {
	pts := randomPoints(200, 7, true)
	first, err := Build(context.Background(), pts, 4, Options{Workers: 1})
	require.NoError(t, err)
	for _, workers := range []int{1, 2, 8} {
		again, err := Build(context.Background(), pts, 4, Options{Workers: workers, BlockSize: 13})
		require.NoError(t, err)
		assert.Equal(t, first.adj, again.adj)
	}
}

func TestBuild_KDTreeMatchesExhaustive(t *testing.T) {
	for _, grid := range []bool{false, true} {
		pts := randomPoints(400, 99, grid)
		for _, k := range []int{1, 4, 9} {
			want, err := Build(context.Background(), pts, k, Options{Strategy: StrategyExhaustive})
			require.NoError(t, err)
			got, err := Build(context.Background(), pts, k, Options{Strategy: StrategyKDTree})
			require.NoError(t, err)
			assert.Equal(t, want.adj, got.adj, "grid=%v k=%d", grid, k)
		}
	}
}

func TestBuild_DoesNotMutateInput(t *testing.T) {
	pts := randomPoints(50, 3, false)
	orig := make([]model.Point, len(pts))
	copy(orig, pts)

	_, err := Build(context.Background(), pts, 4, Options{Strategy: StrategyKDTree})
	require.NoError(t, err)
	assert.Equal(t, orig, pts)
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g, err := Build(ctx, randomPoints(100, 1, false), 4, Options{})
	require.Error(t, err)
	assert.Nil(t, g)
	assert.True(t, eris.Is(err, context.Canceled))
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyExhaustive, s)

	s, err = ParseStrategy("kdtree")
	require.NoError(t, err)
	assert.Equal(t, StrategyKDTree, s)

	_, err = ParseStrategy("annoy")
	assert.True(t, eris.Is(err, fault.ErrInvalidArgument))
}

func TestSelector_KeepsBestSorted(t *testing.T) {
	sel := newSelector(3)
	for _, c := range []candidate{{5, 0}, {1, 1}, {3, 2}, {1, 3}, {0.5, 4}, {3, 5}} {
		sel.offer(c.dist, c.idx)
	}
	got := make([]int, 3)
	sel.writeTo(got)
	assert.Equal(t, []int{4, 1, 3}, got)
}
