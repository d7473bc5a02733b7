package knn

import (
	"context"
	"math"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/fault"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/model"
)

// Strategy selects the neighbor search implementation. Every strategy returns
// the same graph for the same input.
type Strategy string

const (
	// StrategyExhaustive scans all pairs: O(n²) time, O(n) per point.
	StrategyExhaustive Strategy = "exhaustive"
	// StrategyKDTree answers each query from a 2-d tree.
	StrategyKDTree Strategy = "kdtree"
)

const defaultBlockSize = 256

// Options tunes a build. The zero value is valid.
type Options struct {
	Strategy  Strategy
	Workers   int // goroutines fanning out over points; <= 0 means GOMAXPROCS
	BlockSize int // points handed to a worker at a time; <= 0 means 256
}

// ParseStrategy converts a config string into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyExhaustive:
		return StrategyExhaustive, nil
	case StrategyKDTree:
		return StrategyKDTree, nil
	default:
		return "", eris.Wrapf(fault.ErrInvalidArgument, "knn: unknown strategy %q", s)
	}
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (o Options) blockSize() int {
	if o.BlockSize > 0 {
		return o.BlockSize
	}
	return defaultBlockSize
}

// searcher fills sel with the nearest non-self candidates of point i.
type searcher interface {
	nearest(i int, sel *selector)
}

// BuildNeighborGraph builds the k-nearest-neighbor graph of points with the
// default options.
func BuildNeighborGraph(points []model.Point, k int) (*Graph, error) {
	return Build(context.Background(), points, k, Options{})
}

// Build links every point to its min(k, n-1) nearest other points by
// Euclidean distance between world positions.
//
// Rows of the adjacency table are filled by a bounded pool of workers, each
// owning a disjoint block of points. ctx is checked between blocks; a
// cancelled build returns the context error and no graph.
func Build(ctx context.Context, points []model.Point, k int, opts Options) (*Graph, error) {
	if len(points) == 0 {
		return nil, eris.Wrap(fault.ErrInvalidArgument, "knn: empty point set")
	}
	if k <= 0 {
		return nil, eris.Wrapf(fault.ErrInvalidArgument, "knn: k must be positive, got %d", k)
	}

	n := len(points)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		if !isFinite(p.X) || !isFinite(p.Y) {
			return nil, eris.Wrapf(fault.ErrInvalidArgument, "knn: point %d has non-finite world position (%v, %v)", i, p.X, p.Y)
		}
		xs[i], ys[i] = p.X, p.Y
	}

	k = min(k, n-1)
	g := &Graph{n: n, k: k, adj: make([]int, n*k)}
	if k == 0 {
		return g, nil
	}

	strategy := opts.Strategy
	if strategy == "" {
		strategy = StrategyExhaustive
	}
	var search searcher
	switch strategy {
	case StrategyExhaustive:
		search = exhaustive{xs: xs, ys: ys}
	case StrategyKDTree:
		search = newKDSearch(xs, ys, k)
	default:
		return nil, eris.Wrapf(fault.ErrInvalidArgument, "knn: unknown strategy %q", strategy)
	}

	workers := opts.workers()
	block := opts.blockSize()
	zap.L().Debug("knn: building neighbor graph",
		zap.Int("points", n),
		zap.Int("k", k),
		zap.String("strategy", string(strategy)),
		zap.Int("workers", workers),
	)

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for start := 0; start < n; start += block {
		if gctx.Err() != nil {
			break
		}
		end := min(start+block, n)
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sel := newSelector(k)
			for i := start; i < end; i++ {
				search.nearest(i, sel)
				sel.writeTo(g.adj[i*k : (i+1)*k])
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "knn: build")
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "knn: build")
	}

	return g, nil
}

type exhaustive struct {
	xs, ys []float64
}

func (e exhaustive) nearest(i int, sel *selector) {
	sel.reset()
	xi, yi := e.xs[i], e.ys[i]
	for j := range e.xs {
		if j == i {
			continue
		}
		dx := e.xs[j] - xi
		dy := e.ys[j] - yi
		sel.offer(dx*dx+dy*dy, j)
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
