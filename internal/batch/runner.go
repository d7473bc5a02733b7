package batch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/fault"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/knn"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/model"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/moran"
	"github.com/KylaCM/dataScience-C-BandSAR/internal/raster"
)

// Runner analyzes rasters: load, mask, build the neighbor graph, evaluate.
type Runner struct {
	Loader raster.Loader
	K      int
	Knn    knn.Options
	// Concurrency bounds how many rasters are in flight at once. Each one
	// holds its full point set and graph in memory.
	Concurrency int
}

// Analysis is the result of one raster.
type Analysis struct {
	Statistic model.Statistic
	Footprint []byte
	// K is the neighbor count the graph used, after clamping to n-1.
	K int
}

func (r *Runner) k() int {
	if r.K > 0 {
		return r.K
	}
	return knn.DefaultK
}

func (r *Runner) concurrency() int {
	if r.Concurrency > 0 {
		return r.Concurrency
	}
	return 1
}

// Analyze runs the full pipeline for the raster at path. Errors keep their
// fault kind so callers can tell a missing file from a bad one.
func (r *Runner) Analyze(ctx context.Context, path string) (*Analysis, error) {
	if r.Loader == nil {
		return nil, eris.New("batch: runner has no loader")
	}

	g, err := r.Loader.Load(ctx, path)
	if err != nil {
		return nil, eris.Wrap(err, "batch: load")
	}
	samples, err := raster.Mask(g)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: mask %s", path)
	}

	graph, err := knn.Build(ctx, samples.Points, r.k(), r.Knn)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: neighbor graph for %s", path)
	}

	stat, err := moran.Compute(samples.Values(), graph)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: moran's i for %s", path)
	}

	footprint, err := samples.FootprintWKB()
	if err != nil {
		return nil, err
	}
	return &Analysis{Statistic: stat, Footprint: footprint, K: graph.K()}, nil
}

// Run analyzes every target of plan with a bounded pool of workers.
//
// A missing raster is recorded as skipped and the batch continues. Any other
// error (bad format, unsupported data, degenerate statistic) is recorded as
// failed for that item only. Once ctx is cancelled no new item starts; items
// already running finish and the rest are recorded as skipped.
func (r *Runner) Run(ctx context.Context, plan Plan) (*model.Run, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	strategy := r.Knn.Strategy
	if strategy == "" {
		strategy = knn.StrategyExhaustive
	}

	targets := plan.Targets()
	run := &model.Run{
		ID:        uuid.New().String(),
		Status:    model.RunStatusRunning,
		K:         r.k(),
		Strategy:  string(strategy),
		Items:     make([]model.Item, len(targets)),
		CreatedAt: time.Now().UTC(),
	}

	zap.L().Info("batch: starting run",
		zap.String("run_id", run.ID),
		zap.Int("rasters", len(targets)),
		zap.Int("k", run.K),
		zap.String("strategy", run.Strategy),
		zap.Int("concurrency", r.concurrency()),
	)

	var eg errgroup.Group
	eg.SetLimit(r.concurrency())
	for idx, tgt := range targets {
		run.Items[idx] = model.Item{Year: tgt.Year, Resolution: tgt.Resolution, Path: tgt.Path}
		if ctx.Err() != nil {
			markCancelled(&run.Items[idx])
			continue
		}
		eg.Go(func() error {
			item := &run.Items[idx]
			if ctx.Err() != nil {
				markCancelled(item)
				return nil
			}
			r.runItem(ctx, item)
			return nil
		})
	}
	_ = eg.Wait()

	run.Tally()
	run.FinishedAt = time.Now().UTC()
	run.Status = model.RunStatusComplete
	if ctx.Err() != nil {
		run.Status = model.RunStatusCancelled
	}

	zap.L().Info("batch: run finished",
		zap.String("run_id", run.ID),
		zap.String("status", string(run.Status)),
		zap.Int("succeeded", run.Succeeded),
		zap.Int("skipped", run.Skipped),
		zap.Int("failed", run.Failed),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.CreatedAt)),
	)
	return run, nil
}

func (r *Runner) runItem(ctx context.Context, item *model.Item) {
	log := zap.L().With(
		zap.Int("year", item.Year),
		zap.String("resolution", item.Resolution),
		zap.String("path", item.Path),
	)
	start := time.Now()
	a, err := r.Analyze(ctx, item.Path)
	item.Duration = time.Since(start)

	switch {
	case err == nil:
		item.Status = model.ItemSuccess
		stat := a.Statistic
		item.Statistic = &stat
		item.Footprint = a.Footprint
		log.Info("batch: raster analyzed",
			zap.Float64("moran_i", stat.I),
			zap.Int("n", stat.N),
			zap.Int("edges", stat.Edges),
			zap.Duration("elapsed", item.Duration),
		)
	case fault.IsNotFound(err):
		item.Status = model.ItemSkipped
		item.ErrorKind = string(fault.KindNotFound)
		item.Reason = "file not found"
		log.Warn("batch: raster missing, skipping")
	case fault.KindOf(err) == fault.KindCancelled:
		markCancelled(item)
		log.Warn("batch: raster interrupted", zap.Error(err))
	default:
		item.Status = model.ItemFailed
		item.ErrorKind = string(fault.KindOf(err))
		item.Reason = err.Error()
		log.Error("batch: raster failed", zap.String("kind", item.ErrorKind), zap.Error(err))
	}
}

func markCancelled(item *model.Item) {
	item.Status = model.ItemSkipped
	item.ErrorKind = string(fault.KindCancelled)
	item.Reason = "cancelled"
}
