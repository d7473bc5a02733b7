// Package store persists batch runs and their per-raster items so earlier
// analyses can be listed and inspected.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"

	"github.com/KylaCM/dataScience-C-BandSAR/internal/model"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = eris.New("run not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// DefaultListLimit applies when RunFilter.Limit is not positive.
const DefaultListLimit = 100

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for run history.
type Store interface {
	// SaveRun inserts or replaces a run together with all of its items.
	SaveRun(ctx context.Context, run *model.Run) error
	// GetRun loads a run with its items in plan order.
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	// ListRuns returns runs newest first, without items.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

const runColumnList = `id, status, k, strategy, succeeded, skipped, failed, created_at, finished_at`

var itemColumns = []string{
	"run_id", "seq", "year", "resolution", "path", "status", "error_kind", "reason",
	"moran_i", "n", "edges", "mean", "variance", "duration_ns", "footprint",
}

const itemColumnList = `seq, year, resolution, path, status, error_kind, reason,
	moran_i, n, edges, mean, variance, duration_ns, footprint`

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (model.Run, error) {
	var r model.Run
	var status string
	err := row.Scan(&r.ID, &status, &r.K, &r.Strategy, &r.Succeeded, &r.Skipped, &r.Failed, &r.CreatedAt, &r.FinishedAt)
	r.Status = model.RunStatus(status)
	return r, err
}

// itemValues flattens an item into column order. Missing statistics become NULLs.
func itemValues(runID string, seq int, it model.Item) []any {
	var moranI, mean, variance sql.NullFloat64
	var n, edges sql.NullInt64
	if it.Statistic != nil {
		moranI = sql.NullFloat64{Float64: it.Statistic.I, Valid: true}
		mean = sql.NullFloat64{Float64: it.Statistic.Mean, Valid: true}
		variance = sql.NullFloat64{Float64: it.Statistic.Variance, Valid: true}
		n = sql.NullInt64{Int64: int64(it.Statistic.N), Valid: true}
		edges = sql.NullInt64{Int64: int64(it.Statistic.Edges), Valid: true}
	}
	return []any{
		runID, seq, it.Year, it.Resolution, it.Path, string(it.Status), it.ErrorKind, it.Reason,
		moranI, n, edges, mean, variance, it.Duration.Nanoseconds(), it.Footprint,
	}
}

func scanItem(row scannable) (model.Item, error) {
	var it model.Item
	var seq int
	var status string
	var moranI, mean, variance sql.NullFloat64
	var n, edges sql.NullInt64
	var durationNS int64
	var footprint []byte

	err := row.Scan(&seq, &it.Year, &it.Resolution, &it.Path, &status, &it.ErrorKind, &it.Reason,
		&moranI, &n, &edges, &mean, &variance, &durationNS, &footprint)
	if err != nil {
		return it, err
	}
	it.Status = model.ItemStatus(status)
	it.Duration = time.Duration(durationNS)
	if len(footprint) > 0 {
		it.Footprint = footprint
	}
	if moranI.Valid {
		it.Statistic = &model.Statistic{
			I:        moranI.Float64,
			N:        int(n.Int64),
			Edges:    int(edges.Int64),
			Mean:     mean.Float64,
			Variance: variance.Float64,
		}
	}
	return it, nil
}
