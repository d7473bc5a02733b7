// Package fault defines the error kinds shared by raster ingestion, neighbor
// graph construction, the Moran's I evaluator and the batch runner.
//
// Callers wrap the sentinels with eris and test for them with eris.Is; KindOf
// collapses a wrapped chain into a stable string for reports and storage.
package fault

import (
	"context"

	"github.com/rotisserie/eris"
)

var (
	// ErrInvalidArgument marks malformed inputs: an empty point set, a
	// non-positive k, mismatched lengths or non-finite coordinates.
	ErrInvalidArgument = eris.New("invalid argument")

	// ErrDegenerateInput marks inputs for which the statistic is undefined
	// (zero variance, no neighbor edges).
	ErrDegenerateInput = eris.New("degenerate input")

	// ErrNotFound marks a raster file that does not exist. It is the only
	// condition the batch runner skips over.
	ErrNotFound = eris.New("raster not found")

	// ErrFormat marks a raster whose header or body cannot be decoded.
	ErrFormat = eris.New("malformed raster")

	// ErrUnsupportedData marks a raster that decodes but carries no usable
	// numeric band: multi-band images, unknown formats, or no valid samples.
	ErrUnsupportedData = eris.New("unsupported raster data")
)

// Kind is the stable name of an error class.
type Kind string

const (
	KindNone            Kind = ""
	KindInvalidArgument Kind = "invalid_argument"
	KindDegenerateInput Kind = "degenerate_input"
	KindNotFound        Kind = "not_found"
	KindFormat          Kind = "format"
	KindUnsupportedData Kind = "unsupported_data"
	KindCancelled       Kind = "cancelled"
	KindInternal        Kind = "internal"
)

var kinds = []struct {
	sentinel error
	kind     Kind
}{
	{ErrInvalidArgument, KindInvalidArgument},
	{ErrDegenerateInput, KindDegenerateInput},
	{ErrNotFound, KindNotFound},
	{ErrFormat, KindFormat},
	{ErrUnsupportedData, KindUnsupportedData},
}

// KindOf returns the kind of the first sentinel found in err's chain.
// Context cancellation maps to KindCancelled; anything else unrecognised is
// KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if eris.Is(err, k.sentinel) {
			return k.kind
		}
	}
	if isCancelled(err) {
		return KindCancelled
	}
	return KindInternal
}

// IsNotFound reports whether err marks a missing raster file.
func IsNotFound(err error) bool {
	return err != nil && eris.Is(err, ErrNotFound)
}

// IsDegenerate reports whether err marks an undefined statistic.
func IsDegenerate(err error) bool {
	return err != nil && eris.Is(err, ErrDegenerateInput)
}

func isCancelled(err error) bool {
	return eris.Is(err, context.Canceled) || eris.Is(err, context.DeadlineExceeded)
}
