package enrich

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidParameter reports an out-of-range batch parameter. It is
// returned before any store or external call is made.
var ErrInvalidParameter = errors.New("enrich: invalid parameter")

// ErrNoMatch reports that the external catalog has no entry for the
// item. The runner counts it as not-found rather than failed; the item
// stays pending and is a candidate again on the next run.
var ErrNoMatch = errors.New("enrich: no match in external catalog")

// Item is one library record awaiting enrichment. Label is whatever
// human-readable handle the source has (a title, usually) and only
// shows up in error strings and logs.
type Item struct {
	ID    string
	Label string
}

// Limits bound the tunable run parameters for one source. The external
// catalogs enforce very different rate limits, so each source declares
// its own envelope and the runner validates against it.
type Limits struct {
	MaxBatchOnce   int
	MaxBatchRunAll int
	MinDelay       time.Duration
	MaxDelay       time.Duration
	MaxItems       int
}

// DefaultLimits is the widest envelope. Sources backed by stricter
// upstream rate limits narrow it.
func DefaultLimits() Limits {
	return Limits{
		MaxBatchOnce:   500,
		MaxBatchRunAll: 200,
		MinDelay:       100 * time.Millisecond,
		MaxDelay:       10 * time.Second,
		MaxItems:       10000,
	}
}

// Source supplies pending items of one media kind and knows how to
// enrich a single item against its external catalog.
//
// Enrich returns nil when the item was updated, an error wrapping
// ErrNoMatch when the catalog has nothing for it, and any other error
// for transient or permanent failures. A failed item is recorded and
// skipped; it never aborts the batch.
type Source interface {
	Kind() string
	Limits() Limits
	CountPending(ctx context.Context) (int, error)
	PendingBatch(ctx context.Context, limit int) ([]Item, error)
	Enrich(ctx context.Context, item Item) error
}
