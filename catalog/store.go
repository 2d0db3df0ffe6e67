/*
store.go - Interfaces between the engine and its adapters

PURPOSE:
  Defines what the controller needs from the outside world without
  importing any adapter. Implementations live in their own packages.

KEY INTERFACES:
  Source:      One remote fetch of the catalog + shelf table
  Cache:       Best-effort persistence of the last good dataset
  KV:          The string key-value storage a Cache is built on
  RunRecorder: Optional log of refresh attempts

IMPLEMENTATIONS:
  - remote/loader.go:       Source over HTTP
  - cache/cache.go:         Cache over any KV
  - store/sqlite/sqlite.go: Persistent KV + RunRecorder
  - catalog/store/memory.go: In-memory KV for testing

SEE ALSO:
  - controller.go: Uses all of these
  - errors.go: Error contract for each interface
*/
package catalog

import (
	"context"
	"time"
)

// =============================================================================
// SOURCE - Remote catalog
// =============================================================================

// Source fetches the full dataset in a single attempt. force asks every
// cache between the caller and the origin to be bypassed.
// Errors are *TransportError or *ShapeError.
type Source interface {
	Fetch(ctx context.Context, force bool) (Dataset, error)
}

// =============================================================================
// CACHE - Last known good dataset
// =============================================================================

// Cache persists the last fetched dataset. Every method is best-effort:
// loads return ErrCacheMiss or a *CacheReadError instead of partial data,
// saves return a *CacheWriteError. Callers treat any error as "absent".
type Cache interface {
	LoadItems(ctx context.Context) ([]CatalogItem, error)
	LoadShelves(ctx context.Context) (ShelfMap, error)
	SaveItems(ctx context.Context, items []CatalogItem) error
	SaveShelves(ctx context.Context, shelves ShelfMap) error

	// SavedAt is the time of the last successful SaveItems.
	SavedAt(ctx context.Context) (time.Time, error)
}

// =============================================================================
// KV - String slots with a size quota
// =============================================================================

// KV is a small persistent string store. Get reports ok=false for a
// missing key. Set may fail with ErrQuotaExceeded.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// =============================================================================
// REFRESH RUNS - Audit of Init attempts
// =============================================================================

// RefreshOutcome is how an Init call ended.
type RefreshOutcome string

const (
	RefreshFresh   RefreshOutcome = "fresh"
	RefreshOffline RefreshOutcome = "offline"
	RefreshFailed  RefreshOutcome = "failed"
)

// RefreshRun records one Init call.
type RefreshRun struct {
	ID          string
	Forced      bool
	Outcome     RefreshOutcome
	ItemCount   int
	ShelfCount  int
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}

// RunRecorder stores refresh runs. Optional; failures are only logged.
type RunRecorder interface {
	SaveRefreshRun(ctx context.Context, run RefreshRun) error
}
