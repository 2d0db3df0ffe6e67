/*
errors.go - Centralized error types for the lookup engine

PURPOSE:
  All error types in one place. Adapters (remote loader, cache store)
  return these; the reconciliation controller is the only place that
  turns them into status text.

ERROR CATEGORIES:
  1. Remote errors - TransportError (bad status, network), ShapeError (payload)
  2. Cache errors  - CacheReadError, CacheWriteError, ErrCacheMiss

PROPAGATION:
  Remote errors propagate to Controller.Init. Cache errors never do: the
  controller treats every cache error as "no cached data".

USAGE:
    if errors.Is(err, catalog.ErrShape) {
        // the endpoint answered, but not with a catalog
    }

SEE ALSO:
  - controller.go: Converts errors to Status
  - remote/loader.go, cache/cache.go: Produce them
*/
package catalog

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrTransport is matched by every TransportError.
	ErrTransport = errors.New("catalog transport failed")

	// ErrShape is matched by every ShapeError.
	ErrShape = errors.New("invalid catalog payload")

	// ErrCacheMiss is returned when a cache slot holds nothing.
	ErrCacheMiss = errors.New("cache slot empty")

	// ErrCacheCorrupt is matched by every CacheReadError.
	ErrCacheCorrupt = errors.New("cache slot unreadable")

	// ErrCacheWrite is matched by every CacheWriteError.
	ErrCacheWrite = errors.New("cache write failed")

	// ErrQuotaExceeded is returned by KV backends when a write would push
	// the stored total over the configured quota.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransportError reports a failed request: either a non-success HTTP
// status (StatusCode set) or a network failure (Err set).
type TransportError struct {
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("catalog request failed: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("catalog request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrTransport, e.Err}
	}
	return []error{ErrTransport}
}

// ShapeError reports a response body that is not a catalog.
type ShapeError struct {
	Reason string
	Err    error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid catalog payload: %s: %v", e.Reason, e.Err)
	}
	return "invalid catalog payload: " + e.Reason
}

func (e *ShapeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrShape, e.Err}
	}
	return []error{ErrShape}
}

// CacheReadError reports a slot whose stored text could not be decoded
// into the expected shape.
type CacheReadError struct {
	Slot string
	Err  error
}

func (e *CacheReadError) Error() string {
	return fmt.Sprintf("cache slot %q unreadable: %v", e.Slot, e.Err)
}

func (e *CacheReadError) Unwrap() []error { return []error{ErrCacheCorrupt, e.Err} }

// CacheWriteError reports a failed save (serialization, quota, backend).
type CacheWriteError struct {
	Slot string
	Err  error
}

func (e *CacheWriteError) Error() string {
	return fmt.Sprintf("cache slot %q not saved: %v", e.Slot, e.Err)
}

func (e *CacheWriteError) Unwrap() []error { return []error{ErrCacheWrite, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsTransport reports whether err is a request failure.
func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }

// IsShape reports whether err is a malformed payload.
func IsShape(err error) bool { return errors.Is(err, ErrShape) }
