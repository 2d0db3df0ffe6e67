package catalog

import (
	"sync/atomic"
	"time"
)

// =============================================================================
// SNAPSHOT - The single authoritative view of the catalog
// =============================================================================

// Origin tells where the current snapshot came from.
type Origin string

const (
	OriginNone   Origin = "none"
	OriginCache  Origin = "cache"
	OriginRemote Origin = "remote"
)

// Snapshot is an immutable view of the catalog and shelf table. Readers
// must not modify the slices or map they receive.
type Snapshot struct {
	Items   []CatalogItem
	Shelves ShelfMap
	Origin  Origin

	// AsOf is the cache save time for OriginCache and the fetch time for
	// OriginRemote.
	AsOf time.Time
}

var emptySnapshot = &Snapshot{Shelves: ShelfMap{}, Origin: OriginNone}

// State holds the current Snapshot. Snapshot is safe from any goroutine;
// replace is unexported so only the Controller in this package can swap
// it, and a swap is always of a whole Snapshot.
type State struct {
	cur atomic.Pointer[Snapshot]
}

// NewState returns a State holding an empty snapshot.
func NewState() *State {
	s := &State{}
	s.cur.Store(emptySnapshot)
	return s
}

// Snapshot returns the current view.
func (s *State) Snapshot() Snapshot {
	if p := s.cur.Load(); p != nil {
		return *p
	}
	return *emptySnapshot
}

func (s *State) replace(next Snapshot) {
	if next.Shelves == nil {
		next.Shelves = ShelfMap{}
	}
	s.cur.Store(&next)
}
