/*
Package cache persists the last good catalog so the next start can show
data before the network answers.

PURPOSE:
  Implements catalog.Cache on top of any catalog.KV (SQLite in production,
  memory in tests). Three slots, all under a versioned prefix:

    storemap/v2/items           JSON array of catalog items (with _index)
    storemap/v2/shelves         JSON object: shelf key -> {x, y}
    storemap/v2/items_saved_at  Unix milliseconds of the last items save

  Bumping the prefix version abandons older layouts instead of misreading
  them.

BEST EFFORT:
  Saves return *catalog.CacheWriteError and loads return ErrCacheMiss or
  *catalog.CacheReadError. A slot is either fully decoded or reported as
  unreadable; nothing partial is returned. The controller treats every
  error as "no cached data".

SEE ALSO:
  - catalog/store.go: Cache and KV interfaces
  - store/sqlite/sqlite.go: Persistent KV
*/
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/warp/storemap/catalog"
)

// DefaultPrefix namespaces every slot. Change the version on format changes.
const DefaultPrefix = "storemap/v2/"

// Slot names.
const (
	SlotItems   = "items"
	SlotShelves = "shelves"
	SlotSavedAt = "items_saved_at"
)

// Store is a catalog.Cache over a KV.
type Store struct {
	kv     catalog.KV
	prefix string
	now    func() time.Time
}

var _ catalog.Cache = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides DefaultPrefix.
func WithPrefix(p string) Option {
	return func(s *Store) { s.prefix = p }
}

// WithClock overrides time.Now for the save timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a cache over kv.
func New(kv catalog.KV, opts ...Option) *Store {
	s := &Store{kv: kv, prefix: DefaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the full storage key of a slot.
func (s *Store) Key(slot string) string { return s.prefix + slot }

// =============================================================================
// WRITES
// =============================================================================

// SaveItems stores items and, only if that succeeded, the save time. If
// the time cannot be written the slot is removed, so SavedAt never reports
// a time belonging to an earlier catalog.
func (s *Store) SaveItems(ctx context.Context, items []catalog.CatalogItem) error {
	if items == nil {
		items = []catalog.CatalogItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return &catalog.CacheWriteError{Slot: SlotItems, Err: err}
	}
	if err := s.kv.Set(ctx, s.Key(SlotItems), string(data)); err != nil {
		return &catalog.CacheWriteError{Slot: SlotItems, Err: err}
	}
	ms := strconv.FormatInt(s.now().UnixMilli(), 10)
	if err := s.kv.Set(ctx, s.Key(SlotSavedAt), ms); err != nil {
		// An older timestamp would misdate the items just written.
		return &catalog.CacheWriteError{
			Slot: SlotSavedAt,
			Err:  errors.Join(err, s.kv.Delete(ctx, s.Key(SlotSavedAt))),
		}
	}
	return nil
}

// SaveShelves stores the shelf table.
func (s *Store) SaveShelves(ctx context.Context, shelves catalog.ShelfMap) error {
	if shelves == nil {
		shelves = catalog.ShelfMap{}
	}
	data, err := json.Marshal(shelves)
	if err != nil {
		return &catalog.CacheWriteError{Slot: SlotShelves, Err: err}
	}
	if err := s.kv.Set(ctx, s.Key(SlotShelves), string(data)); err != nil {
		return &catalog.CacheWriteError{Slot: SlotShelves, Err: err}
	}
	return nil
}

// Clear removes all three slots.
func (s *Store) Clear(ctx context.Context) error {
	var errs []error
	for _, slot := range []string{SlotItems, SlotShelves, SlotSavedAt} {
		if err := s.kv.Delete(ctx, s.Key(slot)); err != nil {
			errs = append(errs, &catalog.CacheWriteError{Slot: slot, Err: err})
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// READS
// =============================================================================

// LoadItems decodes the item slot. The search index is rebuilt from the
// decoded fields so it can never disagree with them.
func (s *Store) LoadItems(ctx context.Context) ([]catalog.CatalogItem, error) {
	raw, err := s.read(ctx, SlotItems)
	if err != nil {
		return nil, err
	}
	if !startsWith(raw, '[') {
		return nil, &catalog.CacheReadError{Slot: SlotItems, Err: errors.New("not a JSON array")}
	}
	var items []catalog.CatalogItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, &catalog.CacheReadError{Slot: SlotItems, Err: err}
	}
	return catalog.Enrich(items), nil
}

// LoadShelves decodes the shelf slot.
func (s *Store) LoadShelves(ctx context.Context) (catalog.ShelfMap, error) {
	raw, err := s.read(ctx, SlotShelves)
	if err != nil {
		return nil, err
	}
	if !startsWith(raw, '{') {
		return nil, &catalog.CacheReadError{Slot: SlotShelves, Err: errors.New("not a JSON object")}
	}
	var shelves catalog.ShelfMap
	if err := json.Unmarshal([]byte(raw), &shelves); err != nil {
		return nil, &catalog.CacheReadError{Slot: SlotShelves, Err: err}
	}
	return shelves, nil
}

// SavedAt returns the time of the last successful SaveItems.
func (s *Store) SavedAt(ctx context.Context) (time.Time, error) {
	raw, err := s.read(ctx, SlotSavedAt)
	if err != nil {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, &catalog.CacheReadError{Slot: SlotSavedAt, Err: err}
	}
	return time.UnixMilli(ms), nil
}

func (s *Store) read(ctx context.Context, slot string) (string, error) {
	raw, ok, err := s.kv.Get(ctx, s.Key(slot))
	if err != nil {
		return "", &catalog.CacheReadError{Slot: slot, Err: err}
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return "", catalog.ErrCacheMiss
	}
	return raw, nil
}

func startsWith(raw string, b byte) bool {
	t := bytes.TrimSpace([]byte(raw))
	return len(t) > 0 && t[0] == b
}
