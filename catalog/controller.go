/*
controller.go - Cache/refresh reconciliation

PURPOSE:
  Owns the process-wide catalog snapshot and the only code path that
  changes it. Implements stale-while-revalidate: show the last cached
  dataset immediately, fetch once from the source, swap in the fresh data
  on success, fall back to the cache on failure.

STATE MACHINE:
  Empty/ShowingCache ─ fetch ok ──► ShowingFresh  (save to cache, "ready")
  Empty ─ cache has items ────────► ShowingCache  ("cache, refreshing")
  any ─ fetch failed, cache ok ───► Degraded      ("offline, using cache")
  any ─ fetch failed, no cache ───► Degraded      ("failed to load")

ORDERING (per Init call):
  1. Cache adoption (skipped when forced) is applied and published first
  2. Exactly one Source.Fetch
  3. The fetch result is applied as one snapshot swap

  Nothing is merged field by field. Concurrent Init calls are not
  coordinated: whichever finishes last owns the snapshot.

FAILURE POLICY:
  Errors never leave Init. Cache errors mean "no cached data". Fetch errors
  become the offline or failed status. There is no automatic retry; the
  user refreshes.

SEE ALSO:
  - state.go: Snapshot container
  - status.go: Phases and status lines
  - store.go: Source, Cache, RunRecorder
*/
package catalog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Controller reconciles cached and remote data into a State.
type Controller struct {
	source Source
	cache  Cache
	runs   RunRecorder
	state  *State

	logger *zap.Logger
	now    func() time.Time
	loc    *time.Location
	notify func(Status)

	status atomic.Pointer[Status]
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger (default: no-op).
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithLocation sets the zone used to format cache timestamps.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithNotify registers a callback invoked with every published status.
func WithNotify(fn func(Status)) Option {
	return func(c *Controller) { c.notify = fn }
}

// WithRunRecorder logs every Init call.
func WithRunRecorder(r RunRecorder) Option {
	return func(c *Controller) { c.runs = r }
}

// NewController creates a controller with an empty state.
func NewController(source Source, cache Cache, opts ...Option) *Controller {
	c := &Controller{
		source: source,
		cache:  cache,
		state:  NewState(),
		logger: zap.NewNop(),
		now:    time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.Named("controller")
	c.status.Store(&Status{Phase: PhaseEmpty, Kind: StatusIdle, Message: MessageIdle})
	return c
}

// State exposes the read side of the snapshot.
func (c *Controller) State() *State { return c.state }

// Snapshot is shorthand for State().Snapshot().
func (c *Controller) Snapshot() Snapshot { return c.state.Snapshot() }

// Status returns the last published status.
func (c *Controller) Status() Status { return *c.status.Load() }

// =============================================================================
// INIT - One reconciliation pass
// =============================================================================

// Init runs one reconciliation pass and returns the final status. With
// force set, the cache is not shown first (a manual refresh).
func (c *Controller) Init(ctx context.Context, force bool) Status {
	run := RefreshRun{ID: uuid.NewString(), Forced: force, StartedAt: c.now()}
	log := c.logger.With(zap.String("run", run.ID), zap.Bool("force", force))

	// 1. Show cached data while the fetch is in flight
	adopted := false
	if !force {
		if snap, ok := c.loadCache(ctx, log); ok {
			c.state.replace(snap)
			c.publish(Status{
				Phase:     PhaseShowingCache,
				Kind:      StatusCache,
				Message:   c.cacheMessage("Showing cached data", snap.AsOf, "Refreshing…"),
				CacheTime: snap.AsOf,
			})
			adopted = true
			log.Debug("Adopted cached catalog", zap.Int("items", len(snap.Items)))
		}
	}
	if !adopted {
		c.publish(Status{Phase: c.Status().Phase, Kind: StatusLoading, Message: MessageLoading})
	}

	// 2. Exactly one fetch
	ds, err := c.source.Fetch(ctx, force)
	if err == nil {
		fetchedAt := c.now()
		c.state.replace(Snapshot{Items: ds.Items, Shelves: ds.Shelves, Origin: OriginRemote, AsOf: fetchedAt})
		c.persist(ctx, ds, log)

		log.Info("Catalog refreshed",
			zap.Int("items", len(ds.Items)),
			zap.Int("shelves", len(ds.Shelves)))

		st := c.publish(Status{Phase: PhaseShowingFresh, Kind: StatusReady, Message: MessageReady})
		run.Outcome, run.ItemCount, run.ShelfCount = RefreshFresh, len(ds.Items), len(ds.Shelves)
		c.record(ctx, run, log)
		return st
	}

	// 3. Fetch failed: fall back to whatever the cache holds now
	log.Warn("Catalog fetch failed", zap.Error(err))
	run.Error = err.Error()

	if snap, ok := c.loadCache(ctx, log); ok {
		c.state.replace(snap)
		st := c.publish(Status{
			Phase:     PhaseDegraded,
			Kind:      StatusOffline,
			Message:   c.cacheMessage("Offline: showing cached data", snap.AsOf, ""),
			CacheTime: snap.AsOf,
		})
		run.Outcome, run.ItemCount, run.ShelfCount = RefreshOffline, len(snap.Items), len(snap.Shelves)
		c.record(ctx, run, log)
		return st
	}

	// Nothing cached: keep whatever is on screen, report failure.
	st := c.publish(Status{Phase: PhaseDegraded, Kind: StatusFailed, Message: MessageFailed})
	run.Outcome = RefreshFailed
	c.record(ctx, run, log)
	return st
}

// loadCache returns the cached dataset when it has at least one item.
func (c *Controller) loadCache(ctx context.Context, log *zap.Logger) (Snapshot, bool) {
	if c.cache == nil {
		return Snapshot{}, false
	}
	items, err := c.cache.LoadItems(ctx)
	if err != nil {
		log.Debug("No cached items", zap.Error(err))
		return Snapshot{}, false
	}
	if len(items) == 0 {
		return Snapshot{}, false
	}

	shelves, err := c.cache.LoadShelves(ctx)
	if err != nil {
		log.Debug("No cached shelves", zap.Error(err))
		shelves = ShelfMap{}
	}

	savedAt, err := c.cache.SavedAt(ctx)
	if err != nil {
		savedAt = time.Time{}
	}
	return Snapshot{Items: items, Shelves: shelves, Origin: OriginCache, AsOf: savedAt}, true
}

func (c *Controller) persist(ctx context.Context, ds Dataset, log *zap.Logger) {
	if c.cache == nil {
		return
	}
	if err := c.cache.SaveItems(ctx, ds.Items); err != nil {
		log.Debug("Catalog not cached", zap.Error(err))
	}
	if err := c.cache.SaveShelves(ctx, ds.Shelves); err != nil {
		log.Debug("Shelves not cached", zap.Error(err))
	}
}

func (c *Controller) record(ctx context.Context, run RefreshRun, log *zap.Logger) {
	if c.runs == nil {
		return
	}
	run.CompletedAt = c.now()
	if err := c.runs.SaveRefreshRun(ctx, run); err != nil {
		log.Warn("Refresh run not recorded", zap.Error(err))
	}
}

func (c *Controller) publish(st Status) Status {
	st.At = c.now()
	c.status.Store(&st)
	if c.notify != nil {
		c.notify(st)
	}
	return st
}

// cacheMessage builds "<lead> from 2025/01/02 03:04. <tail>".
func (c *Controller) cacheMessage(lead string, savedAt time.Time, tail string) string {
	msg := lead
	if !savedAt.IsZero() {
		msg = fmt.Sprintf("%s from %s", lead, FormatCacheTime(savedAt, c.loc))
	}
	msg += "."
	if tail != "" {
		msg += " " + tail
	}
	return msg
}

// FormatCacheTime renders t as YYYY/MM/DD HH:MM in loc.
func FormatCacheTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(CacheTimeLayout)
}
