// Package snapcache is the two-tier snapshot cache: a bounded TTL/LRU local
// store of catalog snapshots keyed by configuration fingerprint, optionally
// mirrored to a shared backing store, with single-flight build coalescing so
// concurrent callers for one fingerprint trigger at most one upstream build.
package snapcache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/iptvbridge/iptv-bridge/internal/catalog"
)

// Builder produces a fresh snapshot for a fingerprint. Invoked at most once
// per fingerprint at a time.
type Builder func(ctx context.Context) (*catalog.Snapshot, error)

// Options tunes the cache.
type Options struct {
	MaxEntries int           // bounded local store capacity; 0 = 16
	TTL        time.Duration // per-entry lifetime; 0 = 30m
	MinRefresh time.Duration // forced refreshes of a snapshot younger than this are short-circuited; 0 = 1m
}

const (
	defaultMaxEntries = 16
	defaultTTL        = 30 * time.Minute
	defaultMinRefresh = time.Minute
)

type entry struct {
	fingerprint string
	snap        *catalog.Snapshot
	storedAt    time.Time
}

// Cache is safe for concurrent use. The mutex guards only the LRU
// bookkeeping; it is never held across a build or a shared-store call.
type Cache struct {
	opts   Options
	shared SharedStore // optional; best-effort
	log    zerolog.Logger

	group singleflight.Group

	mu    sync.Mutex
	ll    *list.List // front = most recently used
	items map[string]*list.Element
}

// New returns a cache with the given options. shared may be nil.
func New(opts Options, shared SharedStore, logger zerolog.Logger) *Cache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.MinRefresh <= 0 {
		opts.MinRefresh = defaultMinRefresh
	}
	return &Cache{
		opts:   opts,
		shared: shared,
		log:    logger,
		ll:     list.New(),
		items:  make(map[string]*list.Element),
	}
}

// GetOrBuild returns the snapshot for fingerprint, building one when the
// local entry is missing or older than TTL. force requests a rebuild but is
// short-circuited while the cached snapshot is younger than MinRefresh, to
// bound upstream request rate under bursty client traffic. Concurrent calls
// for the same fingerprint coalesce onto one in-flight build; the in-flight
// marker clears once the build settles, so a later call can retry.
//
// A failed rebuild never blanks an already-published snapshot: when a stale
// entry exists it keeps serving and the build error is only logged.
func (c *Cache) GetOrBuild(ctx context.Context, fingerprint string, force bool, build Builder) (*catalog.Snapshot, error) {
	if snap, age, ok := c.lookup(fingerprint); ok {
		fresh := age < c.opts.TTL
		if fresh && !force {
			cacheHits.Inc()
			return snap, nil
		}
		if force && age < c.opts.MinRefresh {
			refreshSuppressed.Inc()
			return snap, nil
		}
	}
	cacheMisses.Inc()

	v, err, coalesced := c.group.Do(fingerprint, func() (any, error) {
		return c.buildLocked(ctx, fingerprint, force, build)
	})
	if coalesced {
		buildsCoalesced.Inc()
	}
	if err != nil {
		// Serve the previous snapshot, stale or not, rather than blanking.
		if snap, _, ok := c.lookup(fingerprint); ok {
			c.log.Warn().Err(err).Str("fingerprint", fingerprint).
				Msg("rebuild failed; serving previous snapshot")
			return snap, nil
		}
		return nil, err
	}
	return v.(*catalog.Snapshot), nil
}

// buildLocked runs inside the single-flight slot for fingerprint.
func (c *Cache) buildLocked(ctx context.Context, fingerprint string, force bool, build Builder) (*catalog.Snapshot, error) {
	// A coalesced waiter may arrive after the first flight already stored a
	// fresh snapshot; don't rebuild it.
	if snap, age, ok := c.lookup(fingerprint); ok && age < c.opts.TTL && !force {
		return snap, nil
	}

	if !force && c.shared != nil {
		if snap := c.sharedGet(ctx, fingerprint); snap != nil {
			c.store(fingerprint, snap)
			return snap, nil
		}
	}

	snap, err := build(ctx)
	if err != nil {
		buildFailures.Inc()
		return nil, err
	}
	c.store(fingerprint, snap)
	c.sharedSet(ctx, fingerprint, snap)
	return snap, nil
}

// Invalidate drops the local entry for fingerprint. The shared store entry
// ages out on its own TTL.
func (c *Cache) Invalidate(fingerprint string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[fingerprint]; ok {
		c.ll.Remove(el)
		delete(c.items, fingerprint)
	}
}

// lookup returns the cached snapshot and its age, touching recency on hit.
func (c *Cache) lookup(fingerprint string) (*catalog.Snapshot, time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[fingerprint]
	if !ok {
		return nil, 0, false
	}
	c.ll.MoveToFront(el)
	e := el.Value.(*entry)
	return e.snap, time.Since(e.storedAt), true
}

// store inserts or replaces the entry, evicting the least-recently-used one
// past capacity.
func (c *Cache) store(fingerprint string, snap *catalog.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[fingerprint]; ok {
		el.Value.(*entry).snap = snap
		el.Value.(*entry).storedAt = time.Now()
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&entry{fingerprint: fingerprint, snap: snap, storedAt: time.Now()})
	c.items[fingerprint] = el
	for c.ll.Len() > c.opts.MaxEntries {
		oldest := c.ll.Back()
		c.ll.Remove(oldest)
		delete(c.items, oldest.Value.(*entry).fingerprint)
		cacheEvictions.Inc()
	}
}

// sharedGet reads and decodes a snapshot from the shared store. Best-effort:
// any failure falls back to local-only behavior.
func (c *Cache) sharedGet(ctx context.Context, fingerprint string) *catalog.Snapshot {
	data, ok, err := c.shared.Get(ctx, storeKey(fingerprint))
	if err != nil {
		sharedStoreErrors.Inc()
		c.log.Warn().Err(err).Msg("shared store read failed")
		return nil
	}
	if !ok {
		return nil
	}
	snap, err := DecodeSnapshot(data)
	if err != nil {
		sharedStoreErrors.Inc()
		c.log.Warn().Err(err).Msg("shared store payload corrupt")
		return nil
	}
	return snap
}

// sharedSet mirrors a snapshot to the shared store. Best-effort.
func (c *Cache) sharedSet(ctx context.Context, fingerprint string, snap *catalog.Snapshot) {
	if c.shared == nil {
		return
	}
	data, err := EncodeSnapshot(snap)
	if err != nil {
		c.log.Warn().Err(err).Msg("snapshot encode failed")
		return
	}
	if err := c.shared.Set(ctx, storeKey(fingerprint), data, c.opts.TTL); err != nil {
		sharedStoreErrors.Inc()
		c.log.Warn().Err(err).Msg("shared store write failed")
	}
}
