// Package query is a keyed cache for backend reads with request de-duplication,
// staleness tracking and explicit invalidation, plus typed queries and mutations
// built on top of it.
package query

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const defaultGCTime = 5 * time.Minute

// FetchFunc loads the value for one key.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	data      any
	hasData   bool
	err       error
	fetchedAt time.Time
	stale     bool

	inflight     int
	appliedSeq   uint64 // seq of the fetch or Set whose result is held
	invalidSeq   uint64 // counter value at the last invalidation
	flightSeq    uint64 // seq of the newest fetch started, or reserved for one about to start
	observers    int
	lastObserved time.Time
}

// Snapshot is a read-only view of an entry.
type Snapshot struct {
	Data      any
	HasData   bool
	Err       error
	FetchedAt time.Time
	Stale     bool
	Fetching  bool
}

// Cache is the process-wide store of query results. The zero value is not usable;
// call NewCache.
type Cache struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	seq       uint64
	group     singleflight.Group
	listeners map[Key]map[int]func()
	nextID    int

	gcTime  time.Duration
	nowTime func() time.Time
	metrics *Metrics
}

type CacheOption func(*Cache)

// WithGCTime sets how long an unobserved entry is kept.
func WithGCTime(d time.Duration) CacheOption {
	return func(c *Cache) {
		c.gcTime = d
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CacheOption {
	return func(c *Cache) {
		c.nowTime = nowFunc
	}
}

func WithMetrics(m *Metrics) CacheOption {
	return func(c *Cache) {
		c.metrics = m
	}
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries:   make(map[Key]*entry),
		listeners: make(map[Key]map[int]func()),
		gcTime:    defaultGCTime,
		nowTime:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) entryLocked(key Key) *entry {
	e, ok := c.entries[key]
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.lastObserved = c.nowTime()
	return e
}

// Peek returns the current state of key without fetching.
func (c *Cache) Peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return Snapshot{}, false
	}
	e.lastObserved = c.nowTime()
	return Snapshot{
		Data:      e.data,
		HasData:   e.hasData,
		Err:       e.err,
		FetchedAt: e.fetchedAt,
		Stale:     e.stale,
		Fetching:  e.inflight > 0,
	}, true
}

// Get returns the cached value for key, fresh or not.
func (c *Cache) Get(key Key) (any, bool) {
	snap, ok := c.Peek(key)
	if !ok || !snap.HasData {
		return nil, false
	}
	return snap.Data, true
}

// Set stores data for key as if it had just been fetched. Fetches started earlier
// can no longer overwrite it.
func (c *Cache) Set(key Key, data any) {
	c.mu.Lock()
	c.seq++
	c.applyLocked(key, c.entryLocked(key), c.seq, data)
	c.mu.Unlock()
	c.notify(key)
}

// Remove drops key entirely.
func (c *Cache) Remove(key Key) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.notify(key)
}

// Invalidate marks every entry of the named resources stale, whatever their
// parameters. Nothing is refetched; the next read does that. It returns the number
// of entries affected.
func (c *Cache) Invalidate(resources ...string) int {
	names := make(map[string]struct{}, len(resources))
	for _, r := range resources {
		names[r] = struct{}{}
	}

	c.mu.Lock()
	var touched []Key
	for key, e := range c.entries {
		if _, ok := names[key.Resource]; !ok {
			continue
		}
		e.stale = true
		e.invalidSeq = c.seq
		touched = append(touched, key)
		c.metrics.invalidation(key.Resource)
	}
	c.mu.Unlock()

	for _, key := range touched {
		c.notify(key)
	}
	log.Debug().Strs("resources", resources).Int("entries", len(touched)).Msg("[Cache.Invalidate]")
	return len(touched)
}

// Fetch runs fn for key unless a fetch for the same key is already in flight, in
// which case the caller shares its result. The shared fetch is not cancelled when
// one waiting caller gives up.
func (c *Cache) Fetch(ctx context.Context, key Key, fn FetchFunc) (any, error) {
	return c.fetch(ctx, key, fn, false)
}

// Refetch always starts a new fetch. If an older fetch finishes later its result
// is discarded.
func (c *Cache) Refetch(ctx context.Context, key Key, fn FetchFunc) (any, error) {
	return c.fetch(ctx, key, fn, true)
}

func (c *Cache) fetch(ctx context.Context, key Key, fn FetchFunc, force bool) (any, error) {
	flight := key.String()
	c.mu.Lock()
	e, ok := c.entries[key]
	// a fetch that started before the last invalidation may hold pre-mutation data
	restart := force || (ok && e.inflight > 0 && e.flightSeq <= e.invalidSeq)
	switch {
	case restart:
		c.group.Forget(flight)
		if ok {
			e.flightSeq = c.seq + 1
		}
		if !force {
			log.Debug().Str("key", flight).Msg("[Cache.Fetch] in-flight fetch predates invalidation, starting a new one")
		}
	case ok && e.inflight > 0:
		c.metrics.dedup(key.Resource)
		log.Debug().Str("key", flight).Msg("[Cache.Fetch] joining in-flight fetch")
	}
	c.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flight, func() (any, error) {
		return c.run(detached, key, fn)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) run(ctx context.Context, key Key, fn FetchFunc) (any, error) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	started := c.entryLocked(key)
	started.inflight++
	if seq > started.flightSeq {
		started.flightSeq = seq
	}
	c.mu.Unlock()
	c.notify(key)
	c.metrics.fetch(key.Resource)

	data, err := fn(ctx)

	c.mu.Lock()
	e := c.entryLocked(key)
	if e.inflight > 0 {
		e.inflight--
	}
	switch {
	case seq <= e.appliedSeq:
		c.metrics.discard(key.Resource)
		log.Debug().Str("key", key.String()).Msg("[Cache.Fetch] discarding out-of-order result")
		data, err = e.data, nil
	case err != nil:
		e.err = err
		c.metrics.fetchError(key.Resource)
	default:
		c.applyLocked(key, e, seq, data)
	}
	c.mu.Unlock()
	c.notify(key)

	return data, err
}

func (c *Cache) applyLocked(key Key, e *entry, seq uint64, data any) {
	e.data = data
	e.hasData = true
	e.err = nil
	e.fetchedAt = c.nowTime()
	e.appliedSeq = seq
	// a fetch started before the last invalidation may predate the change
	e.stale = seq <= e.invalidSeq
}

// Subscribe calls fn whenever key changes. The entry is kept from garbage
// collection while subscribed.
func (c *Cache) Subscribe(key Key, fn func()) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entryLocked(key).observers++
	if c.listeners[key] == nil {
		c.listeners[key] = make(map[int]func())
	}
	id := c.nextID
	c.nextID++
	c.listeners[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if e, ok := c.entries[key]; ok {
				e.observers--
				e.lastObserved = c.nowTime()
			}
			delete(c.listeners[key], id)
			if len(c.listeners[key]) == 0 {
				delete(c.listeners, key)
			}
		})
	}
}

func (c *Cache) notify(key Key) {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.listeners[key]))
	for _, fn := range c.listeners[key] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// GC removes entries that nobody observes, that are not being fetched and that have
// not been read for the GC time. It returns the number removed.
func (c *Cache) GC() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.nowTime()
	removed := 0
	for key, e := range c.entries {
		if e.observers > 0 || e.inflight > 0 || now.Sub(e.lastObserved) < c.gcTime {
			continue
		}
		delete(c.entries, key)
		removed++
	}
	return removed
}

// StartGC runs GC every interval until ctx is done.
func (c *Cache) StartGC(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := c.GC(); n > 0 {
					log.Debug().Int("removed", n).Msg("[Cache.GC]")
				}
			}
		}
	}()
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
