// Package query is a keyed read-through cache for remote reads. Writes invalidate
// entries by key prefix; invalidated entries refetch lazily on their next read. At most
// one fetch per key is in flight at a time, and concurrent readers share it.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultRetention is how long an unobserved, idle entry is kept.
const DefaultRetention = 5 * time.Minute

// Status is the state of a cache entry.
type Status int

const (
	StatusEmpty Status = iota
	StatusPending
	StatusSuccess
	StatusError
	StatusStale
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusStale:
		return "stale"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type call struct {
	done chan struct{}
	data any
	err  error
}

type entry struct {
	key         Key
	status      Status
	data        any
	hasData     bool
	err         error
	subscribers int
	updatedAt   time.Time
	usedAt      time.Time

	// call is the in-flight fetch, if any. Only the call that is current when it settles
	// may write its result into the entry.
	call *call
	// invalidated records an invalidation that arrived while a fetch was in flight.
	invalidated bool
}

// EntryState is a snapshot of one entry.
type EntryState struct {
	Status      Status
	HasData     bool
	Err         error
	Subscribers int
	UpdatedAt   time.Time
}

// Cache holds the entries. Create one per application with New; tests create their own.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*entry
	retention time.Duration
	now       func() time.Time
}

type Option func(*Cache)

// WithRetention sets how long unobserved entries survive GC. Zero disables eviction.
func WithRetention(d time.Duration) Option {
	return func(c *Cache) { c.retention = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries:   map[string]*entry{},
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type fetchOptions struct {
	force bool
}

type FetchOption func(*fetchOptions)

// Force refetches even if a fresh value is cached. An in-flight fetch is still shared.
func Force() FetchOption {
	return func(o *fetchOptions) { o.force = true }
}

// Fetch returns the cached value for key, calling fn when the entry is empty, stale or
// forced. A cached error is returned as-is until the entry is invalidated. If ctx ends
// first the caller gets ctx.Err() while the fetch completes and is still cached.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error), opts ...FetchOption) (T, error) {
	var o fetchOptions
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	v, err := c.fetch(ctx, key, o.force, func(ctx context.Context, _ any, _ bool) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("query: cached value for %s is %T", key, v)
	}
	return t, nil
}

// fetchFunc receives the entry's previous data. fresh is true only when that data was
// settled and not invalidated when the fetch started.
type fetchFunc func(ctx context.Context, prev any, fresh bool) (any, error)

func (c *Cache) fetch(ctx context.Context, key Key, force bool, fn fetchFunc) (any, error) {
	id := key.String()

	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key.clone(), status: StatusEmpty}
		c.entries[id] = e
	}
	e.usedAt = c.now()

	if cl := e.call; cl != nil {
		c.mu.Unlock()
		cacheHitsTotal.WithLabelValues(key.Namespace()).Inc()
		return wait(ctx, cl)
	}

	if !force && (e.status == StatusSuccess || e.status == StatusError) {
		data, err := e.data, e.err
		failed := e.status == StatusError
		c.mu.Unlock()
		cacheHitsTotal.WithLabelValues(key.Namespace()).Inc()
		if failed {
			return nil, err
		}
		return data, nil
	}

	cl := &call{done: make(chan struct{})}
	fresh := e.status == StatusSuccess
	e.call = cl
	e.status = StatusPending
	e.invalidated = false
	prev := e.data
	c.mu.Unlock()

	fetchesTotal.WithLabelValues(key.Namespace()).Inc()
	go c.run(context.WithoutCancel(ctx), id, key, cl, prev, fresh, fn)
	return wait(ctx, cl)
}

func (c *Cache) run(ctx context.Context, id string, key Key, cl *call, prev any, fresh bool, fn fetchFunc) {
	data, err := invoke(ctx, prev, fresh, fn)
	if err != nil {
		fetchErrorsTotal.WithLabelValues(key.Namespace()).Inc()
	}

	c.mu.Lock()
	if e, ok := c.entries[id]; ok && e.call == cl {
		e.call = nil
		if err != nil {
			e.status = StatusError
			e.err = err
		} else {
			e.status = StatusSuccess
			e.data = data
			e.hasData = true
			e.err = nil
		}
		e.updatedAt = c.now()
		if e.invalidated {
			e.status = StatusStale
			e.invalidated = false
		}
	} else {
		slog.Debug("dropping result for removed query", "key", id)
	}
	c.mu.Unlock()

	cl.data, cl.err = data, err
	close(cl.done)
}

func invoke(ctx context.Context, prev any, fresh bool, fn fetchFunc) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("query: fetch panicked: %v", r)
		}
	}()
	return fn(ctx, prev, fresh)
}

func wait(ctx context.Context, cl *call) (any, error) {
	select {
	case <-cl.done:
		return cl.data, cl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Invalidate marks every entry under prefix stale and returns how many were marked.
// Stale entries are left alone. A pending entry settles stale.
func (c *Cache) Invalidate(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, e := range c.entries {
		if !e.key.HasPrefix(prefix) {
			continue
		}
		switch e.status {
		case StatusSuccess, StatusError:
			e.status = StatusStale
		case StatusPending:
			if e.invalidated {
				continue
			}
			e.invalidated = true
		default:
			continue
		}
		n++
		invalidationsTotal.WithLabelValues(e.key.Namespace()).Inc()
	}
	return n
}

// Get returns the cached data for key, if any, regardless of staleness.
func (c *Cache) Get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		return nil, false
	}
	return e.data, true
}

// GetData is the typed form of Get.
func GetData[T any](c *Cache, key Key) (T, bool) {
	v, ok := c.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Set stores data for key as a fresh success.
func (c *Cache) Set(key Key, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := key.String()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key.clone()}
		c.entries[id] = e
	}
	now := c.now()
	e.data, e.hasData, e.err = data, true, nil
	e.updatedAt, e.usedAt = now, now
	if e.call == nil {
		e.status = StatusSuccess
	}
}

// Remove deletes every entry under prefix. Results of their in-flight fetches are dropped.
func (c *Cache) Remove(prefix Key) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]*entry{}
}

func (c *Cache) State(key Key) EntryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok {
		return EntryState{Status: StatusEmpty}
	}
	return EntryState{
		Status:      e.status,
		HasData:     e.hasData,
		Err:         e.err,
		Subscribers: e.subscribers,
		UpdatedAt:   e.updatedAt,
	}
}

// Len is the number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Observe registers interest in key, keeping its entry from GC until release is called.
func (c *Cache) Observe(key Key) (release func()) {
	id := key.String()

	c.mu.Lock()
	e, ok := c.entries[id]
	if !ok {
		e = &entry{key: key.clone(), status: StatusEmpty}
		c.entries[id] = e
	}
	e.subscribers++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if e, ok := c.entries[id]; ok && e.subscribers > 0 {
				e.subscribers--
				e.usedAt = c.now()
			}
		})
	}
}

// GC evicts entries that are unobserved, not fetching, and unused for the retention
// window. It returns the number evicted.
func (c *Cache) GC(now time.Time) int {
	if c.retention <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for id, e := range c.entries {
		if e.subscribers > 0 || e.call != nil {
			continue
		}
		if now.Sub(e.usedAt) < c.retention {
			continue
		}
		delete(c.entries, id)
		n++
	}
	evictionsTotal.Add(float64(n))
	return n
}

// Run collects garbage every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := c.GC(c.now()); n > 0 {
				slog.Debug("evicted idle queries", "count", n)
			}
		}
	}
}
