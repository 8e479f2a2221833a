package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("query cache closed")

// Status is the lifecycle state of a cache entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// FetchFunc loads the data for one key.
type FetchFunc func(ctx context.Context) (any, error)

// Snapshot is a copy of one entry's state.
type Snapshot struct {
	Key        Key
	Status     Status
	Data       any
	HasData    bool
	Err        error
	UpdatedAt  time.Time
	Stale      bool
	Fetching   bool
	Generation uint64
}

// Event tells subscribers that an entry changed.
type Event struct {
	Key      Key
	Status   Status
	Fetching bool
}

// Stats summarises the cache for display.
type Stats struct {
	Entries   int
	Mounted   int
	Fetching  int
	Discarded uint64
}

// Options configures a Cache.
type Options struct {
	// StaleTime is how long fetched data counts as fresh. Zero means data is
	// stale as soon as it arrives.
	StaleTime time.Duration
	// GCTime is how long an unwatched entry survives before the janitor
	// evicts it. Zero disables eviction.
	GCTime time.Duration
	Logger *slog.Logger
	Now    func() time.Time
}

type entry struct {
	key        Key
	status     Status
	data       any
	hasData    bool
	err        error
	updatedAt  time.Time
	touchedAt  time.Time
	stale      bool
	generation uint64
	settledGen uint64
	inflight   bool // current generation not yet settled
	running    int  // fetches still executing, any generation
	watchers   int
	fn         FetchFunc
}

// Cache holds query results keyed by Key. All methods are safe for concurrent
// use. Each entry is updated under the cache mutex, and a response is applied
// only when its generation is still the entry's current one.
type Cache struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group
	wg     sync.WaitGroup

	mu        sync.Mutex
	entries   map[string]*entry
	subs      map[int]chan Event
	nextSub   int
	discarded uint64
	closed    bool
}

// New creates a cache. Call Close to stop background work.
func New(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		opts:    opts,
		logger:  logger,
		now:     now,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]*entry),
		subs:    make(map[int]chan Event),
	}
}

// Fetch returns the entry for key, loading it with fn when needed.
//
// Fresh data is returned immediately. Stale data is returned immediately and
// a background refetch is started. Without data the call waits for the
// in-flight fetch, which all concurrent callers of the key share. The
// returned error is the entry's error, or ctx's error if ctx ends first.
func (c *Cache) Fetch(ctx context.Context, key Key, fn FetchFunc) (Snapshot, error) {
	hash := key.hash()
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return Snapshot{Key: key.clone()}, ErrClosed
		}
		e := c.entryLocked(key, hash)
		e.fn = fn
		e.touchedAt = c.now()

		if e.hasData {
			if c.staleLocked(e) && !e.inflight {
				c.startLocked(hash, e)
			}
			snap := c.snapshotLocked(e)
			c.mu.Unlock()
			return snap, snap.Err
		}

		gen := e.generation
		if !e.inflight {
			gen = c.startLocked(hash, e)
		}
		c.mu.Unlock()

		if err := c.wait(ctx, hash, gen, fn); err != nil {
			snap, _ := c.Peek(key)
			return snap, err
		}

		c.mu.Lock()
		e, ok := c.entries[hash]
		if !ok {
			// Evicted while waiting; start over with a fresh entry.
			c.mu.Unlock()
			continue
		}
		if e.generation == gen {
			snap := c.snapshotLocked(e)
			c.mu.Unlock()
			return snap, snap.Err
		}
		// Superseded while waiting; go round and join the newer generation.
		c.mu.Unlock()
	}
}

// Peek returns the entry for key without fetching.
func (c *Cache) Peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.hash()]
	if !ok {
		return Snapshot{Key: key.clone()}, false
	}
	return c.snapshotLocked(e), true
}

// Refetch starts a new generation for key even when one is in flight and
// waits for it. The key must have been fetched or watched before.
func (c *Cache) Refetch(ctx context.Context, key Key) (Snapshot, error) {
	hash := key.hash()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Snapshot{Key: key.clone()}, ErrClosed
	}
	e, ok := c.entries[hash]
	if !ok || e.fn == nil {
		c.mu.Unlock()
		return Snapshot{Key: key.clone()}, fmt.Errorf("refetch %s: no fetcher registered", key)
	}
	fn := e.fn
	gen := c.startLocked(hash, e)
	c.mu.Unlock()

	if err := c.wait(ctx, hash, gen, fn); err != nil {
		snap, _ := c.Peek(key)
		return snap, err
	}
	snap, _ := c.Peek(key)
	return snap, snap.Err
}

// Watch marks key as mounted. Mounted keys are refetched with fn as soon as
// they are invalidated and are never evicted. The returned func unmounts.
func (c *Cache) Watch(key Key, fn FetchFunc) func() {
	hash := key.hash()
	c.mu.Lock()
	e := c.entryLocked(key, hash)
	e.watchers++
	if fn != nil {
		e.fn = fn
	}
	e.touchedAt = c.now()
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if e, ok := c.entries[hash]; ok && e.watchers > 0 {
				e.watchers--
				e.touchedAt = c.now()
			}
		})
	}
}

// Invalidate marks every entry matching one of patterns as stale and
// supersedes its in-flight fetch. Mounted entries are refetched immediately;
// the rest refetch on their next read. It returns the number of entries
// matched.
func (c *Cache) Invalidate(patterns ...Key) int {
	if len(patterns) == 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}

	matched := 0
	for hash, e := range c.entries {
		if !matchesAny(e.key, patterns) {
			continue
		}
		matched++
		e.stale = true
		if e.watchers > 0 && e.fn != nil {
			c.startLocked(hash, e)
			continue
		}
		e.generation++
		e.inflight = false
		if !e.hasData && e.status == StatusLoading {
			e.status = StatusIdle
		}
		c.emitLocked(e)
	}
	c.logger.Debug("invalidated", "patterns", patternList(patterns), "matched", matched)
	return matched
}

// Subscribe returns a channel of entry change events and a func that ends the
// subscription. Events are dropped for a subscriber that falls behind.
func (c *Cache) Subscribe() (<-chan Event, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan Event, 256)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Stats returns entry counts.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Stats{Entries: len(c.entries), Discarded: c.discarded}
	for _, e := range c.entries {
		if e.watchers > 0 {
			st.Mounted++
		}
		if e.inflight {
			st.Fetching++
		}
	}
	return st
}

// Close stops background fetches and ends all subscriptions.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.cancel()
	c.mu.Unlock()

	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}

func (c *Cache) entryLocked(key Key, hash string) *entry {
	e, ok := c.entries[hash]
	if !ok {
		e = &entry{key: key.clone(), touchedAt: c.now()}
		c.entries[hash] = e
	}
	return e
}

func (c *Cache) staleLocked(e *entry) bool {
	if e.stale || e.status == StatusError {
		return true
	}
	return c.now().Sub(e.updatedAt) >= c.opts.StaleTime
}

// startLocked opens a new generation for e and launches its fetch.
func (c *Cache) startLocked(hash string, e *entry) uint64 {
	e.generation++
	gen := e.generation
	e.inflight = true
	if !e.hasData {
		e.status = StatusLoading
	}
	c.emitLocked(e)

	fn := e.fn
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_, _, _ = c.group.Do(flightKey(hash, gen), func() (any, error) {
			c.run(hash, gen, fn)
			return nil, nil
		})
	}()
	return gen
}

// wait blocks until generation gen of hash has settled or ctx ends.
func (c *Cache) wait(ctx context.Context, hash string, gen uint64, fn FetchFunc) error {
	ch := c.group.DoChan(flightKey(hash, gen), func() (any, error) {
		c.run(hash, gen, fn)
		return nil, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

func (c *Cache) run(hash string, gen uint64, fn FetchFunc) {
	c.mu.Lock()
	e, ok := c.entries[hash]
	if !ok || e.generation != gen || e.settledGen == gen || fn == nil {
		c.mu.Unlock()
		return
	}
	key := e.key
	e.running++
	owner := e
	c.mu.Unlock()

	start := c.now()
	data, err := fn(c.ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	owner.running--
	e, ok = c.entries[hash]
	if !ok || e.generation != gen {
		c.discarded++
		c.logger.Debug("discarding superseded response", "key", key.String(), "generation", gen)
		return
	}
	e.settledGen = gen
	e.inflight = false
	e.stale = false
	e.updatedAt = c.now()
	if err != nil {
		e.status = StatusError
		e.err = err
		c.logger.Warn("query failed", "key", key.String(), "generation", gen, "error", err)
	} else {
		e.status = StatusSuccess
		e.data = data
		e.hasData = true
		e.err = nil
		c.logger.Debug("query done", "key", key.String(), "generation", gen, "duration", c.now().Sub(start))
	}
	c.emitLocked(e)
}

func (c *Cache) snapshotLocked(e *entry) Snapshot {
	return Snapshot{
		Key:        e.key.clone(),
		Status:     e.status,
		Data:       e.data,
		HasData:    e.hasData,
		Err:        e.err,
		UpdatedAt:  e.updatedAt,
		Stale:      e.hasData && c.staleLocked(e),
		Fetching:   e.inflight,
		Generation: e.generation,
	}
}

func (c *Cache) emitLocked(e *entry) {
	if len(c.subs) == 0 {
		return
	}
	ev := Event{Key: e.key.clone(), Status: e.status, Fetching: e.inflight}
	for _, ch := range c.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func flightKey(hash string, gen uint64) string {
	return fmt.Sprintf("%s#%d", hash, gen)
}

func matchesAny(k Key, patterns []Key) bool {
	for _, p := range patterns {
		if k.Matches(p) {
			return true
		}
	}
	return false
}

func patternList(patterns []Key) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.String()
	}
	return out
}
