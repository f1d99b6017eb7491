package engine

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jmgilman/go/errors"

	"github.com/krisalay/minicache/api"
	"github.com/krisalay/minicache/eviction"
	"github.com/krisalay/minicache/expiration"
	"github.com/krisalay/minicache/keys"
	"github.com/krisalay/minicache/store"
	"github.com/krisalay/minicache/types"
)

// ErrEntryTooLarge is matched (errors.Is) by the error Put returns for a payload bigger than the
// whole memory budget. Such a put is rejected and leaves the cache exactly as it was.
var ErrEntryTooLarge = errors.New(errors.CodeInvalidInput, "entry exceeds cache memory budget")

// Config is fixed at construction. There is no hot reload.
type Config struct {
	// TTL is the maximum age since last touch before an entry is discarded on lookup.
	TTL time.Duration

	// MemoryMax is the byte budget for the sum of all payload sizes.
	MemoryMax int64

	// RefreshOnRead makes hits touch the entry (sliding TTL, LRU-like eviction).
	// When false only writes touch (fixed TTL, FIFO-by-write eviction).
	RefreshOnRead bool

	// Eviction selects the eviction policy. Empty means eviction.Oldest.
	Eviction eviction.PolicyType
}

// Validate reports a configuration the engine cannot run with.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return errors.Newf(errors.CodeInvalidConfig, "ttl must be positive, got %s", c.TTL)
	}
	if c.MemoryMax <= 0 {
		return errors.Newf(errors.CodeInvalidConfig, "memory max must be positive, got %d", c.MemoryMax)
	}
	return nil
}

/*
CacheEngine is the "brain" of the cache system.
It owns one Store and runs every operation on it under a single lock.

It decides:
- Which key a (resource, origin) pair maps to
- When an entry is expired (lazily, on Get)
- Whether a hit refreshes the entry
- Which entries to evict after a Put, and when to stop
- When a payload is too large to cache at all

It does NOT:
- Talk to the durable store (see the read-through layer)
- Run background goroutines
- Block on I/O
*/
type CacheEngine struct {
	cfg Config

	// mu guards store and the eviction pass. Put holds it across insert + eviction,
	// so nobody observes the store over budget.
	mu    sync.RWMutex
	store *store.Store

	expiration expiration.Strategy
	eviction   eviction.Policy
	clock      types.Clock
	metrics    types.Metrics
	log        *slog.Logger
}

var _ api.Cache = (*CacheEngine)(nil)

// Option customizes a CacheEngine.
type Option func(*CacheEngine)

// WithClock replaces the monotonic clock, mainly for tests.
func WithClock(c types.Clock) Option {
	return func(e *CacheEngine) { e.clock = c }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m types.Metrics) Option {
	return func(e *CacheEngine) { e.metrics = m }
}

// WithLogger sets the logger used for debug output on evictions, expirations and rejects.
func WithLogger(l *slog.Logger) Option {
	return func(e *CacheEngine) { e.log = l }
}

// New creates an empty engine. It fails with CodeInvalidConfig for a non-positive TTL or
// memory budget, or an unknown eviction policy.
func New(cfg Config, opts ...Option) (*CacheEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := eviction.NewEvictionPolicy(cfg.Eviction)
	if err != nil {
		return nil, err
	}

	e := &CacheEngine{
		cfg:        cfg,
		store:      store.New(),
		expiration: expiration.New(cfg.TTL, cfg.RefreshOnRead),
		eviction:   policy,
	}
	for _, opt := range opts {
		opt(e)
	}

	// Ensure the collaborators are always non-nil.
	if e.clock == nil {
		e.clock = types.NewMonotonicClock()
	}
	if e.metrics == nil {
		e.metrics = types.NoopMetrics{}
	}
	if e.log == nil {
		e.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e, nil
}

/*
Get returns a copy of the payload stored for (resource, origin).

BEHAVIOR:
---------
- Absent: (nil, false)
- Present but expired: the entry is deleted and (nil, false) is returned
- Present and fresh: (payload, true); with RefreshOnRead the entry is touched

Without RefreshOnRead a hit only needs the read lock. An expired entry upgrades to the write lock
and is re-checked there, because another goroutine may have replaced it in between.
*/
func (e *CacheEngine) Get(resource, origin string) ([]byte, bool) {
	key := keys.Derive(resource, origin)
	now := e.clock.Now()

	if !e.cfg.RefreshOnRead {
		e.mu.RLock()
		ent, ok := e.store.Get(key)
		if ok && !e.expiration.IsExpired(ent, now) {
			out := cloneBytes(ent.Payload)
			e.mu.RUnlock()
			e.metrics.Hit()
			return out, true
		}
		e.mu.RUnlock()
		if !ok {
			e.metrics.Miss()
			return nil, false
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Re-read the clock under the write lock so a touch never moves LastTouched backwards.
	now = e.clock.Now()
	ent, ok := e.store.Get(key)
	if !ok {
		e.metrics.Miss()
		return nil, false
	}
	if e.expiration.IsExpired(ent, now) {
		e.store.Delete(key)
		e.metrics.Expire()
		e.metrics.Miss()
		e.log.Debug("cache entry expired",
			"key", key.String(),
			"age", ent.Age(now).Duration(),
			"bytes", ent.Size)
		return nil, false
	}
	if e.expiration.OnAccess(ent, now) {
		e.store.Touch(key, now)
	}
	e.metrics.Hit()
	return cloneBytes(ent.Payload), true
}

/*
Put stores a copy of payload for (resource, origin), then evicts until the store fits the budget.

A payload larger than MemoryMax is rejected with an error matching ErrEntryTooLarge. The store is
left untouched, including any older entry under the same key.

Put may evict other, unrelated entries. It never evicts the entry it just wrote.
*/
func (e *CacheEngine) Put(resource, origin string, payload []byte) error {
	size := int64(len(payload))
	if size > e.cfg.MemoryMax {
		e.metrics.Reject()
		e.log.Debug("cache entry rejected",
			"resource", resource,
			"bytes", humanize.IBytes(uint64(size)),
			"budget", humanize.IBytes(uint64(e.cfg.MemoryMax)))
		err := errors.Wrapf(ErrEntryTooLarge, errors.CodeInvalidInput,
			"payload of %d bytes exceeds budget of %d bytes", size, e.cfg.MemoryMax)
		return errors.WithContext(err, "resource", resource)
	}

	key := keys.Derive(resource, origin)
	data := append([]byte{}, payload...)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.store.Put(key, data, e.clock.Now())
	e.evictLocked(key)
	return nil
}

// evictLocked removes entries chosen by the policy until the store fits the budget.
// keep is never removed. Because keep alone fits (Put rejects bigger payloads),
// the loop always terminates within budget.
func (e *CacheEngine) evictLocked(keep keys.CacheKey) {
	for e.store.TotalBytes() > e.cfg.MemoryMax {
		victim, ok := e.eviction.Next(e.store, keep)
		if !ok {
			return
		}
		ent, _ := e.store.Get(victim)
		e.store.Delete(victim)
		e.metrics.Eviction()
		e.log.Debug("cache entry evicted",
			"key", victim.String(),
			"bytes", ent.Size,
			"usage", e.store.TotalBytes())
	}
}

// Delete removes (resource, origin). Deleting an absent entry is a no-op.
func (e *CacheEngine) Delete(resource, origin string) {
	key := keys.Derive(resource, origin)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Delete(key)
}

// Purge drops every entry, the same state a restarted process starts from.
func (e *CacheEngine) Purge() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.store.Reset()
}

// MemoryUsage returns the sum of payload sizes currently held, including expired
// entries that have not been looked up yet.
func (e *CacheEngine) MemoryUsage() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.TotalBytes()
}

// Size returns the number of entries currently held.
func (e *CacheEngine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.store.Len()
}

// Stats is a point-in-time view of the engine.
type Stats struct {
	Entries       int           `json:"entries"`
	MemoryUsage   int64         `json:"memory_usage_bytes"`
	MemoryMax     int64         `json:"memory_max_bytes"`
	TTL           time.Duration `json:"ttl_ns"`
	RefreshOnRead bool          `json:"refresh_on_read"`
}

// Stats reads size and usage under one lock so the two agree.
func (e *CacheEngine) Stats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Stats{
		Entries:       e.store.Len(),
		MemoryUsage:   e.store.TotalBytes(),
		MemoryMax:     e.cfg.MemoryMax,
		TTL:           e.cfg.TTL,
		RefreshOnRead: e.cfg.RefreshOnRead,
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
