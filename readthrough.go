package minicache

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/jmgilman/go/errors"
	"golang.org/x/sync/singleflight"

	"github.com/krisalay/minicache/api"
	"github.com/krisalay/minicache/durable"
	"github.com/krisalay/minicache/engine"
	"github.com/krisalay/minicache/keys"
	"github.com/krisalay/minicache/types"
	"github.com/krisalay/minicache/writepolicy"
)

// Source says where a fetched payload came from.
type Source string

// SourceCache marks a payload served from memory. Durable sources are named by their ReadThrough.
const SourceCache Source = "cache"

// LoadRecorder is told about every successful durable read. *metrics.Counters satisfies it.
type LoadRecorder interface {
	Load(bytes int)
}

/*
ReadThrough is the orchestrator between one durable store and the shared cache.
It connects:
- the cache engine (memory, TTL, eviction)
- a loader (upload directory, database, bucket)
- a write policy (how uploads reach the loader)
- metrics for durable reads

Several ReadThroughs may share one engine. Each one prefixes resource names with its namespace,
so "a.pdf" in the database and "a.pdf" on disk never share an entry.

The durable store holds one copy per name, but the cache holds one copy per (name, origin).
Uploads and deletes therefore drop the cached copy of every origin, not just the caller's.
*/
type ReadThrough struct {
	cache  api.Cache
	loader types.Loader
	writes writepolicy.WritePolicy

	// source is reported for payloads read from loader, e.g. "fs" or "db".
	source    Source
	namespace string

	loads LoadRecorder
	log   *slog.Logger

	// sf makes concurrent misses on the same key share one durable read.
	sf singleflight.Group

	// origins lists, per resource, the origins that may hold a cached copy.
	mu      sync.Mutex
	origins map[string]map[string]struct{}
}

// Option customizes a ReadThrough.
type Option func(*ReadThrough)

// WithWritePolicy replaces the default write-through policy.
func WithWritePolicy(p writepolicy.WritePolicy) Option {
	return func(rt *ReadThrough) { rt.writes = p }
}

// WithNamespace separates this store's entries from other stores sharing the engine.
func WithNamespace(ns string) Option {
	return func(rt *ReadThrough) { rt.namespace = ns }
}

// WithLoadRecorder counts durable reads.
func WithLoadRecorder(r LoadRecorder) Option {
	return func(rt *ReadThrough) { rt.loads = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(rt *ReadThrough) { rt.log = l }
}

// NewReadThrough puts cache in front of loader. source labels payloads that missed the cache.
func NewReadThrough(cache api.Cache, loader types.Loader, source Source, opts ...Option) *ReadThrough {
	rt := &ReadThrough{
		cache:   cache,
		loader:  loader,
		source:  source,
		origins: make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(rt)
	}
	if rt.writes == nil {
		rt.writes = writepolicy.NewWriteThroughPolicy(loader)
	}
	if rt.log == nil {
		rt.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return rt
}

// Source returns the label used for payloads read from the durable store.
func (rt *ReadThrough) Source() Source {
	return rt.source
}

func (rt *ReadThrough) resource(name string) string {
	if rt.namespace == "" {
		return name
	}
	return rt.namespace + ":" + name
}

/*
Fetch returns the payload for name as requested from origin.

FLOW:
-----
1. Cache hit: return the cached copy, SourceCache
2. Cache miss: read the durable store once (concurrent misses wait for the same read)
3. Put the bytes into the cache and return them with the store's Source

A payload too large for the cache is still returned; it is just not cached.
A name missing from the durable store yields an error matching types.ErrNotFound.
Names are canonicalized with durable.CleanName, so "a//b" and "a/b" are one resource.
*/
func (rt *ReadThrough) Fetch(ctx context.Context, name, origin string) ([]byte, Source, error) {
	name, err := durable.CleanName(name)
	if err != nil {
		return nil, "", err
	}
	resource := rt.resource(name)
	if data, ok := rt.cache.Get(resource, origin); ok {
		return data, SourceCache, nil
	}

	v, err, shared := rt.sf.Do(keys.Derive(resource, origin).String(), func() (any, error) {
		data, err := rt.loader.Load(ctx, name)
		if err != nil {
			return nil, err
		}
		if rt.loads != nil {
			rt.loads.Load(len(data))
		}
		rt.populate(resource, origin, data)
		return data, nil
	})
	if err != nil {
		return nil, "", err
	}

	data := v.([]byte)
	if shared {
		// Every waiter got the same slice.
		data = append([]byte{}, data...)
	}
	return data, rt.source, nil
}

/*
Store persists payload under name through the write policy, then caches it for origin.

If the write policy fails, the cache is left alone and the error is returned.
Otherwise the older copies cached for other origins are dropped, so they re-read the new bytes.
A payload too large for the cache is persisted but not cached.
*/
func (rt *ReadThrough) Store(ctx context.Context, name, origin string, payload []byte) error {
	name, err := durable.CleanName(name)
	if err != nil {
		return err
	}
	if err := rt.writes.OnWrite(ctx, name, payload); err != nil {
		return err
	}
	resource := rt.resource(name)
	rt.dropAll(resource)
	rt.populate(resource, origin, payload)
	return nil
}

func (rt *ReadThrough) populate(resource, origin string, payload []byte) {
	err := rt.cache.Put(resource, origin, payload)
	if err == nil {
		rt.track(resource, origin)
		return
	}
	if errors.Is(err, engine.ErrEntryTooLarge) {
		rt.cache.Delete(resource, origin)
		rt.log.Info("payload not cached", "resource", resource, "bytes", len(payload), "reason", err.Error())
		return
	}
	rt.log.Warn("cache put failed", "resource", resource, "error", err)
}

// Invalidate deletes name from the durable store through the write policy, then drops the
// cached copy of every origin. origin is the caller's and is always dropped.
// The cache entries are kept if the delete fails.
func (rt *ReadThrough) Invalidate(ctx context.Context, name, origin string) error {
	name, err := durable.CleanName(name)
	if err != nil {
		return err
	}
	if err := rt.writes.OnDelete(ctx, name); err != nil {
		return err
	}
	resource := rt.resource(name)
	rt.cache.Delete(resource, origin)
	rt.dropAll(resource)
	return nil
}

func (rt *ReadThrough) track(resource, origin string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	set, ok := rt.origins[resource]
	if !ok {
		set = make(map[string]struct{})
		rt.origins[resource] = set
	}
	set[origin] = struct{}{}
}

// dropAll removes resource from the cache for every origin that cached it.
// Entries the engine already evicted or expired are deleted again, which is a no-op.
func (rt *ReadThrough) dropAll(resource string) {
	rt.mu.Lock()
	set := rt.origins[resource]
	delete(rt.origins, resource)
	rt.mu.Unlock()

	for origin := range set {
		rt.cache.Delete(resource, origin)
	}
}

// Close flushes the write policy.
func (rt *ReadThrough) Close() error {
	return rt.writes.Close()
}
