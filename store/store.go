package store

import (
	"container/heap"
	"slices"

	"github.com/krisalay/minicache/keys"
	"github.com/krisalay/minicache/types"
)

/*
This file defines how cache entries are actually held in memory.

The store is a plain map plus two pieces of bookkeeping:
- a running byte total, so MemoryUsage never has to scan
- a min-heap ordered by (LastTouched, Key), so eviction can find the oldest entry in O(1)

The store does NOT lock. The engine owns one lock that covers the store and the
eviction pass together, which is what keeps the byte total exact.
*/

// Store is the keyed collection of entries owned by one engine.
type Store struct {
	items map[keys.CacheKey]*item

	// order is a heap over the same items, oldest touch first.
	order touchHeap

	// total is the sum of Size over all items.
	total int64
}

// item ties an entry to its position in the heap.
type item struct {
	entry *types.Entry
	index int
}

// New returns an empty store.
func New() *Store {
	return &Store{items: make(map[keys.CacheKey]*item)}
}

// Get returns the entry for key. It does not check expiry.
func (s *Store) Get(key keys.CacheKey) (*types.Entry, bool) {
	it, ok := s.items[key]
	if !ok {
		return nil, false
	}
	return it.entry, true
}

/*
Put inserts or overwrites the entry for key and marks it touched at now.

The running total drops by the previous size (when overwriting) and grows by the new one.
It returns the size of the entry it replaced, if any.
*/
func (s *Store) Put(key keys.CacheKey, payload []byte, now types.Tick) (previous int64, replaced bool) {
	ent := types.NewEntry(key, payload, now)

	if it, ok := s.items[key]; ok {
		previous = it.entry.Size
		s.total -= previous
		it.entry = ent
		heap.Fix(&s.order, it.index)
		s.total += ent.Size
		return previous, true
	}

	it := &item{entry: ent}
	heap.Push(&s.order, it)
	s.items[key] = it
	s.total += ent.Size
	return 0, false
}

// Touch moves the entry's LastTouched to now. It reports whether key was present.
func (s *Store) Touch(key keys.CacheKey, now types.Tick) bool {
	it, ok := s.items[key]
	if !ok {
		return false
	}
	it.entry.LastTouched = now
	heap.Fix(&s.order, it.index)
	return true
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Store) Delete(key keys.CacheKey) bool {
	it, ok := s.items[key]
	if !ok {
		return false
	}
	heap.Remove(&s.order, it.index)
	delete(s.items, key)
	s.total -= it.entry.Size
	return true
}

/*
Oldest returns the entry with the smallest (LastTouched, Key) other than skip.

The heap root is the oldest entry. If the root is skip, the runner-up is one of the
root's two children, so this stays O(1).
*/
func (s *Store) Oldest(skip keys.CacheKey) (*types.Entry, bool) {
	if len(s.order) == 0 {
		return nil, false
	}
	if root := s.order[0].entry; root.Key != skip {
		return root, true
	}

	var best *types.Entry
	for i := 1; i <= 2 && i < len(s.order); i++ {
		if e := s.order[i].entry; best == nil || older(e, best) {
			best = e
		}
	}
	return best, best != nil
}

// Keys returns every key currently stored, in no particular order.
func (s *Store) Keys() []keys.CacheKey {
	out := make([]keys.CacheKey, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	return out
}

// EntriesByTimeAscending returns all entries ordered by LastTouched, ties by key.
func (s *Store) EntriesByTimeAscending() []*types.Entry {
	out := make([]*types.Entry, 0, len(s.order))
	for _, it := range s.order {
		out = append(out, it.entry)
	}
	slices.SortFunc(out, func(a, b *types.Entry) int {
		if older(a, b) {
			return -1
		}
		if older(b, a) {
			return 1
		}
		return 0
	})
	return out
}

// Range calls fn for every entry until fn returns false. fn must not modify the store.
func (s *Store) Range(fn func(*types.Entry) bool) {
	for _, it := range s.order {
		if !fn(it.entry) {
			return
		}
	}
}

// TotalBytes is the running sum of entry sizes.
func (s *Store) TotalBytes() int64 {
	return s.total
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.items)
}

// Reset drops every entry.
func (s *Store) Reset() {
	s.items = make(map[keys.CacheKey]*item)
	s.order = nil
	s.total = 0
}

// older is the eviction order: earlier touch first, then ascending key.
func older(a, b *types.Entry) bool {
	if a.LastTouched != b.LastTouched {
		return a.LastTouched < b.LastTouched
	}
	return keys.Compare(a.Key, b.Key) < 0
}
