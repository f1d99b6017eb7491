package eviction

import (
	"github.com/krisalay/minicache/keys"
	"github.com/krisalay/minicache/store"
	"github.com/krisalay/minicache/types"
)

// LargestFirst removes the biggest entry first. Equal sizes fall back to the
// oldest touch, then ascending key, so the order is reproducible.
//
// Each pick scans the store, O(n).
type LargestFirst struct{}

func (LargestFirst) Next(s *store.Store, keep keys.CacheKey) (keys.CacheKey, bool) {
	var best *types.Entry
	s.Range(func(e *types.Entry) bool {
		if e.Key != keep && (best == nil || larger(e, best)) {
			best = e
		}
		return true
	})
	if best == nil {
		return keys.CacheKey{}, false
	}
	return best.Key, true
}

func larger(a, b *types.Entry) bool {
	if a.Size != b.Size {
		return a.Size > b.Size
	}
	if a.LastTouched != b.LastTouched {
		return a.LastTouched < b.LastTouched
	}
	return keys.Compare(a.Key, b.Key) < 0
}
