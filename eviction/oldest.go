package eviction

import (
	"github.com/krisalay/minicache/keys"
	"github.com/krisalay/minicache/store"
)

// OldestTouched removes the least recently touched entry first.
// The store keeps a heap in this exact order, so each pick is O(1).
type OldestTouched struct{}

func (OldestTouched) Next(s *store.Store, keep keys.CacheKey) (keys.CacheKey, bool) {
	ent, ok := s.Oldest(keep)
	if !ok {
		return keys.CacheKey{}, false
	}
	return ent.Key, true
}
