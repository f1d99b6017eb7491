package eviction

import (
	"github.com/jmgilman/go/errors"

	"github.com/krisalay/minicache/keys"
	"github.com/krisalay/minicache/store"
)

/*
This file defines how the engine decides what to remove when the store is over its memory budget.
*/

/*
Policy is the interface that all eviction strategies must follow.

The engine does NOT care how a policy ranks entries. After every Put it asks for one victim at a
time, removes it, and asks again while the store is still over budget:

	for store.TotalBytes() > budget {
		victim, ok := policy.Next(store, justWritten)
		if !ok { break }
		store.Delete(victim)
	}

Policies only read the store; the engine does the removal under its lock.
*/
type Policy interface {

	// Next returns the key that should be removed next.
	//
	// keep is the key that was just written; it must never be returned.
	// ok is false when nothing but keep is left.
	Next(s *store.Store, keep keys.CacheKey) (victim keys.CacheKey, ok bool)
}

// PolicyType is a simple identifier for supported eviction strategies.
type PolicyType string

const (
	// Oldest evicts the entry with the oldest last touch, ties broken by ascending key.
	// With refresh-on-read disabled this is FIFO by write; enabled, it approximates LRU.
	Oldest PolicyType = "oldest"

	// Largest evicts the biggest entry first, freeing the budget with the fewest removals.
	Largest PolicyType = "largest"
)

// NewEvictionPolicy is a small factory function.
// Given a PolicyType, it creates the matching policy. An empty type selects Oldest.
func NewEvictionPolicy(t PolicyType) (Policy, error) {
	switch t {
	case Oldest, "":
		return OldestTouched{}, nil
	case Largest:
		return LargestFirst{}, nil
	default:
		return nil, errors.Newf(errors.CodeInvalidConfig, "unknown eviction policy %q", t)
	}
}
