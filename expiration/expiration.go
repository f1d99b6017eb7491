// This file defines how cache entries expire over time.

package expiration

import (
	"time"

	"github.com/krisalay/minicache/types"
)

/*
Strategy is the interface that all expiration rules must follow. Instead of hard-coding
expiration logic into the engine, we define a strategy so the refresh-on-read choice is a
configuration switch rather than two engines.

Expiry is discovered lazily: the engine asks IsExpired when an entry is looked up, and there is
no background sweeper. An expired entry that is never read again stays resident, and keeps
counting against the memory budget, until it is overwritten, evicted or deleted.
*/
type Strategy interface {

	// IsExpired reports whether the entry is stale at now.
	// An entry is expired only when its age is strictly greater than the TTL.
	IsExpired(*types.Entry, types.Tick) bool

	// OnAccess is called after a hit. Writes always touch the entry in the store,
	// so there is no write hook. It reports whether it changed LastTouched,
	// so the engine knows to reorder the entry for eviction.
	OnAccess(*types.Entry, types.Tick) bool
}

// New returns the strategy matching the refresh-on-read setting.
func New(ttl time.Duration, refreshOnRead bool) Strategy {
	if refreshOnRead {
		return &ExpireAfterAccess{TTL: ttl}
	}
	return &ExpireAfterWrite{TTL: ttl}
}

func expired(ent *types.Entry, now types.Tick, ttl time.Duration) bool {
	return ent.Age(now) > types.TickOf(ttl)
}
