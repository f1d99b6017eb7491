package expiration

import (
	"time"

	"github.com/krisalay/minicache/types"
)

/*
ExpireAfterAccess implements "expire after access", also called sliding TTL.
Every hit pushes the entry's last touch forward. As long as the data keeps getting read, it
stays alive; eviction then behaves like LRU because reads reorder entries.
*/
type ExpireAfterAccess struct {

	// TTL is how long an entry stays valid after its last write or hit.
	TTL time.Duration
}

// IsExpired checks whether the entry is expired at this moment.
func (e *ExpireAfterAccess) IsExpired(ent *types.Entry, now types.Tick) bool {
	return expired(ent, now, e.TTL)
}

// OnAccess refreshes LastTouched. This is the key part of "expire after access".
func (e *ExpireAfterAccess) OnAccess(ent *types.Entry, now types.Tick) bool {
	ent.LastTouched = now
	return true
}
