package expiration

import (
	"time"

	"github.com/krisalay/minicache/types"
)

// ExpireAfterWrite gives every entry a fixed lifetime from its last write.
// Reads never extend it, so eviction order is FIFO by write.
type ExpireAfterWrite struct {
	TTL time.Duration
}

func (e *ExpireAfterWrite) IsExpired(ent *types.Entry, now types.Tick) bool {
	return expired(ent, now, e.TTL)
}

func (e *ExpireAfterWrite) OnAccess(*types.Entry, types.Tick) bool { return false }
