package types

import "github.com/krisalay/minicache/keys"

// Entry is one cached payload plus the bookkeeping the policies need.
// Size is fixed when the entry is written; LastTouched moves on writes and,
// with refresh-on-read, on hits. Entries are only mutated under the engine lock.
type Entry struct {
	Key         keys.CacheKey
	Payload     []byte
	Size        int64
	LastTouched Tick
}

// NewEntry builds an entry for payload touched at now. The payload is not copied.
func NewEntry(key keys.CacheKey, payload []byte, now Tick) *Entry {
	return &Entry{
		Key:         key,
		Payload:     payload,
		Size:        int64(len(payload)),
		LastTouched: now,
	}
}

// Age reports how long ago the entry was last touched.
func (e *Entry) Age(now Tick) Tick {
	return now - e.LastTouched
}
