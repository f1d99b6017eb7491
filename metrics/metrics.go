// Package metrics counts cache events for the /stats endpoint and the demo.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/krisalay/minicache/types"
)

// Counters implements types.Metrics with lock-free counters.
// The zero value is not usable; call New so uptime has a start.
type Counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
	expired   atomic.Int64
	rejected  atomic.Int64

	// Durable-store traffic, recorded by the read-through layer.
	loads     atomic.Int64
	loadBytes atomic.Int64

	start time.Time
}

var _ types.Metrics = (*Counters)(nil)

// New returns zeroed counters.
func New() *Counters {
	return &Counters{start: time.Now()}
}

func (c *Counters) Hit()      { c.hits.Add(1) }
func (c *Counters) Miss()     { c.misses.Add(1) }
func (c *Counters) Eviction() { c.evictions.Add(1) }
func (c *Counters) Expire()   { c.expired.Add(1) }
func (c *Counters) Reject()   { c.rejected.Add(1) }

// Load records one read from the durable store after a miss.
func (c *Counters) Load(bytes int) {
	c.loads.Add(1)
	c.loadBytes.Add(int64(bytes))
}

// Snapshot is a copy of the counters at one instant.
type Snapshot struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	Expired   int64   `json:"expired"`
	Rejected  int64   `json:"rejected"`
	Loads     int64   `json:"durable_loads"`
	LoadBytes int64   `json:"durable_load_bytes"`
	HitRatio  float64 `json:"hit_ratio"`
	Uptime    string  `json:"uptime"`
}

// Snapshot reads every counter. Counters are read one by one, so a snapshot
// taken under load may be off by in-flight events.
func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Expired:   c.expired.Load(),
		Rejected:  c.rejected.Load(),
		Loads:     c.loads.Load(),
		LoadBytes: c.loadBytes.Load(),
		Uptime:    time.Since(c.start).Round(time.Second).String(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRatio = float64(s.Hits) / float64(total)
	}
	return s
}
