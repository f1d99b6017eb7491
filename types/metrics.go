package types

// This file defines how the cache reports what it is doing.

/*
Metrics receives one call per cache event. The engine and the read-through layer call these
methods inline, so implementations must be cheap and safe for concurrent use.
*/
type Metrics interface {

	// Hit is called when a lookup finds a live entry.
	Hit()

	// Miss is called when a lookup finds nothing, or finds an expired entry.
	Miss()

	// Eviction is called for every entry removed to get back under the memory budget.
	Eviction()

	// Expire is called when a lookup discovers an entry past its TTL and removes it.
	Expire()

	// Reject is called when a payload larger than the whole memory budget is refused.
	Reject()
}

// NoopMetrics ignores every event. It is the default when no Metrics is configured,
// so callers never need a nil check.
type NoopMetrics struct{}

func (NoopMetrics) Hit()      {}
func (NoopMetrics) Miss()     {}
func (NoopMetrics) Eviction() {}
func (NoopMetrics) Expire()   {}
func (NoopMetrics) Reject()   {}
