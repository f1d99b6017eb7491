package api

/*
Cache defines the contract the HTTP-facing layer depends on.
It hides key derivation, storage, expiration, eviction and locking behind five calls.

*engine.CacheEngine satisfies it.
*/
type Cache interface {

	/*
		Get returns the cached payload for a resource requested from an origin.

		BEHAVIOR:
		-------------------
		1. The entry exists and is NOT expired:
		   - Return a copy of the payload and true (cache hit)

		2. The entry does NOT exist, or is expired:
		   - Return nil and false (cache miss); an expired entry is removed
		   - The caller falls back to the durable store

		A miss is not an error.
	*/
	Get(resource, origin string) ([]byte, bool)

	/*
		Put stores a payload for a resource requested from an origin.

		BEHAVIOR:
		---------
		- Stores a copy of the payload in memory and marks it touched now
		- Evicts other entries, oldest first, until the memory budget holds again
		- Rejects a payload bigger than the whole budget with an error and changes nothing
	*/
	Put(resource, origin string, payload []byte) error

	/*
		Delete removes the entry immediately.

		USE CASES:
		----------
		- Forcing a re-read after the durable copy changed
		- Removing a resource that was deleted from the durable store

		This operation is idempotent: deleting a missing entry is safe.
	*/
	Delete(resource, origin string)

	// MemoryUsage returns the bytes currently held. It has no side effects.
	MemoryUsage() int64

	// Size returns the number of entries currently held. It has no side effects.
	Size() int
}
