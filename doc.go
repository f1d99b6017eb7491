// Package minicache puts the in-memory cache engine in front of durable blob stores.
//
// A ReadThrough answers reads from the engine when it can and from its durable store when it
// cannot, filling the cache on the way back. Uploads go to the durable store through a write
// policy and are cached at the same time.
package minicache
