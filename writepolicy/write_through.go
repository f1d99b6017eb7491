package writepolicy

import (
	"context"

	"github.com/krisalay/minicache/types"
)

/*
WriteThroughPolicy forwards every write to the durable store synchronously.

So the flow is: upload → durable write → cache populate. If the durable store is slow, uploads
are slow, but an upload that succeeded is always persisted.
*/
type WriteThroughPolicy struct {

	// store is the durable store where data must be persisted immediately.
	store types.Loader
}

// NewWriteThroughPolicy creates a new write-through policy.
func NewWriteThroughPolicy(store types.Loader) *WriteThroughPolicy {
	return &WriteThroughPolicy{store: store}
}

// OnWrite persists payload and returns the durable store's error, if any.
func (w *WriteThroughPolicy) OnWrite(ctx context.Context, name string, payload []byte) error {
	return w.store.Put(ctx, name, payload)
}

// OnDelete removes name synchronously.
func (w *WriteThroughPolicy) OnDelete(ctx context.Context, name string) error {
	return w.store.Delete(ctx, name)
}

// Close has nothing to flush.
func (w *WriteThroughPolicy) Close() error { return nil }
