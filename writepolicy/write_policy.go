package writepolicy

import (
	"context"
	"log/slog"

	"github.com/jmgilman/go/errors"

	"github.com/krisalay/minicache/types"
)

/*
This file defines what a "write policy" is.

An upload has to reach the durable store; the cache is only a copy. Different deployments want
different trade-offs:
- write-through: the upload returns only once the durable store has the bytes
- write-back: the upload returns immediately and a worker persists the bytes later
*/

/*
WritePolicy is the contract that all write policies must follow.
The read-through layer does not care which policy is used. It simply calls these methods.
*/
type WritePolicy interface {

	// OnWrite hands one upload to the durable store.
	OnWrite(ctx context.Context, name string, payload []byte) error

	// OnDelete removes name from the durable store. It is ordered after every
	// OnWrite that returned before it.
	OnDelete(ctx context.Context, name string) error

	// Close is called when the service is shutting down. Pending writes are flushed.
	Close() error
}

// Kind names a write policy in configuration.
type Kind string

const (
	Through Kind = "through"
	Back    Kind = "back"
)

// New builds the policy named by kind on top of store. buffer is the write-back queue length.
func New(kind Kind, store types.Loader, buffer int, log *slog.Logger) (WritePolicy, error) {
	switch kind {
	case Through, "":
		return NewWriteThroughPolicy(store), nil
	case Back:
		return NewWriteBackPolicy(store, buffer, log), nil
	default:
		return nil, errors.Newf(errors.CodeInvalidConfig, "unknown write policy %q", kind)
	}
}
