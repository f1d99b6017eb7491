package types

import (
	"context"

	"github.com/jmgilman/go/errors"
)

// ErrNotFound is returned by a Loader when the named resource does not exist in the durable store.
var ErrNotFound = errors.New(errors.CodeNotFound, "resource not found")

// Loader is the contract between the cache and the durable store behind it.
type Loader interface {

	/*
		Load is called when the cache misses.
		1. Engine reports a miss for (name, origin)
		2. Read-through layer calls Load(name)
		3. Loader reads the blob from disk / database / object storage
		4. The bytes are put into the cache for the next request

		Implementations return an error matching ErrNotFound when the name does not exist.
	*/
	Load(ctx context.Context, name string) ([]byte, error)

	// Put persists payload under name. Write policies call it; it never touches the cache.
	Put(ctx context.Context, name string, payload []byte) error

	// Delete removes name from the durable store. Deleting a missing name is not an error.
	Delete(ctx context.Context, name string) error
}
