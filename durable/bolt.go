package durable

import (
	"context"
	"time"

	"github.com/jmgilman/go/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/krisalay/minicache/types"
)

// DefaultBucket is the bucket (table) blobs are stored in.
const DefaultBucket = "files"

// Bolt stores blobs in one bbolt bucket, keyed by resource name.
// It is the database fallback next to the upload directory.
type Bolt struct {
	db     *bolt.DB
	bucket []byte
}

var _ types.Loader = (*Bolt)(nil)

// OpenBolt opens or creates the database at path and makes sure bucket exists.
// An empty bucket selects DefaultBucket.
func OpenBolt(path, bucket string) (*Bolt, error) {
	if bucket == "" {
		bucket = DefaultBucket
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeDatabase, "open database %s", path)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, errors.CodeDatabase, "create bucket %s", bucket)
	}
	return &Bolt{db: db, bucket: []byte(bucket)}, nil
}

// Close closes the underlying database.
func (b *Bolt) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Load returns a copy of the blob stored for name.
func (b *Bolt) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	if err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(b.bucket).Get([]byte(name))
		if v == nil {
			return nil
		}
		// bbolt values are only valid inside the transaction.
		out = append([]byte{}, v...)
		return nil
	}); err != nil {
		return nil, errors.Wrapf(err, errors.CodeDatabase, "read %s", name)
	}
	if out == nil {
		return nil, errors.WithContext(errors.Wrap(types.ErrNotFound, errors.CodeNotFound, "blob not found"), "name", name)
	}
	return out, nil
}

// Put stores payload under name, replacing any previous blob.
func (b *Bolt) Put(ctx context.Context, name string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return invalidName(name, "empty name")
	}

	if err := b.db.Update(func(tx *bolt.Tx) error {
		// bbolt treats a nil value as a delete marker in some versions; store an empty slice.
		if payload == nil {
			payload = []byte{}
		}
		return tx.Bucket(b.bucket).Put([]byte(name), payload)
	}); err != nil {
		return errors.Wrapf(err, errors.CodeDatabase, "write %s", name)
	}
	return nil
}

// Delete removes name. A missing key is not an error.
func (b *Bolt) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(b.bucket).Delete([]byte(name))
	}); err != nil {
		return errors.Wrapf(err, errors.CodeDatabase, "delete %s", name)
	}
	return nil
}
