package durable

import (
	"context"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/jmgilman/go/errors"

	"github.com/krisalay/minicache/types"
)

// FS stores each resource as a file under a go-billy filesystem.
// Production uses osfs rooted at the upload directory; tests use memfs.
type FS struct {
	bfs billy.Filesystem
}

var _ types.Loader = (*FS)(nil)

// NewFS wraps an existing billy filesystem.
func NewFS(bfs billy.Filesystem) *FS {
	return &FS{bfs: bfs}
}

// NewLocalFS stores files under dir on the local disk, creating dir if needed.
func NewLocalFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "create storage dir %s", dir)
	}
	return NewFS(osfs.New(dir)), nil
}

// Load reads the file for name.
func (f *FS) Load(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}

	data, err := util.ReadFile(f.bfs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WithContext(errors.Wrap(types.ErrNotFound, errors.CodeNotFound, "file not found"), "name", name)
		}
		return nil, errors.Wrapf(err, errors.CodeInternal, "read %s", name)
	}
	return data, nil
}

// Put writes payload to the file for name, creating parent directories.
func (f *FS) Put(ctx context.Context, name string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := CleanName(name)
	if err != nil {
		return err
	}

	if dir := path.Dir(name); dir != "." {
		if err := f.bfs.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, errors.CodeInternal, "create directory %s", dir)
		}
	}
	if err := util.WriteFile(f.bfs, name, payload, 0o644); err != nil {
		return errors.Wrapf(err, errors.CodeInternal, "write %s", name)
	}
	return nil
}

// Delete removes the file for name. A missing file is not an error.
func (f *FS) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, err := CleanName(name)
	if err != nil {
		return err
	}

	if err := f.bfs.Remove(name); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.CodeInternal, "remove %s", name)
	}
	return nil
}
