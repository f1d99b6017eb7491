package durable

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/jmgilman/go/errors"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/krisalay/minicache/types"
)

// MinioConfig selects the bucket blobs are stored in.
// Either Client or Endpoint with credentials must be set.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`

	// Prefix namespaces every object key, e.g. "minicache/".
	Prefix string `yaml:"prefix"`

	// Client, when set, is used as-is and the connection fields are ignored.
	Client *minio.Client `yaml:"-"`
}

// Enabled reports whether an object store was configured at all.
func (c MinioConfig) Enabled() bool {
	return c.Client != nil || c.Endpoint != ""
}

func (c MinioConfig) validate() error {
	if c.Bucket == "" {
		return errors.New(errors.CodeInvalidConfig, "minio bucket is required")
	}
	if c.Client != nil {
		return nil
	}
	if c.Endpoint == "" {
		return errors.New(errors.CodeInvalidConfig, "minio endpoint is required when no client is provided")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return errors.New(errors.CodeInvalidConfig, "minio credentials are required when no client is provided")
	}
	return nil
}

// Minio stores blobs as objects in an S3-compatible bucket.
type Minio struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ types.Loader = (*Minio)(nil)

// NewMinio builds the store. It does not contact the server.
func NewMinio(cfg MinioConfig) (*Minio, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	client := cfg.Client
	if client == nil {
		var err error
		client, err = minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "create minio client")
		}
	}

	return &Minio{
		client: client,
		bucket: cfg.Bucket,
		prefix: normalizePrefix(cfg.Prefix),
	}, nil
}

// objectKey maps a resource name to its object key.
func (m *Minio) objectKey(name string) (string, error) {
	name, err := CleanName(name)
	if err != nil {
		return "", err
	}
	if m.prefix == "" {
		return name, nil
	}
	return m.prefix + "/" + name, nil
}

// Load downloads the object for name.
func (m *Minio) Load(ctx context.Context, name string) ([]byte, error) {
	key, err := m.objectKey(name)
	if err != nil {
		return nil, err
	}

	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, translateMinio(err, "get", key)
	}
	defer obj.Close()

	// GetObject is lazy; a missing key only surfaces on the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translateMinio(err, "read", key)
	}
	return data, nil
}

// Put uploads payload as the object for name.
func (m *Minio) Put(ctx context.Context, name string, payload []byte) error {
	key, err := m.objectKey(name)
	if err != nil {
		return err
	}

	_, err = m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return translateMinio(err, "put", key)
	}
	return nil
}

// Delete removes the object for name. S3 treats a missing key as success.
func (m *Minio) Delete(ctx context.Context, name string) error {
	key, err := m.objectKey(name)
	if err != nil {
		return err
	}
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return translateMinio(err, "remove", key)
	}
	return nil
}

// translateMinio maps S3 error codes onto the error codes the rest of the service understands.
func translateMinio(err error, op, key string) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey":
		return errors.WithContext(errors.Wrap(types.ErrNotFound, errors.CodeNotFound, "object not found"), "key", key)
	case "NoSuchBucket":
		return errors.Wrapf(err, errors.CodeInvalidConfig, "minio %s %s: bucket does not exist", op, key)
	case "AccessDenied":
		return errors.Wrapf(err, errors.CodeForbidden, "minio %s %s", op, key)
	}
	return errors.Wrapf(err, errors.CodeNetwork, "minio %s %s", op, key)
}

func normalizePrefix(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return strings.Trim(p, "/")
}
