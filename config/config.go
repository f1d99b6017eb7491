// Package config loads service settings from an optional YAML file and MINICACHE_* variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jmgilman/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/krisalay/minicache/durable"
	"github.com/krisalay/minicache/engine"
	"github.com/krisalay/minicache/eviction"
	"github.com/krisalay/minicache/writepolicy"
)

// Environment variables, applied after the file.
const (
	EnvAddr          = "MINICACHE_ADDR"
	EnvStorageDir    = "MINICACHE_STORAGE_DIR"
	EnvDBPath        = "MINICACHE_DB_PATH"
	EnvDBBackend     = "MINICACHE_DB_BACKEND"
	EnvTTL           = "MINICACHE_TTL"
	EnvMemory        = "MINICACHE_MEMORY"
	EnvRefreshOnRead = "MINICACHE_REFRESH_ON_READ"
	EnvEviction      = "MINICACHE_EVICTION"
	EnvWritePolicy   = "MINICACHE_WRITE_POLICY"
	EnvLogLevel      = "MINICACHE_LOG_LEVEL"
	EnvLogFormat     = "MINICACHE_LOG_FORMAT"
)

// Database backends for the /file/db routes.
const (
	BackendBolt  = "bolt"
	BackendMinio = "minio"
)

// ByteSize is a byte count that unmarshals from "4MiB", "512kB" or a plain number.
type ByteSize int64

// UnmarshalYAML accepts humanized sizes.
func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	n, err := ParseByteSize(node.Value)
	if err != nil {
		return err
	}
	*b = n
	return nil
}

// String prints the size in IEC units.
func (b ByteSize) String() string {
	if b < 0 {
		return strconv.FormatInt(int64(b), 10) + " B"
	}
	return humanize.IBytes(uint64(b))
}

// ParseByteSize parses a humanized byte size.
func ParseByteSize(s string) (ByteSize, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(s))
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeInvalidConfig, "invalid byte size %q", s)
	}
	return ByteSize(n), nil
}

// Seconds is a duration that unmarshals from a Go duration ("90s") or a bare
// number of seconds ("300"), the same forms MINICACHE_TTL accepts.
type Seconds time.Duration

// UnmarshalYAML accepts both duration forms.
func (s *Seconds) UnmarshalYAML(node *yaml.Node) error {
	d, err := parseTTL(node.Value)
	if err != nil {
		return err
	}
	*s = Seconds(d)
	return nil
}

// Duration returns s as a time.Duration.
func (s Seconds) Duration() time.Duration { return time.Duration(s) }

func (s Seconds) String() string { return time.Duration(s).String() }

// CacheConfig are the engine settings.
type CacheConfig struct {
	TTL           Seconds             `yaml:"ttl"`
	Memory        ByteSize            `yaml:"memory"`
	RefreshOnRead bool                `yaml:"refresh_on_read"`
	Eviction      eviction.PolicyType `yaml:"eviction"`
}

// StorageConfig locates the durable stores.
type StorageConfig struct {
	Dir         string              `yaml:"dir"`
	DBBackend   string              `yaml:"db_backend"`
	DBPath      string              `yaml:"db_path"`
	DBBucket    string              `yaml:"db_bucket"`
	Minio       durable.MinioConfig `yaml:"minio"`
	WritePolicy writepolicy.Kind    `yaml:"write_policy"`
	WriteBuffer int                 `yaml:"write_buffer"`
}

// LogConfig selects level and handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the whole service configuration.
type Config struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Cache           CacheConfig   `yaml:"cache"`
	Storage         StorageConfig `yaml:"storage"`
	Log             LogConfig     `yaml:"log"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Addr:            ":8000",
		ShutdownTimeout: 10 * time.Second,
		Cache: CacheConfig{
			TTL:      Seconds(300 * time.Second),
			Memory:   4 * humanize.MiByte,
			Eviction: eviction.Oldest,
		},
		Storage: StorageConfig{
			Dir:         "file-storage",
			DBBackend:   BackendBolt,
			DBPath:      "disk.db",
			DBBucket:    durable.DefaultBucket,
			WritePolicy: writepolicy.Through,
			WriteBuffer: 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load starts from Default, applies the YAML file at path if path is not empty, then the
// environment, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, errors.CodeInvalidConfig, "read config file %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, errors.CodeInvalidConfig, "parse config file %s", path)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str(EnvAddr, &c.Addr)
	str(EnvStorageDir, &c.Storage.Dir)
	str(EnvDBPath, &c.Storage.DBPath)
	str(EnvDBBackend, &c.Storage.DBBackend)
	str(EnvLogLevel, &c.Log.Level)
	str(EnvLogFormat, &c.Log.Format)

	if v, ok := lookup(EnvEviction); ok && v != "" {
		c.Cache.Eviction = eviction.PolicyType(v)
	}
	if v, ok := lookup(EnvWritePolicy); ok && v != "" {
		c.Storage.WritePolicy = writepolicy.Kind(v)
	}
	if v, ok := lookup(EnvTTL); ok && v != "" {
		d, err := parseTTL(v)
		if err != nil {
			return errors.Wrap(err, errors.CodeInvalidConfig, EnvTTL)
		}
		c.Cache.TTL = Seconds(d)
	}
	if v, ok := lookup(EnvMemory); ok && v != "" {
		n, err := ParseByteSize(v)
		if err != nil {
			return err
		}
		c.Cache.Memory = n
	}
	if v, ok := lookup(EnvRefreshOnRead); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, errors.CodeInvalidConfig, "%s: invalid boolean %q", EnvRefreshOnRead, v)
		}
		c.Cache.RefreshOnRead = b
	}
	return nil
}

// parseTTL accepts a Go duration ("90s") or a bare number of seconds ("300").
func parseTTL(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeInvalidConfig, "invalid duration %q", v)
	}
	return d, nil
}

// Validate collects every problem into a single CodeInvalidConfig error.
func (c Config) Validate() error {
	var problems []string

	if c.Addr == "" {
		problems = append(problems, "addr is empty")
	}
	if c.Cache.TTL <= 0 {
		problems = append(problems, "cache.ttl must be positive")
	}
	if c.Cache.Memory <= 0 {
		problems = append(problems, "cache.memory must be positive")
	}
	if _, err := eviction.NewEvictionPolicy(c.Cache.Eviction); err != nil {
		problems = append(problems, "cache.eviction: unknown policy "+strconv.Quote(string(c.Cache.Eviction)))
	}
	if c.Storage.Dir == "" {
		problems = append(problems, "storage.dir is empty")
	}
	switch c.Storage.DBBackend {
	case BackendBolt:
		if c.Storage.DBPath == "" {
			problems = append(problems, "storage.db_path is empty")
		}
	case BackendMinio:
		if !c.Storage.Minio.Enabled() {
			problems = append(problems, "storage.minio.endpoint is required for the minio backend")
		}
	default:
		problems = append(problems, "storage.db_backend must be bolt or minio")
	}
	switch c.Storage.WritePolicy {
	case writepolicy.Through:
	case writepolicy.Back:
		if c.Storage.WriteBuffer <= 0 {
			problems = append(problems, "storage.write_buffer must be positive for write-back")
		}
	default:
		problems = append(problems, "storage.write_policy must be through or back")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		problems = append(problems, "log.format must be text or json")
	}

	if len(problems) == 0 {
		return nil
	}
	err := errors.Newf(errors.CodeInvalidConfig, "invalid configuration: %s", strings.Join(problems, "; "))
	return errors.WithContext(err, "problems", len(problems))
}

// EngineConfig maps the cache section onto the engine.
func (c Config) EngineConfig() engine.Config {
	return engine.Config{
		TTL:           c.Cache.TTL.Duration(),
		MemoryMax:     int64(c.Cache.Memory),
		RefreshOnRead: c.Cache.RefreshOnRead,
		Eviction:      c.Cache.Eviction,
	}
}
