package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/minicache/eviction"
	"github.com/krisalay/minicache/writepolicy"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "minicache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, 300*time.Second, cfg.Cache.TTL.Duration())
	assert.Equal(t, ByteSize(4<<20), cfg.Cache.Memory)
	assert.False(t, cfg.Cache.RefreshOnRead)
	assert.Equal(t, eviction.Oldest, cfg.Cache.Eviction)
	assert.Equal(t, "file-storage", cfg.Storage.Dir)
	assert.Equal(t, "disk.db", cfg.Storage.DBPath)
	assert.Equal(t, writepolicy.Through, cfg.Storage.WritePolicy)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Cache, cfg.Cache)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
addr: ":9000"
cache:
  ttl: 90s
  memory: 512KiB
  refresh_on_read: true
  eviction: largest
storage:
  dir: /var/lib/minicache/files
  write_policy: back
  write_buffer: 64
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL.Duration())
	assert.Equal(t, ByteSize(512*1024), cfg.Cache.Memory)
	assert.True(t, cfg.Cache.RefreshOnRead)
	assert.Equal(t, eviction.Largest, cfg.Cache.Eviction)
	assert.Equal(t, "/var/lib/minicache/files", cfg.Storage.Dir)
	assert.Equal(t, "disk.db", cfg.Storage.DBPath, "unset keys keep defaults")
	assert.Equal(t, writepolicy.Back, cfg.Storage.WritePolicy)
	assert.Equal(t, 64, cfg.Storage.WriteBuffer)
	assert.Equal(t, "json", cfg.Log.Format)

	ec := cfg.EngineConfig()
	assert.Equal(t, int64(512*1024), ec.MemoryMax)
	assert.Equal(t, 90*time.Second, ec.TTL)
	assert.True(t, ec.RefreshOnRead)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "cache:\n  ttl: 90s\n  memory: 1MiB\n")
	t.Setenv(EnvTTL, "2")
	t.Setenv(EnvMemory, "64kB")
	t.Setenv(EnvRefreshOnRead, "true")
	t.Setenv(EnvAddr, "127.0.0.1:8080")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Cache.TTL.Duration())
	assert.Equal(t, ByteSize(64000), cfg.Cache.Memory)
	assert.True(t, cfg.Cache.RefreshOnRead)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "bad yaml", body: "cache: [unclosed"},
		{name: "bad size", body: "cache:\n  memory: lots\n"},
		{name: "zero ttl", body: "cache:\n  ttl: 0s\n"},
		{name: "bad yaml ttl", body: "cache:\n  ttl: soon\n"},
		{name: "unknown eviction", body: "cache:\n  eviction: random\n"},
		{name: "unknown write policy", body: "storage:\n  write_policy: sometimes\n"},
		{name: "minio without endpoint", body: "storage:\n  db_backend: minio\n"},
		{name: "bad env ttl", env: map[string]string{EnvTTL: "soon"}},
		{name: "bad env bool", env: map[string]string{EnvRefreshOnRead: "maybe"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.body != "" {
				path = writeConfig(t, tt.body)
			}

			_, err := Load(path)
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Addr = ""
	cfg.Cache.TTL = 0
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "addr is empty")
	assert.Contains(t, err.Error(), "cache.ttl must be positive")
	assert.Contains(t, err.Error(), "log.format")
}

func TestLoad_TTLForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want time.Duration
	}{
		{name: "bare seconds", body: "cache:\n  ttl: 300\n", want: 300 * time.Second},
		{name: "go duration", body: "cache:\n  ttl: 90s\n", want: 90 * time.Second},
		{name: "minutes", body: "cache:\n  ttl: 5m\n", want: 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Cache.TTL.Duration())
			assert.Equal(t, tt.want, cfg.EngineConfig().TTL)
		})
	}
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		in   string
		want ByteSize
	}{
		{in: "4MiB", want: 4 << 20},
		{in: "4MB", want: 4_000_000},
		{in: "512", want: 512},
		{in: " 1 KiB ", want: 1024},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseByteSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseByteSize("many")
	assert.Error(t, err)
	assert.Equal(t, "4.0 MiB", ByteSize(4<<20).String())
}
