// Command minicache serves uploaded files through the in-memory cache.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/jmgilman/go/errors"

	"github.com/krisalay/minicache"
	"github.com/krisalay/minicache/config"
	"github.com/krisalay/minicache/durable"
	"github.com/krisalay/minicache/engine"
	"github.com/krisalay/minicache/logging"
	"github.com/krisalay/minicache/metrics"
	"github.com/krisalay/minicache/server"
	"github.com/krisalay/minicache/types"
	"github.com/krisalay/minicache/writepolicy"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "minicache:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Cache Engine ----------------
	m := metrics.New()
	eng, err := engine.New(cfg.EngineConfig(),
		engine.WithMetrics(m),
		engine.WithLogger(log.With("component", "engine")))
	if err != nil {
		return err
	}

	// ---------------- Durable Stores ----------------
	files, err := durable.NewLocalFS(cfg.Storage.Dir)
	if err != nil {
		return err
	}
	db, closeDB, err := openDatabase(cfg.Storage)
	if err != nil {
		return err
	}
	defer closeDB()

	// ---------------- Read-through ----------------
	filesRT, err := newReadThrough(eng, files, "fs", cfg.Storage, m, log)
	if err != nil {
		return err
	}
	dbRT, err := newReadThrough(eng, db, "db", cfg.Storage, m, log)
	if err != nil {
		return err
	}
	defer func() {
		for _, rt := range []*minicache.ReadThrough{filesRT, dbRT} {
			if err := rt.Close(); err != nil {
				log.Error("flush write policy", "store", string(rt.Source()), "error", err)
			}
		}
	}()

	srv, err := server.New(server.Config{
		Files:   filesRT,
		DB:      dbRT,
		Engine:  eng,
		Metrics: m,
		Logger:  log.With("component", "http"),
	})
	if err != nil {
		return err
	}

	log.Info("minicache starting",
		"addr", cfg.Addr,
		"ttl", cfg.Cache.TTL.Duration(),
		"memory", humanize.IBytes(uint64(cfg.Cache.Memory)),
		"eviction", string(cfg.Cache.Eviction),
		"refresh_on_read", cfg.Cache.RefreshOnRead,
		"storage_dir", cfg.Storage.Dir,
		"db_backend", cfg.Storage.DBBackend,
		"write_policy", string(cfg.Storage.WritePolicy))

	err = srv.ListenAndServe(ctx, cfg.Addr, cfg.ShutdownTimeout)
	log.Info("minicache stopped", "entries", eng.Size(), "memory_usage", eng.MemoryUsage())
	return err
}

func openDatabase(cfg config.StorageConfig) (types.Loader, func(), error) {
	switch cfg.DBBackend {
	case config.BackendMinio:
		store, err := durable.NewMinio(cfg.Minio)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case config.BackendBolt:
		store, err := durable.OpenBolt(cfg.DBPath, cfg.DBBucket)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, errors.Newf(errors.CodeInvalidConfig, "unknown database backend %q", cfg.DBBackend)
	}
}

func newReadThrough(
	eng *engine.CacheEngine,
	store types.Loader,
	source minicache.Source,
	cfg config.StorageConfig,
	m *metrics.Counters,
	log *slog.Logger,
) (*minicache.ReadThrough, error) {
	storeLog := log.With("component", "readthrough", "store", string(source))
	writes, err := writepolicy.New(cfg.WritePolicy, store, cfg.WriteBuffer, storeLog)
	if err != nil {
		return nil, err
	}
	return minicache.NewReadThrough(eng, store, source,
		minicache.WithNamespace(string(source)),
		minicache.WithWritePolicy(writes),
		minicache.WithLoadRecorder(m),
		minicache.WithLogger(storeLog),
	), nil
}
