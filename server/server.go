// Package server exposes the read-through cache over HTTP.
//
// Routes:
//
//	POST   /upload              multipart "file" (+ optional "filename") into the upload directory
//	POST   /upload/db           the same, into the database
//	GET    /file/{name...}      download through the cache, falling back to the upload directory
//	GET    /file/db/{name...}   download through the cache, falling back to the database
//	DELETE /file/{name...}      delete from the upload directory and the cache
//	DELETE /file/db/{name...}   delete from the database and the cache
//	GET    /stats               engine and metrics snapshot
//
// The request Host is the cache origin.
package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jmgilman/go/errors"

	"github.com/krisalay/minicache"
	"github.com/krisalay/minicache/engine"
	"github.com/krisalay/minicache/metrics"
)

// Response headers describing where a download came from.
const (
	HeaderCache       = "X-Cache"
	HeaderCacheSource = "X-Cache-Source"
	HeaderRequestID   = "X-Request-ID"
)

// DefaultMaxUpload caps a multipart upload body.
const DefaultMaxUpload = 64 << 20

// StatsSource reports engine state for /stats. *engine.CacheEngine satisfies it.
type StatsSource interface {
	Stats() engine.Stats
}

// Config wires the server to its stores.
type Config struct {
	// Files backs /upload and /file/{name...}.
	Files *minicache.ReadThrough

	// DB backs /upload/db and /file/db/{name...}.
	DB *minicache.ReadThrough

	Engine  StatsSource
	Metrics *metrics.Counters
	Logger  *slog.Logger

	// MaxUploadBytes limits upload bodies. Zero means DefaultMaxUpload.
	MaxUploadBytes int64
}

// Server is the HTTP front of the cache.
type Server struct {
	files     *minicache.ReadThrough
	db        *minicache.ReadThrough
	engine    StatsSource
	metrics   *metrics.Counters
	log       *slog.Logger
	maxUpload int64

	handler http.Handler
}

// New builds the server and its routes.
func New(cfg Config) (*Server, error) {
	if cfg.Files == nil || cfg.DB == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "server needs both a file and a database store")
	}

	s := &Server{
		files:     cfg.Files,
		db:        cfg.DB,
		engine:    cfg.Engine,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		maxUpload: cfg.MaxUploadBytes,
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUpload
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload(s.files))
	mux.HandleFunc("POST /upload/db", s.handleUpload(s.db))
	mux.HandleFunc("GET /file/{name...}", s.handleDownload(s.files))
	mux.HandleFunc("GET /file/db/{name...}", s.handleDownload(s.db))
	mux.HandleFunc("DELETE /file/{name...}", s.handleDelete(s.files))
	mux.HandleFunc("DELETE /file/db/{name...}", s.handleDelete(s.db))
	mux.HandleFunc("GET /stats", s.handleStats)

	s.handler = s.withRequestID(mux)
	return s, nil
}

// Handler returns the root handler, request-ID middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve accepts connections on l until ctx is canceled, then shuts down gracefully,
// waiting at most shutdownTimeout for in-flight requests.
func (s *Server) Serve(ctx context.Context, l net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", l.Addr().String())
		errc <- srv.Serve(l)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, errors.CodeNetwork, "http server failed")
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, errors.CodeTimeout, "http server shutdown")
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, errors.CodeNetwork, "http server failed")
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrapf(err, errors.CodeNetwork, "listen on %s", addr)
	}
	return s.Serve(ctx, l, shutdownTimeout)
}
