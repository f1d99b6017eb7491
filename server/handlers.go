package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jmgilman/go/errors"

	"github.com/krisalay/minicache"
	"github.com/krisalay/minicache/durable"
	"github.com/krisalay/minicache/engine"
	"github.com/krisalay/minicache/metrics"
)

// UploadResponse is returned by the upload routes.
type UploadResponse struct {
	Msg   string `json:"msg"`
	Name  string `json:"name"`
	Bytes int    `json:"bytes"`
}

// StatsResponse is returned by /stats.
type StatsResponse struct {
	Engine      *engine.Stats     `json:"engine,omitempty"`
	MemoryHuman string            `json:"memory_usage,omitempty"`
	Metrics     *metrics.Snapshot `json:"metrics,omitempty"`
}

func (s *Server) handleUpload(rt *minicache.ReadThrough) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := loggerFrom(r.Context(), s.log)
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

		file, header, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, r, errors.Wrap(err, errors.CodeInvalidInput, "missing multipart field \"file\""))
			return
		}
		defer file.Close()

		name := r.FormValue("filename")
		if name == "" {
			name = header.Filename
		}
		name, err = durable.CleanName(name)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		payload, err := io.ReadAll(file)
		if err != nil {
			s.writeError(w, r, errors.Wrap(err, errors.CodeInvalidInput, "read upload"))
			return
		}

		if err := rt.Store(r.Context(), name, r.Host, payload); err != nil {
			s.writeError(w, r, err)
			return
		}
		log.Info("upload stored",
			"name", name,
			"store", string(rt.Source()),
			"size", humanize.IBytes(uint64(len(payload))))

		writeJSON(w, http.StatusOK, UploadResponse{Msg: "success", Name: name, Bytes: len(payload)})
	}
}

func (s *Server) handleDownload(rt *minicache.ReadThrough) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := durable.CleanName(r.PathValue("name"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		data, src, err := rt.Fetch(r.Context(), name, r.Host)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		hit := "MISS"
		if src == minicache.SourceCache {
			hit = "HIT"
		}
		h := w.Header()
		h.Set(HeaderCache, hit)
		h.Set(HeaderCacheSource, string(src))
		h.Set("Content-Type", "application/octet-stream")
		h.Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = w.Write(data)
		}
	}
}

func (s *Server) handleDelete(rt *minicache.ReadThrough) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := durable.CleanName(r.PathValue("name"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := rt.Invalidate(r.Context(), name, r.Host); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var resp StatsResponse
	if s.engine != nil {
		st := s.engine.Stats()
		resp.Engine = &st
		resp.MemoryHuman = humanize.IBytes(uint64(st.MemoryUsage)) + " / " + humanize.IBytes(uint64(st.MemoryMax))
	}
	if s.metrics != nil {
		snap := s.metrics.Snapshot()
		resp.Metrics = &snap
	}
	writeJSON(w, http.StatusOK, resp)
}

// writeError maps the error code onto an HTTP status and writes the error as JSON.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := loggerFrom(r.Context(), s.log)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "error", err, "status", status)
	} else {
		log.Debug("request rejected", "error", err, "status", status)
	}
	writeJSON(w, status, errors.ToJSON(err))
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}

	switch errors.GetCode(err) {
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeForbidden:
		return http.StatusForbidden
	case errors.CodeUnavailable, errors.CodeRateLimit:
		return http.StatusServiceUnavailable
	case errors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
