// Command benchmark measures the cache two ways.
//
//	benchmark latency   times downloads from a running server (cache, upload directory, database)
//	                    and appends rows to a CSV stopwatch file
//	benchmark load      hammers an in-process engine from many goroutines and reports throughput
package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jmgilman/go/errors"

	"github.com/krisalay/minicache"
	"github.com/krisalay/minicache/engine"
	"github.com/krisalay/minicache/metrics"
	"github.com/krisalay/minicache/server"
	"github.com/krisalay/minicache/types"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: benchmark latency|load [flags]")
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "latency":
		err = runLatency(os.Args[2:])
	case "load":
		err = runLoad(os.Args[2:])
	default:
		err = errors.Newf(errors.CodeInvalidInput, "unknown mode %q", os.Args[1])
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "benchmark:", err)
		os.Exit(1)
	}
}

// ================= LATENCY =================

type latencyClient struct {
	base   string
	client *http.Client
}

func runLatency(args []string) error {
	fs := flag.NewFlagSet("latency", flag.ExitOnError)
	base := fs.String("url", "http://localhost:8000", "server base URL")
	file := fs.String("file", "alexnet.pdf", "file to upload and download")
	rounds := fs.Int("n", 20, "number of rounds")
	out := fs.String("out", "stopwatch.csv", "CSV file rows are appended to")
	ttl := fs.Duration("ttl", 300*time.Second, "cache TTL the server runs with")
	wait := fs.Duration("ttl-wait", 0, "sleep before the uncached reads; 0 means ttl + 100ms")
	if err := fs.Parse(args); err != nil {
		return err
	}

	payload, err := os.ReadFile(*file)
	if err != nil {
		return errors.Wrapf(err, errors.CodeInvalidInput, "read %s", *file)
	}
	name := filepath.Base(*file)

	sw, err := openStopwatch(*out)
	if err != nil {
		return err
	}
	defer sw.Close()

	pause := expiryWait(*ttl, *wait)
	c := &latencyClient{base: *base, client: &http.Client{Timeout: time.Minute}}
	fmt.Printf("timing %s (%s) against %s, %d rounds\n", name, humanize.IBytes(uint64(len(payload))), *base, *rounds)

	for i := 0; i < *rounds; i++ {
		// Fresh upload: the next read is served from memory.
		if err := c.upload("/upload", name, payload); err != nil {
			return err
		}
		if err := c.timeDownload(sw, "/file/"+name, name, string(minicache.SourceCache)); err != nil {
			return err
		}

		time.Sleep(pause)
		if err := c.timeDownload(sw, "/file/"+name, name, "fs"); err != nil {
			return err
		}

		if err := c.upload("/upload/db", name, payload); err != nil {
			return err
		}
		time.Sleep(pause)
		if err := c.timeDownload(sw, "/file/db/"+name, name, "db"); err != nil {
			return err
		}
	}
	return nil
}

func (c *latencyClient) upload(path, name string, payload []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := part.Write(payload); err != nil {
		return err
	}
	if err := mw.WriteField("filename", name); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	resp, err := c.client.Post(c.base+path, mw.FormDataContentType(), &body)
	if err != nil {
		return errors.Wrapf(err, errors.CodeNetwork, "upload to %s", path)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.CodeExecutionFailed, "file upload to %s failed: %s", path, resp.Status)
	}
	return nil
}

// expiryWait is how long to sleep so a freshly cached entry has expired.
func expiryWait(ttl, wait time.Duration) time.Duration {
	if wait > 0 {
		return wait
	}
	return ttl + 100*time.Millisecond
}

// timeDownload records where the bytes came from as reported by the server, not where
// they were expected to come from. A mismatch with want is reported on stderr.
func (c *latencyClient) timeDownload(sw *stopwatch, path, name, want string) error {
	start := time.Now()
	resp, err := c.client.Get(c.base + path)
	if err != nil {
		return errors.Wrapf(err, errors.CodeNetwork, "download %s", path)
	}
	_, err = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	elapsed := time.Since(start)
	if err != nil {
		return errors.Wrapf(err, errors.CodeNetwork, "read %s", path)
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.CodeExecutionFailed, "could not download %s: %s", path, resp.Status)
	}

	src := resp.Header.Get(server.HeaderCacheSource)
	fmt.Printf("from %-5s took %.3f\n", src, elapsed.Seconds())
	if src != want {
		fmt.Fprintf(os.Stderr, "warning: %s expected from %s but served from %s; check -ttl against the server\n", path, want, src)
	}
	return sw.record(src, elapsed, name)
}

type stopwatch struct {
	f *os.File
	w *csv.Writer
}

// openStopwatch appends to path, writing the header only for a new file.
func openStopwatch(path string) (*stopwatch, error) {
	_, statErr := os.Stat(path)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInternal, "open %s", path)
	}
	sw := &stopwatch{f: f, w: csv.NewWriter(f)}
	if os.IsNotExist(statErr) {
		if err := sw.w.Write([]string{"src", "time", "filename"}); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return sw, nil
}

func (s *stopwatch) record(src string, d time.Duration, name string) error {
	if err := s.w.Write([]string{src, strconv.FormatFloat(d.Seconds(), 'f', 3, 64), name}); err != nil {
		return err
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *stopwatch) Close() error {
	s.w.Flush()
	return s.f.Close()
}

// ================= LOAD =================

// memStore is a map-backed loader for the load benchmark.
type memStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func (s *memStore) Load(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[name]
	if !ok {
		return nil, errors.Wrap(types.ErrNotFound, errors.CodeNotFound, name)
	}
	return v, nil
}

func (s *memStore) Put(_ context.Context, name string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[name] = payload
	return nil
}

func (s *memStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, name)
	return nil
}

func runLoad(args []string) error {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	preloadKeys := fs.Int("keys", 100000, "resources to preload")
	payloadSize := fs.Int("payload", 256, "bytes per resource")
	goroutines := fs.Int("goroutines", 200, "concurrent readers")
	opsPerG := fs.Int("ops", 5000, "reads per goroutine")
	memory := fs.String("memory", "64MiB", "engine memory budget")
	refresh := fs.Bool("refresh-on-read", false, "touch entries on hits")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *preloadKeys <= 0 || *goroutines <= 0 {
		return errors.New(errors.CodeInvalidInput, "keys and goroutines must be positive")
	}
	budget, err := humanize.ParseBytes(*memory)
	if err != nil {
		return errors.Wrapf(err, errors.CodeInvalidInput, "invalid memory %q", *memory)
	}

	fmt.Println("\n================ CACHE LOAD BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Memory       :", humanize.IBytes(budget))
	fmt.Println("Preload Keys :", *preloadKeys)
	fmt.Println("Payload      :", humanize.IBytes(uint64(*payloadSize)))
	fmt.Println("Goroutines   :", *goroutines)
	fmt.Println("Ops/Goroutine:", *opsPerG)
	fmt.Println("Refresh      :", *refresh)
	fmt.Println("---------------------------------")

	m := metrics.New()
	eng, err := engine.New(engine.Config{
		TTL:           time.Hour,
		MemoryMax:     int64(budget),
		RefreshOnRead: *refresh,
	}, engine.WithMetrics(m))
	if err != nil {
		return err
	}
	rt := minicache.NewReadThrough(eng, &memStore{data: make(map[string][]byte)}, "mem")
	ctx := context.Background()

	// ---------------- Preload Cache ----------------
	fmt.Println("Preloading cache...")
	payload := make([]byte, *payloadSize)
	for i := 0; i < *preloadKeys; i++ {
		if err := rt.Store(ctx, fmt.Sprintf("key-%d", i), "bench", payload); err != nil {
			return err
		}
	}
	fmt.Println("Preload complete.", eng.Size(), "entries,", humanize.IBytes(uint64(eng.MemoryUsage())))

	// ---------------- Load Test ----------------
	fmt.Println("Running concurrency benchmark...")
	start := time.Now()

	var wg sync.WaitGroup
	wg.Add(*goroutines)
	for i := 0; i < *goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < *opsPerG; j++ {
				_, _, _ = rt.Fetch(ctx, fmt.Sprintf("key-%d", j%*preloadKeys), "bench")
			}
		}()
	}
	wg.Wait()

	duration := time.Since(start)
	totalOps := *goroutines * *opsPerG
	s := m.Snapshot()

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %d\n", totalOps)
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Printf("Hit Ratio        : %.4f\n", s.HitRatio)
	fmt.Printf("Evictions        : %d\n", s.Evictions)
	fmt.Println("=========================================")

	return rt.Close()
}
