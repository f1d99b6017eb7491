// Command demo walks through the cache's behavior against an in-memory upload directory.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/jmgilman/go/errors"

	"github.com/krisalay/minicache"
	"github.com/krisalay/minicache/durable"
	"github.com/krisalay/minicache/engine"
	"github.com/krisalay/minicache/eviction"
	"github.com/krisalay/minicache/logging"
	"github.com/krisalay/minicache/metrics"
	"github.com/krisalay/minicache/writepolicy"
)

const origin = "localhost:8000"

func main() {
	ctx := context.Background()

	fmt.Println("\n==================== SYSTEM BOOT ====================")

	// ---------------- System Config ----------------
	const (
		ttl       = 1 * time.Second
		memoryMax = 16
	)
	fmt.Println("WRITE POLICY    : WRITE-BACK")
	fmt.Println("EVICTION POLICY : OLDEST")
	fmt.Println("TTL             :", ttl)
	fmt.Println("MEMORY BUDGET   :", memoryMax, "bytes")

	log, err := logging.New(logging.Options{Level: "debug", Output: os.Stdout})
	if err != nil {
		panic(err)
	}

	// ---------------- Backing Store ----------------
	store := durable.NewFS(memfs.New())
	_ = store.Put(ctx, "a.txt", []byte("alpha"))
	_ = store.Put(ctx, "b.txt", []byte("beta"))

	// ---------------- Metrics ----------------
	m := metrics.New()

	// ---------------- Cache Engine ----------------
	eng, err := engine.New(engine.Config{
		TTL:       ttl,
		MemoryMax: memoryMax,
		Eviction:  eviction.Oldest,
	}, engine.WithMetrics(m), engine.WithLogger(log))
	if err != nil {
		panic(err)
	}

	cache := minicache.NewReadThrough(eng, store, "fs",
		minicache.WithWritePolicy(writepolicy.NewWriteBackPolicy(store, 1024, log)),
		minicache.WithLoadRecorder(m))

	get := func(name string) {
		v, src, err := cache.Fetch(ctx, name, origin)
		if err != nil {
			fmt.Printf("CACHE  → GET %s failed: %v\n", name, err)
			return
		}
		fmt.Printf("CACHE  → GET %s = %q (source %s)\n", name, v, src)
	}

	// ====================================================
	fmt.Println("\n==================== 1) CACHE MISS ====================")
	get("a.txt")

	// ====================================================
	fmt.Println("\n==================== 2) CACHE HIT ====================")
	get("a.txt")

	// ====================================================
	fmt.Println("\n==================== 3) TTL EXPIRATION ====================")
	time.Sleep(ttl + 100*time.Millisecond)
	fmt.Println("CACHE  → TTL expired for a.txt")
	get("a.txt")

	// ====================================================
	fmt.Println("\n==================== 4) SINGLEFLIGHT ====================")
	wg := sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			v, src, _ := cache.Fetch(ctx, "b.txt", origin)
			fmt.Printf("GOROUTINE-%d → GET b.txt = %q (source %s)\n", id, v, src)
		}(i)
	}
	wg.Wait()

	// ====================================================
	fmt.Println("\n==================== 5) EVICTION ====================")
	fmt.Printf("CACHE  → usage %d/%d bytes, %d entries\n", eng.MemoryUsage(), memoryMax, eng.Size())
	_ = cache.Store(ctx, "c.txt", origin, []byte("0123456789"))
	fmt.Println("CACHE  → PUT c.txt (10 bytes)")
	fmt.Printf("CACHE  → usage %d/%d bytes, %d entries\n", eng.MemoryUsage(), memoryMax, eng.Size())

	// ====================================================
	fmt.Println("\n==================== 6) OVERSIZED ====================")
	err = eng.Put("huge.bin", origin, make([]byte, memoryMax+1))
	fmt.Println("ENGINE → PUT huge.bin rejected:", errors.Is(err, engine.ErrEntryTooLarge))

	// ====================================================
	fmt.Println("\n==================== 7) REMOVE ====================")
	_ = cache.Close()
	if err := cache.Invalidate(ctx, "b.txt", origin); err != nil {
		fmt.Println("CACHE  → REMOVE b.txt failed:", err)
	}
	fmt.Println("CACHE  → REMOVE b.txt")
	get("b.txt")

	// ====================================================
	s := m.Snapshot()
	fmt.Println("\n==================== METRICS ====================")
	fmt.Printf("HITS      : %d\n", s.Hits)
	fmt.Printf("MISSES    : %d\n", s.Misses)
	fmt.Printf("EVICTIONS : %d\n", s.Evictions)
	fmt.Printf("EXPIRED   : %d\n", s.Expired)
	fmt.Printf("REJECTED  : %d\n", s.Rejected)
	fmt.Printf("LOADS     : %d\n", s.Loads)
	fmt.Printf("HIT RATIO : %.2f\n", s.HitRatio)

	fmt.Println("\n==================== SHUTDOWN ====================")
	fmt.Println("SYSTEM → write-back queue flushed")
}
