package minicache_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/krisalay/minicache"
	"github.com/krisalay/minicache/engine"
)

func newBenchmarkReadThrough(b *testing.B) (*minicache.ReadThrough, *countingStore) {
	b.Helper()
	e, err := engine.New(engine.Config{TTL: time.Hour, MemoryMax: 64 << 20})
	if err != nil {
		b.Fatal(err)
	}
	store := newCountingStore()
	return minicache.NewReadThrough(e, store, "fs"), store
}

//
// ================= SINGLE THREAD BENCH =================
//

func BenchmarkFetchHit(b *testing.B) {
	ctx := context.Background()
	rt, _ := newBenchmarkReadThrough(b)
	if err := rt.Store(ctx, "key", "o", make([]byte, 4096)); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = rt.Fetch(ctx, "key", "o")
	}
}

func BenchmarkFetchMiss(b *testing.B) {
	ctx := context.Background()
	rt, _ := newBenchmarkReadThrough(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = rt.Fetch(ctx, "missing", "o")
	}
}

func BenchmarkStore(b *testing.B) {
	ctx := context.Background()
	rt, _ := newBenchmarkReadThrough(b)
	payload := make([]byte, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rt.Store(ctx, fmt.Sprintf("k-%d", i%1000), "o", payload)
	}
}

//
// ================= PARALLEL BENCH =================
//

func BenchmarkFetchHitParallel(b *testing.B) {
	ctx := context.Background()
	rt, _ := newBenchmarkReadThrough(b)
	for i := 0; i < 100; i++ {
		_ = rt.Store(ctx, fmt.Sprintf("k-%d", i), "o", make([]byte, 1024))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _, _ = rt.Fetch(ctx, fmt.Sprintf("k-%d", i%100), "o")
			i++
		}
	})
}

func BenchmarkMixedParallel(b *testing.B) {
	ctx := context.Background()
	rt, _ := newBenchmarkReadThrough(b)
	payload := make([]byte, 512)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("k-%d", i%500)
			if i%4 == 0 {
				_ = rt.Store(ctx, key, "o", payload)
			} else {
				_, _, _ = rt.Fetch(ctx, key, "o")
			}
			i++
		}
	})
}
