package testing

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/redis/go-redis/v9"
)

// RunConnBenchmarks runs the benchmarks for connections produced by factory
func RunConnBenchmarks(b *testing.B, name string, factory ConnFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory(b))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory(b))
		})

		b.Run("Batch", func(b *testing.B) {
			benchmarkBatch(b, factory(b))
		})

		b.Run("ScratchSubset", func(b *testing.B) {
			benchmarkScratchSubset(b, factory(b))
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSet(b *testing.B, conn backend.Conn) {
	ctx := context.Background()
	var counter atomic.Int64

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			key := fmt.Sprintf("key-%d", counter.Add(1))
			if err := conn.Set(ctx, key, "value", 0).Err(); err != nil {
				b.Fatal(err)
			}
		}
	})
}

func benchmarkGet(b *testing.B, conn backend.Conn) {
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		conn.Set(ctx, fmt.Sprintf("key-%d", i), "value", 0)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if err := conn.Get(ctx, fmt.Sprintf("key-%d", i%1000)).Err(); err != nil {
				b.Fatal(err)
			}
			i++
		}
	})
}

func benchmarkBatch(b *testing.B, conn backend.Conn) {
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := backend.Batch(ctx, conn, func(p redis.Pipeliner) error {
			for j := 0; j < 10; j++ {
				p.Set(ctx, fmt.Sprintf("batch-%d", j), i, 0)
			}
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkScratchSubset(b *testing.B, conn backend.Conn) {
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		conn.SAdd(ctx, "small", i)
		conn.SAdd(ctx, "large", i, i+1000)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scratch := backend.ScratchKey()
		_, err := backend.Batch(ctx, conn, func(p redis.Pipeliner) error {
			p.SDiffStore(ctx, scratch, "small", "large")
			p.Del(ctx, scratch)
			return nil
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
