package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func BenchmarkMemoryCache_GetHit(b *testing.B) {
	c := mustMemoryCache[string](b, DefaultPolicy())
	ctx := context.Background()
	_ = c.Set(ctx, "key", "value", time.Hour)

	b.ResetTimer()
	for b.Loop() {
		_, _ = c.Get(ctx, "key")
	}
}

func BenchmarkMemoryCache_GetMiss(b *testing.B) {
	c := mustMemoryCache[string](b, DefaultPolicy())
	ctx := context.Background()

	for b.Loop() {
		_, _ = c.Get(ctx, "missing")
	}
}

// Every Set past the first MaxSize evicts.
func BenchmarkMemoryCache_SetEvicting(b *testing.B) {
	c := mustMemoryCache[int](b, Policy{MaxSize: 128})
	ctx := context.Background()
	keys := make([]string, 4096)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%d", i)
	}

	i := 0
	for b.Loop() {
		_ = c.Set(ctx, keys[i%len(keys)], i, 0)
		i++
	}
}

func BenchmarkMemoryCache_Parallel(b *testing.B) {
	c := mustMemoryCache[int](b, Policy{MaxSize: 512})
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			k := fmt.Sprintf("k%d", i%1024)
			if i%3 == 0 {
				_ = c.Set(ctx, k, i, 0)
			} else {
				_, _ = c.Get(ctx, k)
			}
			i++
		}
	})
}

func BenchmarkFingerprint(b *testing.B) {
	restrictions := []string{"vegan", "gluten-free", "nut-free"}
	for b.Loop() {
		_ = Fingerprint("Chocolate Cake", 8, restrictions)
	}
}
