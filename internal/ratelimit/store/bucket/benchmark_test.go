package bucket

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// One hot caller, as when a single API key drives a bulk client.
func BenchmarkAllowHotCaller(b *testing.B) {
	store := New()
	ctx := context.Background()

	for b.Loop() {
		_, _ = store.AllowN(ctx, "key:9f86d081884c7d65", 1, 1000, time.Minute)
	}
}

func BenchmarkAllowHotCallerParallel(b *testing.B) {
	store := New()
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = store.AllowN(ctx, "key:9f86d081884c7d65", 1, 1000, time.Minute)
		}
	})
}

// Many anonymous callers identified by client IP.
func BenchmarkAllowManyCallersParallel(b *testing.B) {
	store := New()
	ctx := context.Background()
	var seq atomic.Int64

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			i := seq.Add(1)
			caller := fmt.Sprintf("ip:10.%d.%d.%d", (i>>16)&255, (i>>8)&255, i&255)
			_, _ = store.AllowN(ctx, caller, 1, 60, time.Minute)
		}
	})
}
