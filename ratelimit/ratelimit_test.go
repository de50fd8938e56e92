package ratelimit

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ctx = context.Background()

func allow(t *testing.T, l Limiter, key string) bool {
	t.Helper()
	ok, err := l.Allow(ctx, key)
	if err != nil {
		t.Fatalf("Allow(%q): %v", key, err)
	}
	return ok
}

func TestMemoryBlocksAfterMax(t *testing.T) {
	limiter := NewMemory(2, 200*time.Millisecond)
	defer limiter.Stop()
	ip := "203.0.113.10"

	if !allow(t, limiter, ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if !allow(t, limiter, ip) {
		t.Fatalf("expected second attempt to be allowed")
	}
	if allow(t, limiter, ip) {
		t.Fatalf("expected third attempt to be blocked")
	}
}

func TestMemoryResetsAfterWindow(t *testing.T) {
	limiter := NewMemory(1, 150*time.Millisecond)
	defer limiter.Stop()
	ip := "203.0.113.20"

	if !allow(t, limiter, ip) {
		t.Fatalf("expected first attempt to be allowed")
	}
	if allow(t, limiter, ip) {
		t.Fatalf("expected second attempt to be blocked")
	}

	time.Sleep(200 * time.Millisecond)
	if !allow(t, limiter, ip) {
		t.Fatalf("expected attempt after window to be allowed")
	}
}

func TestMemoryIsPerKey(t *testing.T) {
	limiter := NewMemory(1, 200*time.Millisecond)
	defer limiter.Stop()

	if !allow(t, limiter, "203.0.113.30") {
		t.Fatalf("expected first ip to be allowed")
	}
	if !allow(t, limiter, "203.0.113.31") {
		t.Fatalf("expected second ip to be allowed independently")
	}
	if allow(t, limiter, "203.0.113.30") {
		t.Fatalf("expected first ip to be blocked after max")
	}
}

func TestMemoryCheckDoesNotRecord(t *testing.T) {
	limiter := NewMemory(1, time.Minute)
	defer limiter.Stop()
	ip := "203.0.113.40"

	for i := 0; i < 3; i++ {
		if !limiter.Check(ip) {
			t.Fatalf("Check %d blocked without any recorded attempt", i)
		}
	}
	limiter.Record(ip)
	if limiter.Check(ip) {
		t.Fatalf("expected Check to block after Record")
	}
}

func TestRedisLimiter(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	l := NewRedis(client, "test:ratelimit:"+uuid.NewString()+":", 2, time.Second)
	if err := l.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if !allow(t, l, "k") || !allow(t, l, "k") {
		t.Fatalf("expected first two hits to be allowed")
	}
	if allow(t, l, "k") {
		t.Fatalf("expected third hit to be blocked")
	}
	if !allow(t, l, "other") {
		t.Fatalf("expected other key to be allowed")
	}
}

func TestRedisLimiterConcurrent(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, PoolSize: 50})
	defer client.Close()

	l := NewRedis(client, "test:ratelimit:"+uuid.NewString()+":", 5, time.Minute)
	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Allow(ctx, "shared")
			if err != nil {
				t.Errorf("Allow: %v", err)
				return
			}
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := allowed.Load(); got != 5 {
		t.Fatalf("allowed = %d, want 5", got)
	}
}
