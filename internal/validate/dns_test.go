package validate

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingResolver struct {
	domains map[string]bool
	calls   int
}

func (c *countingResolver) HasMX(_ context.Context, domain string) (bool, error) {
	c.calls++
	return c.domains[domain], nil
}

func TestCachedResolverMemoizes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	next := &countingResolver{domains: map[string]bool{"valid.com": true}}
	resolver := NewCachedResolver(next, cache, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := resolver.HasMX(ctx, "valid.com")
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if !ok {
			t.Fatal("expected MX record for valid.com")
		}
	}
	if next.calls != 1 {
		t.Fatalf("expected one upstream lookup, got %d", next.calls)
	}

	// Negative answers get cached too.
	for i := 0; i < 2; i++ {
		ok, err := resolver.HasMX(ctx, "no-mx.example")
		if err != nil {
			t.Fatalf("lookup: %v", err)
		}
		if ok {
			t.Fatal("expected no MX record")
		}
	}
	if next.calls != 2 {
		t.Fatalf("expected two upstream lookups total, got %d", next.calls)
	}
}

func TestCachedResolverFailsOpenWithoutCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()
	mr.Close() // cache is down from the start

	next := &countingResolver{domains: map[string]bool{"valid.com": true}}
	resolver := NewCachedResolver(next, cache, time.Minute)

	ok, err := resolver.HasMX(context.Background(), "valid.com")
	if err != nil {
		t.Fatalf("lookup should fall through to upstream: %v", err)
	}
	if !ok || next.calls != 1 {
		t.Fatalf("expected upstream answer, ok=%v calls=%d", ok, next.calls)
	}
}
