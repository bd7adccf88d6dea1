package storefront_test

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/masad40/next-sc/internal/storefront"
)

func exerciseCache(t *testing.T, c storefront.ResponseCache) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "/items"); ok || err != nil {
		t.Fatalf("empty Get: ok=%v err=%v", ok, err)
	}

	stored := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	want := storefront.CacheEntry{Body: []byte(`[{"id":1}]`), ETag: `"abc"`, StoredAt: stored}
	if err := c.Set(ctx, "/items", want); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, ok, err := c.Get(ctx, "/items")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got.Body) != string(want.Body) || got.ETag != want.ETag || !got.StoredAt.Equal(stored) {
		t.Fatalf("got=%+v", got)
	}

	if err := c.Delete(ctx, "/items"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "/items"); ok {
		t.Fatalf("entry survived Delete")
	}
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, storefront.NewMemoryCache(0))
}

func TestMemoryCache_EvictsOldest(t *testing.T) {
	c := storefront.NewMemoryCache(2)
	ctx := context.Background()
	base := time.Now()

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("/items/%d", i)
		if err := c.Set(ctx, key, storefront.CacheEntry{Body: []byte("x"), StoredAt: base.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	if _, ok, _ := c.Get(ctx, "/items/0"); ok {
		t.Fatalf("oldest entry not evicted")
	}
	for _, key := range []string{"/items/1", "/items/2"} {
		if _, ok, _ := c.Get(ctx, key); !ok {
			t.Fatalf("%s evicted", key)
		}
	}
}

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	c := storefront.NewRedisCache(client, fmt.Sprintf("test:%d:", time.Now().UnixNano()), time.Minute)
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	exerciseCache(t, c)
}
