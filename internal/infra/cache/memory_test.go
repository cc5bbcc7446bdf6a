package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"chapel-liturgy/internal/domain"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestMemoryCacheExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewMemory(clock.Now)
	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), time.Hour); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("ожидали значение v, получили %q, %v", got, err)
	}
	clock.now = clock.now.Add(time.Hour)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Fatalf("ожидали промах после истечения TTL, получили %v", err)
	}
}

func TestMemoryCacheInvalidateTag(t *testing.T) {
	c := NewMemory(nil)
	ctx := context.Background()
	_ = c.Set(ctx, "a", []byte("1"), 0, "year:2024")
	_ = c.Set(ctx, "b", []byte("2"), 0, "year:2025")
	if err := c.InvalidateTag(ctx, "year:2024"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if _, err := c.Get(ctx, "a"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Fatalf("ожидали, что ключ a удалён")
	}
	if _, err := c.Get(ctx, "b"); err != nil {
		t.Fatalf("ключ b не должен был пострадать: %v", err)
	}
}
