package cache

import (
	"context"
	"sync"
	"time"

	"chapel-liturgy/internal/domain"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache — кэш в памяти процесса; используется без Redis и в тестах.
type MemoryCache struct {
	mu      sync.RWMutex
	now     func() time.Time
	entries map[string]memoryEntry
	tags    map[string]map[string]struct{}
}

var _ domain.Cache = (*MemoryCache)(nil)

// NewMemory создаёт кэш. Если now == nil, используется time.Now.
func NewMemory(now func() time.Time) *MemoryCache {
	if now == nil {
		now = time.Now
	}
	return &MemoryCache{
		now:     now,
		entries: make(map[string]memoryEntry),
		tags:    make(map[string]map[string]struct{}),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, domain.ErrCacheMiss
	}
	return append([]byte(nil), entry.value...), nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	entry := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	for _, tag := range tags {
		keys, ok := c.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (c *MemoryCache) InvalidateTag(_ context.Context, tag string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.tags[tag] {
		delete(c.entries, key)
	}
	delete(c.tags, tag)
	return nil
}
