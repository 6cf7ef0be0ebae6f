package cache

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	value    []byte
	deadline time.Time
}

// localCache is the in-process fallback backend. Expiry is lazy on Get
// plus a manual Sweep driven by the maintenance tick.
type localCache struct {
	mu      sync.RWMutex
	entries map[string]localEntry
	now     func() time.Time
}

func NewLocal() Cache {
	return &localCache{
		entries: make(map[string]localEntry),
		now:     time.Now,
	}
}

func (c *localCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.deadline) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (c *localCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = localEntry{value: value, deadline: c.now().Add(ttl)}
	return nil
}

func (c *localCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *localCache) Sweep(_ context.Context) error {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.After(e.deadline) {
			delete(c.entries, key)
		}
	}
	return nil
}
