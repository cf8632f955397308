package utils

import (
	"log"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
)

// CacheItem wraps cached data with its expiry.
type CacheItem struct {
	Data      any
	ExpiresAt time.Time
}

// GlobalCache is a process-local LRU cache with per-entry TTL, used for
// rendered story listings.
type GlobalCache struct {
	lruCache *lru.Cache[string, CacheItem]
	clock    clockwork.Clock
}

var (
	cacheInstance *GlobalCache
	cacheOnce     sync.Once
)

func NewCache(size int, clock clockwork.Clock) (*GlobalCache, error) {
	l, err := lru.New[string, CacheItem](size)
	if err != nil {
		return nil, err
	}
	return &GlobalCache{lruCache: l, clock: clock}, nil
}

// GetCache returns the shared cache instance.
func GetCache() *GlobalCache {
	cacheOnce.Do(func() {
		c, err := NewCache(500, clockwork.NewRealClock())
		if err != nil {
			log.Fatalf("Failed to create LRU cache: %v", err)
		}
		cacheInstance = c
	})
	return cacheInstance
}

func (c *GlobalCache) Set(key string, data any, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: c.clock.Now().Add(ttl),
	})
}

// Get returns nil when the key is missing or expired.
func (c *GlobalCache) Get(key string) any {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}
	if c.clock.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}
	return val.Data
}

func (c *GlobalCache) Delete(key string) {
	c.lruCache.Remove(key)
}

// DeletePrefix removes every key starting with prefix.
func (c *GlobalCache) DeletePrefix(prefix string) {
	for _, key := range c.lruCache.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.Delete(key)
		}
	}
}
