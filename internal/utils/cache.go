package utils

import (
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem wraps cached data with its expiry time
type CacheItem struct {
	Data      interface{}
	ExpiresAt time.Time
}

// GlobalCache is the process-local LRU cache with per-entry TTL
type GlobalCache struct {
	lruCache *lru.Cache[string, CacheItem]
}

var cacheInstance = sync.OnceValue(func() *GlobalCache {
	l, err := lru.New[string, CacheItem](500)
	if err != nil {
		log.Fatalf("Failed to create LRU cache: %v", err)
	}
	return &GlobalCache{lruCache: l}
})

// GetCache returns the singleton cache instance. Safe for concurrent callers.
func GetCache() *GlobalCache {
	return cacheInstance()
}

// Set stores data under key for ttl
func (c *GlobalCache) Set(key string, data interface{}, ttl time.Duration) {
	c.lruCache.Add(key, CacheItem{
		Data:      data,
		ExpiresAt: time.Now().Add(ttl),
	})
}

// Get returns the cached data, or nil when missing or expired
func (c *GlobalCache) Get(key string) interface{} {
	val, ok := c.lruCache.Get(key)
	if !ok {
		return nil
	}

	if time.Now().After(val.ExpiresAt) {
		c.lruCache.Remove(key)
		return nil
	}

	return val.Data
}

// Delete removes one entry
func (c *GlobalCache) Delete(key string) {
	c.lruCache.Remove(key)
}
