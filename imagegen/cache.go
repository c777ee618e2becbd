// Package imagegen implements the multi-provider image generation engine.
//
// cache.go implements the in-process result cache. Successful validated
// generations are memoized by a short digest of the enhanced prompt so
// repeated requests skip every external call.
package imagegen

import (
	"encoding/base64"
	"sync"
)

// cacheKeyLen is the truncation length for cache keys. Keys are a base64
// prefix of the enhanced prompt, so distinct prompts with a common prefix
// can collide. Accepted limitation: colliding prompts would have produced
// near-identical images anyway, and the cache only lives for one process.
const cacheKeyLen = 20

// CacheKey derives the cache key for an enhanced prompt.
func CacheKey(enhancedPrompt string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(enhancedPrompt))
	if len(encoded) > cacheKeyLen {
		return encoded[:cacheKeyLen]
	}
	return encoded
}

// CacheStats describes the current cache contents.
type CacheStats struct {
	Size int
	Keys []string
}

// ResultCache memoizes accepted image references by prompt key.
//
// The cache is unbounded and lives for the process lifetime; there is no
// eviction or persistence. It is written only by the orchestrator after a
// validated success and read before any adapter is invoked.
//
// Thread Safety: safe for concurrent use. Concurrent generations for the
// same prompt may both compute and write; last writer wins, which is
// acceptable because values for the same key are equivalent.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewResultCache creates an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{
		entries: make(map[string]string),
	}
}

// Get returns the cached image reference for key, if present.
func (c *ResultCache) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	url, ok := c.entries[key]
	return url, ok
}

// Put stores an accepted image reference under key.
func (c *ResultCache) Put(key, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = url
}

// Clear removes all entries.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]string)
}

// Stats returns the current size and keys of the cache.
func (c *ResultCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return CacheStats{Size: len(c.entries), Keys: keys}
}
