// Package cache holds completed LLM responses so identical prompts do
// not hit the remote API twice.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// entry is one cached response.
type entry struct {
	response  string
	createdAt time.Time
	expiresAt time.Time
	hits      int64
}

// ResponseCache is a bounded TTL cache keyed on model and prompt.
type ResponseCache struct {
	mu         sync.RWMutex
	entries    map[string]*entry
	maxEntries int
	ttl        time.Duration
	hits       int64
	misses     int64
}

// New creates a response cache holding at most maxEntries responses,
// each valid for ttl.
func New(maxEntries int, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		entries:    make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
	}
}

func key(model, prompt string) string {
	hash := sha256.Sum256([]byte(model + "|" + prompt))
	return hex.EncodeToString(hash[:])
}

// Get returns a cached response for the model/prompt pair, if present
// and not expired.
func (c *ResponseCache) Get(model, prompt string) (string, bool) {
	k := key(model, prompt)

	c.mu.RLock()
	e, exists := c.entries[k]
	if !exists || time.Now().After(e.expiresAt) {
		c.mu.RUnlock()
		atomic.AddInt64(&c.misses, 1)
		return "", false
	}
	response := e.response
	c.mu.RUnlock()

	atomic.AddInt64(&e.hits, 1)
	atomic.AddInt64(&c.hits, 1)
	return response, true
}

// Set stores a response, evicting the least useful entry when full.
func (c *ResponseCache) Set(model, prompt, response string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evict()
	}

	now := time.Now()
	c.entries[key(model, prompt)] = &entry{
		response:  response,
		createdAt: now,
		expiresAt: now.Add(c.ttl),
	}
}

// evict removes one entry: an expired one if available, otherwise the
// least-hit, oldest one. Caller holds the write lock.
func (c *ResponseCache) evict() {
	var victim string
	var victimTime time.Time
	var minHits int64

	first := true
	now := time.Now()
	for k, e := range c.entries {
		hits := atomic.LoadInt64(&e.hits)
		if now.After(e.expiresAt) {
			victim = k
			break
		}
		if first || hits < minHits || (hits == minHits && e.createdAt.Before(victimTime)) {
			victim = k
			victimTime = e.createdAt
			minHits = hits
			first = false
		}
	}

	delete(c.entries, victim)
}

// CleanExpired drops expired entries and returns how many were removed.
func (c *ResponseCache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	count := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			count++
		}
	}
	return count
}

// Stats returns cache counters for the system stats endpoint.
func (c *ResponseCache) Stats() map[string]any {
	c.mu.RLock()
	entryCount := len(c.entries)
	c.mu.RUnlock()

	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)

	hitRate := 0.0
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return map[string]any{
		"entries":     entryCount,
		"max_entries": c.maxEntries,
		"ttl_seconds": c.ttl.Seconds(),
		"hits":        hits,
		"misses":      misses,
		"hit_rate":    fmt.Sprintf("%.2f%%", hitRate),
	}
}
