package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Maximum number of rate limit buckets to bound memory use
const maxRateLimitBuckets = 10000

// RateLimiter implements a token bucket rate limiter per IP/endpoint
type RateLimiter struct {
	mu       sync.RWMutex
	buckets  map[string]*TokenBucket
	rate     int           // requests per interval
	interval time.Duration // time window
	burst    int           // max burst size
}

// TokenBucket represents a token bucket for rate limiting
type TokenBucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates a new rate limiter allowing rate requests per
// interval with the given burst size.
func NewRateLimiter(rate int, interval time.Duration, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets:  make(map[string]*TokenBucket),
		rate:     rate,
		interval: interval,
		burst:    burst,
	}

	go rl.cleanup()

	return rl
}

// Allow checks if a request from the given key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.RLock()
	bucket, exists := rl.buckets[key]
	bucketCount := len(rl.buckets)
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Double-check after acquiring write lock
		bucket, exists = rl.buckets[key]
		if !exists {
			if bucketCount >= maxRateLimitBuckets {
				// Evict the oldest bucket
				var oldestKey string
				var oldestTime time.Time
				first := true
				for k, b := range rl.buckets {
					if first || b.lastRefill.Before(oldestTime) {
						oldestKey = k
						oldestTime = b.lastRefill
						first = false
					}
				}
				if oldestKey != "" {
					delete(rl.buckets, oldestKey)
				}
			}
			bucket = &TokenBucket{
				tokens:     rl.burst,
				lastRefill: time.Now(),
			}
			rl.buckets[key] = bucket
		}
		rl.mu.Unlock()
	}

	return bucket.take(rl.rate, rl.interval)
}

// take attempts to take a token from the bucket
func (tb *TokenBucket) take(rate int, interval time.Duration) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	// Refill tokens based on elapsed time
	tokensToAdd := int(elapsed.Seconds() / interval.Seconds() * float64(rate))
	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > rate {
			tb.tokens = rate
		}
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// cleanup periodically removes old buckets
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, bucket := range rl.buckets {
			bucket.mu.Lock()
			if now.Sub(bucket.lastRefill) > 10*time.Minute {
				delete(rl.buckets, key)
			}
			bucket.mu.Unlock()
		}
		rl.mu.Unlock()
	}
}

// Middleware returns an HTTP middleware that applies rate limiting
func (rl *RateLimiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.RemoteAddr + ":" + r.URL.Path

		if !rl.Allow(key) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{
					"message": "Rate limit exceeded. Please slow down your requests.",
					"type":    "rate_limit_error",
				},
			})
			return
		}

		next(w, r)
	}
}

// ExtractLimiter bounds concurrent extraction jobs. Each job fans out
// to many model calls, so one job per client and a small global cap
// keeps the upstream API happy.
type ExtractLimiter struct {
	mu              sync.RWMutex
	activeJobs      map[string]int // client -> running jobs
	maxPerClient    int
	globalSemaphore chan struct{}
}

// NewExtractLimiter creates a limiter allowing maxPerClient jobs per
// client and maxGlobal jobs in total.
func NewExtractLimiter(maxPerClient, maxGlobal int) *ExtractLimiter {
	return &ExtractLimiter{
		activeJobs:      make(map[string]int),
		maxPerClient:    maxPerClient,
		globalSemaphore: make(chan struct{}, maxGlobal),
	}
}

// Acquire attempts to claim a job slot for the client
func (el *ExtractLimiter) Acquire(client string) bool {
	select {
	case el.globalSemaphore <- struct{}{}:
	default:
		return false
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	if el.activeJobs[client] >= el.maxPerClient {
		<-el.globalSemaphore
		return false
	}

	el.activeJobs[client]++
	return true
}

// Release returns a job slot
func (el *ExtractLimiter) Release(client string) {
	el.mu.Lock()
	defer el.mu.Unlock()

	if count := el.activeJobs[client]; count > 0 {
		el.activeJobs[client]--
		if el.activeJobs[client] == 0 {
			delete(el.activeJobs, client)
		}
	}

	<-el.globalSemaphore
}
