// Package stats tracks LLM call statistics per model.
package stats

import (
	"sync"
	"time"
)

// CallStats accumulates counters for one model.
type CallStats struct {
	Model             string    `json:"model"`
	TotalCalls        int64     `json:"total_calls"`
	TotalErrors       int64     `json:"total_errors"`
	TotalDurationMs   int64     `json:"total_duration_ms"`
	AverageResponseMs float64   `json:"average_response_ms"`
	LastUsed          time.Time `json:"last_used"`
}

// Tracker manages call statistics across models.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*CallStats
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		stats: make(map[string]*CallStats),
	}
}

// Record registers one LLM call for model.
func (t *Tracker) Record(model string, duration time.Duration, failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, exists := t.stats[model]
	if !exists {
		s = &CallStats{Model: model}
		t.stats[model] = s
	}

	s.TotalCalls++
	if failed {
		s.TotalErrors++
	}
	s.TotalDurationMs += duration.Milliseconds()
	s.AverageResponseMs = float64(s.TotalDurationMs) / float64(s.TotalCalls)
	s.LastUsed = time.Now()
}

// Get returns a copy of the statistics for one model, or nil.
func (t *Tracker) Get(model string) *CallStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if s, exists := t.stats[model]; exists {
		copied := *s
		return &copied
	}
	return nil
}

// All returns copies of all per-model statistics.
func (t *Tracker) All() []CallStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]CallStats, 0, len(t.stats))
	for _, s := range t.stats {
		out = append(out, *s)
	}
	return out
}
