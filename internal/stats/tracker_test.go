package stats

import (
	"testing"
	"time"
)

func TestRecord(t *testing.T) {
	tr := NewTracker()

	tr.Record("m1", 100*time.Millisecond, false)
	tr.Record("m1", 300*time.Millisecond, true)

	s := tr.Get("m1")
	if s == nil {
		t.Fatal("Expected stats for m1")
	}
	if s.TotalCalls != 2 {
		t.Errorf("Expected 2 calls, got %d", s.TotalCalls)
	}
	if s.TotalErrors != 1 {
		t.Errorf("Expected 1 error, got %d", s.TotalErrors)
	}
	if s.AverageResponseMs != 200 {
		t.Errorf("Expected average 200ms, got %v", s.AverageResponseMs)
	}
}

func TestGetMissing(t *testing.T) {
	tr := NewTracker()
	if tr.Get("nope") != nil {
		t.Error("Expected nil for unknown model")
	}
}

func TestAll(t *testing.T) {
	tr := NewTracker()
	tr.Record("a", time.Millisecond, false)
	tr.Record("b", time.Millisecond, false)

	if got := len(tr.All()); got != 2 {
		t.Errorf("Expected 2 models, got %d", got)
	}
}
