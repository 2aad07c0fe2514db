package resource

import (
	"testing"
	"time"
)

func TestMonitorSnapshot(t *testing.T) {
	m := NewMonitor(t.TempDir(), time.Second)
	m.Start()
	defer m.Stop()

	stats := m.GetStats()

	if stats.LastUpdated.IsZero() {
		t.Error("Expected LastUpdated to be set after Start")
	}
	if stats.NumGoroutines <= 0 {
		t.Errorf("Expected positive goroutine count, got %d", stats.NumGoroutines)
	}
	if stats.MemoryTotalMB == 0 {
		t.Error("Expected non-zero total memory")
	}
}

func TestMonitorStop(t *testing.T) {
	m := NewMonitor(t.TempDir(), 30*time.Millisecond)
	m.Start()
	m.Stop()

	before := m.GetStats().LastUpdated
	time.Sleep(100 * time.Millisecond)
	after := m.GetStats().LastUpdated

	if !after.Equal(before) {
		t.Error("Expected no updates after Stop")
	}
}
