// Package resource reports host resource usage for the system stats
// endpoint.
package resource

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Stats is a point-in-time snapshot of host resources.
type Stats struct {
	CPUUsagePercent    float64   `json:"cpu_usage_percent"`
	MemoryUsedMB       uint64    `json:"memory_used_mb"`
	MemoryTotalMB      uint64    `json:"memory_total_mb"`
	MemoryUsagePercent float64   `json:"memory_usage_percent"`
	DataDirFreeGB      uint64    `json:"data_dir_free_gb"`
	DataDirUsedPercent float64   `json:"data_dir_used_percent"`
	NumGoroutines      int       `json:"num_goroutines"`
	LastUpdated        time.Time `json:"last_updated"`
}

// Monitor samples host resources on an interval.
type Monitor struct {
	mu             sync.RWMutex
	stats          Stats
	dataDir        string
	updateInterval time.Duration
	stopChan       chan struct{}
}

// NewMonitor creates a monitor sampling every updateInterval; disk
// usage is reported for dataDir.
func NewMonitor(dataDir string, updateInterval time.Duration) *Monitor {
	return &Monitor{
		dataDir:        dataDir,
		updateInterval: updateInterval,
		stopChan:       make(chan struct{}),
	}
}

// Start begins sampling in the background.
func (m *Monitor) Start() {
	m.updateStats()
	go m.loop()
}

// Stop halts the sampler.
func (m *Monitor) Stop() {
	close(m.stopChan)
}

// GetStats returns the latest snapshot.
func (m *Monitor) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.updateStats()
		case <-m.stopChan:
			return
		}
	}
}

func (m *Monitor) updateStats() {
	vmStat, err := mem.VirtualMemory()
	if err != nil {
		// Fallback to runtime stats
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)
		vmStat = &mem.VirtualMemoryStat{
			Total:       memStats.Sys,
			Used:        memStats.Alloc,
			UsedPercent: float64(memStats.Alloc) / float64(memStats.Sys) * 100,
		}
	}

	cpuPercent, err := cpu.Percent(0, false)
	cpuUsage := 0.0
	if err == nil && len(cpuPercent) > 0 {
		cpuUsage = cpuPercent[0]
	}

	freeGB := uint64(0)
	usedPercent := 0.0
	if diskStat, err := disk.Usage(m.dataDir); err == nil {
		freeGB = diskStat.Free / 1024 / 1024 / 1024
		usedPercent = diskStat.UsedPercent
	}

	m.mu.Lock()
	m.stats = Stats{
		CPUUsagePercent:    cpuUsage,
		MemoryUsedMB:       vmStat.Used / 1024 / 1024,
		MemoryTotalMB:      vmStat.Total / 1024 / 1024,
		MemoryUsagePercent: vmStat.UsedPercent,
		DataDirFreeGB:      freeGB,
		DataDirUsedPercent: usedPercent,
		NumGoroutines:      runtime.NumGoroutine(),
		LastUpdated:        time.Now(),
	}
	m.mu.Unlock()
}
