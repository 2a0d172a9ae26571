package telemetry

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const bytesPerGB = 1024 * 1024 * 1024
const bytesPerMB = 1024 * 1024

// Monitor samples the process RSS in the background and accumulates disk
// counters, feeding the per-session telemetry record.
type Monitor struct {
	mu sync.Mutex

	proc      *process.Process
	peakRSS   uint64
	written   int64
	deleted   int64
	startTime time.Time

	stop chan struct{}
	done chan struct{}
}

// NewMonitor creates a monitor for the current process.
func NewMonitor() (*Monitor, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Monitor{
		proc:      proc,
		startTime: time.Now(),
	}, nil
}

// Start begins background RSS sampling at the given interval.
func (m *Monitor) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sample()
			case <-m.stop:
				return
			}
		}
	}()
}

// Stop halts background sampling and waits for the sampler to exit.
func (m *Monitor) Stop() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.stop = nil
}

// Sample takes one RSS reading and updates the peak.
func (m *Monitor) Sample() {
	info, err := m.proc.MemoryInfo()
	if err != nil {
		return
	}
	m.mu.Lock()
	if info.RSS > m.peakRSS {
		m.peakRSS = info.RSS
	}
	m.mu.Unlock()
}

// PeakMemoryGB returns the highest RSS observed, in gigabytes.
func (m *Monitor) PeakMemoryGB() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.peakRSS) / bytesPerGB
}

// RecordDiskWrite accumulates bytes written to the workspace.
func (m *Monitor) RecordDiskWrite(bytes int64) {
	m.mu.Lock()
	m.written += bytes
	m.mu.Unlock()
}

// RecordDiskDelete accumulates bytes deleted from the workspace.
func (m *Monitor) RecordDiskDelete(bytes int64) {
	m.mu.Lock()
	m.deleted += bytes
	m.mu.Unlock()
}

// Snapshot fills a telemetry record with the monitor's observations.
func (m *Monitor) Snapshot(sessionID string, totalTokens int64, success bool) SessionTelemetry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SessionTelemetry{
		SessionID:     sessionID,
		Timestamp:     time.Now(),
		Platform:      "cli",
		Success:       success,
		PeakMemoryGB:  float64(m.peakRSS) / bytesPerGB,
		TotalTokens:   totalTokens,
		DiskWrittenMB: float64(m.written) / bytesPerMB,
		DiskDeletedMB: float64(m.deleted) / bytesPerMB,
		DurationSec:   int64(time.Since(m.startTime).Seconds()),
	}
}
