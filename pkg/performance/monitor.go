// Package performance provides resource monitoring and latency
// measurement for colgen's benchmark and profiling harnesses.
package performance

import (
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ResourceMonitor samples resource usage of the current process.
// Process CPU usage is averaged over the monitor's lifetime.
type ResourceMonitor struct {
	process      *process.Process
	startCPUTime float64
	startTime    time.Time
	mu           sync.RWMutex
}

// NewResourceMonitor creates a monitor anchored at the current process
// and the current time.
func NewResourceMonitor() *ResourceMonitor {
	proc, _ := process.NewProcess(int32(os.Getpid()))
	cpuTime, _ := proc.Times()

	return &ResourceMonitor{
		process:      proc,
		startCPUTime: cpuTime.Total(),
		startTime:    time.Now(),
	}
}

// GetResourceUsage returns current resource usage
func (rm *ResourceMonitor) GetResourceUsage() (*ResourceUsage, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	usage := &ResourceUsage{}

	// Process CPU, averaged since monitor start
	cpuTime, err := rm.process.Times()
	if err == nil {
		elapsed := time.Since(rm.startTime).Seconds()
		if elapsed > 0 {
			usage.CPUPercent = ((cpuTime.Total() - rm.startCPUTime) / elapsed) * 100
		}
	}

	// Instantaneous system-wide CPU
	if sysCPU, err := cpu.Percent(0, false); err == nil && len(sysCPU) > 0 {
		usage.SystemCPUPercent = sysCPU[0]
	}

	// Process memory
	if memInfo, err := rm.process.MemoryInfo(); err == nil {
		usage.MemoryRSS = memInfo.RSS
		usage.MemoryVMS = memInfo.VMS
	}

	// System memory
	if vmStat, err := mem.VirtualMemory(); err == nil {
		usage.SystemMemoryPercent = vmStat.UsedPercent
		usage.SystemMemoryAvailable = vmStat.Available
	}

	// Go runtime
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	usage.HeapAllocMB = memStats.HeapAlloc / 1024 / 1024
	usage.GCCount = memStats.NumGC

	usage.GoroutineCount = runtime.NumGoroutine()
	usage.ThreadCount, _ = rm.process.NumThreads()
	usage.OpenFDs, _ = rm.process.NumFDs()

	return usage, nil
}

// ResourceUsage contains resource usage information
type ResourceUsage struct {
	CPUPercent            float64
	SystemCPUPercent      float64
	MemoryRSS             uint64
	MemoryVMS             uint64
	SystemMemoryPercent   float64
	SystemMemoryAvailable uint64
	HeapAllocMB           uint64
	GCCount               uint32
	GoroutineCount        int
	ThreadCount           int32
	OpenFDs               int32
}

// LatencyTracker tracks latency percentiles over a bounded sample
// window.
type LatencyTracker struct {
	samples []time.Duration
	mu      sync.Mutex
}

// NewLatencyTracker creates a latency tracker
func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{
		samples: make([]time.Duration, 0, 10000),
	}
}

// Record records a latency sample
func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.samples = append(lt.samples, d)

	// Keep last 10000 samples
	if len(lt.samples) > 10000 {
		lt.samples = lt.samples[len(lt.samples)-10000:]
	}
}

// Count returns the number of recorded samples.
func (lt *LatencyTracker) Count() int {
	lt.mu.Lock()
	defer lt.mu.Unlock()
	return len(lt.samples)
}

// Mean returns the mean of the recorded samples.
func (lt *LatencyTracker) Mean() time.Duration {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if len(lt.samples) == 0 {
		return 0
	}

	var total time.Duration
	for _, s := range lt.samples {
		total += s
	}
	return total / time.Duration(len(lt.samples))
}

// GetPercentiles returns latency percentiles
func (lt *LatencyTracker) GetPercentiles() (p50, p95, p99 time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if len(lt.samples) == 0 {
		return 0, 0, 0
	}

	sorted := make([]time.Duration, len(lt.samples))
	copy(sorted, lt.samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	p50 = sorted[len(sorted)*50/100]
	p95 = sorted[len(sorted)*95/100]
	p99 = sorted[len(sorted)*99/100]

	return
}
