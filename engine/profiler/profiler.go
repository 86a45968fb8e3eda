package profiler

import (
	"log"
	"runtime"
	"sync"
	"time"
)

// Profiler keeps a sliding window of frame intervals and reports the rolling
// average frame rate once per report interval. Optionally logs memory statistics
// alongside each report.
type Profiler struct {
	mu *sync.Mutex

	samples []time.Duration // ring buffer of the most recent intervals
	next    int
	count   int
	total   time.Duration

	sinceReport    time.Duration
	reportInterval time.Duration
	logMemory      bool

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// NewProfiler creates a new Profiler with a 60 sample window and a 1 second report interval.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		samples:        make([]time.Duration, DefaultWindow),
		reportInterval: DefaultReportInterval,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Sample records the interval since the previous frame. Once the intervals seen
// since the last report add up to the report interval, it returns the rolling
// average over the window and clears the window.
//
// Parameters:
//   - interval: time since the previous frame; non-positive values are ignored
//
// Returns:
//   - float64: frames per second over the window
//   - bool: true if a report is due this sample
func (p *Profiler) Sample(interval time.Duration) (float64, bool) {
	if interval <= 0 {
		return 0, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.count == len(p.samples) {
		p.total -= p.samples[p.next]
	} else {
		p.count++
	}
	p.samples[p.next] = interval
	p.total += interval
	p.next = (p.next + 1) % len(p.samples)

	p.sinceReport += interval
	if p.sinceReport < p.reportInterval {
		return 0, false
	}

	fps := p.fps()
	if p.logMemory {
		p.logStats(fps, p.sinceReport)
	}
	p.reset()
	return fps, true
}

// FPS returns the rolling average over the current window, or 0 if it is empty.
func (p *Profiler) FPS() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fps()
}

// Len returns the number of samples currently in the window.
func (p *Profiler) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Reset clears the window and the report timer.
func (p *Profiler) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

func (p *Profiler) fps() float64 {
	if p.count == 0 || p.total <= 0 {
		return 0
	}
	return float64(p.count) / p.total.Seconds()
}

func (p *Profiler) reset() {
	for i := range p.samples {
		p.samples[i] = 0
	}
	p.next = 0
	p.count = 0
	p.total = 0
	p.sinceReport = 0
}

// logStats writes heap usage, allocation rate and GC pauses since the last report.
func (p *Profiler) logStats(fps float64, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	// Alloc: live heap. TotalAlloc: cumulative heap allocations. Sys: bytes obtained from the OS.
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)

	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
}
