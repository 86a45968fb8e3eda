package profiler

import "time"

const (
	// DefaultWindow is the number of frame intervals averaged.
	DefaultWindow = 60

	// DefaultReportInterval is how often a rolling average is reported.
	DefaultReportInterval = time.Second
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(p *Profiler)

// WithWindow sets the number of samples in the sliding window. Values below 1 keep the default.
//
// Parameters:
//   - n: window length in frames
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithWindow(n int) ProfilerBuilderOption {
	return func(p *Profiler) {
		if n > 0 {
			p.samples = make([]time.Duration, n)
		}
	}
}

// WithReportInterval sets how much sampled time passes between reports.
//
// Parameters:
//   - d: the report interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithReportInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.reportInterval = d
		}
	}
}

// WithMemoryStats enables logging heap and GC statistics with every report.
//
// Parameters:
//   - enabled: whether to log memory statistics
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithMemoryStats(enabled bool) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.logMemory = enabled
	}
}
