package scheduler

import "time"

const (
	// DefaultTargetFPS is the throttle rate of a new scheduler.
	DefaultTargetFPS = 60.0

	// DefaultThrottleSlack is the fraction of the frame interval a frame may arrive early
	// and still run, so display jitter does not halve the rate.
	DefaultThrottleSlack = 0.1
)

// SchedulerBuilderOption is a functional option for configuring a Scheduler.
type SchedulerBuilderOption func(s *scheduler)

// WithTargetFPS sets the throttle rate. Zero or negative disables throttling.
//
// Parameters:
//   - fps: target frames per second
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithTargetFPS(fps float64) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.targetFPS = fps
	}
}

// WithForcedFPS fixes the frame rate and the animation step.
//
// Parameters:
//   - fps: forced frames per second, 0 to disable
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithForcedFPS(fps float64) SchedulerBuilderOption {
	return func(s *scheduler) {
		if fps > 0 {
			s.forcedFPS = fps
		}
	}
}

// WithThrottleSlack sets how early, as a fraction of the interval, a frame may run.
//
// Parameters:
//   - fraction: between 0 and 1
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithThrottleSlack(fraction float64) SchedulerBuilderOption {
	return func(s *scheduler) {
		if fraction >= 0 && fraction < 1 {
			s.throttleSlack = fraction
		}
	}
}

// WithFPSWindow sets the number of frame intervals in the rolling average.
//
// Parameters:
//   - n: window length in frames
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithFPSWindow(n int) SchedulerBuilderOption {
	return func(s *scheduler) {
		if n > 0 {
			s.fpsWindow = n
		}
	}
}

// WithReportInterval sets how often the rolling frame rate is reported.
//
// Parameters:
//   - d: the report interval
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithReportInterval(d time.Duration) SchedulerBuilderOption {
	return func(s *scheduler) {
		if d > 0 {
			s.reportInterval = d
		}
	}
}

// WithMemoryStats logs heap and GC statistics with every frame rate report.
//
// Parameters:
//   - enabled: whether to log memory statistics
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithMemoryStats(enabled bool) SchedulerBuilderOption {
	return func(s *scheduler) {
		s.memoryStats = enabled
	}
}

// WithFPSSink registers a frame rate sink at construction.
//
// Parameters:
//   - fn: the sink
//
// Returns:
//   - SchedulerBuilderOption: option function to apply
func WithFPSSink(fn func(fps float64)) SchedulerBuilderOption {
	return func(s *scheduler) {
		if fn != nil {
			s.sinks = append(s.sinks, fn)
		}
	}
}
