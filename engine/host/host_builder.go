package host

import "time"

// HostBuilderOption is a functional option for configuring a headless loop.
type HostBuilderOption func(h *headlessLoop)

// WithInterval sets the frame tick interval. Non-positive values are ignored.
//
// Parameters:
//   - interval: time between frames
//
// Returns:
//   - HostBuilderOption: option function to apply
func WithInterval(interval time.Duration) HostBuilderOption {
	return func(h *headlessLoop) {
		if interval > 0 {
			h.interval = interval
		}
	}
}

// WithClock replaces the wall clock, typically with a manual clock in tests.
//
// Parameters:
//   - clock: returns the current time
//
// Returns:
//   - HostBuilderOption: option function to apply
func WithClock(clock func() time.Time) HostBuilderOption {
	return func(h *headlessLoop) {
		if clock != nil {
			h.clock = clock
		}
	}
}
