package feed

import (
	"time"

	"github.com/Carmen-Shannon/tilescape/engine/world"
)

const (
	// DefaultWorkers is the number of decode workers.
	DefaultWorkers = 4

	// DefaultQueue is the capacity of the decode task queue.
	DefaultQueue = 64

	// DefaultInterval is the pause between delivered snapshots.
	DefaultInterval = 500 * time.Millisecond
)

// FeedBuilderOption is a functional option for configuring a Feed.
type FeedBuilderOption func(f *feed)

// WithWorkers sets how many files are decoded at once.
//
// Parameters:
//   - n: the worker count; values below 1 are ignored
//
// Returns:
//   - FeedBuilderOption: option function to apply
func WithWorkers(n int) FeedBuilderOption {
	return func(f *feed) {
		if n > 0 {
			f.workers = n
		}
	}
}

// WithQueue sets the capacity of the decode task queue.
//
// Parameters:
//   - n: the queue size; values below 1 are ignored
//
// Returns:
//   - FeedBuilderOption: option function to apply
func WithQueue(n int) FeedBuilderOption {
	return func(f *feed) {
		if n > 0 {
			f.queue = n
		}
	}
}

// WithInterval sets the pause between delivered snapshots. Zero delivers back to back.
//
// Parameters:
//   - interval: the pause
//
// Returns:
//   - FeedBuilderOption: option function to apply
func WithInterval(interval time.Duration) FeedBuilderOption {
	return func(f *feed) {
		if interval >= 0 {
			f.interval = interval
		}
	}
}

// WithBuilder sets the builder that expands puzzle states.
//
// Parameters:
//   - b: the world builder
//
// Returns:
//   - FeedBuilderOption: option function to apply
func WithBuilder(b world.Builder) FeedBuilderOption {
	return func(f *feed) {
		f.builder = b
	}
}
