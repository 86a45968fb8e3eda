// Package host provides the event loops the engine runs on.
//
// A Loop owns one goroutine. Everything that touches the scene, the animator
// or the renderer runs there, either as a posted task or as a frame callback.
// The interactive loop lives in the window package; this package holds the
// headless loop and the queue both are built on.
package host

import (
	"context"
	"sync"
	"time"
)

// Loop is a single-goroutine event loop with a frame clock.
type Loop interface {
	// Now returns the loop's clock reading.
	Now() time.Time

	// RequestFrame schedules fn to run on the next frame.
	//
	// Parameters:
	//   - fn: the frame callback
	RequestFrame(fn func())

	// Post schedules fn to run on the loop goroutine as soon as possible. Safe from any goroutine.
	//
	// Parameters:
	//   - fn: the task to run
	Post(fn func())

	// Run processes tasks and frames until ctx is done or the loop is closed.
	//
	// Parameters:
	//   - ctx: cancels the loop
	//
	// Returns:
	//   - error: nil on a normal shutdown
	Run(ctx context.Context) error
}

// HeadlessLoop is a Loop driven by a ticker instead of a display.
type HeadlessLoop interface {
	Loop

	// Step runs pending tasks and then one frame, without waiting for the ticker.
	//
	// Returns:
	//   - int: the number of frame callbacks run
	Step() int

	// Frames returns how many frames have run.
	Frames() uint64
}

type headlessLoop struct {
	mu       *sync.Mutex
	queue    *Queue
	interval time.Duration
	clock    func() time.Time
	frames   uint64
}

var _ HeadlessLoop = &headlessLoop{}

// NewHeadless creates a headless loop ticking at 60 Hz on the wall clock.
//
// Parameters:
//   - options: functional options to configure the loop
//
// Returns:
//   - HeadlessLoop: the new loop
func NewHeadless(options ...HostBuilderOption) HeadlessLoop {
	h := &headlessLoop{
		mu:       &sync.Mutex{},
		queue:    NewQueue(),
		interval: time.Second / 60,
		clock:    time.Now,
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

func (h *headlessLoop) Now() time.Time {
	return h.clock()
}

func (h *headlessLoop) RequestFrame(fn func()) {
	h.queue.RequestFrame(fn)
}

func (h *headlessLoop) Post(fn func()) {
	h.queue.Post(fn)
}

func (h *headlessLoop) Step() int {
	h.queue.RunPosted()
	n := h.queue.RunFrames()
	if n > 0 {
		h.mu.Lock()
		h.frames++
		h.mu.Unlock()
	}
	return n
}

func (h *headlessLoop) Frames() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frames
}

func (h *headlessLoop) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.queue.Wake():
			h.queue.RunPosted()
		case <-ticker.C:
			if h.queue.FramePending() {
				h.Step()
			} else {
				h.queue.RunPosted()
			}
		}
	}
}
