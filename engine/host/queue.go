package host

import (
	"sync"
	"time"
)

// Queue holds the two kinds of work a Loop runs on its own goroutine: posted
// tasks from other goroutines, and callbacks waiting for the next frame.
//
// Frame callbacks requested while frames are running land in the following
// frame, so a callback that re-requests itself runs once per frame. Deferred
// callbacks wait in their own list until Promote finds them due.
type Queue struct {
	mu       *sync.Mutex
	posted   []func()
	frames   []func()
	deferred []deferredFrame
	wake     chan struct{}
}

type deferredFrame struct {
	at time.Time
	fn func()
}

// NewQueue creates an empty Queue.
//
// Returns:
//   - *Queue: the new queue
func NewQueue() *Queue {
	return &Queue{
		mu:   &sync.Mutex{},
		wake: make(chan struct{}, 1),
	}
}

// Post enqueues fn to run on the loop goroutine and signals Wake. Safe from any goroutine.
//
// Parameters:
//   - fn: the task to run
func (q *Queue) Post(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.posted = append(q.posted, fn)
	q.mu.Unlock()
	q.signal()
}

// RequestFrame enqueues fn to run on the next frame and signals Wake.
//
// Parameters:
//   - fn: the frame callback
func (q *Queue) RequestFrame(fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.frames = append(q.frames, fn)
	q.mu.Unlock()
	q.signal()
}

// RequestFrameAt holds fn until Promote is called at or after at. Unlike RequestFrame
// it does not signal Wake, so a loop can sleep until the frame is due.
//
// Parameters:
//   - at: the earliest time fn may run
//   - fn: the frame callback
func (q *Queue) RequestFrameAt(at time.Time, fn func()) {
	if fn == nil {
		return
	}
	q.mu.Lock()
	q.deferred = append(q.deferred, deferredFrame{at: at, fn: fn})
	q.mu.Unlock()
}

// Promote moves every deferred callback due at now into the next frame.
//
// Parameters:
//   - now: the loop's current time
//
// Returns:
//   - int: the number of callbacks promoted
func (q *Queue) Promote(now time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.deferred[:0]
	n := 0
	for _, d := range q.deferred {
		if now.Before(d.at) {
			kept = append(kept, d)
			continue
		}
		q.frames = append(q.frames, d.fn)
		n++
	}
	clear(q.deferred[len(kept):])
	q.deferred = kept
	return n
}

// NextDue returns the earliest time a deferred callback becomes due.
//
// Returns:
//   - time.Time: the earliest due time
//   - bool: false when nothing is deferred
func (q *Queue) NextDue() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.deferred) == 0 {
		return time.Time{}, false
	}
	due := q.deferred[0].at
	for _, d := range q.deferred[1:] {
		if d.at.Before(due) {
			due = d.at
		}
	}
	return due, true
}

// Wake returns a channel that receives after Post or RequestFrame.
func (q *Queue) Wake() <-chan struct{} {
	return q.wake
}

// FramePending reports whether any frame callback is waiting.
func (q *Queue) FramePending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames) > 0
}

// RunPosted runs every posted task in submission order, including tasks posted while running.
//
// Returns:
//   - int: the number of tasks run
func (q *Queue) RunPosted() int {
	n := 0
	for {
		q.mu.Lock()
		batch := q.posted
		q.posted = nil
		q.mu.Unlock()
		if len(batch) == 0 {
			return n
		}
		for _, fn := range batch {
			fn()
		}
		n += len(batch)
	}
}

// RunFrames runs the callbacks queued before this call.
//
// Returns:
//   - int: the number of callbacks run
func (q *Queue) RunFrames() int {
	q.mu.Lock()
	batch := q.frames
	q.frames = nil
	q.mu.Unlock()
	for _, fn := range batch {
		fn()
	}
	return len(batch)
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Wait returns how long a loop may block on external events before q has work due.
// A ready frame means no wait. A deferred frame bounds the wait to its due time.
//
// Parameters:
//   - q: the loop's queue
//   - now: the loop's current time
//   - idle: the longest wait when nothing is queued
//
// Returns:
//   - time.Duration: the wait, zero to poll
func Wait(q *Queue, now time.Time, idle time.Duration) time.Duration {
	if q.FramePending() {
		return 0
	}
	if due, ok := q.NextDue(); ok {
		return max(min(due.Sub(now), idle), 0)
	}
	return idle
}
