// Package scheduler runs the update and render loop only while something on
// screen can still change.
//
// The scheduler is IDLE until new scene data arrives or a render is requested.
// While RUNNING it asks its host for one frame at a time; each frame advances
// the animation, draws, and decides whether another frame is needed.
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/tilescape/engine/profiler"
)

// State is the scheduler's run state.
type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Host supplies the clock and the per-frame callback primitive.
type Host interface {
	Now() time.Time
	RequestFrame(fn func())
}

// FrameDeferrer is implemented by hosts that can hold a frame callback until it is due.
// A throttled tick uses it so the host can sleep instead of spinning through early frames.
type FrameDeferrer interface {
	RequestFrameAt(at time.Time, fn func())
}

// Animation is advanced once per executed frame.
type Animation interface {
	Update(deltaMs float64)
	IsMoving() bool
}

// RenderFunc draws the current pool.
type RenderFunc func() error

type scheduler struct {
	mu *sync.Mutex

	host      Host
	animation Animation
	render    RenderFunc
	profiler  *profiler.Profiler

	state          State
	renderPending  bool
	last           time.Time // time of the last executed frame; zero right after waking
	targetFPS      float64
	forcedFPS      float64
	throttleSlack  float64
	fpsWindow      int
	reportInterval time.Duration
	memoryStats    bool
	ticks          uint64
	skipped        uint64
	renderErrors   uint64
	fps            float64
	sinks          []func(fps float64)
}

// Scheduler is the IDLE/RUNNING frame state machine.
//
// Wake, RequestRender and the frame callbacks must run on the host's goroutine.
// The read-only getters are safe from anywhere.
type Scheduler interface {
	// State returns the current run state.
	State() State

	// Wake marks new scene data. An idle scheduler starts running and requests a frame.
	Wake()

	// RequestRender marks a render as pending and wakes the scheduler. The next
	// executed frame clears the flag.
	RequestRender()

	// RenderPending reports whether a requested render has not happened yet.
	RenderPending() bool

	// SetTargetFPS sets the throttle rate. Zero or negative disables throttling.
	//
	// Parameters:
	//   - fps: target frames per second
	SetTargetFPS(fps float64)

	// TargetFPS returns the throttle rate.
	TargetFPS() float64

	// SetForcedFPS fixes both the frame rate and the animation step. Zero restores
	// wall-clock stepping at the target rate.
	//
	// Parameters:
	//   - fps: forced frames per second
	SetForcedFPS(fps float64)

	// ForcedFPS returns the forced rate, 0 when not forced.
	ForcedFPS() float64

	// OnFPS registers a sink for the rolling frame rate, called about once per report interval.
	//
	// Parameters:
	//   - fn: the sink
	OnFPS(fn func(fps float64))

	// FPS returns the last reported rolling frame rate.
	FPS() float64

	// Ticks returns the number of executed frames.
	Ticks() uint64

	// Skipped returns the number of frames skipped by the throttle.
	Skipped() uint64

	// RenderErrors returns the number of failed draws.
	RenderErrors() uint64
}

var _ Scheduler = &scheduler{}

// NewScheduler creates an idle scheduler.
//
// Parameters:
//   - host: clock and frame request primitive
//   - animation: advanced once per executed frame
//   - render: draws the current pool
//   - options: functional options to configure the scheduler
//
// Returns:
//   - Scheduler: the new scheduler
func NewScheduler(host Host, animation Animation, render RenderFunc, options ...SchedulerBuilderOption) Scheduler {
	if host == nil || animation == nil || render == nil {
		panic("scheduler: host, animation and render are required")
	}
	s := &scheduler{
		mu:             &sync.Mutex{},
		host:           host,
		animation:      animation,
		render:         render,
		state:          StateIdle,
		targetFPS:      DefaultTargetFPS,
		throttleSlack:  DefaultThrottleSlack,
		fpsWindow:      profiler.DefaultWindow,
		reportInterval: profiler.DefaultReportInterval,
	}
	for _, opt := range options {
		opt(s)
	}
	s.profiler = profiler.NewProfiler(
		profiler.WithWindow(s.fpsWindow),
		profiler.WithReportInterval(s.reportInterval),
		profiler.WithMemoryStats(s.memoryStats),
	)
	return s
}

func (s *scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *scheduler) Wake() {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StateRunning
	s.last = time.Time{}
	s.mu.Unlock()

	s.host.RequestFrame(s.tick)
}

func (s *scheduler) RequestRender() {
	s.mu.Lock()
	s.renderPending = true
	s.mu.Unlock()
	s.Wake()
}

func (s *scheduler) RenderPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderPending
}

func (s *scheduler) SetTargetFPS(fps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetFPS = fps
}

func (s *scheduler) TargetFPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targetFPS
}

func (s *scheduler) SetForcedFPS(fps float64) {
	if fps < 0 {
		fps = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcedFPS = fps
}

func (s *scheduler) ForcedFPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forcedFPS
}

func (s *scheduler) OnFPS(fn func(fps float64)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, fn)
}

func (s *scheduler) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps
}

func (s *scheduler) Ticks() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ticks
}

func (s *scheduler) Skipped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

func (s *scheduler) RenderErrors() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renderErrors
}

// interval is the minimum spacing between executed frames. Caller holds mu.
func (s *scheduler) interval() time.Duration {
	rate := s.targetFPS
	if s.forcedFPS > 0 {
		rate = s.forcedFPS
	}
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / rate)
}

// tick is the frame callback handed to the host.
func (s *scheduler) tick() {
	now := s.host.Now()

	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}

	var elapsed time.Duration
	if !s.last.IsZero() {
		elapsed = now.Sub(s.last)
		interval := s.interval()
		threshold := interval - time.Duration(float64(interval)*s.throttleSlack)
		if elapsed < threshold {
			s.skipped++
			due := s.last.Add(threshold)
			s.mu.Unlock()
			if d, ok := s.host.(FrameDeferrer); ok {
				d.RequestFrameAt(due, s.tick)
			} else {
				s.host.RequestFrame(s.tick)
			}
			return
		}
	}
	s.last = now
	s.ticks++
	s.renderPending = false

	deltaMs := float64(elapsed) / float64(time.Millisecond)
	if s.forcedFPS > 0 && elapsed > 0 {
		deltaMs = 1000 / s.forcedFPS
	}
	s.mu.Unlock()

	s.animation.Update(deltaMs)
	if err := s.render(); err != nil {
		s.mu.Lock()
		s.renderErrors++
		s.mu.Unlock()
		log.Printf("[Scheduler] Render failed: %v", err)
	}

	var sinks []func(float64)
	fps, report := s.profiler.Sample(elapsed)
	moving := s.animation.IsMoving()

	s.mu.Lock()
	if report {
		s.fps = fps
		sinks = append(sinks, s.sinks...)
	}
	keepRunning := moving || s.renderPending
	if !keepRunning {
		s.state = StateIdle
	}
	s.mu.Unlock()

	for _, sink := range sinks {
		sink(fps)
	}
	if keepRunning {
		s.host.RequestFrame(s.tick)
	}
}
