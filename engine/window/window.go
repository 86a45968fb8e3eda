package window

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/tilescape/engine/host"
	"github.com/cogentcore/webgpu/wgpu"
)

// Window is a native window that doubles as the engine's interactive event loop.
//
// The window must be created and run on the same goroutine, which is locked to
// its OS thread during creation. Other goroutines reach the loop through Post.
type Window interface {
	host.Loop

	// RequestFrameAt schedules fn for the first frame at or after at. The loop
	// sleeps on events until then instead of polling.
	//
	// Parameters:
	//   - at: the earliest time fn may run
	//   - fn: the frame callback
	RequestFrameAt(at time.Time, fn func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// IsRunning returns true if the window is still active.
	//
	// Returns:
	//   - bool: true if window is running, false if closed
	IsRunning() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
// Holds window configuration, GLFW state, and the loop queue.
type engineWindow struct {
	mu *sync.Mutex

	// title is the window title displayed in the title bar.
	title string

	// minimum and maximum framebuffer sizes enforced during resize.
	maxWidth  int
	maxHeight int
	minWidth  int
	minHeight int

	// current framebuffer size in pixels.
	width  int
	height int

	// idleWait bounds how long the loop blocks for events when no frame is pending.
	idleWait time.Duration

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	queue *host.Queue

	// onResize is called when the framebuffer is resized.
	onResize func(width, height int)
}

var _ Window = &engineWindow{}

// NewWindow creates a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the spawned window
func NewWindow(options ...WindowBuilderOption) Window {
	w := &engineWindow{
		mu:        &sync.Mutex{},
		title:     "tilescape",
		maxWidth:  3840,
		maxHeight: 2160,
		minWidth:  320,
		minHeight: 240,
		width:     1280,
		height:    720,
		idleWait:  100 * time.Millisecond,
		queue:     host.NewQueue(),
	}
	for _, opt := range options {
		opt(w)
	}
	if err := newPlatformWindow(w); err != nil {
		panic(fmt.Sprintf("window: failed to create platform window: %v", err))
	}
	return w
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) Now() time.Time {
	return platformNow()
}

func (w *engineWindow) RequestFrame(fn func()) {
	w.queue.RequestFrame(fn)
	platformWake(w)
}

func (w *engineWindow) Post(fn func()) {
	w.queue.Post(fn)
	platformWake(w)
}

// Run polls events every iteration while a frame is ready. Otherwise it blocks on
// events until the next deferred frame is due, capped at idleWait, so neither an
// idle nor a throttled scene spins the CPU.
func (w *engineWindow) Run(ctx context.Context) error {
	for w.IsRunning() {
		if ctx.Err() != nil {
			return nil
		}

		if succ := platformProcessMessages(w, w.nextWait()); !succ {
			break
		}

		w.queue.RunPosted()
		w.queue.Promote(w.Now())
		w.queue.RunFrames()
	}
	return nil
}

func (w *engineWindow) RequestFrameAt(at time.Time, fn func()) {
	w.queue.RequestFrameAt(at, fn)
}

// nextWait is how long the loop may block on events before work is due.
func (w *engineWindow) nextWait() time.Duration {
	return host.Wait(w.queue, w.Now(), w.idleWait)
}

func (w *engineWindow) Width() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.width
}

func (w *engineWindow) Height() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.height
}

// setSize records a new framebuffer size clamped to the configured bounds.
func (w *engineWindow) setSize(width, height int) (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.width = min(max(width, w.minWidth), w.maxWidth)
	w.height = min(max(height, w.minHeight), w.maxHeight)
	return w.width, w.height
}
