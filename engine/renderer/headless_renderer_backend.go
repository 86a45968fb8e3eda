package renderer

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrBackendReleased is returned when drawing through a released backend.
var ErrBackendReleased = errors.New("renderer backend released")

// headlessRendererBackendImpl keeps the most recent frame in memory instead of drawing it.
type headlessRendererBackendImpl struct {
	mu       *sync.Mutex
	width    int
	height   int
	mode     PresentMode
	last     *Frame
	draws    int
	released bool
}

var _ RendererBackend = &headlessRendererBackendImpl{}

func newHeadlessRendererBackend() *headlessRendererBackendImpl {
	return &headlessRendererBackendImpl{mu: &sync.Mutex{}}
}

func (b *headlessRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.width = width
	b.height = height
}

func (b *headlessRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = mode
}

func (b *headlessRendererBackendImpl) Draw(frame *Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return ErrBackendReleased
	}
	b.last = frame
	b.draws++
	return nil
}

func (b *headlessRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
	b.last = nil
}

// lastFrame returns the most recently drawn frame, or nil.
func (b *headlessRendererBackendImpl) lastFrame() *Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}
