package renderer

import (
	"github.com/Carmen-Shannon/tilescape/engine/cache"
	"github.com/Carmen-Shannon/tilescape/engine/camera"
	"github.com/Carmen-Shannon/tilescape/engine/light"
)

// RendererBackendType identifies the backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeHeadless selects a backend that records frames without a GPU.
	// Used for replay runs, servers without a display, and tests.
	BackendTypeHeadless
)

// String returns the config name of the backend type.
func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeHeadless:
		return "headless"
	default:
		return "unknown"
	}
}

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// Batch is every enabled object sharing one geometry, drawn with a single instanced call.
type Batch struct {
	Geometry  *cache.Geometry
	Instances []GPUInstance
}

// Frame is everything a backend needs to draw one image.
type Frame struct {
	Background [4]float32
	Ambient    [3]float32
	Camera     camera.GPUCameraUniform
	Lights     []light.GPULight
	Batches    []Batch
}

// InstanceCount returns the total number of instances across all batches.
func (f *Frame) InstanceCount() int {
	n := 0
	for _, b := range f.Batches {
		n += len(b.Instances)
	}
	return n
}

// RendererBackend draws frames assembled by the Renderer frontend.
type RendererBackend interface {
	// ConfigureSurface prepares the backend for a new surface size.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets how frames are delivered to the display.
	// Takes effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Draw encodes, submits and presents one frame.
	//
	// Parameters:
	//   - frame: the assembled frame
	//
	// Returns:
	//   - error: an error if the frame could not be acquired or submitted
	Draw(frame *Frame) error

	// Release frees every backend resource. The backend is unusable afterwards.
	Release()
}
