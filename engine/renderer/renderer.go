package renderer

import (
	"sort"
	"sync"

	"github.com/Carmen-Shannon/tilescape/common"
	"github.com/Carmen-Shannon/tilescape/engine/cache"
	"github.com/Carmen-Shannon/tilescape/engine/camera"
	"github.com/Carmen-Shannon/tilescape/engine/game_object"
	"github.com/Carmen-Shannon/tilescape/engine/light"
	"github.com/Carmen-Shannon/tilescape/engine/renderer/material"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/Carmen-Shannon/tilescape/engine/window"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	objects map[uint64]game_object.GameObject
	nextID  uint64

	camera     camera.Camera
	lights     []light.Light
	background uint32
	ambient    [3]float32
	width      int
	height     int
	frames     uint64

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
}

// Renderer is the drawing side of the engine.
//
// It owns the set of live render objects and the camera and lights they are
// viewed under. Objects are created from shared geometry and material handles,
// moved with SetTransform and dropped with Remove; Render draws whatever is
// live at that moment through the configured backend.
type Renderer interface {
	// Create instantiates and registers a render object.
	//
	// Parameters:
	//   - geometry: the shared geometry handle
	//   - mat: the shared material handle
	//
	// Returns:
	//   - game_object.GameObject: the new object, registered and enabled
	Create(geometry *cache.Geometry, mat material.Material) game_object.GameObject

	// SetTransform moves a registered object.
	//
	// Parameters:
	//   - obj: the object to move
	//   - position: the new world-space position
	//   - rotation: the new Euler rotation in radians
	SetTransform(obj game_object.GameObject, position, rotation mgl64.Vec3)

	// Remove unregisters and disables an object. Removing an unknown object is a no-op.
	//
	// Parameters:
	//   - obj: the object to remove
	Remove(obj game_object.GameObject)

	// Objects returns every registered object ordered by ID.
	//
	// Returns:
	//   - []game_object.GameObject: the live objects
	Objects() []game_object.GameObject

	// Len returns the number of registered objects.
	Len() int

	// Camera returns the renderer's camera.
	Camera() camera.Camera

	// SetCamera applies a snapshot's camera description.
	//
	// Parameters:
	//   - desc: the camera descriptor
	SetCamera(desc scene.Camera)

	// SetLights replaces the light list. Only the first light.MaxGPULights are drawn.
	//
	// Parameters:
	//   - lights: the lights to use
	SetLights(lights []light.Light)

	// Lights returns the current light list.
	Lights() []light.Light

	// SetBackground sets the clear color from a packed 0xRRGGBB value.
	//
	// Parameters:
	//   - hex: the packed color
	SetBackground(hex uint32)

	// Background returns the packed clear color.
	Background() uint32

	// Resize configures the backend for a new surface size and updates the camera aspect.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetPresentMode sets the surface present mode. A call to Resize is required for it to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// Frame assembles the frame Render would draw without drawing it.
	//
	// Returns:
	//   - *Frame: the assembled frame
	Frame() *Frame

	// Render draws every enabled object.
	//
	// Returns:
	//   - error: a wrapped backend error if the frame failed
	Render() error

	// Frames returns how many frames were drawn successfully.
	Frames() uint64

	// BackendType returns the backend this renderer was built with.
	BackendType() RendererBackendType

	// Release frees backend resources.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend.
// The window supplies the surface for BackendTypeWGPU and may be nil for BackendTypeHeadless.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - win: the window to draw into, nil for headless
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:          &sync.Mutex{},
		objects:     make(map[uint64]game_object.GameObject),
		background:  scene.DefaultBackground,
		ambient:     [3]float32{0.25, 0.25, 0.25},
		width:       800,
		height:      600,
		backendType: backendType,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeHeadless:
		r.backend = newHeadlessRendererBackend()
	case BackendTypeWGPU:
		fallthrough
	default:
		if win == nil {
			panic("renderer: wgpu backend requires a window")
		}
		r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
		r.width, r.height = win.Width(), win.Height()
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if r.camera == nil {
		r.camera = camera.NewCamera()
	}

	r.Resize(r.width, r.height)
	return r
}

// NewHeadlessRenderer creates a Renderer that records frames without touching a GPU.
//
// Parameters:
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the headless renderer
func NewHeadlessRenderer(options ...RendererBuilderOption) Renderer {
	return NewRenderer(BackendTypeHeadless, nil, options...)
}

func (r *renderer) Create(geometry *cache.Geometry, mat material.Material) game_object.GameObject {
	if geometry == nil || mat == nil {
		panic("renderer: Create requires a geometry and a material")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	obj := game_object.NewGameObject(
		game_object.WithID(r.nextID),
		game_object.WithGeometry(geometry),
		game_object.WithMaterial(mat),
	)
	r.objects[obj.ID()] = obj
	return obj
}

func (r *renderer) SetTransform(obj game_object.GameObject, position, rotation mgl64.Vec3) {
	obj.SetTransform(position, rotation)
}

func (r *renderer) Remove(obj game_object.GameObject) {
	if obj == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.objects[obj.ID()]; !ok {
		return
	}
	delete(r.objects, obj.ID())
	obj.SetEnabled(false)
}

func (r *renderer) Objects() []game_object.GameObject {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]game_object.GameObject, 0, len(r.objects))
	for _, obj := range r.objects {
		out = append(out, obj)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (r *renderer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

func (r *renderer) Camera() camera.Camera {
	return r.camera
}

func (r *renderer) SetCamera(desc scene.Camera) {
	r.camera.Apply(desc)
}

func (r *renderer) SetLights(lights []light.Light) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lights = append(r.lights[:0:0], lights...)
}

func (r *renderer) Lights() []light.Light {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]light.Light(nil), r.lights...)
}

func (r *renderer) SetBackground(hex uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.background = hex
}

func (r *renderer) Background() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.background
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	r.width, r.height = width, height
	r.mu.Unlock()
	r.camera.SetAspect(float32(width) / float32(height))
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Frame() *Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assembleFrame()
}

func (r *renderer) Render() error {
	r.mu.Lock()
	frame := r.assembleFrame()
	r.mu.Unlock()

	if err := r.backend.Draw(frame); err != nil {
		return errors.Wrapf(err, "render %s frame", r.backendType)
	}

	r.mu.Lock()
	r.frames++
	r.mu.Unlock()
	return nil
}

func (r *renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *renderer) BackendType() RendererBackendType {
	return r.backendType
}

func (r *renderer) Release() {
	r.backend.Release()
}

// assembleFrame groups enabled objects into one batch per geometry. Batches are
// ordered by signature and instances by object ID so frames are deterministic.
// Caller holds mu.
func (r *renderer) assembleFrame() *Frame {
	bg := common.HexColor(r.background)
	frame := &Frame{
		Background: bg,
		Ambient:    r.ambient,
		Camera:     r.camera.Uniform(),
	}

	for i, l := range r.lights {
		if i >= light.MaxGPULights {
			break
		}
		frame.Lights = append(frame.Lights, l.GPU())
	}

	ids := make([]uint64, 0, len(r.objects))
	for id, obj := range r.objects {
		if obj.Enabled() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	batches := make(map[*cache.Geometry]*Batch)
	order := make([]*cache.Geometry, 0)
	for _, id := range ids {
		obj := r.objects[id]
		g := obj.Geometry()
		b, ok := batches[g]
		if !ok {
			b = &Batch{Geometry: g}
			batches[g] = b
			order = append(order, g)
		}
		b.Instances = append(b.Instances, instanceOf(obj))
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].Signature().String() < order[j].Signature().String()
	})
	for _, g := range order {
		frame.Batches = append(frame.Batches, *batches[g])
	}
	return frame
}

// instanceOf packs an object's transform and material into its GPU form.
func instanceOf(obj game_object.GameObject) GPUInstance {
	m := obj.Material()
	e := m.Emissive()
	k := m.EmissiveIntensity()
	return GPUInstance{
		Model:    [16]float32(obj.ModelMatrix()),
		Color:    m.BaseColor(),
		Emissive: [4]float32{e[0] * k, e[1] * k, e[2] * k, 0},
		Params:   [4]float32{m.Metallic(), m.Roughness(), 0, 0},
	}
}
