package camera

import (
	"sync"

	"github.com/Carmen-Shannon/tilescape/common"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// cameraImpl is the implementation of the Camera interface.
type cameraImpl struct {
	mu *sync.Mutex

	azimuth   float64 // degrees
	elevation float64 // degrees
	distance  float64
	focal     mgl64.Vec3
	viewSize  float32
	aspect    float32
	near      float32
	far       float32

	eye                  mgl64.Vec3
	viewMatrix           mgl32.Mat4
	projectionMatrix     mgl32.Mat4
	viewProjectionMatrix mgl32.Mat4
}

// Camera is an orthographic camera orbiting a focal point with Z as up.
//
// The orbit is expressed in degrees of azimuth (around Z from +X) and
// elevation (above the XY plane). Matrices are recomputed whenever a
// parameter changes and are safe to read from any goroutine.
type Camera interface {
	// Azimuth returns the orbit angle around Z in degrees.
	Azimuth() float64

	// Elevation returns the orbit angle above the XY plane in degrees.
	Elevation() float64

	// Eye returns the world-space camera position.
	//
	// Returns:
	//   - mgl64.Vec3: the eye point
	Eye() mgl64.Vec3

	// Focal returns the orbited point.
	Focal() mgl64.Vec3

	// ViewSize returns the visible world height.
	ViewSize() float32

	// Aspect returns the viewport aspect ratio (width / height).
	Aspect() float32

	// ViewMatrix returns the world-to-view matrix.
	ViewMatrix() mgl32.Mat4

	// ProjectionMatrix returns the orthographic projection in WebGPU clip space.
	ProjectionMatrix() mgl32.Mat4

	// ViewProjectionMatrix returns projection * view.
	ViewProjectionMatrix() mgl32.Mat4

	// SetOrbit moves the camera along its orbit.
	//
	// Parameters:
	//   - azimuth: degrees around Z from +X
	//   - elevation: degrees above the XY plane
	SetOrbit(azimuth, elevation float64)

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// Apply copies a snapshot's camera description. Zero distance and view size keep the current values.
	//
	// Parameters:
	//   - desc: the camera descriptor
	Apply(desc scene.Camera)

	// Uniform returns the GPU-ready camera block.
	//
	// Returns:
	//   - GPUCameraUniform: view-projection and eye position
	Uniform() GPUCameraUniform
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera framed like scene.DefaultCamera.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	d := scene.DefaultCamera()
	c := &cameraImpl{
		mu:        &sync.Mutex{},
		azimuth:   d.Azimuth,
		elevation: d.Elevation,
		distance:  d.Distance,
		focal:     d.Focal,
		viewSize:  float32(d.ViewSize),
		aspect:    1.0,
		near:      1.0,
		far:       1000.0,
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Azimuth() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.azimuth
}

func (c *cameraImpl) Elevation() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elevation
}

func (c *cameraImpl) Eye() mgl64.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye
}

func (c *cameraImpl) Focal() mgl64.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.focal
}

func (c *cameraImpl) ViewSize() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewSize
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) ViewMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) SetOrbit(azimuth, elevation float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.azimuth = azimuth
	c.elevation = elevation
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if aspect <= 0 {
		return
	}
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) Apply(desc scene.Camera) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.azimuth = desc.Azimuth
	c.elevation = desc.Elevation
	if desc.Distance > 0 {
		c.distance = desc.Distance
	}
	if desc.ViewSize > 0 {
		c.viewSize = float32(desc.ViewSize)
	}
	if desc.Focal != (mgl64.Vec3{}) {
		c.focal = desc.Focal
	}
	c.updateMatrices()
}

func (c *cameraImpl) Uniform() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	eye := common.Vec3To32(c.eye)
	return GPUCameraUniform{
		ViewProj:       [16]float32(c.viewProjectionMatrix),
		CameraPosition: [3]float32(eye),
	}
}

// updateMatrices recomputes eye, view, projection and view-projection. Caller holds mu.
func (c *cameraImpl) updateMatrices() {
	c.eye = common.OrbitEye(c.focal, c.azimuth, c.elevation, c.distance)
	c.viewMatrix = mgl32.LookAtV(common.Vec3To32(c.eye), common.Vec3To32(c.focal), mgl32.Vec3{0, 0, 1})
	c.projectionMatrix = common.Orthographic(c.viewSize, c.aspect, c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
}
