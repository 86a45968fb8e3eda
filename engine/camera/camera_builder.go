package camera

import "github.com/go-gl/mathgl/mgl64"

// CameraBuilderOption is a functional option for configuring a Camera.
// Use the With* functions to create options.
type CameraBuilderOption func(c *cameraImpl)

// WithOrbit sets the initial azimuth and elevation in degrees.
//
// Parameters:
//   - azimuth: degrees around Z from +X
//   - elevation: degrees above the XY plane
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithOrbit(azimuth, elevation float64) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.azimuth = azimuth
		c.elevation = elevation
	}
}

// WithDistance sets the distance from the focal point to the eye.
//
// Parameters:
//   - distance: orbit radius
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithDistance(distance float64) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.distance = distance
	}
}

// WithFocal sets the orbited point.
//
// Parameters:
//   - focal: the point the camera looks at
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithFocal(focal mgl64.Vec3) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.focal = focal
	}
}

// WithViewSize sets the visible world height of the orthographic volume.
//
// Parameters:
//   - size: visible height in world units
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithViewSize(size float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.viewSize = size
	}
}

// WithAspect sets the aspect ratio.
//
// Parameters:
//   - aspect: the aspect ratio (width / height)
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.aspect = aspect
	}
}

// WithClipPlanes sets the near and far clipping distances.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - CameraBuilderOption: option function to apply
func WithClipPlanes(near, far float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.near = near
		c.far = far
	}
}
