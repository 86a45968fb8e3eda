package light

import "github.com/go-gl/mathgl/mgl64"

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	key       string
	position  mgl64.Vec3
	color     [3]float32
	intensity float32
	tracked   bool
}

// Light is a point light in the scene.
//
// Fill lights keep the position their snapshot gives them. A tracked light
// is repositioned every tick to follow the lead player marker, so its
// snapshot position only matters until the animator has been seeded.
type Light interface {
	// Key returns the light's identifier within a snapshot.
	Key() string

	// Position returns the world-space position of the light.
	//
	// Returns:
	//   - mgl64.Vec3: position as (x, y, z)
	Position() mgl64.Vec3

	// Color returns the RGB color of the light.
	//
	// Returns:
	//   - [3]float32: color as (r, g, b)
	Color() [3]float32

	// Intensity returns the scalar intensity multiplier.
	//
	// Returns:
	//   - float32: the intensity
	Intensity() float32

	// Tracked reports whether the light follows the lead player marker.
	Tracked() bool

	// SetPosition moves the light.
	//
	// Parameters:
	//   - position: the new world-space position
	SetPosition(position mgl64.Vec3)

	// GPU returns the packed GPU representation of the light.
	//
	// Returns:
	//   - GPULight: the GPU struct
	GPU() GPULight
}

var _ Light = &lightImpl{}

// NewLight creates a white point light of intensity 1 at the origin, adjusted by opts.
//
// Parameters:
//   - opts: functional options to configure the light
//
// Returns:
//   - Light: the newly created light
func NewLight(opts ...LightBuilderOption) Light {
	l := &lightImpl{
		color:     [3]float32{1, 1, 1},
		intensity: 1,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Key() string {
	return l.key
}

func (l *lightImpl) Position() mgl64.Vec3 {
	return l.position
}

func (l *lightImpl) Color() [3]float32 {
	return l.color
}

func (l *lightImpl) Intensity() float32 {
	return l.intensity
}

func (l *lightImpl) Tracked() bool {
	return l.tracked
}

func (l *lightImpl) SetPosition(position mgl64.Vec3) {
	l.position = position
}

func (l *lightImpl) GPU() GPULight {
	return GPULight{
		Position:  [3]float32{float32(l.position[0]), float32(l.position[1]), float32(l.position[2])},
		Intensity: l.intensity,
		Color:     l.color,
	}
}
