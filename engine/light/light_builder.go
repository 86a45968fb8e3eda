package light

import (
	"github.com/Carmen-Shannon/tilescape/common"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/go-gl/mathgl/mgl64"
)

// LightBuilderOption is a function that configures a Light instance during construction.
type LightBuilderOption func(*lightImpl)

// WithKey is an option builder that sets the light's identifier.
//
// Parameters:
//   - key: the identifier
//
// Returns:
//   - LightBuilderOption: a function that applies the key option to a lightImpl
func WithKey(key string) LightBuilderOption {
	return func(l *lightImpl) {
		l.key = key
	}
}

// WithPosition is an option builder that sets the world-space position of the light.
//
// Parameters:
//   - position: the position
//
// Returns:
//   - LightBuilderOption: a function that applies the position option to a lightImpl
func WithPosition(position mgl64.Vec3) LightBuilderOption {
	return func(l *lightImpl) {
		l.position = position
	}
}

// WithColor is an option builder that sets the RGB color of the light from a packed 0xRRGGBB value.
//
// Parameters:
//   - hex: the packed color
//
// Returns:
//   - LightBuilderOption: a function that applies the color option to a lightImpl
func WithColor(hex uint32) LightBuilderOption {
	return func(l *lightImpl) {
		c := common.HexColor(hex)
		l.color = [3]float32{c[0], c[1], c[2]}
	}
}

// WithIntensity is an option builder that sets the scalar intensity multiplier.
//
// Parameters:
//   - intensity: the intensity value
//
// Returns:
//   - LightBuilderOption: a function that applies the intensity option to a lightImpl
func WithIntensity(intensity float32) LightBuilderOption {
	return func(l *lightImpl) {
		l.intensity = intensity
	}
}

// WithTracked is an option builder that marks the light as following the lead player marker.
//
// Parameters:
//   - tracked: true to follow the marker
//
// Returns:
//   - LightBuilderOption: a function that applies the tracked option to a lightImpl
func WithTracked(tracked bool) LightBuilderOption {
	return func(l *lightImpl) {
		l.tracked = tracked
	}
}

// FromDescriptor builds a light from its snapshot description.
//
// Parameters:
//   - d: the light descriptor
//
// Returns:
//   - Light: the new light
func FromDescriptor(d scene.Light) Light {
	return NewLight(
		WithKey(d.Key),
		WithPosition(d.Position),
		WithColor(d.Color),
		WithIntensity(float32(d.Intensity)),
		WithTracked(d.Tracked),
	)
}
