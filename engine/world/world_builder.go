package world

import "github.com/Carmen-Shannon/tilescape/engine/scene"

// WorldBuilderOption is a functional option for configuring a Builder.
type WorldBuilderOption func(b *builder)

// WithRailings enables drawing railing posts.
//
// Parameters:
//   - enabled: whether railings are drawn
//
// Returns:
//   - WorldBuilderOption: option function to apply
func WithRailings(enabled bool) WorldBuilderOption {
	return func(b *builder) {
		b.railings = enabled
	}
}

// WithFillLights replaces the static lights placed in every snapshot.
//
// Parameters:
//   - lights: the fill lights; nil removes them
//
// Returns:
//   - WorldBuilderOption: option function to apply
func WithFillLights(lights []scene.Light) WorldBuilderOption {
	return func(b *builder) {
		b.fillLights = append([]scene.Light(nil), lights...)
	}
}

// WithBackground sets the clear color of every snapshot.
//
// Parameters:
//   - hex: 0xRRGGBB color
//
// Returns:
//   - WorldBuilderOption: option function to apply
func WithBackground(hex uint32) WorldBuilderOption {
	return func(b *builder) {
		b.background = hex & 0xffffff
	}
}

// WithCameraDistance sets the orbit distance of the camera.
//
// Parameters:
//   - distance: distance from the focal point
//
// Returns:
//   - WorldBuilderOption: option function to apply
func WithCameraDistance(distance float64) WorldBuilderOption {
	return func(b *builder) {
		if distance > 0 {
			b.distance = distance
		}
	}
}
