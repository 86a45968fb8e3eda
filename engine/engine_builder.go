package engine

import (
	"github.com/Carmen-Shannon/tilescape/engine/animator"
	"github.com/Carmen-Shannon/tilescape/engine/cache"
	"github.com/Carmen-Shannon/tilescape/engine/host"
	"github.com/Carmen-Shannon/tilescape/engine/reconciler"
	"github.com/Carmen-Shannon/tilescape/engine/renderer"
	"github.com/Carmen-Shannon/tilescape/engine/scheduler"
	"github.com/Carmen-Shannon/tilescape/engine/world"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithLoop sets the event loop the engine runs on, such as a window.
//
// Parameters:
//   - loop: the host loop
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithLoop(loop host.Loop) EngineBuilderOption {
	return func(e *engine) {
		e.loop = loop
	}
}

// WithRenderer sets the renderer the pool draws into.
//
// Parameters:
//   - r: a configured renderer
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithCacheOptions configures both the geometry and the material cache.
//
// Parameters:
//   - options: cache options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithCacheOptions(options ...cache.CacheBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.cacheOptions = append(e.cacheOptions, options...)
	}
}

// WithReconcilerOptions configures the reconciler.
//
// Parameters:
//   - options: reconciler options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithReconcilerOptions(options ...reconciler.ReconcilerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.reconcilerOptions = append(e.reconcilerOptions, options...)
	}
}

// WithAnimatorOptions configures the chain animator.
//
// Parameters:
//   - options: animator options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithAnimatorOptions(options ...animator.AnimatorBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.animatorOptions = append(e.animatorOptions, options...)
	}
}

// WithSchedulerOptions configures the frame scheduler.
//
// Parameters:
//   - options: scheduler options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithSchedulerOptions(options ...scheduler.SchedulerBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.schedulerOptions = append(e.schedulerOptions, options...)
	}
}

// WithWorldOptions configures how puzzle states are expanded.
//
// Parameters:
//   - options: world builder options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWorldOptions(options ...world.WorldBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.worldOptions = append(e.worldOptions, options...)
	}
}

// WithStepSeconds sets the game step duration the chain stagger derives from.
//
// Parameters:
//   - seconds: the step duration
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStepSeconds(seconds float64) EngineBuilderOption {
	return func(e *engine) {
		if seconds >= 0 {
			e.stepSeconds = seconds
		}
	}
}
