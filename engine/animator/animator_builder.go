package animator

import (
	"strings"

	"github.com/pkg/errors"
)

// Defaults for a chain built without options.
//
// The spring and damping pair is one of several found in earlier tunings of
// this effect (300/25, 250/20 and 400/30). 300/25 is the documented default;
// callers who want another feel pass WithSpring and WithDamping.
const (
	DefaultChainLength       = 3
	DefaultSpringK           = 300.0
	DefaultDampingK          = 25.0
	DefaultStagger           = 0.05
	DefaultMaxStep           = 1.0 / 60.0
	DefaultClampStep         = 0.05
	DefaultMaxSubsteps       = 120
	DefaultDropHeight        = 1.0
	DefaultLightOffset       = 0.03
	DefaultVelocityThreshold = 0.01
	DefaultPositionThreshold = 0.001
)

// Policy selects how a frame's elapsed time is turned into integration steps.
type Policy int

const (
	// PolicySubstep splits the frame into ceil(elapsed / maxStep) equal steps.
	PolicySubstep Policy = iota

	// PolicyClamp takes a single step of min(elapsed, clampStep).
	PolicyClamp
)

// String returns the config name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicySubstep:
		return "substep"
	case PolicyClamp:
		return "clamp"
	default:
		return "unknown"
	}
}

// ParsePolicy resolves a config name to a Policy.
//
// Parameters:
//   - name: "substep" or "clamp", case-insensitive; empty selects substep
//
// Returns:
//   - Policy: the policy
//   - error: an error naming the unknown policy
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "substep":
		return PolicySubstep, nil
	case "clamp":
		return PolicyClamp, nil
	default:
		return PolicySubstep, errors.Errorf("unknown integration policy %q", name)
	}
}

// AnimatorBuilderOption is a functional option for configuring an Animator.
type AnimatorBuilderOption func(a *animator)

// WithChainLength sets the fixed number of nodes.
//
// Parameters:
//   - n: node count, at least 1
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithChainLength(n int) AnimatorBuilderOption {
	return func(a *animator) {
		if n < 0 {
			n = 0
		}
		a.nodes = make([]chainNode, n)
	}
}

// WithSpring sets the spring constant.
//
// Parameters:
//   - k: stiffness per unit mass
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithSpring(k float64) AnimatorBuilderOption {
	return func(a *animator) {
		a.springK = k
	}
}

// WithDamping sets the damping constant.
//
// Parameters:
//   - c: damping per unit mass
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithDamping(c float64) AnimatorBuilderOption {
	return func(a *animator) {
		a.dampingK = c
	}
}

// WithStagger sets the start delay between consecutive nodes.
//
// Parameters:
//   - seconds: the delay
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithStagger(seconds float64) AnimatorBuilderOption {
	return func(a *animator) {
		a.stagger = seconds
	}
}

// WithMaxStep sets the largest substep used by PolicySubstep.
//
// Parameters:
//   - seconds: the substep ceiling
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithMaxStep(seconds float64) AnimatorBuilderOption {
	return func(a *animator) {
		a.maxStep = seconds
	}
}

// WithClampStep sets the single-step ceiling used by PolicyClamp.
//
// Parameters:
//   - seconds: the clamp
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithClampStep(seconds float64) AnimatorBuilderOption {
	return func(a *animator) {
		a.clampStep = seconds
	}
}

// WithMaxSubsteps caps the substeps of one frame. Time past the cap is dropped,
// which bounds the work after the host was paused.
//
// Parameters:
//   - n: the cap
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithMaxSubsteps(n int) AnimatorBuilderOption {
	return func(a *animator) {
		a.maxSubsteps = n
	}
}

// WithPolicy selects the integration policy.
//
// Parameters:
//   - p: the policy
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithPolicy(p Policy) AnimatorBuilderOption {
	return func(a *animator) {
		a.policy = p
	}
}

// WithDropHeight sets how far above their targets nodes are seeded.
//
// Parameters:
//   - height: vertical offset in world units
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithDropHeight(height float64) AnimatorBuilderOption {
	return func(a *animator) {
		a.dropHeight = height
	}
}

// WithLightOffset sets the tracked light's height above node 0.
//
// Parameters:
//   - offset: vertical offset in world units
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithLightOffset(offset float64) AnimatorBuilderOption {
	return func(a *animator) {
		a.lightOffset = offset
	}
}

// WithThresholds sets the rest thresholds used by IsMoving.
//
// Parameters:
//   - velocity: speed below which a node counts as still
//   - position: distance to target below which a node counts as arrived
//
// Returns:
//   - AnimatorBuilderOption: option function to apply
func WithThresholds(velocity, position float64) AnimatorBuilderOption {
	return func(a *animator) {
		a.velocityThreshold = velocity
		a.positionThreshold = position
	}
}
