// Package scene defines the declarative snapshot handed to the engine on every logical step.
//
// A Descriptor is built fresh by the producer for each step and is treated as
// immutable once submitted. Kind names are a closed set checked where
// snapshots are decoded; individual primitives that fail validation are
// dropped with a diagnostic and never abort the rest of the snapshot.
package scene

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/tilescape/common"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

var (
	// ErrMissingKey marks a primitive with an empty key.
	ErrMissingKey = errors.New("missing key")
	// ErrMissingMaterial marks a primitive with no material kind.
	ErrMissingMaterial = errors.New("missing material")
	// ErrUnknownShape marks a shape name outside the closed set.
	ErrUnknownShape = errors.New("unknown shape kind")
	// ErrUnknownMaterial marks a material name outside the closed set.
	ErrUnknownMaterial = errors.New("unknown material kind")
	// ErrUnknownRole marks a role name outside the closed set.
	ErrUnknownRole = errors.New("unknown role")
	// ErrBadDimensions marks a primitive whose size, radius or tessellation is out of range.
	ErrBadDimensions = errors.New("invalid dimensions")
	// ErrNonFinite marks a primitive carrying NaN or infinite placement.
	ErrNonFinite = errors.New("non-finite placement")
	// ErrBadSlot marks a slotted primitive with a negative slot.
	ErrBadSlot = errors.New("invalid slot")
)

// Sphere tessellation bounds. Zero Segments means the cache default.
const (
	MinSegments = 3
	MaxSegments = 128
)

// Primitive describes one drawable object in a snapshot.
type Primitive struct {
	// Key names the object for the producer; required.
	Key string

	// Shape selects the geometry.
	Shape ShapeKind

	// Size holds box extents along X, Y and Z.
	Size mgl64.Vec3

	// Radius is the sphere radius.
	Radius float64

	// Segments is the sphere tessellation in both directions.
	Segments int

	// Material selects the palette entry; required.
	Material MaterialKind

	// Position is the world-space center.
	Position mgl64.Vec3

	// Rotation holds Euler angles in radians.
	Rotation mgl64.Vec3

	// Role decides whether identity follows content or a slot.
	Role Role

	// Slot is the fixed index for player and dynamic roles.
	Slot int
}

// Camera describes an orthographic camera orbiting a focal point, Z up.
type Camera struct {
	Azimuth   float64 // degrees around Z from +X
	Elevation float64 // degrees above the XY plane
	Distance  float64
	Focal     mgl64.Vec3
	ViewSize  float64 // visible world height
}

// DefaultCamera returns the camera framing used when a snapshot leaves it unset.
func DefaultCamera() Camera {
	return Camera{
		Azimuth:   45,
		Elevation: 35,
		Distance:  15,
		Focal:     mgl64.Vec3{0, 0, 0.55},
		ViewSize:  1.4,
	}
}

// Light is a point light. A tracked light follows the lead player marker instead of Position.
type Light struct {
	Key       string
	Position  mgl64.Vec3
	Color     uint32 // 0xRRGGBB
	Intensity float64
	Tracked   bool
}

// Descriptor is one full scene snapshot.
type Descriptor struct {
	Primitives []Primitive
	Camera     Camera
	Lights     []Light
	Background uint32 // 0xRRGGBB
}

// ValidationError records why a primitive was dropped.
type ValidationError struct {
	Index int
	Key   string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("primitive %d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("primitive %d (%s): %v", e.Index, e.Key, e.Err)
}

// Unwrap exposes the underlying sentinel to errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Cause exposes the underlying sentinel to errors.Cause.
func (e *ValidationError) Cause() error {
	return e.Err
}

// Validate checks the fields every live primitive must carry.
// An out-of-palette material is not checked here; resolving it fails later as a contract violation.
//
// Returns:
//   - error: nil, or the first sentinel the primitive violates
func (p Primitive) Validate() error {
	if p.Key == "" {
		return ErrMissingKey
	}
	if p.Material == MaterialNone {
		return ErrMissingMaterial
	}
	switch p.Shape {
	case ShapeBox:
		if !(p.Size[0] > 0 && p.Size[1] > 0 && p.Size[2] > 0) || !common.IsFinite(p.Size) {
			return errors.Wrapf(ErrBadDimensions, "box size %v", p.Size)
		}
	case ShapeSphere:
		if !(p.Radius > 0) || math.IsInf(p.Radius, 0) {
			return errors.Wrapf(ErrBadDimensions, "sphere radius %v", p.Radius)
		}
		if p.Segments != 0 && (p.Segments < MinSegments || p.Segments > MaxSegments) {
			return errors.Wrapf(ErrBadDimensions, "sphere segments %d outside %d..%d", p.Segments, MinSegments, MaxSegments)
		}
	default:
		return errors.Wrapf(ErrUnknownShape, "%d", int(p.Shape))
	}
	if !common.IsFinite(p.Position) || !common.IsFinite(p.Rotation) {
		return ErrNonFinite
	}
	if p.Role.Slotted() && p.Slot < 0 {
		return errors.Wrapf(ErrBadSlot, "%d", p.Slot)
	}
	return nil
}
