package game_object

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/tilescape/common"
	"github.com/Carmen-Shannon/tilescape/engine/cache"
	"github.com/Carmen-Shannon/tilescape/engine/renderer/material"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

type gameObject struct {
	id       uint64
	enabled  atomic.Bool
	geometry *cache.Geometry
	material material.Material

	position mgl64.Vec3
	rotation mgl64.Vec3
	scale    mgl64.Vec3

	// revision increases on every transform change so renderers can skip clean objects.
	revision uint64
}

// GameObject is a live render object: a shared geometry, a shared material,
// and a transform owned by this object alone.
//
// Geometry and material are fixed for the object's lifetime. Only the
// transform changes, through the renderer's SetTransform or directly here.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Enabled returns whether this object is enabled for rendering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Geometry returns the shared geometry handle.
	//
	// Returns:
	//   - *cache.Geometry: the geometry
	Geometry() *cache.Geometry

	// Material returns the shared material handle.
	//
	// Returns:
	//   - material.Material: the material
	Material() material.Material

	// Position returns the world-space position.
	Position() mgl64.Vec3

	// Rotation returns the Euler rotation in radians.
	Rotation() mgl64.Vec3

	// Scale returns the per-axis scale factors.
	Scale() mgl64.Vec3

	// Revision returns a counter bumped on every transform change.
	Revision() uint64

	// ModelMatrix builds the object's model matrix from its transform.
	//
	// Returns:
	//   - mgl32.Mat4: the column-major model matrix
	ModelMatrix() mgl32.Mat4

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// SetEnabled sets whether the object is enabled for rendering.
	//
	// Parameters:
	//   - enabled: true to enable
	SetEnabled(enabled bool)

	// SetTransform replaces position and rotation together.
	//
	// Parameters:
	//   - position: new world-space position
	//   - rotation: new Euler rotation in radians
	SetTransform(position, rotation mgl64.Vec3)

	// SetScale replaces the scale factors.
	//
	// Parameters:
	//   - scale: new per-axis scale
	SetScale(scale mgl64.Vec3)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options.
// Objects start enabled with unit scale.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		scale: mgl64.Vec3{1, 1, 1},
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	return g.id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Geometry() *cache.Geometry {
	return g.geometry
}

func (g *gameObject) Material() material.Material {
	return g.material
}

func (g *gameObject) Position() mgl64.Vec3 {
	return g.position
}

func (g *gameObject) Rotation() mgl64.Vec3 {
	return g.rotation
}

func (g *gameObject) Scale() mgl64.Vec3 {
	return g.scale
}

func (g *gameObject) Revision() uint64 {
	return g.revision
}

func (g *gameObject) ModelMatrix() mgl32.Mat4 {
	return common.BuildModelMatrix(g.position, g.rotation, g.scale)
}

func (g *gameObject) SetID(id uint64) {
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) SetTransform(position, rotation mgl64.Vec3) {
	if position == g.position && rotation == g.rotation {
		return
	}
	g.position = position
	g.rotation = rotation
	g.revision++
}

func (g *gameObject) SetScale(scale mgl64.Vec3) {
	if scale == g.scale {
		return
	}
	g.scale = scale
	g.revision++
}
