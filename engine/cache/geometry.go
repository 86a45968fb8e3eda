// Package cache memoizes immutable geometry and material parameter sets into shared handles.
//
// Caches are plain registry objects created by the caller and handed to the
// reconciler; there is no process-wide instance. Entries are never evicted or
// mutated, and access is expected from the single loop thread only.
package cache

import (
	"fmt"

	"github.com/Carmen-Shannon/tilescape/common"
	"github.com/Carmen-Shannon/tilescape/engine/model"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
)

// DefaultPrecision is the number of decimal places kept when building signatures.
const DefaultPrecision = 4

// defaultSegments is the sphere tessellation used when a descriptor leaves Segments unset.
const defaultSegments = 16

// GeometryParams are the shape parameters of a primitive.
type GeometryParams struct {
	Shape    scene.ShapeKind
	Width    float64
	Depth    float64
	Height   float64
	Radius   float64
	Segments int
}

// GeometryParamsOf extracts the shape parameters carried by a primitive.
//
// Parameters:
//   - p: the primitive descriptor
//
// Returns:
//   - GeometryParams: the parameters relevant to p's shape
func GeometryParamsOf(p scene.Primitive) GeometryParams {
	switch p.Shape {
	case scene.ShapeBox:
		return GeometryParams{Shape: p.Shape, Width: p.Size[0], Depth: p.Size[1], Height: p.Size[2]}
	case scene.ShapeSphere:
		return GeometryParams{Shape: p.Shape, Radius: p.Radius, Segments: p.Segments}
	}
	return GeometryParams{Shape: p.Shape}
}

// GeometrySignature is the canonical quantized form of GeometryParams.
// It is comparable and used directly as a map key.
type GeometrySignature struct {
	Shape    scene.ShapeKind
	Width    float64
	Depth    float64
	Height   float64
	Radius   float64
	Segments int
}

func (s GeometrySignature) String() string {
	switch s.Shape {
	case scene.ShapeBox:
		return fmt.Sprintf("box(%g,%g,%g)", s.Width, s.Depth, s.Height)
	case scene.ShapeSphere:
		return fmt.Sprintf("sphere(%g,%d)", s.Radius, s.Segments)
	}
	return "unknown"
}

// Geometry is a shared, immutable mesh handle. Compare handles by pointer.
type Geometry struct {
	signature GeometrySignature
	mesh      model.Mesh
}

// Signature returns the canonical parameters this geometry was built from.
func (g *Geometry) Signature() GeometrySignature {
	return g.signature
}

// Shape returns the primitive kind of the geometry.
func (g *Geometry) Shape() scene.ShapeKind {
	return g.signature.Shape
}

// Mesh returns the generated triangle mesh. Callers must not modify it.
func (g *Geometry) Mesh() *model.Mesh {
	return &g.mesh
}

// GeometryCache maps geometry signatures to shared handles.
type GeometryCache interface {
	// Signature quantizes params into their canonical form.
	//
	// Parameters:
	//   - params: the raw shape parameters
	//
	// Returns:
	//   - GeometrySignature: the quantized signature
	Signature(params GeometryParams) GeometrySignature

	// Geometry returns the handle for params, building it on first request.
	// Panics if the shape kind is not one the cache can build.
	//
	// Parameters:
	//   - params: the raw shape parameters
	//
	// Returns:
	//   - *Geometry: the shared handle
	Geometry(params GeometryParams) *Geometry

	// Len returns the number of distinct geometries built so far.
	//
	// Returns:
	//   - int: the entry count
	Len() int
}

type geometryCache struct {
	precision int
	entries   map[GeometrySignature]*Geometry
}

var _ GeometryCache = &geometryCache{}

// NewGeometryCache creates an empty geometry cache.
//
// Parameters:
//   - options: functional options for cache configuration
//
// Returns:
//   - GeometryCache: the new cache
func NewGeometryCache(options ...CacheBuilderOption) GeometryCache {
	cfg := newCacheConfig(options)
	return &geometryCache{
		precision: cfg.precision,
		entries:   make(map[GeometrySignature]*Geometry),
	}
}

func (c *geometryCache) Signature(params GeometryParams) GeometrySignature {
	q := func(v float64) float64 { return common.Quantize(v, c.precision) }
	sig := GeometrySignature{Shape: params.Shape}
	switch params.Shape {
	case scene.ShapeBox:
		sig.Width, sig.Depth, sig.Height = q(params.Width), q(params.Depth), q(params.Height)
	case scene.ShapeSphere:
		sig.Radius = q(params.Radius)
		sig.Segments = min(max(common.Coalesce(params.Segments, defaultSegments), scene.MinSegments), scene.MaxSegments)
	}
	return sig
}

func (c *geometryCache) Geometry(params GeometryParams) *Geometry {
	sig := c.Signature(params)
	if g, ok := c.entries[sig]; ok {
		return g
	}

	var mesh model.Mesh
	switch sig.Shape {
	case scene.ShapeBox:
		mesh = model.BuildBox(float32(sig.Width), float32(sig.Depth), float32(sig.Height))
	case scene.ShapeSphere:
		mesh = model.BuildSphere(float32(sig.Radius), sig.Segments, sig.Segments)
	default:
		panic(fmt.Sprintf("cache: no geometry for shape kind %d", int(sig.Shape)))
	}

	g := &Geometry{signature: sig, mesh: mesh}
	c.entries[sig] = g
	return g
}

func (c *geometryCache) Len() int {
	return len(c.entries)
}
