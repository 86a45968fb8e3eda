package cache

import (
	"testing"

	"github.com/Carmen-Shannon/tilescape/engine/scene"
)

// TestGeometryCacheSharesQuantizedHandles verifies that parameters equal after rounding return the same pointer.
func TestGeometryCacheSharesQuantizedHandles(t *testing.T) {
	tests := []struct {
		name  string
		a, b  GeometryParams
		share bool
	}{
		{
			name:  "Identical boxes",
			a:     GeometryParams{Shape: scene.ShapeBox, Width: 0.1, Depth: 0.1, Height: 0.2},
			b:     GeometryParams{Shape: scene.ShapeBox, Width: 0.1, Depth: 0.1, Height: 0.2},
			share: true,
		},
		{
			name:  "Float noise below precision",
			a:     GeometryParams{Shape: scene.ShapeBox, Width: 0.1, Depth: 0.1, Height: 0.30000000000000004},
			b:     GeometryParams{Shape: scene.ShapeBox, Width: 0.1, Depth: 0.1, Height: 0.3},
			share: true,
		},
		{
			name:  "Different heights",
			a:     GeometryParams{Shape: scene.ShapeBox, Width: 0.1, Depth: 0.1, Height: 0.2},
			b:     GeometryParams{Shape: scene.ShapeBox, Width: 0.1, Depth: 0.1, Height: 0.3},
			share: false,
		},
		{
			name:  "Sphere default segments",
			a:     GeometryParams{Shape: scene.ShapeSphere, Radius: 0.022},
			b:     GeometryParams{Shape: scene.ShapeSphere, Radius: 0.022, Segments: 16},
			share: true,
		},
		{
			name:  "Sphere segment count differs",
			a:     GeometryParams{Shape: scene.ShapeSphere, Radius: 0.01, Segments: 8},
			b:     GeometryParams{Shape: scene.ShapeSphere, Radius: 0.01, Segments: 16},
			share: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewGeometryCache()
			ga := c.Geometry(tt.a)
			gb := c.Geometry(tt.b)
			if (ga == gb) != tt.share {
				t.Errorf("Expected shared=%v, got %v (%s vs %s)", tt.share, ga == gb, ga.Signature(), gb.Signature())
			}
			want := 2
			if tt.share {
				want = 1
			}
			if c.Len() != want {
				t.Errorf("Expected %d entries, got %d", want, c.Len())
			}
		})
	}
}

// TestGeometryCacheIsolation verifies that separately constructed caches never share entries.
func TestGeometryCacheIsolation(t *testing.T) {
	p := GeometryParams{Shape: scene.ShapeBox, Width: 1, Depth: 1, Height: 1}
	a := NewGeometryCache().Geometry(p)
	b := NewGeometryCache().Geometry(p)
	if a == b {
		t.Error("Expected distinct caches to build distinct handles")
	}
}

// TestGeometryCacheMeshes verifies the generated mesh sizes for each shape.
func TestGeometryCacheMeshes(t *testing.T) {
	c := NewGeometryCache()

	box := c.Geometry(GeometryParams{Shape: scene.ShapeBox, Width: 1, Depth: 2, Height: 3})
	if n := len(box.Mesh().Indices); n != 36 {
		t.Errorf("Expected 36 box indices, got %d", n)
	}
	if box.Mesh().BoundingMax != [3]float32{0.5, 1, 1.5} {
		t.Errorf("Expected box bounds (0.5,1,1.5), got %v", box.Mesh().BoundingMax)
	}

	sphere := c.Geometry(GeometryParams{Shape: scene.ShapeSphere, Radius: 1, Segments: 8})
	if n := len(sphere.Mesh().Vertices); n != 81 {
		t.Errorf("Expected 81 sphere vertices, got %d", n)
	}
	if sphere.Shape() != scene.ShapeSphere {
		t.Errorf("Expected sphere shape, got %s", sphere.Shape())
	}
}

// TestGeometryCacheUnknownShapePanics verifies that an unbuildable shape fails fast.
func TestGeometryCacheUnknownShapePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Expected panic for unknown shape")
		}
	}()
	NewGeometryCache().Geometry(GeometryParams{Shape: scene.ShapeUnknown})
}

// TestGeometryCacheBoundsSegments verifies sphere tessellation is held to the supported range.
func TestGeometryCacheBoundsSegments(t *testing.T) {
	c := NewGeometryCache()
	tests := []struct {
		name     string
		segments int
		want     int
	}{
		{"Unset uses default", 0, defaultSegments},
		{"Too few", 1, scene.MinSegments},
		{"Negative", -4, scene.MinSegments},
		{"Too many", 1 << 40, scene.MaxSegments},
		{"In range", 24, 24},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := c.Signature(GeometryParams{Shape: scene.ShapeSphere, Radius: 1, Segments: tt.segments})
			if sig.Segments != tt.want {
				t.Errorf("Expected %d segments, got %d", tt.want, sig.Segments)
			}
		})
	}

	g := c.Geometry(GeometryParams{Shape: scene.ShapeSphere, Radius: 1, Segments: 1 << 40})
	if g.Signature().Segments != scene.MaxSegments {
		t.Errorf("Expected a mesh built at %d segments, got %d", scene.MaxSegments, g.Signature().Segments)
	}
}

// TestGeometryCachePrecision verifies that WithPrecision widens the rounding step.
func TestGeometryCachePrecision(t *testing.T) {
	c := NewGeometryCache(WithPrecision(1))
	a := c.Geometry(GeometryParams{Shape: scene.ShapeSphere, Radius: 0.12})
	b := c.Geometry(GeometryParams{Shape: scene.ShapeSphere, Radius: 0.14})
	if a != b {
		t.Errorf("Expected radii within one decimal to share, got %s and %s", a.Signature(), b.Signature())
	}
}

// TestMaterialCacheSharing verifies that kinds and raw params resolve to shared handles.
func TestMaterialCacheSharing(t *testing.T) {
	c := NewMaterialCache()

	base1 := c.Material(scene.MaterialBase)
	base2 := c.Material(scene.MaterialBase)
	if base1 != base2 {
		t.Error("Expected the same handle for repeated kind lookups")
	}

	raw := c.Lookup(MaterialParams{Color: 0xffffff, Roughness: 1.00000001})
	if raw != base1 {
		t.Error("Expected params equal after quantization to share the base handle")
	}

	if c.Material(scene.MaterialGoal) == base1 {
		t.Error("Expected goal and base to differ")
	}
	if c.Len() != 2 {
		t.Errorf("Expected 2 handles, got %d", c.Len())
	}

	goal := c.Material(scene.MaterialGoal)
	if goal.Metallic() != 0.5 || goal.Roughness() != 0.5 {
		t.Errorf("Expected goal metal/rough 0.5/0.5, got %v/%v", goal.Metallic(), goal.Roughness())
	}
	if goal.Name() != "goal" {
		t.Errorf("Expected name goal, got %q", goal.Name())
	}
}

// TestMaterialCacheUnregisteredPanics verifies that resolving an unregistered kind fails fast.
func TestMaterialCacheUnregisteredPanics(t *testing.T) {
	c := NewMaterialCache(WithPalette(map[scene.MaterialKind]MaterialParams{
		scene.MaterialBase: {Color: 0xffffff, Roughness: 1},
	}))
	if !c.Registered(scene.MaterialBase) || c.Registered(scene.MaterialGoal) {
		t.Fatal("Expected only base to be registered")
	}

	defer func() {
		if recover() == nil {
			t.Error("Expected panic for unregistered material")
		}
	}()
	c.Material(scene.MaterialGoal)
}

// TestMaterialCacheRegister verifies that re-registering a kind keeps earlier handles intact.
func TestMaterialCacheRegister(t *testing.T) {
	c := NewMaterialCache()
	before := c.Material(scene.MaterialFocus)
	c.Register(scene.MaterialFocus, MaterialParams{Color: 0x00ff00, Roughness: 1})
	after := c.Material(scene.MaterialFocus)
	if before == after {
		t.Error("Expected a new handle after re-registering")
	}
	if before.BaseColor()[0] != 1 {
		t.Errorf("Expected the old handle to keep its color, got %v", before.BaseColor())
	}
}
