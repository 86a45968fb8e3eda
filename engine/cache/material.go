package cache

import (
	"fmt"

	"github.com/Carmen-Shannon/tilescape/common"
	"github.com/Carmen-Shannon/tilescape/engine/renderer/material"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
)

// MaterialParams are the surface parameters registered for a material kind.
type MaterialParams struct {
	Color             uint32 // 0xRRGGBB
	Roughness         float64
	Metalness         float64
	Emissive          uint32 // 0xRRGGBB
	EmissiveIntensity float64
}

// MaterialSignature is the canonical quantized form of MaterialParams.
type MaterialSignature struct {
	Color             uint32
	Roughness         float64
	Metalness         float64
	Emissive          uint32
	EmissiveIntensity float64
}

// DefaultPalette returns the surface registered for every material kind.
//
// Returns:
//   - map[scene.MaterialKind]MaterialParams: a fresh palette the caller may modify
func DefaultPalette() map[scene.MaterialKind]MaterialParams {
	return map[scene.MaterialKind]MaterialParams{
		scene.MaterialBase:    {Color: 0xffffff, Roughness: 1},
		scene.MaterialStairs:  {Color: 0xffccaa, Roughness: 1},
		scene.MaterialBridge:  {Color: 0xcc6666, Roughness: 1},
		scene.MaterialRailing: {Color: 0xcccccc, Roughness: 1},
		scene.MaterialPlayer:  {Color: 0xffffff, Roughness: 1, Emissive: 0xffffff, EmissiveIntensity: 1},
		scene.MaterialGoal:    {Color: 0x222222, Roughness: 0.5, Metalness: 0.5},
		scene.MaterialFocus:   {Color: 0xff9900, Roughness: 1, Emissive: 0xff9900, EmissiveIntensity: 1},
	}
}

// MaterialCache resolves material kinds through a palette and shares one handle per signature.
type MaterialCache interface {
	// Register binds params to kind, replacing any earlier registration.
	// Handles already returned for the old params stay valid.
	//
	// Parameters:
	//   - kind: the material kind
	//   - params: the surface parameters
	Register(kind scene.MaterialKind, params MaterialParams)

	// Registered reports whether kind has a palette entry.
	Registered(kind scene.MaterialKind) bool

	// Material returns the shared handle for kind.
	// Panics if kind has no palette entry: that is a schema mismatch between producer and palette.
	//
	// Parameters:
	//   - kind: the material kind
	//
	// Returns:
	//   - material.Material: the shared handle
	Material(kind scene.MaterialKind) material.Material

	// Lookup returns the shared handle for a raw parameter set, building it on first request.
	//
	// Parameters:
	//   - params: the surface parameters
	//
	// Returns:
	//   - material.Material: the shared handle
	Lookup(params MaterialParams) material.Material

	// Len returns the number of distinct material handles built so far.
	Len() int
}

type materialCache struct {
	precision int
	palette   map[scene.MaterialKind]MaterialParams
	entries   map[MaterialSignature]material.Material
}

var _ MaterialCache = &materialCache{}

// NewMaterialCache creates a material cache. The palette starts from
// DefaultPalette unless WithPalette replaces it.
//
// Parameters:
//   - options: functional options for cache configuration
//
// Returns:
//   - MaterialCache: the new cache
func NewMaterialCache(options ...CacheBuilderOption) MaterialCache {
	cfg := newCacheConfig(options)
	c := &materialCache{
		precision: cfg.precision,
		palette:   make(map[scene.MaterialKind]MaterialParams),
		entries:   make(map[MaterialSignature]material.Material),
	}
	for k, v := range cfg.palette {
		c.palette[k] = v
	}
	return c
}

func (c *materialCache) Register(kind scene.MaterialKind, params MaterialParams) {
	c.palette[kind] = params
}

func (c *materialCache) Registered(kind scene.MaterialKind) bool {
	_, ok := c.palette[kind]
	return ok
}

func (c *materialCache) Material(kind scene.MaterialKind) material.Material {
	params, ok := c.palette[kind]
	if !ok {
		panic(fmt.Sprintf("cache: material kind %q (%d) is not registered", kind, int(kind)))
	}
	return c.lookup(params, kind.String())
}

func (c *materialCache) Lookup(params MaterialParams) material.Material {
	return c.lookup(params, "")
}

func (c *materialCache) lookup(params MaterialParams, name string) material.Material {
	sig := MaterialSignature{
		Color:             params.Color & 0xffffff,
		Roughness:         common.Quantize(params.Roughness, c.precision),
		Metalness:         common.Quantize(params.Metalness, c.precision),
		Emissive:          params.Emissive & 0xffffff,
		EmissiveIntensity: common.Quantize(params.EmissiveIntensity, c.precision),
	}
	if m, ok := c.entries[sig]; ok {
		return m
	}

	emissive := common.HexColor(sig.Emissive)
	m := material.NewMaterial(
		material.WithName(common.Coalesce(name, fmt.Sprintf("material-%d", len(c.entries)))),
		material.WithBaseColor(common.HexColor(sig.Color)),
		material.WithRoughness(float32(sig.Roughness)),
		material.WithMetallic(float32(sig.Metalness)),
		material.WithEmissive([3]float32{emissive[0], emissive[1], emissive[2]}, float32(sig.EmissiveIntensity)),
	)
	c.entries[sig] = m
	return m
}

func (c *materialCache) Len() int {
	return len(c.entries)
}
