package cache

import "github.com/Carmen-Shannon/tilescape/engine/scene"

// cacheConfig collects the options shared by both cache kinds.
type cacheConfig struct {
	precision int
	palette   map[scene.MaterialKind]MaterialParams
}

// CacheBuilderOption is a functional option for configuring a cache.
// Use the With* functions to create options.
type CacheBuilderOption func(c *cacheConfig)

func newCacheConfig(options []CacheBuilderOption) *cacheConfig {
	cfg := &cacheConfig{
		precision: DefaultPrecision,
		palette:   DefaultPalette(),
	}
	for _, opt := range options {
		opt(cfg)
	}
	return cfg
}

// WithPrecision sets how many decimal places survive quantization.
//
// Parameters:
//   - decimals: decimal places kept (negative values are ignored)
//
// Returns:
//   - CacheBuilderOption: option function to apply
func WithPrecision(decimals int) CacheBuilderOption {
	return func(c *cacheConfig) {
		if decimals >= 0 {
			c.precision = decimals
		}
	}
}

// WithPalette replaces the material palette. Only meaningful for material caches.
//
// Parameters:
//   - palette: material kind to surface parameters
//
// Returns:
//   - CacheBuilderOption: option function to apply
func WithPalette(palette map[scene.MaterialKind]MaterialParams) CacheBuilderOption {
	return func(c *cacheConfig) {
		c.palette = palette
	}
}
