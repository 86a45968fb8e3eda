// Package config loads the engine settings file.
//
// Every field has a default; a settings file only needs the values it changes,
// and a missing file means all defaults. Components are still configured through
// their own functional options; the Options helpers translate one to the other.
package config

import (
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/Carmen-Shannon/tilescape/engine/animator"
	"github.com/Carmen-Shannon/tilescape/engine/cache"
	"github.com/Carmen-Shannon/tilescape/engine/reconciler"
	"github.com/Carmen-Shannon/tilescape/engine/scheduler"
	"github.com/Carmen-Shannon/tilescape/engine/world"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AnimatorConfig tunes the chain animator.
type AnimatorConfig struct {
	Nodes             int     `yaml:"nodes"`
	SpringK           float64 `yaml:"spring_k"`
	DampingK          float64 `yaml:"damping_k"`
	Stagger           float64 `yaml:"stagger"`
	MaxStep           float64 `yaml:"max_step"`
	ClampStep         float64 `yaml:"clamp_step"`
	MaxSubsteps       int     `yaml:"max_substeps"`
	Policy            string  `yaml:"policy"`
	DropHeight        float64 `yaml:"drop_height"`
	LightOffset       float64 `yaml:"light_offset"`
	VelocityThreshold float64 `yaml:"velocity_threshold"`
	PositionThreshold float64 `yaml:"position_threshold"`
}

// SchedulerConfig tunes the frame scheduler.
type SchedulerConfig struct {
	TargetFPS      float64       `yaml:"target_fps"`
	ForcedFPS      float64       `yaml:"forced_fps"`
	FPSWindow      int           `yaml:"fps_window"`
	ReportInterval time.Duration `yaml:"report_interval"`
	MemoryStats    bool          `yaml:"memory_stats"`
}

// CacheConfig tunes signature quantization.
type CacheConfig struct {
	Precision int `yaml:"precision"`
}

// WindowConfig describes the interactive window.
type WindowConfig struct {
	Title    string        `yaml:"title"`
	Width    int           `yaml:"width"`
	Height   int           `yaml:"height"`
	IdleWait time.Duration `yaml:"idle_wait"`
}

// RendererConfig selects and tunes the render backend.
type RendererConfig struct {
	Headless    bool   `yaml:"headless"`
	PresentMode string `yaml:"present_mode"`
	MSAA        int    `yaml:"msaa"`
	Software    bool   `yaml:"software"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
}

// WorldConfig tunes puzzle state expansion.
type WorldConfig struct {
	Railings       bool    `yaml:"railings"`
	CameraDistance float64 `yaml:"camera_distance"`
	StepSeconds    float64 `yaml:"step_seconds"`
}

// ServerConfig configures the websocket and HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// FeedConfig configures snapshot file replay.
type FeedConfig struct {
	Workers  int           `yaml:"workers"`
	Queue    int           `yaml:"queue"`
	Interval time.Duration `yaml:"interval"`
}

// Config is the whole settings file.
type Config struct {
	Animator  AnimatorConfig  `yaml:"animator"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Cache     CacheConfig     `yaml:"cache"`
	Window    WindowConfig    `yaml:"window"`
	Renderer  RendererConfig  `yaml:"renderer"`
	World     WorldConfig     `yaml:"world"`
	Server    ServerConfig    `yaml:"server"`
	Feed      FeedConfig      `yaml:"feed"`
	Debug     bool            `yaml:"debug"`
}

// Default returns the settings used when no file overrides them.
func Default() Config {
	return Config{
		Animator: AnimatorConfig{
			Nodes:             animator.DefaultChainLength,
			SpringK:           animator.DefaultSpringK,
			DampingK:          animator.DefaultDampingK,
			Stagger:           animator.DefaultStagger,
			MaxStep:           animator.DefaultMaxStep,
			ClampStep:         animator.DefaultClampStep,
			MaxSubsteps:       animator.DefaultMaxSubsteps,
			Policy:            animator.PolicySubstep.String(),
			DropHeight:        animator.DefaultDropHeight,
			LightOffset:       animator.DefaultLightOffset,
			VelocityThreshold: animator.DefaultVelocityThreshold,
			PositionThreshold: animator.DefaultPositionThreshold,
		},
		Scheduler: SchedulerConfig{
			TargetFPS:      scheduler.DefaultTargetFPS,
			FPSWindow:      60,
			ReportInterval: time.Second,
		},
		Cache: CacheConfig{Precision: cache.DefaultPrecision},
		Window: WindowConfig{
			Title:    "tilescape",
			Width:    1280,
			Height:   720,
			IdleWait: 100 * time.Millisecond,
		},
		Renderer: RendererConfig{
			PresentMode: "vsync",
			MSAA:        4,
			Width:       800,
			Height:      600,
		},
		World: WorldConfig{
			CameraDistance: 15,
			StepSeconds:    0.5,
		},
		Feed: FeedConfig{
			Workers:  4,
			Queue:    64,
			Interval: 500 * time.Millisecond,
		},
	}
}

// Load reads a YAML settings file over the defaults. A missing file yields the defaults.
//
// Parameters:
//   - path: the settings file; empty means defaults
//
// Returns:
//   - Config: the merged and validated settings
//   - error: error if the file cannot be read, parsed or validated
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Printf("[Config] %s not found, using defaults", path)
		return Default(), nil
	}
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes YAML settings over the defaults and validates the result.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - Config: the merged settings
//   - error: error if the document is malformed or invalid
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode yaml")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Write encodes the settings as YAML.
//
// Parameters:
//   - w: the destination
//
// Returns:
//   - error: error if encoding fails
func (c Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&c); err != nil {
		return errors.Wrap(err, "encode yaml")
	}
	return errors.Wrap(enc.Close(), "close yaml encoder")
}

// Validate reports the first setting outside its allowed range.
func (c Config) Validate() error {
	a := c.Animator
	switch {
	case a.Nodes < 1:
		return errors.Errorf("animator.nodes must be at least 1, got %d", a.Nodes)
	case a.SpringK <= 0:
		return errors.Errorf("animator.spring_k must be positive, got %v", a.SpringK)
	case a.DampingK < 0:
		return errors.Errorf("animator.damping_k must not be negative, got %v", a.DampingK)
	case a.Stagger < 0:
		return errors.Errorf("animator.stagger must not be negative, got %v", a.Stagger)
	case a.MaxStep <= 0 || a.ClampStep <= 0:
		return errors.Errorf("animator.max_step and clamp_step must be positive, got %v and %v", a.MaxStep, a.ClampStep)
	case a.MaxSubsteps < 1:
		return errors.Errorf("animator.max_substeps must be at least 1, got %d", a.MaxSubsteps)
	case a.VelocityThreshold < 0 || a.PositionThreshold < 0:
		return errors.New("animator thresholds must not be negative")
	}
	if _, err := animator.ParsePolicy(a.Policy); err != nil {
		return errors.Wrap(err, "animator.policy")
	}

	s := c.Scheduler
	switch {
	case s.TargetFPS < 0 || s.ForcedFPS < 0:
		return errors.Errorf("scheduler rates must not be negative, got %v and %v", s.TargetFPS, s.ForcedFPS)
	case s.FPSWindow < 1:
		return errors.Errorf("scheduler.fps_window must be at least 1, got %d", s.FPSWindow)
	case s.ReportInterval <= 0:
		return errors.Errorf("scheduler.report_interval must be positive, got %v", s.ReportInterval)
	}

	if c.Cache.Precision < 0 || c.Cache.Precision > 12 {
		return errors.Errorf("cache.precision must be between 0 and 12, got %d", c.Cache.Precision)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Renderer.MSAA != 1 && c.Renderer.MSAA != 4 {
		return errors.Errorf("renderer.msaa must be 1 or 4, got %d", c.Renderer.MSAA)
	}
	switch strings.ToLower(c.Renderer.PresentMode) {
	case "vsync", "uncapped":
	default:
		return errors.Errorf("renderer.present_mode must be vsync or uncapped, got %q", c.Renderer.PresentMode)
	}
	if c.World.StepSeconds < 0 {
		return errors.Errorf("world.step_seconds must not be negative, got %v", c.World.StepSeconds)
	}
	if c.Feed.Workers < 1 || c.Feed.Queue < 1 {
		return errors.Errorf("feed.workers and feed.queue must be at least 1, got %d and %d", c.Feed.Workers, c.Feed.Queue)
	}
	return nil
}

// AnimatorOptions translates the animator section.
func (c Config) AnimatorOptions() []animator.AnimatorBuilderOption {
	a := c.Animator
	policy, _ := animator.ParsePolicy(a.Policy)
	return []animator.AnimatorBuilderOption{
		animator.WithChainLength(a.Nodes),
		animator.WithSpring(a.SpringK),
		animator.WithDamping(a.DampingK),
		animator.WithStagger(a.Stagger),
		animator.WithMaxStep(a.MaxStep),
		animator.WithClampStep(a.ClampStep),
		animator.WithMaxSubsteps(a.MaxSubsteps),
		animator.WithPolicy(policy),
		animator.WithDropHeight(a.DropHeight),
		animator.WithLightOffset(a.LightOffset),
		animator.WithThresholds(a.VelocityThreshold, a.PositionThreshold),
	}
}

// SchedulerOptions translates the scheduler section.
func (c Config) SchedulerOptions() []scheduler.SchedulerBuilderOption {
	s := c.Scheduler
	return []scheduler.SchedulerBuilderOption{
		scheduler.WithTargetFPS(s.TargetFPS),
		scheduler.WithForcedFPS(s.ForcedFPS),
		scheduler.WithFPSWindow(s.FPSWindow),
		scheduler.WithReportInterval(s.ReportInterval),
		scheduler.WithMemoryStats(s.MemoryStats),
	}
}

// CacheOptions translates the cache section.
func (c Config) CacheOptions() []cache.CacheBuilderOption {
	return []cache.CacheBuilderOption{cache.WithPrecision(c.Cache.Precision)}
}

// ReconcilerOptions translates the cache precision and the debug flag.
func (c Config) ReconcilerOptions() []reconciler.ReconcilerBuilderOption {
	return []reconciler.ReconcilerBuilderOption{
		reconciler.WithPrecision(c.Cache.Precision),
		reconciler.WithDebug(c.Debug),
	}
}

// WorldOptions translates the world section.
func (c Config) WorldOptions() []world.WorldBuilderOption {
	return []world.WorldBuilderOption{
		world.WithRailings(c.World.Railings),
		world.WithCameraDistance(c.World.CameraDistance),
	}
}
