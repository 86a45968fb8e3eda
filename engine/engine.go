package engine

import (
	"bytes"
	"context"
	"io"
	"log"
	"sync"

	"github.com/Carmen-Shannon/tilescape/engine/animator"
	"github.com/Carmen-Shannon/tilescape/engine/cache"
	"github.com/Carmen-Shannon/tilescape/engine/export"
	"github.com/Carmen-Shannon/tilescape/engine/host"
	"github.com/Carmen-Shannon/tilescape/engine/light"
	"github.com/Carmen-Shannon/tilescape/engine/reconciler"
	"github.com/Carmen-Shannon/tilescape/engine/renderer"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/Carmen-Shannon/tilescape/engine/scheduler"
	"github.com/Carmen-Shannon/tilescape/engine/world"
	"github.com/pkg/errors"
)

// engine implements the Engine interface.
// Everything except the published snapshots is owned by the loop goroutine.
type engine struct {
	mu *sync.Mutex

	loop       host.Loop
	renderer   renderer.Renderer
	geometries cache.GeometryCache
	materials  cache.MaterialCache
	reconciler reconciler.Reconciler
	animator   animator.Animator
	scheduler  scheduler.Scheduler
	builder    world.Builder

	cacheOptions      []cache.CacheBuilderOption
	reconcilerOptions []reconciler.ReconcilerBuilderOption
	animatorOptions   []animator.AnimatorBuilderOption
	schedulerOptions  []scheduler.SchedulerBuilderOption
	worldOptions      []world.WorldBuilderOption
	stepSeconds       float64

	// Published after every reconcile and every frame for readers on other goroutines.
	entries   []reconciler.Entry
	objects   []export.Object
	submitted uint64
	applied   uint64
}

// Engine wires the scene pipeline together: snapshots are reconciled into the
// render pool, the player chain is animated toward its targets and frames are
// scheduled only while something is moving or a render is pending.
type Engine interface {
	// Submit queues a snapshot. Safe from any goroutine; the snapshot is applied on the loop.
	//
	// Parameters:
	//   - desc: the snapshot
	Submit(desc scene.Descriptor)

	// SubmitState expands a puzzle state and queues the resulting snapshot.
	//
	// Parameters:
	//   - s: the puzzle state
	SubmitState(s world.State)

	// SetStepSeconds sets the duration of one game step. The chain stagger is a tenth of it.
	//
	// Parameters:
	//   - seconds: the step duration; negative values are ignored
	SetStepSeconds(seconds float64)

	// OnFPS registers a sink for the rolling frame rate.
	//
	// Parameters:
	//   - fn: called about once per report interval on the loop goroutine
	OnFPS(fn func(fps float64))

	// Resize queues a surface resize and a render.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// Entries returns the pool as of the last reconcile. Entry objects are omitted.
	Entries() []reconciler.Entry

	// Export writes the scene as of the last frame as binary glTF.
	//
	// Parameters:
	//   - w: the destination
	//
	// Returns:
	//   - error: error if the scene cannot be encoded
	Export(w io.Writer) error

	// Run drives the loop until ctx is done, then releases the pool and the renderer.
	//
	// Parameters:
	//   - ctx: stops the loop
	//
	// Returns:
	//   - error: the loop's error
	Run(ctx context.Context) error

	// Stats returns counters for diagnostics.
	Stats() Stats

	Loop() host.Loop
	Renderer() renderer.Renderer
	Animator() animator.Animator
	Scheduler() scheduler.Scheduler
	Reconciler() reconciler.Reconciler
}

// Stats is a point-in-time view of the engine counters.
type Stats struct {
	Submitted uint64  `json:"submitted"`
	Applied   uint64  `json:"applied"`
	Objects   int     `json:"objects"`
	Ticks     uint64  `json:"ticks"`
	Skipped   uint64  `json:"skipped"`
	FPS       float64 `json:"fps"`
	State     string  `json:"state"`
}

var _ Engine = &engine{}

// NewEngine creates an Engine. Without WithLoop and WithRenderer it runs on a
// headless loop with a headless renderer.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:          &sync.Mutex{},
		stepSeconds: -1,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.loop == nil {
		e.loop = host.NewHeadless()
	}
	if e.renderer == nil {
		e.renderer = renderer.NewHeadlessRenderer()
	}
	e.geometries = cache.NewGeometryCache(e.cacheOptions...)
	e.materials = cache.NewMaterialCache(e.cacheOptions...)
	e.reconciler = reconciler.NewReconciler(e.renderer, e.geometries, e.materials, e.reconcilerOptions...)
	e.animator = animator.NewAnimator(e.animatorOptions...)
	if e.stepSeconds >= 0 {
		e.animator.SetStagger(e.stepSeconds / 10)
	}
	e.scheduler = scheduler.NewScheduler(e.loop, e.animator, e.render, e.schedulerOptions...)
	e.builder = world.NewBuilder(e.worldOptions...)
	return e
}

func (e *engine) Submit(desc scene.Descriptor) {
	e.mu.Lock()
	e.submitted++
	e.mu.Unlock()
	e.loop.Post(func() { e.apply(desc) })
}

func (e *engine) SubmitState(s world.State) {
	e.Submit(e.builder.Build(s))
}

func (e *engine) SetStepSeconds(seconds float64) {
	if seconds < 0 {
		return
	}
	e.loop.Post(func() { e.animator.SetStagger(seconds / 10) })
}

func (e *engine) OnFPS(fn func(fps float64)) {
	e.scheduler.OnFPS(fn)
}

func (e *engine) Resize(width, height int) {
	e.loop.Post(func() {
		e.renderer.Resize(width, height)
		e.scheduler.RequestRender()
	})
}

func (e *engine) Entries() []reconciler.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]reconciler.Entry(nil), e.entries...)
}

func (e *engine) Export(w io.Writer) error {
	e.mu.Lock()
	objects := append([]export.Object(nil), e.objects...)
	e.mu.Unlock()

	var buf bytes.Buffer
	if err := export.WriteBinary(&buf, objects); err != nil {
		return errors.Wrap(err, "export scene")
	}
	_, err := buf.WriteTo(w)
	return errors.Wrap(err, "write scene")
}

func (e *engine) Run(ctx context.Context) error {
	err := e.loop.Run(ctx)
	e.reconciler.Clear()
	e.renderer.Release()
	log.Printf("[Engine] Stopped after %d snapshots and %d frames", e.reconciler.Passes(), e.scheduler.Ticks())
	return err
}

func (e *engine) Stats() Stats {
	e.mu.Lock()
	st := Stats{Submitted: e.submitted, Applied: e.applied, Objects: len(e.objects)}
	e.mu.Unlock()
	st.Ticks = e.scheduler.Ticks()
	st.Skipped = e.scheduler.Skipped()
	st.FPS = e.scheduler.FPS()
	st.State = e.scheduler.State().String()
	return st
}

func (e *engine) Loop() host.Loop {
	return e.loop
}

func (e *engine) Renderer() renderer.Renderer {
	return e.renderer
}

func (e *engine) Animator() animator.Animator {
	return e.animator
}

func (e *engine) Scheduler() scheduler.Scheduler {
	return e.scheduler
}

func (e *engine) Reconciler() reconciler.Reconciler {
	return e.reconciler
}

// apply reconciles one snapshot and retargets the chain. Runs on the loop goroutine.
func (e *engine) apply(desc scene.Descriptor) {
	res := e.reconciler.Reconcile(desc)

	e.renderer.SetCamera(desc.Camera)
	e.renderer.SetBackground(desc.Background)

	lights := make([]light.Light, 0, len(desc.Lights))
	var tracked light.Light
	for _, ld := range desc.Lights {
		l := light.FromDescriptor(ld)
		if tracked == nil && ld.Tracked {
			tracked = l
		}
		lights = append(lights, l)
	}
	e.renderer.SetLights(lights)
	if tracked != nil {
		e.animator.BindLight(tracked)
	} else {
		e.animator.BindLight(nil)
	}

	objs := res.Objects()
	handles := make([]animator.Handle, len(objs))
	for i, o := range objs {
		handles[i] = o
	}
	e.animator.Bind(handles)
	e.animator.UpdateTargets(res.Targets())

	// A rebound light starts at its snapshot position; put it back on the chain before the next frame.
	if tracked != nil && e.animator.Initialized() {
		tracked.SetPosition(e.animator.LightPosition())
	}

	e.mu.Lock()
	e.applied++
	e.mu.Unlock()
	e.publish()

	e.scheduler.RequestRender()
}

// render draws one frame and publishes the exported view of it. Runs on the loop goroutine.
func (e *engine) render() error {
	err := e.renderer.Render()
	e.publish()
	return err
}

// publish copies the pool for readers on other goroutines. Placement is read from
// the render objects so animated players report where they are drawn.
func (e *engine) publish() {
	entries := e.reconciler.Pool().Entries()
	objects := export.FromEntries(entries)
	for i := range entries {
		if obj := entries[i].Object; obj != nil {
			entries[i].Position = obj.Position()
			entries[i].Rotation = obj.Rotation()
		}
		entries[i].Object = nil
	}
	e.mu.Lock()
	e.entries = entries
	e.objects = objects
	e.mu.Unlock()
}
