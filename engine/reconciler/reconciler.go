// Package reconciler keeps a pool of render objects in step with the scene
// snapshots the producer publishes.
//
// Reconciliation is split in two. Diff compares a snapshot with the pool and
// returns a Plan without touching anything. Apply executes a plan against the
// renderer. Static primitives are keyed by content, so a changed primitive is
// a removal plus a creation; slotted primitives keep their key and are moved
// in place. Entries a snapshot does not mention are swept.
package reconciler

import (
	"fmt"
	"log"
	"sort"

	"github.com/Carmen-Shannon/tilescape/engine/cache"
	"github.com/Carmen-Shannon/tilescape/engine/game_object"
	"github.com/Carmen-Shannon/tilescape/engine/renderer/material"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-gl/mathgl/mgl64"
)

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
	spewConfig.MaxDepth = 4
}

// Renderer is the part of the external renderer the pool drives.
type Renderer interface {
	Create(geometry *cache.Geometry, mat material.Material) game_object.GameObject
	SetTransform(obj game_object.GameObject, position, rotation mgl64.Vec3)
	Remove(obj game_object.GameObject)
}

// Op is one planned create or update.
type Op struct {
	Key       Key
	Index     int // position of the winning primitive in the snapshot
	Primitive scene.Primitive
	Geometry  cache.GeometrySignature
}

// Plan lists the operations that bring the pool in line with one snapshot.
type Plan struct {
	Created []Op
	Updated []Op
	Kept    []Key
	Removed []Key
	Dropped []*scene.ValidationError

	// Players holds the player primitives ordered by slot.
	Players []Op
}

// Changes returns the number of operations that touch the renderer.
func (p Plan) Changes() int {
	return len(p.Created) + len(p.Updated) + len(p.Removed)
}

// Player is one reconciled player marker.
type Player struct {
	Slot   int
	Target mgl64.Vec3
	Object game_object.GameObject
}

// Result is the outcome of one reconciliation pass.
type Result struct {
	Plan    Plan
	Players []Player

	// TrackedLight is the first light marked as tracked, or nil.
	TrackedLight *scene.Light
}

// Targets returns the player target positions ordered by slot.
func (r Result) Targets() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(r.Players))
	for i, p := range r.Players {
		out[i] = p.Target
	}
	return out
}

// Objects returns the player render objects ordered by slot.
func (r Result) Objects() []game_object.GameObject {
	out := make([]game_object.GameObject, len(r.Players))
	for i, p := range r.Players {
		out[i] = p.Object
	}
	return out
}

type reconciler struct {
	pool       *Pool
	renderer   Renderer
	geometries cache.GeometryCache
	materials  cache.MaterialCache
	precision  int
	debug      bool
	passes     uint64
}

// Reconciler owns the render object pool. It is used from the loop goroutine only.
type Reconciler interface {
	// Diff plans the operations for desc. It reads the pool and the caches and changes neither.
	// Panics if a primitive names a material the palette does not register.
	//
	// Parameters:
	//   - desc: the snapshot
	//
	// Returns:
	//   - Plan: the operations to apply
	Diff(desc scene.Descriptor) Plan

	// Apply executes a plan: removals, then creations, then updates.
	//
	// Parameters:
	//   - plan: a plan produced by Diff against the current pool
	Apply(plan Plan)

	// Reconcile diffs and applies desc in one pass.
	//
	// Parameters:
	//   - desc: the snapshot
	//
	// Returns:
	//   - Result: the applied plan, the player markers and the tracked light
	Reconcile(desc scene.Descriptor) Result

	// Pool returns the live pool. Callers must not keep entries' objects past the next pass.
	Pool() *Pool

	// Passes returns how many snapshots have been reconciled.
	Passes() uint64

	// Clear removes every pooled object from the renderer.
	Clear()
}

var _ Reconciler = &reconciler{}

// NewReconciler creates a reconciler with an empty pool.
//
// Parameters:
//   - r: the renderer objects are created in
//   - geometries: the shared geometry cache
//   - materials: the shared material cache
//   - options: functional options to configure the reconciler
//
// Returns:
//   - Reconciler: the new reconciler
func NewReconciler(r Renderer, geometries cache.GeometryCache, materials cache.MaterialCache, options ...ReconcilerBuilderOption) Reconciler {
	if r == nil || geometries == nil || materials == nil {
		panic("reconciler: renderer and caches are required")
	}
	rc := &reconciler{
		pool:       NewPool(),
		renderer:   r,
		geometries: geometries,
		materials:  materials,
		precision:  cache.DefaultPrecision,
	}
	for _, opt := range options {
		opt(rc)
	}
	return rc
}

func (r *reconciler) Diff(desc scene.Descriptor) Plan {
	var plan Plan

	ops := make(map[Key]Op, len(desc.Primitives))
	order := make([]Key, 0, len(desc.Primitives))
	for i, p := range desc.Primitives {
		if err := p.Validate(); err != nil {
			plan.Dropped = append(plan.Dropped, &scene.ValidationError{Index: i, Key: p.Key, Err: err})
			continue
		}
		if !r.materials.Registered(p.Material) {
			panic(fmt.Sprintf("reconciler: primitive %d (%s) uses unregistered material %q", i, p.Key, p.Material))
		}

		sig := r.geometries.Signature(cache.GeometryParamsOf(p))
		key := KeyOf(p, sig, r.precision)
		if prev, dup := ops[key]; dup {
			if r.debug {
				log.Printf("[Reconciler] Primitive %d (%s) overrides %d for key %s", i, p.Key, prev.Index, key)
			}
		} else {
			order = append(order, key)
		}
		ops[key] = Op{Key: key, Index: i, Primitive: p, Geometry: sig}
	}

	for _, key := range order {
		op := ops[key]
		entry, live := r.pool.entries[key]
		switch {
		case !live:
			plan.Created = append(plan.Created, op)
		case !op.Primitive.Role.Slotted():
			plan.Kept = append(plan.Kept, key)
		case entry.Geometry != op.Geometry || entry.Material != op.Primitive.Material:
			plan.Removed = append(plan.Removed, key)
			plan.Created = append(plan.Created, op)
		case op.Primitive.Role == scene.RoleDynamic &&
			(entry.Position != op.Primitive.Position || entry.Rotation != op.Primitive.Rotation):
			plan.Updated = append(plan.Updated, op)
		default:
			plan.Kept = append(plan.Kept, key)
		}
		if op.Primitive.Role == scene.RolePlayer {
			plan.Players = append(plan.Players, op)
		}
	}
	sort.SliceStable(plan.Players, func(i, j int) bool {
		return plan.Players[i].Primitive.Slot < plan.Players[j].Primitive.Slot
	})

	for _, key := range r.pool.Keys() {
		if _, seen := ops[key]; !seen {
			plan.Removed = append(plan.Removed, key)
		}
	}
	return plan
}

func (r *reconciler) Apply(plan Plan) {
	for _, key := range plan.Removed {
		e := r.pool.take(key)
		if e == nil {
			continue
		}
		r.renderer.Remove(e.Object)
	}

	for _, op := range plan.Created {
		p := op.Primitive
		obj := r.renderer.Create(
			r.geometries.Geometry(cache.GeometryParamsOf(p)),
			r.materials.Material(p.Material),
		)
		r.renderer.SetTransform(obj, p.Position, p.Rotation)
		r.pool.put(&Entry{
			Key:      op.Key,
			Label:    p.Key,
			Role:     p.Role,
			Slot:     p.Slot,
			Geometry: op.Geometry,
			Material: p.Material,
			Position: p.Position,
			Rotation: p.Rotation,
			Object:   obj,
		})
	}

	for _, op := range plan.Updated {
		e, ok := r.pool.entries[op.Key]
		if !ok {
			continue
		}
		e.Label = op.Primitive.Key
		e.Position = op.Primitive.Position
		e.Rotation = op.Primitive.Rotation
		r.renderer.SetTransform(e.Object, e.Position, e.Rotation)
	}
}

func (r *reconciler) Reconcile(desc scene.Descriptor) Result {
	plan := r.Diff(desc)
	for _, d := range plan.Dropped {
		log.Printf("[Reconciler] Dropped %v", d)
	}
	if r.debug {
		log.Printf("[Reconciler] Plan:\n%s", spewConfig.Sdump(plan))
	}

	r.Apply(plan)
	r.passes++

	res := Result{Plan: plan}
	for _, op := range plan.Players {
		e := r.pool.entries[op.Key]
		res.Players = append(res.Players, Player{
			Slot:   op.Primitive.Slot,
			Target: op.Primitive.Position,
			Object: e.Object,
		})
	}
	for i := range desc.Lights {
		if desc.Lights[i].Tracked {
			l := desc.Lights[i]
			res.TrackedLight = &l
			break
		}
	}
	return res
}

func (r *reconciler) Pool() *Pool {
	return r.pool
}

func (r *reconciler) Passes() uint64 {
	return r.passes
}

func (r *reconciler) Clear() {
	for _, key := range r.pool.Keys() {
		r.renderer.Remove(r.pool.take(key).Object)
	}
}
