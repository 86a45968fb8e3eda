package reconciler

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/tilescape/engine/cache"
	"github.com/Carmen-Shannon/tilescape/engine/game_object"
	"github.com/Carmen-Shannon/tilescape/engine/renderer"
	"github.com/Carmen-Shannon/tilescape/engine/renderer/material"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
)

type recordingRenderer struct {
	nextID     uint64
	created    []game_object.GameObject
	removed    []game_object.GameObject
	transforms int
}

func (r *recordingRenderer) Create(geometry *cache.Geometry, mat material.Material) game_object.GameObject {
	r.nextID++
	obj := game_object.NewGameObject(
		game_object.WithID(r.nextID),
		game_object.WithGeometry(geometry),
		game_object.WithMaterial(mat),
	)
	r.created = append(r.created, obj)
	return obj
}

func (r *recordingRenderer) SetTransform(obj game_object.GameObject, position, rotation mgl64.Vec3) {
	r.transforms++
	obj.SetTransform(position, rotation)
}

func (r *recordingRenderer) Remove(obj game_object.GameObject) {
	r.removed = append(r.removed, obj)
	obj.SetEnabled(false)
}

func (r *recordingRenderer) calls() int {
	return len(r.created) + len(r.removed) + r.transforms
}

func newTestReconciler(options ...ReconcilerBuilderOption) (*recordingRenderer, cache.GeometryCache, Reconciler) {
	rr := &recordingRenderer{}
	geoms := cache.NewGeometryCache()
	return rr, geoms, NewReconciler(rr, geoms, cache.NewMaterialCache(), options...)
}

func box(key string, size float64, pos mgl64.Vec3) scene.Primitive {
	return scene.Primitive{
		Key:      key,
		Shape:    scene.ShapeBox,
		Size:     mgl64.Vec3{size, size, size},
		Material: scene.MaterialBase,
		Position: pos,
	}
}

func marker(slot int, radius float64, pos mgl64.Vec3) scene.Primitive {
	return scene.Primitive{
		Key:      "player",
		Shape:    scene.ShapeSphere,
		Radius:   radius,
		Segments: 16,
		Material: scene.MaterialPlayer,
		Position: pos,
		Role:     scene.RolePlayer,
		Slot:     slot,
	}
}

func sampleScene() scene.Descriptor {
	return scene.Descriptor{
		Primitives: []scene.Primitive{
			box("block-0", 0.1, mgl64.Vec3{0, 0, 0}),
			box("block-1", 0.1, mgl64.Vec3{0.1, 0, 0}),
			marker(0, 0.022, mgl64.Vec3{0, 0, 0.2}),
			marker(1, 0.018, mgl64.Vec3{0, 0, 0.55}),
			marker(2, 0.014, mgl64.Vec3{0, 0, 0.85}),
			{
				Key: "goal", Shape: scene.ShapeBox, Size: mgl64.Vec3{0.016, 0.016, 0.016},
				Material: scene.MaterialGoal, Position: mgl64.Vec3{0.1, 0, 0.01},
				Role: scene.RoleDynamic, Slot: 0,
			},
		},
		Lights: []scene.Light{
			{Key: "fill", Position: mgl64.Vec3{2, 2, 6}, Color: 0xffffff, Intensity: 40},
			{Key: "player-light", Color: 0xffffff, Intensity: 0.03, Tracked: true},
		},
	}
}

// TestReconcileIdempotent verifies reconciling the same snapshot twice changes nothing the second time.
func TestReconcileIdempotent(t *testing.T) {
	rr, _, r := newTestReconciler()
	first := r.Reconcile(sampleScene())
	if len(first.Plan.Created) != 6 {
		t.Fatalf("Expected 6 creations, got %d", len(first.Plan.Created))
	}
	calls, size := rr.calls(), r.Pool().Len()

	second := r.Reconcile(sampleScene())

	if second.Plan.Changes() != 0 {
		t.Errorf("Expected no changes, got %d created, %d updated, %d removed",
			len(second.Plan.Created), len(second.Plan.Updated), len(second.Plan.Removed))
	}
	if rr.calls() != calls {
		t.Errorf("Expected no renderer calls, got %d", rr.calls()-calls)
	}
	if r.Pool().Len() != size {
		t.Errorf("Expected pool size %d, got %d", size, r.Pool().Len())
	}
	if len(second.Plan.Kept) != 6 {
		t.Errorf("Expected 6 kept entries, got %d", len(second.Plan.Kept))
	}
	if r.Passes() != 2 {
		t.Errorf("Expected 2 passes, got %d", r.Passes())
	}
}

// TestReconcileSweep verifies a key missing from the next snapshot is disposed exactly once and shared keys are reused.
func TestReconcileSweep(t *testing.T) {
	rr, geoms, r := newTestReconciler()
	box1 := box("box1", 1, mgl64.Vec3{0, 0, 0})
	box2 := box("box2", 2, mgl64.Vec3{5, 0, 0})
	box3 := box("box3", 3, mgl64.Vec3{10, 0, 0})

	r.Reconcile(scene.Descriptor{Primitives: []scene.Primitive{box1, box2}})
	key2 := KeyOf(box2, geoms.Signature(cache.GeometryParamsOf(box2)), cache.DefaultPrecision)
	before, _ := r.Pool().Get(key2)

	res := r.Reconcile(scene.Descriptor{Primitives: []scene.Primitive{box2, box3}})

	if len(rr.removed) != 1 {
		t.Fatalf("Expected 1 disposal, got %d", len(rr.removed))
	}
	if rr.removed[0].Enabled() {
		t.Error("Expected the disposed object to be disabled")
	}
	after, ok := r.Pool().Get(key2)
	if !ok || after.Object != before.Object {
		t.Error("Expected box2 to keep its render object")
	}
	if len(res.Plan.Created) != 1 || res.Plan.Created[0].Primitive.Key != "box3" {
		t.Errorf("Expected only box3 created, got %v", res.Plan.Created)
	}
	if len(rr.created) != 3 {
		t.Errorf("Expected 3 creations overall, got %d", len(rr.created))
	}

	r.Reconcile(scene.Descriptor{Primitives: []scene.Primitive{box2, box3}})
	if len(rr.created) != 3 || len(rr.removed) != 1 {
		t.Errorf("Expected a repeated snapshot to be a no-op, got %d created and %d removed", len(rr.created), len(rr.removed))
	}
	if geoms.Len() != 3 {
		t.Errorf("Expected 3 cached geometries, got %d", geoms.Len())
	}
}

// TestReconcileStaticChangeIsNewKey verifies moving a static primitive replaces it rather than mutating it.
func TestReconcileStaticChangeIsNewKey(t *testing.T) {
	rr, _, r := newTestReconciler()
	r.Reconcile(scene.Descriptor{Primitives: []scene.Primitive{box("b", 1, mgl64.Vec3{0, 0, 0})}})
	res := r.Reconcile(scene.Descriptor{Primitives: []scene.Primitive{box("b", 1, mgl64.Vec3{1, 0, 0})}})

	if len(res.Plan.Created) != 1 || len(res.Plan.Removed) != 1 || len(res.Plan.Updated) != 0 {
		t.Errorf("Expected 1 create and 1 remove, got %d/%d/%d",
			len(res.Plan.Created), len(res.Plan.Removed), len(res.Plan.Updated))
	}
	if r.Pool().Len() != 1 || len(rr.created) != 2 {
		t.Errorf("Expected one live entry after two creations, got %d live and %d created", r.Pool().Len(), len(rr.created))
	}
}

// TestReconcileQuantization verifies numeric noise below the precision maps to the same key.
func TestReconcileQuantization(t *testing.T) {
	_, geoms, r := newTestReconciler()
	r.Reconcile(scene.Descriptor{Primitives: []scene.Primitive{box("b", 0.1, mgl64.Vec3{0.3, 0, 0})}})

	noisy := box("b", 0.1+1e-9, mgl64.Vec3{0.1 + 0.2, 1e-12, 0})
	res := r.Reconcile(scene.Descriptor{Primitives: []scene.Primitive{noisy}})

	if res.Plan.Changes() != 0 {
		t.Errorf("Expected noise to be ignored, got %d changes", res.Plan.Changes())
	}
	if geoms.Len() != 1 {
		t.Errorf("Expected 1 cached geometry, got %d", geoms.Len())
	}
}

// TestReconcileDuplicateKeys verifies the last primitive with a key wins and no duplicate object is made.
func TestReconcileDuplicateKeys(t *testing.T) {
	rr, _, r := newTestReconciler(WithDebug(true))
	desc := scene.Descriptor{Primitives: []scene.Primitive{
		box("a", 1, mgl64.Vec3{}),
		marker(0, 0.02, mgl64.Vec3{1, 0, 0}),
		box("a-again", 1, mgl64.Vec3{}),
		marker(0, 0.02, mgl64.Vec3{2, 0, 0}),
	}}

	res := r.Reconcile(desc)

	if len(rr.created) != 2 || r.Pool().Len() != 2 {
		t.Errorf("Expected 2 objects, got %d created and %d live", len(rr.created), r.Pool().Len())
	}
	if len(res.Players) != 1 {
		t.Fatalf("Expected 1 player, got %d", len(res.Players))
	}
	if res.Players[0].Target != (mgl64.Vec3{2, 0, 0}) {
		t.Errorf("Expected the last target to win, got %v", res.Players[0].Target)
	}
	e, _ := r.Pool().Get(SlotKey(scene.RolePlayer, 0))
	if e.Position != (mgl64.Vec3{2, 0, 0}) {
		t.Errorf("Expected the created object at the last position, got %v", e.Position)
	}
	static, _ := r.Pool().Get(res.Plan.Created[0].Key)
	if static.Label != "a-again" {
		t.Errorf("Expected the last label to win, got %q", static.Label)
	}
}

// TestReconcileDropsInvalid verifies bad primitives are dropped with a diagnostic while the rest are reconciled.
func TestReconcileDropsInvalid(t *testing.T) {
	rr, _, r := newTestReconciler()
	noKey := box("", 1, mgl64.Vec3{})
	noMaterial := box("m", 1, mgl64.Vec3{})
	noMaterial.Material = scene.MaterialNone
	badSize := box("s", 0, mgl64.Vec3{})

	res := r.Reconcile(scene.Descriptor{Primitives: []scene.Primitive{
		noKey, box("ok", 1, mgl64.Vec3{}), noMaterial, badSize,
	}})

	testCases := []struct {
		index int
		want  error
	}{
		{0, scene.ErrMissingKey},
		{2, scene.ErrMissingMaterial},
		{3, scene.ErrBadDimensions},
	}
	if len(res.Plan.Dropped) != len(testCases) {
		t.Fatalf("Expected %d dropped, got %d", len(testCases), len(res.Plan.Dropped))
	}
	for i, tc := range testCases {
		d := res.Plan.Dropped[i]
		if d.Index != tc.index {
			t.Errorf("Expected dropped index %d, got %d", tc.index, d.Index)
		}
		if errors.Cause(d.Err) != tc.want {
			t.Errorf("Expected %v, got %v", tc.want, d.Err)
		}
	}
	if len(rr.created) != 1 {
		t.Errorf("Expected the valid primitive created, got %d creations", len(rr.created))
	}
}

// TestReconcileDropsOversizedGeometry verifies a primitive asking for an unbuildable mesh is dropped
// before it reaches the cache while its siblings are still created.
func TestReconcileDropsOversizedGeometry(t *testing.T) {
	rr, geometries, r := newTestReconciler()
	huge := marker(0, 0.02, mgl64.Vec3{})
	huge.Segments = 1 << 40
	infinite := box("inf", math.Inf(1), mgl64.Vec3{})

	res := r.Reconcile(scene.Descriptor{Primitives: []scene.Primitive{
		box("a", 1, mgl64.Vec3{}), huge, infinite, box("b", 1, mgl64.Vec3{1, 0, 0}),
	}})

	if len(res.Plan.Dropped) != 2 {
		t.Fatalf("Expected 2 dropped, got %d", len(res.Plan.Dropped))
	}
	for i, want := range []int{1, 2} {
		d := res.Plan.Dropped[i]
		if d.Index != want || errors.Cause(d.Err) != scene.ErrBadDimensions {
			t.Errorf("Expected index %d with bad dimensions, got %d: %v", want, d.Index, d.Err)
		}
	}
	if len(rr.created) != 2 {
		t.Errorf("Expected both boxes created, got %d creations", len(rr.created))
	}
	if geometries.Len() != 1 {
		t.Errorf("Expected only the shared box geometry built, got %d", geometries.Len())
	}
}

// TestReconcileUnregisteredMaterialPanics verifies a material missing from the palette fails fast.
func TestReconcileUnregisteredMaterialPanics(t *testing.T) {
	palette := cache.DefaultPalette()
	delete(palette, scene.MaterialGoal)
	r := NewReconciler(&recordingRenderer{}, cache.NewGeometryCache(), cache.NewMaterialCache(cache.WithPalette(palette)))

	goal := box("goal", 1, mgl64.Vec3{})
	goal.Material = scene.MaterialGoal

	defer func() {
		if recover() == nil {
			t.Error("Expected a panic")
		}
	}()
	r.Reconcile(scene.Descriptor{Primitives: []scene.Primitive{goal}})
}

// TestReconcilePlayers verifies players come out in slot order and keep their objects while the animator moves them.
func TestReconcilePlayers(t *testing.T) {
	rr, _, r := newTestReconciler()
	desc := scene.Descriptor{Primitives: []scene.Primitive{
		marker(2, 0.014, mgl64.Vec3{0, 0, 3}),
		marker(0, 0.022, mgl64.Vec3{0, 0, 1}),
		marker(1, 0.018, mgl64.Vec3{0, 0, 2}),
	}}
	first := r.Reconcile(desc)

	for i, p := range first.Players {
		if p.Slot != i {
			t.Errorf("Expected slot %d at index %d, got %d", i, i, p.Slot)
		}
		if p.Target != (mgl64.Vec3{0, 0, float64(i + 1)}) {
			t.Errorf("Expected target z=%d for slot %d, got %v", i+1, i, p.Target)
		}
		if p.Object == nil {
			t.Errorf("Expected an object for slot %d", i)
		}
	}

	transforms := rr.transforms
	for i := range desc.Primitives {
		desc.Primitives[i].Position = desc.Primitives[i].Position.Add(mgl64.Vec3{1, 0, 0})
	}
	second := r.Reconcile(desc)

	if second.Plan.Changes() != 0 {
		t.Errorf("Expected moved players to need no pool changes, got %d", second.Plan.Changes())
	}
	if rr.transforms != transforms {
		t.Errorf("Expected player transforms left to the animator, got %d writes", rr.transforms-transforms)
	}
	targets := second.Targets()
	objects := second.Objects()
	for i := range targets {
		if targets[i] != (mgl64.Vec3{1, 0, float64(i + 1)}) {
			t.Errorf("Expected new target for slot %d, got %v", i, targets[i])
		}
		if objects[i] != first.Players[i].Object {
			t.Errorf("Expected slot %d to keep its object", i)
		}
	}
}

// TestReconcileDynamicUpdate verifies a dynamic slot is moved in place.
func TestReconcileDynamicUpdate(t *testing.T) {
	rr, _, r := newTestReconciler()
	desc := sampleScene()
	r.Reconcile(desc)
	key := SlotKey(scene.RoleDynamic, 0)
	before, _ := r.Pool().Get(key)

	desc.Primitives[5].Position = mgl64.Vec3{0.1, 0, 0.105}
	res := r.Reconcile(desc)

	if len(res.Plan.Updated) != 1 || res.Plan.Updated[0].Key != key {
		t.Fatalf("Expected one update for %s, got %v", key, res.Plan.Updated)
	}
	after, _ := r.Pool().Get(key)
	if after.Object != before.Object {
		t.Error("Expected the same object after an update")
	}
	if after.Object.Position() != (mgl64.Vec3{0.1, 0, 0.105}) {
		t.Errorf("Expected the object moved, got %v", after.Object.Position())
	}
	if len(rr.removed) != 0 {
		t.Errorf("Expected no disposals, got %d", len(rr.removed))
	}
}

// TestReconcileSlotShapeChange verifies a slot whose geometry changes gets a fresh object.
func TestReconcileSlotShapeChange(t *testing.T) {
	rr, _, r := newTestReconciler()
	r.Reconcile(scene.Descriptor{Primitives: []scene.Primitive{marker(0, 0.02, mgl64.Vec3{})}})
	res := r.Reconcile(scene.Descriptor{Primitives: []scene.Primitive{marker(0, 0.03, mgl64.Vec3{})}})

	if len(res.Plan.Removed) != 1 || len(res.Plan.Created) != 1 {
		t.Errorf("Expected a replacement, got %d removed and %d created", len(res.Plan.Removed), len(res.Plan.Created))
	}
	if r.Pool().Len() != 1 || len(rr.created) != 2 {
		t.Errorf("Expected one live entry, got %d", r.Pool().Len())
	}
	if res.Players[0].Object != rr.created[1] {
		t.Error("Expected the player to point at the new object")
	}
}

// TestDiffIsPure verifies Diff touches neither the pool nor the renderer.
func TestDiffIsPure(t *testing.T) {
	rr, _, r := newTestReconciler()
	a := r.Diff(sampleScene())
	b := r.Diff(sampleScene())

	if rr.calls() != 0 {
		t.Errorf("Expected no renderer calls, got %d", rr.calls())
	}
	if r.Pool().Len() != 0 {
		t.Errorf("Expected an empty pool, got %d", r.Pool().Len())
	}
	if len(a.Created) != len(b.Created) || len(a.Created) != 6 {
		t.Errorf("Expected identical plans with 6 creations, got %d and %d", len(a.Created), len(b.Created))
	}
	for i := range a.Created {
		if a.Created[i].Key != b.Created[i].Key {
			t.Errorf("Expected the same key order, got %s and %s", a.Created[i].Key, b.Created[i].Key)
		}
	}

	r.Apply(a)
	if r.Pool().Len() != 6 {
		t.Errorf("Expected 6 live entries after apply, got %d", r.Pool().Len())
	}
}

// TestReconcileTrackedLight verifies the first tracked light is reported.
func TestReconcileTrackedLight(t *testing.T) {
	_, _, r := newTestReconciler()
	res := r.Reconcile(sampleScene())
	if res.TrackedLight == nil || res.TrackedLight.Key != "player-light" {
		t.Errorf("Expected the player light, got %v", res.TrackedLight)
	}

	res = r.Reconcile(scene.Descriptor{})
	if res.TrackedLight != nil {
		t.Errorf("Expected no tracked light, got %v", res.TrackedLight)
	}
	if r.Pool().Len() != 0 {
		t.Errorf("Expected an empty snapshot to sweep everything, got %d", r.Pool().Len())
	}
}

// TestReconcileWithRenderer verifies the reconciler drives the real renderer frontend.
func TestReconcileWithRenderer(t *testing.T) {
	rend := renderer.NewHeadlessRenderer()
	r := NewReconciler(rend, cache.NewGeometryCache(), cache.NewMaterialCache())

	r.Reconcile(sampleScene())
	if rend.Len() != 6 {
		t.Errorf("Expected 6 renderer objects, got %d", rend.Len())
	}
	if got := rend.Frame().InstanceCount(); got != 6 {
		t.Errorf("Expected 6 instances in the frame, got %d", got)
	}

	r.Clear()
	if rend.Len() != 0 || r.Pool().Len() != 0 {
		t.Errorf("Expected clear to empty both, got %d and %d", rend.Len(), r.Pool().Len())
	}
}
