package engine

import (
	"bytes"
	"testing"
	"time"

	"github.com/Carmen-Shannon/tilescape/engine/animator"
	"github.com/Carmen-Shannon/tilescape/engine/host"
	"github.com/Carmen-Shannon/tilescape/engine/scene"
	"github.com/Carmen-Shannon/tilescape/engine/scheduler"
	"github.com/Carmen-Shannon/tilescape/engine/world"
	"github.com/go-gl/mathgl/mgl64"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func newTestEngine(options ...EngineBuilderOption) (Engine, host.HeadlessLoop, *testClock) {
	clock := &testClock{now: time.Unix(1000, 0)}
	loop := host.NewHeadless(host.WithClock(clock.Now))
	e := NewEngine(append([]EngineBuilderOption{WithLoop(loop)}, options...)...)
	return e, loop, clock
}

// settle steps the loop in 20 ms frames until the scheduler goes idle.
func settle(t *testing.T, e Engine, loop host.HeadlessLoop, clock *testClock) int {
	t.Helper()
	for i := 0; i < 1000; i++ {
		loop.Step()
		if e.Scheduler().State() == scheduler.StateIdle {
			return i
		}
		clock.now = clock.now.Add(20 * time.Millisecond)
	}
	t.Fatal("Expected the scheduler to go idle")
	return 0
}

func playerScene(target mgl64.Vec3) scene.Descriptor {
	d := scene.Descriptor{
		Camera:     scene.DefaultCamera(),
		Background: 0x202020,
		Lights: []scene.Light{
			{Key: "fill", Position: mgl64.Vec3{0, 0, 5}, Color: 0xffffff, Intensity: 10},
			{Key: "follow", Position: target, Color: 0xffaa00, Intensity: 0.03, Tracked: true},
		},
		Primitives: []scene.Primitive{
			{Key: "floor", Shape: scene.ShapeBox, Size: mgl64.Vec3{1, 1, 0.1}, Material: scene.MaterialBase},
		},
	}
	for i := 0; i < 3; i++ {
		d.Primitives = append(d.Primitives, scene.Primitive{
			Key:      "player",
			Shape:    scene.ShapeSphere,
			Radius:   0.02,
			Material: scene.MaterialPlayer,
			Position: target.Add(mgl64.Vec3{0, 0, 0.05 * float64(i)}),
			Role:     scene.RolePlayer,
			Slot:     i,
		})
	}
	return d
}

// TestEngineConvergesAndIdles verifies a snapshot is reconciled, animated to rest and then left idle.
func TestEngineConvergesAndIdles(t *testing.T) {
	e, loop, clock := newTestEngine()
	target := mgl64.Vec3{0.3, 0.2, 0.1}
	e.Submit(playerScene(target))

	settle(t, e, loop, clock)

	if e.Renderer().Len() != 4 {
		t.Errorf("Expected 4 render objects, got %d", e.Renderer().Len())
	}
	if e.Renderer().Background() != 0x202020 || len(e.Renderer().Lights()) != 2 {
		t.Errorf("Expected the snapshot's background and lights, got %#x and %d", e.Renderer().Background(), len(e.Renderer().Lights()))
	}

	a := e.Animator()
	for i := 0; i < 3; i++ {
		want := target.Add(mgl64.Vec3{0, 0, 0.05 * float64(i)})
		if got := a.Node(i).Position; got.Sub(want).Len() > 0.001 {
			t.Errorf("Expected node %d at %v, got %v", i, want, got)
		}
	}

	follow := e.Renderer().Lights()[1]
	want := a.Node(0).Position.Add(mgl64.Vec3{0, 0, animator.DefaultLightOffset})
	if follow.Position().Sub(want).Len() > 1e-9 {
		t.Errorf("Expected the tracked light above node 0 at %v, got %v", want, follow.Position())
	}

	ticks := e.Scheduler().Ticks()
	for i := 0; i < 10; i++ {
		clock.now = clock.now.Add(20 * time.Millisecond)
		loop.Step()
	}
	if e.Scheduler().Ticks() != ticks {
		t.Errorf("Expected no frames while idle, got %d more", e.Scheduler().Ticks()-ticks)
	}
}

// TestEngineResubmitIsIdempotent verifies an identical snapshot changes nothing but still renders once.
func TestEngineResubmitIsIdempotent(t *testing.T) {
	e, loop, clock := newTestEngine()
	desc := playerScene(mgl64.Vec3{0, 0, 0})
	e.Submit(desc)
	settle(t, e, loop, clock)

	objects := e.Renderer().Objects()
	frames := e.Renderer().Frames()
	e.Submit(desc)
	settle(t, e, loop, clock)

	after := e.Renderer().Objects()
	if len(after) != len(objects) {
		t.Fatalf("Expected %d objects, got %d", len(objects), len(after))
	}
	for i := range objects {
		if objects[i] != after[i] {
			t.Errorf("Expected object %d to be reused", i)
		}
	}
	if e.Renderer().Frames() <= frames {
		t.Error("Expected the pending render to draw a frame")
	}
	if st := e.Stats(); st.Submitted != 2 || st.Applied != 2 || st.State != "idle" {
		t.Errorf("Expected 2 applied snapshots and an idle scheduler, got %+v", st)
	}
}

// TestEngineSweepsAndRetargets verifies a new snapshot sweeps stale objects and moves the chain.
func TestEngineSweepsAndRetargets(t *testing.T) {
	e, loop, clock := newTestEngine()
	e.Submit(playerScene(mgl64.Vec3{0, 0, 0}))
	settle(t, e, loop, clock)

	next := playerScene(mgl64.Vec3{0.5, 0, 0})
	next.Primitives[0].Position = mgl64.Vec3{0, 0, -0.1}
	e.Submit(next)
	settle(t, e, loop, clock)

	if e.Renderer().Len() != 4 || len(e.Entries()) != 4 {
		t.Errorf("Expected the old floor swept, got %d objects and %d entries", e.Renderer().Len(), len(e.Entries()))
	}
	if got := e.Animator().Node(0).Position; got.Sub(mgl64.Vec3{0.5, 0, 0}).Len() > 0.001 {
		t.Errorf("Expected node 0 at the new target, got %v", got)
	}
	for _, entry := range e.Entries() {
		if entry.Object != nil {
			t.Error("Expected published entries without render objects")
		}
	}
}

// TestEngineEntriesFollowAnimation verifies published player entries report the animated
// position rather than the snapshot position they were created at.
func TestEngineEntriesFollowAnimation(t *testing.T) {
	e, loop, clock := newTestEngine()
	e.Submit(playerScene(mgl64.Vec3{0, 0, 0}))
	settle(t, e, loop, clock)

	target := mgl64.Vec3{0.5, 0.25, 0}
	e.Submit(playerScene(target))
	settle(t, e, loop, clock)

	players := 0
	for _, entry := range e.Entries() {
		if entry.Role != scene.RolePlayer {
			continue
		}
		players++
		node := e.Animator().Node(entry.Slot).Position
		if entry.Position.Sub(node).Len() > 1e-9 {
			t.Errorf("Expected slot %d at the animated %v, got %v", entry.Slot, node, entry.Position)
		}
		if entry.Slot == 0 && entry.Position.Sub(target).Len() > 0.001 {
			t.Errorf("Expected the lead player near %v, got %v", target, entry.Position)
		}
	}
	if players != 3 {
		t.Errorf("Expected 3 player entries, got %d", players)
	}
}

// TestEngineSubmitState verifies puzzle states are expanded with the configured builder.
func TestEngineSubmitState(t *testing.T) {
	e, loop, clock := newTestEngine(WithWorldOptions(world.WithFillLights(nil)))
	e.SubmitState(world.State{
		Blocks: []world.Block{{X: 0, Y: 0, Z: 0, Type: world.BlockBase}},
		Player: world.Tile{X: 0, Y: 0, Z: 0},
		Goal:   world.Tile{X: 1, Y: 1, Z: 0},
	})
	settle(t, e, loop, clock)

	// 1 column, 3 player markers and 3 goal cubes.
	if e.Renderer().Len() != 7 {
		t.Errorf("Expected 7 objects, got %d", e.Renderer().Len())
	}
	if len(e.Renderer().Lights()) != 1 {
		t.Errorf("Expected only the player light, got %d", len(e.Renderer().Lights()))
	}
}

// TestEngineStepSeconds verifies the stagger follows the step duration.
func TestEngineStepSeconds(t *testing.T) {
	e, loop, _ := newTestEngine(WithStepSeconds(1))
	if e.Animator().Stagger() != 0.1 {
		t.Errorf("Expected stagger 0.1, got %v", e.Animator().Stagger())
	}
	e.SetStepSeconds(0.3)
	e.SetStepSeconds(-1)
	loop.Step()
	if s := e.Animator().Stagger(); s < 0.03-1e-12 || s > 0.03+1e-12 {
		t.Errorf("Expected stagger 0.03, got %v", s)
	}
}

// TestEngineExport verifies the last frame exports as binary glTF.
func TestEngineExport(t *testing.T) {
	e, loop, clock := newTestEngine()
	e.Submit(playerScene(mgl64.Vec3{0, 0, 0}))
	settle(t, e, loop, clock)

	var buf bytes.Buffer
	if err := e.Export(&buf); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("glTF")) {
		t.Error("Expected a binary glTF stream")
	}
}

// TestEngineFPSSink verifies frame rate reports reach registered sinks.
func TestEngineFPSSink(t *testing.T) {
	e, loop, clock := newTestEngine(WithSchedulerOptions(scheduler.WithReportInterval(200 * time.Millisecond)))
	var reports []float64
	e.OnFPS(func(fps float64) { reports = append(reports, fps) })

	e.Submit(playerScene(mgl64.Vec3{0, 0, 0}))
	settle(t, e, loop, clock)

	if len(reports) == 0 {
		t.Fatal("Expected at least one report")
	}
	if reports[0] < 49 || reports[0] > 51 {
		t.Errorf("Expected about 50 fps for 20 ms frames, got %v", reports[0])
	}
}

// TestEngineResize verifies a resize queues a render. With no chain seeded yet the scheduler keeps running.
func TestEngineResize(t *testing.T) {
	e, loop, _ := newTestEngine()
	e.Resize(320, 200)
	loop.Step()
	if e.Renderer().Frames() != 1 {
		t.Errorf("Expected one frame after a resize, got %d", e.Renderer().Frames())
	}
	if e.Scheduler().State() != scheduler.StateRunning {
		t.Errorf("Expected the scheduler running before the chain is seeded, got %s", e.Scheduler().State())
	}
}
