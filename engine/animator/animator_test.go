package animator

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

type recordingHandle struct {
	writes   int
	position mgl64.Vec3
	rotation mgl64.Vec3
}

func (h *recordingHandle) Rotation() mgl64.Vec3 { return h.rotation }

func (h *recordingHandle) SetTransform(position, rotation mgl64.Vec3) {
	h.writes++
	h.position = position
	h.rotation = rotation
}

type recordingLight struct {
	position mgl64.Vec3
	writes   int
}

func (l *recordingLight) SetPosition(position mgl64.Vec3) {
	l.writes++
	l.position = position
}

func lineTargets() []mgl64.Vec3 {
	return []mgl64.Vec3{{0, 0, 0}, {0, 0, 1}, {0, 0, 2}}
}

// TestAnimatorConverges verifies the chain settles on its targets after 5 seconds of 100ms frames.
func TestAnimatorConverges(t *testing.T) {
	a := NewAnimator()
	a.UpdateTargets(lineTargets())

	for i := 0; i < 50; i++ {
		a.Update(100)
	}

	for i, n := range a.Nodes() {
		if d := n.Position.Sub(n.Target).Len(); d > 0.001 {
			t.Errorf("Expected node %d within 0.001 of target, got distance %f", i, d)
		}
		if v := n.Velocity.Len(); v > 0.01 {
			t.Errorf("Expected node %d speed below 0.01, got %f", i, v)
		}
	}
	if a.IsMoving() {
		t.Error("Expected chain at rest")
	}
}

// TestAnimatorSeedsAboveTargets verifies the first target update drops nodes in from above with zero velocity.
func TestAnimatorSeedsAboveTargets(t *testing.T) {
	a := NewAnimator()
	if a.Initialized() {
		t.Fatal("Expected a new chain to be uninitialized")
	}
	if !a.IsMoving() {
		t.Error("Expected an uninitialized chain to report moving")
	}

	a.UpdateTargets(lineTargets())
	if !a.Initialized() {
		t.Fatal("Expected chain to be initialized")
	}
	for i, n := range a.Nodes() {
		want := lineTargets()[i].Add(mgl64.Vec3{0, 0, DefaultDropHeight})
		if !n.Position.ApproxEqual(want) {
			t.Errorf("Expected node %d seeded at %v, got %v", i, want, n.Position)
		}
		if n.Velocity.Len() != 0 {
			t.Errorf("Expected node %d to start at rest, got %v", i, n.Velocity)
		}
	}

	// Later updates move targets only.
	a.UpdateTargets([]mgl64.Vec3{{5, 5, 5}, {5, 5, 6}, {5, 5, 7}})
	if got := a.Node(0).Position; !got.ApproxEqual(mgl64.Vec3{0, 0, 1}) {
		t.Errorf("Expected position unchanged by retarget, got %v", got)
	}
	if got := a.Node(0).Target; got != (mgl64.Vec3{5, 5, 5}) {
		t.Errorf("Expected new target, got %v", got)
	}
}

// TestAnimatorUpdateBeforeTargets verifies Update is a no-op until the chain is seeded.
func TestAnimatorUpdateBeforeTargets(t *testing.T) {
	a := NewAnimator()
	h := &recordingHandle{}
	a.Bind([]Handle{h})
	a.Update(16)
	if h.writes != 0 {
		t.Errorf("Expected no writes before seeding, got %d", h.writes)
	}
	if a.Timer() != 0 {
		t.Errorf("Expected timer 0, got %f", a.Timer())
	}
}

// TestAnimatorSpacing verifies effective targets keep the raw spacing relative to the previous node.
func TestAnimatorSpacing(t *testing.T) {
	a := NewAnimator()
	targets := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 2, 0}}
	a.UpdateTargets(targets)

	frames := []float64{16, 16, 33, 100, 7}
	for _, dt := range frames {
		a.Update(dt)
		nodes := a.Nodes()
		for i := 1; i < len(nodes); i++ {
			want := nodes[i-1].Position.Add(targets[i].Sub(targets[i-1]))
			if got := a.EffectiveTarget(i); !got.ApproxEqualThreshold(want, 1e-12) {
				t.Errorf("Expected effective target %v for node %d, got %v", want, i, got)
			}
		}
		if got := a.EffectiveTarget(0); got != targets[0] {
			t.Errorf("Expected node 0 to track its raw target, got %v", got)
		}
	}
}

// TestAnimatorPolicies verifies both integration policies settle on the same positions.
func TestAnimatorPolicies(t *testing.T) {
	substep := NewAnimator()
	clamp := NewAnimator(WithPolicy(PolicyClamp))
	substep.UpdateTargets(lineTargets())
	clamp.UpdateTargets(lineTargets())

	substep.Update(50)
	clamp.Update(50)
	if substep.Node(0).Position.ApproxEqualThreshold(clamp.Node(0).Position, 1e-9) {
		t.Error("Expected one large step and several small steps to differ after one frame")
	}

	for i := 0; i < 200; i++ {
		substep.Update(50)
		clamp.Update(50)
	}
	a, b := substep.Nodes(), clamp.Nodes()
	for i := range a {
		if !a[i].Position.ApproxEqualThreshold(b[i].Position, 1e-6) {
			t.Errorf("Expected node %d to settle at the same point, got %v and %v", i, a[i].Position, b[i].Position)
		}
	}
}

// TestAnimatorClampPolicy verifies the clamp policy caps the step at the clamp size.
func TestAnimatorClampPolicy(t *testing.T) {
	a := NewAnimator(WithPolicy(PolicyClamp))
	a.UpdateTargets(lineTargets())

	a.Update(1000)
	if got := a.Timer(); math.Abs(got-DefaultClampStep) > 1e-12 {
		t.Errorf("Expected timer %f, got %f", DefaultClampStep, got)
	}
	a.Update(20)
	if got := a.Timer(); math.Abs(got-0.07) > 1e-12 {
		t.Errorf("Expected timer 0.07, got %f", got)
	}
}

// TestAnimatorSubstepCap verifies a huge frame delta integrates at most the substep cap.
func TestAnimatorSubstepCap(t *testing.T) {
	a := NewAnimator(WithMaxSubsteps(10))
	a.UpdateTargets(lineTargets())

	a.Update(60_000)
	want := 10 * DefaultMaxStep
	if got := a.Timer(); math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected timer %f, got %f", want, got)
	}
}

// TestAnimatorStagger verifies later nodes hold still until their start delay has elapsed.
func TestAnimatorStagger(t *testing.T) {
	a := NewAnimator(WithPolicy(PolicyClamp), WithStagger(0.05))
	a.UpdateTargets(lineTargets())
	seeded := a.Nodes()

	a.Update(30)
	nodes := a.Nodes()
	if nodes[0].Position == seeded[0].Position {
		t.Error("Expected node 0 to move immediately")
	}
	for i := 1; i < 3; i++ {
		if nodes[i].Position != seeded[i].Position {
			t.Errorf("Expected node %d to wait, got %v", i, nodes[i].Position)
		}
	}

	a.Update(30)
	nodes = a.Nodes()
	if nodes[1].Position == seeded[1].Position {
		t.Error("Expected node 1 to start after 0.05s")
	}
	if nodes[2].Position != seeded[2].Position {
		t.Error("Expected node 2 to wait until 0.1s")
	}

	a.Update(50)
	if a.Node(2).Position == seeded[2].Position {
		t.Error("Expected node 2 to start after 0.1s")
	}
}

// TestAnimatorInvalidDelta verifies negative and non-finite deltas integrate nothing but still write transforms.
func TestAnimatorInvalidDelta(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
	}{
		{"NaN", math.NaN()},
		{"negative", -16},
		{"infinite", math.Inf(1)},
		{"zero", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAnimator()
			handles := []*recordingHandle{{}, {}, {}}
			a.Bind([]Handle{handles[0], handles[1], handles[2]})
			a.UpdateTargets(lineTargets())
			before := a.Nodes()

			a.Update(tt.delta)

			after := a.Nodes()
			for i := range before {
				if before[i] != after[i] {
					t.Errorf("Expected node %d unchanged, got %v", i, after[i])
				}
				if handles[i].writes != 1 {
					t.Errorf("Expected 1 write to handle %d, got %d", i, handles[i].writes)
				}
				if handles[i].position != after[i].Position {
					t.Errorf("Expected handle %d at %v, got %v", i, after[i].Position, handles[i].position)
				}
			}
			if a.Timer() != 0 {
				t.Errorf("Expected timer 0, got %f", a.Timer())
			}
		})
	}
}

// TestAnimatorWritesOncePerUpdate verifies handles and light are written once per frame regardless of substeps.
func TestAnimatorWritesOncePerUpdate(t *testing.T) {
	a := NewAnimator()
	h := &recordingHandle{rotation: mgl64.Vec3{0, 0, 1}}
	l := &recordingLight{}
	a.Bind([]Handle{h, nil})
	a.BindLight(l)
	a.UpdateTargets(lineTargets())

	a.Update(100)

	if h.writes != 1 {
		t.Errorf("Expected 1 write, got %d", h.writes)
	}
	if h.position != a.Node(0).Position {
		t.Errorf("Expected handle at %v, got %v", a.Node(0).Position, h.position)
	}
	if h.rotation != (mgl64.Vec3{0, 0, 1}) {
		t.Errorf("Expected rotation preserved, got %v", h.rotation)
	}
	if l.writes != 1 {
		t.Errorf("Expected 1 light write, got %d", l.writes)
	}
	want := a.Node(0).Position.Add(mgl64.Vec3{0, 0, DefaultLightOffset})
	if !l.position.ApproxEqual(want) || !a.LightPosition().ApproxEqual(want) {
		t.Errorf("Expected light at %v, got %v", want, l.position)
	}
}

// TestAnimatorShortTargets verifies missing targets stack on the last one when seeding and are kept afterwards.
func TestAnimatorShortTargets(t *testing.T) {
	a := NewAnimator()
	a.UpdateTargets([]mgl64.Vec3{{1, 1, 0}})
	for i, n := range a.Nodes() {
		if n.Target != (mgl64.Vec3{1, 1, 0}) {
			t.Errorf("Expected node %d target (1,1,0), got %v", i, n.Target)
		}
	}

	a.UpdateTargets([]mgl64.Vec3{{2, 2, 0}, {3, 3, 0}, {4, 4, 0}, {9, 9, 9}})
	a.UpdateTargets([]mgl64.Vec3{{0, 0, 0}})
	a.UpdateTargets(nil)
	nodes := a.Nodes()
	if nodes[0].Target != (mgl64.Vec3{0, 0, 0}) {
		t.Errorf("Expected node 0 retargeted, got %v", nodes[0].Target)
	}
	if nodes[2].Target != (mgl64.Vec3{4, 4, 0}) {
		t.Errorf("Expected node 2 to keep its target, got %v", nodes[2].Target)
	}
	if len(nodes) != DefaultChainLength {
		t.Errorf("Expected %d nodes, got %d", DefaultChainLength, len(nodes))
	}
}

// TestAnimatorIsMovingThresholds verifies IsMoving respects both rest thresholds.
func TestAnimatorIsMovingThresholds(t *testing.T) {
	a := NewAnimator(WithChainLength(1), WithDropHeight(0.0005))
	a.UpdateTargets([]mgl64.Vec3{{0, 0, 0}})
	if a.IsMoving() {
		t.Error("Expected a node within 0.001 and at rest to be still")
	}

	b := NewAnimator(WithChainLength(1), WithDropHeight(0.002))
	b.UpdateTargets([]mgl64.Vec3{{0, 0, 0}})
	if !b.IsMoving() {
		t.Error("Expected a node 0.002 away to be moving")
	}
}

// TestAnimatorSetStagger verifies stagger updates and rejects negative values.
func TestAnimatorSetStagger(t *testing.T) {
	a := NewAnimator()
	a.SetStagger(0.1)
	a.SetStagger(-1)
	a.SetStagger(math.NaN())
	if a.Stagger() != 0.1 {
		t.Errorf("Expected stagger 0.1, got %f", a.Stagger())
	}
}

// TestNewAnimatorPanics verifies invalid construction panics.
func TestNewAnimatorPanics(t *testing.T) {
	tests := []struct {
		name    string
		options []AnimatorBuilderOption
	}{
		{"empty chain", []AnimatorBuilderOption{WithChainLength(0)}},
		{"zero step", []AnimatorBuilderOption{WithMaxStep(0)}},
		{"zero cap", []AnimatorBuilderOption{WithMaxSubsteps(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("Expected a panic")
				}
			}()
			NewAnimator(tt.options...)
		})
	}
}

// TestParsePolicy verifies policy names resolve case-insensitively.
func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{"", PolicySubstep, false},
		{"substep", PolicySubstep, false},
		{"CLAMP", PolicyClamp, false},
		{"verlet", PolicySubstep, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Expected error %v for %q, got %v", tt.wantErr, tt.in, err)
		}
		if got != tt.want {
			t.Errorf("Expected %s for %q, got %s", tt.want, tt.in, got)
		}
		if !tt.wantErr && got.String() == "unknown" {
			t.Errorf("Expected a named policy for %q", tt.in)
		}
	}
}
