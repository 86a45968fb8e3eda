// Package animator drives a short chain of spring-damper point masses toward
// discrete, teleporting targets so the markers bound to them move smoothly.
//
// Node 0 springs toward its own target. Every later node springs toward the
// previous node's current position plus the spacing between the two raw
// targets, so the chain keeps its layout while trailing behind its leader.
package animator

import (
	"log"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Handle receives a node's position after every tick.
type Handle interface {
	Rotation() mgl64.Vec3
	SetTransform(position, rotation mgl64.Vec3)
}

// Positioner receives the tracked light position after every tick.
type Positioner interface {
	SetPosition(position mgl64.Vec3)
}

// NodeState is a read-only copy of one node's physical state.
type NodeState struct {
	Position mgl64.Vec3 `json:"position"`
	Target   mgl64.Vec3 `json:"target"`
	Velocity mgl64.Vec3 `json:"velocity"`
}

type chainNode struct {
	current  mgl64.Vec3
	target   mgl64.Vec3
	velocity mgl64.Vec3
	handle   Handle
}

type animator struct {
	mu *sync.Mutex

	nodes       []chainNode
	initialized bool
	timer       float64 // seconds of simulated time since seeding
	light       Positioner

	springK           float64
	dampingK          float64
	stagger           float64
	maxStep           float64
	clampStep         float64
	maxSubsteps       int
	policy            Policy
	dropHeight        float64
	lightOffset       float64
	velocityThreshold float64
	positionThreshold float64
}

// Animator is a fixed-length chain of spring-damper nodes.
//
// Nodes start UNINITIALIZED. The first UpdateTargets seeds every node at its
// target raised by the drop height with zero velocity; from then on targets
// only move the springs' anchors and the physical state keeps evolving.
type Animator interface {
	// Len returns the fixed number of nodes.
	Len() int

	// Initialized reports whether the chain has been seeded.
	Initialized() bool

	// Bind attaches render handles to nodes by index. Extra handles are ignored and
	// nil entries leave the node unbound.
	//
	// Parameters:
	//   - handles: one handle per node
	Bind(handles []Handle)

	// BindLight attaches the tracked light. Nil detaches it.
	//
	// Parameters:
	//   - l: the light to move with node 0
	BindLight(l Positioner)

	// UpdateTargets sets the raw targets. Targets beyond Len are ignored; nodes
	// without a new target keep their previous one. The first call seeds the chain.
	//
	// Parameters:
	//   - targets: raw target positions ordered by node
	UpdateTargets(targets []mgl64.Vec3)

	// Update advances the simulation and writes every node position into its handle.
	// A negative or non-finite delta integrates nothing but still writes positions.
	//
	// Parameters:
	//   - deltaMs: elapsed time in milliseconds
	Update(deltaMs float64)

	// IsMoving reports whether another Update would change anything visible.
	//
	// Returns:
	//   - bool: true if uninitialized or any node is above the velocity or distance threshold
	IsMoving() bool

	// EffectiveTarget returns the position node i currently springs toward.
	//
	// Parameters:
	//   - i: the node index
	//
	// Returns:
	//   - mgl64.Vec3: the effective target
	EffectiveTarget(i int) mgl64.Vec3

	// LightPosition returns node 0's position raised by the light offset.
	LightPosition() mgl64.Vec3

	// Node returns a copy of node i's state.
	Node(i int) NodeState

	// Nodes returns a copy of every node's state.
	Nodes() []NodeState

	// Timer returns the simulated seconds since seeding.
	Timer() float64

	// Policy returns the integration policy.
	Policy() Policy

	// SetStagger sets the per-node start delay in seconds. Negative values are ignored.
	//
	// Parameters:
	//   - seconds: delay between consecutive nodes
	SetStagger(seconds float64)

	// Stagger returns the per-node start delay in seconds.
	Stagger() float64
}

var _ Animator = &animator{}

// NewAnimator creates an uninitialized three-node chain using the default constants.
//
// Parameters:
//   - options: functional options to configure the chain
//
// Returns:
//   - Animator: the new chain
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{
		mu:                &sync.Mutex{},
		nodes:             make([]chainNode, DefaultChainLength),
		springK:           DefaultSpringK,
		dampingK:          DefaultDampingK,
		stagger:           DefaultStagger,
		maxStep:           DefaultMaxStep,
		clampStep:         DefaultClampStep,
		maxSubsteps:       DefaultMaxSubsteps,
		policy:            PolicySubstep,
		dropHeight:        DefaultDropHeight,
		lightOffset:       DefaultLightOffset,
		velocityThreshold: DefaultVelocityThreshold,
		positionThreshold: DefaultPositionThreshold,
	}
	for _, opt := range options {
		opt(a)
	}
	if len(a.nodes) < 1 {
		panic("animator: chain length must be at least 1")
	}
	if a.maxStep <= 0 || a.clampStep <= 0 || a.maxSubsteps < 1 {
		panic("animator: step sizes and substep cap must be positive")
	}
	return a
}

func (a *animator) Len() int {
	return len(a.nodes)
}

func (a *animator) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

func (a *animator) Bind(handles []Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.nodes {
		if i < len(handles) {
			a.nodes[i].handle = handles[i]
		} else {
			a.nodes[i].handle = nil
		}
	}
}

func (a *animator) BindLight(l Positioner) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.light = l
}

func (a *animator) UpdateTargets(targets []mgl64.Vec3) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(targets) == 0 {
		return
	}
	for i := range a.nodes {
		switch {
		case i < len(targets):
			a.nodes[i].target = targets[i]
		case !a.initialized:
			// A short first snapshot stacks the missing nodes on the last target given.
			a.nodes[i].target = targets[len(targets)-1]
		}
	}

	if a.initialized {
		return
	}
	drop := mgl64.Vec3{0, 0, a.dropHeight}
	for i := range a.nodes {
		a.nodes[i].current = a.nodes[i].target.Add(drop)
		a.nodes[i].velocity = mgl64.Vec3{}
	}
	a.initialized = true
	a.timer = 0
	log.Printf("[Animator] Seeded %d nodes %.3f above their targets", len(a.nodes), a.dropHeight)
}

func (a *animator) Update(deltaMs float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return
	}

	elapsed := deltaMs / 1000
	if math.IsNaN(elapsed) || math.IsInf(elapsed, 0) || elapsed < 0 {
		log.Printf("[Animator] Ignoring invalid frame delta %v ms", deltaMs)
		elapsed = 0
	}

	steps, dt := a.plan(elapsed)
	for step := 0; step < steps; step++ {
		a.timer += dt
		for i := range a.nodes {
			if a.timer < float64(i)*a.stagger {
				continue
			}
			a.integrate(i, dt)
		}
	}

	a.writeTransforms()
}

// plan splits elapsed seconds into substeps according to the policy. Caller holds mu.
func (a *animator) plan(elapsed float64) (int, float64) {
	if elapsed <= 0 {
		return 0, 0
	}
	switch a.policy {
	case PolicyClamp:
		return 1, math.Min(elapsed, a.clampStep)
	default:
		if limit := float64(a.maxSubsteps) * a.maxStep; elapsed > limit {
			elapsed = limit
		}
		steps := int(math.Ceil(elapsed / a.maxStep))
		if steps < 1 {
			steps = 1
		}
		return steps, elapsed / float64(steps)
	}
}

// integrate advances node i by dt with semi-implicit Euler. Caller holds mu.
func (a *animator) integrate(i int, dt float64) {
	n := &a.nodes[i]
	target := a.effectiveTarget(i)
	spring := target.Sub(n.current).Mul(a.springK)
	damping := n.velocity.Mul(-a.dampingK)
	n.velocity = n.velocity.Add(spring.Add(damping).Mul(dt))
	n.current = n.current.Add(n.velocity.Mul(dt))
}

// effectiveTarget is recomputed from live state every call. Caller holds mu.
func (a *animator) effectiveTarget(i int) mgl64.Vec3 {
	if i == 0 {
		return a.nodes[0].target
	}
	offset := a.nodes[i].target.Sub(a.nodes[i-1].target)
	return a.nodes[i-1].current.Add(offset)
}

// writeTransforms pushes node positions into handles and moves the tracked light. Caller holds mu.
func (a *animator) writeTransforms() {
	for i := range a.nodes {
		n := &a.nodes[i]
		if n.handle != nil {
			n.handle.SetTransform(n.current, n.handle.Rotation())
		}
	}
	if a.light != nil {
		a.light.SetPosition(a.lightPosition())
	}
}

func (a *animator) lightPosition() mgl64.Vec3 {
	return a.nodes[0].current.Add(mgl64.Vec3{0, 0, a.lightOffset})
}

func (a *animator) IsMoving() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.initialized {
		return true
	}
	for i := range a.nodes {
		n := &a.nodes[i]
		if n.velocity.Len() > a.velocityThreshold {
			return true
		}
		if n.current.Sub(n.target).Len() > a.positionThreshold {
			return true
		}
	}
	return false
}

func (a *animator) EffectiveTarget(i int) mgl64.Vec3 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.effectiveTarget(i)
}

func (a *animator) LightPosition() mgl64.Vec3 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lightPosition()
}

func (a *animator) Node(i int) NodeState {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := a.nodes[i]
	return NodeState{Position: n.current, Target: n.target, Velocity: n.velocity}
}

func (a *animator) Nodes() []NodeState {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]NodeState, len(a.nodes))
	for i, n := range a.nodes {
		out[i] = NodeState{Position: n.current, Target: n.target, Velocity: n.velocity}
	}
	return out
}

func (a *animator) Timer() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer
}

func (a *animator) Policy() Policy {
	return a.policy
}

func (a *animator) SetStagger(seconds float64) {
	if seconds < 0 || math.IsNaN(seconds) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stagger = seconds
}

func (a *animator) Stagger() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stagger
}
