// Package euler is a small reference implementation of engine.World. It
// integrates rigid bodies with semi-implicit Euler, projects constraints
// positionally and detects sensor overlaps with bounding spheres. It does not
// resolve contacts between solid colliders.
package euler

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/phys/internal/engine"
)

type Options struct {
	Gravity mgl64.Vec3
	// Bodies slower than SleepThreshold for SleepTime seconds stop simulating
	// until woken. SleepTime 0 disables sleeping.
	SleepThreshold float64
	SleepTime      float64
	// CellSize is the edge of the broadphase cells used for sensor overlaps.
	CellSize float64
}

const DefaultCellSize = 4.0

func DefaultOptions() Options {
	return Options{
		Gravity:        mgl64.Vec3{0, -9.81, 0},
		SleepThreshold: 0.05,
		SleepTime:      1.0,
		CellSize:       DefaultCellSize,
	}
}

type geometry struct {
	desc   engine.ShapeDesc
	radius float64
}

func (g *geometry) Desc() engine.ShapeDesc  { return g.desc }
func (g *geometry) IsConcave() bool         { return g.desc.Kind == engine.ShapeTriMesh }
func (g *geometry) BoundingRadius() float64 { return g.radius }

type collider struct {
	id   uint64
	body *body
	desc engine.ColliderDesc
}

func (c *collider) Body() engine.RigidBody        { return c.body }
func (c *collider) Desc() engine.ColliderDesc     { return c.desc }
func (c *collider) UserData() any                 { return c.desc.UserData }
func (c *collider) SetUserData(data any)          { c.desc.UserData = data }
func (c *collider) SetMaterial(m engine.Material) { c.desc.Material = m }

type constraint struct {
	desc engine.ConstraintDesc
	b0   *body
	b1   *body
}

func (c *constraint) Desc() engine.ConstraintDesc { return c.desc }

type pair struct{ a, b uint64 }

// World implements engine.World. Structural changes are guarded by a mutex so
// that bodies, colliders and constraints can be created from several
// goroutines; per-body mutation is serialized by the caller.
type World struct {
	mu          sync.Mutex
	opts        Options
	bodies      []*body
	colliders   []*collider
	constraints []*constraint
	overlaps    map[pair]struct{}
	grid        *cellGrid
	nextID      uint64
}

var _ engine.World = (*World)(nil)

func New(opts Options) *World {
	return &World{
		opts:     opts,
		overlaps: make(map[pair]struct{}),
		grid:     newCellGrid(opts.CellSize),
	}
}

func mustBody(rb engine.RigidBody) *body {
	b, ok := rb.(*body)
	if !ok {
		panic(fmt.Sprintf("euler: foreign rigid body %T", rb))
	}
	return b
}

func (w *World) CreateRigidBody(desc engine.RigidBodyDesc) engine.RigidBody {
	b := newBody(desc)
	w.mu.Lock()
	w.bodies = append(w.bodies, b)
	w.mu.Unlock()
	return b
}

func (w *World) RemoveRigidBody(rb engine.RigidBody) {
	b := mustBody(rb)
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, x := range w.bodies {
		if x == b {
			w.bodies = append(w.bodies[:i], w.bodies[i+1:]...)
			break
		}
	}
}

func (w *World) NewGeometry(desc engine.ShapeDesc) (engine.Geometry, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	g := &geometry{desc: desc}
	switch desc.Kind {
	case engine.ShapeSphere:
		g.radius = desc.Radius
	case engine.ShapeCube:
		g.radius = desc.HalfExtents.Len()
	case engine.ShapePlane:
		g.radius = math.Inf(1)
	case engine.ShapeCapsule:
		g.radius = desc.HalfHeight + desc.Radius
	case engine.ShapeTriMesh:
		for _, v := range desc.Vertices {
			g.radius = math.Max(g.radius, v.Len())
		}
	}
	return g, nil
}

func (w *World) AddCollider(rb engine.RigidBody, desc engine.ColliderDesc) engine.Collider {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	c := &collider{id: w.nextID, body: mustBody(rb), desc: desc}
	w.colliders = append(w.colliders, c)
	return c
}

func (w *World) RemoveCollider(ec engine.Collider) {
	c, ok := ec.(*collider)
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, x := range w.colliders {
		if x == c {
			w.colliders = append(w.colliders[:i], w.colliders[i+1:]...)
			break
		}
	}
	for p := range w.overlaps {
		if p.a == c.id || p.b == c.id {
			delete(w.overlaps, p)
		}
	}
}

func (w *World) AddConstraint(desc engine.ConstraintDesc) engine.Constraint {
	c := &constraint{desc: desc, b0: mustBody(desc.Body0), b1: mustBody(desc.Body1)}
	w.mu.Lock()
	w.constraints = append(w.constraints, c)
	w.mu.Unlock()
	return c
}

func (w *World) RemoveConstraint(ec engine.Constraint) {
	c, ok := ec.(*constraint)
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, x := range w.constraints {
		if x == c {
			w.constraints = append(w.constraints[:i], w.constraints[i+1:]...)
			return
		}
	}
}

// Len returns the number of bodies, colliders and constraints in the world.
func (w *World) Len() (bodies, colliders, constraints int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.bodies), len(w.colliders), len(w.constraints)
}

func (w *World) Step(dt float64) []engine.ContactEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, b := range w.bodies {
		b.integrate(dt, w.opts.Gravity)
	}
	for _, c := range w.constraints {
		c.project()
	}
	for _, b := range w.bodies {
		b.settle(dt, w.opts.SleepThreshold, w.opts.SleepTime)
	}
	return w.detectOverlaps()
}

// project moves the follower body so both anchors coincide again. The first
// dynamic body of the pair follows the other one.
func (c *constraint) project() {
	lead, follow := c.b0, c.b1
	leadAnchor, followAnchor := c.desc.Anchor0, c.desc.Anchor1
	if follow.mode != engine.BodyDynamic {
		lead, follow = follow, lead
		leadAnchor, followAnchor = followAnchor, leadAnchor
	}
	if follow.mode != engine.BodyDynamic {
		return
	}

	frame := lead.pos.Mul(leadAnchor)
	switch c.desc.Kind {
	case engine.ConstraintFixed:
		follow.pos = frame.Mul(followAnchor.Inverse())
		follow.linVel = lead.linVel
		follow.angVel = lead.angVel
	case engine.ConstraintBall:
		offset := follow.pos.Rotation.Rotate(followAnchor.Translation)
		follow.pos.Translation = frame.Translation.Sub(offset)
		follow.linVel = lead.VelocityAt(frame.Translation)
	}
}

// detectOverlaps reports sensor overlaps that started or stopped since the
// previous step. A pair is keyed by collider id, lower id first.
func (w *World) detectOverlaps() []engine.ContactEvent {
	g := w.grid
	g.reset()
	byID := make(map[uint64]*collider, len(w.colliders))
	for _, c := range w.colliders {
		byID[c.id] = c
		if c.desc.Sensor && c.desc.Geometry != nil {
			g.add(c)
		}
	}

	current := make(map[pair]struct{}, len(w.overlaps))
	for _, a := range w.colliders {
		if a.desc.Geometry == nil {
			continue
		}
		for _, b := range g.nearby(a) {
			// Two sensors find each other; count the pair once.
			if a.id == b.id || (a.desc.Sensor && b.id < a.id) {
				continue
			}
			if a.body == b.body || !overlapping(a, b) {
				continue
			}
			current[pairOf(a.id, b.id)] = struct{}{}
		}
	}

	var events []engine.ContactEvent
	for _, p := range sortedPairs(current) {
		if _, ok := w.overlaps[p]; !ok {
			events = append(events, engine.ContactEvent{Collider1: byID[p.a], Collider2: byID[p.b], Started: true})
		}
	}
	for _, p := range sortedPairs(w.overlaps) {
		if _, ok := current[p]; ok {
			continue
		}
		a, b := byID[p.a], byID[p.b]
		if a == nil || b == nil {
			continue
		}
		events = append(events, engine.ContactEvent{Collider1: a, Collider2: b, Started: false})
	}
	w.overlaps = current
	return events
}

func pairOf(a, b uint64) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a, b}
}

func sortedPairs(set map[pair]struct{}) []pair {
	out := make([]pair, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].a != out[j].a {
			return out[i].a < out[j].a
		}
		return out[i].b < out[j].b
	})
	return out
}

func overlapping(a, b *collider) bool {
	if a.body.mode == engine.BodyDisabled || b.body.mode == engine.BodyDisabled {
		return false
	}
	ga, gb := a.desc.Geometry, b.desc.Geometry
	if ga == nil || gb == nil {
		return false
	}
	pa, pb := a.body.pos.Translation, b.body.pos.Translation
	aPlane := ga.Desc().Kind == engine.ShapePlane
	bPlane := gb.Desc().Kind == engine.ShapePlane
	switch {
	case aPlane && bPlane:
		return false
	case aPlane:
		return pb.Y()-gb.BoundingRadius() <= pa.Y()
	case bPlane:
		return pa.Y()-ga.BoundingRadius() <= pb.Y()
	}
	return pa.Sub(pb).Len() <= ga.BoundingRadius()+gb.BoundingRadius()
}
