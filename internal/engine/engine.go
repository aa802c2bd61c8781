// Package engine is the narrow surface through which the lifecycle layer
// drives the simulation engine. The engine owns integration, collision and
// constraint solving; this layer only creates, mutates and retracts objects.
//
// Engine objects are not safe for concurrent mutation. Callers serialize
// access per object and never mutate objects while World.Step runs.
package engine

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyMode is the simulation status of a rigid body.
type BodyMode int

const (
	// Disabled bodies are ignored by the simulation.
	BodyDisabled BodyMode = iota
	// Static bodies never move.
	BodyStatic
	// Dynamic bodies move and respond to forces and constraints.
	BodyDynamic
	// Kinematic bodies move by their velocity only and ignore forces.
	BodyKinematic
)

func (m BodyMode) String() string {
	switch m {
	case BodyDisabled:
		return "disabled"
	case BodyStatic:
		return "static"
	case BodyDynamic:
		return "dynamic"
	case BodyKinematic:
		return "kinematic"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseBodyMode maps a config/scene name to a BodyMode.
func ParseBodyMode(s string) (BodyMode, error) {
	switch s {
	case "disabled":
		return BodyDisabled, nil
	case "static":
		return BodyStatic, nil
	case "dynamic", "":
		return BodyDynamic, nil
	case "kinematic":
		return BodyKinematic, nil
	}
	return 0, fmt.Errorf("unknown body mode %q", s)
}

type RigidBodyDesc struct {
	Mode BodyMode
	Mass float64
}

// ForceMode selects whether an applied vector is a force (integrated over the
// step) or an impulse (applied to velocity immediately).
type ForceMode int

const (
	ForceContinuous ForceMode = iota
	ForceImpulse
)

type Material struct {
	Friction   float64
	Bounciness float64
}

type ColliderDesc struct {
	Geometry Geometry
	// Density 0 makes the collider collision-only with no mass contribution.
	Density  float64
	Material Material
	// Sensor colliders report overlaps and generate no contact response.
	Sensor   bool
	UserData any
}

// ConstraintKind selects the engine constraint built for a joint.
type ConstraintKind int

const (
	ConstraintFixed ConstraintKind = iota
	ConstraintBall
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintFixed:
		return "fixed"
	case ConstraintBall:
		return "ball"
	}
	return fmt.Sprintf("constraint(%d)", int(k))
}

// ConstraintDesc describes a two-body constraint. Anchors are expressed in
// each body's local frame. Part is the body part index; rigid bodies only
// have part 0.
type ConstraintDesc struct {
	Kind    ConstraintKind
	Body0   RigidBody
	Part0   int
	Anchor0 Isometry
	Body1   RigidBody
	Part1   int
	Anchor1 Isometry
}

// ContactEvent is raised when two colliders start or stop overlapping and at
// least one of them is a sensor.
type ContactEvent struct {
	Collider1 Collider
	Collider2 Collider
	Started   bool
}

type World interface {
	CreateRigidBody(desc RigidBodyDesc) RigidBody
	RemoveRigidBody(body RigidBody)

	// NewGeometry builds engine geometry from a shape descriptor.
	NewGeometry(desc ShapeDesc) (Geometry, error)

	AddCollider(body RigidBody, desc ColliderDesc) Collider
	RemoveCollider(c Collider)

	AddConstraint(desc ConstraintDesc) Constraint
	RemoveConstraint(c Constraint)

	// Step advances the simulation by dt seconds and returns the overlap
	// transitions observed during the step.
	Step(dt float64) []ContactEvent
}

type RigidBody interface {
	Position() Isometry
	SetPosition(iso Isometry)

	Mode() BodyMode
	SetMode(mode BodyMode)
	Mass() float64

	LinearVelocity() mgl64.Vec3
	SetLinearVelocity(v mgl64.Vec3)
	AngularVelocity() mgl64.Vec3
	SetAngularVelocity(w mgl64.Vec3)
	// VelocityAt returns the linear velocity of a point given in world space.
	VelocityAt(point mgl64.Vec3) mgl64.Vec3

	ApplyForce(force mgl64.Vec3, mode ForceMode, wake bool)
	ApplyTorque(torque mgl64.Vec3, mode ForceMode, wake bool)
	// ApplyForceAtPoint applies force at a point in world space.
	ApplyForceAtPoint(force, point mgl64.Vec3, mode ForceMode, wake bool)
	// ApplyForceAtLocalPoint applies force at a point in the body's frame.
	ApplyForceAtLocalPoint(force, point mgl64.Vec3, mode ForceMode, wake bool)
	ClearForces()

	Activate()
	IsActive() bool
}

type Geometry interface {
	Desc() ShapeDesc
	// IsConcave reports geometry that cannot carry mass (meshes).
	IsConcave() bool
	// BoundingRadius is the radius of a sphere enclosing the geometry around
	// its origin. Infinite for planes.
	BoundingRadius() float64
}

type Collider interface {
	Body() RigidBody
	Desc() ColliderDesc
	UserData() any
	SetUserData(data any)
	SetMaterial(m Material)
}

type Constraint interface {
	Desc() ConstraintDesc
}
