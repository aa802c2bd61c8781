package euler

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/phys/internal/engine"
)

func noGravity() Options {
	return Options{SleepThreshold: 0.01, SleepTime: 0.5}
}

func TestWorld_DynamicFalls(t *testing.T) {
	w := New(DefaultOptions())
	b := w.CreateRigidBody(engine.RigidBodyDesc{Mode: engine.BodyDynamic, Mass: 1})
	s := w.CreateRigidBody(engine.RigidBodyDesc{Mode: engine.BodyStatic, Mass: 1})

	for i := 0; i < 10; i++ {
		w.Step(0.1)
	}
	if y := b.Position().Translation.Y(); y >= 0 {
		t.Fatalf("dynamic body did not fall: y = %g", y)
	}
	if !s.Position().ApproxEqual(engine.Identity(), 1e-12) {
		t.Fatalf("static body moved: %+v", s.Position())
	}
}

func TestWorld_ImpulseAndForce(t *testing.T) {
	w := New(noGravity())
	b := w.CreateRigidBody(engine.RigidBodyDesc{Mode: engine.BodyDynamic, Mass: 2})

	b.ApplyForce(mgl64.Vec3{4, 0, 0}, engine.ForceImpulse, true)
	if v := b.LinearVelocity(); !engine.Near(v, mgl64.Vec3{2, 0, 0}, 1e-12) {
		t.Fatalf("velocity after impulse = %v, want [2 0 0]", v)
	}

	b.ApplyForce(mgl64.Vec3{0, 2, 0}, engine.ForceContinuous, true)
	w.Step(1)
	if v := b.LinearVelocity(); !engine.Near(v, mgl64.Vec3{2, 1, 0}, 1e-12) {
		t.Fatalf("velocity after force = %v, want [2 1 0]", v)
	}
	w.Step(1)
	if v := b.LinearVelocity(); !engine.Near(v, mgl64.Vec3{2, 1, 0}, 1e-12) {
		t.Fatalf("forces must be cleared after a step, velocity = %v", v)
	}
}

func TestWorld_KinematicIgnoresForces(t *testing.T) {
	w := New(DefaultOptions())
	b := w.CreateRigidBody(engine.RigidBodyDesc{Mode: engine.BodyKinematic, Mass: 1})
	b.ApplyForce(mgl64.Vec3{10, 0, 0}, engine.ForceImpulse, true)
	b.SetLinearVelocity(mgl64.Vec3{1, 0, 0})

	w.Step(1)
	if p := b.Position().Translation; !engine.Near(p, mgl64.Vec3{1, 0, 0}, 1e-12) {
		t.Fatalf("kinematic position = %v, want [1 0 0]", p)
	}
}

func TestWorld_SleepAndWake(t *testing.T) {
	w := New(noGravity())
	b := w.CreateRigidBody(engine.RigidBodyDesc{Mode: engine.BodyDynamic, Mass: 1})

	for i := 0; i < 10; i++ {
		w.Step(0.1)
	}
	if b.IsActive() {
		t.Fatal("resting body should fall asleep")
	}
	b.Activate()
	if !b.IsActive() {
		t.Fatal("Activate must wake the body")
	}
}

func TestWorld_FixedConstraintFollows(t *testing.T) {
	w := New(noGravity())
	lead := w.CreateRigidBody(engine.RigidBodyDesc{Mode: engine.BodyKinematic, Mass: 1})
	follow := w.CreateRigidBody(engine.RigidBodyDesc{Mode: engine.BodyDynamic, Mass: 1})
	follow.SetPosition(engine.Translation(2, 0, 0))

	joint := engine.Translation(1, 0, 0)
	w.AddConstraint(engine.ConstraintDesc{
		Kind:    engine.ConstraintFixed,
		Body0:   lead,
		Anchor0: lead.Position().Inverse().Mul(joint),
		Body1:   follow,
		Anchor1: follow.Position().Inverse().Mul(joint),
	})

	lead.SetLinearVelocity(mgl64.Vec3{0, 1, 0})
	w.Step(1)

	want := mgl64.Vec3{2, 1, 0}
	if p := follow.Position().Translation; !engine.Near(p, want, 1e-9) {
		t.Fatalf("follower at %v, want %v", p, want)
	}
}

func TestWorld_SensorOverlapEvents(t *testing.T) {
	w := New(noGravity())
	sphere, err := w.NewGeometry(engine.Sphere(1))
	if err != nil {
		t.Fatal(err)
	}

	area := w.CreateRigidBody(engine.RigidBodyDesc{Mode: engine.BodyStatic})
	w.AddCollider(area, engine.ColliderDesc{Geometry: sphere, Sensor: true, UserData: "area"})

	ball := w.CreateRigidBody(engine.RigidBodyDesc{Mode: engine.BodyKinematic, Mass: 1})
	ball.SetPosition(engine.Translation(5, 0, 0))
	w.AddCollider(ball, engine.ColliderDesc{Geometry: sphere, Density: 1, UserData: "ball"})

	if ev := w.Step(0.1); len(ev) != 0 {
		t.Fatalf("unexpected events %v", ev)
	}

	ball.SetPosition(engine.Translation(1.5, 0, 0))
	ev := w.Step(0.1)
	if len(ev) != 1 || !ev[0].Started {
		t.Fatalf("want one started event, got %+v", ev)
	}
	if ev[0].Collider1.UserData() != "area" || ev[0].Collider2.UserData() != "ball" {
		t.Fatalf("user data not carried: %v / %v", ev[0].Collider1.UserData(), ev[0].Collider2.UserData())
	}

	if ev := w.Step(0.1); len(ev) != 0 {
		t.Fatalf("overlap must be reported once, got %+v", ev)
	}

	ball.SetPosition(engine.Translation(5, 0, 0))
	ev = w.Step(0.1)
	if len(ev) != 1 || ev[0].Started {
		t.Fatalf("want one stopped event, got %+v", ev)
	}
}

func TestWorld_GeometryRadius(t *testing.T) {
	w := New(DefaultOptions())
	plane, _ := w.NewGeometry(engine.Plane())
	if !math.IsInf(plane.BoundingRadius(), 1) {
		t.Fatalf("plane radius = %g, want +Inf", plane.BoundingRadius())
	}
	mesh, err := w.NewGeometry(engine.TriMesh(
		[]mgl64.Vec3{{0, 0, 0}, {3, 0, 0}, {0, 4, 0}},
		[][3]int{{0, 1, 2}},
	))
	if err != nil {
		t.Fatal(err)
	}
	if !mesh.IsConcave() || mesh.BoundingRadius() != 4 {
		t.Fatalf("mesh concave=%v radius=%g", mesh.IsConcave(), mesh.BoundingRadius())
	}
	if _, err := w.NewGeometry(engine.Sphere(-1)); err == nil {
		t.Fatal("expected error for negative radius")
	}
}

func TestWorld_RemoveObjects(t *testing.T) {
	w := New(DefaultOptions())
	g, _ := w.NewGeometry(engine.Sphere(1))
	a := w.CreateRigidBody(engine.RigidBodyDesc{Mode: engine.BodyDynamic, Mass: 1})
	b := w.CreateRigidBody(engine.RigidBodyDesc{Mode: engine.BodyDynamic, Mass: 1})
	c := w.AddCollider(a, engine.ColliderDesc{Geometry: g})
	k := w.AddConstraint(engine.ConstraintDesc{Body0: a, Body1: b, Anchor0: engine.Identity(), Anchor1: engine.Identity()})

	w.RemoveConstraint(k)
	w.RemoveCollider(c)
	w.RemoveRigidBody(a)
	bodies, colliders, constraints := w.Len()
	if bodies != 1 || colliders != 0 || constraints != 0 {
		t.Fatalf("Len = %d/%d/%d, want 1/0/0", bodies, colliders, constraints)
	}
}
