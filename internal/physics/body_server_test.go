package physics

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/phys/internal/engine"
	"github.com/l1jgo/phys/internal/objects"
	"golang.org/x/sync/errgroup"
)

func TestBody_SphereShapeRoundTrip(t *testing.T) {
	s, _, _ := newTestServers(t)

	shape, err := s.Shapes.CreateShape(engine.Sphere(1))
	if err != nil {
		t.Fatal(err)
	}
	body := s.Bodies.CreateBody(dynamicBody())

	if err := s.Bodies.SetShape(body.Get(), shape.Get()); err != nil {
		t.Fatal(err)
	}
	got, ok := s.Bodies.Shape(body.Get())
	if !ok || got != shape.Get() {
		t.Fatalf("Shape = %v, %v; want %v", got, ok, shape.Get())
	}
	if !s.Shapes.HasDependency(shape.Get()) {
		t.Fatal("shape should have a dependency")
	}

	if err := s.Bodies.SetShape(body.Get(), objects.ShapeTag{}); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Bodies.Shape(body.Get()); ok {
		t.Fatal("body still has a shape")
	}
	if s.Shapes.HasDependency(shape.Get()) {
		t.Fatal("shape still has a dependency")
	}
	if _, _, colliders, _ := s.World.Counts(); colliders != 0 {
		t.Fatalf("colliders = %d, want 0", colliders)
	}
}

func TestBody_SetSameShapeIsNoop(t *testing.T) {
	s, w, _ := newTestServers(t)
	shape, _ := s.Shapes.CreateShape(engine.Sphere(1))
	body := s.Bodies.CreateBody(dynamicBody())

	if err := s.Bodies.SetShape(body.Get(), shape.Get()); err != nil {
		t.Fatal(err)
	}
	if err := s.Bodies.SetShape(body.Get(), shape.Get()); err != nil {
		t.Fatal(err)
	}
	if n := w.added.Load(); n != 1 {
		t.Fatalf("collider installs = %d, want 1", n)
	}
}

func TestBody_SetUnknownShape(t *testing.T) {
	s, _, _ := newTestServers(t)
	body := s.Bodies.CreateBody(dynamicBody())

	err := s.Bodies.SetShape(body.Get(), objects.NewShapeTag(42))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, ok := s.Bodies.Shape(body.Get()); ok {
		t.Fatal("failed SetShape left a shape behind")
	}
}

func TestBody_DensityPolicy(t *testing.T) {
	s, _, _ := newTestServers(t)

	sphere, _ := s.Shapes.CreateShape(engine.Sphere(1))
	mesh, err := s.Shapes.CreateShape(engine.TriMesh(
		[]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 0, 1}},
		[][3]int{{0, 1, 2}},
	))
	if err != nil {
		t.Fatal(err)
	}

	solid := s.Bodies.CreateBody(dynamicBody())
	concave := s.Bodies.CreateBody(dynamicBody())
	area := s.Areas.CreateArea(engine.Identity())
	_ = s.Bodies.SetShape(solid.Get(), sphere.Get())
	_ = s.Bodies.SetShape(concave.Get(), mesh.Get())
	_ = s.Areas.SetShape(area.Get(), sphere.Get())

	if d := colliderDesc(t, s, solid.Get().Key()); d.Density != 1 || d.Sensor {
		t.Fatalf("solid collider = %+v, want density 1, not a sensor", d)
	}
	if d := colliderDesc(t, s, concave.Get().Key()); d.Density != 0 {
		t.Fatalf("concave collider density = %g, want 0", d.Density)
	}
	if d := colliderDesc(t, s, area.Get().Key()); d.Density != 0 || !d.Sensor {
		t.Fatalf("area collider = %+v, want density 0 sensor", d)
	}
}

func TestBody_EntityRewritesUserData(t *testing.T) {
	s, _, _ := newTestServers(t)
	shape, _ := s.Shapes.CreateShape(engine.Sphere(1))
	body := s.Bodies.CreateBody(dynamicBody())
	_ = s.Bodies.SetShape(body.Get(), shape.Get())

	if err := s.Bodies.SetEntity(body.Get(), 77); err != nil {
		t.Fatal(err)
	}
	if e, err := s.Bodies.Entity(body.Get()); err != nil || e != 77 {
		t.Fatalf("Entity = %d, %v; want 77", e, err)
	}

	ud, ok := colliderDesc(t, s, body.Get().Key()).UserData.(objects.UserData)
	if !ok {
		t.Fatal("collider user data is not objects.UserData")
	}
	tag, ok := ud.RigidBody()
	if !ok || tag != body.Get() || ud.Entity != 77 {
		t.Fatalf("user data = %+v, want body %v entity 77", ud, body.Get())
	}
}

func TestBody_ForcesAndVelocities(t *testing.T) {
	s, _, _ := newTestServers(t)
	body := s.Bodies.CreateBody(BodyDesc{Mode: engine.BodyDynamic, Mass: 2})
	tag := body.Get()

	if err := s.Bodies.ApplyImpulse(tag, mgl64.Vec3{4, 0, 0}); err != nil {
		t.Fatal(err)
	}
	v, err := s.Bodies.LinearVelocity(tag)
	if err != nil || !engine.Near(v, mgl64.Vec3{2, 0, 0}, 1e-12) {
		t.Fatalf("LinearVelocity = %v, %v; want [2 0 0]", v, err)
	}

	if err := s.Bodies.SetLinearVelocity(tag, mgl64.Vec3{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Bodies.SetAngularVelocity(tag, mgl64.Vec3{0, 1, 0}); err != nil {
		t.Fatal(err)
	}
	// A point one unit along +x spinning around +y moves along -z.
	pv, err := s.Bodies.LinearVelocityAtPosition(tag, mgl64.Vec3{1, 0, 0})
	if err != nil || !engine.Near(pv, mgl64.Vec3{0, 0, -1}, 1e-12) {
		t.Fatalf("LinearVelocityAtPosition = %v, %v; want [0 0 -1]", pv, err)
	}

	if err := s.Bodies.ApplyForce(tag, mgl64.Vec3{0, 10, 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.Bodies.ClearForces(tag); err != nil {
		t.Fatal(err)
	}
	if err := s.Bodies.SetAngularVelocity(tag, mgl64.Vec3{}); err != nil {
		t.Fatal(err)
	}
	s.World.Step(0.1)
	if v, _ := s.Bodies.LinearVelocity(tag); v.Len() != 0 {
		t.Fatalf("cleared force still applied: velocity %v", v)
	}
}

func TestBody_MaterialFollowsCollider(t *testing.T) {
	s, _, _ := newTestServers(t)
	shape, _ := s.Shapes.CreateShape(engine.Cube(1, 1, 1))
	body := s.Bodies.CreateBody(dynamicBody())
	_ = s.Bodies.SetShape(body.Get(), shape.Get())

	if err := s.Bodies.SetFriction(body.Get(), 0.9); err != nil {
		t.Fatal(err)
	}
	if err := s.Bodies.SetBounciness(body.Get(), 0.3); err != nil {
		t.Fatal(err)
	}
	if f, _ := s.Bodies.Friction(body.Get()); f != 0.9 {
		t.Fatalf("Friction = %g, want 0.9", f)
	}
	if b, _ := s.Bodies.Bounciness(body.Get()); b != 0.3 {
		t.Fatalf("Bounciness = %g, want 0.3", b)
	}
	want := engine.Material{Friction: 0.9, Bounciness: 0.3}
	if m := colliderDesc(t, s, body.Get().Key()).Material; m != want {
		t.Fatalf("collider material = %+v, want %+v", m, want)
	}
}

func TestBody_ModeAndTransform(t *testing.T) {
	s, _, _ := newTestServers(t)
	body := s.Bodies.CreateBody(dynamicBody())

	if err := s.Bodies.SetMode(body.Get(), engine.BodyKinematic); err != nil {
		t.Fatal(err)
	}
	if m, _ := s.Bodies.Mode(body.Get()); m != engine.BodyKinematic {
		t.Fatalf("Mode = %v, want kinematic", m)
	}

	want := engine.Translation(1, 2, 3)
	if err := s.Bodies.SetTransform(body.Get(), want); err != nil {
		t.Fatal(err)
	}
	got, err := s.Bodies.Transform(body.Get())
	if err != nil || !got.ApproxEqual(want, 1e-12) {
		t.Fatalf("Transform = %+v, %v; want %+v", got, err, want)
	}
}

func TestBody_AreaIsIncompatibleWithRigidOps(t *testing.T) {
	s, _, _ := newTestServers(t)
	area := s.Areas.CreateArea(engine.Identity())
	forged := objects.NewRigidBodyTag(area.Get().Key())

	if err := s.Bodies.ApplyImpulse(forged, mgl64.Vec3{1, 0, 0}); !errors.Is(err, ErrIncompatibleVariant) {
		t.Fatalf("ApplyImpulse on area = %v, want ErrIncompatibleVariant", err)
	}
	if _, err := s.Bodies.LinearVelocity(forged); !errors.Is(err, ErrIncompatibleVariant) {
		t.Fatalf("LinearVelocity on area = %v, want ErrIncompatibleVariant", err)
	}
	if err := s.Bodies.SetEntity(forged, 1); !errors.Is(err, ErrIncompatibleVariant) {
		t.Fatalf("SetEntity on area = %v, want ErrIncompatibleVariant", err)
	}

	body := s.Bodies.CreateBody(dynamicBody())
	if _, err := s.Areas.OverlapEvents(objects.NewAreaTag(body.Get().Key())); !errors.Is(err, ErrIncompatibleVariant) {
		t.Fatalf("OverlapEvents on body = %v, want ErrIncompatibleVariant", err)
	}
}

func TestBody_StaleTag(t *testing.T) {
	s, _, _ := newTestServers(t)
	body := s.Bodies.CreateBody(dynamicBody())
	tag := body.Get()
	body.Release()
	collect(t, s)

	if _, err := s.Bodies.Transform(tag); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Transform on dropped body = %v, want ErrNotFound", err)
	}
	if err := s.Bodies.ApplyForce(tag, mgl64.Vec3{1, 0, 0}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ApplyForce on dropped body = %v, want ErrNotFound", err)
	}

	// The slot is reused under a new generation; the old tag stays dead.
	fresh := s.Bodies.CreateBody(dynamicBody())
	if fresh.Get().Key().Index() != tag.Key().Index() {
		t.Fatalf("slot %d not reused, got %d", tag.Key().Index(), fresh.Get().Key().Index())
	}
	if _, err := s.Bodies.Transform(tag); !errors.Is(err, ErrNotFound) {
		t.Fatalf("stale tag resolved after slot reuse: %v", err)
	}
}

func TestBody_DropDecrementsShapeOnce(t *testing.T) {
	s, _, _ := newTestServers(t)
	shape, _ := s.Shapes.CreateShape(engine.Sphere(1))
	a := s.Bodies.CreateBody(dynamicBody())
	b := s.Bodies.CreateBody(dynamicBody())
	_ = s.Bodies.SetShape(a.Get(), shape.Get())
	_ = s.Bodies.SetShape(b.Get(), shape.Get())

	if n := len(s.Shapes.Bodies(shape.Get())); n != 2 {
		t.Fatalf("shape bodies = %d, want 2", n)
	}

	a.Release()
	collect(t, s)

	got := s.Shapes.Bodies(shape.Get())
	if len(got) != 1 || got[0] != b.Get().Tag() {
		t.Fatalf("shape bodies = %v, want only %v", got, b.Get().Tag())
	}
	if _, err := s.Bodies.Transform(a.Get()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("dropped body still resolves: %v", err)
	}
	if bodies, _, colliders, _ := s.World.Counts(); bodies != 1 || colliders != 1 {
		t.Fatalf("bodies = %d colliders = %d; want 1 and 1", bodies, colliders)
	}
	if n, _, _ := s.World.st.world.(*countingWorld).Len(); n != 1 {
		t.Fatalf("engine bodies = %d, want 1", n)
	}
}

func TestBody_DropRacesWithBindAndShape(t *testing.T) {
	s, w, _ := newTestServers(t)
	shape, _ := s.Shapes.CreateShape(engine.Sphere(0.5))
	joint := s.Joints.CreateJoint(JointDesc{Kind: engine.ConstraintFixed}, engine.Identity())

	for i := 0; i < 200; i++ {
		body := s.Bodies.CreateBody(dynamicBody()).Get()
		eg, _ := errgroup.WithContext(context.Background())
		eg.Go(func() error {
			return s.Bodies.dropBody(body)
		})
		eg.Go(func() error {
			// Either side of the drop is fine; only the final state matters.
			_ = s.Joints.InsertRigidBody(joint.Get(), body)
			_ = s.Bodies.SetShape(body, shape.Get())
			return nil
		})
		if err := eg.Wait(); err != nil {
			t.Fatalf("iteration %d: dropBody: %v", i, err)
		}
		if _, err := s.Bodies.Mode(body); !errors.Is(err, ErrNotFound) {
			t.Fatalf("iteration %d: body survived its drop: %v", i, err)
		}
		if bindings, _ := s.Joints.Bindings(joint.Get()); len(bindings) != 0 {
			t.Fatalf("iteration %d: joint still binds %+v", i, bindings)
		}
		if s.Shapes.HasDependency(shape.Get()) {
			t.Fatalf("iteration %d: shape still has dependents %v", i, s.Shapes.Bodies(shape.Get()))
		}
	}

	if bodies, shapes, colliders, joints := s.World.Counts(); bodies != 0 || shapes != 1 || colliders != 0 || joints != 1 {
		t.Fatalf("bodies %d shapes %d colliders %d joints %d; want 0 1 0 1", bodies, shapes, colliders, joints)
	}
	if bodies, colliders, constraints := w.Len(); bodies != 0 || colliders != 0 || constraints != 0 {
		t.Fatalf("engine bodies %d colliders %d constraints %d; want all 0", bodies, colliders, constraints)
	}
}
