package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/l1jgo/phys/internal/engine"
	"github.com/l1jgo/phys/internal/objects"
	"go.uber.org/zap"
)

type BodyDesc struct {
	Mode     engine.BodyMode
	Mass     float64
	Material engine.Material
}

// BodyServer manages rigid bodies. All operations take the body's guard for
// their duration; operations on distinct bodies run in parallel.
type BodyServer struct {
	st  *storages
	log *zap.Logger
}

func newBodyServer(st *storages, log *zap.Logger) *BodyServer {
	return &BodyServer{st: st, log: log}
}

func (s *BodyServer) CreateBody(desc BodyDesc) *objects.Handle[objects.RigidBodyTag] {
	rb := s.st.world.CreateRigidBody(engine.RigidBodyDesc{Mode: desc.Mode, Mass: desc.Mass})
	key := s.st.bodies.Insert(newRigidBody(rb, desc.Material))
	if g, ok := s.st.bodies.GetMut(key); ok {
		g.Value().self = key
		g.Release()
	}
	s.log.Debug("rigid body created", zap.Stringer("body", key), zap.Stringer("mode", desc.Mode))
	return objects.NewHandle(objects.NewRigidBodyTag(key), s.st.gc)
}

// SetShape replaces the body's shape. The zero ShapeTag removes it.
func (s *BodyServer) SetShape(body objects.RigidBodyTag, shape objects.ShapeTag) error {
	err := s.st.setShape(body.Key(), objects.KindRigidBody, shape.Key())
	if err != nil {
		s.log.Warn("set shape failed",
			zap.Stringer("body", body.Key()), zap.Stringer("shape", shape.Key()), zap.Error(err))
	}
	return err
}

// Shape returns the body's shape; false if it has none or does not exist.
func (s *BodyServer) Shape(body objects.RigidBodyTag) (objects.ShapeTag, bool) {
	return s.st.shapeOf(body.Key(), objects.KindRigidBody)
}

func (s *BodyServer) SetEntity(body objects.RigidBodyTag, e objects.Entity) error {
	return s.st.setEntity(body.Key(), objects.KindRigidBody, e)
}

func (s *BodyServer) Entity(body objects.RigidBodyTag) (objects.Entity, error) {
	return s.st.entity(body.Key(), objects.KindRigidBody)
}

func (s *BodyServer) SetTransform(body objects.RigidBodyTag, iso engine.Isometry) error {
	return s.st.setTransform(body.Key(), objects.KindRigidBody, iso)
}

func (s *BodyServer) Transform(body objects.RigidBodyTag) (engine.Isometry, error) {
	return s.st.transform(body.Key(), objects.KindRigidBody)
}

// withRigid runs fn on the engine body under the body's guard.
func (s *BodyServer) withRigid(body objects.RigidBodyTag, fn func(b *Body, rb engine.RigidBody)) error {
	g, ok := s.st.bodies.GetMut(body.Key())
	if !ok {
		return fmt.Errorf("%s %v: %w", objects.KindRigidBody, body.Key(), ErrNotFound)
	}
	defer g.Release()
	b := g.Value()
	rb, err := b.rigid()
	if err != nil {
		return fmt.Errorf("body %v: %w", body.Key(), err)
	}
	fn(b, rb)
	return nil
}

func (s *BodyServer) SetMode(body objects.RigidBodyTag, mode engine.BodyMode) error {
	return s.withRigid(body, func(_ *Body, rb engine.RigidBody) { rb.SetMode(mode) })
}

func (s *BodyServer) Mode(body objects.RigidBodyTag) (mode engine.BodyMode, err error) {
	err = s.withRigid(body, func(_ *Body, rb engine.RigidBody) { mode = rb.Mode() })
	return mode, err
}

func (s *BodyServer) Mass(body objects.RigidBodyTag) (mass float64, err error) {
	err = s.withRigid(body, func(_ *Body, rb engine.RigidBody) { mass = rb.Mass() })
	return mass, err
}

// setMaterial updates the body material and its installed collider.
func (s *BodyServer) setMaterial(body objects.RigidBodyTag, update func(*engine.Material)) error {
	var inconsistent error
	err := s.withRigid(body, func(b *Body, _ engine.RigidBody) {
		update(&b.material)
		if b.collider.IsZero() {
			return
		}
		cg, ok := s.st.colliders.GetMut(b.collider)
		if !ok {
			inconsistent = s.st.inconsistent("body references a missing collider", zap.Stringer("body", b.self))
			return
		}
		cg.Value().ec.SetMaterial(b.material)
		cg.Release()
	})
	if err != nil {
		return err
	}
	return inconsistent
}

func (s *BodyServer) material(body objects.RigidBodyTag) (m engine.Material, err error) {
	err = s.withRigid(body, func(b *Body, _ engine.RigidBody) { m = b.material })
	return m, err
}

func (s *BodyServer) SetFriction(body objects.RigidBodyTag, friction float64) error {
	return s.setMaterial(body, func(m *engine.Material) { m.Friction = friction })
}

func (s *BodyServer) Friction(body objects.RigidBodyTag) (float64, error) {
	m, err := s.material(body)
	return m.Friction, err
}

func (s *BodyServer) SetBounciness(body objects.RigidBodyTag, bounciness float64) error {
	return s.setMaterial(body, func(m *engine.Material) { m.Bounciness = bounciness })
}

func (s *BodyServer) Bounciness(body objects.RigidBodyTag) (float64, error) {
	m, err := s.material(body)
	return m.Bounciness, err
}

// Forces and impulses wake the body they are applied to.

func (s *BodyServer) ClearForces(body objects.RigidBodyTag) error {
	return s.withRigid(body, func(_ *Body, rb engine.RigidBody) { rb.ClearForces() })
}

func (s *BodyServer) ApplyForce(body objects.RigidBodyTag, force mgl64.Vec3) error {
	return s.withRigid(body, func(_ *Body, rb engine.RigidBody) {
		rb.ApplyForce(force, engine.ForceContinuous, true)
	})
}

func (s *BodyServer) ApplyTorque(body objects.RigidBodyTag, torque mgl64.Vec3) error {
	return s.withRigid(body, func(_ *Body, rb engine.RigidBody) {
		rb.ApplyTorque(torque, engine.ForceContinuous, true)
	})
}

// ApplyForceAtPosition applies force at a world space point.
func (s *BodyServer) ApplyForceAtPosition(body objects.RigidBodyTag, force, point mgl64.Vec3) error {
	return s.withRigid(body, func(_ *Body, rb engine.RigidBody) {
		rb.ApplyForceAtPoint(force, point, engine.ForceContinuous, true)
	})
}

func (s *BodyServer) ApplyImpulse(body objects.RigidBodyTag, impulse mgl64.Vec3) error {
	return s.withRigid(body, func(_ *Body, rb engine.RigidBody) {
		rb.ApplyForce(impulse, engine.ForceImpulse, true)
	})
}

func (s *BodyServer) ApplyAngularImpulse(body objects.RigidBodyTag, impulse mgl64.Vec3) error {
	return s.withRigid(body, func(_ *Body, rb engine.RigidBody) {
		rb.ApplyTorque(impulse, engine.ForceImpulse, true)
	})
}

// ApplyImpulseAtPosition applies impulse at a world space point.
func (s *BodyServer) ApplyImpulseAtPosition(body objects.RigidBodyTag, impulse, point mgl64.Vec3) error {
	return s.withRigid(body, func(_ *Body, rb engine.RigidBody) {
		rb.ApplyForceAtPoint(impulse, point, engine.ForceImpulse, true)
	})
}

func (s *BodyServer) SetLinearVelocity(body objects.RigidBodyTag, v mgl64.Vec3) error {
	return s.withRigid(body, func(_ *Body, rb engine.RigidBody) { rb.SetLinearVelocity(v) })
}

func (s *BodyServer) LinearVelocity(body objects.RigidBodyTag) (v mgl64.Vec3, err error) {
	err = s.withRigid(body, func(_ *Body, rb engine.RigidBody) { v = rb.LinearVelocity() })
	return v, err
}

func (s *BodyServer) SetAngularVelocity(body objects.RigidBodyTag, w mgl64.Vec3) error {
	return s.withRigid(body, func(_ *Body, rb engine.RigidBody) { rb.SetAngularVelocity(w) })
}

func (s *BodyServer) AngularVelocity(body objects.RigidBodyTag) (w mgl64.Vec3, err error) {
	err = s.withRigid(body, func(_ *Body, rb engine.RigidBody) { w = rb.AngularVelocity() })
	return w, err
}

// LinearVelocityAtPosition returns the velocity of a world space point
// moving with the body.
func (s *BodyServer) LinearVelocityAtPosition(body objects.RigidBodyTag, point mgl64.Vec3) (v mgl64.Vec3, err error) {
	err = s.withRigid(body, func(_ *Body, rb engine.RigidBody) { v = rb.VelocityAt(point) })
	return v, err
}

func (s *BodyServer) IsActive(body objects.RigidBodyTag) (active bool, err error) {
	err = s.withRigid(body, func(_ *Body, rb engine.RigidBody) { active = rb.IsActive() })
	return active, err
}

// Joints returns the joints the body is bound to.
func (s *BodyServer) Joints(body objects.RigidBodyTag) ([]objects.JointTag, error) {
	g, err := s.st.bodyGuard(body.Key(), objects.KindRigidBody)
	if err != nil {
		return nil, err
	}
	keys := g.Value().jointKeys()
	g.Release()

	tags := make([]objects.JointTag, len(keys))
	for i, k := range keys {
		tags[i] = objects.NewJointTag(k)
	}
	return tags, nil
}

func (s *BodyServer) dropBody(body objects.RigidBodyTag) error {
	if err := s.st.dropBody(body.Key(), objects.KindRigidBody); err != nil {
		return err
	}
	s.log.Debug("rigid body dropped", zap.Stringer("body", body.Key()))
	return nil
}
