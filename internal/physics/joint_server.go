package physics

import (
	"fmt"

	"github.com/l1jgo/phys/internal/core/store"
	"github.com/l1jgo/phys/internal/engine"
	"github.com/l1jgo/phys/internal/objects"
	"go.uber.org/zap"
)

// JointServer binds rigid bodies into joints and materializes the engine
// constraint once both slots are filled.
type JointServer struct {
	st  *storages
	log *zap.Logger
}

func newJointServer(st *storages, log *zap.Logger) *JointServer {
	return &JointServer{st: st, log: log}
}

// Binding is one filled joint slot.
type Binding struct {
	Slot   int
	Body   objects.RigidBodyTag
	Part   int
	Anchor engine.Isometry
}

// CreateJoint creates an unbound joint whose frame is initial, in world
// space.
func (s *JointServer) CreateJoint(desc JointDesc, initial engine.Isometry) *objects.Handle[objects.JointTag] {
	key := s.st.joints.Insert(Joint{desc: desc, initial: initial})
	if jg, ok := s.st.joints.GetMut(key); ok {
		jg.Value().self = key
		jg.Release()
	}
	s.log.Debug("joint created", zap.Stringer("joint", key), zap.Stringer("kind", desc.Kind))
	return objects.NewHandle(objects.NewJointTag(key), s.st.gc)
}

// InsertRigidBody binds body into the first free slot of the joint. The
// anchor is frozen from the body's transform at this moment.
func (s *JointServer) InsertRigidBody(joint objects.JointTag, body objects.RigidBodyTag) error {
	jg, ok := s.st.joints.GetMut(joint.Key())
	if !ok {
		return fmt.Errorf("joint %v: %w", joint.Key(), ErrNotFound)
	}
	defer jg.Release()
	j := jg.Value()

	if j.slotOf(body.Key()) >= 0 {
		return fmt.Errorf("joint %v already holds %v: %w", joint.Key(), body.Key(), ErrAlreadyBound)
	}
	slot := j.freeSlot()
	if slot < 0 {
		return fmt.Errorf("joint %v: %w", joint.Key(), ErrAlreadyBound)
	}

	bg, err := s.st.bodyGuard(body.Key(), objects.KindRigidBody)
	if err != nil {
		return err
	}
	b := bg.Value()
	anchor := b.rb.Position().Inverse().Mul(j.initial)
	b.addJoint(joint.Key())
	bg.Release()

	j.slots[slot] = jointSlot{body: body.Key(), part: rigidBodyPart, anchor: anchor}
	if j.state() == JointBound && j.constraint == nil {
		if err := s.st.materialize(j); err != nil {
			return err
		}
	}
	s.log.Debug("body bound to joint",
		zap.Stringer("joint", joint.Key()), zap.Stringer("body", body.Key()), zap.Int("slot", slot))
	return nil
}

// RemoveRigidBody clears the slot holding body. A live constraint is
// retracted and both bodies it held are woken.
func (s *JointServer) RemoveRigidBody(joint objects.JointTag, body objects.RigidBodyTag) error {
	return s.st.unbindBody(joint.Key(), body.Key())
}

func (s *JointServer) State(joint objects.JointTag) (JointState, error) {
	jg, ok := s.st.joints.GetMut(joint.Key())
	if !ok {
		return JointUnbound, fmt.Errorf("joint %v: %w", joint.Key(), ErrNotFound)
	}
	defer jg.Release()
	return jg.Value().state(), nil
}

// HasConstraint reports whether the engine constraint currently exists.
func (s *JointServer) HasConstraint(joint objects.JointTag) bool {
	jg, ok := s.st.joints.GetMut(joint.Key())
	if !ok {
		return false
	}
	defer jg.Release()
	return jg.Value().constraint != nil
}

// Bindings returns the filled slots in slot order.
func (s *JointServer) Bindings(joint objects.JointTag) ([]Binding, error) {
	jg, ok := s.st.joints.GetMut(joint.Key())
	if !ok {
		return nil, fmt.Errorf("joint %v: %w", joint.Key(), ErrNotFound)
	}
	defer jg.Release()

	var out []Binding
	for i, sl := range jg.Value().slots {
		if sl.empty() {
			continue
		}
		out = append(out, Binding{
			Slot:   i,
			Body:   objects.NewRigidBodyTag(sl.body),
			Part:   sl.part,
			Anchor: sl.anchor,
		})
	}
	return out, nil
}

func (s *JointServer) Desc(joint objects.JointTag) (JointDesc, error) {
	jg, ok := s.st.joints.GetMut(joint.Key())
	if !ok {
		return JointDesc{}, fmt.Errorf("joint %v: %w", joint.Key(), ErrNotFound)
	}
	defer jg.Release()
	return jg.Value().desc, nil
}

// dropJoint retracts the constraint, wakes and unlinks every bound body and
// removes the joint.
func (s *JointServer) dropJoint(joint objects.JointTag) error {
	key := joint.Key()
	for {
		if err := s.st.retractJoint(key); err != nil {
			return err
		}
		// A body bound after the retract pass keeps the joint alive; retract
		// again.
		if _, ok := s.st.joints.RemoveIf(key, (*Joint).unbound); ok {
			break
		}
		if !s.st.joints.Contains(key) {
			return fmt.Errorf("joint %v: %w", key, ErrNotFound)
		}
	}
	s.log.Debug("joint dropped", zap.Stringer("joint", key))
	return nil
}

// materialize creates the engine constraint of a joint whose slots are both
// filled. The caller holds the joint guard.
func (st *storages) materialize(j *Joint) error {
	var rbs [2]engine.RigidBody
	for i, sl := range j.slots {
		g, ok := st.bodies.GetMut(sl.body)
		if !ok {
			return st.inconsistent("joint slot references a missing body",
				zap.Stringer("joint", j.self), zap.Stringer("body", sl.body))
		}
		rbs[i] = g.Value().rb
		g.Release()
	}
	j.constraint = st.world.AddConstraint(engine.ConstraintDesc{
		Kind:    j.desc.Kind,
		Body0:   rbs[0],
		Part0:   j.slots[0].part,
		Anchor0: j.slots[0].anchor,
		Body1:   rbs[1],
		Part1:   j.slots[1].part,
		Anchor1: j.slots[1].anchor,
	})
	return nil
}

// retractConstraint removes the engine constraint, if any, and reports
// whether one existed. The caller holds the joint guard.
func (st *storages) retractConstraint(j *Joint) bool {
	if j.constraint == nil {
		return false
	}
	st.world.RemoveConstraint(j.constraint)
	j.constraint = nil
	return true
}

// unlinkJoint removes joint from body's joint set and optionally wakes the
// body. Missing bodies are ignored: the body may be mid-drop.
func (st *storages) unlinkJoint(body, joint store.Key, wake bool) {
	g, ok := st.bodies.GetMut(body)
	if !ok {
		return
	}
	b := g.Value()
	delete(b.joints, joint)
	if wake {
		b.rb.Activate()
	}
	g.Release()
}

// unbindBody clears the slot of joint holding body.
func (st *storages) unbindBody(joint, body store.Key) error {
	jg, ok := st.joints.GetMut(joint)
	if !ok {
		return fmt.Errorf("joint %v: %w", joint, ErrNotFound)
	}
	defer jg.Release()
	j := jg.Value()

	slot := j.slotOf(body)
	if slot < 0 {
		return fmt.Errorf("body %v in joint %v: %w", body, joint, ErrNotFound)
	}
	other := j.slots[1-slot].body
	j.slots[slot] = jointSlot{}

	woke := st.retractConstraint(j)
	st.unlinkJoint(body, joint, woke)
	if woke && !other.IsZero() {
		st.activate(other)
	}
	return nil
}

// retractJoint empties every slot of a joint, retracting the constraint and
// waking the bodies it held.
func (st *storages) retractJoint(joint store.Key) error {
	jg, ok := st.joints.GetMut(joint)
	if !ok {
		return fmt.Errorf("joint %v: %w", joint, ErrNotFound)
	}
	defer jg.Release()
	j := jg.Value()

	st.retractConstraint(j)
	for i := range j.slots {
		if j.slots[i].empty() {
			continue
		}
		st.unlinkJoint(j.slots[i].body, joint, true)
		j.slots[i] = jointSlot{}
	}
	return nil
}
