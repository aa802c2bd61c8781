package physics

import (
	"fmt"

	"github.com/l1jgo/phys/internal/core/store"
	"github.com/l1jgo/phys/internal/engine"
)

type JointDesc struct {
	Kind engine.ConstraintKind
}

// JointState tells how many bodies a joint holds.
type JointState int

const (
	JointUnbound JointState = iota
	JointHalfBound
	JointBound
)

func (s JointState) String() string {
	switch s {
	case JointUnbound:
		return "unbound"
	case JointHalfBound:
		return "half_bound"
	case JointBound:
		return "bound"
	}
	return fmt.Sprintf("joint_state(%d)", int(s))
}

// rigidBodyPart is the only part index a rigid body has. Multi-part bodies
// are not modeled, so every slot binds part 0.
const rigidBodyPart = 0

// jointSlot holds one bound body. anchor is the joint frame in the body's
// local frame, computed once when the body was bound.
type jointSlot struct {
	body   store.Key
	part   int
	anchor engine.Isometry
}

func (s jointSlot) empty() bool { return s.body.IsZero() }

// Joint is a two-slot constraint record. The engine constraint exists only
// while both slots are filled.
type Joint struct {
	self       store.Key
	desc       JointDesc
	initial    engine.Isometry
	slots      [2]jointSlot
	constraint engine.Constraint
}

func (j *Joint) state() JointState {
	n := 0
	for _, s := range j.slots {
		if !s.empty() {
			n++
		}
	}
	return JointState(n)
}

func (j *Joint) unbound() bool { return j.state() == JointUnbound }

// slotOf returns the slot holding body, or -1.
func (j *Joint) slotOf(body store.Key) int {
	if body.IsZero() {
		return -1
	}
	for i, s := range j.slots {
		if s.body == body {
			return i
		}
	}
	return -1
}

func (j *Joint) freeSlot() int {
	for i, s := range j.slots {
		if s.empty() {
			return i
		}
	}
	return -1
}
