package physics

import (
	"fmt"
	"sort"

	"github.com/l1jgo/phys/internal/core/store"
	"github.com/l1jgo/phys/internal/engine"
	"github.com/l1jgo/phys/internal/objects"
)

// Body is a rigid or area body together with its shape and collider
// bookkeeping. collider is set iff a collider is installed; shape is set iff
// the named shape lists this body among its dependents.
type Body struct {
	self     store.Key
	rb       engine.RigidBody
	payload  payload
	collider store.Key
	shape    store.Key
	entity   objects.Entity
	material engine.Material
	joints   map[store.Key]struct{}
}

// payload is the variant part of a body: rigidPayload or *areaPayload.
type payload interface {
	kind() objects.Kind
}

type rigidPayload struct{}

func (rigidPayload) kind() objects.Kind { return objects.KindRigidBody }

// areaPayload collects the overlap events raised for an area since the
// events were last cleared.
type areaPayload struct {
	events []OverlapEvent
}

func (*areaPayload) kind() objects.Kind { return objects.KindArea }

func newRigidBody(rb engine.RigidBody, material engine.Material) Body {
	return Body{rb: rb, payload: rigidPayload{}, material: material}
}

func newArea(rb engine.RigidBody) Body {
	return Body{rb: rb, payload: &areaPayload{}}
}

func (b *Body) kind() objects.Kind { return b.payload.kind() }

// rigid returns the engine body when the payload is a rigid body.
func (b *Body) rigid() (engine.RigidBody, error) {
	if _, ok := b.payload.(rigidPayload); !ok {
		return nil, fmt.Errorf("%w: %s is not a rigid body", ErrIncompatibleVariant, b.kind())
	}
	return b.rb, nil
}

func (b *Body) area() (*areaPayload, error) {
	a, ok := b.payload.(*areaPayload)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not an area", ErrIncompatibleVariant, b.kind())
	}
	return a, nil
}

func (b *Body) userData() objects.UserData {
	return objects.UserData{Kind: b.kind(), Key: b.self, Entity: b.entity}
}

// detached reports a body with no joint, shape or collider left.
func (b *Body) detached() bool {
	return len(b.joints) == 0 && b.shape.IsZero() && b.collider.IsZero()
}

func (b *Body) addJoint(joint store.Key) {
	if b.joints == nil {
		b.joints = make(map[store.Key]struct{}, 1)
	}
	b.joints[joint] = struct{}{}
}

func (b *Body) jointKeys() []store.Key {
	keys := make([]store.Key, 0, len(b.joints))
	for k := range b.joints {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Collider is the engine collider installed on exactly one body.
type Collider struct {
	self  store.Key
	owner store.Key
	ec    engine.Collider
}

// OverlapKind tells whether an overlap started or stopped.
type OverlapKind int

const (
	OverlapEnter OverlapKind = iota
	OverlapExit
)

func (k OverlapKind) String() string {
	if k == OverlapEnter {
		return "enter"
	}
	return "exit"
}

// OverlapEvent is recorded on an area when another collider enters or
// leaves it.
type OverlapEvent struct {
	Kind  OverlapKind
	Other objects.UserData
}
