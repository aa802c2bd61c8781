package objects

import (
	"fmt"

	"github.com/l1jgo/phys/internal/core/store"
)

// Kind identifies which server owns an object.
type Kind uint8

const (
	KindRigidBody Kind = iota + 1
	KindArea
	KindShape
	KindJoint
)

func (k Kind) String() string {
	switch k {
	case KindRigidBody:
		return "rigid_body"
	case KindArea:
		return "area"
	case KindShape:
		return "shape"
	case KindJoint:
		return "joint"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Tag is the untyped form of every object tag, used by the collector.
type Tag struct {
	Kind Kind
	Key  store.Key
}

func (t Tag) String() string { return t.Kind.String() + "/" + t.Key.String() }

// Tagged is implemented by the typed tags a Handle can wrap.
type Tagged interface {
	comparable
	Tag() Tag
}

// RigidBodyTag names a rigid body. The zero value names nothing.
type RigidBodyTag struct{ key store.Key }

func NewRigidBodyTag(key store.Key) RigidBodyTag { return RigidBodyTag{key: key} }
func (t RigidBodyTag) Key() store.Key            { return t.key }
func (t RigidBodyTag) IsZero() bool              { return t.key.IsZero() }
func (t RigidBodyTag) Tag() Tag                  { return Tag{Kind: KindRigidBody, Key: t.key} }

// AreaTag names an area body.
type AreaTag struct{ key store.Key }

func NewAreaTag(key store.Key) AreaTag { return AreaTag{key: key} }
func (t AreaTag) Key() store.Key       { return t.key }
func (t AreaTag) IsZero() bool         { return t.key.IsZero() }
func (t AreaTag) Tag() Tag             { return Tag{Kind: KindArea, Key: t.key} }

// ShapeTag names a shape. Passing the zero ShapeTag where a shape is optional
// means "no shape".
type ShapeTag struct{ key store.Key }

func NewShapeTag(key store.Key) ShapeTag { return ShapeTag{key: key} }
func (t ShapeTag) Key() store.Key        { return t.key }
func (t ShapeTag) IsZero() bool          { return t.key.IsZero() }
func (t ShapeTag) Tag() Tag              { return Tag{Kind: KindShape, Key: t.key} }

// JointTag names a joint.
type JointTag struct{ key store.Key }

func NewJointTag(key store.Key) JointTag { return JointTag{key: key} }
func (t JointTag) Key() store.Key        { return t.key }
func (t JointTag) IsZero() bool          { return t.key.IsZero() }
func (t JointTag) Tag() Tag              { return Tag{Kind: KindJoint, Key: t.key} }

// Entity is the host's reference to the entity that owns an object.
// Zero means no entity is associated.
type Entity uint64

func (e Entity) IsZero() bool { return e == 0 }

// UserData is attached to every collider this layer installs, so collision
// and overlap notifications can be mapped back to the owning object.
type UserData struct {
	Kind   Kind
	Key    store.Key
	Entity Entity
}

// RigidBody returns the rigid body tag when the collider belongs to one.
func (u UserData) RigidBody() (RigidBodyTag, bool) {
	if u.Kind != KindRigidBody {
		return RigidBodyTag{}, false
	}
	return NewRigidBodyTag(u.Key), true
}

// Area returns the area tag when the collider belongs to one.
func (u UserData) Area() (AreaTag, bool) {
	if u.Kind != KindArea {
		return AreaTag{}, false
	}
	return NewAreaTag(u.Key), true
}
