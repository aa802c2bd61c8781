package physics

import (
	"fmt"

	"github.com/l1jgo/phys/internal/config"
	"github.com/l1jgo/phys/internal/core/store"
	"github.com/l1jgo/phys/internal/engine"
	"github.com/l1jgo/phys/internal/objects"
	"go.uber.org/zap"
)

// storages holds one store per object kind plus the engine world. Every
// server shares the same instance.
//
// Lock order: joint -> body -> collider, and body -> shape. Nothing takes a
// joint guard while holding a body guard, or a body guard while holding a
// shape guard.
type storages struct {
	bodies    *store.Store[Body]
	shapes    *store.Store[Shape]
	colliders *store.Store[Collider]
	joints    *store.Store[Joint]
	gc        *objects.GarbageCollector
	world     engine.World
	log       *zap.Logger
}

func newStorages(world engine.World, cfg config.StorageConfig, log *zap.Logger) *storages {
	return &storages{
		bodies:    store.New[Body](cfg.Bodies.Capacity, cfg.Bodies.Growth),
		shapes:    store.New[Shape](cfg.Shapes.Capacity, cfg.Shapes.Growth),
		colliders: store.New[Collider](cfg.Colliders.Capacity, cfg.Colliders.Growth),
		joints:    store.New[Joint](cfg.Joints.Capacity, cfg.Joints.Growth),
		gc:        objects.NewGarbageCollector(),
		world:     world,
		log:       log,
	}
}

// inconsistent reports a broken invariant. DPanic panics under a development
// logger and logs in production.
func (st *storages) inconsistent(msg string, fields ...zap.Field) error {
	st.log.DPanic(msg, fields...)
	return fmt.Errorf("%w: %s", ErrInconsistent, msg)
}

// bodyGuard locks a body and checks it carries the expected payload kind.
func (st *storages) bodyGuard(key store.Key, kind objects.Kind) (*store.Guard[Body], error) {
	g, ok := st.bodies.GetMut(key)
	if !ok {
		return nil, fmt.Errorf("%s %v: %w", kind, key, ErrNotFound)
	}
	if got := g.Value().kind(); got != kind {
		g.Release()
		return nil, fmt.Errorf("%w: %v is a %s, not a %s", ErrIncompatibleVariant, key, got, kind)
	}
	return g, nil
}

// densityFor is the density policy: areas and concave geometry carry no mass.
func densityFor(b *Body, g engine.Geometry) float64 {
	if b.kind() == objects.KindArea || g.IsConcave() {
		return 0
	}
	return 1
}

// installCollider builds a collider for b and records it. The caller holds
// b's guard.
func (st *storages) installCollider(b *Body, g engine.Geometry, density float64, material engine.Material, sensor bool) {
	ec := st.world.AddCollider(b.rb, engine.ColliderDesc{
		Geometry: g,
		Density:  density,
		Material: material,
		Sensor:   sensor,
		UserData: b.userData(),
	})
	key := st.colliders.Insert(Collider{owner: b.self, ec: ec})
	if cg, ok := st.colliders.GetMut(key); ok {
		cg.Value().self = key
		cg.Release()
	}
	b.collider = key
}

// dropCollider removes b's collider, if any. The caller holds b's guard.
func (st *storages) dropCollider(b *Body) {
	if b.collider.IsZero() {
		return
	}
	c, ok := st.colliders.Remove(b.collider)
	b.collider = 0
	if !ok {
		_ = st.inconsistent("body references a missing collider", zap.Stringer("body", b.self))
		return
	}
	st.world.RemoveCollider(c.ec)
}

// attachShape registers b on the shape and installs a collider built from
// the shape's geometry. The caller holds b's guard and b has no shape.
func (st *storages) attachShape(b *Body, shapeKey store.Key) error {
	sg, ok := st.shapes.GetMut(shapeKey)
	if !ok {
		return fmt.Errorf("shape %v: %w", shapeKey, ErrNotFound)
	}
	sh := sg.Value()
	sh.register(b.self)
	g := sh.geometry
	sg.Release()

	st.installCollider(b, g, densityFor(b, g), b.material, b.kind() == objects.KindArea)
	b.shape = shapeKey
	return nil
}

// detachShape unregisters b from its shape and drops its collider. The
// caller holds b's guard.
func (st *storages) detachShape(b *Body) {
	if !b.shape.IsZero() {
		if sg, ok := st.shapes.GetMut(b.shape); ok {
			sg.Value().unregister(b.self)
			sg.Release()
		} else {
			_ = st.inconsistent("body references a missing shape",
				zap.Stringer("body", b.self), zap.Stringer("shape", b.shape))
		}
		b.shape = 0
	}
	st.dropCollider(b)
}

// rebuildCollider replaces b's collider with one built from the current
// geometry of its shape. Material and sensor flag carry over from the old
// collider; density follows the policy for the new geometry. The caller
// holds b's guard.
func (st *storages) rebuildCollider(b *Body) error {
	sg, ok := st.shapes.GetMut(b.shape)
	if !ok {
		return st.inconsistent("body references a missing shape",
			zap.Stringer("body", b.self), zap.Stringer("shape", b.shape))
	}
	g := sg.Value().geometry
	sg.Release()

	material, sensor := b.material, b.kind() == objects.KindArea
	if cg, ok := st.colliders.GetMut(b.collider); ok {
		d := cg.Value().ec.Desc()
		material, sensor = d.Material, d.Sensor
		cg.Release()
	}
	density := densityFor(b, g)
	st.dropCollider(b)
	st.installCollider(b, g, density, material, sensor)
	return nil
}

// setShape moves b from its current shape (if any) to shapeKey. A zero
// shapeKey only detaches.
func (st *storages) setShape(key store.Key, kind objects.Kind, shapeKey store.Key) error {
	g, err := st.bodyGuard(key, kind)
	if err != nil {
		return err
	}
	defer g.Release()
	b := g.Value()

	if b.shape == shapeKey {
		return nil
	}
	st.detachShape(b)
	if shapeKey.IsZero() {
		return nil
	}
	return st.attachShape(b, shapeKey)
}

// setEntity stores the host entity and refreshes the collider user data so
// callbacks resolve to the new entity.
func (st *storages) setEntity(key store.Key, kind objects.Kind, e objects.Entity) error {
	g, err := st.bodyGuard(key, kind)
	if err != nil {
		return err
	}
	defer g.Release()
	b := g.Value()

	b.entity = e
	if b.collider.IsZero() {
		return nil
	}
	cg, ok := st.colliders.GetMut(b.collider)
	if !ok {
		return st.inconsistent("body references a missing collider", zap.Stringer("body", b.self))
	}
	cg.Value().ec.SetUserData(b.userData())
	cg.Release()
	return nil
}

func (st *storages) entity(key store.Key, kind objects.Kind) (objects.Entity, error) {
	g, err := st.bodyGuard(key, kind)
	if err != nil {
		return 0, err
	}
	defer g.Release()
	return g.Value().entity, nil
}

func (st *storages) shapeOf(key store.Key, kind objects.Kind) (objects.ShapeTag, bool) {
	g, err := st.bodyGuard(key, kind)
	if err != nil {
		return objects.ShapeTag{}, false
	}
	defer g.Release()
	s := g.Value().shape
	return objects.NewShapeTag(s), !s.IsZero()
}

func (st *storages) transform(key store.Key, kind objects.Kind) (engine.Isometry, error) {
	g, err := st.bodyGuard(key, kind)
	if err != nil {
		return engine.Identity(), err
	}
	defer g.Release()
	return g.Value().rb.Position(), nil
}

func (st *storages) setTransform(key store.Key, kind objects.Kind, iso engine.Isometry) error {
	g, err := st.bodyGuard(key, kind)
	if err != nil {
		return err
	}
	defer g.Release()
	g.Value().rb.SetPosition(iso)
	return nil
}

// activate wakes a body. Missing bodies are ignored: the caller may be
// unwinding a body that is being destroyed.
func (st *storages) activate(key store.Key) {
	if g, ok := st.bodies.GetMut(key); ok {
		g.Value().rb.Activate()
		g.Release()
	}
}

// dropBody retracts every joint binding and the shape registration of a body,
// then removes it from the engine and its store. A bind or shape attach that
// lands between the retract pass and the removal keeps the body; retract
// again.
func (st *storages) dropBody(key store.Key, kind objects.Kind) error {
	for {
		g, err := st.bodyGuard(key, kind)
		if err != nil {
			return err
		}
		joints := g.Value().jointKeys()
		g.Release()

		for _, jk := range joints {
			if err := st.unbindBody(jk, key); err != nil {
				st.log.Debug("joint unbind during body drop", zap.Stringer("joint", jk), zap.Error(err))
				st.unlinkJoint(key, jk, false)
			}
		}

		if g, ok := st.bodies.GetMut(key); ok {
			st.detachShape(g.Value())
			g.Release()
		}

		if b, ok := st.bodies.RemoveIf(key, (*Body).detached); ok {
			st.world.RemoveRigidBody(b.rb)
			return nil
		}
	}
}
