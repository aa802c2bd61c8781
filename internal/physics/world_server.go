package physics

import (
	"errors"
	"sync"

	"github.com/l1jgo/phys/internal/core/event"
	"github.com/l1jgo/phys/internal/core/store"
	"github.com/l1jgo/phys/internal/engine"
	"github.com/l1jgo/phys/internal/objects"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// WorldServer steps the engine, routes overlap events to areas and runs the
// collection point that destroys released objects.
type WorldServer struct {
	st     *storages
	bodies *BodyServer
	areas  *AreaServer
	shapes *ShapeServer
	joints *JointServer
	bus    *event.Bus
	log    *zap.Logger

	collectMu sync.Mutex
	retained  []objects.Tag // shapes whose drop returned ErrInUse
}

// Step advances the engine by dt and records the overlap transitions on the
// areas involved. Events accumulate until ClearEvents.
func (w *WorldServer) Step(dt float64) {
	for _, ev := range w.st.world.Step(dt) {
		a, aok := colliderData(ev.Collider1)
		b, bok := colliderData(ev.Collider2)
		if !aok || !bok {
			w.log.Debug("contact on a foreign collider ignored")
			continue
		}
		kind := OverlapExit
		if ev.Started {
			kind = OverlapEnter
		}
		w.recordOverlap(a, b, kind)
		w.recordOverlap(b, a, kind)
	}
}

func colliderData(c engine.Collider) (objects.UserData, bool) {
	if c == nil {
		return objects.UserData{}, false
	}
	ud, ok := c.UserData().(objects.UserData)
	return ud, ok
}

func (w *WorldServer) recordOverlap(self, other objects.UserData, kind OverlapKind) {
	area, ok := self.Area()
	if !ok {
		return
	}
	g, err := w.st.bodyGuard(area.Key(), objects.KindArea)
	if err != nil {
		w.log.Debug("overlap on a dropped area", zap.Stringer("area", area.Key()), zap.Error(err))
		return
	}
	if a, err := g.Value().area(); err == nil {
		a.events = append(a.events, OverlapEvent{Kind: kind, Other: other})
	}
	g.Release()

	if w.bus == nil {
		return
	}
	if kind == OverlapEnter {
		event.Emit(w.bus, event.OverlapStarted{Area: area, Other: other})
	} else {
		event.Emit(w.bus, event.OverlapStopped{Area: area, Other: other})
	}
}

// ClearEvents empties the overlap buffer of every area.
func (w *WorldServer) ClearEvents() {
	w.st.bodies.Each(func(_ store.Key, b *Body) {
		if a, ok := b.payload.(*areaPayload); ok {
			a.events = a.events[:0]
		}
	})
}

// Collect is the collection point. It destroys every object whose last
// handle was released, in dependency order: joints, rigid bodies, areas,
// then shapes. Shapes still in use are kept and retried on later calls.
func (w *WorldServer) Collect() error {
	w.collectMu.Lock()
	defer w.collectMu.Unlock()

	p := w.st.gc.Drain()
	if p.Len() == 0 && len(w.retained) == 0 {
		return nil
	}

	var (
		errs  error
		stats event.ObjectsCollected
	)
	check := func(t objects.Tag, err error) bool {
		switch {
		case err == nil:
			return true
		case errors.Is(err, ErrNotFound):
			w.log.Warn("collected object already gone", zap.Stringer("tag", t))
		default:
			errs = multierr.Append(errs, err)
		}
		return false
	}

	for _, t := range p.Joints {
		if check(t, w.joints.dropJoint(objects.NewJointTag(t.Key))) {
			stats.Joints++
		}
	}
	for _, t := range p.RigidBodies {
		if check(t, w.bodies.dropBody(objects.NewRigidBodyTag(t.Key))) {
			stats.RigidBodies++
		}
	}
	for _, t := range p.Areas {
		if check(t, w.areas.dropArea(objects.NewAreaTag(t.Key))) {
			stats.Areas++
		}
	}

	shapes := append(w.retained, p.Shapes...)
	w.retained = nil
	seen := make(map[store.Key]struct{}, len(shapes))
	for _, t := range shapes {
		if _, dup := seen[t.Key]; dup {
			continue
		}
		seen[t.Key] = struct{}{}

		err := w.shapes.dropShape(objects.NewShapeTag(t.Key))
		if errors.Is(err, ErrInUse) {
			w.retained = append(w.retained, t)
			stats.Deferred++
			continue
		}
		if check(t, err) {
			stats.Shapes++
		}
	}

	w.log.Debug("collection point",
		zap.Int("joints", stats.Joints),
		zap.Int("rigid_bodies", stats.RigidBodies),
		zap.Int("areas", stats.Areas),
		zap.Int("shapes", stats.Shapes),
		zap.Int("deferred", stats.Deferred))
	if w.bus != nil {
		event.Emit(w.bus, stats)
	}
	return errs
}

// Retained returns the number of shapes waiting for their bodies to let go.
func (w *WorldServer) Retained() int {
	w.collectMu.Lock()
	defer w.collectMu.Unlock()
	return len(w.retained)
}

// Counts reports the live objects per store.
func (w *WorldServer) Counts() (bodies, shapes, colliders, joints int) {
	return w.st.bodies.Len(), w.st.shapes.Len(), w.st.colliders.Len(), w.st.joints.Len()
}
