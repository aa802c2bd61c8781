package physics

import (
	"github.com/l1jgo/phys/internal/engine"
	"github.com/l1jgo/phys/internal/objects"
	"go.uber.org/zap"
)

// AreaServer manages areas: static bodies whose collider is a sensor. Areas
// collect the overlap events raised for them during a step.
type AreaServer struct {
	st  *storages
	log *zap.Logger
}

func newAreaServer(st *storages, log *zap.Logger) *AreaServer {
	return &AreaServer{st: st, log: log}
}

// CreateArea creates an area placed at transform.
func (s *AreaServer) CreateArea(transform engine.Isometry) *objects.Handle[objects.AreaTag] {
	rb := s.st.world.CreateRigidBody(engine.RigidBodyDesc{Mode: engine.BodyStatic})
	rb.SetPosition(transform)
	key := s.st.bodies.Insert(newArea(rb))
	if g, ok := s.st.bodies.GetMut(key); ok {
		g.Value().self = key
		g.Release()
	}
	s.log.Debug("area created", zap.Stringer("area", key))
	return objects.NewHandle(objects.NewAreaTag(key), s.st.gc)
}

// SetShape installs a sensor collider built from shape. The zero ShapeTag
// removes it.
func (s *AreaServer) SetShape(area objects.AreaTag, shape objects.ShapeTag) error {
	err := s.st.setShape(area.Key(), objects.KindArea, shape.Key())
	if err != nil {
		s.log.Warn("set shape failed",
			zap.Stringer("area", area.Key()), zap.Stringer("shape", shape.Key()), zap.Error(err))
	}
	return err
}

func (s *AreaServer) Shape(area objects.AreaTag) (objects.ShapeTag, bool) {
	return s.st.shapeOf(area.Key(), objects.KindArea)
}

func (s *AreaServer) SetEntity(area objects.AreaTag, e objects.Entity) error {
	return s.st.setEntity(area.Key(), objects.KindArea, e)
}

func (s *AreaServer) Entity(area objects.AreaTag) (objects.Entity, error) {
	return s.st.entity(area.Key(), objects.KindArea)
}

func (s *AreaServer) SetTransform(area objects.AreaTag, iso engine.Isometry) error {
	return s.st.setTransform(area.Key(), objects.KindArea, iso)
}

func (s *AreaServer) Transform(area objects.AreaTag) (engine.Isometry, error) {
	return s.st.transform(area.Key(), objects.KindArea)
}

// OverlapEvents returns the events recorded since the last ClearEvents.
func (s *AreaServer) OverlapEvents(area objects.AreaTag) ([]OverlapEvent, error) {
	g, err := s.st.bodyGuard(area.Key(), objects.KindArea)
	if err != nil {
		return nil, err
	}
	defer g.Release()
	a, err := g.Value().area()
	if err != nil {
		return nil, err
	}
	out := make([]OverlapEvent, len(a.events))
	copy(out, a.events)
	return out, nil
}

func (s *AreaServer) dropArea(area objects.AreaTag) error {
	if err := s.st.dropBody(area.Key(), objects.KindArea); err != nil {
		return err
	}
	s.log.Debug("area dropped", zap.Stringer("area", area.Key()))
	return nil
}
