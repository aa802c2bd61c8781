package physics

import (
	"fmt"

	"github.com/l1jgo/phys/internal/engine"
	"github.com/l1jgo/phys/internal/objects"
	"go.uber.org/zap"
)

// ShapeServer creates and updates shapes. Shapes are dropped by the collector
// once every handle is released and no body uses them any more.
type ShapeServer struct {
	st  *storages
	log *zap.Logger
}

func newShapeServer(st *storages, log *zap.Logger) *ShapeServer {
	return &ShapeServer{st: st, log: log}
}

func (s *ShapeServer) CreateShape(desc engine.ShapeDesc) (*objects.Handle[objects.ShapeTag], error) {
	g, err := s.st.world.NewGeometry(desc)
	if err != nil {
		return nil, fmt.Errorf("create %s shape: %w", desc.Kind, err)
	}
	key := s.st.shapes.Insert(Shape{desc: desc, geometry: g})
	if sg, ok := s.st.shapes.GetMut(key); ok {
		sg.Value().self = key
		sg.Release()
	}
	s.log.Debug("shape created", zap.Stringer("shape", key), zap.Stringer("kind", desc.Kind))
	return objects.NewHandle(objects.NewShapeTag(key), s.st.gc), nil
}

// UpdateShape regenerates the geometry and rebuilds the collider of every
// body using the shape. It returns the number of colliders rebuilt.
func (s *ShapeServer) UpdateShape(tag objects.ShapeTag, desc engine.ShapeDesc) (int, error) {
	g, err := s.st.world.NewGeometry(desc)
	if err != nil {
		return 0, fmt.Errorf("update %s shape: %w", desc.Kind, err)
	}

	sg, ok := s.st.shapes.GetMut(tag.Key())
	if !ok {
		s.log.Warn("update of unknown shape", zap.Stringer("shape", tag.Key()))
		return 0, fmt.Errorf("shape %v: %w", tag.Key(), ErrNotFound)
	}
	sh := sg.Value()
	sh.desc = desc
	sh.geometry = g
	dependents := sh.bodyKeys()
	sg.Release()

	rebuilt := 0
	for _, bk := range dependents {
		bg, ok := s.st.bodies.GetMut(bk)
		if !ok {
			// Dropped between the snapshot and now: a drop unregisters
			// before removing, so the body is simply gone.
			continue
		}
		b := bg.Value()
		if b.shape == tag.Key() {
			if err := s.st.rebuildCollider(b); err != nil {
				bg.Release()
				return rebuilt, err
			}
			rebuilt++
		}
		bg.Release()
	}
	return rebuilt, nil
}

// Desc returns the descriptor the shape was last built from.
func (s *ShapeServer) Desc(tag objects.ShapeTag) (engine.ShapeDesc, error) {
	sg, ok := s.st.shapes.GetMut(tag.Key())
	if !ok {
		return engine.ShapeDesc{}, fmt.Errorf("shape %v: %w", tag.Key(), ErrNotFound)
	}
	defer sg.Release()
	return sg.Value().desc, nil
}

// HasDependency reports whether any body still uses the shape.
func (s *ShapeServer) HasDependency(tag objects.ShapeTag) bool {
	sg, ok := s.st.shapes.GetMut(tag.Key())
	if !ok {
		return false
	}
	defer sg.Release()
	return len(sg.Value().bodies) > 0
}

// Bodies returns the rigid bodies and areas registered on the shape.
func (s *ShapeServer) Bodies(tag objects.ShapeTag) []objects.Tag {
	sg, ok := s.st.shapes.GetMut(tag.Key())
	if !ok {
		return nil
	}
	keys := sg.Value().bodyKeys()
	sg.Release()

	tags := make([]objects.Tag, 0, len(keys))
	for _, k := range keys {
		if bg, ok := s.st.bodies.GetMut(k); ok {
			tags = append(tags, objects.Tag{Kind: bg.Value().kind(), Key: k})
			bg.Release()
		}
	}
	return tags
}

// MarkedForDrop reports whether a drop of the shape was deferred.
func (s *ShapeServer) MarkedForDrop(tag objects.ShapeTag) bool {
	sg, ok := s.st.shapes.GetMut(tag.Key())
	if !ok {
		return false
	}
	defer sg.Release()
	return sg.Value().markedForDrop
}

// dropShape removes the shape, or marks it and returns ErrInUse while bodies
// still use it. The mark is logged once per transition.
func (s *ShapeServer) dropShape(tag objects.ShapeTag) error {
	sg, ok := s.st.shapes.GetMut(tag.Key())
	if !ok {
		return fmt.Errorf("shape %v: %w", tag.Key(), ErrNotFound)
	}
	sh := sg.Value()
	if n := len(sh.bodies); n > 0 {
		if !sh.markedForDrop {
			sh.markedForDrop = true
			s.log.Warn("shape marked for drop while still in use; keep its handle to avoid rebuilding it",
				zap.Stringer("shape", tag.Key()), zap.Int("bodies", n))
		}
		sg.Release()
		return fmt.Errorf("shape %v: %w", tag.Key(), ErrInUse)
	}
	sg.Release()

	// A body may attach between the check above and the removal.
	if _, ok := s.st.shapes.RemoveIf(tag.Key(), func(sh *Shape) bool { return len(sh.bodies) == 0 }); !ok {
		if s.st.shapes.Contains(tag.Key()) {
			return fmt.Errorf("shape %v: %w", tag.Key(), ErrInUse)
		}
		return fmt.Errorf("shape %v: %w", tag.Key(), ErrNotFound)
	}
	s.log.Debug("shape dropped", zap.Stringer("shape", tag.Key()))
	return nil
}
