package physics

import (
	"sort"

	"github.com/l1jgo/phys/internal/core/store"
	"github.com/l1jgo/phys/internal/engine"
)

// Shape is a geometry descriptor, the engine geometry built from it and the
// set of bodies using it. It cannot be removed while bodies is non-empty.
type Shape struct {
	self          store.Key
	desc          engine.ShapeDesc
	geometry      engine.Geometry
	bodies        map[store.Key]struct{}
	markedForDrop bool
}

func (s *Shape) register(body store.Key) {
	if s.bodies == nil {
		s.bodies = make(map[store.Key]struct{}, 4)
	}
	s.bodies[body] = struct{}{}
}

func (s *Shape) unregister(body store.Key) {
	delete(s.bodies, body)
}

func (s *Shape) bodyKeys() []store.Key {
	keys := make([]store.Key, 0, len(s.bodies))
	for k := range s.bodies {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
