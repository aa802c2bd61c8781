package physics

import (
	"sync/atomic"
	"testing"

	"github.com/l1jgo/phys/internal/config"
	"github.com/l1jgo/phys/internal/core/event"
	"github.com/l1jgo/phys/internal/core/store"
	"github.com/l1jgo/phys/internal/engine"
	"github.com/l1jgo/phys/internal/engine/euler"
	"go.uber.org/zap"
)

// countingWorld counts collider installs so tests can observe rebuilds, and
// keeps the last constraint descriptor it was handed.
type countingWorld struct {
	*euler.World
	added          atomic.Int64
	lastConstraint atomic.Pointer[engine.ConstraintDesc]
}

func (w *countingWorld) AddConstraint(desc engine.ConstraintDesc) engine.Constraint {
	w.lastConstraint.Store(&desc)
	return w.World.AddConstraint(desc)
}

func (w *countingWorld) AddCollider(rb engine.RigidBody, desc engine.ColliderDesc) engine.Collider {
	w.added.Add(1)
	return w.World.AddCollider(rb, desc)
}

// newTestServers builds servers over a gravity-free world whose bodies fall
// asleep after half a second at rest. Inconsistencies panic.
func newTestServers(t *testing.T) (*Servers, *countingWorld, *event.Bus) {
	t.Helper()
	w := &countingWorld{World: euler.New(euler.Options{SleepThreshold: 0.01, SleepTime: 0.5})}
	bus := event.NewBus()
	log := zap.NewNop().WithOptions(zap.Development())
	return New(w, config.Defaults().Storage, bus, log), w, bus
}

func dynamicBody() BodyDesc {
	return BodyDesc{Mode: engine.BodyDynamic, Mass: 1, Material: engine.Material{Friction: 0.5}}
}

// colliderDesc returns the engine descriptor of the collider installed on a
// body.
func colliderDesc(t *testing.T, s *Servers, body store.Key) engine.ColliderDesc {
	t.Helper()
	b, ok := s.World.st.bodies.Get(body)
	if !ok {
		t.Fatalf("body %v not found", body)
	}
	c, ok := s.World.st.colliders.Get(b.collider)
	if !ok {
		t.Fatalf("body %v has no collider", body)
	}
	return c.ec.Desc()
}

func collect(t *testing.T, s *Servers) {
	t.Helper()
	if err := s.World.Collect(); err != nil {
		t.Fatalf("Collect: %v", err)
	}
}
