package system

import (
	"time"

	coresys "github.com/l1jgo/phys/internal/core/system"
	"github.com/l1jgo/phys/internal/physics"
	"go.uber.org/zap"
)

// CollectSystem runs the physics collection point at tick end, destroying
// every object whose last handle was released during the tick.
// Phase 3 (Collect).
type CollectSystem struct {
	world *physics.WorldServer
	log   *zap.Logger
}

func NewCollectSystem(world *physics.WorldServer, log *zap.Logger) *CollectSystem {
	return &CollectSystem{world: world, log: log}
}

func (s *CollectSystem) Phase() coresys.Phase { return coresys.PhaseCollect }

func (s *CollectSystem) Update(_ time.Duration) {
	if err := s.world.Collect(); err != nil {
		s.log.Error("collection point", zap.Error(err))
	}
}
