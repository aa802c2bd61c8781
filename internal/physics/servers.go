package physics

import (
	"github.com/l1jgo/phys/internal/config"
	"github.com/l1jgo/phys/internal/core/event"
	"github.com/l1jgo/phys/internal/engine"
	"go.uber.org/zap"
)

// Servers is the operation surface exposed to the host. All servers share
// one set of stores and one collector.
type Servers struct {
	Bodies *BodyServer
	Areas  *AreaServer
	Shapes *ShapeServer
	Joints *JointServer
	World  *WorldServer
}

// New builds the servers over world. bus may be nil when the host does not
// consume overlap notifications.
func New(world engine.World, cfg config.StorageConfig, bus *event.Bus, log *zap.Logger) *Servers {
	st := newStorages(world, cfg, log.Named("store"))
	s := &Servers{
		Bodies: newBodyServer(st, log.Named("body")),
		Areas:  newAreaServer(st, log.Named("area")),
		Shapes: newShapeServer(st, log.Named("shape")),
		Joints: newJointServer(st, log.Named("joint")),
	}
	s.World = &WorldServer{
		st:     st,
		bodies: s.Bodies,
		areas:  s.Areas,
		shapes: s.Shapes,
		joints: s.Joints,
		bus:    bus,
		log:    log.Named("world"),
	}
	return s
}
