package event

import "github.com/l1jgo/phys/internal/objects"

// OverlapStarted is published when a collider starts overlapping an area.
type OverlapStarted struct {
	Area  objects.AreaTag
	Other objects.UserData
}

// OverlapStopped is published when a collider stops overlapping an area.
type OverlapStopped struct {
	Area  objects.AreaTag
	Other objects.UserData
}

// ObjectsCollected is published after a collection point destroyed objects.
type ObjectsCollected struct {
	Joints      int
	RigidBodies int
	Areas       int
	Shapes      int
	// Deferred counts shapes kept alive because bodies still use them.
	Deferred int
}
