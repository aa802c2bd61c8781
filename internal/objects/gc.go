package objects

import "sync"

// Pending is one drained batch of tags, grouped by kind.
type Pending struct {
	Joints      []Tag
	RigidBodies []Tag
	Areas       []Tag
	Shapes      []Tag
}

func (p Pending) Len() int {
	return len(p.Joints) + len(p.RigidBodies) + len(p.Areas) + len(p.Shapes)
}

// GarbageCollector queues the tags of objects whose last handle was
// released. The queue is drained once per step by the collection point.
type GarbageCollector struct {
	mu      sync.Mutex
	pending Pending
}

func NewGarbageCollector() *GarbageCollector {
	return &GarbageCollector{}
}

// Enqueue queues a tag for destruction at the next collection point.
func (gc *GarbageCollector) Enqueue(tag Tag) {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	switch tag.Kind {
	case KindJoint:
		gc.pending.Joints = append(gc.pending.Joints, tag)
	case KindRigidBody:
		gc.pending.RigidBodies = append(gc.pending.RigidBodies, tag)
	case KindArea:
		gc.pending.Areas = append(gc.pending.Areas, tag)
	case KindShape:
		gc.pending.Shapes = append(gc.pending.Shapes, tag)
	}
}

// Drain returns every queued tag and empties the queue.
func (gc *GarbageCollector) Drain() Pending {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	p := gc.pending
	gc.pending = Pending{}
	return p
}

// Len returns the number of queued tags.
func (gc *GarbageCollector) Len() int {
	gc.mu.Lock()
	defer gc.mu.Unlock()
	return gc.pending.Len()
}
