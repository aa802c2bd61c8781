package objects

import "sync/atomic"

type refCount struct {
	n   atomic.Int64
	tag Tag
	gc  *GarbageCollector
}

// Handle is a counted reference to a physics object. Every clone shares one
// count; the set of live clones owns the object. When the last clone is
// released the tag is queued on the collector, and the object is destroyed at
// the next collection point rather than at the release site.
type Handle[T Tagged] struct {
	tag      T
	rc       *refCount
	released atomic.Bool
}

// NewHandle wraps tag with a count of one.
func NewHandle[T Tagged](tag T, gc *GarbageCollector) *Handle[T] {
	rc := &refCount{tag: tag.Tag(), gc: gc}
	rc.n.Store(1)
	return &Handle[T]{tag: tag, rc: rc}
}

// Get returns the wrapped tag. It stays valid while the handle is live.
func (h *Handle[T]) Get() T { return h.tag }

// Clone returns a new handle sharing this one's count. Cloning a released
// handle panics: its object may already be queued for destruction.
func (h *Handle[T]) Clone() *Handle[T] {
	for {
		n := h.rc.n.Load()
		if n <= 0 || h.released.Load() {
			panic("objects: Clone of released handle " + h.rc.tag.String())
		}
		if h.rc.n.CompareAndSwap(n, n+1) {
			return &Handle[T]{tag: h.tag, rc: h.rc}
		}
	}
}

// RefCount returns the number of live clones.
func (h *Handle[T]) RefCount() int64 { return h.rc.n.Load() }

// Release drops this clone. Releasing the same clone twice is a no-op.
func (h *Handle[T]) Release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}
	if h.rc.n.Add(-1) == 0 && h.rc.gc != nil {
		h.rc.gc.Enqueue(h.rc.tag)
	}
}
