package store

// Guard is exclusive access to a single slot's value. The slot stays locked
// until Release; release it with defer right after a successful GetMut.
type Guard[T any] struct {
	slot     *slot[T]
	key      Key
	released bool
}

// Value returns the guarded value. The pointer must not outlive the guard.
func (g *Guard[T]) Value() *T { return &g.slot.value }

// Key returns the key the guard was taken for.
func (g *Guard[T]) Key() Key { return g.key }

// Release unlocks the slot. Calling it more than once is a no-op.
func (g *Guard[T]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.slot.mu.Unlock()
}
