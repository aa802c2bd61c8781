package store

import (
	"sync"
	"sync/atomic"
)

type slot[T any] struct {
	mu         sync.Mutex
	value      T
	generation uint32
	occupied   bool
}

// Store owns values of one object kind and hands out generational keys.
//
// Each slot has its own lock: exclusive access to one key never blocks access
// to another. Insert, Remove and table growth serialize on the table mutex.
// The slot table is published through an atomic pointer and slots never move,
// so lookups of already issued keys do not wait for a resize.
type Store[T any] struct {
	mu       sync.Mutex // insert/remove/grow/Each
	slots    atomic.Pointer[[]*slot[T]]
	freeList []uint32
	capacity int
	growth   int
	live     atomic.Int64
}

// New creates a store able to hold initialCapacity values before it grows.
// growth is the number of slots reserved each time the store is full.
func New[T any](initialCapacity, growth int) *Store[T] {
	if initialCapacity < 0 {
		initialCapacity = 0
	}
	if growth < 1 {
		growth = 1
	}
	s := &Store[T]{
		freeList: make([]uint32, 0, 16),
		capacity: initialCapacity,
		growth:   growth,
	}
	table := make([]*slot[T], 0, initialCapacity)
	s.slots.Store(&table)
	return s
}

// Insert takes ownership of value and returns the key naming it.
func (s *Store[T]) Insert(value T) Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.freeList) > 0 {
		idx := s.freeList[len(s.freeList)-1]
		s.freeList = s.freeList[:len(s.freeList)-1]
		sl := (*s.slots.Load())[idx]
		sl.mu.Lock()
		sl.value = value
		sl.occupied = true
		gen := sl.generation
		sl.mu.Unlock()
		s.live.Add(1)
		return NewKey(idx, gen)
	}

	table := *s.slots.Load()
	if int(s.live.Load()) >= s.capacity {
		s.capacity += s.growth
	}
	grown := table
	if cap(table) < s.capacity {
		grown = make([]*slot[T], len(table), s.capacity)
		copy(grown, table)
	}
	idx := uint32(len(grown))
	grown = append(grown, &slot[T]{value: value, generation: 1, occupied: true})
	s.slots.Store(&grown)
	s.live.Add(1)
	return NewKey(idx, 1)
}

func (s *Store[T]) lookup(key Key) *slot[T] {
	table := *s.slots.Load()
	idx := key.Index()
	if key.IsZero() || int(idx) >= len(table) {
		return nil
	}
	return table[idx]
}

// Get returns a copy of the value named by key, taken under the slot lock.
func (s *Store[T]) Get(key Key) (T, bool) {
	var zero T
	sl := s.lookup(key)
	if sl == nil {
		return zero, false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	if !sl.occupied || sl.generation != key.Generation() {
		return zero, false
	}
	return sl.value, true
}

// GetMut locks the slot named by key and returns a guard over its value.
// It blocks while another guard for the same key is live. Taking a second
// guard for a key already held on the same call path deadlocks.
func (s *Store[T]) GetMut(key Key) (*Guard[T], bool) {
	sl := s.lookup(key)
	if sl == nil {
		return nil, false
	}
	sl.mu.Lock()
	if !sl.occupied || sl.generation != key.Generation() {
		sl.mu.Unlock()
		return nil, false
	}
	return &Guard[T]{slot: sl, key: key}, true
}

// Contains reports whether key names a live value.
func (s *Store[T]) Contains(key Key) bool {
	sl := s.lookup(key)
	if sl == nil {
		return false
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return sl.occupied && sl.generation == key.Generation()
}

// Remove takes the value out of the store and releases its slot for reuse
// under a new generation.
func (s *Store[T]) Remove(key Key) (T, bool) {
	return s.RemoveIf(key, nil)
}

// RemoveIf removes the value only if pred is nil or returns true for it. The
// check and the removal happen under the same slot lock.
//
// Insert, Remove, RemoveIf and Each take the table lock. Never call them
// while holding a guard from the same store.
func (s *Store[T]) RemoveIf(key Key, pred func(*T) bool) (T, bool) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()

	sl := s.lookup(key)
	if sl == nil {
		return zero, false
	}
	sl.mu.Lock()
	if !sl.occupied || sl.generation != key.Generation() {
		sl.mu.Unlock()
		return zero, false
	}
	if pred != nil && !pred(&sl.value) {
		sl.mu.Unlock()
		return zero, false
	}
	value := sl.value
	sl.value = zero
	sl.occupied = false
	sl.generation++
	if sl.generation == 0 {
		sl.generation = 1
	}
	sl.mu.Unlock()

	s.freeList = append(s.freeList, key.Index())
	s.live.Add(-1)
	return value, true
}

// Len returns the number of live values.
func (s *Store[T]) Len() int {
	return int(s.live.Load())
}

// Cap returns the number of values the store holds before growing again.
func (s *Store[T]) Cap() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity
}

// Each calls fn for every live value. The whole table is held for the
// duration of the pass, so no insert or remove can interleave. Each visited
// slot is locked exactly once; fn must not lock the visited key again.
func (s *Store[T]) Each(fn func(Key, *T)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, sl := range *s.slots.Load() {
		sl.mu.Lock()
		if sl.occupied {
			fn(NewKey(uint32(idx), sl.generation), &sl.value)
		}
		sl.mu.Unlock()
	}
}

// Keys returns a snapshot of every live key, for copy-then-iterate passes
// that need to take guards themselves.
func (s *Store[T]) Keys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	table := *s.slots.Load()
	keys := make([]Key, 0, s.live.Load())
	for idx, sl := range table {
		sl.mu.Lock()
		if sl.occupied {
			keys = append(keys, NewKey(uint32(idx), sl.generation))
		}
		sl.mu.Unlock()
	}
	return keys
}
