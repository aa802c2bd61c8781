package physics

import "errors"

var (
	// ErrNotFound is returned for stale or unknown tags.
	ErrNotFound = errors.New("physics object not found")
	// ErrInUse is returned when a drop is deferred because other objects
	// still depend on the target. It is an expected teardown outcome.
	ErrInUse = errors.New("physics object still in use")
	// ErrAlreadyBound is returned when a joint already holds two bodies.
	ErrAlreadyBound = errors.New("joint already bound")
	// ErrIncompatibleVariant is returned when an operation needs a capability
	// the body's payload does not have.
	ErrIncompatibleVariant = errors.New("incompatible body variant")
	// ErrInconsistent reports a broken cross-reference between objects.
	ErrInconsistent = errors.New("physics bookkeeping inconsistent")
)
