package runtime

import "errors"

var (
	// ErrTypeMismatch is returned when a dereference access shape does
	// not match the variant of the target value. It is never silently
	// coerced and is recoverable by the caller.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrDanglingReference is returned when a handle names an id that
	// has already been reclaimed. It indicates a reference counting
	// defect in the caller and must not be masked.
	ErrDanglingReference = errors.New("dangling reference")
	// ErrNotFound is returned on keyed access to a missing mapping key.
	// It is distinct from ErrTypeMismatch: the access shape is fine, the
	// element just isn't there.
	ErrNotFound = errors.New("key not found")
	// ErrOutOfRange is returned on indexed access outside of a sequence.
	ErrOutOfRange = errors.New("index out of range")
	// ErrNoOpenFrame is returned when a binding operation has no open
	// frame to work with.
	ErrNoOpenFrame = errors.New("no open frame")
	// ErrUnknownBinding is returned when a name lookup fails in every
	// open frame.
	ErrUnknownBinding = errors.New("unknown binding")
)
