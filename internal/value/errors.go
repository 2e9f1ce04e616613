package value

import "errors"

var (
	// ErrNotFound indicates a lookup of a name that is not in the store.
	ErrNotFound = errors.New("value not found")

	// ErrTypeMismatch indicates the stored type differs from the requested one.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDuplicateName indicates a name is already bound to an incompatible type.
	ErrDuplicateName = errors.New("duplicate name conflict")

	// ErrNotAllocated indicates a payload was requested from a value that only
	// has metadata (mentioned, declared or freed).
	ErrNotAllocated = errors.New("value not allocated")
)
