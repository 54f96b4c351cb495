package interfaces

import "errors"

var (
	// ErrNotFound is returned when no document has the requested key.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when a unique key is already taken.
	ErrDuplicate = errors.New("duplicate document")
	// ErrStaleState is returned when a conditional update finds no document
	// in the expected state. The document may or may not exist.
	ErrStaleState = errors.New("document not in expected state")
)
