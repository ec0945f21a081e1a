package dao

import "errors"

// Common, reusable DAO errors, matched with errors.Is.

var (
	// ErrNotFound is returned when the requested entity does not exist in the
	// underlying storage.
	ErrNotFound = errors.New("dao: not found")

	// ErrInvalidID indicates that the supplied ID/key is empty or otherwise
	// invalid.
	ErrInvalidID = errors.New("dao: invalid id")

	// ErrNilEntity is returned when the caller attempts to persist a nil
	// pointer.
	ErrNilEntity = errors.New("dao: nil entity")

	// ErrDuplicate is returned by ledgers when a record with the same key was
	// already appended.
	ErrDuplicate = errors.New("dao: duplicate record")
)
