package store

import "errors"

// Store errors. All are recoverable: the failed operation leaves the
// collection untouched and the caller surfaces the message to the user.
var (
	// ErrDuplicateEmptyEntry is returned by Add while an open (empty-title)
	// entry exists. Only one entry may be open at a time.
	ErrDuplicateEmptyEntry = errors.New("an empty entry is already open")

	// ErrEmptyTitle is returned by Edit when the supplied title is empty.
	ErrEmptyTitle = errors.New("title cannot be empty")

	// ErrNotFound is returned when no todo matches the requested id.
	ErrNotFound = errors.New("todo not found")
)
