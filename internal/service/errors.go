package service

import "errors"

// Task repository errors. Wrapped errors keep the underlying cause, so both
// the sentinel and the cause match with errors.Is.
var (
	// Validation errors
	ErrEmptyTitle   = errors.New("task title cannot be empty")
	ErrEmptyOwner   = errors.New("task owner cannot be empty")
	ErrMissingPhoto = errors.New("task photo is required")

	ErrNotFound    = errors.New("task not found")
	ErrPersistence = errors.New("task persistence failed")
	ErrAttachment  = errors.New("task photo storage failed")
)
