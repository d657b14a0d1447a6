package models

import "errors"

var (
	// ErrValidation indicates malformed operator input (negative price,
	// empty required field, empty batch).
	ErrValidation = errors.New("validation failed")

	// ErrNotFound indicates an operation referenced an unknown listing id.
	ErrNotFound = errors.New("listing not found")

	// ErrInvalidState indicates a transition attempted from the wrong
	// status, e.g. releasing a listing that is not reserved.
	ErrInvalidState = errors.New("invalid listing state")
)
