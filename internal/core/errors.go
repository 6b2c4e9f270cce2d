package core

import "errors"

var (
	// ErrNetworkFailure wraps transport, status and decode failures from the backend.
	ErrNetworkFailure = errors.New("network failure")

	// ErrStaleResult marks a fetch that resolved after its store was invalidated.
	// Stores drop these results and never hand this error to callers.
	ErrStaleResult = errors.New("stale result")

	// ErrInvalidFilterTarget is returned when the empty employee sentinel is
	// passed to an employee-scoped fetch.
	ErrInvalidFilterTarget = errors.New("invalid filter target")

	ErrInvalidPage         = errors.New("invalid page")
	ErrTransactionNotFound = errors.New("transaction not found")
)
