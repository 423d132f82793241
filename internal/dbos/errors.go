package dbos

import "errors"

// Sentinel errors returned by store operations, checked with errors.Is.
var (
	ErrNotFound           = errors.New("dbos: not found")
	ErrVersionConflict    = errors.New("dbos: version conflict")
	ErrInvalidTransition  = errors.New("dbos: invalid state transition")
	ErrRetryLimitExceeded = errors.New("dbos: retry limit exceeded")
)
