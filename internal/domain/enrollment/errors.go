package enrollment

import "errors"

// Sentinel kinds for enrollment failures.
var (
	ErrEnlistmentClosed    = errors.New("enlistment closed")
	ErrAlreadyEnlisted     = errors.New("already enlisted")
	ErrMissingProfileField = errors.New("missing required profile field")
)
