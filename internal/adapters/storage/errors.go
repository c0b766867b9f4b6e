package storage

import "errors"

// Sentinel kinds for object store errors.
var (
	ErrObjectNotFound = errors.New("object not found")
	ErrStoreFailed    = errors.New("object store operation failed")
)
