package model

import "errors"

// Sentinel kinds for domain validation errors.
var (
	ErrInvalid = errors.New("invalid model")
)
