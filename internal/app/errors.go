package service

import "errors"

// Sentinel kinds for service-level refusals.
var (
	ErrForbidden         = errors.New("operation not allowed")
	ErrSeriesClosed      = errors.New("series does not accept submissions")
	ErrNotApplied        = errors.New("participant is not applied to the grade")
	ErrNoCurrentGrade    = errors.New("no grade is currently running")
	ErrProfileIncomplete = errors.New("participant profile is incomplete")
	ErrResultsNotPublic  = errors.New("results are not published")
	ErrQueueFull         = errors.New("export queue is full")
)
