package authoring

import "errors"

var (
	// ErrParseDegraded marks a payload recovered by a late fallback. Never fatal.
	ErrParseDegraded = errors.New("parse degraded")
	// ErrMissingPayload means no usable text was found for the requested mode.
	ErrMissingPayload = errors.New("missing payload")
	// ErrPreconditionFailed is raised before any external call.
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrVersionConflict means two saves raced on version numbering.
	ErrVersionConflict = errors.New("version conflict")
	ErrNotFound        = errors.New("not found")

	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownMode       = errors.New("unknown generation mode")
	ErrGenerationFailed  = errors.New("generation failed")
)
