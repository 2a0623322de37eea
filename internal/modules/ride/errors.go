package ride

import "errors"

// Every guard violation wraps exactly one of these; callers match with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("ride not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrAlreadyAssigned   = errors.New("ride already accepted by another driver")
	ErrAlreadyRated      = errors.New("already rated")
	ErrRatingOutOfRange  = errors.New("rating must be between 1 and 5")
	ErrRideFull          = errors.New("shared ride is already full")
	ErrConflict          = errors.New("ride was modified concurrently")
	ErrPaymentDisabled   = errors.New("payments are not configured")
)
