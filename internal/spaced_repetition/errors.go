package spaced_repetition

import "errors"

// Sentinel errors for the scheduler.
// Use errors.Is to check: errors.Is(err, spaced_repetition.ErrInvalidRating)
var (
	ErrInvalidRating = errors.New("spaced_repetition: invalid rating")
	ErrInvalidConfig = errors.New("spaced_repetition: invalid config")
)
