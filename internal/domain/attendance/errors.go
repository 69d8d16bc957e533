package attendance

import "errors"

// Attendance domain errors
var (
	ErrAttemptNotFound    = errors.New("attendance attempt not found")
	ErrSessionNotFound    = errors.New("clock session not found")
	ErrNoOpenSession      = errors.New("you have not clocked in today")
	ErrAlreadyClockedOut  = errors.New("you have already clocked out today")
	ErrInvalidCoordinates = errors.New("latitude and longitude must both be valid coordinates")
	ErrSessionExists      = errors.New("a clock session already exists for this day")
)
