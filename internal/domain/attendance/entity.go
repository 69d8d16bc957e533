package attendance

import (
	"time"
)

type Outcome string

const (
	OutcomeSuccess          Outcome = "SUCCESS"
	OutcomeFailedOutOfRange Outcome = "FAILED_OUT_OF_RANGE"
)

// Attempt is one clock-in attempt. It is written once and never changed.
type Attempt struct {
	ID                  string
	CompanyID           string
	EmployeeID          string
	AttemptedAt         time.Time
	WorkDate            time.Time // company-local day at UTC midnight
	SubmittedLat        *float64
	SubmittedLng        *float64
	DistanceMeters      float64 // +Inf when the location was unavailable
	RadiusMeters        float64
	Verified            bool
	Outcome             Outcome
	LocationUnavailable bool
	CreatedAt           time.Time
}

type SessionSource string

const (
	SessionSourceGeofence        SessionSource = "GEOFENCE"
	SessionSourceDisputeOverride SessionSource = "DISPUTE_OVERRIDE"
)

// ClockSession is the presence record for one employee on one day.
type ClockSession struct {
	ID         string
	CompanyID  string
	EmployeeID string
	WorkDate   time.Time
	ClockInAt  time.Time
	ClockOutAt *time.Time
	IsLate     bool
	Source     SessionSource
	AttemptID  *string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// DTO / Join
	EmployeeName *string
}

// PresenceSummary aggregates sessions for one employee over a period.
type PresenceSummary struct {
	EmployeeID    string
	DaysPresent   int
	OverrideDays  int
	LatenessCount int
}
