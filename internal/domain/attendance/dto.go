package attendance

import (
	"math"
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/geofence"
	"github.com/cmlabs-hris/presence-payroll/internal/pkg/validator"
)

const (
	LocationAvailable   = "available"
	LocationUnavailable = "unavailable"
	LocationDenied      = "denied"
)

// FailureKindGeofenceUnavailable marks attempts made without a location fix.
const FailureKindGeofenceUnavailable = "GeofenceUnavailable"

type RecordAttemptRequest struct {
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	LocationStatus string   `json:"location_status,omitempty" validate:"omitempty,oneof=available unavailable denied"`
}

func (r *RecordAttemptRequest) Validate() error {
	errs := validator.Struct(r)

	if r.LocationStatus == LocationUnavailable || r.LocationStatus == LocationDenied {
		return errs.OrNil()
	}
	if (r.Latitude == nil) != (r.Longitude == nil) {
		errs = append(errs, validator.ValidationError{Field: "latitude", Message: ErrInvalidCoordinates.Error()})
		return errs
	}
	if r.Latitude != nil {
		p := geofence.Point{Latitude: *r.Latitude, Longitude: *r.Longitude}
		if err := p.Validate(); err != nil {
			errs = append(errs, validator.ValidationError{Field: "latitude", Message: ErrInvalidCoordinates.Error()})
		}
	}

	return errs.OrNil()
}

// Location returns nil when the client could not or would not share a position.
func (r *RecordAttemptRequest) Location() *geofence.Point {
	if r.LocationStatus == LocationUnavailable || r.LocationStatus == LocationDenied {
		return nil
	}
	if r.Latitude == nil || r.Longitude == nil {
		return nil
	}
	return &geofence.Point{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

type AttemptResponse struct {
	AttemptID      string           `json:"attempt_id"`
	EmployeeID     string           `json:"employee_id"`
	Verified       bool             `json:"verified"`
	Outcome        string           `json:"outcome"`
	DistanceMeters *float64         `json:"distance_meters"`
	RadiusMeters   float64          `json:"radius_meters"`
	FailureKind    *string          `json:"failure_kind,omitempty"`
	AttemptedAt    time.Time        `json:"attempted_at"`
	WorkDate       string           `json:"work_date"`
	Session        *SessionResponse `json:"session,omitempty"`
}

type SessionResponse struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employee_id"`
	EmployeeName *string    `json:"employee_name,omitempty"`
	WorkDate     string     `json:"work_date"`
	ClockInAt    time.Time  `json:"clock_in_at"`
	ClockOutAt   *time.Time `json:"clock_out_at,omitempty"`
	IsLate       bool       `json:"is_late"`
	Source       string     `json:"source"`
	AttemptID    *string    `json:"attempt_id,omitempty"`
}

type AttemptFilter struct {
	EmployeeID *string
	Outcome    *string
	From       *string
	To         *string
	Page       int
	Limit      int
}

func (f *AttemptFilter) Validate() error {
	var errs validator.ValidationErrors
	if f.Outcome != nil && *f.Outcome != string(OutcomeSuccess) && *f.Outcome != string(OutcomeFailedOutOfRange) {
		errs = append(errs, validator.ValidationError{Field: "outcome", Message: "must be SUCCESS or FAILED_OUT_OF_RANGE"})
	}
	errs = append(errs, validateRange(f.From, f.To)...)
	normalizePage(&f.Page, &f.Limit)
	return errs.OrNil()
}

type SessionFilter struct {
	EmployeeID *string
	From       *string
	To         *string
	Page       int
	Limit      int
}

func (f *SessionFilter) Validate() error {
	errs := validateRange(f.From, f.To)
	normalizePage(&f.Page, &f.Limit)
	return errs.OrNil()
}

type ListAttemptResponse struct {
	Attempts   []AttemptResponse `json:"attempts"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

type ListSessionResponse struct {
	Sessions   []SessionResponse `json:"sessions"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	Limit      int               `json:"limit"`
}

func validateRange(from, to *string) validator.ValidationErrors {
	var errs validator.ValidationErrors
	var fromDate, toDate time.Time
	var ok bool
	if from != nil {
		if fromDate, ok = validator.IsValidDate(*from); !ok {
			errs = append(errs, validator.ValidationError{Field: "from", Message: "must be in YYYY-MM-DD format"})
		}
	}
	if to != nil {
		if toDate, ok = validator.IsValidDate(*to); !ok {
			errs = append(errs, validator.ValidationError{Field: "to", Message: "must be in YYYY-MM-DD format"})
		}
	}
	if len(errs) == 0 && from != nil && to != nil && toDate.Before(fromDate) {
		errs = append(errs, validator.ValidationError{Field: "to", Message: "must not be before from"})
	}
	return errs
}

func normalizePage(page, limit *int) {
	if *page < 1 {
		*page = 1
	}
	if *limit < 1 || *limit > 100 {
		*limit = 20
	}
}

// FiniteDistance hides +Inf, which JSON cannot carry.
func FiniteDistance(d float64) *float64 {
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return nil
	}
	return &d
}
