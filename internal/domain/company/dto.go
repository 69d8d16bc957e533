package company

import (
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/pkg/validator"
)

type CompanyResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"company_name"`
	Username     string    `json:"company_username"`
	Latitude     *float64  `json:"latitude,omitempty"`
	Longitude    *float64  `json:"longitude,omitempty"`
	RadiusMeters float64   `json:"radius_meters"`
	Timezone     string    `json:"timezone"`
	LateCutoff   string    `json:"late_cutoff"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UpdateGeofenceRequest only touches fields that are present.
type UpdateGeofenceRequest struct {
	Latitude     *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	RadiusMeters *float64 `json:"radius_meters,omitempty" validate:"omitempty,gt=0,lte=100000"`
	Timezone     *string  `json:"timezone,omitempty"`
	LateCutoff   *string  `json:"late_cutoff,omitempty"`
}

func (r *UpdateGeofenceRequest) Validate() error {
	errs := validator.Struct(r)

	if (r.Latitude == nil) != (r.Longitude == nil) {
		errs = append(errs, validator.ValidationError{Field: "latitude", Message: "latitude and longitude must be set together"})
	}
	if r.Timezone != nil && !validator.IsValidTimezone(*r.Timezone) {
		errs = append(errs, validator.ValidationError{Field: "timezone", Message: "must be a valid IANA timezone"})
	}
	if r.LateCutoff != nil && !validator.IsValidClock(*r.LateCutoff) {
		errs = append(errs, validator.ValidationError{Field: "late_cutoff", Message: "must be in HH:MM format"})
	}

	return errs.OrNil()
}
