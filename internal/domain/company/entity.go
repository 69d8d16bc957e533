package company

import (
	"time"

	"github.com/cmlabs-hris/presence-payroll/internal/domain/geofence"
)

// Company is the tenant. It carries the institution attendance configuration.
type Company struct {
	ID           string
	Name         string
	Username     string
	Latitude     *float64
	Longitude    *float64
	RadiusMeters float64
	Timezone     string
	LateCutoff   string // "HH:MM", local time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Defaults fill settings a company has not configured.
type Defaults struct {
	RadiusMeters float64
	LateCutoff   string
	Timezone     string
}

// Fence returns the configured geofence. The company radius wins over the default.
func (c Company) Fence(d Defaults) (geofence.Fence, error) {
	if c.Latitude == nil || c.Longitude == nil {
		return geofence.Fence{}, ErrGeofenceNotConfigured
	}
	radius := c.RadiusMeters
	if radius <= 0 {
		radius = d.RadiusMeters
	}
	return geofence.Fence{
		Center:       geofence.Point{Latitude: *c.Latitude, Longitude: *c.Longitude},
		RadiusMeters: radius,
	}, nil
}

// Location falls back to the default zone, then UTC.
func (c Company) Location(d Defaults) *time.Location {
	for _, name := range []string{c.Timezone, d.Timezone} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}

// IsLate reports whether clockIn falls after the cutoff on its own local day.
func (c Company) IsLate(clockIn time.Time, d Defaults) bool {
	cutoff := c.LateCutoff
	if cutoff == "" {
		cutoff = d.LateCutoff
	}
	if cutoff == "" {
		return false
	}
	t, err := time.Parse("15:04", cutoff)
	if err != nil {
		return false
	}
	local := clockIn.In(c.Location(d))
	limit := time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, local.Location())
	return local.After(limit)
}

// WorkDate truncates an instant to the company-local calendar day, expressed at UTC midnight.
func (c Company) WorkDate(at time.Time, d Defaults) time.Time {
	local := at.In(c.Location(d))
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
