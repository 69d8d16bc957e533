package company

import "errors"

var (
	ErrCompanyNotFound       = errors.New("company not found")
	ErrCompanyUsernameExists = errors.New("company username already exists")
	ErrGeofenceNotConfigured = errors.New("institution geofence is not configured")
)
