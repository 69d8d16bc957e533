// Package geofence decides whether a submitted location falls inside a company's
// configured circular boundary.
package geofence

import (
	"errors"
	"math"

	"github.com/cmlabs-hris/presence-payroll/internal/pkg/utils"
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

func (p Point) Validate() error {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) ||
		math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return ErrInvalidCoordinates
	}
	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// Fence is a circular boundary around a reference point.
type Fence struct {
	Center       Point
	RadiusMeters float64
}

// Verdict is the outcome of evaluating one location against a Fence.
type Verdict struct {
	DistanceMeters float64
	Verified       bool
	// Unavailable is set when no location was captured; DistanceMeters is then +Inf.
	Unavailable bool
}

// Distance is symmetric and zero for identical points.
func Distance(a, b Point) float64 {
	return utils.CalculateHaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// Evaluate compares a submitted location with the fence. A nil location never verifies.
func Evaluate(submitted *Point, fence Fence) Verdict {
	if submitted == nil {
		return Verdict{DistanceMeters: math.Inf(1), Unavailable: true}
	}
	d := Distance(*submitted, fence.Center)
	return Verdict{
		DistanceMeters: d,
		Verified:       d <= fence.RadiusMeters,
	}
}
