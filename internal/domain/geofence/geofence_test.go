package geofence

import (
	"math"
	"testing"

	"github.com/cmlabs-hris/presence-payroll/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
)

var school = Point{Latitude: 6.5244, Longitude: 3.3792}

// north returns a point the given number of meters due north of p.
func north(p Point, meters float64) Point {
	dLat := meters / utils.EarthRadiusMeters * 180 / math.Pi
	return Point{Latitude: p.Latitude + dLat, Longitude: p.Longitude}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][2]Point{
		{school, {Latitude: 6.6, Longitude: 3.2}},
		{{Latitude: -33.86, Longitude: 151.21}, {Latitude: 51.5, Longitude: -0.12}},
		{{Latitude: 0, Longitude: 179.9}, {Latitude: 0, Longitude: -179.9}},
	}
	for _, p := range pairs {
		assert.InDelta(t, Distance(p[0], p[1]), Distance(p[1], p[0]), 1e-6)
	}
}

func TestDistance_SamePointIsZero(t *testing.T) {
	assert.Equal(t, 0.0, Distance(school, school))
}

func TestEvaluate_RadiusBoundary(t *testing.T) {
	fence := Fence{Center: school, RadiusMeters: 100}

	inside := north(school, 99)
	v := Evaluate(&inside, fence)
	assert.True(t, v.Verified)
	assert.InDelta(t, 99, v.DistanceMeters, 0.01)

	outside := north(school, 101)
	v = Evaluate(&outside, fence)
	assert.False(t, v.Verified)
	assert.InDelta(t, 101, v.DistanceMeters, 0.01)
}

func TestEvaluate_VerifiedMatchesRadius(t *testing.T) {
	p := north(school, 650)
	for _, radius := range []float64{0, 100, 500, 649, 651, 1000} {
		v := Evaluate(&p, Fence{Center: school, RadiusMeters: radius})
		assert.Equal(t, v.DistanceMeters <= radius, v.Verified, "radius %v", radius)
	}
}

func TestEvaluate_UnavailableLocation(t *testing.T) {
	v := Evaluate(nil, Fence{Center: school, RadiusMeters: 1e9})
	assert.False(t, v.Verified)
	assert.True(t, v.Unavailable)
	assert.True(t, math.IsInf(v.DistanceMeters, 1))
}

func TestPoint_Validate(t *testing.T) {
	assert.NoError(t, school.Validate())
	assert.ErrorIs(t, Point{Latitude: 91, Longitude: 0}.Validate(), ErrInvalidCoordinates)
	assert.ErrorIs(t, Point{Latitude: 0, Longitude: -181}.Validate(), ErrInvalidCoordinates)
	assert.ErrorIs(t, Point{Latitude: math.NaN(), Longitude: 0}.Validate(), ErrInvalidCoordinates)
}
