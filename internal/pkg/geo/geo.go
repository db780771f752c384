package geo

import (
	"errors"
	"math"
)

const earthRadiusM = 6371000

// ErrInvalidCoordinate is returned for NaN, infinite, or out-of-range
// degree values.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Point is a (latitude, longitude) pair in decimal degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

func validPoint(p Point) bool {
	if math.IsNaN(p.Latitude) || math.IsInf(p.Latitude, 0) ||
		math.IsNaN(p.Longitude) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180
}

// Distance returns the great-circle distance between a and b in meters
// using the haversine formula.
func Distance(a, b Point) (float64, error) {
	if !validPoint(a) || !validPoint(b) {
		return 0, ErrInvalidCoordinate
	}

	dLat := (b.Latitude - a.Latitude) * (math.Pi / 180.0)
	dLon := (b.Longitude - a.Longitude) * (math.Pi / 180.0)

	lat1Rad := a.Latitude * (math.Pi / 180.0)
	lat2Rad := b.Latitude * (math.Pi / 180.0)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1Rad)*math.Cos(lat2Rad)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusM * c, nil
}

// WithinFence reports whether user falls inside the circular fence around
// center, and the measured distance in meters. Invalid input fails closed:
// the point is reported outside the fence.
func WithinFence(user, center Point, radiusMeters float64) (bool, float64, error) {
	d, err := Distance(user, center)
	if err != nil {
		return false, 0, err
	}
	return d <= radiusMeters, d, nil
}

// WithinFencePtr is WithinFence for optional coordinates. A missing
// coordinate on either side fails closed rather than being treated as
// zero.
func WithinFencePtr(userLat, userLon, centerLat, centerLon *float64, radiusMeters float64) (bool, float64) {
	if userLat == nil || userLon == nil || centerLat == nil || centerLon == nil {
		return false, 0
	}
	within, d, err := WithinFence(
		Point{Latitude: *userLat, Longitude: *userLon},
		Point{Latitude: *centerLat, Longitude: *centerLon},
		radiusMeters,
	)
	if err != nil {
		return false, 0
	}
	return within, d
}
