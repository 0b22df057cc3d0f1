// Package geo holds the great-circle math used for coordinate tie-breaks and
// duplicate detection.
package geo

import (
	"math"

	"github.com/dtnitsch/placeshelf/models"
)

// EarthRadiusMeters is the mean earth radius used by Distance.
const EarthRadiusMeters = 6371e3

// Valid reports whether lat/lng are finite and inside the geographic range.
func Valid(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Distance returns the Haversine great-circle distance between a and b in meters.
func Distance(a, b models.Coordinates) float64 {
	alat := degreesToRadians(a.Lat)
	blat := degreesToRadians(b.Lat)
	dlat := blat - alat
	dlng := degreesToRadians(b.Lng - a.Lng)

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(alat)*math.Cos(blat)*
			math.Sin(dlng/2)*math.Sin(dlng/2)

	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WithinRadius reports whether b lies within radius meters of a.
func WithinRadius(a, b models.Coordinates, radius float64) bool {
	return Distance(a, b) <= radius
}

func degreesToRadians(value float64) float64 { return value * math.Pi / 180 }
