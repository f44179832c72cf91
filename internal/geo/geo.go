// Package geo holds the spherical distance helpers shared by hospital
// matching and hotspot clustering.
package geo

import (
	"math"

	"github.com/mr1hm/go-triage-dispatch/internal/models"
)

// EarthRadiusKm is the mean Earth radius used for all great-circle distances.
const EarthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between a and b in kilometres.
func HaversineKm(a, b models.Location) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h a hair above 1 for antipodal points
	h = math.Min(1, h)
	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// HaversineMeters is HaversineKm in metres.
func HaversineMeters(a, b models.Location) float64 {
	return HaversineKm(a, b) * 1000
}

// Centroid is the arithmetic mean of the coordinates. It returns the zero
// Location for an empty slice.
func Centroid(points []models.Location) models.Location {
	if len(points) == 0 {
		return models.Location{}
	}
	var lat, lng float64
	for _, p := range points {
		lat += p.Lat
		lng += p.Lng
	}
	n := float64(len(points))
	return models.Location{Lat: lat / n, Lng: lng / n}
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
