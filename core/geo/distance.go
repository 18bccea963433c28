// Package geo provides the distance metric used by route planning.
package geo

import (
	"math"

	"github.com/kilianp07/sanifleet/core/model"
)

// EarthRadiusKm is the mean earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// Metric returns the distance in kilometres between two coordinates.
type Metric func(a, b model.Coordinates) float64

// HaversineKm returns the great-circle distance between a and b in kilometres.
// Both coordinates must be valid pairs.
func HaversineKm(a, b model.Coordinates) float64 {
	lat1, lon1 := toRad(a.Lat()), toRad(a.Lon())
	lat2, lon2 := toRad(b.Lat()), toRad(b.Lon())
	dLat := lat2 - lat1
	dLon := lon2 - lon1
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return EarthRadiusKm * c
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
