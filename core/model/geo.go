package model

import (
	"fmt"
	"math"
)

// Coordinates is a [latitude, longitude] pair in decimal degrees.
type Coordinates []float64

// NewCoordinates builds a coordinate pair.
func NewCoordinates(lat, lon float64) Coordinates { return Coordinates{lat, lon} }

// Valid reports whether c holds exactly two finite values within the WGS84 range.
func (c Coordinates) Valid() bool {
	if len(c) != 2 {
		return false
	}
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c[0] >= -90 && c[0] <= 90 && c[1] >= -180 && c[1] <= 180
}

// Lat returns the latitude. It panics when c is not a pair; call Valid first.
func (c Coordinates) Lat() float64 { return c[0] }

// Lon returns the longitude.
func (c Coordinates) Lon() float64 { return c[1] }

func (c Coordinates) String() string {
	if len(c) != 2 {
		return fmt.Sprintf("%v", []float64(c))
	}
	return fmt.Sprintf("[%.5f, %.5f]", c[0], c[1])
}
