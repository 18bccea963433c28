package model

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Unit is a telemetry snapshot of a sanitation unit. It is supplied per call and
// never mutated by the decision engine.
type Unit struct {
	ID           string      `json:"id"`
	SerialNo     string      `json:"serialNo"`
	Location     string      `json:"location,omitempty"`
	FillLevel    Level       `json:"fillLevel"`    // percentage 0-100
	BatteryLevel Level       `json:"batteryLevel"` // percentage 0-100
	LastSeen     string      `json:"lastSeen,omitempty"`
	Coordinates  Coordinates `json:"coordinates,omitempty"`
}

// Level is a percentage reading decoded leniently from JSON. Numbers and numeric
// strings are accepted; null, booleans, objects and garbage decode to 0.
type Level float64

// UnmarshalJSON implements json.Unmarshaler.
func (l *Level) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*l = Level(finite(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, perr := strconv.ParseFloat(strings.TrimSpace(s), 64); perr == nil {
			*l = Level(finite(v))
			return nil
		}
	}
	*l = 0
	return nil
}

// Percent returns the level clamped into [0,100].
func (l Level) Percent() float64 {
	return Clamp(float64(l), 0, 100)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Clamp bounds v into [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
