package simulator

import (
	"sync"
	"time"

	"github.com/kilianp07/sanifleet/core/model"
)

// Battery models the unit's solar-backed battery as a percentage.
type Battery struct {
	Level         float64 // percentage 0-100
	DrainPerHour  float64 // percentage points lost per hour in service
	ChargePerHour float64 // percentage points gained per hour while charging
	mu            sync.Mutex
}

// Drain discharges the battery for dt and returns the new level.
func (b *Battery) Drain(dt time.Duration) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if dt <= 0 {
		return b.Level
	}
	b.Level = model.Clamp(b.Level-b.DrainPerHour*dt.Hours(), 0, 100)
	return b.Level
}

// Charge recharges the battery for dt and returns the new level.
func (b *Battery) Charge(dt time.Duration) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if dt <= 0 {
		return b.Level
	}
	b.Level = model.Clamp(b.Level+b.ChargePerHour*dt.Hours(), 0, 100)
	return b.Level
}

// Get returns the current level.
func (b *Battery) Get() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Level
}
