package simulator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/kilianp07/sanifleet/core/model"
)

// Unit is a simulated sanitation unit. Fill rises with usage until a service
// crew empties it; the battery drains until it drops under ChargeBelow and is
// then charged back to full.
type Unit struct {
	ID             string
	SerialNo       string
	Location       string
	Coordinates    model.Coordinates
	Fill           float64
	Battery        *Battery
	UsagePerHour   float64
	DisconnectRate float64
	// ServiceAt is the fill level at which the unit is emptied. Zero means 100.
	ServiceAt float64
	// ChargeBelow starts a charge cycle. Zero means 10.
	ChargeBelow float64

	mu       sync.Mutex
	charging bool
	lastSeen time.Time
}

// Step advances the unit by dt. It reports whether the unit is online for
// this tick; offline units keep their previous lastSeen.
func (u *Unit) Step(now time.Time, dt time.Duration, rng *rand.Rand) bool {
	u.mu.Lock()
	defer u.mu.Unlock()

	serviceAt := u.ServiceAt
	if serviceAt <= 0 {
		serviceAt = 100
	}
	chargeBelow := u.ChargeBelow
	if chargeBelow <= 0 {
		chargeBelow = 10
	}

	u.Fill += u.UsagePerHour * dt.Hours() * (0.5 + rng.Float64())
	if u.Fill >= serviceAt {
		u.Fill = 0
	}
	u.Fill = model.Clamp(u.Fill, 0, 100)

	if u.charging {
		if u.Battery.Charge(dt) >= 100 {
			u.charging = false
		}
	} else if u.Battery.Drain(dt) < chargeBelow {
		u.charging = true
	}

	if u.DisconnectRate > 0 && rng.Float64() < u.DisconnectRate {
		return false
	}
	u.lastSeen = now.UTC()
	return true
}

// Snapshot returns the telemetry payload for the unit.
func (u *Unit) Snapshot() model.Unit {
	u.mu.Lock()
	defer u.mu.Unlock()
	s := model.Unit{
		ID:           u.ID,
		SerialNo:     u.SerialNo,
		Location:     u.Location,
		FillLevel:    model.Level(round1(u.Fill)),
		BatteryLevel: model.Level(round1(u.Battery.Get())),
		Coordinates:  u.Coordinates,
	}
	if !u.lastSeen.IsZero() {
		s.LastSeen = u.lastSeen.Format(time.RFC3339)
	}
	return s
}

func round1(v float64) float64 { return float64(int(v*10+0.5)) / 10 }
