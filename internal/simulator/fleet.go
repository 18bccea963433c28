// Package simulator generates synthetic sanitation-unit telemetry and
// publishes it the way deployed units do.
package simulator

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand"

	"github.com/kilianp07/sanifleet/core/model"
)

// FleetConfig holds parameters for bulk fleet generation.
type FleetConfig struct {
	Size int
	// Locations are assigned round robin. Empty means a single "Depot" site.
	Locations []string
	Center    model.Coordinates
	RadiusKm  float64
	// UsagePerHour is the average fill gain in percentage points per hour.
	UsagePerHour   float64
	DisconnectRate float64
}

// GenerateFleet creates Size units with IDs unit0001..unitNNNN spread around
// Center. Starting fill and battery levels are drawn from rng.
func GenerateFleet(cfg FleetConfig, rng *rand.Rand) []*Unit {
	if cfg.Size <= 0 {
		return nil
	}
	locs := cfg.Locations
	if len(locs) == 0 {
		locs = []string{"Depot"}
	}
	center := cfg.Center
	if !center.Valid() {
		center = model.NewCoordinates(-1.2921, 36.8219)
	}
	usage := cfg.UsagePerHour
	if usage <= 0 {
		usage = 4
	}
	out := make([]*Unit, cfg.Size)
	for i := 0; i < cfg.Size; i++ {
		out[i] = &Unit{
			ID:             fmt.Sprintf("unit%04d", i+1),
			SerialNo:       fmt.Sprintf("SN-%04d", i+1),
			Location:       locs[i%len(locs)],
			Coordinates:    scatter(center, cfg.RadiusKm, rng),
			Fill:           rng.Float64() * 70,
			Battery:        &Battery{Level: 40 + rng.Float64()*60, DrainPerHour: 1.5, ChargePerHour: 25},
			UsagePerHour:   usage * (0.5 + rng.Float64()),
			DisconnectRate: cfg.DisconnectRate,
		}
	}
	return out
}

// scatter returns a point at most radiusKm from c.
func scatter(c model.Coordinates, radiusKm float64, rng *rand.Rand) model.Coordinates {
	if radiusKm <= 0 {
		return model.NewCoordinates(c.Lat(), c.Lon())
	}
	const kmPerDegree = 111.32
	d := radiusKm * math.Sqrt(rng.Float64())
	theta := rng.Float64() * 2 * math.Pi
	dLat := d * math.Cos(theta) / kmPerDegree
	dLon := d * math.Sin(theta) / (kmPerDegree * math.Cos(c.Lat()*math.Pi/180))
	return model.NewCoordinates(round6(c.Lat()+dLat), round6(c.Lon()+dLon))
}

func round6(v float64) float64 { return math.Round(v*1e6) / 1e6 }

// LoadLocations reads a JSON array of site names.
func LoadLocations(data []byte) ([]string, error) {
	var locs []string
	if err := json.Unmarshal(data, &locs); err != nil {
		return nil, err
	}
	return locs, nil
}
