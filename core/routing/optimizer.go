// Package routing sequences technician visits with a greedy heuristic that
// trades proximity against urgency.
package routing

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/kilianp07/sanifleet/core/geo"
	"github.com/kilianp07/sanifleet/core/model"
)

// Stop is a location to visit. UrgencyScore takes precedence over Priority
// when both are set.
type Stop struct {
	ID           string            `json:"id"`
	SerialNo     string            `json:"serialNo,omitempty"`
	Coordinates  model.Coordinates `json:"coordinates"`
	Priority     string            `json:"priority,omitempty"`
	UrgencyScore *float64          `json:"urgencyScore,omitempty"`
}

// PlannedStop is a stop placed on a route.
type PlannedStop struct {
	ID            string            `json:"id"`
	SerialNo      string            `json:"serialNo,omitempty"`
	Coordinates   model.Coordinates `json:"coordinates"`
	Priority      string            `json:"priority,omitempty"`
	UrgencyScore  float64           `json:"urgencyScore"`
	LegDistanceKm float64           `json:"legDistanceKm"`
}

// Route is the ordered visit plan.
type Route struct {
	OrderedStops    []PlannedStop `json:"orderedStops"`
	TotalDistanceKm float64       `json:"totalDistanceKm"`
}

// Urgency resolves the stop urgency in [0,1].
func (s Stop) Urgency() float64 {
	if s.UrgencyScore != nil && !math.IsNaN(*s.UrgencyScore) {
		return model.Clamp(*s.UrgencyScore, 0, 1)
	}
	return PriorityUrgency(s.Priority)
}

// PriorityUrgency maps a priority label to an urgency value.
func PriorityUrgency(p string) float64 {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "high":
		return 1.0
	case "medium":
		return 0.6
	case "low":
		return 0.2
	default:
		return 0.4
	}
}

// Optimizer orders stops greedily. At every step the remaining stop with the
// highest UrgencyWeight*urgency - DistanceWeight*distance/DistanceScaleKm is
// visited next. The distance term is intentionally unbounded.
type Optimizer struct {
	UrgencyWeight   float64
	DistanceWeight  float64
	DistanceScaleKm float64
	// MaxStops caps the number of stops per call. Zero means no limit.
	MaxStops int
	Distance geo.Metric
}

// NewOptimizer returns an optimizer using the haversine metric.
func NewOptimizer() Optimizer {
	return Optimizer{
		UrgencyWeight:   0.7,
		DistanceWeight:  0.3,
		DistanceScaleKm: 10,
		MaxStops:        500,
		Distance:        geo.HaversineKm,
	}
}

type pending struct {
	stop    Stop
	urgency float64
}

// Optimize returns the visit order starting from depot. The depot and every
// stop must carry a [lat, lon] pair within the WGS84 range.
func (o Optimizer) Optimize(depot model.Coordinates, stops []Stop) (Route, error) {
	if !depot.Valid() {
		return Route{}, fmt.Errorf("%w: depot must be a [lat, lon] pair", model.ErrInvalidInput)
	}
	if o.MaxStops > 0 && len(stops) > o.MaxStops {
		return Route{}, fmt.Errorf("%w: %d stops exceeds the limit of %d", model.ErrInvalidInput, len(stops), o.MaxStops)
	}
	remaining := make([]pending, 0, len(stops))
	for i, s := range stops {
		if !s.Coordinates.Valid() {
			return Route{}, fmt.Errorf("%w: stop %d (%s) has invalid coordinates", model.ErrInvalidInput, i, s.ID)
		}
		remaining = append(remaining, pending{stop: s, urgency: s.Urgency()})
	}

	dist := o.Distance
	if dist == nil {
		dist = geo.HaversineKm
	}
	scale := o.DistanceScaleKm
	if scale <= 0 {
		scale = 10
	}

	path := make([]PlannedStop, 0, len(stops))
	legs := make([]float64, 0, len(stops))
	current := depot
	for len(remaining) > 0 {
		best := 0
		bestScore := math.Inf(-1)
		bestDist := 0.0
		for i, r := range remaining {
			d := dist(current, r.stop.Coordinates)
			score := o.UrgencyWeight*r.urgency + o.DistanceWeight*(-d/scale)
			if score > bestScore {
				best, bestScore, bestDist = i, score, d
			}
		}
		next := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)

		leg := scalar.Round(bestDist, 2)
		legs = append(legs, leg)
		path = append(path, PlannedStop{
			ID:            next.stop.ID,
			SerialNo:      next.stop.SerialNo,
			Coordinates:   next.stop.Coordinates,
			Priority:      next.stop.Priority,
			UrgencyScore:  next.urgency,
			LegDistanceKm: leg,
		})
		current = next.stop.Coordinates
	}

	total := 0.0
	if len(legs) > 0 {
		total = scalar.Round(floats.Sum(legs), 2)
	}
	return Route{OrderedStops: path, TotalDistanceKm: total}, nil
}
