package events

import (
	"time"

	"github.com/kilianp07/sanifleet/core/alerts"
	"github.com/kilianp07/sanifleet/core/booking"
	"github.com/kilianp07/sanifleet/core/forecast"
	"github.com/kilianp07/sanifleet/core/maintenance"
	"github.com/kilianp07/sanifleet/core/routing"
)

// Event is anything published on the decision bus.
type Event interface {
	OccurredAt() time.Time
}

// RiskAssessed is published after a maintenance scoring run.
type RiskAssessed struct {
	Assessments []maintenance.Assessment
	Duration    time.Duration
	Time        time.Time
}

// RoutePlanned is published when a route has been optimised.
type RoutePlanned struct {
	PlanID   string
	Depot    []float64
	Route    routing.Route
	Duration time.Duration
	Time     time.Time
}

// ForecastComputed is published for every demand forecast.
type ForecastComputed struct {
	Location    string
	HorizonDays int
	Result      forecast.Result
	Duration    time.Duration
	Time        time.Time
}

// BookingSuggested is published when the advisor recommends a date.
type BookingSuggested struct {
	Suggestion booking.Suggestion
	Duration   time.Duration
	Time       time.Time
}

// AlertRaised carries one operator alert.
type AlertRaised struct {
	Alert alerts.Alert
	Time  time.Time
}

// OperationFailed is published when an engine operation returns an error.
type OperationFailed struct {
	Operation string
	Err       error
	Duration  time.Duration
	Time      time.Time
}

func (e RiskAssessed) OccurredAt() time.Time     { return e.Time }
func (e RoutePlanned) OccurredAt() time.Time     { return e.Time }
func (e ForecastComputed) OccurredAt() time.Time { return e.Time }
func (e BookingSuggested) OccurredAt() time.Time { return e.Time }
func (e AlertRaised) OccurredAt() time.Time      { return e.Time }
func (e OperationFailed) OccurredAt() time.Time  { return e.Time }
