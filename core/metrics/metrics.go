package metrics

import "time"

// DecisionEvent is recorded once per engine operation.
type DecisionEvent struct {
	Operation string
	Items     int
	Duration  time.Duration
	Failed    bool
	Time      time.Time
}

// Sink records decision engine activity for observability purposes.
type Sink interface {
	RecordDecision(ev DecisionEvent) error
}

// UnitRiskEvent is the assessed risk of one unit.
type UnitRiskEvent struct {
	UnitID       string
	SerialNo     string
	Location     string
	RiskScore    float64
	Risk         string
	FillLevel    float64
	BatteryLevel float64
	Time         time.Time
}

// UnitRiskRecorder records maintenance assessments.
type UnitRiskRecorder interface {
	RecordUnitRisk(evs []UnitRiskEvent) error
}

// RouteEvent summarises a planned route.
type RouteEvent struct {
	PlanID          string
	Stops           int
	TotalDistanceKm float64
	Time            time.Time
}

// RouteRecorder records planned routes.
type RouteRecorder interface {
	RecordRoute(ev RouteEvent) error
}

// ForecastEvent summarises a demand forecast.
type ForecastEvent struct {
	Location         string
	HorizonDays      int
	AvgDailyForecast float64
	PeakForecast     float64
	// Utilization is negative when no capacity was supplied.
	Utilization float64
	Time        time.Time
}

// ForecastRecorder records demand forecasts.
type ForecastRecorder interface {
	RecordForecast(ev ForecastEvent) error
}

// SuggestionEvent describes the date picked by the booking advisor.
type SuggestionEvent struct {
	Location    string
	Date        string
	Score       float64
	Utilization float64
	Time        time.Time
}

// SuggestionRecorder records booking suggestions.
type SuggestionRecorder interface {
	RecordSuggestion(ev SuggestionEvent) error
}

// AlertEvent is a raised operator alert.
type AlertEvent struct {
	Kind     string
	Severity string
	Time     time.Time
}

// AlertRecorder records alerts.
type AlertRecorder interface {
	RecordAlert(ev AlertEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDecision(DecisionEvent) error     { return nil }
func (NopSink) RecordUnitRisk([]UnitRiskEvent) error   { return nil }
func (NopSink) RecordRoute(RouteEvent) error           { return nil }
func (NopSink) RecordForecast(ForecastEvent) error     { return nil }
func (NopSink) RecordSuggestion(SuggestionEvent) error { return nil }
func (NopSink) RecordAlert(AlertEvent) error           { return nil }
