package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/sanifleet/core/metrics"
)

// PromSink exposes decision engine activity as Prometheus metrics.
type PromSink struct {
	decisions   *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	unitRisk    *prometheus.GaugeVec
	routeKm     prometheus.Histogram
	routeStops  prometheus.Histogram
	utilization *prometheus.GaugeVec
	alerts      *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on reg. Collectors that already
// exist on reg are reused. A nil registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sanifleet_decisions_total",
			Help: "Decision engine operations by outcome",
		}, []string{"operation", "failed"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sanifleet_decision_duration_seconds",
			Help:    "Time spent computing a decision",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"operation"}),
		unitRisk: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sanifleet_unit_risk_score",
			Help: "Latest maintenance risk score per unit",
		}, []string{"unit_id", "location"}),
		routeKm: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sanifleet_route_distance_km",
			Help:    "Total distance of planned routes",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
		routeStops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sanifleet_route_stops",
			Help:    "Number of stops per planned route",
			Buckets: prometheus.LinearBuckets(0, 5, 10),
		}),
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sanifleet_forecast_utilization_ratio",
			Help: "Forecast fleet utilization of the latest forecast per location",
		}, []string{"location"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sanifleet_alerts_total",
			Help: "Raised operator alerts",
		}, []string{"kind", "severity"}),
	}

	var err error
	if s.decisions, err = register(reg, s.decisions); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, s.duration); err != nil {
		return nil, err
	}
	if s.unitRisk, err = register(reg, s.unitRisk); err != nil {
		return nil, err
	}
	if s.routeKm, err = register(reg, s.routeKm); err != nil {
		return nil, err
	}
	if s.routeStops, err = register(reg, s.routeStops); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, s.utilization); err != nil {
		return nil, err
	}
	if s.alerts, err = register(reg, s.alerts); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *PromSink) RecordDecision(ev coremetrics.DecisionEvent) error {
	s.decisions.WithLabelValues(ev.Operation, strconv.FormatBool(ev.Failed)).Inc()
	s.duration.WithLabelValues(ev.Operation).Observe(ev.Duration.Seconds())
	return nil
}

func (s *PromSink) RecordUnitRisk(evs []coremetrics.UnitRiskEvent) error {
	for _, e := range evs {
		s.unitRisk.WithLabelValues(e.UnitID, e.Location).Set(e.RiskScore)
	}
	return nil
}

func (s *PromSink) RecordRoute(ev coremetrics.RouteEvent) error {
	s.routeKm.Observe(ev.TotalDistanceKm)
	s.routeStops.Observe(float64(ev.Stops))
	return nil
}

// RecordForecast sets the utilization gauge. Forecasts without capacity are
// ignored.
func (s *PromSink) RecordForecast(ev coremetrics.ForecastEvent) error {
	if ev.Utilization < 0 {
		return nil
	}
	s.utilization.WithLabelValues(ev.Location).Set(ev.Utilization)
	return nil
}

func (s *PromSink) RecordAlert(ev coremetrics.AlertEvent) error {
	s.alerts.WithLabelValues(ev.Kind, ev.Severity).Inc()
	return nil
}
