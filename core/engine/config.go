package engine

import (
	"fmt"

	"github.com/kilianp07/sanifleet/core/booking"
	"github.com/kilianp07/sanifleet/core/forecast"
	"github.com/kilianp07/sanifleet/core/maintenance"
	"github.com/kilianp07/sanifleet/core/routing"
	"github.com/kilianp07/sanifleet/core/scheduler"
)

// MaintenanceConfig tunes the risk scorer.
type MaintenanceConfig struct {
	FillWeight      float64 `json:"fill_weight"`
	BatteryWeight   float64 `json:"battery_weight"`
	OfflineWeight   float64 `json:"offline_weight"`
	HighThreshold   float64 `json:"high_threshold"`
	MediumThreshold float64 `json:"medium_threshold"`
}

// RoutingConfig tunes the route optimizer.
type RoutingConfig struct {
	UrgencyWeight   float64 `json:"urgency_weight"`
	DistanceWeight  float64 `json:"distance_weight"`
	DistanceScaleKm float64 `json:"distance_scale_km"`
	MaxStops        int     `json:"max_stops"`
	// MinRisk is the lowest risk score planned by maintenance routes.
	MinRisk float64 `json:"min_risk"`
}

// ForecastConfig tunes the demand forecaster.
type ForecastConfig struct {
	Window             int     `json:"window"`
	SeasonLag          int     `json:"season_lag"`
	AverageWeight      float64 `json:"average_weight"`
	SeasonalWeight     float64 `json:"seasonal_weight"`
	DefaultHorizonDays int     `json:"default_horizon_days"`
	MaxHorizonDays     int     `json:"max_horizon_days"`
}

// BookingConfig tunes the booking advisor.
type BookingConfig struct {
	HorizonDays     int     `json:"horizon_days"`
	RequestedWindow int     `json:"requested_window"`
	ForwardDays     int     `json:"forward_days"`
	DefaultCapacity float64 `json:"default_capacity"`
}

// Config groups the engine settings.
type Config struct {
	StrictTimestamps bool                      `json:"strict_timestamps"`
	HistoryDays      int                       `json:"history_days"`
	Maintenance      MaintenanceConfig         `json:"maintenance"`
	Routing          RoutingConfig             `json:"routing"`
	Forecast         ForecastConfig            `json:"forecast"`
	Booking          BookingConfig             `json:"booking"`
	Schedule         scheduler.SchedulerConfig `json:"schedule"`
}

// SetDefaults fills zero values with the stock heuristics.
func (c *Config) SetDefaults() {
	s := maintenance.NewScorer()
	setF(&c.Maintenance.FillWeight, s.FillWeight)
	setF(&c.Maintenance.BatteryWeight, s.BatteryWeight)
	setF(&c.Maintenance.OfflineWeight, s.OfflineWeight)
	setF(&c.Maintenance.HighThreshold, s.HighThreshold)
	setF(&c.Maintenance.MediumThreshold, s.MediumThreshold)

	o := routing.NewOptimizer()
	setF(&c.Routing.UrgencyWeight, o.UrgencyWeight)
	setF(&c.Routing.DistanceWeight, o.DistanceWeight)
	setF(&c.Routing.DistanceScaleKm, o.DistanceScaleKm)
	setI(&c.Routing.MaxStops, o.MaxStops)
	setF(&c.Routing.MinRisk, s.MediumThreshold)

	f := forecast.NewForecaster()
	setI(&c.Forecast.Window, f.Window)
	setI(&c.Forecast.SeasonLag, f.SeasonLag)
	setF(&c.Forecast.AverageWeight, f.AverageWeight)
	setF(&c.Forecast.SeasonalWeight, f.SeasonalWeight)
	setI(&c.Forecast.DefaultHorizonDays, 30)
	setI(&c.Forecast.MaxHorizonDays, 90)

	a := booking.NewAdvisor()
	setI(&c.Booking.HorizonDays, a.HorizonDays)
	setI(&c.Booking.RequestedWindow, a.RequestedWindow)
	setI(&c.Booking.ForwardDays, a.ForwardDays)
	setF(&c.Booking.DefaultCapacity, 80)

	c.Schedule.SetDefaults()
	setI(&c.HistoryDays, 90)
}

// Validate rejects settings the heuristics cannot work with.
func (c Config) Validate() error {
	if c.Maintenance.MediumThreshold >= c.Maintenance.HighThreshold {
		return fmt.Errorf("engine.maintenance: medium_threshold must be below high_threshold")
	}
	if c.Routing.MaxStops < 1 {
		return fmt.Errorf("engine.routing.max_stops must be positive")
	}
	if c.Forecast.Window < 1 || c.Forecast.SeasonLag < 1 {
		return fmt.Errorf("engine.forecast: window and season_lag must be positive")
	}
	if c.Forecast.DefaultHorizonDays > c.Forecast.MaxHorizonDays {
		return fmt.Errorf("engine.forecast: default_horizon_days exceeds max_horizon_days")
	}
	if c.Booking.DefaultCapacity < 0 {
		return fmt.Errorf("engine.booking.default_capacity must not be negative")
	}
	if err := c.Schedule.Validate(); err != nil {
		return fmt.Errorf("engine.schedule: %w", err)
	}
	return nil
}

func (c Config) scorer() maintenance.Scorer {
	s := maintenance.NewScorer()
	s.FillWeight = c.Maintenance.FillWeight
	s.BatteryWeight = c.Maintenance.BatteryWeight
	s.OfflineWeight = c.Maintenance.OfflineWeight
	s.HighThreshold = c.Maintenance.HighThreshold
	s.MediumThreshold = c.Maintenance.MediumThreshold
	s.StrictTimestamps = c.StrictTimestamps
	return s
}

func (c Config) optimizer() routing.Optimizer {
	o := routing.NewOptimizer()
	o.UrgencyWeight = c.Routing.UrgencyWeight
	o.DistanceWeight = c.Routing.DistanceWeight
	o.DistanceScaleKm = c.Routing.DistanceScaleKm
	o.MaxStops = c.Routing.MaxStops
	return o
}

func (c Config) forecaster() forecast.Forecaster {
	f := forecast.NewForecaster()
	f.Window = c.Forecast.Window
	f.SeasonLag = c.Forecast.SeasonLag
	f.AverageWeight = c.Forecast.AverageWeight
	f.SeasonalWeight = c.Forecast.SeasonalWeight
	f.StrictTimestamps = c.StrictTimestamps
	return f
}

func (c Config) advisor() booking.Advisor {
	a := booking.NewAdvisor()
	a.Forecaster = c.forecaster()
	a.HorizonDays = c.Booking.HorizonDays
	a.RequestedWindow = c.Booking.RequestedWindow
	a.ForwardDays = c.Booking.ForwardDays
	return a
}

func setF(p *float64, v float64) {
	if *p == 0 {
		*p = v
	}
}

func setI(p *int, v int) {
	if *p == 0 {
		*p = v
	}
}
