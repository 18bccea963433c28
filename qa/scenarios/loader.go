// Package scenarios replays YAML fleet scenarios through the decision engine
// and checks the decisions it takes.
package scenarios

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/sanifleet/core/engine"
	"github.com/kilianp07/sanifleet/core/model"
	"github.com/kilianp07/sanifleet/core/scheduler"
)

type UnitDef struct {
	ID          string    `yaml:"id"`
	SerialNo    string    `yaml:"serial_no"`
	Location    string    `yaml:"location"`
	Fill        float64   `yaml:"fill"`
	Battery     float64   `yaml:"battery"`
	MinutesAgo  int       `yaml:"minutes_ago"`
	Coordinates []float64 `yaml:"coordinates"`
}

// ToModel stamps the unit as last seen MinutesAgo before now.
func (u UnitDef) ToModel(now time.Time) model.Unit {
	return model.Unit{
		ID:           u.ID,
		SerialNo:     u.SerialNo,
		Location:     u.Location,
		FillLevel:    model.Level(u.Fill),
		BatteryLevel: model.Level(u.Battery),
		LastSeen:     now.Add(-time.Duration(u.MinutesAgo) * time.Minute).Format(time.RFC3339),
		Coordinates:  model.Coordinates(u.Coordinates),
	}
}

// HistoryDef generates PerDay bookings for Days consecutive days.
type HistoryDef struct {
	Start        string `yaml:"start"`
	Days         int    `yaml:"days"`
	PerDay       int    `yaml:"per_day"`
	SkipWeekends bool   `yaml:"skip_weekends"`
}

func (h HistoryDef) Bookings() ([]model.Booking, error) {
	start, err := time.Parse(model.DateLayout, h.Start)
	if err != nil {
		return nil, fmt.Errorf("history start: %w", err)
	}
	out := make([]model.Booking, 0, h.Days*h.PerDay)
	for d := 0; d < h.Days; d++ {
		day := start.AddDate(0, 0, d).Add(8 * time.Hour)
		if h.SkipWeekends && (day.Weekday() == time.Saturday || day.Weekday() == time.Sunday) {
			continue
		}
		for j := 0; j < h.PerDay; j++ {
			out = append(out, model.Booking{Date: day.Add(time.Duration(j) * time.Minute).Format(time.RFC3339)})
		}
	}
	return out, nil
}

type ForecastDef struct {
	HorizonDays    int        `yaml:"horizon_days"`
	CapacityPerDay float64    `yaml:"capacity_per_day"`
	History        HistoryDef `yaml:"history"`
}

type ScheduleExpectation struct {
	Visits   int      `yaml:"visits"`
	Deferred []string `yaml:"deferred"`
}

type Expected struct {
	Risks      map[string]string    `yaml:"risks"`
	RouteOrder []string             `yaml:"route_order"`
	Alerts     []string             `yaml:"alerts"`
	PeakDay    string               `yaml:"peak_day,omitempty"`
	Schedule   *ScheduleExpectation `yaml:"schedule,omitempty"`
}

type Scenario struct {
	Name        string                     `yaml:"name"`
	Description string                     `yaml:"description,omitempty"`
	Now         time.Time                  `yaml:"now"`
	Depot       []float64                  `yaml:"depot"`
	MinRisk     *float64                   `yaml:"min_risk,omitempty"`
	Schedule    *scheduler.SchedulerConfig `yaml:"schedule,omitempty"`
	Units       []UnitDef                  `yaml:"units"`
	Forecast    *ForecastDef               `yaml:"forecast,omitempty"`
	Expected    Expected                   `yaml:"expected"`
}

// EngineConfig returns the engine settings the scenario runs with.
func (sc *Scenario) EngineConfig() engine.Config {
	var cfg engine.Config
	if sc.Schedule != nil {
		cfg.Schedule = *sc.Schedule
	}
	return cfg
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario has no name", path)
	}
	if sc.Now.IsZero() {
		return nil, fmt.Errorf("%s: scenario has no reference time", path)
	}
	return &sc, nil
}
