// Package booking recommends rental dates from forecasted demand.
package booking

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats/scalar"

	"github.com/kilianp07/sanifleet/core/forecast"
	"github.com/kilianp07/sanifleet/core/model"
)

// Request describes the booking a customer is planning. Location, Units and
// DurationDays are echoed back untouched.
type Request struct {
	Date            string          `json:"date,omitempty"`
	Location        string          `json:"location,omitempty"`
	Units           int             `json:"units,omitempty"`
	DurationDays    int             `json:"durationDays,omitempty"`
	CapacityPerDay  float64         `json:"capacityPerDay"`
	BookingsHistory []model.Booking `json:"bookingsHistory,omitempty"`
}

// Candidate is one scored date.
type Candidate struct {
	Date        string  `json:"date"`
	Offset      int     `json:"offset"`
	Forecast    float64 `json:"forecast"`
	Utilization float64 `json:"utilization"`
	Score       float64 `json:"score"`
}

// Suggestion is the advisor output.
type Suggestion struct {
	Requested      string           `json:"requested,omitempty"`
	Location       string           `json:"location,omitempty"`
	Units          int              `json:"units,omitempty"`
	DurationDays   int              `json:"durationDays,omitempty"`
	Suggestion     Candidate        `json:"suggestion"`
	Alternatives   []Candidate      `json:"alternatives"`
	Candidates     []Candidate      `json:"candidates"`
	CapacityPerDay float64          `json:"capacityPerDay"`
	Summary        forecast.Summary `json:"summary"`
	Recommendation string           `json:"recommendation"`
}

// Advisor scores dates around a requested day, preferring low forecast load
// and closeness to the request.
type Advisor struct {
	Forecaster        forecast.Forecaster
	HorizonDays       int
	RequestedWindow   int // days either side of a requested date
	ForwardDays       int // days ahead considered without a requested date
	UtilizationWeight float64
	ProximityWeight   float64
	Alternatives      int
	Now               func() time.Time
}

// NewAdvisor returns an advisor with the default 30 day forecast horizon.
func NewAdvisor() Advisor {
	return Advisor{
		Forecaster:        forecast.NewForecaster(),
		HorizonDays:       30,
		RequestedWindow:   3,
		ForwardDays:       7,
		UtilizationWeight: 0.7,
		ProximityWeight:   0.3,
		Alternatives:      3,
		Now:               time.Now,
	}
}

func (a Advisor) now() time.Time {
	if a.Now == nil {
		return time.Now().UTC()
	}
	return a.Now().UTC()
}

// Suggest returns the best date and its alternatives. A requested date that
// cannot be parsed is rejected with model.ErrInvalidInput.
func (a Advisor) Suggest(req Request) (Suggestion, error) {
	now := a.now()
	anchor := model.Day(now)
	offsets, window := a.forwardOffsets()
	if req.Date != "" {
		t, err := model.ParseTime(req.Date)
		if err != nil {
			return Suggestion{}, fmt.Errorf("requested date: %w", err)
		}
		anchor = model.Day(t)
		offsets, window = a.aroundOffsets()
	}

	fc := a.Forecaster
	fc.Now = func() time.Time { return now }
	res, err := fc.Forecast(req.BookingsHistory, a.HorizonDays, req.CapacityPerDay)
	if err != nil {
		return Suggestion{}, err
	}
	lookup := res.Lookup()

	candidates := make([]Candidate, 0, len(offsets))
	for _, off := range offsets {
		date := anchor.AddDate(0, 0, off).Format(model.DateLayout)
		load, ok := lookup[date]
		if !ok {
			load = res.Summary.AvgDailyForecast
		}
		util := 0.0
		if req.CapacityPerDay > 0 {
			util = model.Clamp(load/req.CapacityPerDay, 0, 1)
		}
		proximity := 1.0
		if window > 0 {
			proximity = 1 - math.Min(1, math.Abs(float64(off))/float64(window))
		}
		score := a.UtilizationWeight*(1-util) + a.ProximityWeight*proximity
		candidates = append(candidates, Candidate{
			Date:        date,
			Offset:      off,
			Forecast:    load,
			Utilization: scalar.Round(util, 2),
			Score:       scalar.Round(score, 3),
		})
	}

	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	out := Suggestion{
		Location:       req.Location,
		Units:          req.Units,
		DurationDays:   req.DurationDays,
		Alternatives:   []Candidate{},
		Candidates:     candidates,
		CapacityPerDay: req.CapacityPerDay,
		Summary:        res.Summary,
		Recommendation: res.Recommendation,
	}
	if req.Date != "" {
		out.Requested = anchor.Format(model.DateLayout)
	}
	if len(ranked) > 0 {
		out.Suggestion = ranked[0]
		end := 1 + a.Alternatives
		if end > len(ranked) {
			end = len(ranked)
		}
		out.Alternatives = append(out.Alternatives, ranked[1:end]...)
	}
	return out, nil
}

func (a Advisor) forwardOffsets() ([]int, int) {
	offs := make([]int, 0, a.ForwardDays)
	for i := 1; i <= a.ForwardDays; i++ {
		offs = append(offs, i)
	}
	return offs, a.ForwardDays
}

func (a Advisor) aroundOffsets() ([]int, int) {
	offs := make([]int, 0, 2*a.RequestedWindow+1)
	for i := -a.RequestedWindow; i <= a.RequestedWindow; i++ {
		offs = append(offs, i)
	}
	return offs, a.RequestedWindow
}
