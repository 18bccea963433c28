// Package forecast turns booking history into a short-term daily demand
// forecast using a blend of a trailing moving average and a weekly seasonal
// naive estimate.
package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/sanifleet/core/model"
)

// DailyCount is the number of bookings on one UTC day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Point is the forecast for one future day.
type Point struct {
	Date     string  `json:"date"`
	Forecast float64 `json:"forecast"`
}

// Summary aggregates a forecast.
type Summary struct {
	AvgDailyForecast float64 `json:"avgDailyForecast"`
	PeakDay          Point   `json:"peakDay"`
}

// Result is the output of Forecast. Utilization is nil when no capacity was
// supplied.
type Result struct {
	Forecasts      []Point  `json:"forecasts"`
	Summary        Summary  `json:"summary"`
	Utilization    *float64 `json:"utilization"`
	Recommendation string   `json:"recommendation"`
}

// Lookup indexes forecast values by date.
func (r Result) Lookup() map[string]float64 {
	m := make(map[string]float64, len(r.Forecasts))
	for _, p := range r.Forecasts {
		m[p.Date] = p.Forecast
	}
	return m
}

const (
	msgNoCapacity = "Provide capacity to estimate utilization and deployment needs."
	msgLight      = "Demand is light. Consider rebalancing units from low-demand areas or running promos."
	msgAdequate   = "Capacity is adequate. Maintain current deployment with routine monitoring."
	msgHighFormat = "High demand expected. Deploy ~%d%% more units over the next month to avoid service degradation."
)

// Forecaster holds the blend parameters.
type Forecaster struct {
	Window          int // moving average window in days
	SeasonLag       int // seasonal naive lag in days
	AverageWeight   float64
	SeasonalWeight  float64
	BaselineDays    int
	WeekdayFactors  map[time.Weekday]float64
	HighUtilization float64
	LowUtilization  float64
	// TargetUtilization sizes the extra-units suggestion when demand is high.
	TargetUtilization float64
	StrictTimestamps  bool
	Now               func() time.Time
}

// NewForecaster returns a forecaster with the default weekly blend.
func NewForecaster() Forecaster {
	return Forecaster{
		Window:         7,
		SeasonLag:      7,
		AverageWeight:  0.6,
		SeasonalWeight: 0.4,
		BaselineDays:   7,
		WeekdayFactors: map[time.Weekday]float64{
			time.Saturday:  0.85,
			time.Sunday:    0.85,
			time.Wednesday: 1.1,
			time.Thursday:  1.1,
		},
		HighUtilization:   0.85,
		LowUtilization:    0.5,
		TargetUtilization: 0.75,
		Now:               time.Now,
	}
}

func (f Forecaster) now() time.Time {
	if f.Now == nil {
		return time.Now().UTC()
	}
	return f.Now().UTC()
}

// DailyCounts groups bookings by UTC day in ascending date order. Only days
// with at least one booking are returned.
func (f Forecaster) DailyCounts(bookings []model.Booking) ([]DailyCount, error) {
	now := f.now()
	byDay := make(map[string]int)
	for i, b := range bookings {
		t, ok := model.TimeOrNow(b.Date, now)
		if !ok && f.StrictTimestamps {
			return nil, fmt.Errorf("%w: booking %d has unparsable date %q", model.ErrInvalidInput, i, b.Date)
		}
		byDay[t.Format(model.DateLayout)]++
	}
	out := make([]DailyCount, 0, len(byDay))
	for d, c := range byDay {
		out = append(out, DailyCount{Date: d, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// series expands daily counts into a calendar-dense series starting at the
// first counted day. Missing days count as zero.
func series(daily []DailyCount) ([]float64, time.Time) {
	if len(daily) == 0 {
		return nil, time.Time{}
	}
	first, _ := time.Parse(model.DateLayout, daily[0].Date)
	last, _ := time.Parse(model.DateLayout, daily[len(daily)-1].Date)
	n := int(last.Sub(first).Hours()/24) + 1
	out := make([]float64, n)
	for _, d := range daily {
		t, _ := time.Parse(model.DateLayout, d.Date)
		out[int(t.Sub(first).Hours()/24)] = float64(d.Count)
	}
	return out, last
}

// MovingAverage returns the trailing mean over window values. Positions with
// fewer than window samples keep their raw value.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if window > 0 && i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = v
		}
	}
	return out
}

// SeasonalNaive returns the value lag positions earlier, or the value itself
// when there is not enough history.
func SeasonalNaive(values []float64, lag int) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if lag > 0 && i >= lag {
			out[i] = values[i-lag]
		} else {
			out[i] = v
		}
	}
	return out
}

func (f Forecaster) blend(values []float64) []float64 {
	ma := MovingAverage(values, f.Window)
	seasonal := SeasonalNaive(values, f.SeasonLag)
	out := make([]float64, len(values))
	for i := range values {
		out[i] = f.AverageWeight*ma[i] + f.SeasonalWeight*seasonal[i]
	}
	return out
}

func (f Forecaster) baseline(blended []float64) float64 {
	switch {
	case len(blended) == 0:
		return 0
	case len(blended) < f.BaselineDays:
		return blended[len(blended)-1]
	default:
		return stat.Mean(blended[len(blended)-f.BaselineDays:], nil)
	}
}

func (f Forecaster) weekdayFactor(d time.Weekday) float64 {
	if v, ok := f.WeekdayFactors[d]; ok {
		return v
	}
	return 1
}

// Forecast projects demand for the horizonDays days following the last day
// of history, or following today when history is empty.
func (f Forecaster) Forecast(bookings []model.Booking, horizonDays int, capacityPerDay float64) (Result, error) {
	if horizonDays < 0 {
		return Result{}, fmt.Errorf("%w: horizon must not be negative", model.ErrInvalidInput)
	}
	daily, err := f.DailyCounts(bookings)
	if err != nil {
		return Result{}, err
	}
	values, anchor := series(daily)
	if len(values) == 0 {
		anchor = model.Day(f.now())
	}
	base := f.baseline(f.blend(values))

	points := make([]Point, 0, horizonDays)
	vals := make([]float64, 0, horizonDays)
	for i := 1; i <= horizonDays; i++ {
		d := anchor.AddDate(0, 0, i)
		v := scalar.Round(math.Max(0, base*f.weekdayFactor(d.Weekday())), 2)
		points = append(points, Point{Date: d.Format(model.DateLayout), Forecast: v})
		vals = append(vals, v)
	}

	res := Result{Forecasts: points}
	avg := 0.0
	if len(vals) > 0 {
		avg = stat.Mean(vals, nil)
		res.Summary.PeakDay = points[floats.MaxIdx(vals)]
	}
	res.Summary.AvgDailyForecast = scalar.Round(avg, 2)

	if capacityPerDay > 0 {
		u := scalar.Round(model.Clamp(avg/capacityPerDay, 0, 1), 2)
		res.Utilization = &u
	}
	res.Recommendation = f.recommend(res.Utilization)
	return res, nil
}

func (f Forecaster) recommend(utilization *float64) string {
	if utilization == nil {
		return msgNoCapacity
	}
	u := *utilization
	switch {
	case u > f.HighUtilization:
		extra := math.Max(0, u/f.TargetUtilization-1)
		return fmt.Sprintf(msgHighFormat, int(math.Round(extra*100)))
	case u < f.LowUtilization:
		return msgLight
	default:
		return msgAdequate
	}
}
