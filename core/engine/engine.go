// Package engine wires the pure decision components to the service
// boundary. Each operation validates its request, runs the heuristic, then
// publishes an event, appends a decision record and logs the outcome.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/sanifleet/core/alerts"
	"github.com/kilianp07/sanifleet/core/booking"
	"github.com/kilianp07/sanifleet/core/bookings"
	"github.com/kilianp07/sanifleet/core/decisionlog"
	"github.com/kilianp07/sanifleet/core/events"
	"github.com/kilianp07/sanifleet/core/forecast"
	"github.com/kilianp07/sanifleet/core/logger"
	"github.com/kilianp07/sanifleet/core/maintenance"
	"github.com/kilianp07/sanifleet/core/model"
	"github.com/kilianp07/sanifleet/core/monitoring"
	"github.com/kilianp07/sanifleet/core/routing"
	"github.com/kilianp07/sanifleet/core/scheduler"
	"github.com/kilianp07/sanifleet/core/unitstatus"
)

// Publisher receives engine events. *eventbus.Bus[events.Event] implements it.
type Publisher interface {
	Publish(events.Event)
}

// Engine runs decision operations.
type Engine struct {
	cfg        Config
	scorer     maintenance.Scorer
	optimizer  routing.Optimizer
	forecaster forecast.Forecaster
	advisor    booking.Advisor
	alerts     alerts.Generator
	scheduler  scheduler.Scheduler

	bus     Publisher
	store   decisionlog.Store
	units   unitstatus.Store
	history bookings.Repository
	log     logger.Logger
	mon     monitoring.Monitor
	now     func() time.Time
	newID   func() string
}

// Option customises an Engine.
type Option func(*Engine)

func WithPublisher(p Publisher) Option { return func(e *Engine) { e.bus = p } }
func WithDecisionLog(s decisionlog.Store) Option { return func(e *Engine) { e.store = s } }
func WithUnitStore(s unitstatus.Store) Option { return func(e *Engine) { e.units = s } }
func WithBookingRepository(r bookings.Repository) Option { return func(e *Engine) { e.history = r } }
func WithLogger(l logger.Logger) Option { return func(e *Engine) { e.log = l } }

// WithMonitor reports failed operations that are not caused by bad input.
// Defaults to the global monitor.
func WithMonitor(m monitoring.Monitor) Option { return func(e *Engine) { e.mon = m } }

// WithClock fixes the reference time used by every component.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// New builds an engine from cfg. Missing collaborators are replaced by
// no-op implementations.
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:        cfg,
		scorer:     cfg.scorer(),
		optimizer:  cfg.optimizer(),
		forecaster: cfg.forecaster(),
		advisor:    cfg.advisor(),
		alerts:     alerts.NewGenerator(),
		scheduler:  scheduler.Scheduler{Config: cfg.Schedule},
		log:        logger.Nop{},
		mon:        monitoring.Current(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, o := range opts {
		o(e)
	}
	if e.mon == nil {
		e.mon = monitoring.NopMonitor{}
	}
	e.scorer.Now = e.now
	e.forecaster.Now = e.now
	e.advisor.Now = e.now
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// AssessMaintenance scores units. When units is empty and a unit store is
// configured, the stored snapshots are scored instead.
func (e *Engine) AssessMaintenance(ctx context.Context, units []model.Unit) ([]maintenance.Assessment, error) {
	start := e.now()
	if len(units) == 0 && e.units != nil {
		units = e.units.Units(unitstatus.Filter{})
	}
	for i, u := range units {
		if u.ID == "" {
			return nil, e.fail(ctx, decisionlog.OpMaintenance, start, fmt.Errorf("%w: unit %d has no id", model.ErrInvalidInput, i))
		}
	}
	res, err := e.scorer.Score(units)
	if err != nil {
		return nil, e.fail(ctx, decisionlog.OpMaintenance, start, err)
	}
	if e.units != nil {
		e.units.RecordAssessments(res)
	}
	d := e.now().Sub(start)
	e.publish(events.RiskAssessed{Assessments: res, Duration: d, Time: e.now()})
	high := 0
	for _, a := range res {
		if a.Risk == maintenance.RiskHigh {
			high++
		}
	}
	e.record(ctx, decisionlog.OpMaintenance, start, assessmentIDs(res),
		fmt.Sprintf("%d units scored, %d high risk", len(res), high), res)
	return res, nil
}

// RoutePlan is a route with its identifier.
type RoutePlan struct {
	PlanID string `json:"planId"`
	routing.Route
}

// PlanRoute orders stops from depot.
func (e *Engine) PlanRoute(ctx context.Context, depot model.Coordinates, stops []routing.Stop) (RoutePlan, error) {
	return e.planRoute(ctx, decisionlog.OpRoute, depot, stops)
}

func (e *Engine) planRoute(ctx context.Context, op decisionlog.Operation, depot model.Coordinates, stops []routing.Stop) (RoutePlan, error) {
	start := e.now()
	r, err := e.optimizer.Optimize(depot, stops)
	if err != nil {
		return RoutePlan{}, e.fail(ctx, op, start, err)
	}
	plan := RoutePlan{PlanID: e.newID(), Route: r}
	e.publish(events.RoutePlanned{PlanID: plan.PlanID, Depot: depot, Route: r, Duration: e.now().Sub(start), Time: e.now()})
	ids := make([]string, len(r.OrderedStops))
	for i, s := range r.OrderedStops {
		ids[i] = s.ID
	}
	e.record(ctx, op, start, ids,
		fmt.Sprintf("%d stops, %.2f km", len(r.OrderedStops), r.TotalDistanceKm), plan)
	return plan, nil
}

// MaintenanceRoute couples the assessments with the route visiting the units
// at or above the risk threshold.
type MaintenanceRoute struct {
	MinRisk     float64                  `json:"minRisk"`
	Assessments []maintenance.Assessment `json:"assessments"`
	Plan        RoutePlan                `json:"plan"`
}

// PlanMaintenanceRoute scores units and routes a technician to the risky
// ones. A nil minRisk uses the configured threshold.
func (e *Engine) PlanMaintenanceRoute(ctx context.Context, depot model.Coordinates, units []model.Unit, minRisk *float64) (MaintenanceRoute, error) {
	if !depot.Valid() {
		return MaintenanceRoute{}, fmt.Errorf("%w: depot must be a [lat, lon] pair", model.ErrInvalidInput)
	}
	threshold := e.cfg.Routing.MinRisk
	if minRisk != nil {
		threshold = model.Clamp(*minRisk, 0, 1)
	}
	as, err := e.AssessMaintenance(ctx, units)
	if err != nil {
		return MaintenanceRoute{}, err
	}
	stops := routing.StopsFromAssessments(as, threshold)
	plan, err := e.planRoute(ctx, decisionlog.OpMaintenanceRoute, depot, stops)
	if err != nil {
		return MaintenanceRoute{}, err
	}
	return MaintenanceRoute{MinRisk: threshold, Assessments: as, Plan: plan}, nil
}

// ForecastRequest asks for a demand forecast. Bookings nil means the
// configured repository is queried.
type ForecastRequest struct {
	Bookings       []model.Booking `json:"bookings"`
	HorizonDays    int             `json:"horizonDays"`
	CapacityPerDay float64         `json:"capacityPerDay"`
	Location       string          `json:"location,omitempty"`
}

// ForecastDemand runs the demand forecaster.
func (e *Engine) ForecastDemand(ctx context.Context, req ForecastRequest) (forecast.Result, error) {
	start := e.now()
	horizon := req.HorizonDays
	if horizon == 0 {
		horizon = e.cfg.Forecast.DefaultHorizonDays
	}
	if horizon < 1 || horizon > e.cfg.Forecast.MaxHorizonDays {
		return forecast.Result{}, e.fail(ctx, decisionlog.OpForecast, start,
			fmt.Errorf("%w: horizonDays must be between 1 and %d", model.ErrInvalidInput, e.cfg.Forecast.MaxHorizonDays))
	}
	if req.CapacityPerDay < 0 {
		return forecast.Result{}, e.fail(ctx, decisionlog.OpForecast, start,
			fmt.Errorf("%w: capacityPerDay must not be negative", model.ErrInvalidInput))
	}
	history, err := e.historyFor(ctx, req.Bookings, req.Location)
	if err != nil {
		return forecast.Result{}, e.fail(ctx, decisionlog.OpForecast, start, err)
	}
	res, err := e.forecaster.Forecast(history, horizon, req.CapacityPerDay)
	if err != nil {
		return forecast.Result{}, e.fail(ctx, decisionlog.OpForecast, start, err)
	}
	e.publish(events.ForecastComputed{Location: req.Location, HorizonDays: horizon, Result: res, Duration: e.now().Sub(start), Time: e.now()})
	e.record(ctx, decisionlog.OpForecast, start, nil,
		fmt.Sprintf("%d days from %d bookings, avg %.2f", horizon, len(history), res.Summary.AvgDailyForecast), res)
	return res, nil
}

// SuggestBooking runs the booking advisor. A zero capacity uses the
// configured default.
func (e *Engine) SuggestBooking(ctx context.Context, req booking.Request) (booking.Suggestion, error) {
	start := e.now()
	if req.CapacityPerDay < 0 {
		return booking.Suggestion{}, e.fail(ctx, decisionlog.OpSuggest, start,
			fmt.Errorf("%w: capacityPerDay must not be negative", model.ErrInvalidInput))
	}
	if req.CapacityPerDay == 0 {
		req.CapacityPerDay = e.cfg.Booking.DefaultCapacity
	}
	history, err := e.historyFor(ctx, req.BookingsHistory, req.Location)
	if err != nil {
		return booking.Suggestion{}, e.fail(ctx, decisionlog.OpSuggest, start, err)
	}
	req.BookingsHistory = history
	s, err := e.advisor.Suggest(req)
	if err != nil {
		return booking.Suggestion{}, e.fail(ctx, decisionlog.OpSuggest, start, err)
	}
	e.publish(events.BookingSuggested{Suggestion: s, Duration: e.now().Sub(start), Time: e.now()})
	e.record(ctx, decisionlog.OpSuggest, start, nil,
		fmt.Sprintf("suggested %s (score %.3f)", s.Suggestion.Date, s.Suggestion.Score), s)
	return s, nil
}

// AlertsRequest combines fleet telemetry with an optional forecast request.
type AlertsRequest struct {
	Units    []model.Unit     `json:"units"`
	Forecast *ForecastRequest `json:"forecast,omitempty"`
}

// Alerts scores the fleet, optionally forecasts demand and derives alerts.
// Every alert above info severity is published on the bus.
func (e *Engine) Alerts(ctx context.Context, req AlertsRequest) ([]alerts.Alert, error) {
	start := e.now()
	as, err := e.AssessMaintenance(ctx, req.Units)
	if err != nil {
		return nil, err
	}
	var fc *forecast.Result
	if req.Forecast != nil {
		res, err := e.ForecastDemand(ctx, *req.Forecast)
		if err != nil {
			return nil, err
		}
		fc = &res
	}
	out := e.alerts.Generate(as, fc)
	var unitIDs []string
	for _, a := range out {
		unitIDs = append(unitIDs, a.Units...)
		if a.Severity != alerts.SeverityInfo {
			e.publish(events.AlertRaised{Alert: a, Time: e.now()})
		}
	}
	e.record(ctx, decisionlog.OpAlerts, start, unitIDs, fmt.Sprintf("%d alerts", len(out)), out)
	return out, nil
}

// PlanServiceSchedule scores units and spreads the service visits over the
// configured horizon starting today.
func (e *Engine) PlanServiceSchedule(ctx context.Context, units []model.Unit) (scheduler.Plan, error) {
	as, err := e.AssessMaintenance(ctx, units)
	if err != nil {
		return scheduler.Plan{}, err
	}
	start := e.now()
	plan, err := e.scheduler.GeneratePlan(start, as)
	if err != nil {
		return scheduler.Plan{}, e.fail(ctx, decisionlog.OpSchedule, start, err)
	}
	ids := make([]string, len(plan.Visits))
	late := 0
	for i, v := range plan.Visits {
		ids[i] = v.UnitID
		if v.Late {
			late++
		}
	}
	e.record(ctx, decisionlog.OpSchedule, start, ids,
		fmt.Sprintf("%d visits from %s, %d late, %d deferred", len(plan.Visits), plan.Start, late, len(plan.Deferred)), plan)
	return plan, nil
}

func (e *Engine) historyFor(ctx context.Context, given []model.Booking, location string) ([]model.Booking, error) {
	if given != nil || e.history == nil {
		return given, nil
	}
	since := model.Day(e.now()).AddDate(0, 0, -e.cfg.HistoryDays)
	h, err := e.history.History(ctx, bookings.Query{Location: location, Since: since})
	if err != nil {
		return nil, fmt.Errorf("load booking history: %w", err)
	}
	return h, nil
}

func (e *Engine) publish(ev events.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

func (e *Engine) fail(ctx context.Context, op decisionlog.Operation, start time.Time, err error) error {
	d := e.now().Sub(start)
	e.publish(events.OperationFailed{Operation: string(op), Err: err, Duration: d, Time: e.now()})
	if errors.Is(err, model.ErrInvalidInput) {
		e.log.Warnf("%s rejected: %v", op, err)
	} else {
		e.log.Errorf("%s failed: %v", op, err)
		e.mon.CaptureException(err, map[string]string{"operation": string(op)})
	}
	e.append(ctx, decisionlog.Record{
		ID:         e.newID(),
		Timestamp:  start.UTC(),
		Operation:  op,
		DurationMS: ms(d),
		Error:      err.Error(),
	})
	return err
}

func (e *Engine) record(ctx context.Context, op decisionlog.Operation, start time.Time, unitIDs []string, summary string, output any) {
	d := e.now().Sub(start)
	e.log.Infow("decision", map[string]any{
		"operation":   string(op),
		"summary":     summary,
		"duration_ms": ms(d),
	})
	rec := decisionlog.Record{
		ID:         e.newID(),
		Timestamp:  start.UTC(),
		Operation:  op,
		UnitIDs:    unitIDs,
		Summary:    summary,
		DurationMS: ms(d),
	}
	if b, err := json.Marshal(output); err == nil {
		rec.Output = b
	}
	e.append(ctx, rec)
}

func (e *Engine) append(ctx context.Context, rec decisionlog.Record) {
	if e.store == nil {
		return
	}
	if err := e.store.Append(ctx, rec); err != nil {
		e.log.Warnf("decision log append: %v", err)
	}
}

// Decisions queries the decision log. It returns an empty slice when no
// store is configured.
func (e *Engine) Decisions(ctx context.Context, q decisionlog.Query) ([]decisionlog.Record, error) {
	if e.store == nil {
		return []decisionlog.Record{}, nil
	}
	return e.store.Query(ctx, q)
}

// UnitStatus lists stored unit snapshots.
func (e *Engine) UnitStatus(f unitstatus.Filter) []unitstatus.Status {
	if e.units == nil {
		return []unitstatus.Status{}
	}
	return e.units.List(f)
}

func assessmentIDs(as []maintenance.Assessment) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.ID
	}
	return out
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
