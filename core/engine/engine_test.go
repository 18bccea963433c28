package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/sanifleet/core/alerts"
	"github.com/kilianp07/sanifleet/core/booking"
	"github.com/kilianp07/sanifleet/core/bookings"
	"github.com/kilianp07/sanifleet/core/decisionlog"
	"github.com/kilianp07/sanifleet/core/events"
	"github.com/kilianp07/sanifleet/core/maintenance"
	"github.com/kilianp07/sanifleet/core/model"
	"github.com/kilianp07/sanifleet/core/monitoring"
	"github.com/kilianp07/sanifleet/core/routing"
	"github.com/kilianp07/sanifleet/core/unitstatus"
	"github.com/kilianp07/sanifleet/internal/eventbus"
)

var refNow = time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)

type fixture struct {
	eng   *Engine
	sub   <-chan events.Event
	log   *decisionlog.MemoryStore
	units *unitstatus.MemoryStore
	repo  *bookings.MemoryRepository
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()
	bus := eventbus.New[events.Event](eventbus.WithBuffer(64))
	t.Cleanup(bus.Close)
	f := fixture{
		sub:   bus.Subscribe(),
		log:   decisionlog.NewMemoryStore(0),
		units: unitstatus.NewMemoryStore(),
		repo:  bookings.NewMemoryRepository(),
	}
	eng, err := New(cfg,
		WithPublisher(bus),
		WithDecisionLog(f.log),
		WithUnitStore(f.units),
		WithBookingRepository(f.repo),
		WithClock(func() time.Time { return refNow }),
	)
	require.NoError(t, err)
	n := 0
	eng.newID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	f.eng = eng
	return f
}

func drain(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

func unit(id string, fill, battery float64, coords ...float64) model.Unit {
	return model.Unit{
		ID:           id,
		SerialNo:     "SN-" + id,
		FillLevel:    model.Level(fill),
		BatteryLevel: model.Level(battery),
		LastSeen:     refNow.Format(time.RFC3339),
		Coordinates:  coords,
	}
}

func records(t *testing.T, s decisionlog.Store, op decisionlog.Operation) []decisionlog.Record {
	t.Helper()
	recs, err := s.Query(context.Background(), decisionlog.Query{Operation: op})
	require.NoError(t, err)
	return recs
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := New(Config{Maintenance: MaintenanceConfig{HighThreshold: 0.2, MediumThreshold: 0.5}})
	assert.Error(t, err)
}

func TestAssessMaintenance(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	got, err := f.eng.AssessMaintenance(ctx, []model.Unit{unit("a", 20, 90), unit("b", 100, 0)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, maintenance.RiskHigh, got[0].Risk)

	evs := drain(f.sub)
	require.Len(t, evs, 1)
	assert.IsType(t, events.RiskAssessed{}, evs[0])

	recs := records(t, f.log, decisionlog.OpMaintenance)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"b", "a"}, recs[0].UnitIDs)
	assert.Equal(t, "2 units scored, 1 high risk", recs[0].Summary)
	assert.NotEmpty(t, recs[0].Output)
	assert.Empty(t, recs[0].Error)
}

func TestAssessMaintenance_UsesStoredSnapshots(t *testing.T) {
	f := newFixture(t, Config{})
	f.units.Upsert(unit("u1", 100, 0), refNow)
	f.units.Upsert(unit("u2", 10, 100), refNow)

	got, err := f.eng.AssessMaintenance(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].ID)

	st := f.eng.UnitStatus(unitstatus.Filter{})
	require.Len(t, st, 2)
	require.NotNil(t, st[0].LastAssessment)
	assert.Equal(t, maintenance.RiskHigh, st[0].LastAssessment.Risk)
}

func TestAssessMaintenance_MissingID(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.eng.AssessMaintenance(context.Background(), []model.Unit{{FillLevel: 10}})
	require.ErrorIs(t, err, model.ErrInvalidInput)

	evs := drain(f.sub)
	require.Len(t, evs, 1)
	failed, ok := evs[0].(events.OperationFailed)
	require.True(t, ok)
	assert.Equal(t, "maintenance", failed.Operation)

	recs := records(t, f.log, decisionlog.OpMaintenance)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Error, "no id")
}

func TestPlanRoute(t *testing.T) {
	f := newFixture(t, Config{})
	depot := model.NewCoordinates(-1.286, 36.817)
	stops := []routing.Stop{
		{ID: "far", Coordinates: model.NewCoordinates(-1.30, 36.90), Priority: "low"},
		{ID: "near", Coordinates: model.NewCoordinates(-1.29, 36.82), Priority: "high"},
	}
	plan, err := f.eng.PlanRoute(context.Background(), depot, stops)
	require.NoError(t, err)
	assert.Equal(t, "id-1", plan.PlanID)
	require.Len(t, plan.OrderedStops, 2)
	assert.Equal(t, "near", plan.OrderedStops[0].ID)

	evs := drain(f.sub)
	require.Len(t, evs, 1)
	rp, ok := evs[0].(events.RoutePlanned)
	require.True(t, ok)
	assert.Equal(t, "id-1", rp.PlanID)

	recs := records(t, f.log, decisionlog.OpRoute)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"near", "far"}, recs[0].UnitIDs)
}

func TestPlanRoute_TooManyStops(t *testing.T) {
	f := newFixture(t, Config{Routing: RoutingConfig{MaxStops: 1}})
	stops := []routing.Stop{
		{ID: "a", Coordinates: model.NewCoordinates(0, 0)},
		{ID: "b", Coordinates: model.NewCoordinates(0, 1)},
	}
	_, err := f.eng.PlanRoute(context.Background(), model.NewCoordinates(0, 0), stops)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestPlanMaintenanceRoute(t *testing.T) {
	f := newFixture(t, Config{})
	units := []model.Unit{
		unit("ok", 20, 90, -1.28, 36.81),
		unit("risky", 100, 0, -1.29, 36.82),
		unit("nocoords", 100, 0),
	}
	got, err := f.eng.PlanMaintenanceRoute(context.Background(), model.NewCoordinates(-1.286, 36.817), units, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.33, got.MinRisk)
	assert.Len(t, got.Assessments, 3)
	require.Len(t, got.Plan.OrderedStops, 1)
	assert.Equal(t, "risky", got.Plan.OrderedStops[0].ID)
	assert.Equal(t, "high", got.Plan.OrderedStops[0].Priority)

	all := 0.0
	got, err = f.eng.PlanMaintenanceRoute(context.Background(), model.NewCoordinates(-1.286, 36.817), units, &all)
	require.NoError(t, err)
	assert.Len(t, got.Plan.OrderedStops, 2)

	assert.Len(t, records(t, f.log, decisionlog.OpMaintenanceRoute), 2)

	_, err = f.eng.PlanMaintenanceRoute(context.Background(), nil, units, nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestForecastDemand(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()

	res, err := f.eng.ForecastDemand(ctx, ForecastRequest{CapacityPerDay: 80})
	require.NoError(t, err)
	assert.Len(t, res.Forecasts, 30)

	for _, h := range []int{-1, 91} {
		_, err = f.eng.ForecastDemand(ctx, ForecastRequest{HorizonDays: h})
		assert.ErrorIs(t, err, model.ErrInvalidInput, "horizon %d", h)
	}
	_, err = f.eng.ForecastDemand(ctx, ForecastRequest{HorizonDays: 7, CapacityPerDay: -1})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	recs := records(t, f.log, decisionlog.OpForecast)
	require.Len(t, recs, 4)
	assert.Empty(t, recs[0].Error)
	assert.NotEmpty(t, recs[3].Error)
}

func TestForecastDemand_LoadsRepositoryHistory(t *testing.T) {
	f := newFixture(t, Config{})
	for d := 1; d <= 3; d++ {
		day := refNow.AddDate(0, 0, -d).Format(model.DateLayout)
		f.repo.Add(
			model.Booking{Date: day, Location: "Westlands"},
			model.Booking{Date: day, Location: "Westlands"},
			model.Booking{Date: day, Location: "Kilimani"},
		)
	}
	f.repo.Add(model.Booking{Date: "2024-01-01", Location: "Westlands"})

	res, err := f.eng.ForecastDemand(context.Background(), ForecastRequest{HorizonDays: 1, Location: "westlands"})
	require.NoError(t, err)
	require.Len(t, res.Forecasts, 1)
	assert.Equal(t, "2025-06-11", res.Forecasts[0].Date)
	assert.Greater(t, res.Forecasts[0].Forecast, 0.0)

	recs := records(t, f.log, decisionlog.OpForecast)
	require.Len(t, recs, 1)
	assert.Contains(t, recs[0].Summary, "from 6 bookings")

	// an explicit empty history bypasses the repository
	res, err = f.eng.ForecastDemand(context.Background(), ForecastRequest{HorizonDays: 1, Bookings: []model.Booking{}})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Forecasts[0].Forecast)
}

func TestSuggestBooking_DefaultCapacity(t *testing.T) {
	f := newFixture(t, Config{})
	s, err := f.eng.SuggestBooking(context.Background(), booking.Request{Date: "2025-06-20"})
	require.NoError(t, err)
	assert.Equal(t, 80.0, s.CapacityPerDay)
	assert.Equal(t, "2025-06-20", s.Requested)

	_, err = f.eng.SuggestBooking(context.Background(), booking.Request{Date: "later"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	evs := drain(f.sub)
	require.Len(t, evs, 2)
	assert.IsType(t, events.BookingSuggested{}, evs[0])
	assert.IsType(t, events.OperationFailed{}, evs[1])
}

func TestAlerts(t *testing.T) {
	f := newFixture(t, Config{})
	got, err := f.eng.Alerts(context.Background(), AlertsRequest{Units: []model.Unit{unit("a", 100, 5)}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, alerts.KindMaintenance, got[0].Kind)
	assert.Equal(t, alerts.KindBattery, got[1].Kind)

	var raised int
	for _, ev := range drain(f.sub) {
		if _, ok := ev.(events.AlertRaised); ok {
			raised++
		}
	}
	assert.Equal(t, 2, raised)

	got, err = f.eng.Alerts(context.Background(), AlertsRequest{
		Units:    []model.Unit{unit("b", 10, 90)},
		Forecast: &ForecastRequest{HorizonDays: 7, CapacityPerDay: 80, Bookings: []model.Booking{}},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, alerts.KindNone, got[0].Kind)
	for _, ev := range drain(f.sub) {
		assert.NotEqual(t, fmt.Sprintf("%T", events.AlertRaised{}), fmt.Sprintf("%T", ev))
	}
	assert.Len(t, records(t, f.log, decisionlog.OpAlerts), 2)
}

type failingStore struct{ decisionlog.Store }

func (failingStore) Append(context.Context, decisionlog.Record) error { return errors.New("disk full") }

func TestAppendFailureDoesNotFailOperation(t *testing.T) {
	eng, err := New(Config{}, WithDecisionLog(failingStore{}), WithClock(func() time.Time { return refNow }))
	require.NoError(t, err)
	_, err = eng.AssessMaintenance(context.Background(), []model.Unit{unit("a", 50, 50)})
	assert.NoError(t, err)
}

func TestDecisions_NoStore(t *testing.T) {
	eng, err := New(Config{})
	require.NoError(t, err)
	recs, err := eng.Decisions(context.Background(), decisionlog.Query{})
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestPlanServiceSchedule(t *testing.T) {
	cfg := Config{}
	cfg.Schedule.HorizonDays = 2
	cfg.Schedule.VisitsPerDay = 1
	f := newFixture(t, cfg)

	plan, err := f.eng.PlanServiceSchedule(context.Background(), []model.Unit{
		unit("b", 0, 100),
		unit("a", 100, 0),
		unit("c", 60, 100),
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-06-11", plan.Start)
	require.Len(t, plan.Visits, 2)
	assert.Equal(t, "a", plan.Visits[0].UnitID)
	assert.Equal(t, "2025-06-11", plan.Visits[0].Date)
	assert.Equal(t, "c", plan.Visits[1].UnitID)
	assert.Equal(t, "2025-06-12", plan.Visits[1].Date)
	assert.Equal(t, []string{"b"}, plan.Deferred)

	recs := records(t, f.log, decisionlog.OpSchedule)
	require.Len(t, recs, 1)
	assert.Equal(t, []string{"a", "c"}, recs[0].UnitIDs)
	assert.Equal(t, "2 visits from 2025-06-11, 0 late, 1 deferred", recs[0].Summary)
}

func TestPlanServiceSchedule_InvalidUnit(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.eng.PlanServiceSchedule(context.Background(), []model.Unit{{FillLevel: 10}})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Empty(t, records(t, f.log, decisionlog.OpSchedule))
}

type brokenRepo struct{}

func (brokenRepo) History(context.Context, bookings.Query) ([]model.Booking, error) {
	return nil, errors.New("connection refused")
}

type captureMonitor struct {
	monitoring.NopMonitor
	tags []map[string]string
}

func (m *captureMonitor) CaptureException(_ error, tags map[string]string) {
	m.tags = append(m.tags, tags)
}

func TestFailuresAreReported(t *testing.T) {
	mon := &captureMonitor{}
	eng, err := New(Config{},
		WithBookingRepository(brokenRepo{}),
		WithMonitor(mon),
		WithClock(func() time.Time { return refNow }),
	)
	require.NoError(t, err)

	_, err = eng.ForecastDemand(context.Background(), ForecastRequest{HorizonDays: 1})
	require.Error(t, err)
	_, err = eng.ForecastDemand(context.Background(), ForecastRequest{HorizonDays: -1})
	require.ErrorIs(t, err, model.ErrInvalidInput)

	require.Len(t, mon.tags, 1)
	assert.Equal(t, "forecast", mon.tags[0]["operation"])
}
