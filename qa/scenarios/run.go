package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/kilianp07/sanifleet/core/decisionlog"
	"github.com/kilianp07/sanifleet/core/engine"
	"github.com/kilianp07/sanifleet/core/model"
	"github.com/kilianp07/sanifleet/infra/logger"
)

// RunScenario feeds the scenario through every engine operation it has
// expectations for.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	ctx := context.Background()
	now := sc.Now.UTC()
	log := decisionlog.NewMemoryStore(0)
	eng, err := engine.New(sc.EngineConfig(),
		engine.WithDecisionLog(log),
		engine.WithLogger(logger.NopLogger{}),
		engine.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}

	units := make([]model.Unit, len(sc.Units))
	for i, u := range sc.Units {
		units[i] = u.ToModel(now)
	}

	as, err := eng.AssessMaintenance(ctx, units)
	if err != nil {
		t.Fatalf("assess: %v", err)
	}
	for _, a := range as {
		want, ok := sc.Expected.Risks[a.ID]
		if ok && string(a.Risk) != want {
			t.Errorf("unit %s risk %s (%.2f), want %s", a.ID, a.Risk, a.RiskScore, want)
		}
	}

	if len(sc.Expected.RouteOrder) > 0 {
		res, err := eng.PlanMaintenanceRoute(ctx, model.Coordinates(sc.Depot), units, sc.MinRisk)
		if err != nil {
			t.Fatalf("route: %v", err)
		}
		got := make([]string, len(res.Plan.OrderedStops))
		for i, s := range res.Plan.OrderedStops {
			got[i] = s.ID
		}
		if !equal(got, sc.Expected.RouteOrder) {
			t.Errorf("route order %v, want %v", got, sc.Expected.RouteOrder)
		}
	}

	var fcReq *engine.ForecastRequest
	if sc.Forecast != nil {
		history, err := sc.Forecast.History.Bookings()
		if err != nil {
			t.Fatalf("history: %v", err)
		}
		fcReq = &engine.ForecastRequest{
			Bookings:       history,
			HorizonDays:    sc.Forecast.HorizonDays,
			CapacityPerDay: sc.Forecast.CapacityPerDay,
		}
		res, err := eng.ForecastDemand(ctx, *fcReq)
		if err != nil {
			t.Fatalf("forecast: %v", err)
		}
		if sc.Expected.PeakDay != "" && res.Summary.PeakDay.Date != sc.Expected.PeakDay {
			t.Errorf("peak day %s, want %s", res.Summary.PeakDay.Date, sc.Expected.PeakDay)
		}
	}

	if len(sc.Expected.Alerts) > 0 {
		got, err := eng.Alerts(ctx, engine.AlertsRequest{Units: units, Forecast: fcReq})
		if err != nil {
			t.Fatalf("alerts: %v", err)
		}
		kinds := make([]string, len(got))
		for i, a := range got {
			kinds[i] = string(a.Kind)
		}
		if !equal(kinds, sc.Expected.Alerts) {
			t.Errorf("alerts %v, want %v", kinds, sc.Expected.Alerts)
		}
	}

	if exp := sc.Expected.Schedule; exp != nil {
		plan, err := eng.PlanServiceSchedule(ctx, units)
		if err != nil {
			t.Fatalf("schedule: %v", err)
		}
		if len(plan.Visits) != exp.Visits {
			t.Errorf("%d visits, want %d", len(plan.Visits), exp.Visits)
		}
		if !equal(plan.Deferred, exp.Deferred) {
			t.Errorf("deferred %v, want %v", plan.Deferred, exp.Deferred)
		}
	}

	recs, err := log.Query(ctx, decisionlog.Query{})
	if err != nil {
		t.Fatalf("decision log: %v", err)
	}
	for _, r := range recs {
		if r.Error != "" {
			t.Errorf("%s recorded an error: %s", r.Operation, r.Error)
		}
	}
}

// equal treats nil and empty slices alike.
func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
