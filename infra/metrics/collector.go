package metrics

import (
	"context"

	"github.com/kilianp07/sanifleet/core/events"
	coremetrics "github.com/kilianp07/sanifleet/core/metrics"
	"github.com/kilianp07/sanifleet/infra/logger"
	"github.com/kilianp07/sanifleet/internal/eventbus"
)

// StartEventCollector subscribes to the bus and forwards engine events to
// sink. It stops when ctx is canceled or the bus is closed. The returned
// channel is closed once the collector has exited.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[events.Event], sink coremetrics.Sink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := Record(sink, ev); err != nil {
					log.Warnf("record %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

// Record translates a single event into sink calls. Optional recorders are
// only used when sink implements them.
func Record(sink coremetrics.Sink, ev events.Event) error {
	switch e := ev.(type) {
	case events.RiskAssessed:
		if err := sink.RecordDecision(coremetrics.DecisionEvent{
			Operation: "maintenance", Items: len(e.Assessments), Duration: e.Duration, Time: e.Time,
		}); err != nil {
			return err
		}
		if r, ok := sink.(coremetrics.UnitRiskRecorder); ok {
			evs := make([]coremetrics.UnitRiskEvent, len(e.Assessments))
			for i, a := range e.Assessments {
				evs[i] = coremetrics.UnitRiskEvent{
					UnitID:       a.ID,
					SerialNo:     a.SerialNo,
					Location:     a.Location,
					RiskScore:    a.RiskScore,
					Risk:         string(a.Risk),
					FillLevel:    a.FillLevel,
					BatteryLevel: a.BatteryLevel,
					Time:         e.Time,
				}
			}
			return r.RecordUnitRisk(evs)
		}
	case events.RoutePlanned:
		if err := sink.RecordDecision(coremetrics.DecisionEvent{
			Operation: "route", Items: len(e.Route.OrderedStops), Duration: e.Duration, Time: e.Time,
		}); err != nil {
			return err
		}
		if r, ok := sink.(coremetrics.RouteRecorder); ok {
			return r.RecordRoute(coremetrics.RouteEvent{
				PlanID:          e.PlanID,
				Stops:           len(e.Route.OrderedStops),
				TotalDistanceKm: e.Route.TotalDistanceKm,
				Time:            e.Time,
			})
		}
	case events.ForecastComputed:
		if err := sink.RecordDecision(coremetrics.DecisionEvent{
			Operation: "forecast", Items: len(e.Result.Forecasts), Duration: e.Duration, Time: e.Time,
		}); err != nil {
			return err
		}
		if r, ok := sink.(coremetrics.ForecastRecorder); ok {
			util := -1.0
			if e.Result.Utilization != nil {
				util = *e.Result.Utilization
			}
			return r.RecordForecast(coremetrics.ForecastEvent{
				Location:         e.Location,
				HorizonDays:      e.HorizonDays,
				AvgDailyForecast: e.Result.Summary.AvgDailyForecast,
				PeakForecast:     e.Result.Summary.PeakDay.Forecast,
				Utilization:      util,
				Time:             e.Time,
			})
		}
	case events.BookingSuggested:
		if err := sink.RecordDecision(coremetrics.DecisionEvent{
			Operation: "suggest", Items: len(e.Suggestion.Candidates), Duration: e.Duration, Time: e.Time,
		}); err != nil {
			return err
		}
		if r, ok := sink.(coremetrics.SuggestionRecorder); ok {
			return r.RecordSuggestion(coremetrics.SuggestionEvent{
				Location:    e.Suggestion.Location,
				Date:        e.Suggestion.Suggestion.Date,
				Score:       e.Suggestion.Suggestion.Score,
				Utilization: e.Suggestion.Suggestion.Utilization,
				Time:        e.Time,
			})
		}
	case events.AlertRaised:
		if r, ok := sink.(coremetrics.AlertRecorder); ok {
			return r.RecordAlert(coremetrics.AlertEvent{
				Kind:     string(e.Alert.Kind),
				Severity: string(e.Alert.Severity),
				Time:     e.Time,
			})
		}
	case events.OperationFailed:
		return sink.RecordDecision(coremetrics.DecisionEvent{
			Operation: e.Operation, Duration: e.Duration, Failed: true, Time: e.Time,
		})
	}
	return nil
}
