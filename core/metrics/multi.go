package metrics

import "errors"

// MultiSink fans out to several sinks. Optional recorders are only called on
// sinks that implement them. All sinks are attempted and errors are joined.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

func (m *MultiSink) RecordDecision(ev DecisionEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordDecision(ev))
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordUnitRisk(evs []UnitRiskEvent) error {
	return fanout(m.Sinks, func(r UnitRiskRecorder) error { return r.RecordUnitRisk(evs) })
}

func (m *MultiSink) RecordRoute(ev RouteEvent) error {
	return fanout(m.Sinks, func(r RouteRecorder) error { return r.RecordRoute(ev) })
}

func (m *MultiSink) RecordForecast(ev ForecastEvent) error {
	return fanout(m.Sinks, func(r ForecastRecorder) error { return r.RecordForecast(ev) })
}

func (m *MultiSink) RecordSuggestion(ev SuggestionEvent) error {
	return fanout(m.Sinks, func(r SuggestionRecorder) error { return r.RecordSuggestion(ev) })
}

func (m *MultiSink) RecordAlert(ev AlertEvent) error {
	return fanout(m.Sinks, func(r AlertRecorder) error { return r.RecordAlert(ev) })
}

func fanout[R any](sinks []Sink, call func(R) error) error {
	var errs []error
	for _, s := range sinks {
		if r, ok := s.(R); ok {
			errs = append(errs, call(r))
		}
	}
	return errors.Join(errs...)
}
