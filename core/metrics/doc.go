package metrics

// Package metrics defines the sinks that record decision engine activity.
// Every sink implements Sink; richer sinks also implement the optional
// recorder interfaces (unit risk, routes, forecasts, suggestions, alerts).
// NewSink builds a MultiSink automatically when several sinks are configured.
