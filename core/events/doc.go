// Package events defines the decision events emitted on the event bus.
//
// Available event types:
//   - RiskAssessed: maintenance scoring finished
//   - RoutePlanned: a visit plan was produced
//   - ForecastComputed: a demand forecast was produced
//   - BookingSuggested: the booking advisor picked a date
//   - AlertRaised: an operator alert was generated
//   - OperationFailed: an engine operation returned an error
package events
