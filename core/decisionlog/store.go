// Package decisionlog keeps an audit trail of engine decisions. Records are
// append-only and can be filtered by time range, operation and unit.
package decisionlog

import (
	"context"
	"encoding/json"
	"sort"
	"time"
)

// Operation names the engine call that produced a record.
type Operation string

const (
	OpMaintenance      Operation = "maintenance"
	OpRoute            Operation = "route"
	OpMaintenanceRoute Operation = "maintenance_route"
	OpForecast         Operation = "forecast"
	OpSuggest          Operation = "suggest"
	OpAlerts           Operation = "alerts"
	OpSchedule         Operation = "schedule"
)

// Record captures one engine decision.
type Record struct {
	ID         string          `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Operation  Operation       `json:"operation"`
	UnitIDs    []string        `json:"unit_ids,omitempty"`
	Summary    string          `json:"summary"`
	DurationMS float64         `json:"duration_ms"`
	Error      string          `json:"error,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
}

// Query defines filters for retrieving records. Zero values match everything.
// Limit keeps only the most recent matches.
type Query struct {
	Start     time.Time
	End       time.Time
	Operation Operation
	UnitID    string
	Limit     int
}

// Match reports whether r passes the filters.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Operation != "" && r.Operation != q.Operation {
		return false
	}
	if q.UnitID == "" {
		return true
	}
	for _, id := range r.UnitIDs {
		if id == q.UnitID {
			return true
		}
	}
	return false
}

// Store persists records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// finish orders matches chronologically and applies the limit.
func finish(recs []Record, q Query) []Record {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp.Before(recs[j].Timestamp) })
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[len(recs)-q.Limit:]
	}
	if recs == nil {
		recs = []Record{}
	}
	return recs
}
