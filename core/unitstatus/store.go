// Package unitstatus keeps the latest telemetry snapshot of every unit along
// with its most recent maintenance assessment.
package unitstatus

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/sanifleet/core/maintenance"
	"github.com/kilianp07/sanifleet/core/model"
)

// Status captures what is currently known about a unit.
type Status struct {
	Unit           model.Unit              `json:"unit"`
	ReceivedAt     time.Time               `json:"received_at"`
	LastAssessment *maintenance.Assessment `json:"last_assessment,omitempty"`
}

// Filter restricts List results. Location matching is case-insensitive.
type Filter struct {
	Location string
}

func (f Filter) match(u model.Unit) bool {
	return f.Location == "" || strings.EqualFold(u.Location, f.Location)
}

type Store interface {
	Upsert(u model.Unit, receivedAt time.Time)
	RecordAssessments(as []maintenance.Assessment)
	List(Filter) []Status
	Units(Filter) []model.Unit
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

// Upsert replaces the telemetry of a unit, keeping its last assessment.
func (s *MemoryStore) Upsert(u model.Unit, receivedAt time.Time) {
	if u.ID == "" {
		return
	}
	s.mu.Lock()
	st := s.data[u.ID]
	st.Unit = u
	st.ReceivedAt = receivedAt.UTC()
	s.data[u.ID] = st
	s.mu.Unlock()
}

// RecordAssessments attaches assessments to known units. Unknown ids are
// created from the assessment itself.
func (s *MemoryStore) RecordAssessments(as []maintenance.Assessment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range as {
		a := as[i]
		st, ok := s.data[a.ID]
		if !ok {
			st.Unit = model.Unit{
				ID:           a.ID,
				SerialNo:     a.SerialNo,
				Location:     a.Location,
				FillLevel:    model.Level(a.FillLevel),
				BatteryLevel: model.Level(a.BatteryLevel),
				Coordinates:  a.Coordinates,
			}
		}
		st.LastAssessment = &a
		s.data[a.ID] = st
	}
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.match(st.Unit) {
			res = append(res, st)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Unit.ID < res[j].Unit.ID })
	return res
}

// Units returns the stored snapshots ready for scoring.
func (s *MemoryStore) Units(f Filter) []model.Unit {
	list := s.List(f)
	out := make([]model.Unit, len(list))
	for i, st := range list {
		out[i] = st.Unit
	}
	return out
}
