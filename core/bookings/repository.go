// Package bookings supplies booking history to the forecaster when a request
// does not carry its own.
package bookings

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kilianp07/sanifleet/core/model"
)

// Query selects history. Zero values mean no restriction.
type Query struct {
	Location string
	Since    time.Time
}

// Repository returns booking history.
type Repository interface {
	History(ctx context.Context, q Query) ([]model.Booking, error)
}

// MemoryRepository is an in-process Repository.
type MemoryRepository struct {
	mu   sync.RWMutex
	data []model.Booking
}

func NewMemoryRepository(initial ...model.Booking) *MemoryRepository {
	return &MemoryRepository{data: append([]model.Booking(nil), initial...)}
}

// Add stores bookings.
func (r *MemoryRepository) Add(b ...model.Booking) {
	r.mu.Lock()
	r.data = append(r.data, b...)
	r.mu.Unlock()
}

// History filters stored bookings. Bookings with unparsable dates are kept
// when no Since bound is set and dropped otherwise.
func (r *MemoryRepository) History(ctx context.Context, q Query) ([]model.Booking, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Booking, 0, len(r.data))
	for _, b := range r.data {
		if q.Location != "" && !strings.EqualFold(b.Location, q.Location) {
			continue
		}
		if !q.Since.IsZero() {
			t, err := model.ParseTime(b.Date)
			if err != nil || t.Before(q.Since) {
				continue
			}
		}
		out = append(out, b)
	}
	return out, nil
}
