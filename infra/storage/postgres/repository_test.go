package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/sanifleet/core/bookings"
)

func TestHistoryQuery(t *testing.T) {
	q, args := historyQuery(bookings.Query{})
	assert.Equal(t, `SELECT booked_at, location FROM bookings WHERE 1=1 ORDER BY booked_at`, q)
	assert.Empty(t, args)

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	q, args = historyQuery(bookings.Query{Location: "CBD", Since: since})
	assert.Equal(t, `SELECT booked_at, location FROM bookings WHERE 1=1 AND lower(location) = lower($1) AND booked_at >= $2 ORDER BY booked_at`, q)
	assert.Equal(t, []any{"CBD", since}, args)

	q, args = historyQuery(bookings.Query{Since: since})
	assert.Contains(t, q, "booked_at >= $1")
	assert.Len(t, args, 1)
}

func TestOpenRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	assert.Error(t, err)
}
