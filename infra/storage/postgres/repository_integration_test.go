//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/sanifleet/core/bookings"
	"github.com/kilianp07/sanifleet/core/model"
	"github.com/kilianp07/sanifleet/internal/testutil"
)

func TestRepository_Postgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	dsn, cleanup, err := testutil.StartPostgres(ctx)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	defer cleanup()

	repo, err := Open(ctx, Config{DSN: dsn, Migrate: true})
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, repo.Add(ctx,
		model.Booking{Date: "2025-06-01T09:00:00Z", Location: "Westlands"},
		model.Booking{Date: "2025-06-03", Location: "westlands"},
		model.Booking{Date: "2025-06-02T10:00:00+03:00", Location: "CBD"},
	))
	assert.ErrorIs(t, repo.Add(ctx, model.Booking{Date: "tomorrow"}), model.ErrInvalidInput)

	all, err := repo.History(ctx, bookings.Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "2025-06-01T09:00:00Z", all[0].Date)
	assert.Equal(t, "2025-06-02T07:00:00Z", all[1].Date)

	got, err := repo.History(ctx, bookings.Query{
		Location: "WESTLANDS",
		Since:    time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2025-06-03T00:00:00Z", got[0].Date)
}
