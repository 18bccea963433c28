// Package postgres stores booking history in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kilianp07/sanifleet/core/bookings"
	"github.com/kilianp07/sanifleet/core/model"
)

// Config holds the connection settings.
type Config struct {
	DSN          string `json:"dsn"`
	MaxOpenConns int    `json:"max_open_conns"`
	// Migrate creates the bookings table when it does not exist.
	Migrate bool `json:"migrate"`
}

const schema = `CREATE TABLE IF NOT EXISTS bookings (
	id         BIGSERIAL PRIMARY KEY,
	booked_at  TIMESTAMPTZ NOT NULL,
	location   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS bookings_location_booked_at ON bookings (lower(location), booked_at);`

// Repository implements bookings.Repository on a bookings table.
type Repository struct {
	db *sql.DB
}

var _ bookings.Repository = (*Repository)(nil)

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Repository, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	r := &Repository{db: db}
	if cfg.Migrate {
		if err := r.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return r, nil
}

// Migrate creates the schema.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Add inserts bookings in a single transaction. Dates must parse.
func (r *Repository) Add(ctx context.Context, bs ...model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO bookings (booked_at, location) VALUES ($1, $2)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, b := range bs {
		t, err := model.ParseTime(b.Date)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, t, b.Location); err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}
	}
	return tx.Commit()
}

// History returns bookings matching q ordered by date.
func (r *Repository) History(ctx context.Context, q bookings.Query) ([]model.Booking, error) {
	query, args := historyQuery(q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	out := []model.Booking{}
	for rows.Next() {
		var (
			at  time.Time
			loc string
		)
		if err := rows.Scan(&at, &loc); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, model.Booking{Date: at.UTC().Format(time.RFC3339), Location: loc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func historyQuery(q bookings.Query) (string, []any) {
	query := `SELECT booked_at, location FROM bookings WHERE 1=1`
	var args []any
	if q.Location != "" {
		args = append(args, q.Location)
		query += fmt.Sprintf(` AND lower(location) = lower($%d)`, len(args))
	}
	if !q.Since.IsZero() {
		args = append(args, q.Since)
		query += fmt.Sprintf(` AND booked_at >= $%d`, len(args))
	}
	return query + ` ORDER BY booked_at`, args
}
