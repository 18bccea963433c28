package config

import (
	"fmt"

	"github.com/kilianp07/sanifleet/infra/storage/postgres"
)

// StorageConfig selects where booking history is read from.
type StorageConfig struct {
	// Backend is memory or postgres.
	Backend  string          `json:"backend"`
	Postgres postgres.Config `json:"postgres"`
	// HistoryDays bounds the history loaded for forecasts.
	HistoryDays int `json:"history_days"`
}

func (c *StorageConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.HistoryDays == 0 {
		c.HistoryDays = 90
	}
}

func (c StorageConfig) Validate() error {
	switch c.Backend {
	case "memory":
	case "postgres":
		if c.Postgres.DSN == "" {
			return fmt.Errorf("storage.postgres.dsn is required")
		}
	default:
		return fmt.Errorf("unknown storage backend %s", c.Backend)
	}
	if c.HistoryDays < 0 {
		return fmt.Errorf("storage.history_days must not be negative")
	}
	return nil
}
