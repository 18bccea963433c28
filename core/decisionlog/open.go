package decisionlog

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown decision log backend")

// Config selects and configures the decision log backend.
type Config struct {
	// Backend is one of memory, jsonl, rotating or sqlite. Empty means memory.
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	// MemoryLimit caps the in-memory backend.
	MemoryLimit int `json:"memory_limit"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 50
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays == 0 {
		c.MaxAgeDays = 30
	}
	if c.MemoryLimit == 0 {
		c.MemoryLimit = 1000
	}
	if c.Path == "" {
		switch c.Backend {
		case "jsonl", "rotating":
			c.Path = "data/decisions.jsonl"
		case "sqlite":
			c.Path = "data/decisions.db"
		}
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	switch c.Backend {
	case "memory", "jsonl", "rotating", "sqlite":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
}

// Open builds the configured store.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	switch cfg.Backend {
	case "memory":
		return NewMemoryStore(cfg.MemoryLimit), nil
	case "jsonl":
		return NewJSONLStore(cfg.Path)
	case "rotating":
		return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	case "sqlite":
		if !strings.HasPrefix(cfg.Path, "file:") {
			if err := ensureDir(cfg.Path); err != nil {
				return nil, err
			}
		}
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
