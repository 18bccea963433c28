package config

import (
	"fmt"
	"time"
)

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr         string        `json:"addr"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	// RequestTimeout bounds the context handed to the engine.
	RequestTimeout time.Duration `json:"request_timeout"`
	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64 `json:"max_body_bytes"`
	// DecisionsToken protects GET /api/decisions when set.
	DecisionsToken string `json:"decisions_token"`
}

func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 1 << 20
	}
}

func (c HTTPConfig) Validate() error {
	if c.RequestTimeout < 0 {
		return fmt.Errorf("http.request_timeout must not be negative")
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must not be negative")
	}
	return nil
}
