// Package telemetry ingests unit snapshots published over MQTT.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coremqtt "github.com/kilianp07/sanifleet/core/mqtt"
	"github.com/kilianp07/sanifleet/core/model"
	"github.com/kilianp07/sanifleet/core/unitstatus"
	"github.com/kilianp07/sanifleet/infra/logger"
)

// Config selects the MQTT topics carrying unit telemetry.
type Config struct {
	Enabled bool   `json:"enabled"`
	Prefix  string `json:"prefix"`
}

// SetDefaults fills the default topic prefix.
func (c *Config) SetDefaults() {
	if c.Prefix == "" {
		c.Prefix = "sanifleet/units"
	}
}

// Topic returns the wildcard filter for all units.
func (c Config) Topic() string {
	return strings.TrimSuffix(c.Prefix, "/") + "/+"
}

// Subscriber stores every decoded snapshot in a unit status store.
type Subscriber struct {
	cfg   Config
	store unitstatus.Store
	log   logger.Logger
	now   func() time.Time

	received prometheus.Counter
	rejected prometheus.Counter
	lastSeen prometheus.Gauge
}

// NewSubscriber registers its counters on reg (nil means the default
// registerer) and returns a subscriber writing to store.
func NewSubscriber(cfg Config, store unitstatus.Store, reg prometheus.Registerer) (*Subscriber, error) {
	cfg.SetDefaults()
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &Subscriber{
		cfg:   cfg,
		store: store,
		log:   logger.New("telemetry"),
		now:   time.Now,
	}
	var err error
	if s.received, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sanifleet_telemetry_messages_total", Help: "Unit telemetry messages accepted",
	})); err != nil {
		return nil, err
	}
	if s.rejected, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sanifleet_telemetry_rejected_total", Help: "Unit telemetry messages that could not be decoded",
	})); err != nil {
		return nil, err
	}
	if s.lastSeen, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sanifleet_telemetry_last_message_timestamp_seconds", Help: "Unix time of the last accepted telemetry message",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Start subscribes to the unit topics and blocks until ctx is done.
func (s *Subscriber) Start(ctx context.Context, sub coremqtt.Subscriber) error {
	topic := s.cfg.Topic()
	if err := sub.Subscribe(topic, s.handle); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	s.log.Infof("listening for unit telemetry on %s", topic)
	<-ctx.Done()
	return nil
}

func (s *Subscriber) handle(topic string, payload []byte) {
	if err := s.Process(topic, payload); err != nil {
		s.rejected.Inc()
		s.log.Warnf("telemetry on %s: %v", topic, err)
	}
}

// Process decodes one snapshot. The unit id falls back to the last topic
// segment when the payload carries none.
func (s *Subscriber) Process(topic string, payload []byte) error {
	var u model.Unit
	if err := json.Unmarshal(payload, &u); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if u.ID == "" {
		u.ID = extractID(topic)
	}
	if u.ID == "" {
		return fmt.Errorf("%w: unit id missing", model.ErrInvalidInput)
	}
	now := s.now()
	s.store.Upsert(u, now)
	s.received.Inc()
	s.lastSeen.Set(float64(now.Unix()))
	return nil
}

func extractID(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
