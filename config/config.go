package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/sanifleet/core/decisionlog"
	"github.com/kilianp07/sanifleet/core/engine"
	"github.com/kilianp07/sanifleet/core/metrics"
	"github.com/kilianp07/sanifleet/infra/monitoring"
	"github.com/kilianp07/sanifleet/infra/mqtt"
	"github.com/kilianp07/sanifleet/infra/telemetry"
)

// EnvPrefix marks environment variables that override file settings.
// SANI_HTTP__ADDR sets http.addr.
const EnvPrefix = "SANI_"

type Config struct {
	HTTP        HTTPConfig          `json:"http"`
	Logging     LoggingConfig       `json:"logging"`
	MQTT        mqtt.Config         `json:"mqtt"`
	Telemetry   telemetry.Config    `json:"telemetry"`
	Notify      mqtt.NotifierConfig `json:"notify"`
	Metrics     metrics.Config      `json:"metrics"`
	DecisionLog decisionlog.Config  `json:"decision_log"`
	Storage     StorageConfig       `json:"storage"`
	Engine      engine.Config       `json:"engine"`
	Monitoring  monitoring.Config   `json:"monitoring"`
}

// Load reads the file at path (yaml or json) and applies environment
// overrides. An empty path loads defaults and the environment only.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", filepath.Ext(path))
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.HTTP.SetDefaults()
	c.Logging.SetDefaults()
	c.Telemetry.SetDefaults()
	c.Notify.SetDefaults()
	c.DecisionLog.SetDefaults()
	c.Storage.SetDefaults()
	if c.Engine.HistoryDays == 0 {
		c.Engine.HistoryDays = c.Storage.HistoryDays
	}
	c.Engine.SetDefaults()
	if c.Telemetry.Enabled || c.Notify.Enabled {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section. MQTT settings are only required when
// telemetry or notifications are enabled.
func (c Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Telemetry.Enabled || c.Notify.Enabled {
		if err := c.MQTT.Validate(); err != nil {
			return err
		}
	}
	if err := c.DecisionLog.Validate(); err != nil {
		return fmt.Errorf("decision_log: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Monitoring.Validate(); err != nil {
		return err
	}
	return c.Engine.Validate()
}
