package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SchedulerConfig defines planning parameters loaded from configuration.
type SchedulerConfig struct {
	HorizonDays  int  `json:"horizon_days" yaml:"horizon_days"`
	VisitsPerDay int  `json:"visits_per_day" yaml:"visits_per_day"`
	SkipWeekends bool `json:"skip_weekends" yaml:"skip_weekends"`
}

// SetDefaults plans a week ahead with ten visits a day.
func (c *SchedulerConfig) SetDefaults() {
	if c.HorizonDays == 0 {
		c.HorizonDays = 7
	}
	if c.VisitsPerDay == 0 {
		c.VisitsPerDay = 10
	}
}

func (c SchedulerConfig) Validate() error {
	if c.HorizonDays < 1 {
		return fmt.Errorf("horizon_days must be positive")
	}
	if c.VisitsPerDay < 1 {
		return fmt.Errorf("visits_per_day must be positive")
	}
	return nil
}

// LoadConfig loads SchedulerConfig from a JSON or YAML file.
func LoadConfig(path string) (SchedulerConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return SchedulerConfig{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var cfg SchedulerConfig
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return SchedulerConfig{}, fmt.Errorf("unsupported config format: %s", ext)
	}
	return cfg, err
}

// DecodeConfig reads from r to decode a SchedulerConfig.
func DecodeConfig(r io.Reader, format string) (SchedulerConfig, error) {
	var cfg SchedulerConfig
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	return cfg, nil
}
