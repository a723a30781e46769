package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/imdario/mergo"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// HTTPConfig configures the settings API.
type HTTPConfig struct {
	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	// UpdateRate limits settings updates per second; each update rewrites flash.
	UpdateRate  float64 `yaml:"update_rate,omitempty"`
	UpdateBurst int     `yaml:"update_burst,omitempty"`
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetryConfig selects the metrics backend.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider,omitempty"`
}

// WatchConfig controls polling of the settings file for external edits.
type WatchConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval,omitempty"`
}

// MQTTConfig controls the broker status publisher. Broker address and
// credentials come from the device settings.
type MQTTConfig struct {
	Enabled  bool   `yaml:"enabled"`
	ClientID string `yaml:"client_id,omitempty"`
}

// Config is the root configuration structure of the daemon.
type Config struct {
	DataDir   string          `yaml:"data_dir"`
	HTTP      HTTPConfig      `yaml:"http"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Watch     WatchConfig     `yaml:"watch"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
}

// Defaults returns the values used for everything a config file leaves out.
func Defaults() Config {
	return Config{
		DataDir: "data",
		HTTP: HTTPConfig{
			Listen:      ":8080",
			UpdateRate:  1,
			UpdateBurst: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{Provider: "prometheus"},
		Watch:     WatchConfig{Interval: Duration{time.Second}},
		MQTT:      MQTTConfig{ClientID: "rfbridge"},
	}
}

// Load reads and decodes the configuration file from disk. A missing file
// yields the defaults. A relative data_dir is resolved against the directory
// of path.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path must not be empty")
	}
	cfg := Config{}
	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config: %w", err)
		}
	}
	if err := mergo.Merge(&cfg, Defaults()); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}
	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(filepath.Dir(path), cfg.DataDir)
	}
	return &cfg, nil
}

// WatchInterval returns the polling interval for the settings file.
func (c *Config) WatchInterval() time.Duration {
	if c == nil || c.Watch.Interval.Duration <= 0 {
		return time.Second
	}
	return c.Watch.Interval.Duration
}
