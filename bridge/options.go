package bridge

import (
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/timzifer/rfbridge/internal/config"
	"github.com/timzifer/rfbridge/telemetry"
)

// WithLogger provides a custom logger instance for the bridge.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *options) error {
		if cfg == nil {
			return nil
		}
		cfg.logger = logger
		return nil
	}
}

// WithConfigPath loads the daemon configuration from path.
func WithConfigPath(path string) Option {
	return func(cfg *options) error {
		if cfg == nil {
			return nil
		}
		cfg.configPath = strings.TrimSpace(path)
		return nil
	}
}

// WithConfig supplies an already loaded configuration instance.
func WithConfig(cfgData *config.Config) Option {
	return func(cfg *options) error {
		if cfg == nil {
			return nil
		}
		if cfgData == nil {
			return errors.New("configuration must not be nil")
		}
		cfg.config = cfgData
		return nil
	}
}

// WithTelemetry injects a collector instance overriding the configuration-based one.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(cfg *options) error {
		if cfg == nil {
			return nil
		}
		if collector == nil {
			collector = telemetry.Noop()
		}
		cfg.telemetry = collector
		return nil
	}
}

// WithRestart replaces the default auto restart action, which stops Run with
// ErrRestart.
func WithRestart(fn func()) Option {
	return func(cfg *options) error {
		if cfg == nil {
			return nil
		}
		cfg.restart = fn
		return nil
	}
}
