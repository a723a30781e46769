// Package persist loads settings from and saves them to a storage backend.
package persist

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/timzifer/rfbridge/document"
	"github.com/timzifer/rfbridge/settings"
	"github.com/timzifer/rfbridge/storage"
	"github.com/timzifer/rfbridge/telemetry"
)

// State tracks where the most recent Load took its values from.
type State int

const (
	Uninitialized State = iota
	LoadedFromDefaults
	LoadedFromFile
)

func (s State) String() string {
	switch s {
	case LoadedFromDefaults:
		return "defaults"
	case LoadedFromFile:
		return "file"
	default:
		return "uninitialized"
	}
}

// Controller moves settings between memory and one named storage file. It
// holds no lock: callers serialize Load and Save against the same target.
type Controller struct {
	storage   storage.Storage
	name      string
	logger    zerolog.Logger
	telemetry telemetry.Collector
	state     State
}

// Option customises a Controller.
type Option func(*Controller)

// WithName overrides the storage name, settings.FileName by default.
func WithName(name string) Option {
	return func(c *Controller) {
		if name != "" {
			c.name = name
		}
	}
}

// WithTelemetry reports loads and saves to collector.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(c *Controller) {
		if collector != nil {
			c.telemetry = collector
		}
	}
}

// New builds a controller over store.
func New(store storage.Storage, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		storage:   store,
		name:      settings.FileName,
		logger:    logger,
		telemetry: telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the storage name of the settings file.
func (c *Controller) Name() string { return c.name }

// State reports the outcome of the last Load.
func (c *Controller) State() State { return c.state }

// Load replaces target with defaults patched from the stored document. If
// nothing is stored yet, target is reset to defaults and those are saved.
// Unreadable or malformed files never fail the load: whatever part of the
// document could be decoded is applied. The returned issues list the entries
// that were ignored.
func (c *Controller) Load(target *settings.Settings) []settings.Issue {
	*target = settings.Default()

	if !c.storage.Exists(c.name) {
		c.logger.Info().Str("file", c.name).Msg("settings file missing, writing defaults")
		c.state = LoadedFromDefaults
		c.telemetry.IncLoad(c.state.String())
		_ = c.Save(target)
		return nil
	}

	doc, err := c.read()
	if err != nil {
		c.logger.Error().Err(err).Str("file", c.name).Msg("settings file unreadable, using defaults")
		c.state = LoadedFromDefaults
		c.telemetry.IncLoad(c.state.String())
		return nil
	}

	issues := target.Patch(doc, c.logger)
	c.state = LoadedFromFile
	c.telemetry.IncLoad(c.state.String())
	c.telemetry.AddSkipped("file", len(issues))
	c.logger.Info().Str("file", c.name).Int("skipped", len(issues)).Msg("settings loaded")
	return issues
}

func (c *Controller) read() (document.Value, error) {
	r, err := c.storage.OpenRead(c.name)
	if err != nil {
		return document.Null(), err
	}
	defer r.Close()

	doc, err := document.Decode(r)
	if err != nil && !errors.Is(err, document.ErrEmpty) {
		c.logger.Warn().Err(err).Str("file", c.name).Msg("settings file malformed, applying the readable part")
	}
	return doc, nil
}

// Save writes the compact canonical document of s. Failures are logged and
// returned; the in-memory settings are never affected.
func (c *Controller) Save(s *settings.Settings) error {
	err := c.write(document.Marshal(s.Document(), false))
	c.telemetry.IncSave(err == nil)
	if err != nil {
		c.logger.Error().Err(err).Str("file", c.name).Msg("opening settings file failed")
		return err
	}
	c.logger.Debug().Str("file", c.name).Msg("settings saved")
	return nil
}

func (c *Controller) write(data []byte) (err error) {
	w, err := c.storage.OpenWrite(c.name)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := w.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", c.name, closeErr)
		}
	}()
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", c.name, err)
	}
	return nil
}
