// Package service owns the live settings of the bridge and serializes every
// change to them.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/rfbridge/document"
	"github.com/timzifer/rfbridge/internal/reload"
	"github.com/timzifer/rfbridge/persist"
	"github.com/timzifer/rfbridge/settings"
	"github.com/timzifer/rfbridge/telemetry"
)

// ErrNotObject is returned by Patch when the document is not a JSON object.
var ErrNotObject = errors.New("settings document must be an object")

// Listener is notified with a copy of the settings after every change.
type Listener func(settings.Settings)

// Service is the single writer of the settings. Patch, Reload and Save run
// under one lock so a read-modify-write cycle is never interleaved.
type Service struct {
	mu        sync.Mutex
	current   settings.Settings
	persist   *persist.Controller
	logger    zerolog.Logger
	telemetry telemetry.Collector

	watcher   *reload.Watcher
	watchPath string

	listenersMu sync.RWMutex
	listeners   []Listener
}

// Option customises a Service.
type Option func(*Service)

// WithTelemetry reports patches and hot reloads to collector.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(s *Service) {
		if collector != nil {
			s.telemetry = collector
		}
	}
}

// WithWatcher makes the service acknowledge its own writes to path, so only
// external edits show up in watcher.Check.
func WithWatcher(watcher *reload.Watcher, path string) Option {
	return func(s *Service) {
		s.watcher = watcher
		s.watchPath = path
	}
}

// WithListener registers fn before the initial load.
func WithListener(fn Listener) Option {
	return func(s *Service) {
		if fn != nil {
			s.listeners = append(s.listeners, fn)
		}
	}
}

// New loads the settings through ctrl and returns the service owning them.
func New(ctrl *persist.Controller, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		persist:   ctrl,
		logger:    logger,
		telemetry: telemetry.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mu.Lock()
	s.persist.Load(&s.current)
	s.acknowledge()
	snapshot := s.current.Clone()
	s.mu.Unlock()
	s.notify(snapshot)
	return s
}

// Snapshot returns a deep copy of the current settings.
func (s *Service) Snapshot() settings.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

// State reports where the settings were last loaded from.
func (s *Service) State() persist.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist.State()
}

// Subscribe adds fn to the listeners notified after every change.
func (s *Service) Subscribe(fn Listener) {
	if fn == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

// Patch applies doc to the settings and saves the result. The returned
// issues list entries that were ignored; the error reports a non-object
// document or a failed save. A failed save keeps the patched values in
// memory.
func (s *Service) Patch(doc document.Value, origin string) (settings.Settings, []settings.Issue, error) {
	if _, ok := doc.AsObject(); !ok {
		return s.Snapshot(), nil, ErrNotObject
	}

	s.mu.Lock()
	issues := s.current.Patch(doc, s.logger.With().Str("origin", origin).Logger())
	s.telemetry.IncPatch(origin)
	s.telemetry.AddSkipped(origin, len(issues))
	err := s.persist.Save(&s.current)
	s.acknowledge()
	snapshot := s.current.Clone()
	s.mu.Unlock()

	s.logger.Info().Str("origin", origin).Int("skipped", len(issues)).Msg("settings patched")
	s.notify(snapshot)
	return snapshot, issues, err
}

// Reload replaces the settings with the stored ones.
func (s *Service) Reload(origin string) (settings.Settings, []settings.Issue) {
	s.mu.Lock()
	issues := s.persist.Load(&s.current)
	s.acknowledge()
	snapshot := s.current.Clone()
	state := s.persist.State()
	s.mu.Unlock()

	s.logger.Info().Str("origin", origin).Str("state", state.String()).Msg("settings reloaded")
	s.notify(snapshot)
	return snapshot, issues
}

// CheckForChanges reloads the settings when the watched file was edited by
// someone else. It reports whether a reload happened.
func (s *Service) CheckForChanges() bool {
	if s.watcher == nil {
		return false
	}
	changed, err := s.watcher.Check()
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to check settings file changes")
		return false
	}
	if len(changed) == 0 {
		return false
	}
	for _, file := range changed {
		s.telemetry.IncHotReload(file)
	}
	s.Reload("watch")
	return true
}

// Watch polls the watched file every interval until ctx is done.
func (s *Service) Watch(ctx context.Context, interval time.Duration) {
	if s.watcher == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckForChanges()
		}
	}
}

func (s *Service) acknowledge() {
	if s.watcher != nil && s.watchPath != "" {
		s.watcher.Acknowledge(s.watchPath)
	}
}

func (s *Service) notify(snapshot settings.Settings) {
	s.listenersMu.RLock()
	listeners := append([]Listener(nil), s.listeners...)
	s.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(snapshot.Clone())
	}
}
