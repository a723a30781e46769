// Package bridge assembles the settings daemon: storage, the settings
// service, its HTTP surface and the side effects driven by the settings.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/timzifer/rfbridge/internal/config"
	"github.com/timzifer/rfbridge/internal/mqttstatus"
	"github.com/timzifer/rfbridge/internal/reload"
	"github.com/timzifer/rfbridge/internal/restart"
	"github.com/timzifer/rfbridge/persist"
	"github.com/timzifer/rfbridge/service"
	"github.com/timzifer/rfbridge/settings"
	"github.com/timzifer/rfbridge/storage"
	"github.com/timzifer/rfbridge/telemetry"
)

// ErrRestart ends Run when the auto restart period elapsed.
var ErrRestart = errors.New("auto restart requested")

// Option customises a Bridge.
type Option func(*options) error

type options struct {
	config     *config.Config
	configPath string
	logger     zerolog.Logger
	telemetry  telemetry.Collector
	restart    func()
}

// Bridge owns every long-running component of the daemon.
type Bridge struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelCauseFunc

	config    *config.Config
	logger    zerolog.Logger
	collector telemetry.Collector

	service   *service.Service
	hub       *service.Hub
	server    *service.Server
	scheduler *restart.Scheduler
	publisher *mqttstatus.Publisher
}

// New loads the stored settings and wires the components. Nothing runs until
// Run is called.
func New(ctx context.Context, opts ...Option) (*Bridge, error) {
	if ctx != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	cfg := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.config == nil {
		if cfg.configPath == "" {
			return nil, errors.New("configuration path required")
		}
		loaded, err := config.Load(cfg.configPath)
		if err != nil {
			return nil, fmt.Errorf("load configuration: %w", err)
		}
		cfg.config = loaded
	}

	var metrics http.Handler
	if cfg.telemetry == nil {
		collector, err := newTelemetryCollector(cfg.config.Telemetry, prometheus.DefaultRegisterer)
		if err != nil {
			cfg.logger.Warn().Err(err).Msg("telemetry disabled")
			collector = telemetry.Noop()
		}
		cfg.telemetry = collector
		if _, ok := collector.(*telemetry.PrometheusCollector); ok {
			metrics = promhttp.Handler()
		}
	}

	b := &Bridge{
		config:    cfg.config,
		logger:    cfg.logger,
		collector: cfg.telemetry,
	}
	restartFn := cfg.restart
	if restartFn == nil {
		restartFn = b.requestRestart
	}

	store, err := storage.NewDir(cfg.config.DataDir)
	if err != nil {
		return nil, fmt.Errorf("open data dir: %w", err)
	}
	ctrl := persist.New(store, b.logger, persist.WithTelemetry(b.collector))

	svcOpts := []service.Option{service.WithTelemetry(b.collector)}
	if cfg.config.Watch.Enabled {
		path := store.Path(ctrl.Name())
		watcher, err := reload.NewWatcher(path)
		if err != nil {
			return nil, fmt.Errorf("create settings watcher: %w", err)
		}
		svcOpts = append(svcOpts, service.WithWatcher(watcher, path))
	}

	b.scheduler = restart.New(restartFn, b.component("restart"))
	svcOpts = append(svcOpts, service.WithListener(b.applyRestart))
	if cfg.config.MQTT.Enabled {
		b.publisher = mqttstatus.New(cfg.config.MQTT.ClientID, b.component("mqtt"))
		svcOpts = append(svcOpts, service.WithListener(b.publisher.Apply))
	}

	b.service = service.New(ctrl, b.logger, svcOpts...)
	b.hub = service.NewHub(b.component("websocket"))
	serverOpts := []service.ServerOption{
		service.WithRateLimit(cfg.config.HTTP.UpdateRate, cfg.config.HTTP.UpdateBurst),
		service.WithAllowedOrigins(cfg.config.HTTP.AllowedOrigins),
	}
	if metrics != nil {
		serverOpts = append(serverOpts, service.WithMetrics(metrics))
	}
	b.server = service.NewServer(b.service, b.hub, b.component("http"), serverOpts...)
	return b, nil
}

// Service returns the settings service.
func (b *Bridge) Service() *service.Service {
	return b.service
}

// Handler returns the HTTP handler of the settings API.
func (b *Bridge) Handler() http.Handler {
	return b.server.Handler()
}

// Run serves the settings API until ctx is done, the server fails or an auto
// restart is due. A restart is reported as ErrRestart.
func (b *Bridge) Run(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bridge already running")
	}
	b.running = true
	ctx, cancel := context.WithCancelCause(ctx)
	b.cancel = cancel
	b.mu.Unlock()
	defer cancel(nil)

	b.scheduler.Start()
	defer b.scheduler.Stop()
	if b.publisher != nil {
		defer b.publisher.Close()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		b.hub.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		b.service.Watch(ctx, b.config.WatchInterval())
	}()

	err := b.server.ListenAndServe(ctx, b.config.HTTP.Listen)
	cancel(err)
	wg.Wait()
	if err != nil {
		return err
	}
	return context.Cause(ctx)
}

func (b *Bridge) requestRestart() {
	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()
	if cancel != nil {
		cancel(ErrRestart)
	}
}

func (b *Bridge) applyRestart(current settings.Settings) {
	if err := b.scheduler.Apply(current); err != nil {
		b.logger.Error().Err(err).Msg("failed to schedule auto restart")
	}
}

func (b *Bridge) component(name string) zerolog.Logger {
	return b.logger.With().Str("module", name).Logger()
}
