package telemetry

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures settings lifecycle events.
//
// Hooks run inline with load, patch and save, so implementations must not
// block.
type Collector interface {
	IncLoad(source string)
	IncSave(ok bool)
	IncPatch(origin string)
	AddSkipped(origin string, count int)
	IncHotReload(file string)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncLoad(string)         {}
func (noopCollector) IncSave(bool)           {}
func (noopCollector) IncPatch(string)        {}
func (noopCollector) AddSkipped(string, int) {}
func (noopCollector) IncHotReload(string)    {}

// PrometheusCollector exposes telemetry counters via Prometheus.
type PrometheusCollector struct {
	loads      *prometheus.CounterVec
	saves      *prometheus.CounterVec
	patches    *prometheus.CounterVec
	skipped    *prometheus.CounterVec
	hotReloads *prometheus.CounterVec
}

var (
	countersLock sync.Mutex
	counters     = map[prometheus.Registerer]map[string]*prometheus.CounterVec{}
)

// NewPrometheusCollector registers the required metrics with the provided
// registerer. Calling it again with the same registerer reuses the counters.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	countersLock.Lock()
	defer countersLock.Unlock()

	var err error
	c := &PrometheusCollector{}
	if c.loads, err = counterVec(reg, "rfbridge_settings_load_total", "Settings loads by source (file or defaults).", "source"); err != nil {
		return nil, err
	}
	if c.saves, err = counterVec(reg, "rfbridge_settings_save_total", "Settings save attempts by result.", "result"); err != nil {
		return nil, err
	}
	if c.patches, err = counterVec(reg, "rfbridge_settings_patch_total", "Settings patches applied by origin.", "origin"); err != nil {
		return nil, err
	}
	if c.skipped, err = counterVec(reg, "rfbridge_settings_skipped_entries_total", "Document entries ignored while patching, by origin.", "origin"); err != nil {
		return nil, err
	}
	if c.hotReloads, err = counterVec(reg, "rfbridge_settings_hot_reload_total", "Reloads triggered by external edits of the settings file.", "file"); err != nil {
		return nil, err
	}
	return c, nil
}

func counterVec(reg prometheus.Registerer, name, help string, labels ...string) (*prometheus.CounterVec, error) {
	if existing, ok := counters[reg][name]; ok {
		return existing, nil
	}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	if err := reg.Register(counter); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		counter = existing
	}
	if counters[reg] == nil {
		counters[reg] = map[string]*prometheus.CounterVec{}
	}
	counters[reg][name] = counter
	return counter, nil
}

// IncLoad counts a settings load.
func (p *PrometheusCollector) IncLoad(source string) {
	if p == nil || p.loads == nil {
		return
	}
	p.loads.WithLabelValues(source).Inc()
}

// IncSave counts a save attempt.
func (p *PrometheusCollector) IncSave(ok bool) {
	if p == nil || p.saves == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	p.saves.WithLabelValues(result).Inc()
}

// IncPatch counts an applied patch.
func (p *PrometheusCollector) IncPatch(origin string) {
	if p == nil || p.patches == nil {
		return
	}
	p.patches.WithLabelValues(origin).Inc()
}

// AddSkipped records ignored document entries.
func (p *PrometheusCollector) AddSkipped(origin string, count int) {
	if p == nil || p.skipped == nil || count <= 0 {
		return
	}
	p.skipped.WithLabelValues(origin).Add(float64(count))
}

// IncHotReload increments the counter for the provided file path.
func (p *PrometheusCollector) IncHotReload(file string) {
	if p == nil || p.hotReloads == nil {
		return
	}
	p.hotReloads.WithLabelValues(file).Inc()
}
