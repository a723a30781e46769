package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func resetCounters() {
	countersLock.Lock()
	counters = map[prometheus.Registerer]map[string]*prometheus.CounterVec{}
	countersLock.Unlock()
}

func TestNoopCollector(t *testing.T) {
	collector := Noop()
	require.NotNil(t, collector)
	collector.IncLoad("file")
	collector.IncSave(false)
	collector.AddSkipped("http", 3)
}

func TestPrometheusCollectorRegistersAndReusesCounters(t *testing.T) {
	resetCounters()

	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	collector.IncSave(true)
	collector.IncSave(false)
	collector.IncSave(false)

	again, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.Same(t, collector.saves, again.saves)
	again.IncSave(true)

	family := gather(t, reg, "rfbridge_settings_save_total")
	require.Equal(t, 2.0, counterWithLabel(t, family, "result", "ok"))
	require.Equal(t, 2.0, counterWithLabel(t, family, "result", "error"))
}

func TestPrometheusCollectorReusesAlreadyRegistered(t *testing.T) {
	resetCounters()
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	// A fresh process-level cache must still pick up the registered vectors.
	resetCounters()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	collector.AddSkipped("http", 2)
	collector.AddSkipped("http", 0)

	family := gather(t, reg, "rfbridge_settings_skipped_entries_total")
	require.Equal(t, 2.0, counterWithLabel(t, family, "origin", "http"))
}

func TestNilPrometheusCollectorIsSafe(t *testing.T) {
	var collector *PrometheusCollector
	collector.IncLoad("file")
	collector.IncPatch("http")
	collector.IncHotReload("settings.json")
}

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return nil
}

func counterWithLabel(t *testing.T, mf *dto.MetricFamily, label, value string) float64 {
	t.Helper()
	for _, metric := range mf.Metric {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				require.NotNil(t, metric.Counter)
				return metric.Counter.GetValue()
			}
		}
	}
	t.Fatalf("no %s sample with %s=%s", mf.GetName(), label, value)
	return 0
}
