package persist

import (
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/rfbridge/settings"
	"github.com/timzifer/rfbridge/storage"
	"github.com/timzifer/rfbridge/telemetry"
)

type recordingCollector struct {
	loads   []string
	saves   []bool
	skipped int
}

func (r *recordingCollector) IncLoad(source string)      { r.loads = append(r.loads, source) }
func (r *recordingCollector) IncSave(ok bool)            { r.saves = append(r.saves, ok) }
func (r *recordingCollector) IncPatch(string)            {}
func (r *recordingCollector) AddSkipped(_ string, n int) { r.skipped += n }
func (r *recordingCollector) IncHotReload(string)        {}

var _ telemetry.Collector = (*recordingCollector)(nil)

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	mem := storage.NewMemory()
	rec := &recordingCollector{}
	ctrl := New(mem, zerolog.Nop(), WithTelemetry(rec))
	require.Equal(t, Uninitialized, ctrl.State())

	target := settings.Default()
	target.Hostname = "stale"
	issues := ctrl.Load(&target)

	require.Empty(t, issues)
	require.Equal(t, LoadedFromDefaults, ctrl.State())
	require.Equal(t, settings.Default(), target)

	stored, ok := mem.Get(settings.FileName)
	require.True(t, ok)
	def := settings.Default()
	require.Equal(t, def.ToJSON(false), string(stored))
	require.Equal(t, []string{"defaults"}, rec.loads)
	require.Equal(t, []bool{true}, rec.saves)
}

func TestLoadExistingFileResetsAndPatches(t *testing.T) {
	mem := storage.NewMemory()
	mem.Put(settings.FileName, []byte(`{"hostname":"bridge","device_ids":[5]}`))
	ctrl := New(mem, zerolog.Nop())

	target := settings.Default()
	target.CEPin = 99
	ctrl.Load(&target)

	want := settings.Default()
	want.Hostname = "bridge"
	want.DeviceIDs = []uint16{5}
	require.Equal(t, want, target)
	require.Equal(t, LoadedFromFile, ctrl.State())
}

func TestLoadAppliesReadablePartOfCorruptFile(t *testing.T) {
	mem := storage.NewMemory()
	mem.Put(settings.FileName, []byte(`{"hostname":"bridge","ce_pin":`))
	rec := &recordingCollector{}
	ctrl := New(mem, zerolog.Nop(), WithTelemetry(rec))

	target := settings.Default()
	ctrl.Load(&target)

	require.Equal(t, "bridge", target.Hostname)
	require.Equal(t, settings.Default().CEPin, target.CEPin)
	require.Equal(t, LoadedFromFile, ctrl.State())
	require.Empty(t, rec.saves, "a corrupt file must not be overwritten by load")
}

func TestLoadEmptyFileYieldsDefaults(t *testing.T) {
	mem := storage.NewMemory()
	mem.Put(settings.FileName, nil)
	ctrl := New(mem, zerolog.Nop())

	target := settings.Default()
	target.Hostname = "stale"
	ctrl.Load(&target)
	require.Equal(t, settings.Default(), target)
}

func TestLoadReportsSkippedEntries(t *testing.T) {
	mem := storage.NewMemory()
	mem.Put(settings.FileName, []byte(`{"gateway_configs":[[1,2,3],[4,5]]}`))
	rec := &recordingCollector{}
	ctrl := New(mem, zerolog.Nop(), WithTelemetry(rec))

	target := settings.Default()
	issues := ctrl.Load(&target)
	require.Len(t, issues, 1)
	require.Equal(t, 1, rec.skipped)
	require.Equal(t, []settings.GatewayConfig{settings.NewGatewayConfig(1, 2, 3)}, target.GatewayConfigs)
}

func TestSaveFailureIsReportedAndHarmless(t *testing.T) {
	mem := storage.NewMemory()
	mem.FailWrites = true
	var logs bytes.Buffer
	rec := &recordingCollector{}
	ctrl := New(mem, zerolog.New(&logs), WithTelemetry(rec))

	s := settings.Default()
	s.Hostname = "keep"
	err := ctrl.Save(&s)

	require.Error(t, err)
	require.Equal(t, "keep", s.Hostname)
	require.False(t, mem.Exists(settings.FileName))
	require.Contains(t, logs.String(), "opening settings file failed")
	require.Equal(t, []bool{false}, rec.saves)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	dir, err := storage.NewDir(t.TempDir())
	require.NoError(t, err)
	ctrl := New(dir, zerolog.Nop(), WithName("device.json"))

	src := settings.Default()
	src.SetMQTTServer("broker:1884")
	src.GatewayConfigs = []settings.GatewayConfig{settings.NewGatewayConfig(7, 8899, 6)}
	src.RadioInterfaceType = settings.LT8900
	require.NoError(t, ctrl.Save(&src))
	require.True(t, dir.Exists("device.json"))

	var loaded settings.Settings
	ctrl.Load(&loaded)
	require.Equal(t, src, loaded)
	require.Equal(t, LoadedFromFile, ctrl.State())
}

func TestPrometheusTelemetry(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector, err := telemetry.NewPrometheusCollector(reg)
	require.NoError(t, err)

	ctrl := New(storage.NewMemory(), zerolog.Nop(), WithTelemetry(collector))
	target := settings.Default()
	ctrl.Load(&target)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, family := range families {
		names = append(names, family.GetName())
	}
	require.Contains(t, names, "rfbridge_settings_load_total")
	require.Contains(t, names, "rfbridge_settings_save_total")
}
