package restart

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/rfbridge/settings"
)

func TestCronSpec(t *testing.T) {
	require.Equal(t, "@every 300s", CronSpec(300))
}

func TestApplyFollowsSettings(t *testing.T) {
	s := New(nil, zerolog.Nop())

	current := settings.Default()
	require.NoError(t, s.Apply(current))
	require.Zero(t, s.Period())
	require.Empty(t, s.cron.Entries())

	current.SetAutoRestartPeriod(60)
	require.NoError(t, s.Apply(current))
	require.Equal(t, 300*time.Second, s.Period(), "periods are clamped to the minimum")
	require.Len(t, s.cron.Entries(), 1)

	current.SetAutoRestartPeriod(600)
	require.NoError(t, s.Apply(current))
	require.Equal(t, 600*time.Second, s.Period())
	require.Len(t, s.cron.Entries(), 1)

	current.SetAutoRestartPeriod(0)
	require.NoError(t, s.Apply(current))
	require.Zero(t, s.Period())
	require.Empty(t, s.cron.Entries())
}

func TestScheduledRestartFires(t *testing.T) {
	var fired atomic.Int32
	s := New(func() { fired.Add(1) }, zerolog.Nop())
	s.Start()
	defer s.Stop()

	require.NoError(t, s.schedule(time.Second))
	require.Eventually(t, func() bool { return fired.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
}
