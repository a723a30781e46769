// Package restart schedules the periodic restart configured in the settings.
package restart

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/timzifer/rfbridge/settings"
)

// Scheduler runs restart every AutoRestartPeriod seconds while auto restart
// is enabled.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entry   cron.EntryID
	period  time.Duration
	restart func()
	logger  zerolog.Logger
}

// New builds a stopped scheduler.
func New(restart func(), logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		restart: restart,
		logger:  logger,
	}
}

// CronSpec returns the cron spec for a restart period in seconds.
func CronSpec(seconds uint32) string {
	return fmt.Sprintf("@every %ds", seconds)
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron loop and waits for a running restart callback.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Apply reschedules the restart from current. Unchanged periods keep the
// running schedule.
func (s *Scheduler) Apply(current settings.Settings) error {
	period := time.Duration(current.AutoRestartPeriod()) * time.Second
	return s.schedule(period)
}

// Period returns the active restart period, zero when disabled.
func (s *Scheduler) Period() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.period
}

func (s *Scheduler) schedule(period time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if period == s.period {
		return nil
	}
	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}
	s.period = 0
	if period <= 0 {
		s.logger.Info().Msg("auto restart disabled")
		return nil
	}
	spec := CronSpec(uint32(period / time.Second))
	id, err := s.cron.AddFunc(spec, s.fire)
	if err != nil {
		return fmt.Errorf("schedule restart %q: %w", spec, err)
	}
	s.entry = id
	s.period = period
	s.logger.Info().Dur("period", period).Msg("auto restart scheduled")
	return nil
}

func (s *Scheduler) fire() {
	s.logger.Warn().Msg("auto restart period elapsed, restarting")
	if s.restart != nil {
		s.restart()
	}
}
