package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/config"
	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/repository"
)

// scheduler triggers the monthly rollup for the previous calendar month
type scheduler struct {
	stats StatsService
	runs  repository.RunRepository
	cfg   config.RollupConfig
	now   func() time.Time
	log   zerolog.Logger

	hour, minute int

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	nextRun *time.Time
	mu      sync.Mutex

	// busy guards against overlapping runs, scheduled or on demand
	busy atomic.Bool
}

func newScheduler(stats StatsService, runs repository.RunRepository, cfg config.RollupConfig, now func() time.Time, log zerolog.Logger) *scheduler {
	s := &scheduler{
		stats:  stats,
		runs:   runs,
		cfg:    cfg,
		now:    now,
		log:    log.With().Str("service", "scheduler").Logger(),
		minute: 30,
	}
	if at, err := time.Parse("15:04", cfg.At); err == nil {
		s.hour, s.minute = at.Hour(), at.Minute()
	} else if cfg.At != "" {
		s.log.Warn().Str("at", cfg.At).Msg("Invalid rollup time, using 00:30")
	}
	return s
}

// NextRunAfter returns the first trigger strictly after now on day of the
// month at hour:minute. day must be at most 28.
func NextRunAfter(now time.Time, day, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), day, hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 1, 0)
	}
	return next
}

// PreviousMonth returns the calendar month before t.
func PreviousMonth(t time.Time) (int, int) {
	prev := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, -1, 0)
	return prev.Year(), int(prev.Month())
}

// Start blocks, running the rollup each month until ctx is cancelled or
// Stop is called
func (s *scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info().Msg("Rollup scheduler disabled")
		return
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.log.Info().Int("day_of_month", s.cfg.DayOfMonth).Str("at", s.cfg.At).Msg("Rollup scheduler started")

	for {
		next := NextRunAfter(s.now(), s.cfg.DayOfMonth, s.hour, s.minute)
		s.mu.Lock()
		s.nextRun = &next
		s.mu.Unlock()

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info().Msg("Rollup scheduler stopping")
			return
		case <-timer.C:
			year, month := PreviousMonth(next)
			if _, err := s.RunNow(ctx, year, month); err != nil {
				s.log.Error().Err(err).Int("year", year).Int("month", month).Msg("Scheduled rollup failed")
			}
		}
	}
}

// Stop cancels the scheduler and waits for an in-flight run to return
func (s *scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("Rollup scheduler stopped")
}

// RunNow aggregates one month immediately, refusing to overlap another run
func (s *scheduler) RunNow(ctx context.Context, year, month int) (*models.RollupReport, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, apperr.New(apperr.KindConflict, apperr.AlreadyRunning, "a rollup is already running")
	}
	defer s.busy.Store(false)

	return s.stats.RunMonth(ctx, year, month)
}

// Snapshot reports the scheduler state and the latest recorded run
func (s *scheduler) Snapshot(ctx context.Context) models.SchedulerSnapshot {
	snap := models.SchedulerSnapshot{
		Enabled: s.cfg.Enabled,
		Running: s.busy.Load(),
	}

	s.mu.Lock()
	if s.nextRun != nil {
		next := *s.nextRun
		snap.NextRun = &next
	}
	s.mu.Unlock()

	last, err := s.runs.GetLatest(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to load latest rollup run")
	}
	snap.LastRun = last
	return snap
}
