package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/repository"
)

// statsService is the concrete implementation of StatsService
type statsService struct {
	users    repository.UserRepository
	comments repository.CommentRepository
	stats    repository.StatRepository
	runs     repository.RunRepository
	now      func() time.Time
	log      zerolog.Logger
	// maxWorkers bounds the concurrent count-and-insert tasks of a run
	maxWorkers int
}

func newStatsService(repos *repository.Repositories, maxWorkers int, now func() time.Time, log zerolog.Logger) *statsService {
	// Tasks are I/O-bound, so the pool may exceed the core count
	if maxWorkers < 1 {
		maxWorkers = runtime.NumCPU() * 4
		if maxWorkers < 4 {
			maxWorkers = 4
		}
		if maxWorkers > 32 {
			maxWorkers = 32
		}
	}

	log.Info().Int("max_workers", maxWorkers).Msg("Initializing rollup worker pool (I/O-bound)")

	return &statsService{
		users:      repos.User,
		comments:   repos.Comment,
		stats:      repos.Stat,
		runs:       repos.Run,
		now:        now,
		log:        log.With().Str("service", "stats").Logger(),
		maxWorkers: maxWorkers,
	}
}

// MonthWindow returns the rollup window of a month: day 1 00:00 through
// day 31 23:59:59.999. Shorter months overflow into the first days of the
// following month.
func MonthWindow(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year, time.Month(month), 31, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	return start, end
}

// RunMonth counts root comments per author and platform-wide within the
// month window and appends one StatRecord per count. Every task runs to
// completion; failures are collected rather than aborting the run.
func (s *statsService) RunMonth(ctx context.Context, year, month int) (*models.RollupReport, error) {
	if month < 1 || month > 12 || year < 1 {
		return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidInput, "year and month must name a calendar month")
	}

	userIDs, err := s.users.ListActiveIDs(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	start, end := MonthWindow(year, month)
	startedAt := s.now()
	run := &models.RollupRun{
		ID:          uuid.NewString(),
		Year:        year,
		Month:       month,
		WindowStart: start,
		WindowEnd:   end,
		Status:      models.RollupStatusRunning,
		Tasks:       len(userIDs) + 1,
		StartedAt:   startedAt,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, apperr.Internal(err)
	}

	log := s.log.With().Str("run_id", run.ID).Int("year", year).Int("month", month).Logger()
	log.Info().Int("tasks", run.Tasks).Msg("Rollup started")

	// nil is the platform-wide task
	tasks := make([]*primitive.ObjectID, 0, run.Tasks)
	for i := range userIDs {
		tasks = append(tasks, &userIDs[i])
	}
	tasks = append(tasks, nil)

	outcomes := s.runTasks(ctx, log, tasks, year, month, start, end)

	var failures []models.RollupOutcome
	for _, o := range outcomes {
		if o.Failed() {
			failures = append(failures, o)
			continue
		}
		run.Succeeded++
	}
	run.Failed = len(failures)

	switch {
	case run.Failed == 0:
		run.Status = models.RollupStatusCompleted
	case run.Succeeded == 0:
		run.Status = models.RollupStatusFailed
	default:
		run.Status = models.RollupStatusPartial
	}
	completedAt := s.now()
	run.CompletedAt = &completedAt
	run.DurationMs = completedAt.Sub(startedAt).Milliseconds()

	// Bookkeeping outlives a cancelled run context
	bookCtx := context.WithoutCancel(ctx)
	if err := s.runs.AddFailures(bookCtx, run.ID, failures); err != nil {
		log.Error().Err(err).Int("failures", len(failures)).Msg("Failed to record rollup failures")
	}
	if err := s.runs.Update(bookCtx, run); err != nil {
		log.Error().Err(err).Msg("Failed to update rollup run")
	}

	log.Info().
		Str("status", string(run.Status)).
		Int("succeeded", run.Succeeded).
		Int("failed", run.Failed).
		Int64("duration_ms", run.DurationMs).
		Msg("Rollup finished")

	return &models.RollupReport{Run: *run, Outcomes: outcomes}, nil
}

// runTasks fans the tasks out over the worker pool and returns one outcome
// per task, in task order
func (s *statsService) runTasks(ctx context.Context, log zerolog.Logger, tasks []*primitive.ObjectID, year, month int, start, end time.Time) []models.RollupOutcome {
	outcomes := make([]models.RollupOutcome, len(tasks))
	sem := make(chan struct{}, s.maxWorkers)
	var wg sync.WaitGroup

	for i, author := range tasks {
		// Acquire a slot; blocks while every worker is busy
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			for j := i; j < len(tasks); j++ {
				outcomes[j] = models.RollupOutcome{Reference: reference(tasks[j]), Error: ctx.Err().Error()}
			}
			wg.Wait()
			return outcomes
		}

		wg.Add(1)
		go func(i int, author *primitive.ObjectID) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					log.Error().Interface("panic", r).Msg("Rollup task panicked - recovered")
					outcomes[i] = models.RollupOutcome{Reference: reference(author), Error: fmt.Sprintf("panic: %v", r)}
				}
			}()
			outcomes[i] = s.runTask(ctx, year, month, author, start, end)
		}(i, author)
	}

	wg.Wait()
	return outcomes
}

func (s *statsService) runTask(ctx context.Context, year, month int, author *primitive.ObjectID, start, end time.Time) models.RollupOutcome {
	outcome := models.RollupOutcome{Reference: reference(author)}

	count, err := s.comments.CountRootsInWindow(ctx, author, start, end)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Count = count

	record := &models.StatRecord{Month: month, Year: year, Count: count, Reference: outcome.Reference}
	if err := s.stats.Insert(ctx, record); err != nil {
		outcome.Error = err.Error()
	}
	return outcome
}

func reference(author *primitive.ObjectID) *string {
	if author == nil {
		return nil
	}
	hex := author.Hex()
	return &hex
}

// Stats lists recorded monthly counts, newest first
func (s *statsService) Stats(ctx context.Context, filter models.StatFilter) ([]models.StatRecord, error) {
	records, err := s.stats.List(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return records, nil
}

// LatestRun returns the most recent rollup run, or nil when none ran yet
func (s *statsService) LatestRun(ctx context.Context) (*models.RollupRun, error) {
	run, err := s.runs.GetLatest(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return run, nil
}
