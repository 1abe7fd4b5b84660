package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/content-threads-api/internal/config"
	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/notify"
	"github.com/content-threads-api/internal/repository"
	"github.com/content-threads-api/internal/storage"
	"github.com/content-threads-api/internal/validation"
)

// ArticleService drives the article lifecycle state machine
type ArticleService interface {
	Create(ctx context.Context, actor *models.Actor, title string) (*models.ArticleView, error)
	Update(ctx context.Context, id string, patch *models.ArticlePatch, actor *models.Actor) (*models.Article, error)
	ChangeState(ctx context.Context, id string, actor *models.Actor, state models.ArticleState) (*models.Article, error)
	ChangeStatesBulk(ctx context.Context, actor *models.Actor, ids []string, state models.ArticleState) (*models.BulkStateResult, error)
	Remove(ctx context.Context, id string, actor *models.Actor) (*models.Article, error)
	SaveImage(ctx context.Context, id string, actor *models.Actor, kind models.ImageKind, blob models.Blob) (*models.Article, error)
	RemoveImage(ctx context.Context, id string, actor *models.Actor, kind models.ImageKind) (*models.Article, error)
}

// ArticleQueryService resolves and lists joined article views
type ArticleQueryService interface {
	List(ctx context.Context, actor *models.Actor, params models.ArticleListParams) (*models.ArticleList, error)
	GetByIDOrURI(ctx context.Context, key string, kind models.KeyKind) (*models.ArticleView, error)
	GetOne(ctx context.Context, actor *models.Actor, id string) (*models.ArticleView, error)
	ExistsByTitle(ctx context.Context, actor *models.Actor, title string) (*models.TitleMatch, error)
}

// CommentService manages two-tier comment threads
type CommentService interface {
	ListRoots(ctx context.Context, actor *models.Actor, partition string, page, limit int) (*models.CommentList, error)
	GetOne(ctx context.Context, id string) (*models.CommentThread, error)
	GetAnswers(ctx context.Context, rootID string, page, limit int) (*models.AnswerList, error)
	MarkRead(ctx context.Context, id string) error
	Answer(ctx context.Context, rootID string, actor *models.Actor, req models.AnswerRequest) (*models.Comment, error)
	// Authorize fails unless actor may moderate the thread rooted at id.
	Authorize(ctx context.Context, actor *models.Actor, id string) error
}

// SettingsService stores per-user comment display preferences
type SettingsService interface {
	Get(ctx context.Context, actor *models.Actor, userID string, presentedTTL *time.Time) (*models.CommentSettings, error)
	Save(ctx context.Context, actor *models.Actor, userID string, patch *models.SettingsPatch) (*models.CommentSettings, error)
}

// StatsService computes and reports monthly comment statistics
type StatsService interface {
	RunMonth(ctx context.Context, year, month int) (*models.RollupReport, error)
	Stats(ctx context.Context, filter models.StatFilter) ([]models.StatRecord, error)
	LatestRun(ctx context.Context) (*models.RollupRun, error)
}

// Scheduler triggers the monthly rollup
type Scheduler interface {
	Start(ctx context.Context)
	Stop()
	RunNow(ctx context.Context, year, month int) (*models.RollupReport, error)
	Snapshot(ctx context.Context) models.SchedulerSnapshot
}

// Deps are the external capabilities the services consume
type Deps struct {
	Store    storage.ObjectStore
	Notifier notify.Dispatcher
	// Now defaults to time.Now
	Now func() time.Time
}

// Services holds all service interfaces
type Services struct {
	Article   ArticleService
	Query     ArticleQueryService
	Comment   CommentService
	Settings  SettingsService
	Stats     StatsService
	Scheduler Scheduler
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, deps Deps, cfg *config.Config, log zerolog.Logger) *Services {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	v := validation.NewValidator()

	query := newArticleQueryService(repos, log)
	comments := newCommentService(repos, deps.Notifier, v, deps.Now, log)
	stats := newStatsService(repos, cfg.Rollup.MaxWorkers, deps.Now, log)

	return &Services{
		Article:   newArticleService(repos, deps.Store, v, deps.Now, log),
		Query:     query,
		Comment:   comments,
		Settings:  newSettingsService(repos, v, cfg.Settings.StrictNotifyMerge, deps.Now, log),
		Stats:     stats,
		Scheduler: newScheduler(stats, repos.Run, cfg.Rollup, deps.Now, log),
	}
}
