package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/database"
	"github.com/content-threads-api/internal/models"
)

// Lookups by id return (nil, nil) when the record does not exist.

// Transition describes a state change applied atomically to every article
// matching IDs, one of the origin states in From and, when OwnerID is set,
// the author.
type Transition struct {
	IDs      []primitive.ObjectID
	From     []models.ArticleState
	State    models.ArticleState
	OwnerID  *primitive.ObjectID
	URIToken string // regenerates customUri when non-empty
	Now      time.Time
}

// ArticleRepository defines the interface for article data operations
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Article, error)
	GetViewByID(ctx context.Context, id primitive.ObjectID) (*models.ArticleView, error)
	GetViewByURI(ctx context.Context, uri string) (*models.ArticleView, error)
	List(ctx context.Context, filter models.ArticleFilter, page models.Page) ([]models.ArticleView, error)
	Count(ctx context.Context, filter models.ArticleFilter) (int64, error)
	CountByTitle(ctx context.Context, authorID primitive.ObjectID, title string) (int64, error)
	CountByState(ctx context.Context, authorID primitive.ObjectID, state models.ArticleState) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, patch *models.ArticlePatch, now time.Time) error
	Transition(ctx context.Context, t Transition) (int64, error)
	SetImage(ctx context.Context, id primitive.ObjectID, kind models.ImageKind, url *string, now time.Time) error
}

// ThemeRepository reads theme and category reference data
type ThemeRepository interface {
	GetTheme(ctx context.Context, id primitive.ObjectID) (*models.Theme, error)
	GetCategory(ctx context.Context, id primitive.ObjectID) (*models.Category, error)
}

// UserRepository defines the interface for user data operations
type UserRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListActiveIDs(ctx context.Context) ([]primitive.ObjectID, error)
}

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	ListRoots(ctx context.Context, filter models.CommentFilter, page models.Page) ([]models.CommentView, error)
	CountRoots(ctx context.Context, filter models.CommentFilter) (int64, error)
	GetThread(ctx context.Context, id primitive.ObjectID) (*models.CommentThread, error)
	ListAnswers(ctx context.Context, rootID primitive.ObjectID, page models.Page) ([]models.Comment, error)
	CountAnswers(ctx context.Context, rootID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error)
	// CountRootsInWindow counts root comments created in [from, to]. A nil
	// authorID counts platform-wide.
	CountRootsInWindow(ctx context.Context, authorID *primitive.ObjectID, from, to time.Time) (int64, error)
}

// SettingsRepository persists one CommentSettings document per user
type SettingsRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.CommentSettings, error)
	Insert(ctx context.Context, settings *models.CommentSettings) error
	Replace(ctx context.Context, settings *models.CommentSettings) error
}

// StatRepository appends and lists monthly comment counts
type StatRepository interface {
	Insert(ctx context.Context, record *models.StatRecord) error
	List(ctx context.Context, filter models.StatFilter) ([]models.StatRecord, error)
}

// RunRepository records rollup executions and their failed tasks
type RunRepository interface {
	Create(ctx context.Context, run *models.RollupRun) error
	Update(ctx context.Context, run *models.RollupRun) error
	GetByID(ctx context.Context, id string) (*models.RollupRun, error)
	GetLatest(ctx context.Context) (*models.RollupRun, error)
	AddFailures(ctx context.Context, runID string, failures []models.RollupOutcome) error
	GetFailures(ctx context.Context, runID string, limit int) ([]models.RollupOutcome, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article  ArticleRepository
	Theme    ThemeRepository
	User     UserRepository
	Comment  CommentRepository
	Settings SettingsRepository
	Stat     StatRepository
	Run      RunRepository
}

// New creates all repositories over the document and relational stores
func New(docs *database.Mongo, db *database.DB, log zerolog.Logger) *Repositories {
	log = log.With().Str("component", "repository").Logger()
	return &Repositories{
		Article:  NewArticleRepo(docs, log),
		Theme:    NewThemeRepo(docs),
		User:     NewUserRepo(docs),
		Comment:  NewCommentRepo(docs, log),
		Settings: NewSettingsRepo(docs),
		Stat:     NewStatRepo(db),
		Run:      NewRunRepo(db),
	}
}
