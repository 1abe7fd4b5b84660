package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/policy"
	"github.com/content-threads-api/internal/repository"
	"github.com/content-threads-api/internal/storage"
	"github.com/content-threads-api/internal/validation"
)

// articleService is the concrete implementation of ArticleService
type articleService struct {
	articles repository.ArticleRepository
	themes   repository.ThemeRepository
	store    storage.ObjectStore
	validate *validation.Validator
	now      func() time.Time
	log      zerolog.Logger
}

func newArticleService(repos *repository.Repositories, store storage.ObjectStore, v *validation.Validator, now func() time.Time, log zerolog.Logger) *articleService {
	return &articleService{
		articles: repos.Article,
		themes:   repos.Theme,
		store:    store,
		validate: v,
		now:      now,
		log:      log.With().Str("service", "article").Logger(),
	}
}

func errArticleNotFound() error {
	return apperr.New(apperr.KindNotFound, apperr.NotFound, "article not found")
}

// Create inserts a draft owned by actor
func (s *articleService) Create(ctx context.Context, actor *models.Actor, title string) (*models.ArticleView, error) {
	if err := s.validate.Struct(&models.CreateArticleRequest{Title: title}); err != nil {
		return nil, err
	}

	now := s.now()
	article := &models.Article{
		ID:        primitive.NewObjectID(),
		Title:     title,
		AuthorID:  actor.ID,
		State:     models.StateDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	article.CustomURI = models.DefaultCustomURI(article.ID, models.NewURIToken())

	if err := s.articles.Create(ctx, article); err != nil {
		return nil, apperr.Internal(err)
	}

	s.log.Info().Str("article_id", article.ID.Hex()).Str("author_id", actor.ID.Hex()).Msg("Article created")

	// The actor is the author, so no lookup is needed for the join.
	return &models.ArticleView{Article: *article, Author: actor.Snapshot()}, nil
}

// loadOwned resolves an article the actor may mutate
func (s *articleService) loadOwned(ctx context.Context, id string, actor *models.Actor) (*models.Article, error) {
	oid, err := validation.ParseObjectID(id, "id")
	if err != nil {
		return nil, err
	}
	article, err := s.articles.GetByID(ctx, oid)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if article == nil {
		return nil, errArticleNotFound()
	}
	if !policy.CanMutateArticle(actor, article) {
		return nil, apperr.Forbid()
	}
	return article, nil
}

// Update applies a partial edit of the mutable article fields
func (s *articleService) Update(ctx context.Context, id string, patch *models.ArticlePatch, actor *models.Actor) (*models.Article, error) {
	if patch.Title != nil && *patch.Title == "" {
		return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidInput, "title: must not be empty")
	}
	if patch.CustomURI != nil {
		uri := validation.StripSpaces(*patch.CustomURI)
		if uri == "" {
			return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidInput, "custom_uri: must not be empty")
		}
		patch.CustomURI = &uri
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, err
	}

	article, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	if err := s.checkReferences(ctx, article, patch); err != nil {
		return nil, err
	}

	patch.StripImmutable()
	now := s.now()
	if err := s.articles.Update(ctx, article.ID, patch, now); err != nil {
		return nil, apperr.Internal(err)
	}

	patch.Apply(article)
	article.UpdatedAt = now
	return article, nil
}

// checkReferences validates the theme and category carried by patch
func (s *articleService) checkReferences(ctx context.Context, article *models.Article, patch *models.ArticlePatch) error {
	var theme *models.Theme
	if patch.ThemeID != nil {
		t, err := s.themes.GetTheme(ctx, *patch.ThemeID)
		if err != nil {
			return apperr.Internal(err)
		}
		if t == nil || !t.Active() {
			return apperr.New(apperr.KindInvalidInput, apperr.InvalidTheme, "theme does not exist or is not active")
		}
		theme = t
	}

	if patch.CategoryID == nil {
		return nil
	}
	if patch.ThemeID == nil && article.ThemeID == nil {
		return apperr.New(apperr.KindInvalidInput, apperr.MissingTheme, "a category requires a theme")
	}

	category, err := s.themes.GetCategory(ctx, *patch.CategoryID)
	if err != nil {
		return apperr.Internal(err)
	}
	invalid := apperr.New(apperr.KindInvalidInput, apperr.InvalidCategory, "category does not exist or is not active")
	if category == nil || !category.Active() {
		return invalid
	}

	parent := theme
	if parent == nil || parent.ID != category.ThemeID {
		if parent, err = s.themes.GetTheme(ctx, category.ThemeID); err != nil {
			return apperr.Internal(err)
		}
	}
	if parent == nil || !parent.Active() {
		return invalid
	}

	if patch.ThemeID != nil && *patch.ThemeID != category.ThemeID {
		return apperr.New(apperr.KindInvalidInput, apperr.ThemeMismatch, "category does not belong to the given theme")
	}
	return nil
}

// ChangeState moves one article to boosted, inactivated or published
func (s *articleService) ChangeState(ctx context.Context, id string, actor *models.Actor, state models.ArticleState) (*models.Article, error) {
	if !models.SingleTransitionTargets[state] {
		return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidEnum, "state: must be one of: boosted, inactivated, published")
	}

	article, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	if article.State == models.StateRemoved {
		return nil, apperr.New(apperr.KindConflict, apperr.AlreadyRemoved, "article is removed")
	}
	if article.State == state {
		return nil, apperr.New(apperr.KindConflict, apperr.NoOp, fmt.Sprintf("article is already %s", state))
	}

	if state == models.StateBoosted {
		boosted, err := s.articles.CountByState(ctx, actor.ID, models.StateBoosted)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if policy.BoostQuotaExceeded(actor, boosted) {
			return nil, apperr.New(apperr.KindConflict, apperr.QuotaExceeded, "boosted article quota exceeded")
		}
	}

	now := s.now()
	modified, err := s.articles.Transition(ctx, repository.Transition{
		IDs:   []primitive.ObjectID{article.ID},
		From:  models.StatesExcept(state, models.StateRemoved),
		State: state,
		Now:   now,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if modified == 0 {
		// a concurrent writer got there first
		return nil, apperr.New(apperr.KindConflict, apperr.NoOp, fmt.Sprintf("article is already %s", state))
	}

	s.log.Info().
		Str("article_id", article.ID.Hex()).
		Str("from", string(article.State)).
		Str("to", string(state)).
		Msg("Article state changed")

	applyTransition(article, state, now)
	return article, nil
}

// ChangeStatesBulk moves every eligible article in ids to state. Articles
// outside the origin states of state, or not owned by a non-admin actor, are
// skipped silently.
func (s *articleService) ChangeStatesBulk(ctx context.Context, actor *models.Actor, ids []string, state models.ArticleState) (*models.BulkStateResult, error) {
	origins, ok := models.BulkOrigins[state]
	if !ok {
		return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidEnum, "state: must be one of: boosted, inactivated, published, removed")
	}

	oids, err := validation.ParseObjectIDs(ids, "ids")
	if err != nil {
		return nil, err
	}

	if state == models.StateBoosted {
		boosted, err := s.articles.CountByState(ctx, actor.ID, models.StateBoosted)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if policy.BulkBoostQuotaExceeded(actor, boosted, len(oids)) {
			return nil, apperr.New(apperr.KindConflict, apperr.QuotaExceeded, "boosted article quota exceeded")
		}
	}

	t := repository.Transition{IDs: oids, From: origins, State: state, Now: s.now()}
	if !actor.IsAdmin {
		t.OwnerID = &actor.ID
	}
	if state == models.StateRemoved {
		t.URIToken = models.NewURIToken()
	}

	modified, err := s.articles.Transition(ctx, t)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.log.Info().
		Str("actor_id", actor.ID.Hex()).
		Str("state", string(state)).
		Int("requested", len(oids)).
		Int64("modified", modified).
		Msg("Bulk state change applied")

	return &models.BulkStateResult{Requested: len(oids), Modified: modified}, nil
}

// Remove soft-deletes an article and frees its vanity path
func (s *articleService) Remove(ctx context.Context, id string, actor *models.Actor) (*models.Article, error) {
	article, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	alreadyRemoved := apperr.New(apperr.KindConflict, apperr.AlreadyRemoved, "article is already removed")
	if article.State == models.StateRemoved {
		return nil, alreadyRemoved
	}

	now := s.now()
	token := models.NewURIToken()
	modified, err := s.articles.Transition(ctx, repository.Transition{
		IDs:      []primitive.ObjectID{article.ID},
		From:     models.StatesExcept(models.StateRemoved),
		State:    models.StateRemoved,
		URIToken: token,
		Now:      now,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if modified == 0 {
		return nil, alreadyRemoved
	}

	s.log.Info().Str("article_id", article.ID.Hex()).Msg("Article removed")

	applyTransition(article, models.StateRemoved, now)
	article.CustomURI = models.DefaultCustomURI(article.ID, token)
	return article, nil
}

func applyTransition(article *models.Article, state models.ArticleState, now time.Time) {
	article.State = state
	article.UpdatedAt = now
	if stamp := article.Stamp(state); stamp != nil && *stamp == nil {
		at := now
		*stamp = &at
	}
}

func errInvalidImageKind() error {
	return apperr.New(apperr.KindInvalidInput, apperr.InvalidType, "image kind must be one of: logo, secondary, header")
}

// SaveImage stores blob and records it in the kind slot, replacing any
// previous image
func (s *articleService) SaveImage(ctx context.Context, id string, actor *models.Actor, kind models.ImageKind, blob models.Blob) (*models.Article, error) {
	if !kind.Valid() {
		return nil, errInvalidImageKind()
	}
	if len(blob.Data) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidInput, "image: must not be empty")
	}

	article, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	url, err := s.store.Store(ctx, blob)
	if err != nil {
		return nil, err
	}

	previous := article.Image(kind)
	if err := s.articles.SetImage(ctx, article.ID, kind, &url, s.now()); err != nil {
		return nil, apperr.Internal(err)
	}
	if previous != nil {
		s.deleteBlob(ctx, article.ID, *previous)
	}

	article.SetImage(kind, &url)
	return article, nil
}

// RemoveImage clears the kind slot and deletes its blob
func (s *articleService) RemoveImage(ctx context.Context, id string, actor *models.Actor, kind models.ImageKind) (*models.Article, error) {
	if !kind.Valid() {
		return nil, errInvalidImageKind()
	}

	article, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	previous := article.Image(kind)
	if previous == nil {
		return nil, apperr.New(apperr.KindConflict, apperr.NothingToRemove, fmt.Sprintf("article has no %s image", kind))
	}

	if err := s.articles.SetImage(ctx, article.ID, kind, nil, s.now()); err != nil {
		return nil, apperr.Internal(err)
	}
	s.deleteBlob(ctx, article.ID, *previous)

	article.SetImage(kind, nil)
	return article, nil
}

// deleteBlob removes a replaced image; failures leave a stale blob behind
func (s *articleService) deleteBlob(ctx context.Context, articleID primitive.ObjectID, url string) {
	if err := s.store.Delete(ctx, url); err != nil {
		s.log.Warn().Err(err).
			Str("article_id", articleID.Hex()).
			Str("url", url).
			Msg("Failed to delete image blob")
	}
}
