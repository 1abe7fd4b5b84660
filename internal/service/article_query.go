package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/policy"
	"github.com/content-threads-api/internal/repository"
	"github.com/content-threads-api/internal/validation"
)

type articleQueryService struct {
	articles repository.ArticleRepository
	log      zerolog.Logger
}

func newArticleQueryService(repos *repository.Repositories, log zerolog.Logger) *articleQueryService {
	return &articleQueryService{
		articles: repos.Article,
		log:      log.With().Str("service", "article-query").Logger(),
	}
}

// List returns one page of non-removed articles. Non-admins only ever see
// their own articles, whatever the requested type.
func (s *articleQueryService) List(ctx context.Context, actor *models.Actor, params models.ArticleListParams) (*models.ArticleList, error) {
	page := models.NewPage(params.Page, params.Limit, models.DefaultArticleLimit)

	filter := models.ArticleFilter{
		Query: strings.TrimSpace(params.Query),
		Order: models.OrderDesc,
	}
	if models.SortOrder(params.Order) == models.OrderAsc {
		filter.Order = models.OrderAsc
	}
	if params.Type != models.ListAll || !actor.IsAdmin {
		filter.AuthorID = &actor.ID
	}
	if params.ThemeID != "" {
		id, err := validation.ParseObjectID(params.ThemeID, "themeId")
		if err != nil {
			return nil, err
		}
		filter.ThemeID = &id
	}
	if params.CategoryID != "" {
		id, err := validation.ParseObjectID(params.CategoryID, "categoryId")
		if err != nil {
			return nil, err
		}
		filter.CategoryID = &id
	}

	items, err := s.articles.List(ctx, filter, page)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	count, err := s.articles.Count(ctx, filter)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &models.ArticleList{Items: items, Count: count, Page: page.Page, Limit: page.Limit}, nil
}

// GetByIDOrURI resolves the joined view of one article
func (s *articleQueryService) GetByIDOrURI(ctx context.Context, key string, kind models.KeyKind) (*models.ArticleView, error) {
	var (
		view *models.ArticleView
		err  error
	)
	switch kind {
	case models.KeyID:
		id, parseErr := primitive.ObjectIDFromHex(key)
		if parseErr != nil {
			return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidKey, "key is not a valid id")
		}
		view, err = s.articles.GetViewByID(ctx, id)
	case models.KeyCustomURI:
		view, err = s.articles.GetViewByURI(ctx, key)
	default:
		return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidEnum, "kind: must be one of: id, customUri")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if view == nil {
		return nil, errArticleNotFound()
	}
	return view, nil
}

// GetOne resolves an article the actor may view
func (s *articleQueryService) GetOne(ctx context.Context, actor *models.Actor, id string) (*models.ArticleView, error) {
	view, err := s.GetByIDOrURI(ctx, id, models.KeyID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewArticle(actor, &view.Article) {
		return nil, apperr.Forbid()
	}
	return view, nil
}

// ExistsByTitle counts the actor's articles whose title contains title
func (s *articleQueryService) ExistsByTitle(ctx context.Context, actor *models.Actor, title string) (*models.TitleMatch, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.New(apperr.KindInvalidInput, apperr.InvalidInput, "title: is required")
	}

	count, err := s.articles.CountByTitle(ctx, actor.ID, title)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &models.TitleMatch{Exists: count > 0, Count: count}, nil
}
