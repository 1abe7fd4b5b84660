package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/content-threads-api/internal/database"
	"github.com/content-threads-api/internal/models"
)

// articleRepo is the document-store implementation of ArticleRepository
type articleRepo struct {
	coll *mongo.Collection
	log  zerolog.Logger
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(docs *database.Mongo, log zerolog.Logger) ArticleRepository {
	return &articleRepo{
		coll: docs.Articles,
		log:  log.With().Str("collection", database.ArticlesCollection).Logger(),
	}
}

// Create inserts a new article, assigning an id when it has none
func (r *articleRepo) Create(ctx context.Context, article *models.Article) error {
	if article.ID.IsZero() {
		article.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, article); err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// GetByID retrieves the bare article
func (r *articleRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Article, error) {
	var article models.Article
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&article)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	return &article, nil
}

// GetViewByID retrieves the joined view of an article by id
func (r *articleRepo) GetViewByID(ctx context.Context, id primitive.ObjectID) (*models.ArticleView, error) {
	return r.firstView(ctx, bson.D{{Key: "_id", Value: id}})
}

// GetViewByURI retrieves the joined view of an article by vanity path
func (r *articleRepo) GetViewByURI(ctx context.Context, uri string) (*models.ArticleView, error) {
	return r.firstView(ctx, bson.D{{Key: "customUri", Value: uri}})
}

func (r *articleRepo) firstView(ctx context.Context, match bson.D) (*models.ArticleView, error) {
	cursor, err := r.coll.Aggregate(ctx, articleViewPipeline(match))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve article: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		return nil, cursor.Err()
	}
	var view models.ArticleView
	if err := cursor.Decode(&view); err != nil {
		return nil, fmt.Errorf("failed to decode article: %w", err)
	}
	return &view, nil
}

// List returns one page of joined article views
func (r *articleRepo) List(ctx context.Context, filter models.ArticleFilter, page models.Page) ([]models.ArticleView, error) {
	cursor, err := r.coll.Aggregate(ctx, articleListPipeline(filter, page))
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer cursor.Close(ctx)

	views := make([]models.ArticleView, 0, page.Limit)
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("failed to decode articles: %w", err)
	}
	return views, nil
}

// Count counts every article matching the listing predicate
func (r *articleRepo) Count(ctx context.Context, filter models.ArticleFilter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, articleMatch(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

// CountByTitle counts the author's articles whose title contains title
func (r *articleRepo) CountByTitle(ctx context.Context, authorID primitive.ObjectID, title string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{
		{Key: "authorId", Value: authorID},
		{Key: "title", Value: containsFold(title)},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count titles: %w", err)
	}
	return n, nil
}

// CountByState counts the author's articles in state
func (r *articleRepo) CountByState(ctx context.Context, authorID primitive.ObjectID, state models.ArticleState) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{
		{Key: "authorId", Value: authorID},
		{Key: "state", Value: state},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count articles by state: %w", err)
	}
	return n, nil
}

// Update applies the mutable fields of patch
func (r *articleRepo) Update(ctx context.Context, id primitive.ObjectID, patch *models.ArticlePatch, now time.Time) error {
	set := bson.D{{Key: "updatedAt", Value: now}}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *patch.Description})
	}
	if patch.Content != nil {
		set = append(set, bson.E{Key: "content", Value: *patch.Content})
	}
	if patch.ContentType != nil {
		set = append(set, bson.E{Key: "contentType", Value: *patch.ContentType})
	}
	if patch.ThemeID != nil {
		set = append(set, bson.E{Key: "themeId", Value: *patch.ThemeID})
	}
	if patch.CategoryID != nil {
		set = append(set, bson.E{Key: "categoryId", Value: *patch.CategoryID})
	}
	if patch.CustomURI != nil {
		set = append(set, bson.E{Key: "customUri", Value: *patch.CustomURI})
	}

	_, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("failed to update article: %w", err)
	}
	return nil
}

// Transition sets the state of every matching article in one write. The
// state's timestamp is stamped only where it is still unset.
func (r *articleRepo) Transition(ctx context.Context, t Transition) (int64, error) {
	filter := bson.D{
		{Key: "_id", Value: bson.D{{Key: "$in", Value: t.IDs}}},
		{Key: "state", Value: bson.D{{Key: "$in", Value: t.From}}},
	}
	if t.OwnerID != nil {
		filter = append(filter, bson.E{Key: "authorId", Value: *t.OwnerID})
	}

	update := mongo.Pipeline{{{Key: "$set", Value: transitionSet(t)}}}
	result, err := r.coll.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to transition articles: %w", err)
	}

	r.log.Debug().
		Str("state", string(t.State)).
		Int("requested", len(t.IDs)).
		Int64("modified", result.ModifiedCount).
		Msg("Articles transitioned")

	return result.ModifiedCount, nil
}

func transitionSet(t Transition) bson.D {
	set := bson.D{
		{Key: "state", Value: bson.D{{Key: "$literal", Value: t.State}}},
		{Key: "updatedAt", Value: t.Now},
	}
	if field := t.State.TimestampField(); field != "" {
		set = append(set, bson.E{Key: field, Value: bson.D{{Key: "$ifNull", Value: bson.A{"$" + field, t.Now}}}})
	}
	if t.URIToken != "" {
		set = append(set, bson.E{Key: "customUri", Value: bson.D{{Key: "$concat", Value: bson.A{
			bson.D{{Key: "$toString", Value: "$_id"}},
			"-" + t.URIToken,
		}}}})
	}
	return set
}

// SetImage stores url in the given slot, or clears it when url is nil
func (r *articleRepo) SetImage(ctx context.Context, id primitive.ObjectID, kind models.ImageKind, url *string, now time.Time) error {
	var update bson.D
	if url == nil {
		update = bson.D{
			{Key: "$unset", Value: bson.D{{Key: kind.Field(), Value: ""}}},
			{Key: "$set", Value: bson.D{{Key: "updatedAt", Value: now}}},
		}
	} else {
		update = bson.D{{Key: "$set", Value: bson.D{
			{Key: kind.Field(), Value: *url},
			{Key: "updatedAt", Value: now},
		}}}
	}

	if _, err := r.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update); err != nil {
		return fmt.Errorf("failed to set article image: %w", err)
	}
	return nil
}
