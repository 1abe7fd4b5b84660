package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/content-threads-api/internal/database"
	"github.com/content-threads-api/internal/models"
)

// commentRepo is the document-store implementation of CommentRepository
type commentRepo struct {
	coll *mongo.Collection
	log  zerolog.Logger
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(docs *database.Mongo, log zerolog.Logger) CommentRepository {
	return &commentRepo{
		coll: docs.Comments,
		log:  log.With().Str("collection", database.CommentsCollection).Logger(),
	}
}

// Create inserts a new comment, assigning an id when it has none
func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, comment); err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

// ListRoots returns one page of root comments on the author's articles
func (r *commentRepo) ListRoots(ctx context.Context, filter models.CommentFilter, page models.Page) ([]models.CommentView, error) {
	cursor, err := r.coll.Aggregate(ctx, rootListPipeline(filter, page))
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer cursor.Close(ctx)

	views := make([]models.CommentView, 0, page.Limit)
	if err := cursor.All(ctx, &views); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}
	return views, nil
}

// CountRoots counts every root comment matching the listing predicate
func (r *commentRepo) CountRoots(ctx context.Context, filter models.CommentFilter) (int64, error) {
	return r.aggregateCount(ctx, rootCountPipeline(filter))
}

// GetThread resolves a root comment with its article and direct answers
func (r *commentRepo) GetThread(ctx context.Context, id primitive.ObjectID) (*models.CommentThread, error) {
	cursor, err := r.coll.Aggregate(ctx, threadPipeline(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		return nil, cursor.Err()
	}
	var thread models.CommentThread
	if err := cursor.Decode(&thread); err != nil {
		return nil, fmt.Errorf("failed to decode comment: %w", err)
	}
	if thread.Answers == nil {
		thread.Answers = []models.Comment{}
	}
	return &thread, nil
}

// ListAnswers returns one page of the direct answers to rootID
func (r *commentRepo) ListAnswers(ctx context.Context, rootID primitive.ObjectID, page models.Page) ([]models.Comment, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))

	cursor, err := r.coll.Find(ctx, bson.D{{Key: "answerOf", Value: rootID}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	defer cursor.Close(ctx)

	answers := make([]models.Comment, 0, page.Limit)
	if err := cursor.All(ctx, &answers); err != nil {
		return nil, fmt.Errorf("failed to decode answers: %w", err)
	}
	return answers, nil
}

// CountAnswers counts the direct answers to rootID
func (r *commentRepo) CountAnswers(ctx context.Context, rootID primitive.ObjectID) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "answerOf", Value: rootID}})
	if err != nil {
		return 0, fmt.Errorf("failed to count answers: %w", err)
	}
	return n, nil
}

// MarkRead sets readedAt if it is still null and reports whether it did
func (r *commentRepo) MarkRead(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	filter := bson.D{{Key: "_id", Value: id}, {Key: "readedAt", Value: nil}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "readedAt", Value: now},
		{Key: "updatedAt", Value: now},
	}}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to mark comment read: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

// CountRootsInWindow counts root comments created within [from, to]
func (r *commentRepo) CountRootsInWindow(ctx context.Context, authorID *primitive.ObjectID, from, to time.Time) (int64, error) {
	return r.aggregateCount(ctx, windowCountPipeline(authorID, from, to))
}

func (r *commentRepo) aggregateCount(ctx context.Context, pipeline mongo.Pipeline) (int64, error) {
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	defer cursor.Close(ctx)

	if !cursor.Next(ctx) {
		// $count emits nothing when no document matched
		return 0, cursor.Err()
	}
	var doc struct {
		Count int64 `bson:"count"`
	}
	if err := cursor.Decode(&doc); err != nil {
		return 0, fmt.Errorf("failed to decode count: %w", err)
	}
	return doc.Count, nil
}
