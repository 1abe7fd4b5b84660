package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/content-threads-api/internal/database"
	"github.com/content-threads-api/internal/models"
)

type settingsRepo struct {
	coll *mongo.Collection
}

// NewSettingsRepo creates a new comment settings repository
func NewSettingsRepo(docs *database.Mongo) SettingsRepository {
	return &settingsRepo{coll: docs.CommentSettings}
}

func (r *settingsRepo) Get(ctx context.Context, userID primitive.ObjectID) (*models.CommentSettings, error) {
	var settings models.CommentSettings
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: userID}}).Decode(&settings)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment settings: %w", err)
	}
	return &settings, nil
}

func (r *settingsRepo) Insert(ctx context.Context, settings *models.CommentSettings) error {
	if _, err := r.coll.InsertOne(ctx, settings); err != nil {
		return fmt.Errorf("failed to insert comment settings: %w", err)
	}
	return nil
}

func (r *settingsRepo) Replace(ctx context.Context, settings *models.CommentSettings) error {
	_, err := r.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: settings.UserID}}, settings)
	if err != nil {
		return fmt.Errorf("failed to replace comment settings: %w", err)
	}
	return nil
}
