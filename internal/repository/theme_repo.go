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

type themeRepo struct {
	themes     *mongo.Collection
	categories *mongo.Collection
}

// NewThemeRepo creates a new theme and category repository
func NewThemeRepo(docs *database.Mongo) ThemeRepository {
	return &themeRepo{themes: docs.Themes, categories: docs.Categories}
}

func (r *themeRepo) GetTheme(ctx context.Context, id primitive.ObjectID) (*models.Theme, error) {
	var theme models.Theme
	err := r.themes.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&theme)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get theme: %w", err)
	}
	return &theme, nil
}

func (r *themeRepo) GetCategory(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	var category models.Category
	err := r.categories.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&category)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &category, nil
}
