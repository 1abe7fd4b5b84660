package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReferenceStateActive is the only state eligible for association.
const ReferenceStateActive = "active"

// Theme groups categories
type Theme struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	State     string             `json:"state" bson:"state"`
	CreatedAt time.Time          `json:"created_at" bson:"createdAt"`
}

// Active reports whether the theme can be associated with an article.
func (t *Theme) Active() bool {
	return t.State == ReferenceStateActive
}

// Category always belongs to exactly one theme
type Category struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ThemeID   primitive.ObjectID `json:"theme_id" bson:"themeId"`
	Name      string             `json:"name" bson:"name"`
	State     string             `json:"state" bson:"state"`
	CreatedAt time.Time          `json:"created_at" bson:"createdAt"`
}

// Active reports whether the category can be associated with an article.
func (c *Category) Active() bool {
	return c.State == ReferenceStateActive
}
