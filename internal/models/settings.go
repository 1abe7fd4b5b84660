package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SettingsTTL is how long clients may cache comment settings.
const SettingsTTL = 30 * 24 * time.Hour

// Allowed values for the enumerated settings fields
var (
	SettingsTypes  = []string{"all", "not-readed", "only-readed", "disabled", "enabled"}
	SettingsOrders = []string{"asc", "desc"}
)

// CommentSettings are a user's comment display and notification preferences.
// There is at most one document per user, keyed by the user id.
type CommentSettings struct {
	UserID       primitive.ObjectID `json:"user_id" bson:"_id"`
	Type         string             `json:"type" bson:"type,omitempty"`
	Order        string             `json:"order" bson:"order,omitempty"`
	AnswersType  string             `json:"answers_type" bson:"answersType,omitempty"`
	AnswersOrder string             `json:"answers_order" bson:"answersOrder,omitempty"`
	Limit        int                `json:"limit" bson:"limit,omitempty"`
	Notify       bool               `json:"notify" bson:"notify"`
	CreatedAt    time.Time          `json:"created_at" bson:"createdAt"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updatedAt"`

	// Derived client cache hint, never stored.
	TTL time.Time `json:"ttl" bson:"-"`
}

// SettingsPatch is a partial settings save. Only non-nil fields apply.
type SettingsPatch struct {
	Type         *string `json:"type" validate:"omitempty,oneof=all not-readed only-readed disabled enabled"`
	Order        *string `json:"order" validate:"omitempty,oneof=asc desc"`
	AnswersType  *string `json:"answers_type" validate:"omitempty,oneof=all not-readed only-readed disabled enabled"`
	AnswersOrder *string `json:"answers_order" validate:"omitempty,oneof=asc desc"`
	Limit        *int    `json:"limit" validate:"omitempty,min=1,max=100"`
	Notify       *bool   `json:"notify"`
}
