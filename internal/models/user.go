package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents an account in the document store
type User struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Email     string             `json:"email" bson:"email"`
	Password  string             `json:"-" bson:"password"`
	IsAdmin   bool               `json:"is_admin" bson:"isAdmin"`
	IsAuthor  bool               `json:"is_author" bson:"isAuthor"`
	CreatedAt time.Time          `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updatedAt"`
	DeletedAt *time.Time         `json:"deleted_at,omitempty" bson:"deletedAt,omitempty"`
}

// Deleted reports whether the user has been soft-deleted.
func (u *User) Deleted() bool {
	return u.DeletedAt != nil
}

// UserSnapshot is the public, credential-free view of a user embedded in
// article and comment views.
type UserSnapshot struct {
	ID       primitive.ObjectID `json:"id" bson:"_id"`
	Name     string             `json:"name" bson:"name"`
	Email    string             `json:"email" bson:"email"`
	IsAdmin  bool               `json:"is_admin" bson:"isAdmin"`
	IsAuthor bool               `json:"is_author" bson:"isAuthor"`
}
