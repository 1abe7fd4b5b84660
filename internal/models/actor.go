package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Actor is the already-authenticated identity behind a request.
type Actor struct {
	ID       primitive.ObjectID `json:"id"`
	IsAdmin  bool               `json:"is_admin"`
	IsAuthor bool               `json:"is_author"`
	Email    string             `json:"email"`
	Name     string             `json:"name"`
}

// Snapshot returns the public author view of the actor.
func (a *Actor) Snapshot() *UserSnapshot {
	return &UserSnapshot{
		ID:       a.ID,
		Name:     a.Name,
		Email:    a.Email,
		IsAdmin:  a.IsAdmin,
		IsAuthor: a.IsAuthor,
	}
}
