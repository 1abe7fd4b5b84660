package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxCommentLength is the maximum allowed message length in characters
const MaxCommentLength = 10000

// Comment is a reader comment or an author answer. A nil AnswerOf marks a
// root comment; answers only ever point at roots.
type Comment struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	ArticleID   primitive.ObjectID  `json:"article_id" bson:"articleId"`
	AnswerOf    *primitive.ObjectID `json:"answer_of" bson:"answerOf"`
	UserName    string              `json:"user_name" bson:"userName"`
	UserEmail   string              `json:"user_email" bson:"userEmail"`
	Message     string              `json:"message" bson:"message"`
	ConfirmedAt *time.Time          `json:"confirmed_at,omitempty" bson:"confirmedAt,omitempty"`
	ReadedAt    *time.Time          `json:"readed_at" bson:"readedAt"`
	CreatedAt   time.Time           `json:"created_at" bson:"createdAt"`
	UpdatedAt   time.Time           `json:"updated_at" bson:"updatedAt"`
}

// IsRoot reports whether c is a root comment.
func (c *Comment) IsRoot() bool {
	return c.AnswerOf == nil
}

// Partition splits an author's root comments by read state
type Partition string

const (
	PartitionAll        Partition = "all"
	PartitionNotReaded  Partition = "not-readed"
	PartitionOnlyReaded Partition = "only-readed"
)

// Valid reports whether p is a known partition.
func (p Partition) Valid() bool {
	return p == PartitionAll || p == PartitionNotReaded || p == PartitionOnlyReaded
}

// Includes reports whether a comment with the given read mark falls in p.
func (p Partition) Includes(readedAt *time.Time) bool {
	switch p {
	case PartitionNotReaded:
		return readedAt == nil
	case PartitionOnlyReaded:
		return readedAt != nil
	}
	return true
}

// CommentFilter is the store-level root listing predicate
type CommentFilter struct {
	ArticleAuthorID primitive.ObjectID
	Partition       Partition
}

// ArticleRef is the article summary embedded in comment views
type ArticleRef struct {
	ID        primitive.ObjectID `json:"id" bson:"_id"`
	Title     string             `json:"title" bson:"title"`
	CustomURI string             `json:"custom_uri" bson:"customUri"`
	AuthorID  primitive.ObjectID `json:"-" bson:"authorId"`
	Author    *UserSnapshot      `json:"author,omitempty" bson:"author,omitempty"`
}

// CommentView is a root comment with its first answer and article summary
type CommentView struct {
	Comment `bson:",inline"`
	Answer  *Comment    `json:"answer,omitempty" bson:"answer,omitempty"`
	Article *ArticleRef `json:"article,omitempty" bson:"article,omitempty"`
}

// CommentThread is a root comment with all of its direct answers
type CommentThread struct {
	Comment `bson:",inline"`
	Article *ArticleRef `json:"article,omitempty" bson:"article,omitempty"`
	Answers []Comment   `json:"answers" bson:"answers"`
}

// CommentList is a page of root comments
type CommentList struct {
	Items []CommentView `json:"items"`
	Count int64         `json:"count"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// AnswerList is a page of direct answers
type AnswerList struct {
	Items []Comment `json:"items"`
	Count int64     `json:"count"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
}

// Notify flag values on answers
const (
	NotifyYes = "yes"
	NotifyNo  = "no"
)

// AnswerRequest is an author answer to a root comment
type AnswerRequest struct {
	Message string `json:"message" validate:"required,max=10000"`
	Notify  string `json:"notify" validate:"omitempty,oneof=yes no"`
}

// AnswerNotification is the payload dispatched when an answer asks for it
type AnswerNotification struct {
	Root    Comment     `json:"root"`
	Answer  Comment     `json:"answer"`
	Article *ArticleRef `json:"article,omitempty"`
}
