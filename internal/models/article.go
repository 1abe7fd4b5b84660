package models

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ArticleState is a node of the article lifecycle
type ArticleState string

const (
	StateDraft       ArticleState = "draft"
	StatePublished   ArticleState = "published"
	StateInactivated ArticleState = "inactivated"
	StateBoosted     ArticleState = "boosted"
	StateRemoved     ArticleState = "removed"
)

// AllStates lists every lifecycle state.
var AllStates = []ArticleState{StateDraft, StatePublished, StateInactivated, StateBoosted, StateRemoved}

// StatesExcept returns every state not listed in excluded.
func StatesExcept(excluded ...ArticleState) []ArticleState {
	out := make([]ArticleState, 0, len(AllStates))
	for _, s := range AllStates {
		skip := false
		for _, e := range excluded {
			if s == e {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, s)
		}
	}
	return out
}

// MaxTitleLength is the maximum allowed title length in characters
const MaxTitleLength = 100

// NewURIToken returns a short random suffix for generated vanity paths.
func NewURIToken() string {
	return uuid.NewString()[:8]
}

// DefaultCustomURI is the generated vanity path of an article. The id prefix
// keeps it unique when the same token is shared by a batch.
func DefaultCustomURI(id primitive.ObjectID, token string) string {
	return id.Hex() + "-" + token
}

// SingleTransitionTargets are the states reachable through ChangeState.
var SingleTransitionTargets = map[ArticleState]bool{
	StateBoosted:     true,
	StateInactivated: true,
	StatePublished:   true,
}

// BulkOrigins lists, per target state, the states a bulk transition may
// start from. Articles in any other state are skipped.
var BulkOrigins = map[ArticleState][]ArticleState{
	StatePublished:   {StateDraft, StateInactivated},
	StateBoosted:     {StatePublished},
	StateInactivated: {StatePublished, StateBoosted},
	StateRemoved:     {StateDraft},
}

// TimestampField returns the document field stamped on first entry into
// state, or "" for states without one.
func (s ArticleState) TimestampField() string {
	switch s {
	case StatePublished:
		return "publishedAt"
	case StateBoosted:
		return "boostedAt"
	case StateInactivated:
		return "inactivatedAt"
	case StateRemoved:
		return "removedAt"
	}
	return ""
}

// ImageKind names one of the article image slots
type ImageKind string

const (
	ImageLogo      ImageKind = "logo"
	ImageSecondary ImageKind = "secondary"
	ImageHeader    ImageKind = "header"
)

// Valid reports whether k is a known image slot.
func (k ImageKind) Valid() bool {
	return k == ImageLogo || k == ImageSecondary || k == ImageHeader
}

// Field returns the document field holding the image url.
func (k ImageKind) Field() string {
	return string(k)
}

// Article represents a published content item
type Article struct {
	ID            primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	Title         string              `json:"title" bson:"title"`
	Description   string              `json:"description" bson:"description"`
	Content       string              `json:"content" bson:"content"`
	ContentType   string              `json:"content_type" bson:"contentType"`
	ThemeID       *primitive.ObjectID `json:"theme_id,omitempty" bson:"themeId,omitempty"`
	CategoryID    *primitive.ObjectID `json:"category_id,omitempty" bson:"categoryId,omitempty"`
	AuthorID      primitive.ObjectID  `json:"author_id" bson:"authorId"`
	State         ArticleState        `json:"state" bson:"state"`
	PublishedAt   *time.Time          `json:"published_at,omitempty" bson:"publishedAt,omitempty"`
	BoostedAt     *time.Time          `json:"boosted_at,omitempty" bson:"boostedAt,omitempty"`
	InactivatedAt *time.Time          `json:"inactivated_at,omitempty" bson:"inactivatedAt,omitempty"`
	RemovedAt     *time.Time          `json:"removed_at,omitempty" bson:"removedAt,omitempty"`
	CustomURI     string              `json:"custom_uri" bson:"customUri"`
	Logo          *string             `json:"logo,omitempty" bson:"logo,omitempty"`
	Secondary     *string             `json:"secondary,omitempty" bson:"secondary,omitempty"`
	Header        *string             `json:"header,omitempty" bson:"header,omitempty"`
	CreatedAt     time.Time           `json:"created_at" bson:"createdAt"`
	UpdatedAt     time.Time           `json:"updated_at" bson:"updatedAt"`
}

// Image returns the url stored in the given slot.
func (a *Article) Image(kind ImageKind) *string {
	switch kind {
	case ImageLogo:
		return a.Logo
	case ImageSecondary:
		return a.Secondary
	case ImageHeader:
		return a.Header
	}
	return nil
}

// SetImage stores url in the given slot.
func (a *Article) SetImage(kind ImageKind, url *string) {
	switch kind {
	case ImageLogo:
		a.Logo = url
	case ImageSecondary:
		a.Secondary = url
	case ImageHeader:
		a.Header = url
	}
}

// Stamp returns a pointer to the timestamp field of state.
func (a *Article) Stamp(state ArticleState) **time.Time {
	switch state {
	case StatePublished:
		return &a.PublishedAt
	case StateBoosted:
		return &a.BoostedAt
	case StateInactivated:
		return &a.InactivatedAt
	case StateRemoved:
		return &a.RemovedAt
	}
	return nil
}

// ArticleView is an article joined with its theme, category and author.
type ArticleView struct {
	Article  `bson:",inline"`
	Theme    *Theme        `json:"theme,omitempty" bson:"theme,omitempty"`
	Category *Category     `json:"category,omitempty" bson:"category,omitempty"`
	Author   *UserSnapshot `json:"author,omitempty" bson:"author,omitempty"`
}

// ArticlePatch is a partial article update. Only non-nil fields apply.
type ArticlePatch struct {
	Title       *string             `json:"title" validate:"omitempty,max=100"`
	Description *string             `json:"description"`
	Content     *string             `json:"content"`
	ContentType *string             `json:"content_type"`
	ThemeID     *primitive.ObjectID `json:"theme_id"`
	CategoryID  *primitive.ObjectID `json:"category_id"`
	CustomURI   *string             `json:"custom_uri"`

	// Immutable through updates; accepted on the wire and stripped.
	AuthorID  *primitive.ObjectID `json:"author_id,omitempty"`
	State     *ArticleState       `json:"state,omitempty"`
	Logo      *string             `json:"logo,omitempty"`
	Secondary *string             `json:"secondary,omitempty"`
	Header    *string             `json:"header,omitempty"`
}

// StripImmutable clears the fields that cannot change through an update.
func (p *ArticlePatch) StripImmutable() {
	p.AuthorID = nil
	p.State = nil
	p.Logo = nil
	p.Secondary = nil
	p.Header = nil
}

// Apply copies the mutable fields of p onto a.
func (p *ArticlePatch) Apply(a *Article) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.ContentType != nil {
		a.ContentType = *p.ContentType
	}
	if p.ThemeID != nil {
		a.ThemeID = p.ThemeID
	}
	if p.CategoryID != nil {
		a.CategoryID = p.CategoryID
	}
	if p.CustomURI != nil {
		a.CustomURI = *p.CustomURI
	}
}

// ListType selects whose articles a listing covers
type ListType string

const (
	ListOwn ListType = "own"
	ListAll ListType = "all"
)

// SortOrder is a creation-time sort direction
type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ArticleListParams are the inbound listing filters
type ArticleListParams struct {
	Query      string   `form:"query"`
	ThemeID    string   `form:"themeId"`
	CategoryID string   `form:"categoryId"`
	Type       ListType `form:"type"`
	Order      string   `form:"order"`
	Page       int      `form:"page"`
	Limit      int      `form:"limit"`
}

// ArticleFilter is the store-level listing predicate. Removed articles are
// always excluded.
type ArticleFilter struct {
	AuthorID   *primitive.ObjectID
	Query      string
	ThemeID    *primitive.ObjectID
	CategoryID *primitive.ObjectID
	Order      SortOrder
}

// ArticleList is a page of article views
type ArticleList struct {
	Items []ArticleView `json:"items"`
	Count int64         `json:"count"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// TitleMatch answers a duplicate-title probe
type TitleMatch struct {
	Exists bool  `json:"exists"`
	Count  int64 `json:"count"`
}

// KeyKind selects how GetByIDOrURI resolves its key
type KeyKind string

const (
	KeyID        KeyKind = "id"
	KeyCustomURI KeyKind = "customUri"
)

// Blob is an uploaded binary object
type Blob struct {
	Filename    string
	ContentType string
	Data        []byte
}
