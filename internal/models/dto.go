package models

// CreateArticleRequest starts a new draft
type CreateArticleRequest struct {
	Title string `json:"title" validate:"required,max=100"`
}

// ChangeStateRequest moves one article to a new state
type ChangeStateRequest struct {
	State ArticleState `json:"state" validate:"required"`
}

// BulkStateRequest moves several articles to a new state
type BulkStateRequest struct {
	IDs   []string     `json:"ids"`
	State ArticleState `json:"state" validate:"required"`
}

// BulkStateResult reports how many articles a bulk transition touched
type BulkStateResult struct {
	Requested int   `json:"requested"`
	Modified  int64 `json:"modified"`
}
