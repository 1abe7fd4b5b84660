package models

const (
	DefaultArticleLimit = 6
	DefaultCommentLimit = 10
	MaxLimit            = 100
)

// Page is a normalised page window.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// NewPage floors page at 1 and resets limits outside 1..MaxLimit to def.
func NewPage(page, limit, def int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxLimit {
		limit = def
	}
	return Page{Page: page, Limit: limit}
}

// Skip returns the number of rows before the window.
func (p Page) Skip() int64 {
	return int64((p.Page - 1) * p.Limit)
}
