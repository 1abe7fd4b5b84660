package mocks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/repository"
)

// Verify interface compliance
var (
	_ repository.ArticleRepository  = (*MockArticleRepository)(nil)
	_ repository.ThemeRepository    = (*MockThemeRepository)(nil)
	_ repository.UserRepository     = (*MockUserRepository)(nil)
	_ repository.CommentRepository  = (*MockCommentRepository)(nil)
	_ repository.SettingsRepository = (*MockSettingsRepository)(nil)
	_ repository.StatRepository     = (*MockStatRepository)(nil)
	_ repository.RunRepository      = (*MockRunRepository)(nil)
)

// MockRepositories bundles in-memory repositories that join against each
// other the way the document store pipelines do
type MockRepositories struct {
	Article  *MockArticleRepository
	Theme    *MockThemeRepository
	User     *MockUserRepository
	Comment  *MockCommentRepository
	Settings *MockSettingsRepository
	Stat     *MockStatRepository
	Run      *MockRunRepository
}

func NewMockRepositories() *MockRepositories {
	users := NewMockUserRepository()
	themes := NewMockThemeRepository()
	articles := NewMockArticleRepository(users, themes)
	return &MockRepositories{
		Article:  articles,
		Theme:    themes,
		User:     users,
		Comment:  NewMockCommentRepository(articles, users),
		Settings: NewMockSettingsRepository(),
		Stat:     NewMockStatRepository(),
		Run:      NewMockRunRepository(),
	}
}

// Repositories exposes the mocks through the repository aggregate
func (m *MockRepositories) Repositories() *repository.Repositories {
	return &repository.Repositories{
		Article:  m.Article,
		Theme:    m.Theme,
		User:     m.User,
		Comment:  m.Comment,
		Settings: m.Settings,
		Stat:     m.Stat,
		Run:      m.Run,
	}
}

func lessID(a, b primitive.ObjectID) bool {
	return a.Hex() < b.Hex()
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func pageWindow(n int, page models.Page) (int, int) {
	start := int(page.Skip())
	if start > n {
		start = n
	}
	end := start + page.Limit
	if end > n {
		end = n
	}
	return start, end
}

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mu    sync.Mutex
	Users map[primitive.ObjectID]*models.User
	Err   error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Users: make(map[primitive.ObjectID]*models.User)}
}

// Put stores a user, assigning an id when it has none
func (m *MockUserRepository) Put(user *models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	m.Users[user.ID] = user
	return user
}

func (m *MockUserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.snapshotUser(id), nil
}

func (m *MockUserRepository) snapshotUser(id primitive.ObjectID) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[id]
	if !ok {
		return nil
	}
	c := *u
	return &c
}

func (m *MockUserRepository) snapshot(id primitive.ObjectID) *models.UserSnapshot {
	u := m.snapshotUser(id)
	if u == nil {
		return nil
	}
	return &models.UserSnapshot{ID: u.ID, Name: u.Name, Email: u.Email, IsAdmin: u.IsAdmin, IsAuthor: u.IsAuthor}
}

func (m *MockUserRepository) ListActiveIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]primitive.ObjectID, 0, len(m.Users))
	for id, u := range m.Users {
		if !u.Deleted() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return lessID(ids[i], ids[j]) })
	return ids, nil
}

// MockThemeRepository is a mock implementation of ThemeRepository
type MockThemeRepository struct {
	Themes     map[primitive.ObjectID]*models.Theme
	Categories map[primitive.ObjectID]*models.Category
}

func NewMockThemeRepository() *MockThemeRepository {
	return &MockThemeRepository{
		Themes:     make(map[primitive.ObjectID]*models.Theme),
		Categories: make(map[primitive.ObjectID]*models.Category),
	}
}

// AddTheme stores a theme in the given state
func (m *MockThemeRepository) AddTheme(state string) *models.Theme {
	t := &models.Theme{ID: primitive.NewObjectID(), Name: "theme", State: state}
	m.Themes[t.ID] = t
	return t
}

// AddCategory stores a category of theme in the given state
func (m *MockThemeRepository) AddCategory(themeID primitive.ObjectID, state string) *models.Category {
	c := &models.Category{ID: primitive.NewObjectID(), ThemeID: themeID, Name: "category", State: state}
	m.Categories[c.ID] = c
	return c
}

func (m *MockThemeRepository) GetTheme(ctx context.Context, id primitive.ObjectID) (*models.Theme, error) {
	return m.Themes[id], nil
}

func (m *MockThemeRepository) GetCategory(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	return m.Categories[id], nil
}

// MockArticleRepository is a mock implementation of ArticleRepository
type MockArticleRepository struct {
	mu          sync.Mutex
	Articles    map[primitive.ObjectID]*models.Article
	Transitions []repository.Transition
	Err         error

	users  *MockUserRepository
	themes *MockThemeRepository
}

func NewMockArticleRepository(users *MockUserRepository, themes *MockThemeRepository) *MockArticleRepository {
	return &MockArticleRepository{
		Articles: make(map[primitive.ObjectID]*models.Article),
		users:    users,
		themes:   themes,
	}
}

// Put stores an article as-is, assigning an id when it has none
func (m *MockArticleRepository) Put(article *models.Article) *models.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	if article.ID.IsZero() {
		article.ID = primitive.NewObjectID()
	}
	m.Articles[article.ID] = article
	return article
}

// Get returns a copy of the stored article
func (m *MockArticleRepository) Get(id primitive.ObjectID) *models.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Articles[id]
	if !ok {
		return nil
	}
	c := *a
	return &c
}

func (m *MockArticleRepository) Create(ctx context.Context, article *models.Article) error {
	if m.Err != nil {
		return m.Err
	}
	c := *article
	m.Put(&c)
	article.ID = c.ID
	return nil
}

func (m *MockArticleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Article, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Get(id), nil
}

func (m *MockArticleRepository) view(a *models.Article) models.ArticleView {
	v := models.ArticleView{Article: *a, Author: m.users.snapshot(a.AuthorID)}
	if a.ThemeID != nil {
		v.Theme = m.themes.Themes[*a.ThemeID]
	}
	if a.CategoryID != nil {
		v.Category = m.themes.Categories[*a.CategoryID]
	}
	return v
}

func (m *MockArticleRepository) GetViewByID(ctx context.Context, id primitive.ObjectID) (*models.ArticleView, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	a := m.Get(id)
	if a == nil {
		return nil, nil
	}
	v := m.view(a)
	return &v, nil
}

func (m *MockArticleRepository) GetViewByURI(ctx context.Context, uri string) (*models.ArticleView, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	var found *models.Article
	for _, a := range m.Articles {
		if a.CustomURI == uri {
			c := *a
			found = &c
			break
		}
	}
	m.mu.Unlock()
	if found == nil {
		return nil, nil
	}
	v := m.view(found)
	return &v, nil
}

func matchArticle(a *models.Article, f models.ArticleFilter) bool {
	if a.State == models.StateRemoved {
		return false
	}
	if f.AuthorID != nil && a.AuthorID != *f.AuthorID {
		return false
	}
	if f.ThemeID != nil && (a.ThemeID == nil || *a.ThemeID != *f.ThemeID) {
		return false
	}
	if f.CategoryID != nil && (a.CategoryID == nil || *a.CategoryID != *f.CategoryID) {
		return false
	}
	if f.Query != "" && !containsFold(a.Title, f.Query) && !containsFold(a.Description, f.Query) && !containsFold(a.Content, f.Query) {
		return false
	}
	return true
}

func (m *MockArticleRepository) matching(f models.ArticleFilter) []*models.Article {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Article
	for _, a := range m.Articles {
		if matchArticle(a, f) {
			c := *a
			out = append(out, &c)
		}
	}
	return out
}

func (m *MockArticleRepository) List(ctx context.Context, filter models.ArticleFilter, page models.Page) ([]models.ArticleView, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	matched := m.matching(filter)
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		less := a.CreatedAt.Before(b.CreatedAt) || (a.CreatedAt.Equal(b.CreatedAt) && lessID(a.ID, b.ID))
		if filter.Order == models.OrderAsc {
			return less
		}
		return !less && a.ID != b.ID
	})

	start, end := pageWindow(len(matched), page)
	views := make([]models.ArticleView, 0, end-start)
	for _, a := range matched[start:end] {
		views = append(views, m.view(a))
	}
	return views, nil
}

func (m *MockArticleRepository) Count(ctx context.Context, filter models.ArticleFilter) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.matching(filter))), nil
}

func (m *MockArticleRepository) CountByTitle(ctx context.Context, authorID primitive.ObjectID, title string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.Articles {
		if a.AuthorID == authorID && containsFold(a.Title, title) {
			n++
		}
	}
	return n, nil
}

func (m *MockArticleRepository) CountByState(ctx context.Context, authorID primitive.ObjectID, state models.ArticleState) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, a := range m.Articles {
		if a.AuthorID == authorID && a.State == state {
			n++
		}
	}
	return n, nil
}

func (m *MockArticleRepository) Update(ctx context.Context, id primitive.ObjectID, patch *models.ArticlePatch, now time.Time) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Articles[id]; ok {
		patch.Apply(a)
		a.UpdatedAt = now
	}
	return nil
}

func (m *MockArticleRepository) Transition(ctx context.Context, t repository.Transition) (int64, error) {
	if m.Err != nil {
		return 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transitions = append(m.Transitions, t)

	seen := make(map[primitive.ObjectID]bool, len(t.IDs))
	var modified int64
	for _, id := range t.IDs {
		a, ok := m.Articles[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true

		eligible := false
		for _, s := range t.From {
			if a.State == s {
				eligible = true
				break
			}
		}
		if !eligible || (t.OwnerID != nil && a.AuthorID != *t.OwnerID) {
			continue
		}

		a.State = t.State
		a.UpdatedAt = t.Now
		if stamp := a.Stamp(t.State); stamp != nil && *stamp == nil {
			at := t.Now
			*stamp = &at
		}
		if t.URIToken != "" {
			a.CustomURI = models.DefaultCustomURI(a.ID, t.URIToken)
		}
		modified++
	}
	return modified, nil
}

func (m *MockArticleRepository) SetImage(ctx context.Context, id primitive.ObjectID, kind models.ImageKind, url *string, now time.Time) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.Articles[id]; ok {
		a.SetImage(kind, url)
		a.UpdatedAt = now
	}
	return nil
}

// MockCommentRepository is a mock implementation of CommentRepository
type MockCommentRepository struct {
	mu       sync.Mutex
	Comments map[primitive.ObjectID]*models.Comment
	// CountErr fails CountRootsInWindow for the given author (nil: global)
	CountErr func(authorID *primitive.ObjectID) error

	articles *MockArticleRepository
	users    *MockUserRepository
}

func NewMockCommentRepository(articles *MockArticleRepository, users *MockUserRepository) *MockCommentRepository {
	return &MockCommentRepository{
		Comments: make(map[primitive.ObjectID]*models.Comment),
		articles: articles,
		users:    users,
	}
}

// Put stores a comment as-is, assigning an id when it has none
func (m *MockCommentRepository) Put(comment *models.Comment) *models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if comment.ID.IsZero() {
		comment.ID = primitive.NewObjectID()
	}
	m.Comments[comment.ID] = comment
	return comment
}

// Get returns a copy of the stored comment
func (m *MockCommentRepository) Get(id primitive.ObjectID) *models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Comments[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	c := *comment
	m.Put(&c)
	comment.ID = c.ID
	return nil
}

func (m *MockCommentRepository) articleRef(articleID primitive.ObjectID, withAuthor bool) *models.ArticleRef {
	a := m.articles.Get(articleID)
	if a == nil {
		return nil
	}
	ref := &models.ArticleRef{ID: a.ID, Title: a.Title, CustomURI: a.CustomURI, AuthorID: a.AuthorID}
	if withAuthor {
		ref.Author = m.users.snapshot(a.AuthorID)
	}
	return ref
}

// roots returns the root comments in the partition on the author's articles,
// newest first
func (m *MockCommentRepository) roots(filter models.CommentFilter) []models.Comment {
	m.mu.Lock()
	var candidates []models.Comment
	for _, c := range m.Comments {
		if c.IsRoot() && filter.Partition.Includes(c.ReadedAt) {
			candidates = append(candidates, *c)
		}
	}
	m.mu.Unlock()

	out := candidates[:0]
	for _, c := range candidates {
		if ref := m.articleRef(c.ArticleID, false); ref != nil && ref.AuthorID == filter.ArticleAuthorID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return lessID(out[j].ID, out[i].ID)
	})
	return out
}

// answers returns the direct answers of rootID, oldest first
func (m *MockCommentRepository) answers(rootID primitive.ObjectID) []models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Comment, 0)
	for _, c := range m.Comments {
		if c.AnswerOf != nil && *c.AnswerOf == rootID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return lessID(out[i].ID, out[j].ID)
	})
	return out
}

func (m *MockCommentRepository) ListRoots(ctx context.Context, filter models.CommentFilter, page models.Page) ([]models.CommentView, error) {
	roots := m.roots(filter)
	start, end := pageWindow(len(roots), page)

	views := make([]models.CommentView, 0, end-start)
	for _, c := range roots[start:end] {
		v := models.CommentView{Comment: c, Article: m.articleRef(c.ArticleID, true)}
		if answers := m.answers(c.ID); len(answers) > 0 {
			first := answers[0]
			v.Answer = &first
		}
		views = append(views, v)
	}
	return views, nil
}

func (m *MockCommentRepository) CountRoots(ctx context.Context, filter models.CommentFilter) (int64, error) {
	return int64(len(m.roots(filter))), nil
}

// GetThread mirrors the thread pipeline: the author is joined inside the
// article, so a root whose article is gone has no Article at all
func (m *MockCommentRepository) GetThread(ctx context.Context, id primitive.ObjectID) (*models.CommentThread, error) {
	c := m.Get(id)
	if c == nil || !c.IsRoot() {
		return nil, nil
	}
	return &models.CommentThread{
		Comment: *c,
		Article: m.articleRef(c.ArticleID, true),
		Answers: m.answers(c.ID),
	}, nil
}

func (m *MockCommentRepository) ListAnswers(ctx context.Context, rootID primitive.ObjectID, page models.Page) ([]models.Comment, error) {
	answers := m.answers(rootID)
	start, end := pageWindow(len(answers), page)
	return answers[start:end], nil
}

func (m *MockCommentRepository) CountAnswers(ctx context.Context, rootID primitive.ObjectID) (int64, error) {
	return int64(len(m.answers(rootID))), nil
}

func (m *MockCommentRepository) MarkRead(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Comments[id]
	if !ok || c.ReadedAt != nil {
		return false, nil
	}
	at := now
	c.ReadedAt = &at
	c.UpdatedAt = now
	return true, nil
}

func (m *MockCommentRepository) CountRootsInWindow(ctx context.Context, authorID *primitive.ObjectID, from, to time.Time) (int64, error) {
	if m.CountErr != nil {
		if err := m.CountErr(authorID); err != nil {
			return 0, err
		}
	}

	m.mu.Lock()
	var inWindow []models.Comment
	for _, c := range m.Comments {
		if c.IsRoot() && !c.CreatedAt.Before(from) && !c.CreatedAt.After(to) {
			inWindow = append(inWindow, *c)
		}
	}
	m.mu.Unlock()

	var n int64
	for _, c := range inWindow {
		if authorID == nil {
			n++
			continue
		}
		if ref := m.articleRef(c.ArticleID, false); ref != nil && ref.AuthorID == *authorID {
			n++
		}
	}
	return n, nil
}

// MockSettingsRepository is a mock implementation of SettingsRepository
type MockSettingsRepository struct {
	mu       sync.Mutex
	Settings map[primitive.ObjectID]*models.CommentSettings
	Reads    int
}

func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{Settings: make(map[primitive.ObjectID]*models.CommentSettings)}
}

func (m *MockSettingsRepository) Get(ctx context.Context, userID primitive.ObjectID) (*models.CommentSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	s, ok := m.Settings[userID]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (m *MockSettingsRepository) Insert(ctx context.Context, settings *models.CommentSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Settings[settings.UserID]; exists {
		return errors.New("duplicate key")
	}
	c := *settings
	m.Settings[settings.UserID] = &c
	return nil
}

func (m *MockSettingsRepository) Replace(ctx context.Context, settings *models.CommentSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *settings
	m.Settings[settings.UserID] = &c
	return nil
}

// MockStatRepository is a mock implementation of StatRepository
type MockStatRepository struct {
	mu      sync.Mutex
	Records []models.StatRecord
	// InsertErr fails Insert for matching records
	InsertErr func(record *models.StatRecord) error
}

func NewMockStatRepository() *MockStatRepository {
	return &MockStatRepository{}
}

func (m *MockStatRepository) Insert(ctx context.Context, record *models.StatRecord) error {
	if m.InsertErr != nil {
		if err := m.InsertErr(record); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record.ID = int64(len(m.Records) + 1)
	record.CreatedAt = time.Now()
	m.Records = append(m.Records, *record)
	return nil
}

func (m *MockStatRepository) List(ctx context.Context, filter models.StatFilter) ([]models.StatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.StatRecord, 0)
	for i := len(m.Records) - 1; i >= 0; i-- {
		r := m.Records[i]
		if filter.Year > 0 && r.Year != filter.Year {
			continue
		}
		if filter.Month > 0 && r.Month != filter.Month {
			continue
		}
		if filter.Global && r.Reference != nil {
			continue
		}
		if !filter.Global && filter.Reference != nil && (r.Reference == nil || *r.Reference != *filter.Reference) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// MockRunRepository is a mock implementation of RunRepository
type MockRunRepository struct {
	mu       sync.Mutex
	Runs     map[string]*models.RollupRun
	Failures map[string][]models.RollupOutcome
	order    []string
}

func NewMockRunRepository() *MockRunRepository {
	return &MockRunRepository{
		Runs:     make(map[string]*models.RollupRun),
		Failures: make(map[string][]models.RollupOutcome),
	}
}

func (m *MockRunRepository) Create(ctx context.Context, run *models.RollupRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *run
	m.Runs[run.ID] = &c
	m.order = append(m.order, run.ID)
	return nil
}

func (m *MockRunRepository) Update(ctx context.Context, run *models.RollupRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *run
	m.Runs[run.ID] = &c
	return nil
}

func (m *MockRunRepository) GetByID(ctx context.Context, id string) (*models.RollupRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Runs[id]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (m *MockRunRepository) GetLatest(ctx context.Context) (*models.RollupRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return nil, nil
	}
	c := *m.Runs[m.order[len(m.order)-1]]
	return &c, nil
}

func (m *MockRunRepository) AddFailures(ctx context.Context, runID string, failures []models.RollupOutcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failures[runID] = append(m.Failures[runID], failures...)
	return nil
}

func (m *MockRunRepository) GetFailures(ctx context.Context, runID string, limit int) ([]models.RollupOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	failures := m.Failures[runID]
	if limit > 0 && len(failures) > limit {
		failures = failures[:limit]
	}
	return failures, nil
}
