package service_test

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/config"
	"github.com/content-threads-api/internal/mocks"
	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/service"
)

var fixedNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	repos    *mocks.MockRepositories
	store    *mocks.MockObjectStore
	notifier *mocks.MockDispatcher
	svc      *service.Services
	now      time.Time
}

func testConfig() *config.Config {
	return &config.Config{
		Rollup: config.RollupConfig{Enabled: false, DayOfMonth: 1, At: "00:30", MaxWorkers: 4},
	}
}

func newFixture(t *testing.T, tweaks ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := testConfig()
	for _, tweak := range tweaks {
		tweak(cfg)
	}

	f := &fixture{
		repos:    mocks.NewMockRepositories(),
		store:    mocks.NewMockObjectStore(),
		notifier: mocks.NewMockDispatcher(),
		now:      fixedNow,
	}
	deps := service.Deps{
		Store:    f.store,
		Notifier: f.notifier,
		Now:      func() time.Time { return f.now },
	}
	f.svc = service.NewServices(f.repos.Repositories(), deps, cfg, zerolog.Nop())
	return f
}

// author stores a live author account and returns it as an actor
func (f *fixture) author(name string) *models.Actor {
	u := f.repos.User.Put(&models.User{
		Name:      name,
		Email:     strings.ToLower(name) + "@example.com",
		IsAuthor:  true,
		CreatedAt: fixedNow.AddDate(-1, 0, 0),
	})
	return &models.Actor{ID: u.ID, Name: u.Name, Email: u.Email, IsAuthor: true}
}

func (f *fixture) admin() *models.Actor {
	u := f.repos.User.Put(&models.User{Name: "Admin", Email: "admin@example.com", IsAdmin: true})
	return &models.Actor{ID: u.ID, Name: u.Name, Email: u.Email, IsAdmin: true}
}

// article stores an article in state with a distinct creation time
func (f *fixture) article(authorID primitive.ObjectID, title string, state models.ArticleState) *models.Article {
	created := fixedNow.Add(-time.Duration(len(f.repos.Article.Articles)+1) * time.Hour)
	a := &models.Article{
		ID:        primitive.NewObjectID(),
		Title:     title,
		AuthorID:  authorID,
		State:     state,
		CreatedAt: created,
		UpdatedAt: created,
	}
	a.CustomURI = models.DefaultCustomURI(a.ID, "seed")
	if stamp := a.Stamp(state); stamp != nil {
		at := created
		*stamp = &at
	}
	return f.repos.Article.Put(a)
}

func requireAppErr(t *testing.T, err error, name string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperr.IsName(err, name), "expected %s, got %v", name, err)
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func boolPtr(b bool) *bool { return &b }
