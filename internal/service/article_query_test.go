package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/models"
)

func TestArticleQuery_List(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	bob := f.author("Bob")

	theme := f.repos.Theme.AddTheme(models.ReferenceStateActive)
	newest := f.article(alice.ID, "Go concurrency", models.StatePublished)
	newest.ThemeID = &theme.ID
	f.article(alice.ID, "Cooking at home", models.StateDraft)
	oldest := f.article(alice.ID, "Go generics", models.StateBoosted)
	f.article(alice.ID, "Go removed", models.StateRemoved)
	f.article(bob.ID, "Bob on Go", models.StatePublished)

	t.Run("own articles newest first", func(t *testing.T) {
		list, err := f.svc.Query.List(ctx, alice, models.ArticleListParams{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), list.Count)
		assert.Equal(t, models.DefaultArticleLimit, list.Limit)
		require.Len(t, list.Items, 3)
		assert.Equal(t, newest.ID, list.Items[0].ID)
		assert.Equal(t, oldest.ID, list.Items[2].ID)
		require.NotNil(t, list.Items[0].Author)
		assert.Equal(t, "Alice", list.Items[0].Author.Name)
		require.NotNil(t, list.Items[0].Theme)
		assert.Equal(t, theme.ID, list.Items[0].Theme.ID)
	})

	t.Run("type all is ignored for non-admins", func(t *testing.T) {
		list, err := f.svc.Query.List(ctx, alice, models.ArticleListParams{Type: models.ListAll})
		require.NoError(t, err)
		assert.Equal(t, int64(3), list.Count)
	})

	t.Run("admins see everyone with type all", func(t *testing.T) {
		list, err := f.svc.Query.List(ctx, f.admin(), models.ArticleListParams{Type: models.ListAll})
		require.NoError(t, err)
		assert.Equal(t, int64(4), list.Count)
	})

	t.Run("query matches case-insensitively", func(t *testing.T) {
		list, err := f.svc.Query.List(ctx, alice, models.ArticleListParams{Query: "go "})
		require.NoError(t, err)
		assert.Equal(t, int64(2), list.Count)
	})

	t.Run("paging and ascending order", func(t *testing.T) {
		list, err := f.svc.Query.List(ctx, alice, models.ArticleListParams{Order: "asc", Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(3), list.Count)
		assert.Equal(t, 2, list.Page)
		require.Len(t, list.Items, 1)
		assert.Equal(t, newest.ID, list.Items[0].ID)
	})

	t.Run("out of range limit falls back to default", func(t *testing.T) {
		list, err := f.svc.Query.List(ctx, alice, models.ArticleListParams{Limit: 500, Page: -3})
		require.NoError(t, err)
		assert.Equal(t, models.DefaultArticleLimit, list.Limit)
		assert.Equal(t, 1, list.Page)
	})

	t.Run("theme filter", func(t *testing.T) {
		list, err := f.svc.Query.List(ctx, alice, models.ArticleListParams{ThemeID: theme.ID.Hex()})
		require.NoError(t, err)
		assert.Equal(t, int64(1), list.Count)

		_, err = f.svc.Query.List(ctx, alice, models.ArticleListParams{ThemeID: "xyz"})
		requireAppErr(t, err, apperr.InvalidID)
	})
}

func TestArticleQuery_GetByIDOrURI(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	a := f.article(alice.ID, "Story", models.StatePublished)

	byID, err := f.svc.Query.GetByIDOrURI(ctx, a.ID.Hex(), models.KeyID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, byID.ID)
	require.NotNil(t, byID.Author)
	assert.Equal(t, alice.Email, byID.Author.Email)

	byURI, err := f.svc.Query.GetByIDOrURI(ctx, a.CustomURI, models.KeyCustomURI)
	require.NoError(t, err)
	assert.Equal(t, a.ID, byURI.ID)

	_, err = f.svc.Query.GetByIDOrURI(ctx, "not-hex", models.KeyID)
	requireAppErr(t, err, apperr.InvalidKey)

	_, err = f.svc.Query.GetByIDOrURI(ctx, a.CustomURI, models.KeyKind("slug"))
	requireAppErr(t, err, apperr.InvalidEnum)

	_, err = f.svc.Query.GetByIDOrURI(ctx, primitive.NewObjectID().Hex(), models.KeyID)
	requireAppErr(t, err, apperr.NotFound)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestArticleQuery_GetOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	a := f.article(alice.ID, "Story", models.StateDraft)

	view, err := f.svc.Query.GetOne(ctx, alice, a.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, a.ID, view.ID)

	_, err = f.svc.Query.GetOne(ctx, f.author("Bob"), a.ID.Hex())
	requireAppErr(t, err, apperr.Forbidden)

	_, err = f.svc.Query.GetOne(ctx, f.admin(), a.ID.Hex())
	assert.NoError(t, err)
}

func TestArticleQuery_ExistsByTitle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	f.article(alice.ID, "Weekly Digest #1", models.StatePublished)
	f.article(alice.ID, "weekly digest #2", models.StateRemoved)
	f.article(f.author("Bob").ID, "Weekly digest", models.StatePublished)

	match, err := f.svc.Query.ExistsByTitle(ctx, alice, "  WEEKLY digest ")
	require.NoError(t, err)
	assert.True(t, match.Exists)
	assert.Equal(t, int64(2), match.Count)

	match, err = f.svc.Query.ExistsByTitle(ctx, alice, "monthly")
	require.NoError(t, err)
	assert.False(t, match.Exists)

	_, err = f.svc.Query.ExistsByTitle(ctx, alice, "   ")
	requireAppErr(t, err, apperr.InvalidInput)
}
