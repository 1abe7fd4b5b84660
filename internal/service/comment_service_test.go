package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/notify"
)

// comment stores a comment on article created at the given offset from now
func (f *fixture) comment(articleID primitive.ObjectID, answerOf *primitive.ObjectID, offset time.Duration, read bool) *models.Comment {
	created := fixedNow.Add(offset)
	c := &models.Comment{
		ArticleID: articleID,
		AnswerOf:  answerOf,
		UserName:  "Reader",
		UserEmail: "reader@example.com",
		Message:   "Nice read",
		CreatedAt: created,
		UpdatedAt: created,
	}
	if read {
		c.ReadedAt = &created
	}
	return f.repos.Comment.Put(c)
}

func TestCommentService_ListRootsPartitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	bob := f.author("Bob")
	article := f.article(alice.ID, "Story", models.StatePublished)
	foreign := f.article(bob.ID, "Other", models.StatePublished)

	unread1 := f.comment(article.ID, nil, -time.Hour, false)
	f.comment(article.ID, nil, -2*time.Hour, false)
	read := f.comment(article.ID, nil, -3*time.Hour, true)
	f.comment(article.ID, &read.ID, -30*time.Minute, false)
	f.comment(foreign.ID, nil, -time.Hour, false)

	all, err := f.svc.Comment.ListRoots(ctx, alice, "", 1, 0)
	require.NoError(t, err)
	notReaded, err := f.svc.Comment.ListRoots(ctx, alice, "not-readed", 1, 0)
	require.NoError(t, err)
	onlyReaded, err := f.svc.Comment.ListRoots(ctx, alice, "only-readed", 1, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(3), all.Count)
	assert.Equal(t, int64(2), notReaded.Count)
	assert.Equal(t, int64(1), onlyReaded.Count)
	assert.Equal(t, all.Count, notReaded.Count+onlyReaded.Count)
	assert.Equal(t, models.DefaultCommentLimit, all.Limit)

	seen := make(map[primitive.ObjectID]bool)
	for _, c := range append(notReaded.Items, onlyReaded.Items...) {
		assert.False(t, seen[c.ID], "partitions overlap on %s", c.ID.Hex())
		seen[c.ID] = true
	}
	for _, c := range all.Items {
		assert.True(t, seen[c.ID])
		assert.True(t, c.IsRoot())
		require.NotNil(t, c.Article)
		assert.Equal(t, article.ID, c.Article.ID)
		require.NotNil(t, c.Article.Author)
		assert.Equal(t, "Alice", c.Article.Author.Name)
	}

	assert.Equal(t, unread1.ID, all.Items[0].ID, "newest first")
	require.NotNil(t, onlyReaded.Items[0].Answer)
	assert.Equal(t, read.ID, *onlyReaded.Items[0].Answer.AnswerOf)
	assert.Nil(t, notReaded.Items[0].Answer)

	_, err = f.svc.Comment.ListRoots(ctx, alice, "archived", 1, 10)
	requireAppErr(t, err, apperr.InvalidInput)
}

func TestCommentService_GetOneAndAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	article := f.article(alice.ID, "Story", models.StatePublished)
	root := f.comment(article.ID, nil, -time.Hour, false)
	second := f.comment(article.ID, &root.ID, -10*time.Minute, false)
	first := f.comment(article.ID, &root.ID, -20*time.Minute, false)

	thread, err := f.svc.Comment.GetOne(ctx, root.ID.Hex())
	require.NoError(t, err)
	require.Len(t, thread.Answers, 2)
	assert.Equal(t, first.ID, thread.Answers[0].ID)
	assert.Equal(t, second.ID, thread.Answers[1].ID)
	require.NotNil(t, thread.Article)
	assert.Equal(t, article.Title, thread.Article.Title)

	answers, err := f.svc.Comment.GetAnswers(ctx, root.ID.Hex(), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), answers.Count)
	require.Len(t, answers.Items, 1)
	assert.Equal(t, second.ID, answers.Items[0].ID)

	// answers are not threads of their own
	_, err = f.svc.Comment.GetOne(ctx, first.ID.Hex())
	requireAppErr(t, err, apperr.NotFound)

	_, err = f.svc.Comment.GetOne(ctx, "zzz")
	requireAppErr(t, err, apperr.InvalidID)

	_, err = f.svc.Comment.GetAnswers(ctx, "zzz", 1, 10)
	requireAppErr(t, err, apperr.InvalidID)
}

func TestCommentService_MarkRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	article := f.article(alice.ID, "Story", models.StatePublished)
	root := f.comment(article.ID, nil, -time.Hour, false)

	require.NoError(t, f.svc.Comment.MarkRead(ctx, root.ID.Hex()))
	stored := f.repos.Comment.Get(root.ID)
	require.NotNil(t, stored.ReadedAt)
	assert.Equal(t, fixedNow, *stored.ReadedAt)

	f.now = fixedNow.Add(time.Hour)
	err := f.svc.Comment.MarkRead(ctx, root.ID.Hex())
	requireAppErr(t, err, apperr.AlreadyRead)
	assert.Equal(t, fixedNow, *f.repos.Comment.Get(root.ID).ReadedAt, "the first read mark is kept")

	err = f.svc.Comment.MarkRead(ctx, "bad")
	requireAppErr(t, err, apperr.InvalidID)
}

func TestCommentService_Answer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	article := f.article(alice.ID, "Story", models.StatePublished)
	root := f.comment(article.ID, nil, -time.Hour, false)

	answer, err := f.svc.Comment.Answer(ctx, root.ID.Hex(), alice, models.AnswerRequest{
		Message: "<script>alert(1)</script>Thanks for reading!",
	})
	require.NoError(t, err)
	assert.Equal(t, "Thanks for reading!", answer.Message)
	require.NotNil(t, answer.AnswerOf)
	assert.Equal(t, root.ID, *answer.AnswerOf)
	assert.Equal(t, article.ID, answer.ArticleID)
	assert.Equal(t, alice.Name, answer.UserName)
	assert.Equal(t, alice.Email, answer.UserEmail)
	assert.Equal(t, 0, f.notifier.Count(), "notify defaults to no")

	stored := f.repos.Comment.Get(answer.ID)
	require.NotNil(t, stored)
	assert.Equal(t, fixedNow, stored.CreatedAt)
}

func TestCommentService_AnswerKeepsPlainText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	article := f.article(alice.ID, "Story", models.StatePublished)
	root := f.comment(article.ID, nil, -time.Hour, false)

	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"comparison operators", "if a < b && c > d", "if a < b && c > d"},
		{"quotes", `she said "it's fine"`, `she said "it's fine"`},
		{"allowed markup", "<b>bold</b> move", "<b>bold</b> move"},
		{"encoded script", "&lt;script&gt;alert(1)&lt;/script&gt;hi", "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, err := f.svc.Comment.Answer(ctx, root.ID.Hex(), alice, models.AnswerRequest{Message: tt.message})
			require.NoError(t, err)
			assert.Equal(t, tt.want, answer.Message)
			assert.Equal(t, tt.want, f.repos.Comment.Get(answer.ID).Message)
		})
	}
}

func TestCommentService_AnswerLengthAfterSanitizing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	article := f.article(alice.ID, "Story", models.StatePublished)
	root := f.comment(article.ID, nil, -time.Hour, false)

	message := strings.Repeat("&", models.MaxCommentLength)
	answer, err := f.svc.Comment.Answer(ctx, root.ID.Hex(), alice, models.AnswerRequest{Message: message})
	require.NoError(t, err)
	assert.Equal(t, message, answer.Message)
	assert.LessOrEqual(t, len([]rune(f.repos.Comment.Get(answer.ID).Message)), models.MaxCommentLength)

	_, err = f.svc.Comment.Answer(ctx, root.ID.Hex(), alice, models.AnswerRequest{Message: message + "&"})
	requireAppErr(t, err, apperr.InvalidInput)
}

func TestCommentService_AnswerNotify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	article := f.article(alice.ID, "Story", models.StatePublished)
	root := f.comment(article.ID, nil, -time.Hour, false)

	answer, err := f.svc.Comment.Answer(ctx, root.ID.Hex(), alice, models.AnswerRequest{Message: "Thanks", Notify: models.NotifyYes})
	require.NoError(t, err)
	require.Equal(t, 1, f.notifier.Count())

	sent := f.notifier.Sent[0]
	assert.Equal(t, notify.TemplateCommentAnswer, sent.Template)
	payload, ok := sent.Payload.(models.AnswerNotification)
	require.True(t, ok)
	assert.Equal(t, root.ID, payload.Root.ID)
	assert.Equal(t, answer.ID, payload.Answer.ID)
	require.NotNil(t, payload.Article)
	assert.Equal(t, article.ID, payload.Article.ID)

	// a failed dispatch does not fail the answer
	f.notifier.Err = errors.New("mailer down")
	_, err = f.svc.Comment.Answer(ctx, root.ID.Hex(), alice, models.AnswerRequest{Message: "Again", Notify: models.NotifyYes})
	require.NoError(t, err)
	assert.Equal(t, 2, f.notifier.Count())
	count, err := f.repos.Comment.CountAnswers(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestCommentService_AnswerRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	article := f.article(alice.ID, "Story", models.StatePublished)
	root := f.comment(article.ID, nil, -time.Hour, false)
	reply := f.comment(article.ID, &root.ID, -time.Minute, false)

	tests := []struct {
		name string
		id   string
		req  models.AnswerRequest
		want string
	}{
		{"unknown root", primitive.NewObjectID().Hex(), models.AnswerRequest{Message: "hi"}, apperr.RootNotFound},
		{"answer to an answer", reply.ID.Hex(), models.AnswerRequest{Message: "hi"}, apperr.RootNotFound},
		{"malformed id", "nope", models.AnswerRequest{Message: "hi"}, apperr.InvalidID},
		{"empty message", root.ID.Hex(), models.AnswerRequest{Message: ""}, apperr.InvalidInput},
		{"only markup", root.ID.Hex(), models.AnswerRequest{Message: "<script>x</script>"}, apperr.InvalidInput},
		{"bad notify flag", root.ID.Hex(), models.AnswerRequest{Message: "hi", Notify: "maybe"}, apperr.InvalidEnum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Comment.Answer(ctx, tt.id, alice, tt.req)
			requireAppErr(t, err, tt.want)
		})
	}

	_, err := f.svc.Comment.Answer(ctx, primitive.NewObjectID().Hex(), alice, models.AnswerRequest{Message: "hi"})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestCommentService_Authorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	article := f.article(alice.ID, "Story", models.StatePublished)
	root := f.comment(article.ID, nil, -time.Hour, false)
	reply := f.comment(article.ID, &root.ID, -time.Minute, false)

	assert.NoError(t, f.svc.Comment.Authorize(ctx, alice, root.ID.Hex()))
	assert.NoError(t, f.svc.Comment.Authorize(ctx, f.admin(), root.ID.Hex()))

	err := f.svc.Comment.Authorize(ctx, f.author("Bob"), root.ID.Hex())
	requireAppErr(t, err, apperr.Forbidden)

	err = f.svc.Comment.Authorize(ctx, alice, reply.ID.Hex())
	requireAppErr(t, err, apperr.NotFound)
}

func TestCommentService_OrphanRoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	orphan := f.comment(primitive.NewObjectID(), nil, -time.Hour, false)

	thread, err := f.svc.Comment.GetOne(ctx, orphan.ID.Hex())
	require.NoError(t, err)
	assert.Nil(t, thread.Article)

	_, err = f.svc.Comment.Answer(ctx, orphan.ID.Hex(), alice, models.AnswerRequest{Message: "hi"})
	requireAppErr(t, err, apperr.RootNotFound)

	count, err := f.repos.Comment.CountAnswers(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	requireAppErr(t, f.svc.Comment.Authorize(ctx, f.admin(), orphan.ID.Hex()), apperr.NotFound)
	requireAppErr(t, f.svc.Comment.Authorize(ctx, alice, orphan.ID.Hex()), apperr.NotFound)
}
