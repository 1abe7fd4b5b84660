package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/content-threads-api/internal/models"
)

func stageNames(p mongo.Pipeline) []string {
	names := make([]string, 0, len(p))
	for _, stage := range p {
		names = append(names, stage[0].Key)
	}
	return names
}

func lookupAs(p mongo.Pipeline) []string {
	var out []string
	for _, stage := range p {
		if stage[0].Key != "$lookup" {
			continue
		}
		for _, e := range stage[0].Value.(bson.D) {
			if e.Key == "as" {
				out = append(out, e.Value.(string))
			}
		}
	}
	return out
}

func field(d bson.D, key string) (interface{}, bool) {
	for _, e := range d {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func TestArticleMatchExcludesRemoved(t *testing.T) {
	match := articleMatch(models.ArticleFilter{})

	state, ok := field(match, "state")
	require.True(t, ok)
	assert.Equal(t, bson.D{{Key: "$ne", Value: models.StateRemoved}}, state)

	_, hasAuthor := field(match, "authorId")
	assert.False(t, hasAuthor)
}

func TestArticleMatchFilters(t *testing.T) {
	author := primitive.NewObjectID()
	theme := primitive.NewObjectID()

	match := articleMatch(models.ArticleFilter{AuthorID: &author, ThemeID: &theme, Query: "go+"})

	v, ok := field(match, "authorId")
	require.True(t, ok)
	assert.Equal(t, author, v)

	v, ok = field(match, "themeId")
	require.True(t, ok)
	assert.Equal(t, theme, v)

	or, ok := field(match, "$or")
	require.True(t, ok)
	clauses := or.(bson.A)
	require.Len(t, clauses, 3)

	rx := clauses[0].(bson.D)[0].Value.(primitive.Regex)
	assert.Equal(t, `go\+`, rx.Pattern)
	assert.Equal(t, "i", rx.Options)
	assert.Equal(t, "description", clauses[1].(bson.D)[0].Key)
	assert.Equal(t, "content", clauses[2].(bson.D)[0].Key)
}

func TestArticleListPipelineOrderAndPaging(t *testing.T) {
	p := articleListPipeline(models.ArticleFilter{Order: models.OrderAsc}, models.NewPage(3, 6, models.DefaultArticleLimit))

	assert.Equal(t, []string{"$match", "$sort", "$skip", "$limit",
		"$lookup", "$unwind", "$lookup", "$unwind", "$lookup", "$unwind"}, stageNames(p))
	assert.Equal(t, []string{"theme", "category", "author"}, lookupAs(p))

	sort := p[1][0].Value.(bson.D)
	assert.Equal(t, 1, sort[0].Value)
	assert.Equal(t, int64(12), p[2][0].Value)
	assert.Equal(t, int64(6), p[3][0].Value)

	desc := articleListPipeline(models.ArticleFilter{}, models.NewPage(1, 6, models.DefaultArticleLimit))
	assert.Equal(t, -1, desc[1][0].Value.(bson.D)[0].Value)
}

func TestUserLookupProjectsPublicFields(t *testing.T) {
	stages := userLookup("authorId", "author")
	require.Len(t, stages, 2)

	lookupDoc := stages[0][0].Value.(bson.D)
	pipeline, ok := field(lookupDoc, "pipeline")
	require.True(t, ok)
	project := pipeline.(bson.A)[1].(bson.D)
	require.Equal(t, "$project", project[0].Key)

	fields := project[0].Value.(bson.D)
	_, hasPassword := field(fields, "password")
	assert.False(t, hasPassword)
	_, hasEmail := field(fields, "email")
	assert.True(t, hasEmail)
}

func TestRootMatchPartitions(t *testing.T) {
	all := rootMatch(models.PartitionAll)
	assert.Equal(t, bson.D{{Key: "answerOf", Value: nil}}, all)

	unread := rootMatch(models.PartitionNotReaded)
	v, ok := field(unread, "readedAt")
	require.True(t, ok)
	assert.Nil(t, v)

	read := rootMatch(models.PartitionOnlyReaded)
	v, ok = field(read, "readedAt")
	require.True(t, ok)
	assert.Equal(t, bson.D{{Key: "$ne", Value: nil}}, v)
}

func TestRootListPipelineJoinsSingleAnswer(t *testing.T) {
	author := primitive.NewObjectID()
	p := rootListPipeline(models.CommentFilter{ArticleAuthorID: author, Partition: models.PartitionAll},
		models.NewPage(1, 10, models.DefaultCommentLimit))

	assert.Equal(t, []string{"article", "answer", "article.author"}, lookupAs(p))

	scope := p[3][0].Value.(bson.D)
	assert.Equal(t, "article.authorId", scope[0].Key)
	assert.Equal(t, author, scope[0].Value)

	// the answer join is limited to one document
	var answerLookup bson.D
	for _, stage := range p {
		if stage[0].Key != "$lookup" {
			continue
		}
		lookupDoc := stage[0].Value.(bson.D)
		if as, _ := field(lookupDoc, "as"); as == "answer" {
			answerLookup = lookupDoc
		}
	}
	require.NotNil(t, answerLookup)
	sub, _ := field(answerLookup, "pipeline")
	assert.Equal(t, bson.D{{Key: "$limit", Value: 1}}, sub.(bson.A)[1])
}

func TestRootCountPipelineSharesScope(t *testing.T) {
	f := models.CommentFilter{ArticleAuthorID: primitive.NewObjectID(), Partition: models.PartitionNotReaded}
	count := rootCountPipeline(f)
	list := rootListPipeline(f, models.NewPage(1, 10, models.DefaultCommentLimit))

	scope := len(rootScope(f))
	assert.Equal(t, list[:scope], count[:scope])
	assert.Equal(t, "$count", count[len(count)-1][0].Key)
}

func TestThreadPipelineMatchesRootsOnly(t *testing.T) {
	id := primitive.NewObjectID()
	p := threadPipeline(id)

	match := p[0][0].Value.(bson.D)
	assert.Equal(t, bson.D{{Key: "_id", Value: id}, {Key: "answerOf", Value: nil}}, match)
	assert.Equal(t, []string{"article", "answers"}, lookupAs(p))
}

func TestThreadPipelineJoinsAuthorInsideArticle(t *testing.T) {
	p := threadPipeline(primitive.NewObjectID())

	// no top-level stage may write below "article", or an orphan root
	// would decode with an empty article
	for _, stage := range p {
		if stage[0].Key != "$lookup" {
			continue
		}
		as, _ := field(stage[0].Value.(bson.D), "as")
		assert.NotContains(t, as, "article.")
	}

	articleLookup := p[1][0].Value.(bson.D)
	as, _ := field(articleLookup, "as")
	require.Equal(t, "article", as)

	sub, ok := field(articleLookup, "pipeline")
	require.True(t, ok)
	var subNames []string
	for _, stage := range sub.(bson.A) {
		subNames = append(subNames, stage.(bson.D)[0].Key)
	}
	assert.Equal(t, []string{"$project", "$lookup", "$unwind"}, subNames)

	authorLookup := sub.(bson.A)[1].(bson.D)[0].Value.(bson.D)
	authorAs, _ := field(authorLookup, "as")
	assert.Equal(t, "author", authorAs)
	let, _ := field(authorLookup, "let")
	assert.Equal(t, bson.D{{Key: "uid", Value: "$authorId"}}, let)
}

func TestWindowCountPipeline(t *testing.T) {
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 2, 31, 23, 59, 59, 999000000, time.UTC)

	global := windowCountPipeline(nil, from, to)
	assert.Equal(t, []string{"$match", "$count"}, stageNames(global))

	author := primitive.NewObjectID()
	scoped := windowCountPipeline(&author, from, to)
	assert.Equal(t, []string{"$match", "$lookup", "$unwind", "$match", "$count"}, stageNames(scoped))
}

func TestTransitionSetStampsOnlyWhenUnset(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	set := transitionSet(Transition{State: models.StateBoosted, Now: now})

	v, ok := field(set, "boostedAt")
	require.True(t, ok)
	assert.Equal(t, bson.D{{Key: "$ifNull", Value: bson.A{"$boostedAt", now}}}, v)

	_, resetsURI := field(set, "customUri")
	assert.False(t, resetsURI)

	removed := transitionSet(Transition{State: models.StateRemoved, URIToken: "abcd1234", Now: now})
	_, ok = field(removed, "removedAt")
	assert.True(t, ok)
	_, ok = field(removed, "customUri")
	assert.True(t, ok)
}
