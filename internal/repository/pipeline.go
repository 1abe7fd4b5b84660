package repository

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/content-threads-api/internal/database"
	"github.com/content-threads-api/internal/models"
)

// Aggregation builders for the joined article and comment views. Only one
// level of answers is ever looked up.

// publicUserFields is the projection applied to every joined user.
var publicUserFields = bson.D{
	{Key: "name", Value: 1},
	{Key: "email", Value: 1},
	{Key: "isAdmin", Value: 1},
	{Key: "isAuthor", Value: 1},
}

func containsFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func sortDirection(order models.SortOrder) int {
	if order == models.OrderAsc {
		return 1
	}
	return -1
}

// articleMatch is the predicate shared by article listing and counting.
func articleMatch(f models.ArticleFilter) bson.D {
	match := bson.D{{Key: "state", Value: bson.D{{Key: "$ne", Value: models.StateRemoved}}}}
	if f.AuthorID != nil {
		match = append(match, bson.E{Key: "authorId", Value: *f.AuthorID})
	}
	if f.ThemeID != nil {
		match = append(match, bson.E{Key: "themeId", Value: *f.ThemeID})
	}
	if f.CategoryID != nil {
		match = append(match, bson.E{Key: "categoryId", Value: *f.CategoryID})
	}
	if f.Query != "" {
		rx := containsFold(f.Query)
		match = append(match, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: rx}},
			bson.D{{Key: "description", Value: rx}},
			bson.D{{Key: "content", Value: rx}},
		}})
	}
	return match
}

// userLookup joins the public fields of the user referenced by localField
// into as, leaving as unset when the user does not exist.
func userLookup(localField, as string) []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: database.UsersCollection},
			{Key: "let", Value: bson.D{{Key: "uid", Value: "$" + localField}}},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$match", Value: bson.D{{Key: "$expr", Value: bson.D{{Key: "$eq", Value: bson.A{"$_id", "$$uid"}}}}}}},
				bson.D{{Key: "$project", Value: publicUserFields}},
			}},
			{Key: "as", Value: as},
		}}},
		unwind(as),
	}
}

func lookup(from, localField, foreignField, as string) bson.D {
	return bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: from},
		{Key: "localField", Value: localField},
		{Key: "foreignField", Value: foreignField},
		{Key: "as", Value: as},
	}}}
}

func unwind(field string) bson.D {
	return bson.D{{Key: "$unwind", Value: bson.D{
		{Key: "path", Value: "$" + field},
		{Key: "preserveNullAndEmptyArrays", Value: true},
	}}}
}

func paginate(page models.Page) []bson.D {
	return []bson.D{
		{{Key: "$skip", Value: page.Skip()}},
		{{Key: "$limit", Value: int64(page.Limit)}},
	}
}

// articleViewStages joins theme, category and author onto an article.
func articleViewStages() []bson.D {
	stages := []bson.D{
		lookup(database.ThemesCollection, "themeId", "_id", "theme"),
		unwind("theme"),
		lookup(database.CategoriesCollection, "categoryId", "_id", "category"),
		unwind("category"),
	}
	return append(stages, userLookup("authorId", "author")...)
}

func articleListPipeline(f models.ArticleFilter, page models.Page) mongo.Pipeline {
	dir := sortDirection(f.Order)
	p := mongo.Pipeline{
		{{Key: "$match", Value: articleMatch(f)}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: dir}, {Key: "_id", Value: dir}}}},
	}
	p = append(p, paginate(page)...)
	return append(p, articleViewStages()...)
}

func articleViewPipeline(match bson.D) mongo.Pipeline {
	p := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$limit", Value: int64(1)}},
	}
	return append(p, articleViewStages()...)
}

// rootMatch selects root comments in the given read partition.
func rootMatch(partition models.Partition) bson.D {
	match := bson.D{{Key: "answerOf", Value: nil}}
	switch partition {
	case models.PartitionNotReaded:
		match = append(match, bson.E{Key: "readedAt", Value: nil})
	case models.PartitionOnlyReaded:
		match = append(match, bson.E{Key: "readedAt", Value: bson.D{{Key: "$ne", Value: nil}}})
	}
	return match
}

// articleRefStages joins the article summary of a comment into "article".
// With withAuthor the author is joined inside the article lookup, so a
// comment whose article is gone leaves "article" unset.
func articleRefStages(withAuthor bool) []bson.D {
	sub := bson.A{
		bson.D{{Key: "$project", Value: bson.D{
			{Key: "title", Value: 1},
			{Key: "customUri", Value: 1},
			{Key: "authorId", Value: 1},
		}}},
	}
	if withAuthor {
		for _, stage := range userLookup("authorId", "author") {
			sub = append(sub, stage)
		}
	}
	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: database.ArticlesCollection},
			{Key: "localField", Value: "articleId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "pipeline", Value: sub},
			{Key: "as", Value: "article"},
		}}},
		unwind("article"),
	}
}

// rootScope narrows root comments to those on articles by the filter's author.
func rootScope(f models.CommentFilter) []bson.D {
	stages := []bson.D{{{Key: "$match", Value: rootMatch(f.Partition)}}}
	stages = append(stages, articleRefStages(false)...)
	return append(stages, bson.D{{Key: "$match", Value: bson.D{{Key: "article.authorId", Value: f.ArticleAuthorID}}}})
}

// firstAnswerStages joins the earliest direct answer into "answer".
func firstAnswerStages() []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: database.CommentsCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "answerOf"},
			{Key: "pipeline", Value: bson.A{
				bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}},
				bson.D{{Key: "$limit", Value: 1}},
			}},
			{Key: "as", Value: "answer"},
		}}},
		unwind("answer"),
	}
}

func rootListPipeline(f models.CommentFilter, page models.Page) mongo.Pipeline {
	p := mongo.Pipeline(rootScope(f))
	p = append(p, bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}})
	p = append(p, paginate(page)...)
	p = append(p, firstAnswerStages()...)
	return append(p, userLookup("article.authorId", "article.author")...)
}

func countStage() bson.D {
	return bson.D{{Key: "$count", Value: "count"}}
}

func rootCountPipeline(f models.CommentFilter) mongo.Pipeline {
	return append(mongo.Pipeline(rootScope(f)), countStage())
}

func threadPipeline(id primitive.ObjectID) mongo.Pipeline {
	p := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "_id", Value: id}, {Key: "answerOf", Value: nil}}}},
	}
	p = append(p, articleRefStages(true)...)
	return append(p, bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: database.CommentsCollection},
		{Key: "localField", Value: "_id"},
		{Key: "foreignField", Value: "answerOf"},
		{Key: "pipeline", Value: bson.A{
			bson.D{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}},
		}},
		{Key: "as", Value: "answers"},
	}}})
}

func windowCountPipeline(authorID *primitive.ObjectID, from, to time.Time) mongo.Pipeline {
	p := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{
			{Key: "answerOf", Value: nil},
			{Key: "createdAt", Value: bson.D{{Key: "$gte", Value: from}, {Key: "$lte", Value: to}}},
		}}},
	}
	if authorID != nil {
		p = append(p, articleRefStages(false)...)
		p = append(p, bson.D{{Key: "$match", Value: bson.D{{Key: "article.authorId", Value: *authorID}}}})
	}
	return append(p, countStage())
}
