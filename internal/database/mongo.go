package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/content-threads-api/internal/config"
)

// Collection names in the document store
const (
	ArticlesCollection        = "articles"
	CommentsCollection        = "comments"
	ThemesCollection          = "themes"
	CategoriesCollection      = "categories"
	UsersCollection           = "users"
	CommentSettingsCollection = "comment_settings"
)

// Mongo holds the document store client and its collections
type Mongo struct {
	Client          *mongo.Client
	Database        *mongo.Database
	Articles        *mongo.Collection
	Comments        *mongo.Collection
	Themes          *mongo.Collection
	Categories      *mongo.Collection
	Users           *mongo.Collection
	CommentSettings *mongo.Collection
	log             zerolog.Logger
}

// NewMongo connects to the document store and verifies the connection
func NewMongo(cfg *config.MongoConfig, log zerolog.Logger) (*Mongo, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(cfg.URI).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Database)
	m := &Mongo{
		Client:          client,
		Database:        db,
		Articles:        db.Collection(ArticlesCollection),
		Comments:        db.Collection(CommentsCollection),
		Themes:          db.Collection(ThemesCollection),
		Categories:      db.Collection(CategoriesCollection),
		Users:           db.Collection(UsersCollection),
		CommentSettings: db.Collection(CommentSettingsCollection),
		log:             log.With().Str("component", "document-store").Logger(),
	}

	m.log.Info().Str("database", cfg.Database).Msg("Document store connection established")
	return m, nil
}

// EnsureIndexes creates the indexes the listing and join paths rely on
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		m.Articles: {
			{Keys: bson.D{{Key: "authorId", Value: 1}, {Key: "state", Value: 1}}},
			{Keys: bson.D{{Key: "customUri", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		m.Comments: {
			{Keys: bson.D{{Key: "articleId", Value: 1}, {Key: "answerOf", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "answerOf", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		m.Categories: {
			{Keys: bson.D{{Key: "themeId", Value: 1}}},
		},
	}

	for coll, models := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}

	m.log.Info().Msg("Document store indexes ensured")
	return nil
}

// Bucket opens the GridFS bucket with the given name
func (m *Mongo) Bucket(name string) (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(m.Database, options.GridFSBucket().SetName(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", name, err)
	}
	return bucket, nil
}

// HealthCheck pings the primary
func (m *Mongo) HealthCheck(ctx context.Context) error {
	return m.Client.Ping(ctx, nil)
}

// Close disconnects the client
func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
