// Package app assembles the stores, repositories and services shared by the
// server and the rollup command.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/content-threads-api/internal/config"
	"github.com/content-threads-api/internal/database"
	"github.com/content-threads-api/internal/notify"
	"github.com/content-threads-api/internal/repository"
	"github.com/content-threads-api/internal/service"
	"github.com/content-threads-api/internal/storage"
)

// App holds the wired application
type App struct {
	Mongo    *database.Mongo
	DB       *database.DB
	Store    storage.ObjectStore
	Notifier notify.Dispatcher
	Services *service.Services

	log zerolog.Logger
}

// Open connects both stores, migrates the relational schema and builds the
// services
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	docs, err := database.NewMongo(&cfg.Mongo, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}
	if err := docs.EnsureIndexes(ctx); err != nil {
		docs.Close(ctx)
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		docs.Close(ctx)
		return nil, fmt.Errorf("failed to connect to statistics database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		docs.Close(ctx)
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	bucket, err := docs.Bucket(cfg.Storage.Bucket)
	if err != nil {
		db.Close()
		docs.Close(ctx)
		return nil, fmt.Errorf("failed to open object bucket: %w", err)
	}
	store := storage.NewGridFS(bucket, cfg.Storage.PublicBaseURL, log)
	notifier := notify.New(&cfg.Notify, log)

	repos := repository.New(docs, db, log)
	services := service.NewServices(repos, service.Deps{Store: store, Notifier: notifier}, cfg, log)

	return &App{
		Mongo:    docs,
		DB:       db,
		Store:    store,
		Notifier: notifier,
		Services: services,
		log:      log,
	}, nil
}

// Close stops the scheduler, drains pending notifications and disconnects
// both stores
func (a *App) Close(ctx context.Context) {
	a.Services.Scheduler.Stop()

	if w, ok := a.Notifier.(*notify.Webhook); ok {
		w.Wait()
	}
	if err := a.DB.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close statistics database")
	}
	if err := a.Mongo.Close(ctx); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close document store")
	}
}
