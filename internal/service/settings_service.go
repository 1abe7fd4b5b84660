package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/models"
	"github.com/content-threads-api/internal/repository"
	"github.com/content-threads-api/internal/validation"
)

type settingsService struct {
	settings repository.SettingsRepository
	users    repository.UserRepository
	validate *validation.Validator
	// strictNotify keeps the previous notify value on merges that carry
	// none; otherwise it is derived from the previous limit.
	strictNotify bool
	now          func() time.Time
	log          zerolog.Logger
}

func newSettingsService(repos *repository.Repositories, v *validation.Validator, strictNotify bool, now func() time.Time, log zerolog.Logger) *settingsService {
	return &settingsService{
		settings:     repos.Settings,
		users:        repos.User,
		validate:     v,
		strictNotify: strictNotify,
		now:          now,
		log:          log.With().Str("service", "settings").Logger(),
	}
}

// verifyUser resolves userID to the actor's own, live account
func (s *settingsService) verifyUser(ctx context.Context, actor *models.Actor, userID string) (primitive.ObjectID, error) {
	oid, err := validation.ParseObjectID(userID, "user id")
	if err != nil {
		return primitive.NilObjectID, err
	}
	if oid != actor.ID {
		return primitive.NilObjectID, apperr.Forbid()
	}

	user, err := s.users.GetByID(ctx, oid)
	if err != nil {
		return primitive.NilObjectID, apperr.Internal(err)
	}
	if user == nil || user.Deleted() {
		return primitive.NilObjectID, apperr.New(apperr.KindNotFound, apperr.UserNotFound, "user not found")
	}
	return oid, nil
}

// Get returns the user's settings unless the client's cached copy is still
// fresh
func (s *settingsService) Get(ctx context.Context, actor *models.Actor, userID string, presentedTTL *time.Time) (*models.CommentSettings, error) {
	now := s.now()
	if presentedTTL != nil && !presentedTTL.Before(now) {
		return nil, apperr.New(apperr.KindNotModified, apperr.NotModified, "settings not modified")
	}

	oid, err := s.verifyUser(ctx, actor, userID)
	if err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx, oid)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if settings == nil {
		return nil, apperr.New(apperr.KindNotFound, apperr.NoSettings, "no comment settings saved yet")
	}

	settings.TTL = now.Add(models.SettingsTTL)
	return settings, nil
}

// Save inserts the settings on first use and merges patch into them after
func (s *settingsService) Save(ctx context.Context, actor *models.Actor, userID string, patch *models.SettingsPatch) (*models.CommentSettings, error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, err
	}

	oid, err := s.verifyUser(ctx, actor, userID)
	if err != nil {
		return nil, err
	}

	previous, err := s.settings.Get(ctx, oid)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := s.now()
	var saved *models.CommentSettings
	if previous == nil {
		saved = &models.CommentSettings{UserID: oid, CreatedAt: now}
		mergeSettings(saved, patch)
		if patch.Notify != nil {
			saved.Notify = *patch.Notify
		}
		saved.UpdatedAt = now
		if err := s.settings.Insert(ctx, saved); err != nil {
			return nil, apperr.Internal(err)
		}
	} else {
		previousLimit := previous.Limit
		saved = previous
		mergeSettings(saved, patch)
		switch {
		case patch.Notify != nil:
			saved.Notify = *patch.Notify
		case !s.strictNotify:
			saved.Notify = previousLimit != 0
		}
		saved.UpdatedAt = now
		if err := s.settings.Replace(ctx, saved); err != nil {
			return nil, apperr.Internal(err)
		}
	}

	s.log.Info().Str("user_id", oid.Hex()).Bool("created", previous == nil).Msg("Comment settings saved")

	saved.TTL = now.Add(models.SettingsTTL)
	return saved, nil
}

// mergeSettings copies every present patch field except notify onto dst
func mergeSettings(dst *models.CommentSettings, patch *models.SettingsPatch) {
	if patch.Type != nil {
		dst.Type = *patch.Type
	}
	if patch.Order != nil {
		dst.Order = *patch.Order
	}
	if patch.AnswersType != nil {
		dst.AnswersType = *patch.AnswersType
	}
	if patch.AnswersOrder != nil {
		dst.AnswersOrder = *patch.AnswersOrder
	}
	if patch.Limit != nil {
		dst.Limit = *patch.Limit
	}
}
