package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/content-threads-api/internal/apperr"
	"github.com/content-threads-api/internal/config"
	"github.com/content-threads-api/internal/models"
)

func TestSettingsService_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")

	_, err := f.svc.Settings.Get(ctx, alice, alice.ID.Hex(), nil)
	requireAppErr(t, err, apperr.NoSettings)

	saved, err := f.svc.Settings.Save(ctx, alice, alice.ID.Hex(), &models.SettingsPatch{
		Type:         strPtr("not-readed"),
		Order:        strPtr("asc"),
		AnswersType:  strPtr("all"),
		AnswersOrder: strPtr("desc"),
		Limit:        intPtr(20),
		Notify:       boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(models.SettingsTTL), saved.TTL)
	assert.Equal(t, fixedNow, saved.CreatedAt)

	got, err := f.svc.Settings.Get(ctx, alice, alice.ID.Hex(), nil)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.UserID)
	assert.Equal(t, "not-readed", got.Type)
	assert.Equal(t, "asc", got.Order)
	assert.Equal(t, "all", got.AnswersType)
	assert.Equal(t, "desc", got.AnswersOrder)
	assert.Equal(t, 20, got.Limit)
	assert.True(t, got.Notify)
	assert.Equal(t, fixedNow.Add(30*24*time.Hour), got.TTL)
}

func TestSettingsService_NotModified(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	_, err := f.svc.Settings.Save(ctx, alice, alice.ID.Hex(), &models.SettingsPatch{Limit: intPtr(5)})
	require.NoError(t, err)
	reads := f.repos.Settings.Reads

	fresh := fixedNow.Add(time.Minute)
	_, err = f.svc.Settings.Get(ctx, alice, alice.ID.Hex(), &fresh)
	requireAppErr(t, err, apperr.NotModified)
	assert.Equal(t, apperr.KindNotModified, apperr.KindOf(err))
	assert.Equal(t, reads, f.repos.Settings.Reads, "a fresh client copy skips the store")

	stale := fixedNow.Add(-time.Minute)
	got, err := f.svc.Settings.Get(ctx, alice, alice.ID.Hex(), &stale)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Limit)
}

func TestSettingsService_UserChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	bob := f.author("Bob")

	_, err := f.svc.Settings.Get(ctx, alice, bob.ID.Hex(), nil)
	requireAppErr(t, err, apperr.Forbidden)

	_, err = f.svc.Settings.Save(ctx, alice, "nope", &models.SettingsPatch{})
	requireAppErr(t, err, apperr.InvalidID)

	ghost := &models.Actor{ID: primitive.NewObjectID()}
	_, err = f.svc.Settings.Get(ctx, ghost, ghost.ID.Hex(), nil)
	requireAppErr(t, err, apperr.UserNotFound)

	deletedAt := fixedNow.Add(-time.Hour)
	f.repos.User.Users[bob.ID].DeletedAt = &deletedAt
	_, err = f.svc.Settings.Save(ctx, bob, bob.ID.Hex(), &models.SettingsPatch{Limit: intPtr(5)})
	requireAppErr(t, err, apperr.UserNotFound)

	_, err = f.svc.Settings.Save(ctx, alice, alice.ID.Hex(), &models.SettingsPatch{Order: strPtr("sideways")})
	requireAppErr(t, err, apperr.InvalidEnum)

	_, err = f.svc.Settings.Save(ctx, alice, alice.ID.Hex(), &models.SettingsPatch{Limit: intPtr(1000)})
	requireAppErr(t, err, apperr.InvalidInput)
}

func TestSettingsService_NotifyDerivedFromPreviousLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.author("Alice")
	id := alice.ID.Hex()

	saved, err := f.svc.Settings.Save(ctx, alice, id, &models.SettingsPatch{Notify: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, saved.Notify)
	assert.Equal(t, 0, saved.Limit)

	// no notify in the patch and no previous limit
	saved, err = f.svc.Settings.Save(ctx, alice, id, &models.SettingsPatch{Type: strPtr("all")})
	require.NoError(t, err)
	assert.False(t, saved.Notify)
	assert.Equal(t, "all", saved.Type)

	_, err = f.svc.Settings.Save(ctx, alice, id, &models.SettingsPatch{Limit: intPtr(15)})
	require.NoError(t, err)

	// a previous limit turns notify on
	saved, err = f.svc.Settings.Save(ctx, alice, id, &models.SettingsPatch{Order: strPtr("desc")})
	require.NoError(t, err)
	assert.True(t, saved.Notify)
	assert.Equal(t, 15, saved.Limit)
	assert.Equal(t, "all", saved.Type, "earlier fields survive a merge")

	saved, err = f.svc.Settings.Save(ctx, alice, id, &models.SettingsPatch{Notify: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, saved.Notify)
}

func TestSettingsService_StrictNotifyMerge(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) { cfg.Settings.StrictNotifyMerge = true })
	ctx := context.Background()
	alice := f.author("Alice")
	id := alice.ID.Hex()

	_, err := f.svc.Settings.Save(ctx, alice, id, &models.SettingsPatch{Notify: boolPtr(true)})
	require.NoError(t, err)

	saved, err := f.svc.Settings.Save(ctx, alice, id, &models.SettingsPatch{Type: strPtr("all")})
	require.NoError(t, err)
	assert.True(t, saved.Notify)
}
