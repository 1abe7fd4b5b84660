package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Mongo:    MongoConfig{URI: "mongodb://localhost:27017"},
		Database: DatabaseConfig{Host: "localhost", Name: "content_stats"},
		Auth:     AuthConfig{JWTSecret: "secret"},
		Rollup:   RollupConfig{DayOfMonth: 1, At: "00:30", MaxWorkers: 4},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing mongo uri", mutate: func(c *Config) { c.Mongo.URI = "" }, wantErr: "MONGO_URI"},
		{name: "missing db host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: "DB_HOST"},
		{name: "missing db name", mutate: func(c *Config) { c.Database.Name = "" }, wantErr: "DB_NAME"},
		{name: "missing jwt secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "JWT_SECRET"},
		{name: "day zero", mutate: func(c *Config) { c.Rollup.DayOfMonth = 0 }, wantErr: "ROLLUP_DAY_OF_MONTH"},
		{name: "day 29", mutate: func(c *Config) { c.Rollup.DayOfMonth = 29 }, wantErr: "ROLLUP_DAY_OF_MONTH"},
		{name: "bad time", mutate: func(c *Config) { c.Rollup.At = "25:99" }, wantErr: "ROLLUP_AT"},
		{name: "no workers", mutate: func(c *Config) { c.Rollup.MaxWorkers = 0 }, wantErr: "ROLLUP_MAX_WORKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("PORT", "9090")
	t.Setenv("ROLLUP_MAX_WORKERS", "3")
	t.Setenv("ROLLUP_ENABLED", "false")
	t.Setenv("NOTIFY_TIMEOUT", "2s")
	t.Setenv("STORAGE_PUBLIC_BASE_URL", "https://cdn.example.com/")
	t.Setenv("SETTINGS_STRICT_NOTIFY_MERGE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3, cfg.Rollup.MaxWorkers)
	assert.False(t, cfg.Rollup.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Notify.Timeout)
	assert.Equal(t, "https://cdn.example.com", cfg.Storage.PublicBaseURL)
	assert.True(t, cfg.Settings.StrictNotifyMerge)
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestGetDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", db.GetDSN())
}
