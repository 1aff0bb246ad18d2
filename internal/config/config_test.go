package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_MODE", "memory")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DatabaseMemory, cfg.DatabaseMode)
	assert.Equal(t, 256, cfg.FeedBuffer)
	assert.Equal(t, "./uploads", cfg.UploadDir)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins())
	assert.False(t, cfg.TranslateEnabled())
}

func TestFromViperReadsEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DATABASE_MODE", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/obrolan")
	t.Setenv("PORT", "9000")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("TRANSLATE_API_URL", "http://llm.test/v1")
	t.Setenv("TRANSLATE_API_KEY", "key")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, DatabasePostgres, cfg.DatabaseMode)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
	assert.True(t, cfg.TranslateEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"postgres without url", Config{DatabaseMode: "postgres", JWTSecret: "x", FeedBuffer: 1}, false},
		{"missing secret", Config{DatabaseMode: "memory", FeedBuffer: 1}, false},
		{"unknown mode", Config{DatabaseMode: "sqlite", JWTSecret: "x", FeedBuffer: 1}, false},
		{"zero buffer", Config{DatabaseMode: "memory", JWTSecret: "x"}, false},
		{"memory", Config{DatabaseMode: "memory", JWTSecret: "x", FeedBuffer: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
