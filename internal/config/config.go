package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Database modes
const (
	DatabasePostgres = "postgres"
	DatabaseMemory   = "memory"
)

// Config holds the application configuration.
type Config struct {
	Port         string `mapstructure:"PORT"`
	DatabaseMode string `mapstructure:"DATABASE_MODE"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	JWTSecret    string `mapstructure:"JWT_SECRET"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	FeedBuffer    int    `mapstructure:"FEED_BUFFER"`

	CORSOrigins   string `mapstructure:"CORS_ORIGINS"`
	UploadDir     string `mapstructure:"UPLOAD_DIR"`
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`

	TranslateAPIURL string `mapstructure:"TRANSLATE_API_URL"`
	TranslateAPIKey string `mapstructure:"TRANSLATE_API_KEY"`
	TranslateModel  string `mapstructure:"TRANSLATE_MODEL"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"PORT":              "8080",
	"DATABASE_MODE":     DatabasePostgres,
	"DATABASE_URL":      "",
	"JWT_SECRET":        "",
	"REDIS_ADDR":        "",
	"REDIS_PASSWORD":    "",
	"REDIS_DB":          0,
	"FEED_BUFFER":       256,
	"CORS_ORIGINS":      "http://localhost:3000",
	"UPLOAD_DIR":        "./uploads",
	"PUBLIC_BASE_URL":   "",
	"TRANSLATE_API_URL": "",
	"TRANSLATE_API_KEY": "",
	"TRANSLATE_MODEL":   "gpt-4o-mini",
	"LOG_LEVEL":         "info",
	"LOG_FORMAT":        "text",
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()
	return FromViper(viper.New())
}

// FromViper decodes the configuration from v after applying defaults and
// binding the environment.
func FromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings
func (c *Config) Validate() error {
	c.DatabaseMode = strings.ToLower(strings.TrimSpace(c.DatabaseMode))
	switch c.DatabaseMode {
	case DatabasePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when DATABASE_MODE is postgres")
		}
	case DatabaseMemory:
	default:
		return fmt.Errorf("unknown DATABASE_MODE %q", c.DatabaseMode)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.FeedBuffer <= 0 {
		return fmt.Errorf("FEED_BUFFER must be positive, got %d", c.FeedBuffer)
	}
	return nil
}

// TranslateEnabled reports whether a translation backend is configured
func (c *Config) TranslateEnabled() bool {
	return c.TranslateAPIURL != "" && c.TranslateAPIKey != ""
}

// AllowedOrigins returns CORS_ORIGINS as a list
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
