// Package config loads runtime settings from the environment, with an
// optional .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	HTTPAddr            string
	Storage             string
	Postgres            Postgres
	JWTSecret           string
	GoogleClientID      string
	CookieDomain        string
	CORSOrigins         []string
	SurveyCacheTTL      time.Duration
	CleanupSchedule     string
	InvitationRetention time.Duration
	LogLevel            string
	LogFormat           string
}

type Postgres struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
}

func (p Postgres) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

// Load reads .env when present and resolves every setting through viper.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("HTTP_ADDR", "0.0.0.0:8080")
	v.SetDefault("STORAGE", StoragePostgres)
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("SURVEY_CACHE_TTL", 30*time.Second)
	v.SetDefault("CLEANUP_SCHEDULE", "@every 60m")
	v.SetDefault("INVITATION_RETENTION", 7*24*time.Hour)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	cfg := &Config{
		HTTPAddr: v.GetString("HTTP_ADDR"),
		Storage:  strings.ToLower(v.GetString("STORAGE")),
		Postgres: Postgres{
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetString("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			DB:       v.GetString("POSTGRES_DB"),
		},
		JWTSecret:           v.GetString("JWT_SECRET"),
		GoogleClientID:      v.GetString("GOOGLE_CLIENT_ID"),
		CookieDomain:        v.GetString("COOKIE_DOMAIN"),
		CORSOrigins:         splitList(v.GetString("CORS_ORIGINS")),
		SurveyCacheTTL:      v.GetDuration("SURVEY_CACHE_TTL"),
		CleanupSchedule:     v.GetString("CLEANUP_SCHEDULE"),
		InvitationRetention: v.GetDuration("INVITATION_RETENTION"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		LogFormat:           v.GetString("LOG_FORMAT"),
	}

	if cfg.Storage != StoragePostgres && cfg.Storage != StorageMemory {
		return nil, fmt.Errorf("unknown STORAGE %q", cfg.Storage)
	}

	return cfg, nil
}

// ValidateServer checks the settings only the HTTP server needs. An empty
// JWT secret is tolerated with in-memory storage.
func (c *Config) ValidateServer() error {
	if c.JWTSecret == "" && c.Storage == StoragePostgres {
		return errors.New("JWT_SECRET is required with postgres storage")
	}
	return nil
}

// SetupLogging configures the global zerolog logger and returns it.
func SetupLogging(cfg *Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}
	return log.Logger
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
