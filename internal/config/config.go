package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	OpenAIAPIKey string `env:"OPENAI_API_KEY,required,notEmpty"`
	OpenAIModel  string `env:"OPENAI_MODEL"                     envDefault:"gpt-4o-mini"`

	TelegramToken string  `env:"TELEGRAM_TOKEN"`
	AllowedUsers  []int64 `env:"ALLOWED_USERS"`

	DBPath string `env:"DB_PATH" envDefault:"eduassist.sqlite"`

	HTTPAddr    string   `env:"HTTP_ADDR"`
	JWTSecret   string   `env:"JWT_SECRET"`
	CORSOrigins []string `env:"CORS_ORIGINS"`

	AllowedDomains []string `env:"ALLOWED_DOMAINS" envDefault:"wikipedia.org,educative.io,developer.mozilla.org"`

	SummaryCacheSize int           `env:"SUMMARY_CACHE_SIZE" envDefault:"0"`
	SummaryCacheTTL  time.Duration `env:"SUMMARY_CACHE_TTL"  envDefault:"24h"`

	ChatLogRetentionDays int `env:"CHAT_LOG_RETENTION_DAYS" envDefault:"90"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err = cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c Config) validate() error {
	var errs []error

	if strings.TrimSpace(c.HTTPAddr) != "" && strings.TrimSpace(c.JWTSecret) == "" {
		errs = append(errs, errors.New("JWT_SECRET is required when HTTP_ADDR is set"))
	}

	if c.SummaryCacheSize < 0 {
		errs = append(errs, errors.New("SUMMARY_CACHE_SIZE must not be negative"))
	}

	if c.ChatLogRetentionDays < 0 {
		errs = append(errs, errors.New("CHAT_LOG_RETENTION_DAYS must not be negative"))
	}

	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func ParseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return slog.LevelInfo, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}

	return level, nil
}

// Auth holds the settings needed to mint API tokens offline.
type Auth struct {
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`
}

func LoadAuth() (Auth, error) {
	auth, err := env.ParseAs[Auth]()
	if err != nil {
		return Auth{}, fmt.Errorf("parse env: %w", err)
	}

	return auth, nil
}
