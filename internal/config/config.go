// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	DatabasePath     string
	LogLevel         string
	AllowedUsers     []int64

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	DefaultPublishIntervalMinutes int
	DefaultCheckIntervalMinutes   int
	MaxPostLength                 int
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	cfg := &Config{
		TelegramBotToken:              token,
		DatabasePath:                  envOrDefault("DATABASE_PATH", "./data/newsrelay.db"),
		LogLevel:                      envOrDefault("LOG_LEVEL", "info"),
		OpenAIAPIKey:                  apiKey,
		OpenAIBaseURL:                 envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:                   envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		DefaultPublishIntervalMinutes: 60,
		DefaultCheckIntervalMinutes:   10,
		MaxPostLength:                 4096,
	}

	if raw := os.Getenv("PUBLISH_INTERVAL_MINUTES"); raw != "" {
		mins, err := strconv.Atoi(raw)
		if err != nil || mins < 1 {
			return nil, fmt.Errorf("invalid PUBLISH_INTERVAL_MINUTES %q", raw)
		}
		cfg.DefaultPublishIntervalMinutes = mins
	}

	if raw := os.Getenv("CHECK_INTERVAL_MINUTES"); raw != "" {
		mins, err := strconv.Atoi(raw)
		if err != nil || mins < 1 {
			return nil, fmt.Errorf("invalid CHECK_INTERVAL_MINUTES %q", raw)
		}
		cfg.DefaultCheckIntervalMinutes = mins
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	return cfg, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
