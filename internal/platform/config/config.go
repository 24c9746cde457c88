// Package config loads application configuration from environment variables.
// All variables use the COURSE_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	AI       AIConfig
	Telegram TelegramConfig
	Course   CourseConfig
	Report   ReportConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
}

// DatabaseConfig holds PostgreSQL connection settings. The database is
// optional; with no URL configured sessions live in memory.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis connection settings. Optional.
type CacheConfig struct {
	URL string
}

// AIConfig holds configuration for all AI providers.
type AIConfig struct {
	Google GoogleConfig
	OpenAI OpenAIConfig
}

// GoogleConfig holds Google Gemini provider settings.
type GoogleConfig struct {
	APIKey string
	Model  string
}

// OpenAIConfig holds settings for OpenAI or any OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// TelegramConfig holds Telegram Bot API settings. Mode selects how updates
// arrive: "polling" (default) or "webhook".
type TelegramConfig struct {
	BotToken      string
	Mode          string
	WebhookSecret string
}

// CourseConfig holds tutoring flow settings.
type CourseConfig struct {
	// Store selects the session backend: memory, redis or postgres.
	Store               string
	SessionTTL          time.Duration
	PromptsPath         string
	FinalProjectEnabled bool
}

// ReportConfig holds the admin progress report settings. TokenHash is a
// bcrypt hash of the bearer token; the report endpoint is disabled when it
// is empty.
type ReportConfig struct {
	TokenHash string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with COURSE_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("COURSE_SERVER_PORT", 8080),
			Host: envStr("COURSE_SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			URL:      envStr("COURSE_DATABASE_URL", ""),
			MaxConns: envInt("COURSE_DATABASE_MAX_CONNS", 25),
			MinConns: envInt("COURSE_DATABASE_MIN_CONNS", 5),
		},
		Cache: CacheConfig{
			URL: envStr("COURSE_CACHE_URL", ""),
		},
		AI: AIConfig{
			Google: GoogleConfig{
				APIKey: envStr("COURSE_AI_GOOGLE_API_KEY", ""),
				Model:  envStr("COURSE_AI_GOOGLE_MODEL", ""),
			},
			OpenAI: OpenAIConfig{
				APIKey:  envStr("COURSE_AI_OPENAI_API_KEY", ""),
				Model:   envStr("COURSE_AI_OPENAI_MODEL", ""),
				BaseURL: envStr("COURSE_AI_OPENAI_BASE_URL", ""),
			},
		},
		Telegram: TelegramConfig{
			BotToken:      envStr("COURSE_TELEGRAM_BOT_TOKEN", ""),
			Mode:          envStr("COURSE_TELEGRAM_MODE", "polling"),
			WebhookSecret: envStr("COURSE_TELEGRAM_WEBHOOK_SECRET", ""),
		},
		Course: CourseConfig{
			Store:               envStr("COURSE_SESSION_STORE", "memory"),
			SessionTTL:          time.Duration(envInt("COURSE_SESSION_TTL_HOURS", 24)) * time.Hour,
			PromptsPath:         envStr("COURSE_PROMPTS_PATH", ""),
			FinalProjectEnabled: envBool("COURSE_FINAL_PROJECT_ENABLED", false),
		},
		Report: ReportConfig{
			TokenHash: envStr("COURSE_REPORT_TOKEN_HASH", ""),
		},
		Log: LogConfig{
			Level:  envStr("COURSE_LOG_LEVEL", "info"),
			Format: envStr("COURSE_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("COURSE_TELEGRAM_BOT_TOKEN is required")
	}

	if !c.HasAIProvider() {
		return fmt.Errorf("at least one AI provider must be configured")
	}

	if c.Telegram.Mode != "polling" && c.Telegram.Mode != "webhook" {
		return fmt.Errorf("COURSE_TELEGRAM_MODE must be 'polling' or 'webhook', got %q", c.Telegram.Mode)
	}
	if c.Telegram.Mode == "webhook" && c.Telegram.WebhookSecret == "" {
		return fmt.Errorf("COURSE_TELEGRAM_WEBHOOK_SECRET is required in webhook mode")
	}

	switch c.Course.Store {
	case "memory":
	case "redis":
		if c.Cache.URL == "" {
			return fmt.Errorf("COURSE_CACHE_URL is required for the redis session store")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("COURSE_DATABASE_URL is required for the postgres session store")
		}
	default:
		return fmt.Errorf("COURSE_SESSION_STORE must be 'memory', 'redis' or 'postgres', got %q", c.Course.Store)
	}

	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.Google.APIKey != "" || c.AI.OpenAI.APIKey != ""
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
