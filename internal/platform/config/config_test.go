package config

import (
	"os"
	"testing"
	"time"
)

// clearEnv unsets all COURSE_ environment variables for a clean test.
func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"COURSE_SERVER_PORT",
		"COURSE_SERVER_HOST",
		"COURSE_DATABASE_URL",
		"COURSE_DATABASE_MAX_CONNS",
		"COURSE_DATABASE_MIN_CONNS",
		"COURSE_CACHE_URL",
		"COURSE_AI_GOOGLE_API_KEY",
		"COURSE_AI_GOOGLE_MODEL",
		"COURSE_AI_OPENAI_API_KEY",
		"COURSE_AI_OPENAI_MODEL",
		"COURSE_AI_OPENAI_BASE_URL",
		"COURSE_TELEGRAM_BOT_TOKEN",
		"COURSE_TELEGRAM_MODE",
		"COURSE_TELEGRAM_WEBHOOK_SECRET",
		"COURSE_SESSION_STORE",
		"COURSE_SESSION_TTL_HOURS",
		"COURSE_PROMPTS_PATH",
		"COURSE_FINAL_PROJECT_ENABLED",
		"COURSE_REPORT_TOKEN_HASH",
		"COURSE_LOG_LEVEL",
		"COURSE_LOG_FORMAT",
	}
	for _, v := range envVars {
		_ = os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("Database.MaxConns = %d, want 25", cfg.Database.MaxConns)
	}
	if cfg.Telegram.Mode != "polling" {
		t.Errorf("Telegram.Mode = %q, want polling", cfg.Telegram.Mode)
	}
	if cfg.Course.Store != "memory" {
		t.Errorf("Course.Store = %q, want memory", cfg.Course.Store)
	}
	if cfg.Course.SessionTTL != 24*time.Hour {
		t.Errorf("Course.SessionTTL = %v, want 24h", cfg.Course.SessionTTL)
	}
	if cfg.Course.FinalProjectEnabled {
		t.Error("Course.FinalProjectEnabled should default to false")
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)

	t.Setenv("COURSE_SERVER_PORT", "9090")
	t.Setenv("COURSE_TELEGRAM_BOT_TOKEN", "test-token-123")
	t.Setenv("COURSE_AI_GOOGLE_API_KEY", "AIza-test")
	t.Setenv("COURSE_AI_OPENAI_BASE_URL", "https://api.deepseek.com/v1")
	t.Setenv("COURSE_SESSION_STORE", "redis")
	t.Setenv("COURSE_CACHE_URL", "redis://localhost:6379")
	t.Setenv("COURSE_SESSION_TTL_HOURS", "48")
	t.Setenv("COURSE_FINAL_PROJECT_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Telegram.BotToken != "test-token-123" {
		t.Errorf("Telegram.BotToken = %q", cfg.Telegram.BotToken)
	}
	if cfg.AI.Google.APIKey != "AIza-test" {
		t.Errorf("AI.Google.APIKey = %q", cfg.AI.Google.APIKey)
	}
	if cfg.AI.OpenAI.BaseURL != "https://api.deepseek.com/v1" {
		t.Errorf("AI.OpenAI.BaseURL = %q", cfg.AI.OpenAI.BaseURL)
	}
	if cfg.Course.Store != "redis" {
		t.Errorf("Course.Store = %q, want redis", cfg.Course.Store)
	}
	if cfg.Course.SessionTTL != 48*time.Hour {
		t.Errorf("Course.SessionTTL = %v, want 48h", cfg.Course.SessionTTL)
	}
	if !cfg.Course.FinalProjectEnabled {
		t.Error("Course.FinalProjectEnabled should be true")
	}
}

func TestValidate_MissingBotToken(t *testing.T) {
	clearEnv(t)
	t.Setenv("COURSE_AI_GOOGLE_API_KEY", "AIza-test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should return error when bot token is missing")
	}
}

func TestValidate_MissingAIProvider(t *testing.T) {
	clearEnv(t)
	t.Setenv("COURSE_TELEGRAM_BOT_TOKEN", "test-token")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should return error when no AI provider is configured")
	}
}

func TestValidate_TelegramMode(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		secret  string
		wantErr bool
	}{
		{"polling", "polling", "", false},
		{"webhook with secret", "webhook", "s3cret", false},
		{"webhook without secret", "webhook", "", true},
		{"invalid mode", "carrier-pigeon", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("COURSE_TELEGRAM_BOT_TOKEN", "test-token")
			t.Setenv("COURSE_AI_GOOGLE_API_KEY", "AIza-test")
			t.Setenv("COURSE_TELEGRAM_MODE", tt.mode)
			if tt.secret != "" {
				t.Setenv("COURSE_TELEGRAM_WEBHOOK_SECRET", tt.secret)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_SessionStore(t *testing.T) {
	tests := []struct {
		name    string
		store   string
		extra   map[string]string
		wantErr bool
	}{
		{"memory", "memory", nil, false},
		{"redis with url", "redis", map[string]string{"COURSE_CACHE_URL": "redis://localhost:6379"}, false},
		{"redis without url", "redis", nil, true},
		{"postgres with url", "postgres", map[string]string{"COURSE_DATABASE_URL": "postgres://u:p@localhost/db"}, false},
		{"postgres without url", "postgres", nil, true},
		{"unknown", "etcd", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("COURSE_TELEGRAM_BOT_TOKEN", "test-token")
			t.Setenv("COURSE_AI_GOOGLE_API_KEY", "AIza-test")
			t.Setenv("COURSE_SESSION_STORE", tt.store)
			for k, v := range tt.extra {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHasAIProvider(t *testing.T) {
	tests := []struct {
		name   string
		envKey string
		envVal string
		want   bool
	}{
		{"none", "", "", false},
		{"Google", "COURSE_AI_GOOGLE_API_KEY", "AIza-test", true},
		{"OpenAI", "COURSE_AI_OPENAI_API_KEY", "sk-test", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.envKey != "" {
				t.Setenv(tt.envKey, tt.envVal)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.HasAIProvider() != tt.want {
				t.Errorf("HasAIProvider() = %v, want %v", cfg.HasAIProvider(), tt.want)
			}
		})
	}
}

func TestFinalProjectEnabledParsing(t *testing.T) {
	tests := []struct {
		name string
		val  string
		want bool
	}{
		{"true", "true", true},
		{"TRUE", "TRUE", true},
		{"1", "1", true},
		{"false", "false", false},
		{"0", "0", false},
		{"empty", "", false},
		{"invalid", "notabool", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.val != "" {
				t.Setenv("COURSE_FINAL_PROJECT_ENABLED", tt.val)
			}

			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if cfg.Course.FinalProjectEnabled != tt.want {
				t.Errorf("Course.FinalProjectEnabled = %v, want %v", cfg.Course.FinalProjectEnabled, tt.want)
			}
		})
	}
}
