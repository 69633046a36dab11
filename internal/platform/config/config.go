// Package config loads application configuration from environment variables.
// All variables use the HSQ_ prefix.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Session     SessionConfig
	AI          AIConfig
	Export      ExportConfig
	Log         LogConfig
	PresetsPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	Host        string
	MaxUploadMB int
}

// DatabaseConfig holds PostgreSQL settings for the event log. An empty URL
// disables it.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Dragonfly/Redis settings for the session store. An empty
// URL keeps sessions in memory.
type CacheConfig struct {
	URL string
}

// SessionConfig holds browser session settings.
type SessionConfig struct {
	TTLMinutes   int
	CookieSecure bool
}

// AIConfig holds settings for the generation service.
type AIConfig struct {
	APIKey      string // optional default credential; the form may supply its own
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// ExportConfig holds document export settings.
type ExportConfig struct {
	TempDir string
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with HSQ_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        envInt("HSQ_SERVER_PORT", 8080),
			Host:        envStr("HSQ_SERVER_HOST", "0.0.0.0"),
			MaxUploadMB: envInt("HSQ_SERVER_MAX_UPLOAD_MB", 10),
		},
		Database: DatabaseConfig{
			URL:      envStr("HSQ_DATABASE_URL", ""),
			MaxConns: envInt("HSQ_DATABASE_MAX_CONNS", 5),
			MinConns: envInt("HSQ_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL: envStr("HSQ_CACHE_URL", ""),
		},
		Session: SessionConfig{
			TTLMinutes:   envInt("HSQ_SESSION_TTL_MINUTES", 24*60),
			CookieSecure: envBool("HSQ_SESSION_COOKIE_SECURE", false),
		},
		AI: AIConfig{
			APIKey:      envStr("HSQ_AI_API_KEY", ""),
			BaseURL:     envStr("HSQ_AI_BASE_URL", "https://api.groq.com/openai/v1"),
			Model:       envStr("HSQ_AI_MODEL", "llama3-8b-8192"),
			Temperature: envFloat("HSQ_AI_TEMPERATURE", 0.7),
			MaxTokens:   envInt("HSQ_AI_MAX_TOKENS", 2000),
		},
		Export: ExportConfig{
			TempDir: envStr("HSQ_EXPORT_TEMP_DIR", ""),
		},
		Log: LogConfig{
			Level:  envStr("HSQ_LOG_LEVEL", "info"),
			Format: envStr("HSQ_LOG_FORMAT", "json"),
		},
		PresetsPath: envStr("HSQ_PRESETS_PATH", "./presets"),
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("HSQ_SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.AI.BaseURL == "" {
		return fmt.Errorf("HSQ_AI_BASE_URL is required")
	}

	// Zero is not sent to the API, which would apply its own default.
	if c.AI.Temperature <= 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("HSQ_AI_TEMPERATURE must be greater than 0 and at most 2, got %v", c.AI.Temperature)
	}

	if c.AI.MaxTokens <= 0 {
		return fmt.Errorf("HSQ_AI_MAX_TOKENS must be positive, got %d", c.AI.MaxTokens)
	}

	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("HSQ_LOG_FORMAT must be 'json' or 'text', got %q", c.Log.Format)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// SlogLevel parses the configured log level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("HSQ_LOG_LEVEL %q is invalid: %w", l.Level, err)
	}
	return level, nil
}

// NewLogger builds the process logger described by the log settings,
// writing to stdout.
func (l LogConfig) NewLogger() *slog.Logger {
	return l.NewLoggerTo(os.Stdout)
}

// NewLoggerTo is NewLogger with an explicit destination.
func (l LogConfig) NewLoggerTo(w io.Writer) *slog.Logger {
	level, _ := l.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
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

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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
