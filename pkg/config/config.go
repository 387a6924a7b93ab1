package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds runtime configuration for the guild gate bot.
type Config struct {
	AppEnv string `mapstructure:"-"`

	Bot       BotConfig       `mapstructure:"bot" validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	XP        XPConfig        `mapstructure:"xp"`
	Cups      CupsConfig      `mapstructure:"cups"`
	Intake    IntakeConfig    `mapstructure:"intake"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Webapp    WebappConfig    `mapstructure:"webapp"`
	Log       LogConfig       `mapstructure:"log"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
}

// BotConfig configures the Telegram adapter. TokenEnv names the environment
// variable carrying the bot token so the token itself never lands in YAML.
type BotConfig struct {
	TokenEnv     string        `mapstructure:"token_env" validate:"required"`
	OwnerID      int64         `mapstructure:"owner_id" validate:"required"`
	ReviewChatID int64         `mapstructure:"review_chat_id"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	DefaultLang  string        `mapstructure:"default_lang"`
}

// StorageConfig configures the encrypted snapshot store. SecretKeyEnv names
// the environment variable carrying the encryption secret; its absence is a
// fatal startup error, there is no fallback key.
type StorageConfig struct {
	Path         string `mapstructure:"path" validate:"required"`
	SecretKeyEnv string `mapstructure:"secret_key_env" validate:"required"`
}

// XPConfig configures the engagement ledger.
type XPConfig struct {
	MessageReward   int `mapstructure:"message_reward"`
	LeaderboardSize int `mapstructure:"leaderboard_size"`
	MilestoneEvery  int `mapstructure:"milestone_every"`
}

// CupsConfig configures trophy listing.
type CupsConfig struct {
	ListSize int `mapstructure:"list_size"`
}

// IntakeQuestion is one step of the structured application intake.
type IntakeQuestion struct {
	ID     string `mapstructure:"id" validate:"required"`
	Prompt string `mapstructure:"prompt" validate:"required"`
}

// IntakeConfig configures the application conversation. With no questions the
// intake falls back to a single free-text answer.
type IntakeConfig struct {
	Questions []IntakeQuestion `mapstructure:"questions" validate:"dive"`
}

// RateLimitRule is one sliding-window rule.
type RateLimitRule struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

// RateLimitConfig configures the per-user admission gate.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Backend   string        `mapstructure:"backend" validate:"omitempty,oneof=memory redis"`
	RedisAddr string        `mapstructure:"redis_addr"`
	Submit    RateLimitRule `mapstructure:"submit"`
	Message   RateLimitRule `mapstructure:"message"`
	Whitelist []int64       `mapstructure:"whitelist"`
}

// WebappConfig configures the HTTP query facade.
type WebappConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// SentryConfig configures error reporting.
type SentryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// BotToken resolves the Telegram token from the configured environment
// variable.
func (c *Config) BotToken() (string, error) {
	token := os.Getenv(c.Bot.TokenEnv)
	if token == "" {
		return "", fmt.Errorf("bot token not found in environment variable %q", c.Bot.TokenEnv)
	}
	return token, nil
}

// SecretKey resolves the snapshot encryption secret from the configured
// environment variable. A missing secret aborts startup; the store never
// falls back to an unencrypted or default key.
func (c *Config) SecretKey() ([]byte, error) {
	key := os.Getenv(c.Storage.SecretKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("storage secret key not found in environment variable %q", c.Storage.SecretKeyEnv)
	}
	return []byte(key), nil
}

// Addr returns the facade listen address.
func (w WebappConfig) Addr() string {
	return fmt.Sprintf("%s:%d", w.Host, w.Port)
}
