// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"os"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from the environment-selected YAML file and
// environment variable overrides, applies defaults, validates the result, and
// returns the resulting Config.
func Load() (*Config, error) {
	// env files are optional; real environments set variables directly
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AppEnv = env

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.poll_timeout", "10s")
	v.SetDefault("bot.default_lang", "fa")

	v.SetDefault("storage.secret_key_env", "STORAGE_SECRET_KEY")

	v.SetDefault("xp.message_reward", 5)
	v.SetDefault("xp.leaderboard_size", 10)
	v.SetDefault("xp.milestone_every", 5)

	v.SetDefault("cups.list_size", 5)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.submit.limit", 3)
	v.SetDefault("rate_limit.submit.window", "1m")
	v.SetDefault("rate_limit.message.limit", 20)
	v.SetDefault("rate_limit.message.window", "1m")

	v.SetDefault("webapp.host", "0.0.0.0")
	v.SetDefault("webapp.port", 8080)
	v.SetDefault("webapp.shutdown_timeout", "10s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 14)
}
