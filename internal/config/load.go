package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from an optional config.yaml plus environment
// variables with the CONTENTGEN_ prefix. Environment variables take
// precedence over file values. Returns a populated Config or an error if
// loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults cover everything.
	}

	v.SetEnvPrefix("CONTENTGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key, including env-only ones; keys without a
// registered default are invisible to Unmarshal when set purely through the
// environment.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.url", "")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("scheduler.task_concurrency", 5)
	v.SetDefault("scheduler.task_timeout_seconds", 120)
	v.SetDefault("scheduler.max_articles", 50)
	v.SetDefault("scheduler.default_model_group", "default")
	v.SetDefault("scheduler.stuck_sweep_schedule", "*/5 * * * *")

	v.SetDefault("backend.ollama_base_url", "http://localhost:11434")
	v.SetDefault("backend.ollama_timeout_seconds", 120)
	v.SetDefault("backend.temperature", 0.7)
	v.SetDefault("backend.max_tokens", 4096)
	v.SetDefault("backend.gemini_api_key", "")
	v.SetDefault("backend.gemini_models", []string{})
}
