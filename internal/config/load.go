package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Load reads configuration from environment variables and, optionally, a
// config.yaml file in the working directory. Environment variables use the
// PRACTICE_ prefix with underscores (e.g. PRACTICE_SERVER_PORT) and take
// precedence over file values. Returns a populated Config or an error if
// loading or validation fails.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults. Every key needs a default (or explicit binding) for
	// AutomaticEnv to surface its environment variable during Unmarshal.
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("database.url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("llm.gemini_api_key", "")
	v.SetDefault("llm.model_name", "gemini-2.0-flash")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay_seconds", 2)
	v.SetDefault("practice.recommendation_window", 5)
	v.SetDefault("practice.negative_mark_per_wrong", 0)
	v.SetDefault("task.worker_count", 2)
	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.max_retries", 3)

	// Optional config file.
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables: PRACTICE_SERVER_PORT -> server.port
	v.SetEnvPrefix("PRACTICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}
