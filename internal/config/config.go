package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Practice PracticeConfig `mapstructure:"practice"`
	Task     TaskConfig     `mapstructure:"task"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
// Token issuance belongs to the identity service; the engine only needs the
// shared secret to validate bearer tokens.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// LLMConfig contains the settings for the distractor generation service.
// The API key is optional: without it the engine runs with distractor
// generation disabled and serves only pre-authored option sets.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"`
	ModelName         string `mapstructure:"model_name"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=0"`
}

// PracticeConfig contains the tunable parameters of the practice engine.
type PracticeConfig struct {
	// RecommendationWindow is the rolling-window size for the adaptive
	// recommender.
	RecommendationWindow int `mapstructure:"recommendation_window" validate:"gt=0"`

	// NegativeMarkPerWrong is the per-wrong-answer score deduction.
	// 0 disables negative marking (the engine default).
	NegativeMarkPerWrong float64 `mapstructure:"negative_mark_per_wrong" validate:"gte=0"`
}

// TaskConfig contains settings for the background attempt-recording queue.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
	MaxRetries  int `mapstructure:"max_retries" validate:"gte=0"`
}
