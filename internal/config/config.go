package config

// Config holds all application configuration, organized into logical groups.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Backend   BackendConfig   `mapstructure:"backend" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port           int      `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel       string   `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// SchedulerConfig tunes the job queue and execution engine.
type SchedulerConfig struct {
	// TaskConcurrency bounds in-flight generation tasks per job.
	TaskConcurrency int `mapstructure:"task_concurrency" validate:"required,gt=0"`

	// TaskTimeoutSeconds is the per-task deadline.
	TaskTimeoutSeconds int `mapstructure:"task_timeout_seconds" validate:"required,gt=0"`

	// MaxArticles caps articleCount per job; never above 50.
	MaxArticles int `mapstructure:"max_articles" validate:"required,gt=0,lte=50"`

	// DefaultModelGroup names the group used by jobs that do not pick one.
	DefaultModelGroup string `mapstructure:"default_model_group"`

	// StuckSweepSchedule is the cron expression for the stuck-job sweep.
	StuckSweepSchedule string `mapstructure:"stuck_sweep_schedule" validate:"required"`
}

// BackendConfig contains the inference backend settings.
type BackendConfig struct {
	OllamaBaseURL        string   `mapstructure:"ollama_base_url" validate:"required"`
	OllamaTimeoutSeconds int      `mapstructure:"ollama_timeout_seconds" validate:"required,gt=0"`
	Temperature          float64  `mapstructure:"temperature"`
	MaxTokens            int      `mapstructure:"max_tokens"`
	GeminiAPIKey         string   `mapstructure:"gemini_api_key"`
	GeminiModels         []string `mapstructure:"gemini_models"`
}
