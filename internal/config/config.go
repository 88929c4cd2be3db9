package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm" validate:"required"`
	Task     TaskConfig     `mapstructure:"task" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" validate:"gte=0"` // seconds
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0"`
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey   string `mapstructure:"gemini_api_key" validate:"required"`
	ModelName      string `mapstructure:"model_name" validate:"required"`
	ImageModelName string `mapstructure:"image_model_name" validate:"required"`
	MaxRetries     int    `mapstructure:"max_retries" validate:"gte=0"`
}

// TaskConfig contains background task runner settings.
type TaskConfig struct {
	WorkerCount           int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize             int `mapstructure:"queue_size" validate:"required,gt=0"`
	StuckTaskAgeMinutes   int `mapstructure:"stuck_task_age_minutes" validate:"required,gt=0"`
	GenerationTimeoutSecs int `mapstructure:"generation_timeout_secs" validate:"required,gt=0"`
	MaxGenerationAttempts int `mapstructure:"max_generation_attempts" validate:"required,gt=0"`
}
