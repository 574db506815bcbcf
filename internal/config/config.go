package config

import "time"

// DevJWTSecret is the signing secret used when none is configured.
// It only exists so that a fresh checkout can be run locally.
const DevJWTSecret = "mysecret"

// Store backends.
const (
	StoreBackendDynamoDB = "dynamodb"
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Workflow backends.
const (
	WorkflowBackendStepFunctions = "stepfunctions"
	WorkflowBackendNATS          = "nats"
	WorkflowBackendLocal         = "local"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server      ServerConfig      `mapstructure:"server" validate:"required"`
	Auth        AuthConfig        `mapstructure:"auth" validate:"required"`
	Store       StoreConfig       `mapstructure:"store" validate:"required"`
	Database    DatabaseConfig    `mapstructure:"database"`
	AWS         AWSConfig         `mapstructure:"aws" validate:"required"`
	Attachments AttachmentsConfig `mapstructure:"attachments"`
	Workflow    WorkflowConfig    `mapstructure:"workflow" validate:"required"`
	RateLimit   RateLimitConfig   `mapstructure:"ratelimit"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// AuthConfig contains token verification settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required"`
	// Leeway is the clock skew tolerated when checking exp/nbf/iat.
	Leeway        time.Duration `mapstructure:"leeway" validate:"gte=0"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime" validate:"gt=0"`
}

// UsingDevSecret reports whether the development fallback secret is in use.
func (c AuthConfig) UsingDevSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

// StoreConfig selects and tunes the task store.
type StoreConfig struct {
	Backend   string        `mapstructure:"backend" validate:"required,oneof=dynamodb postgres memory"`
	TableName string        `mapstructure:"table_name" validate:"required_if=Backend dynamodb"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
	// MaxPageSize caps the list limit requested by clients.
	MaxPageSize int `mapstructure:"max_page_size" validate:"gt=0"`
}

// DatabaseConfig contains PostgreSQL settings, used by the postgres store backend
// and by the local workflow engine's execution log.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// AWSConfig holds region and endpoint overrides shared by the AWS clients.
type AWSConfig struct {
	Region string `mapstructure:"region" validate:"required"`
	// Endpoint overrides every AWS service endpoint when set.
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
	// Offline points the clients at LocalStack-style local endpoints.
	Offline bool `mapstructure:"offline"`
}

// AttachmentsConfig controls upload/download URL issuance.
type AttachmentsConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Bucket    string        `mapstructure:"bucket" validate:"required_if=Enabled true"`
	URLExpiry time.Duration `mapstructure:"url_expiry" validate:"gt=0"`
}

// WorkflowConfig selects how status transitions are dispatched.
type WorkflowConfig struct {
	Backend         string        `mapstructure:"backend" validate:"required,oneof=stepfunctions nats local"`
	StateMachineARN string        `mapstructure:"state_machine_arn"`
	Timeout         time.Duration `mapstructure:"timeout" validate:"gt=0"`

	NATSURL     string `mapstructure:"nats_url" validate:"required_if=Backend nats"`
	NATSSubject string `mapstructure:"nats_subject" validate:"required_if=Backend nats"`

	// The settings below only apply to the local engine.
	WorkerCount        int           `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize          int           `mapstructure:"queue_size" validate:"gt=0"`
	StuckAge           time.Duration `mapstructure:"stuck_age" validate:"gt=0"`
	StuckSweepSchedule string        `mapstructure:"stuck_sweep_schedule" validate:"required"`
}

// RateLimitConfig configures the optional per-owner limiter.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	RedisAddr string        `mapstructure:"redis_addr" validate:"required_if=Enabled true"`
	RedisDB   int           `mapstructure:"redis_db" validate:"gte=0"`
	Limit     int           `mapstructure:"limit" validate:"gt=0"`
	Window    time.Duration `mapstructure:"window" validate:"gt=0"`
	KeyPrefix string        `mapstructure:"key_prefix"`
}
