package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all environment variables read by Load.
const EnvPrefix = "TASKR"

// legacyEnv maps config keys to the unprefixed variable names used by the
// original serverless deployment, so existing .env files keep working.
var legacyEnv = map[string]string{
	"auth.jwt_secret":            "JWT_SECRET",
	"store.table_name":           "TABLE_NAME",
	"attachments.bucket":         "BUCKET_NAME",
	"workflow.state_machine_arn": "STATE_MACHINE_ARN",
	"aws.region":                 "AWS_REGION",
	"aws.offline":                "IS_OFFLINE",
	"database.url":               "DATABASE_URL",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// BindEnv with several names takes the first one that is set.
	for key, legacy := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable %s: %w", legacy, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyOfflineDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks struct tags and the cross-field rules that tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Store.Backend == StoreBackendPostgres && cfg.Database.URL == "" {
		return fmt.Errorf("config validation failed: database.url is required for the postgres store")
	}
	if cfg.Workflow.Backend == WorkflowBackendStepFunctions && cfg.Workflow.StateMachineARN == "" {
		return fmt.Errorf(
			"config validation failed: workflow.state_machine_arn is required for the stepfunctions backend",
		)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("auth.jwt_secret", DevJWTSecret)
	v.SetDefault("auth.leeway", time.Duration(0))
	v.SetDefault("auth.token_lifetime", time.Hour)

	v.SetDefault("store.backend", StoreBackendDynamoDB)
	v.SetDefault("store.table_name", "tasksTable")
	v.SetDefault("store.timeout", 5*time.Second)
	v.SetDefault("store.max_page_size", 100)

	v.SetDefault("database.url", "")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("aws.offline", false)

	v.SetDefault("attachments.enabled", true)
	v.SetDefault("attachments.bucket", "task-attachments-dev")
	v.SetDefault("attachments.url_expiry", time.Hour)

	v.SetDefault("workflow.backend", WorkflowBackendStepFunctions)
	v.SetDefault("workflow.state_machine_arn", "")
	v.SetDefault("workflow.timeout", 5*time.Second)
	v.SetDefault("workflow.nats_url", "")
	v.SetDefault("workflow.nats_subject", "tasks.status")
	v.SetDefault("workflow.worker_count", 2)
	v.SetDefault("workflow.queue_size", 100)
	v.SetDefault("workflow.stuck_age", 30*time.Minute)
	v.SetDefault("workflow.stuck_sweep_schedule", "@every 5m")

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.redis_addr", "localhost:6379")
	v.SetDefault("ratelimit.redis_db", 0)
	v.SetDefault("ratelimit.limit", 100)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.key_prefix", "ratelimit:")
}

// LocalStateMachineARN is the state machine LocalStack registers for the default account.
const LocalStateMachineARN = "arn:aws:states:us-east-1:000000000000:stateMachine:taskStatusFlow"

// applyOfflineDefaults points offline runs at LocalStack's state machine,
// replacing any configured ARN.
func applyOfflineDefaults(cfg *Config) {
	if !cfg.AWS.Offline {
		return
	}
	cfg.Workflow.StateMachineARN = LocalStateMachineARN
}
