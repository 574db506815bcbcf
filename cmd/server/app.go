package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/nats-io/nats.go"
	"github.com/phrazzld/taskr/internal/attachment"
	"github.com/phrazzld/taskr/internal/config"
	"github.com/phrazzld/taskr/internal/platform/awsconf"
	"github.com/phrazzld/taskr/internal/platform/dynamo"
	"github.com/phrazzld/taskr/internal/platform/memory"
	"github.com/phrazzld/taskr/internal/platform/natsflow"
	"github.com/phrazzld/taskr/internal/platform/postgres"
	"github.com/phrazzld/taskr/internal/platform/s3"
	"github.com/phrazzld/taskr/internal/platform/stepfunctions"
	"github.com/phrazzld/taskr/internal/ratelimit"
	"github.com/phrazzld/taskr/internal/service"
	"github.com/phrazzld/taskr/internal/service/auth"
	"github.com/phrazzld/taskr/internal/store"
	"github.com/phrazzld/taskr/internal/workflow"
	"github.com/redis/go-redis/v9"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Long-lived clients, closed by cleanup. Each is nil when its backend is not configured.
	db       *sql.DB
	natsConn *nats.Conn
	redis    *redis.Client
	engine   *workflow.Engine

	taskStore store.TaskStore
	starter   workflow.Starter
	issuer    attachment.Issuer

	tokens        *auth.TokenService
	authorizer    *auth.Authorizer
	taskService   *service.TaskService
	statusService *service.StatusService
	rateLimiter   *ratelimit.Middleware
}

// newApplication creates a new application instance with all dependencies initialized.
// Anything opened before a failure is released again.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *application, err error) {
	app := &application{
		config: cfg,
		logger: logger,
	}
	defer func() {
		if err != nil {
			app.cleanup()
		}
	}()

	app.tokens, err = auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	if cfg.Auth.UsingDevSecret() {
		logger.Warn("using the development JWT secret; set TASKR_AUTH_JWT_SECRET in production")
	}
	app.authorizer = auth.NewAuthorizer(app.tokens, logger)

	var awsCfg aws.Config
	if needsAWS(cfg) {
		awsCfg, err = awsconf.Load(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
	}

	if cfg.Database.URL != "" {
		app.db, err = postgres.Open(ctx, cfg.Database.URL, logger)
		if err != nil {
			return nil, err
		}
	}

	if err = app.setupStore(awsCfg); err != nil {
		return nil, err
	}
	if cfg.Attachments.Enabled {
		presigner := s3.NewPresignClient(awsCfg, cfg.AWS)
		app.issuer = s3.NewIssuer(presigner, cfg.Attachments.Bucket, cfg.Attachments.URLExpiry)
		logger.Info("attachment URLs enabled", slog.String("bucket", cfg.Attachments.Bucket))
	}
	if err = app.setupWorkflow(ctx, awsCfg); err != nil {
		return nil, err
	}

	app.taskService, err = service.NewTaskService(app.taskStore, app.issuer, service.TaskServiceConfig{
		StoreTimeout: cfg.Store.Timeout,
		MaxPageSize:  cfg.Store.MaxPageSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}
	app.statusService, err = service.NewStatusService(
		app.taskStore,
		app.starter,
		cfg.Store.Timeout,
		cfg.Workflow.Timeout,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create status service: %w", err)
	}

	if cfg.RateLimit.Enabled {
		app.redis = ratelimit.NewClient(cfg.RateLimit.RedisAddr, cfg.RateLimit.RedisDB)
		if err = app.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RateLimit.RedisAddr, err)
		}
		limiter := ratelimit.NewLimiter(app.redis, cfg.RateLimit.KeyPrefix, cfg.RateLimit.Limit, cfg.RateLimit.Window)
		app.rateLimiter = ratelimit.NewMiddleware(limiter, logger)
		logger.Info("rate limiting enabled",
			slog.Int("limit", cfg.RateLimit.Limit),
			slog.Duration("window", cfg.RateLimit.Window))
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

func needsAWS(cfg *config.Config) bool {
	return cfg.Store.Backend == config.StoreBackendDynamoDB ||
		cfg.Workflow.Backend == config.WorkflowBackendStepFunctions ||
		cfg.Attachments.Enabled
}

func (app *application) setupStore(awsCfg aws.Config) error {
	switch app.config.Store.Backend {
	case config.StoreBackendDynamoDB:
		client := dynamo.NewClient(awsCfg, app.config.AWS)
		app.taskStore = dynamo.NewTaskStore(client, app.config.Store.TableName, app.logger)
	case config.StoreBackendPostgres:
		if app.db == nil {
			return fmt.Errorf("postgres store requires database.url")
		}
		app.taskStore = postgres.NewTaskStore(app.db, app.logger)
	case config.StoreBackendMemory:
		app.logger.Warn("using the in-memory task store; tasks are lost on restart")
		app.taskStore = memory.NewTaskStore()
	default:
		return fmt.Errorf("unknown store backend %q", app.config.Store.Backend)
	}
	app.logger.Info("task store initialized", slog.String("backend", app.config.Store.Backend))
	return nil
}

func (app *application) setupWorkflow(ctx context.Context, awsCfg aws.Config) error {
	cfg := app.config.Workflow
	switch cfg.Backend {
	case config.WorkflowBackendStepFunctions:
		client := stepfunctions.NewClient(awsCfg, app.config.AWS)
		app.starter = stepfunctions.NewStarter(client, cfg.StateMachineARN, app.logger)
	case config.WorkflowBackendNATS:
		nc, js, err := natsflow.Connect(ctx, cfg.NATSURL, cfg.NATSSubject, app.logger)
		if err != nil {
			return err
		}
		app.natsConn = nc
		app.starter = natsflow.NewStarter(js, cfg.NATSSubject, app.logger)
	case config.WorkflowBackendLocal:
		var executions workflow.ExecutionStore = memory.NewExecutionStore()
		if app.db != nil {
			executions = postgres.NewExecutionStore(app.db, app.logger)
		}
		app.engine = workflow.NewEngine(
			executions,
			workflow.LogHandler(app.logger),
			workflow.EngineConfigFrom(cfg),
			app.logger,
		)
		app.starter = app.engine
	default:
		return fmt.Errorf("unknown workflow backend %q", cfg.Backend)
	}
	app.logger.Info("workflow starter initialized", slog.String("backend", cfg.Backend))
	return nil
}

// Run starts the workflow engine (when local) and serves HTTP until ctx is
// canceled, then shuts everything down.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	if app.engine != nil {
		if err := app.engine.Start(); err != nil {
			return fmt.Errorf("failed to start workflow engine: %w", err)
		}
	}

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.engine != nil {
		app.engine.Stop()
	}
	if app.natsConn != nil {
		if err := app.natsConn.Drain(); err != nil {
			app.logger.Error("Error draining NATS connection", slog.String("error", err.Error()))
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("Error closing redis client", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("Application shutdown completed")
}
