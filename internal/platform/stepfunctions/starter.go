// Package stepfunctions starts task status workflows on AWS Step Functions.
package stepfunctions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/phrazzld/taskr/internal/config"
	"github.com/phrazzld/taskr/internal/platform/awsconf"
	"github.com/phrazzld/taskr/internal/workflow"
)

// ErrNoStateMachine is returned when no state machine ARN is configured.
var ErrNoStateMachine = errors.New("state machine ARN not configured")

// API is the subset of the Step Functions client used by Starter.
type API interface {
	StartExecution(
		ctx context.Context,
		in *sfn.StartExecutionInput,
		optFns ...func(*sfn.Options),
	) (*sfn.StartExecutionOutput, error)
}

// Starter implements workflow.Starter with StartExecution calls.
type Starter struct {
	api             API
	stateMachineARN string
	logger          *slog.Logger
}

// NewStarter creates a Starter for the given state machine.
func NewStarter(api API, stateMachineARN string, logger *slog.Logger) *Starter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Starter{
		api:             api,
		stateMachineARN: stateMachineARN,
		logger:          logger.With(slog.String("component", "stepfunctions")),
	}
}

var _ workflow.Starter = (*Starter)(nil)

// StartExecution implements workflow.Starter and returns the execution ARN.
func (s *Starter) StartExecution(ctx context.Context, in workflow.Input) (string, error) {
	if s.stateMachineARN == "" {
		return "", ErrNoStateMachine
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow input: %w", err)
	}

	out, err := s.api.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(s.stateMachineARN),
		Input:           aws.String(string(payload)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to start execution: %w", err)
	}

	arn := aws.ToString(out.ExecutionArn)
	s.logger.DebugContext(ctx, "execution started",
		slog.String("task_id", in.TaskID),
		slog.String("execution_arn", arn))
	return arn, nil
}

// NewClient creates a Step Functions client, pointing it at a local endpoint when configured.
func NewClient(awsCfg aws.Config, cfg config.AWSConfig) *sfn.Client {
	return sfn.NewFromConfig(awsCfg, func(o *sfn.Options) {
		if ep := awsconf.Endpoint(cfg, awsconf.ServiceStepFunctions); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
	})
}
