// Package awsconf builds the aws.Config shared by the DynamoDB, S3 and Step
// Functions clients, including the LocalStack endpoints used in offline mode.
package awsconf

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/phrazzld/taskr/internal/config"
)

// Local endpoints used when config.AWSConfig.Offline is set and no explicit
// endpoint is configured.
const (
	LocalEndpoint   = "http://localhost:4566"
	LocalS3Endpoint = "http://localhost:4569"
)

// Service names accepted by Endpoint.
const (
	ServiceDynamoDB      = "dynamodb"
	ServiceS3            = "s3"
	ServiceStepFunctions = "sfn"
)

// Load resolves region and credentials from the environment. Offline mode
// uses static dummy credentials so no AWS account is needed.
func Load(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Offline {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider("test", "test", ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return awsCfg, nil
}

// Endpoint returns the base endpoint override for service, or "" to use the
// SDK's default resolution.
func Endpoint(cfg config.AWSConfig, service string) string {
	if cfg.Endpoint != "" {
		return cfg.Endpoint
	}
	if !cfg.Offline {
		return ""
	}
	if service == ServiceS3 {
		return LocalS3Endpoint
	}
	return LocalEndpoint
}

// UsePathStyle reports whether S3 requests must use path-style addressing,
// which local emulators require.
func UsePathStyle(cfg config.AWSConfig) bool {
	return cfg.Offline || cfg.Endpoint != ""
}
