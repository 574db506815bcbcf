package dynamo

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/phrazzld/taskr/internal/config"
	"github.com/phrazzld/taskr/internal/platform/awsconf"
)

// NewClient creates a DynamoDB client, pointing it at a local endpoint when configured.
func NewClient(awsCfg aws.Config, cfg config.AWSConfig) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if ep := awsconf.Endpoint(cfg, awsconf.ServiceDynamoDB); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
	})
}
