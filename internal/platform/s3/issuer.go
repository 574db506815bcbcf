// Package s3 issues presigned attachment URLs on Amazon S3.
package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/phrazzld/taskr/internal/attachment"
	"github.com/phrazzld/taskr/internal/config"
	"github.com/phrazzld/taskr/internal/platform/awsconf"
)

// Presigner is the subset of s3.PresignClient used by Issuer.
type Presigner interface {
	PresignPutObject(
		ctx context.Context,
		in *s3.PutObjectInput,
		optFns ...func(*s3.PresignOptions),
	) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(
		ctx context.Context,
		in *s3.GetObjectInput,
		optFns ...func(*s3.PresignOptions),
	) (*v4.PresignedHTTPRequest, error)
}

// Issuer implements attachment.Issuer with presigned S3 requests.
type Issuer struct {
	presigner Presigner
	bucket    string
	expiry    time.Duration
}

// NewIssuer creates an Issuer for bucket whose URLs expire after expiry.
func NewIssuer(presigner Presigner, bucket string, expiry time.Duration) *Issuer {
	return &Issuer{presigner: presigner, bucket: bucket, expiry: expiry}
}

var _ attachment.Issuer = (*Issuer)(nil)

// IssueUploadURL implements attachment.Issuer.
func (i *Issuer) IssueUploadURL(ctx context.Context, ownerID, taskID string) (*attachment.Upload, error) {
	key := attachment.ObjectKey(ownerID, taskID)
	req, err := i.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(i.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(i.expiry))
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}
	return &attachment.Upload{URL: req.URL, Key: key}, nil
}

// DownloadURL implements attachment.Issuer.
func (i *Issuer) DownloadURL(ctx context.Context, key string) (string, error) {
	req, err := i.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(i.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(i.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign download: %w", err)
	}
	return req.URL, nil
}

// NewPresignClient creates an S3 presign client. Local endpoints need
// path-style addressing.
func NewPresignClient(awsCfg aws.Config, cfg config.AWSConfig) *s3.PresignClient {
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if ep := awsconf.Endpoint(cfg, awsconf.ServiceS3); ep != "" {
			o.BaseEndpoint = aws.String(ep)
		}
		o.UsePathStyle = awsconf.UsePathStyle(cfg)
	})
	return s3.NewPresignClient(client)
}
