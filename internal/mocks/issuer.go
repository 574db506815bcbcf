package mocks

import (
	"context"

	"github.com/phrazzld/taskr/internal/attachment"
)

// MockIssuer implements attachment.Issuer for testing. Without overrides it
// returns deterministic example.com URLs.
type MockIssuer struct {
	IssueUploadURLFn func(ctx context.Context, ownerID, taskID string) (*attachment.Upload, error)
	DownloadURLFn    func(ctx context.Context, key string) (string, error)

	DefaultError error
}

var _ attachment.Issuer = (*MockIssuer)(nil)

// IssueUploadURL implements attachment.Issuer
func (m *MockIssuer) IssueUploadURL(ctx context.Context, ownerID, taskID string) (*attachment.Upload, error) {
	if m.IssueUploadURLFn != nil {
		return m.IssueUploadURLFn(ctx, ownerID, taskID)
	}
	if m.DefaultError != nil {
		return nil, m.DefaultError
	}
	key := attachment.ObjectKey(ownerID, taskID)
	return &attachment.Upload{URL: "https://example.com/upload/" + key, Key: key}, nil
}

// DownloadURL implements attachment.Issuer
func (m *MockIssuer) DownloadURL(ctx context.Context, key string) (string, error) {
	if m.DownloadURLFn != nil {
		return m.DownloadURLFn(ctx, key)
	}
	if m.DefaultError != nil {
		return "", m.DefaultError
	}
	return "https://example.com/download/" + key, nil
}
