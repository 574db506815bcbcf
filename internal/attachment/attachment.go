// Package attachment defines how upload and download URLs for task
// attachments are issued. The bytes never pass through this service.
package attachment

import "context"

// Upload is a presigned upload target for one task's attachment.
type Upload struct {
	URL string
	Key string
}

// Issuer presigns object storage URLs.
type Issuer interface {
	// IssueUploadURL presigns a PUT for the attachment of ownerID's task.
	IssueUploadURL(ctx context.Context, ownerID, taskID string) (*Upload, error)

	// DownloadURL presigns a GET for an existing attachment key.
	DownloadURL(ctx context.Context, key string) (string, error)
}

// ObjectKey is the storage key of a task's attachment.
func ObjectKey(ownerID, taskID string) string {
	return ownerID + "/" + taskID + "/attachment"
}
