package api

import "github.com/phrazzld/taskr/internal/domain"

// StatusResponse is the body of a successful status change: the task plus
// the handle of the workflow execution it started.
type StatusResponse struct {
	*domain.Task
	WorkflowExecutionArn string `json:"workflowExecutionArn"`
}

// MessageResponse carries a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// DownloadResponse carries a presigned attachment download URL.
type DownloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
}
