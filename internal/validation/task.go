package validation

import (
	"encoding/json"

	"github.com/phrazzld/taskr/internal/domain"
)

// CreateTaskInput is the accepted body of a create request.
type CreateTaskInput struct {
	Title       string            `json:"title" validate:"required"`
	Description *string           `json:"description"`
	Status      domain.TaskStatus `json:"status" validate:"omitempty,task_status"`
	// Attachment asks for a presigned upload URL to be issued with the task.
	Attachment bool `json:"attachment"`
}

// UpdateTaskInput is the accepted body of a title/description update.
// A status key in the body is ignored; status only changes through ParseStatusUpdate.
type UpdateTaskInput struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
}

// StatusUpdateInput is the accepted body of a status change.
type StatusUpdateInput struct {
	Status domain.TaskStatus `json:"status" validate:"required,task_status"`
}

// ParseCreateTask decodes and validates a create body. A missing status
// defaults to pending and an empty description becomes nil.
func ParseCreateTask(body []byte) (*CreateTaskInput, error) {
	var in CreateTaskInput
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	if err := check(&in); err != nil {
		return nil, err
	}
	if err := rejectNull(body, "description"); err != nil {
		return nil, err
	}
	in.Description = domain.NormalizeDescription(in.Description)
	if in.Status == "" {
		in.Status = domain.TaskStatusPending
	}
	return &in, nil
}

// ParseUpdateTask decodes and validates an update body. An empty or
// omitted description comes back nil.
func ParseUpdateTask(body []byte) (*UpdateTaskInput, error) {
	var in UpdateTaskInput
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	if err := check(&in); err != nil {
		return nil, err
	}
	if err := rejectNull(body, "description"); err != nil {
		return nil, err
	}
	in.Description = domain.NormalizeDescription(in.Description)
	return &in, nil
}

// ParseStatusUpdate decodes and validates a status change body.
func ParseStatusUpdate(body []byte) (*StatusUpdateInput, error) {
	var in StatusUpdateInput
	if err := decode(body, &in); err != nil {
		return nil, err
	}
	if err := check(&in); err != nil {
		return nil, err
	}
	return &in, nil
}

// ValidateStatus checks a status that did not come from a request body.
func ValidateStatus(status domain.TaskStatus) error {
	return check(&StatusUpdateInput{Status: status})
}

// rejectNull fails when field is present in body as an explicit JSON null.
// Optional string fields may be omitted but not nulled.
func rejectNull(body []byte, field string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		// decode already accepted the body, so this is the empty body case.
		return nil
	}
	if v, ok := raw[field]; ok && string(v) == "null" {
		return fieldError(field, "must be a string")
	}
	return nil
}
