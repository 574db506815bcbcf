package dynamo

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/phrazzld/taskr/internal/domain"
)

// timeLayout is ISO-8601 with millisecond precision, always in UTC.
const timeLayout = "2006-01-02T15:04:05.000Z"

// taskItem is the stored representation of a task. A nil Description is
// written as an explicit NULL attribute.
type taskItem struct {
	UserID        string  `dynamodbav:"userId"`
	TaskID        string  `dynamodbav:"taskId"`
	Title         string  `dynamodbav:"title"`
	Description   *string `dynamodbav:"description"`
	Status        string  `dynamodbav:"status"`
	CreatedAt     string  `dynamodbav:"createdAt"`
	UpdatedAt     string  `dynamodbav:"updatedAt"`
	AttachmentKey string  `dynamodbav:"attachmentKey,omitempty"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func itemFromTask(t *domain.Task) taskItem {
	return taskItem{
		UserID:        t.OwnerID,
		TaskID:        t.TaskID,
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		CreatedAt:     formatTime(t.CreatedAt),
		UpdatedAt:     formatTime(t.UpdatedAt),
		AttachmentKey: t.AttachmentKey,
	}
}

func (it taskItem) toTask() (*domain.Task, error) {
	created, err := parseTime(it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid createdAt %q: %w", it.CreatedAt, err)
	}
	updated, err := parseTime(it.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid updatedAt %q: %w", it.UpdatedAt, err)
	}
	return &domain.Task{
		OwnerID:       it.UserID,
		TaskID:        it.TaskID,
		Title:         it.Title,
		Description:   it.Description,
		Status:        domain.TaskStatus(it.Status),
		CreatedAt:     created,
		UpdatedAt:     updated,
		AttachmentKey: it.AttachmentKey,
	}, nil
}

func decodeTask(av map[string]types.AttributeValue) (*domain.Task, error) {
	var it taskItem
	if err := attributevalue.UnmarshalMap(av, &it); err != nil {
		return nil, err
	}
	return it.toTask()
}

func keyAttributes(ownerID, taskID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: ownerID},
		"taskId": &types.AttributeValueMemberS{Value: taskID},
	}
}

// nullableString encodes nil as an explicit NULL attribute.
func nullableString(s *string) types.AttributeValue {
	if s == nil {
		return &types.AttributeValueMemberNULL{Value: true}
	}
	return &types.AttributeValueMemberS{Value: *s}
}
