package dynamo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/phrazzld/taskr/internal/domain"
	"github.com/phrazzld/taskr/internal/store"
)

// API is the subset of the DynamoDB client used by TaskStore.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// TaskStore implements store.TaskStore on a DynamoDB table.
type TaskStore struct {
	api    API
	table  string
	logger *slog.Logger
	now    func() time.Time
}

// NewTaskStore creates a TaskStore for table.
// If logger is nil, a default logger is used.
func NewTaskStore(api API, table string, logger *slog.Logger) *TaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		api:    api,
		table:  table,
		logger: logger.With(slog.String("component", "task_store"), slog.String("backend", "dynamodb")),
		now:    domain.Now,
	}
}

var _ store.TaskStore = (*TaskStore)(nil)

// Create implements store.TaskStore.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	av, err := attributevalue.MarshalMap(itemFromTask(task))
	if err != nil {
		return store.NewStoreError("create", "failed to marshal item", err)
	}

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(taskId)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return store.NewStoreError("create", "key already present", store.ErrDuplicate)
		}
		return s.fault(ctx, "create", err)
	}

	s.logger.DebugContext(ctx, "task created", slog.String("task_id", task.TaskID))
	return nil
}

// Get implements store.TaskStore.
func (s *TaskStore) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	out, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       keyAttributes(ownerID, taskID),
	})
	if err != nil {
		return nil, s.fault(ctx, "get", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	task, err := decodeTask(out.Item)
	if err != nil {
		return nil, store.NewStoreError("get", "failed to decode item", err)
	}
	return task, nil
}

// List implements store.TaskStore. It asks for one item more than the page
// size so that the last page never carries a cursor.
func (s *TaskStore) List(ctx context.Context, ownerID string, opts store.ListOptions) (*store.Page, error) {
	limit := opts.EffectiveLimit()

	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("userId = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: ownerID},
		},
		Limit:            aws.Int32(int32(limit + 1)),
		ScanIndexForward: aws.Bool(true),
	}
	if opts.Cursor != nil {
		in.ExclusiveStartKey = keyAttributes(opts.Cursor.UserID, opts.Cursor.TaskID)
	}

	out, err := s.api.Query(ctx, in)
	if err != nil {
		return nil, s.fault(ctx, "list", err)
	}

	page := &store.Page{Items: make([]*domain.Task, 0, min(limit, len(out.Items)))}
	for _, av := range out.Items {
		if len(page.Items) == limit {
			break
		}
		task, err := decodeTask(av)
		if err != nil {
			return nil, store.NewStoreError("list", "failed to decode item", err)
		}
		page.Items = append(page.Items, task)
	}

	// More items exist when the query returned past the page, or when
	// DynamoDB stopped early at its response size cap.
	more := len(out.Items) > limit || (len(out.LastEvaluatedKey) > 0 && len(page.Items) > 0)
	if more {
		last := page.Items[len(page.Items)-1]
		page.Next = &store.Key{UserID: last.OwnerID, TaskID: last.TaskID}
	}
	return page, nil
}

// Update implements store.TaskStore.
func (s *TaskStore) Update(
	ctx context.Context,
	ownerID, taskID string,
	upd store.TaskUpdate,
) (*domain.Task, error) {
	return s.update(ctx, "update", ownerID, taskID,
		"SET #t = :t, description = :d, updatedAt = :u",
		map[string]string{"#t": "title"},
		map[string]types.AttributeValue{
			":t": &types.AttributeValueMemberS{Value: upd.Title},
			":d": nullableString(upd.Description),
		},
	)
}

// UpdateStatus implements store.TaskStore.
func (s *TaskStore) UpdateStatus(
	ctx context.Context,
	ownerID, taskID string,
	status domain.TaskStatus,
) (*domain.Task, error) {
	return s.update(ctx, "update status", ownerID, taskID,
		"SET #s = :s, updatedAt = :u",
		map[string]string{"#s": "status"},
		map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(status)},
		},
	)
}

// maxStampAttempts bounds how often update retries after another writer
// stamped the item later than this process's clock.
const maxStampAttempts = 3

// update applies expr with updatedAt set to the later of the clock and the
// stored value. The timestamp layout is fixed width, so string order is time order.
func (s *TaskStore) update(
	ctx context.Context,
	op, ownerID, taskID, expr string,
	names map[string]string,
	values map[string]types.AttributeValue,
) (*domain.Task, error) {
	stamp := formatTime(s.now())
	for attempt := 1; ; attempt++ {
		values[":u"] = &types.AttributeValueMemberS{Value: stamp}
		out, err := s.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                 aws.String(s.table),
			Key:                       keyAttributes(ownerID, taskID),
			UpdateExpression:          aws.String(expr),
			ConditionExpression:       aws.String(updateCondition),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
			ReturnValues:              types.ReturnValueAllNew,
		})
		if err == nil {
			task, err := decodeTask(out.Attributes)
			if err != nil {
				return nil, store.NewStoreError(op, "failed to decode item", err)
			}
			return task, nil
		}
		if !isConditionFailed(err) {
			return nil, s.fault(ctx, op, err)
		}

		// Either the item is gone or its updatedAt is ahead of our clock.
		current, err := s.Get(ctx, ownerID, taskID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, store.ErrNotFound
		}
		if attempt == maxStampAttempts {
			s.logger.WarnContext(ctx, "updatedAt kept moving during update",
				slog.String("operation", op),
				slog.String("task_id", taskID))
			return nil, store.NewStoreError(op, "concurrent updates", store.ErrTransactionFailed)
		}
		stamp = formatTime(current.UpdatedAt)
	}
}

const updateCondition = "attribute_exists(taskId) AND updatedAt <= :u"

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, ownerID, taskID string) error {
	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       keyAttributes(ownerID, taskID),
	})
	if err != nil {
		return s.fault(ctx, "delete", err)
	}
	return nil
}

func (s *TaskStore) fault(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "dynamodb request failed",
		slog.String("operation", op),
		slog.String("error", err.Error()))
	return store.NewStoreError(op, "dynamodb request failed", err)
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
