package dynamo

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type record = map[string]types.AttributeValue

// fakeDynamo emulates the handful of expressions TaskStore sends, which is
// enough to run the shared store behaviour tests without a table.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]record

	err        error
	lastPut    *dynamodb.PutItemInput
	lastQuery  *dynamodb.QueryInput
	lastUpdate *dynamodb.UpdateItemInput
	updates    int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]record)}
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func clone(r record) record {
	out := make(record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func (f *fakeDynamo) PutItem(
	_ context.Context,
	in *dynamodb.PutItemInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPut = in
	if f.err != nil {
		return nil, f.err
	}

	owner, id := str(in.Item["userId"]), str(in.Item["taskId"])
	if _, exists := f.items[owner][id]; exists && aws.ToString(in.ConditionExpression) == "attribute_not_exists(taskId)" {
		return nil, conditionFailed()
	}
	if f.items[owner] == nil {
		f.items[owner] = make(map[string]record)
	}
	f.items[owner][id] = clone(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(
	_ context.Context,
	in *dynamodb.GetItemInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	item, ok := f.items[str(in.Key["userId"])][str(in.Key["taskId"])]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: clone(item)}, nil
}

func (f *fakeDynamo) Query(
	_ context.Context,
	in *dynamodb.QueryInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = in
	if f.err != nil {
		return nil, f.err
	}

	partition := f.items[str(in.ExpressionAttributeValues[":u"])]
	after := str(in.ExclusiveStartKey["taskId"])
	ids := make([]string, 0, len(partition))
	for id := range partition {
		if after == "" || id > after {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	out := &dynamodb.QueryOutput{}
	limit := int(aws.ToInt32(in.Limit))
	for i, id := range ids {
		if limit > 0 && i == limit {
			last := out.Items[len(out.Items)-1]
			out.LastEvaluatedKey = record{"userId": last["userId"], "taskId": last["taskId"]}
			break
		}
		out.Items = append(out.Items, clone(partition[id]))
	}
	return out, nil
}

func (f *fakeDynamo) UpdateItem(
	_ context.Context,
	in *dynamodb.UpdateItemInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUpdate = in
	if f.err != nil {
		return nil, f.err
	}

	f.updates++
	item, ok := f.items[str(in.Key["userId"])][str(in.Key["taskId"])]
	if !ok {
		return nil, conditionFailed()
	}
	if strings.Contains(aws.ToString(in.ConditionExpression), "updatedAt <= :u") &&
		str(item["updatedAt"]) > str(in.ExpressionAttributeValues[":u"]) {
		return nil, conditionFailed()
	}

	assignments := strings.Split(strings.TrimPrefix(aws.ToString(in.UpdateExpression), "SET "), ",")
	for _, a := range assignments {
		parts := strings.SplitN(a, "=", 2)
		if len(parts) != 2 {
			return nil, errors.New("fake dynamo: unsupported update expression")
		}
		name := strings.TrimSpace(parts[0])
		if alias, ok := in.ExpressionAttributeNames[name]; ok {
			name = alias
		}
		item[name] = in.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
	}
	return &dynamodb.UpdateItemOutput{Attributes: clone(item)}, nil
}

func (f *fakeDynamo) DeleteItem(
	_ context.Context,
	in *dynamodb.DeleteItemInput,
	_ ...func(*dynamodb.Options),
) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	delete(f.items[str(in.Key["userId"])], str(in.Key["taskId"]))
	return &dynamodb.DeleteItemOutput{}, nil
}
