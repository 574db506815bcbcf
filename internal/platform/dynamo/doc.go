// Package dynamo implements store.TaskStore on Amazon DynamoDB.
//
// The table uses userId as partition key and taskId as sort key. Item
// attribute names match the JSON field names of domain.Task so that tables
// written by earlier deployments stay readable.
package dynamo
