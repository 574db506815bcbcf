// Package workflow starts the asynchronous workflow that follows a task status
// change. Starter is implemented by AWS Step Functions, by NATS JetStream and
// by Engine, an in-process runner with persisted execution records.
package workflow
