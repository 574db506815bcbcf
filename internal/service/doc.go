// Package service contains the task use cases. It sits between the HTTP
// handlers and the collaborators defined elsewhere: the task store
// (internal/store), the workflow starter (internal/workflow) and the
// attachment URL issuer (internal/attachment).
//
// Every collaborator call is bounded by a configured timeout. A deadline
// that expires inside a call is reported as ErrTimeout, which the API layer
// treats as retryable. Store errors are passed through so that their
// sentinels (store.ErrStoreFault, store.ErrBadCursor) stay visible to
// errors.Is.
//
// StatusService is the one place where two collaborators are written in
// sequence without a transaction: the status is persisted first and the
// workflow is started second. When the second step fails the first is not
// undone; the caller receives a *DispatchError that still carries the
// committed task.
package service
