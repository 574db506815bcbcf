// Package store defines the persistence contract for tasks. The interface
// abstracts the underlying data storage mechanism from the application's core
// logic; implementations live under internal/platform.
//
// Every operation is scoped by the owner ID taken from the authenticated
// request. A task owned by someone else is indistinguishable from a missing one.
package store
