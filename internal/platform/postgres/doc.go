// Package postgres provides PostgreSQL implementations of store.TaskStore and
// workflow.ExecutionStore. It handles connection setup, the embedded goose
// migrations, query execution, and mapping between domain types and rows.
//
// Queries go through database/sql using the pgx stdlib driver.
package postgres
