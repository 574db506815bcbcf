package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskr/internal/store"
)

// PostgreSQL error codes
const (
	// uniqueViolationCode is the PostgreSQL error code for unique constraint violations
	uniqueViolationCode = "23505"

	// checkViolationCode is the PostgreSQL error code for check constraint violations
	checkViolationCode = "23514"

	// notNullViolationCode is the PostgreSQL error code for not null violations
	notNullViolationCode = "23502"
)

// MapError maps a database error onto the store error vocabulary.
// sql.ErrNoRows becomes store.ErrNotFound; everything else becomes a
// StoreError (matching store.ErrStoreFault) that wraps the driver error,
// with unique violations additionally matching store.ErrDuplicate.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolationCode:
			return store.NewStoreError(op, "key already present", fmt.Errorf("%w: %v", store.ErrDuplicate, err))
		case checkViolationCode:
			return store.NewStoreError(op, fmt.Sprintf("check constraint violation (%s)", pgErr.ConstraintName), err)
		case notNullViolationCode:
			return store.NewStoreError(op, fmt.Sprintf("not null violation (%s)", pgErr.ColumnName), err)
		}
	}

	return store.NewStoreError(op, "database error", err)
}

// IsUniqueViolation checks if the given error is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

// CheckRowsAffected examines the number of rows affected by a database operation.
// If no rows were affected, it returns store.ErrNotFound.
func CheckRowsAffected(result sql.Result, entityName string) error {
	if result == nil {
		return fmt.Errorf("nil result provided to CheckRowsAffected")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if entityName == "" {
			return store.ErrNotFound
		}
		return fmt.Errorf("%w: %s not found", store.ErrNotFound, entityName)
	}

	return nil
}
