package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

// Sentinel errors returned by the store. Callers test them with errors.Is.
var (
	// ErrNotFound indicates the document does not exist
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a create collided with an existing id
	ErrAlreadyExists = errors.New("already exists")

	// ErrStoreUnavailable indicates a transport or driver failure
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrBatchFailed indicates an atomic batch was rejected and nothing was written
	ErrBatchFailed = errors.New("batch failed")

	// ErrPreconditionFailed indicates a conditional write found the document in another state
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidQuery indicates a malformed filter or order clause
	ErrInvalidQuery = errors.New("invalid query")
)

// wrapDBError adds operation context and maps driver errors onto the
// store's sentinels
func wrapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrPreconditionFailed), errors.Is(err, ErrInvalidQuery):
		return fmt.Errorf("%s: %w", op, err)
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
			se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
