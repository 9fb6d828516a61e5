package service

import (
	"errors"
	"fmt"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/repository"
)

// notFound converts a missing row into a client-facing NotFound error and
// wraps anything else with op.
func notFound(err error, op, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(message)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// storeError maps the write-side sentinels of the gateway.
func storeError(err error, op, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(entity + " not found")
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict(entity + " already exists")
	case errors.Is(err, repository.ErrInUse):
		return apperr.Conflict(entity + " is still referenced by other records")
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
