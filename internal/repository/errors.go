package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"

	"timetrack/api/internal/database"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicate         = errors.New("record already exists")
	ErrInUse             = errors.New("record is referenced by other records")
	ErrActiveEntryExists = errors.New("user already has an open time entry")
)

const openEntryConstraint = "time_entries_one_open_per_user"

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case database.IsUniqueViolation(err, openEntryConstraint):
		return ErrActiveEntryExists
	case database.IsUniqueViolation(err, ""):
		return ErrDuplicate
	case database.IsForeignKeyViolation(err):
		return ErrInUse
	default:
		return err
	}
}
