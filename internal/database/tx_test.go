package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTx satisfies pgx.Tx; only Commit and Rollback are exercised.
type fakeTx struct {
	pgx.Tx
	commits   *int
	rollbacks *int
}

func (t fakeTx) Commit(context.Context) error {
	*t.commits++
	return nil
}

func (t fakeTx) Rollback(context.Context) error {
	*t.rollbacks++
	return nil
}

type fakeBeginner struct {
	begins    int
	commits   int
	rollbacks int
}

func (b *fakeBeginner) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	b.begins++
	return fakeTx{commits: &b.commits, rollbacks: &b.rollbacks}, nil
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code, ConstraintName: "time_entries_one_open_per_user"}
}

func TestWithTxRetriesSerializationFailures(t *testing.T) {
	db := &fakeBeginner{}
	calls := 0

	err := WithTx(context.Background(), db, pgx.TxOptions{}, func(pgx.Tx) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("update: %w", pgError(codeSerializationFailure))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, db.begins)
	assert.Equal(t, 1, db.commits)
}

func TestWithTxGivesUp(t *testing.T) {
	db := &fakeBeginner{}
	calls := 0

	err := WithTx(context.Background(), db, pgx.TxOptions{}, func(pgx.Tx) error {
		calls++
		return pgError(codeDeadlockDetected)
	})

	require.Error(t, err)
	assert.Equal(t, maxTxAttempts, calls)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 0, db.commits)
}

func TestWithTxDoesNotRetryOtherErrors(t *testing.T) {
	db := &fakeBeginner{}
	boom := errors.New("boom")
	calls := 0

	err := WithTx(context.Background(), db, pgx.TxOptions{}, func(pgx.Tx) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, db.rollbacks)
}

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", pgError(codeUniqueViolation))

	assert.True(t, IsUniqueViolation(unique, ""))
	assert.True(t, IsUniqueViolation(unique, "time_entries_one_open_per_user"))
	assert.False(t, IsUniqueViolation(unique, "users_email_key"))
	assert.False(t, IsUniqueViolation(errors.New("plain"), ""))

	assert.True(t, IsForeignKeyViolation(pgError(codeForeignKeyViolation)))
	assert.True(t, Retryable(pgError(codeSerializationFailure)))
	assert.False(t, Retryable(pgError(codeUniqueViolation)))
}

func TestMigrationNamesSorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
	assert.IsIncreasing(t, names)
}
