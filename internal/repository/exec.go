package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// execOne runs a single-row statement and reports ErrNotFound when nothing matched.
func execOne(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) error {
	cmd, err := pool.Exec(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
