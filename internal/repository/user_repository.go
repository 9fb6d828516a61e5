package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timetrack/api/internal/database"
	"timetrack/api/internal/models"
)

const userColumns = `
	id, name, email, password_hash, role, is_active, login_attempts, lock_until,
	last_login, created_at, updated_at
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.IsActive,
		&user.LoginAttempts,
		&user.LockUntil,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return models.User{}, translate(err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			id, name, email, password_hash, role, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.IsActive,
	)
	return translate(err)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	var (
		where []string
		args  []any
	)
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}
	if filter.Role != "" {
		args = append(args, filter.Role)
		where = append(where, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		where = append(where, fmt.Sprintf("is_active = $%d", len(args)))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page := models.NewPage(filter.Page.Number, filter.Page.Limit)
	args = append(args, page.Limit, page.Offset())
	query := fmt.Sprintf(`SELECT %s FROM users%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		userColumns, clause, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

// RecordFailedLogin increments the failed attempt counter and returns the new
// value. An expired lock restarts the count.
func (r *UserRepository) RecordFailedLogin(ctx context.Context, id string, now time.Time) (int, error) {
	const query = `
		UPDATE users
		SET login_attempts = CASE
		        WHEN lock_until IS NOT NULL AND lock_until <= $2 THEN 1
		        ELSE login_attempts + 1
		    END,
		    lock_until = CASE
		        WHEN lock_until IS NOT NULL AND lock_until <= $2 THEN NULL
		        ELSE lock_until
		    END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING login_attempts
	`
	var attempts int
	if err := r.pool.QueryRow(ctx, query, id, now).Scan(&attempts); err != nil {
		return 0, translate(err)
	}
	return attempts, nil
}

func (r *UserRepository) Lock(ctx context.Context, id string, until time.Time) error {
	const query = `UPDATE users SET lock_until = $2, updated_at = NOW() WHERE id = $1`
	return execOne(ctx, r.pool, query, id, until)
}

func (r *UserRepository) Unlock(ctx context.Context, id string) error {
	const query = `UPDATE users SET lock_until = NULL, login_attempts = 0, updated_at = NOW() WHERE id = $1`
	return execOne(ctx, r.pool, query, id)
}

func (r *UserRepository) RecordSuccessfulLogin(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE users
		SET login_attempts = 0, lock_until = NULL, last_login = $2, updated_at = NOW()
		WHERE id = $1
	`
	return execOne(ctx, r.pool, query, id, at)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	return execOne(ctx, r.pool, query, id, hash)
}

// UpdateGuarded loads the user and the active admin count in a serializable
// transaction, lets mutate validate and edit the row, then persists it.
func (r *UserRepository) UpdateGuarded(ctx context.Context, id string, mutate func(user *models.User, activeAdmins int) error) (models.User, error) {
	var updated models.User
	err := database.WithTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		user, admins, err := lockUserWithAdminCount(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := mutate(&user, admins); err != nil {
			return err
		}

		const query = `
			UPDATE users
			SET name = $2, email = $3, role = $4, is_active = $5, password_hash = $6, updated_at = NOW()
			WHERE id = $1
			RETURNING ` + userColumns
		updated, err = scanUser(tx.QueryRow(ctx, query,
			user.ID, user.Name, user.Email, user.Role, user.IsActive, user.PasswordHash,
		))
		return err
	})
	if err != nil {
		return models.User{}, translate(err)
	}
	return updated, nil
}

// DeleteGuarded deletes the user after check approves it against the active
// admin count, atomically.
func (r *UserRepository) DeleteGuarded(ctx context.Context, id string, check func(user models.User, activeAdmins int) error) error {
	err := database.WithTx(ctx, r.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		user, admins, err := lockUserWithAdminCount(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := check(user, admins); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return err
	})
	return translate(err)
}

func lockUserWithAdminCount(ctx context.Context, tx pgx.Tx, id string) (models.User, int, error) {
	user, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return models.User{}, 0, err
	}

	var admins int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role = 'admin' AND is_active`).Scan(&admins); err != nil {
		return models.User{}, 0, err
	}
	return user, admins, nil
}
