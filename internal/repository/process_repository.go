package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timetrack/api/internal/models"
)

// ProcessRepository stores processes and the activities that belong to them.
type ProcessRepository struct {
	pool *pgxpool.Pool
}

func NewProcessRepository(pool *pgxpool.Pool) *ProcessRepository {
	return &ProcessRepository{pool: pool}
}

const (
	processColumns  = `id, name, description, created_at, updated_at`
	activityColumns = `id, process_id, name, description, created_at, updated_at`
)

func scanProcess(row pgx.Row) (models.Process, error) {
	var p models.Process
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return models.Process{}, translate(err)
	}
	return p, nil
}

func scanActivity(row pgx.Row) (models.Activity, error) {
	var a models.Activity
	if err := row.Scan(&a.ID, &a.ProcessID, &a.Name, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return models.Activity{}, translate(err)
	}
	return a, nil
}

func (r *ProcessRepository) CreateProcess(ctx context.Context, p models.Process) (models.Process, error) {
	const query = `
		INSERT INTO processes (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + processColumns
	return scanProcess(r.pool.QueryRow(ctx, query, p.ID, p.Name, p.Description))
}

func (r *ProcessRepository) GetProcess(ctx context.Context, id string) (models.Process, error) {
	return scanProcess(r.pool.QueryRow(ctx, `SELECT `+processColumns+` FROM processes WHERE id = $1`, id))
}

func (r *ProcessRepository) ListProcesses(ctx context.Context) ([]models.Process, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+processColumns+` FROM processes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Process
	for rows.Next() {
		p, err := scanProcess(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProcessRepository) UpdateProcess(ctx context.Context, id string, patch models.ProcessPatch) (models.Process, error) {
	const query = `
		UPDATE processes
		SET name = COALESCE($2, name), description = COALESCE($3, description), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + processColumns
	return scanProcess(r.pool.QueryRow(ctx, query, id, patch.Name, patch.Description))
}

func (r *ProcessRepository) DeleteProcess(ctx context.Context, id string) error {
	return execOne(ctx, r.pool, `DELETE FROM processes WHERE id = $1`, id)
}

func (r *ProcessRepository) CreateActivity(ctx context.Context, a models.Activity) (models.Activity, error) {
	const query = `
		INSERT INTO activities (id, process_id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + activityColumns
	return scanActivity(r.pool.QueryRow(ctx, query, a.ID, a.ProcessID, a.Name, a.Description))
}

func (r *ProcessRepository) GetActivity(ctx context.Context, id string) (models.Activity, error) {
	return scanActivity(r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id))
}

func (r *ProcessRepository) ListActivities(ctx context.Context, processID string) ([]models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE ($1 = '' OR process_id = $1) ORDER BY name`
	rows, err := r.pool.Query(ctx, query, processID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *ProcessRepository) UpdateActivity(ctx context.Context, id string, patch models.ActivityPatch) (models.Activity, error) {
	const query = `
		UPDATE activities
		SET name = COALESCE($2, name), description = COALESCE($3, description), updated_at = NOW()
		WHERE id = $1
		RETURNING ` + activityColumns
	return scanActivity(r.pool.QueryRow(ctx, query, id, patch.Name, patch.Description))
}

func (r *ProcessRepository) DeleteActivity(ctx context.Context, id string) error {
	return execOne(ctx, r.pool, `DELETE FROM activities WHERE id = $1`, id)
}
