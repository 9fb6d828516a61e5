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

type TimeEntryRepository struct {
	pool *pgxpool.Pool
}

func NewTimeEntryRepository(pool *pgxpool.Pool) *TimeEntryRepository {
	return &TimeEntryRepository{pool: pool}
}

const timeEntryColumns = `
	te.id, te.user_id, te.organization_id, te.customer_id, te.process_id, te.activity_id,
	te.task_name, te.description, te.start_time, te.end_time, te.duration_minutes,
	te.is_manual, te.breaks, te.created_at, te.updated_at
`

const timeEntryJoins = `
	FROM time_entries te
	JOIN users u ON u.id = te.user_id
	JOIN organizations o ON o.id = te.organization_id
	JOIN customers c ON c.id = te.customer_id
	JOIN processes p ON p.id = te.process_id
	JOIN activities a ON a.id = te.activity_id
`

const timeEntryWithTargetSelect = `SELECT ` + timeEntryColumns + `,
	u.name, o.name, c.name, p.name, a.name
` + timeEntryJoins

func timeEntryDest(e *models.TimeEntry) []any {
	return []any{
		&e.ID,
		&e.UserID,
		&e.Target.OrganizationID,
		&e.Target.CustomerID,
		&e.Target.ProcessID,
		&e.Target.ActivityID,
		&e.TaskName,
		&e.Description,
		&e.StartTime,
		&e.EndTime,
		&e.DurationMinutes,
		&e.IsManual,
		&e.Breaks,
		&e.CreatedAt,
		&e.UpdatedAt,
	}
}

func scanTimeEntry(row pgx.Row) (models.TimeEntry, error) {
	var entry models.TimeEntry
	if err := row.Scan(timeEntryDest(&entry)...); err != nil {
		return models.TimeEntry{}, translate(err)
	}
	return entry, nil
}

func scanTimeEntryWithTarget(row pgx.Row) (models.TimeEntryWithTarget, error) {
	var view models.TimeEntryWithTarget
	dest := append(timeEntryDest(&view.TimeEntry),
		&view.UserName,
		&view.OrganizationName,
		&view.CustomerName,
		&view.ProcessName,
		&view.ActivityName,
	)
	if err := row.Scan(dest...); err != nil {
		return models.TimeEntryWithTarget{}, translate(err)
	}
	return view, nil
}

// Create inserts the entry. A second open entry for the same user fails with
// ErrActiveEntryExists.
func (r *TimeEntryRepository) Create(ctx context.Context, entry models.TimeEntry) error {
	const query = `
		INSERT INTO time_entries (
			id, user_id, organization_id, customer_id, process_id, activity_id,
			task_name, description, start_time, end_time, duration_minutes,
			is_manual, breaks, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW(), NOW()
		)
	`

	breaks := entry.Breaks
	if breaks == nil {
		breaks = []models.Break{}
	}
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Target.OrganizationID,
		entry.Target.CustomerID,
		entry.Target.ProcessID,
		entry.Target.ActivityID,
		entry.TaskName,
		entry.Description,
		entry.StartTime,
		entry.EndTime,
		entry.DurationMinutes,
		entry.IsManual,
		breaks,
	)
	return translate(err)
}

func (r *TimeEntryRepository) GetByID(ctx context.Context, id string) (models.TimeEntryWithTarget, error) {
	return scanTimeEntryWithTarget(r.pool.QueryRow(ctx, timeEntryWithTargetSelect+` WHERE te.id = $1`, id))
}

// GetOpen returns the user's running timer or ErrNotFound.
func (r *TimeEntryRepository) GetOpen(ctx context.Context, userID string) (models.TimeEntryWithTarget, error) {
	query := timeEntryWithTargetSelect + ` WHERE te.user_id = $1 AND te.end_time IS NULL`
	return scanTimeEntryWithTarget(r.pool.QueryRow(ctx, query, userID))
}

// Close stops an open entry. It matches only while end_time is still null,
// so a concurrent stop observes ErrNotFound.
func (r *TimeEntryRepository) Close(ctx context.Context, id string, end time.Time, duration int, description *string, breaks []models.Break) error {
	const query = `
		UPDATE time_entries
		SET end_time = $2,
		    duration_minutes = $3,
		    description = COALESCE($4, description),
		    breaks = $5,
		    updated_at = NOW()
		WHERE id = $1 AND end_time IS NULL
	`
	if breaks == nil {
		breaks = []models.Break{}
	}
	return execOne(ctx, r.pool, query, id, end, duration, description, breaks)
}

// UpdateBreaks replaces the break list of an open entry.
func (r *TimeEntryRepository) UpdateBreaks(ctx context.Context, id string, breaks []models.Break) error {
	const query = `
		UPDATE time_entries
		SET breaks = $2, updated_at = NOW()
		WHERE id = $1 AND end_time IS NULL
	`
	return execOne(ctx, r.pool, query, id, breaks)
}

// UpdateGuarded locks the entry, lets mutate validate and edit it, then
// writes back the editable columns.
func (r *TimeEntryRepository) UpdateGuarded(ctx context.Context, id string, mutate func(entry *models.TimeEntry) error) error {
	err := database.WithTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		entry, err := scanTimeEntry(tx.QueryRow(ctx,
			`SELECT `+timeEntryColumns+` FROM time_entries te WHERE te.id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := mutate(&entry); err != nil {
			return err
		}

		const query = `
			UPDATE time_entries
			SET organization_id = $2, customer_id = $3, process_id = $4, activity_id = $5,
			    task_name = $6, description = $7, start_time = $8, end_time = $9,
			    duration_minutes = $10, updated_at = NOW()
			WHERE id = $1
		`
		_, err = tx.Exec(ctx, query,
			entry.ID,
			entry.Target.OrganizationID,
			entry.Target.CustomerID,
			entry.Target.ProcessID,
			entry.Target.ActivityID,
			entry.TaskName,
			entry.Description,
			entry.StartTime,
			entry.EndTime,
			entry.DurationMinutes,
		)
		return err
	})
	return translate(err)
}

// DeleteGuarded removes the entry once check approves the locked row.
func (r *TimeEntryRepository) DeleteGuarded(ctx context.Context, id string, check func(entry models.TimeEntry) error) error {
	err := database.WithTx(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		entry, err := scanTimeEntry(tx.QueryRow(ctx,
			`SELECT `+timeEntryColumns+` FROM time_entries te WHERE te.id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}
		if err := check(entry); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `DELETE FROM time_entries WHERE id = $1`, id)
		return err
	})
	return translate(err)
}

func (r *TimeEntryRepository) List(ctx context.Context, filter models.TimeEntryFilter) ([]models.TimeEntryWithTarget, int, error) {
	filter = filter.Normalize()
	where, args := entryConditions(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM time_entries te`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	args = append(args, filter.Page.Limit, filter.Page.Offset())
	query := fmt.Sprintf(`%s%s ORDER BY %s %s NULLS LAST, te.id %s LIMIT $%d OFFSET $%d`,
		timeEntryWithTargetSelect, where,
		models.TimeEntrySortFields[filter.SortBy], direction, direction,
		len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []models.TimeEntryWithTarget
	for rows.Next() {
		entry, err := scanTimeEntryWithTarget(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

// Summarize aggregates completed entries matching filter by calendar day in
// loc, customer and activity.
func (r *TimeEntryRepository) Summarize(ctx context.Context, filter models.TimeEntryFilter, loc *time.Location) ([]models.ReportRow, error) {
	filter.Status = models.EntryStatusCompleted
	where, args := entryConditions(filter)
	if loc == nil {
		loc = time.UTC
	}
	args = append(args, loc.String())

	query := fmt.Sprintf(`
		SELECT (te.start_time AT TIME ZONE $%d)::date AS day,
		       o.id, o.name, c.id, c.name, a.id, a.name,
		       COUNT(*), COALESCE(SUM(te.duration_minutes), 0)
		%s%s
		GROUP BY day, o.id, o.name, c.id, c.name, a.id, a.name
		ORDER BY day, o.name, c.name, a.name
	`, len(args), timeEntryJoins, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ReportRow
	for rows.Next() {
		var row models.ReportRow
		if err := rows.Scan(
			&row.Day,
			&row.OrganizationID,
			&row.OrganizationName,
			&row.CustomerID,
			&row.CustomerName,
			&row.ActivityID,
			&row.ActivityName,
			&row.Entries,
			&row.TotalMinutes,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// entryConditions renders the filter as a WHERE clause over alias te.
func entryConditions(filter models.TimeEntryFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(format string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(format, len(args)))
	}

	if filter.UserID != "" {
		add("te.user_id = $%d", filter.UserID)
	}
	if filter.OrganizationID != "" {
		add("te.organization_id = $%d", filter.OrganizationID)
	}
	if filter.CustomerID != "" {
		add("te.customer_id = $%d", filter.CustomerID)
	}
	if filter.ProcessID != "" {
		add("te.process_id = $%d", filter.ProcessID)
	}
	if filter.ActivityID != "" {
		add("te.activity_id = $%d", filter.ActivityID)
	}
	if filter.From != nil {
		add("te.start_time >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("te.start_time <= $%d", *filter.To)
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(te.task_name ILIKE $%d OR te.description ILIKE $%d)", len(args), len(args)))
	}
	switch filter.Status {
	case models.EntryStatusOpen:
		conds = append(conds, "te.end_time IS NULL")
	case models.EntryStatusCompleted:
		conds = append(conds, "te.end_time IS NOT NULL")
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
