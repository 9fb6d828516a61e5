package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"timetrack/api/internal/models"
)

type DailyLoginRepository struct {
	pool *pgxpool.Pool
}

func NewDailyLoginRepository(pool *pgxpool.Pool) *DailyLoginRepository {
	return &DailyLoginRepository{pool: pool}
}

const trackerColumns = `
	id, user_id, login_date, first_login_time, day_end_time, ip_address, user_agent,
	location, notes, total_working_hours::float8, created_at, updated_at
`

func trackerDest(t *models.DailyLoginTracker) []any {
	return []any{
		&t.ID,
		&t.UserID,
		&t.LoginDate,
		&t.FirstLoginTime,
		&t.DayEndTime,
		&t.IPAddress,
		&t.UserAgent,
		&t.Location,
		&t.Notes,
		&t.TotalWorkingHours,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}

func scanTracker(row pgx.Row) (models.DailyLoginTracker, error) {
	var tracker models.DailyLoginTracker
	if err := row.Scan(trackerDest(&tracker)...); err != nil {
		return models.DailyLoginTracker{}, translate(err)
	}
	return tracker, nil
}

// InsertIfAbsent creates the tracker for (user, date) unless one exists, in
// which case the stored row is returned unchanged with created=false.
func (r *DailyLoginRepository) InsertIfAbsent(ctx context.Context, tracker models.DailyLoginTracker) (models.DailyLoginTracker, bool, error) {
	const query = `
		INSERT INTO daily_login_trackers (
			id, user_id, login_date, first_login_time, ip_address, user_agent, location, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW(), NOW()
		)
		ON CONFLICT (user_id, login_date) DO NOTHING
		RETURNING ` + trackerColumns

	created, err := scanTracker(r.pool.QueryRow(ctx, query,
		tracker.ID,
		tracker.UserID,
		tracker.LoginDate,
		tracker.FirstLoginTime,
		tracker.IPAddress,
		tracker.UserAgent,
		tracker.Location,
	))
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.DailyLoginTracker{}, false, err
	}

	existing, err := r.GetByUserDate(ctx, tracker.UserID, tracker.LoginDate)
	if err != nil {
		return models.DailyLoginTracker{}, false, err
	}
	return existing, false, nil
}

func (r *DailyLoginRepository) GetByUserDate(ctx context.Context, userID string, date time.Time) (models.DailyLoginTracker, error) {
	query := `SELECT ` + trackerColumns + ` FROM daily_login_trackers WHERE user_id = $1 AND login_date = $2`
	return scanTracker(r.pool.QueryRow(ctx, query, userID, date))
}

// EndDay sets the day end once. When the day was already ended the stored
// row is returned with updated=false.
func (r *DailyLoginRepository) EndDay(ctx context.Context, userID string, date time.Time, end time.Time, notes, location *string) (models.DailyLoginTracker, bool, error) {
	const query = `
		UPDATE daily_login_trackers
		SET day_end_time = $3,
		    total_working_hours = GREATEST(0, ROUND((EXTRACT(EPOCH FROM ($3 - first_login_time)) / 3600)::numeric, 2)),
		    notes = COALESCE($4, notes),
		    location = COALESCE($5, location),
		    updated_at = NOW()
		WHERE user_id = $1 AND login_date = $2 AND day_end_time IS NULL
		RETURNING ` + trackerColumns

	updated, err := scanTracker(r.pool.QueryRow(ctx, query, userID, date, end, notes, location))
	if err == nil {
		return updated, true, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return models.DailyLoginTracker{}, false, err
	}

	existing, err := r.GetByUserDate(ctx, userID, date)
	if err != nil {
		return models.DailyLoginTracker{}, false, err
	}
	return existing, false, nil
}

// History pages a user's trackers newest first. The summary covers the
// whole range, not just the page.
func (r *DailyLoginRepository) History(ctx context.Context, userID string, from, to *time.Time, page models.Page) (models.DayHistory, error) {
	const conds = `
		WHERE user_id = $1
		  AND ($2::date IS NULL OR login_date >= $2::date)
		  AND ($3::date IS NULL OR login_date <= $3::date)
	`
	args := []any{userID, from, to}

	var (
		total, completed int
		hours            float64
	)
	summaryQuery := `
		SELECT COUNT(*), COUNT(day_end_time), COALESCE(SUM(total_working_hours), 0)::float8
		FROM daily_login_trackers` + conds
	if err := r.pool.QueryRow(ctx, summaryQuery, args...).Scan(&total, &completed, &hours); err != nil {
		return models.DayHistory{}, err
	}

	page = models.NewPage(page.Number, page.Limit)
	query := `SELECT ` + trackerColumns + ` FROM daily_login_trackers` + conds +
		` ORDER BY login_date DESC LIMIT $4 OFFSET $5`
	rows, err := r.pool.Query(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return models.DayHistory{}, err
	}
	defer rows.Close()

	trackers := []models.DailyLoginTracker{}
	for rows.Next() {
		tracker, err := scanTracker(rows)
		if err != nil {
			return models.DayHistory{}, err
		}
		trackers = append(trackers, tracker)
	}
	if err := rows.Err(); err != nil {
		return models.DayHistory{}, err
	}

	return models.DayHistory{
		Trackers:   trackers,
		Summary:    models.NewDayHistorySummary(total, completed, hours),
		Pagination: models.NewPagination(page, total),
	}, nil
}

// TeamOverview lists every active user with their tracker for date, if any.
func (r *DailyLoginRepository) TeamOverview(ctx context.Context, date time.Time) ([]models.TeamMemberDay, error) {
	const query = `
		SELECT u.id, u.name, u.email, u.role,
		       t.id, t.login_date, t.first_login_time, t.day_end_time, t.ip_address, t.user_agent,
		       t.location, t.notes, t.total_working_hours::float8, t.created_at, t.updated_at
		FROM users u
		LEFT JOIN daily_login_trackers t ON t.user_id = u.id AND t.login_date = $1
		WHERE u.is_active
		ORDER BY u.name, u.id
	`
	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.TeamMemberDay
	for rows.Next() {
		var (
			member     models.TeamMemberDay
			trackerID  *string
			loginDate  *time.Time
			firstLogin *time.Time
			ip, ua     *string
			loc, notes *string
			created    *time.Time
			updated    *time.Time
			tracker    models.DailyLoginTracker
		)
		if err := rows.Scan(
			&member.UserID, &member.Name, &member.Email, &member.Role,
			&trackerID, &loginDate, &firstLogin, &tracker.DayEndTime, &ip, &ua,
			&loc, &notes, &tracker.TotalWorkingHours, &created, &updated,
		); err != nil {
			return nil, err
		}
		if trackerID != nil {
			tracker.ID = *trackerID
			tracker.UserID = member.UserID
			tracker.LoginDate = *loginDate
			tracker.FirstLoginTime = *firstLogin
			tracker.IPAddress = deref(ip)
			tracker.UserAgent = deref(ua)
			tracker.Location = deref(loc)
			tracker.Notes = deref(notes)
			tracker.CreatedAt = *created
			tracker.UpdatedAt = *updated
			member.Tracker = &tracker
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
