package service

import (
	"context"
	"time"

	"timetrack/api/internal/models"
)

// The store interfaces are satisfied by the Postgres repositories and by the
// in-memory gateway.

type UserStore interface {
	Create(ctx context.Context, user models.User) error
	GetByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	RecordFailedLogin(ctx context.Context, id string, now time.Time) (int, error)
	Lock(ctx context.Context, id string, until time.Time) error
	Unlock(ctx context.Context, id string) error
	RecordSuccessfulLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id string, hash []byte) error
	UpdateGuarded(ctx context.Context, id string, mutate func(user *models.User, activeAdmins int) error) (models.User, error)
	DeleteGuarded(ctx context.Context, id string, check func(user models.User, activeAdmins int) error) error
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	Rotate(ctx context.Context, id string, currentHash, nextHash []byte, expiresAt time.Time) error
	ListByUser(ctx context.Context, userID string, now time.Time) ([]models.Session, error)
	Touch(ctx context.Context, id string, ip string, userAgent string, at time.Time) error
	DeleteByID(ctx context.Context, id string) error
	DeleteByUserExcept(ctx context.Context, userID string, keepID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type OrganizationStore interface {
	Create(ctx context.Context, org models.Organization) (models.Organization, error)
	GetByID(ctx context.Context, id string) (models.Organization, error)
	List(ctx context.Context) ([]models.Organization, error)
	Update(ctx context.Context, id string, patch models.OrganizationPatch) (models.Organization, error)
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, member models.UserOrganization) (models.UserOrganization, error)
	RemoveMember(ctx context.Context, organizationID, userID string) error
	IsMember(ctx context.Context, organizationID, userID string) (bool, error)
	ListForUser(ctx context.Context, userID string) ([]models.Organization, error)
}

type CustomerStore interface {
	Create(ctx context.Context, customer models.Customer) (models.Customer, error)
	GetByID(ctx context.Context, id string) (models.Customer, error)
	List(ctx context.Context, organizationID string) ([]models.Customer, error)
	Update(ctx context.Context, id string, patch models.CustomerPatch) (models.Customer, error)
	Delete(ctx context.Context, id string) error
}

type ProcessStore interface {
	CreateProcess(ctx context.Context, p models.Process) (models.Process, error)
	GetProcess(ctx context.Context, id string) (models.Process, error)
	ListProcesses(ctx context.Context) ([]models.Process, error)
	UpdateProcess(ctx context.Context, id string, patch models.ProcessPatch) (models.Process, error)
	DeleteProcess(ctx context.Context, id string) error
	CreateActivity(ctx context.Context, a models.Activity) (models.Activity, error)
	GetActivity(ctx context.Context, id string) (models.Activity, error)
	ListActivities(ctx context.Context, processID string) ([]models.Activity, error)
	UpdateActivity(ctx context.Context, id string, patch models.ActivityPatch) (models.Activity, error)
	DeleteActivity(ctx context.Context, id string) error
}

type TimeEntryStore interface {
	Create(ctx context.Context, entry models.TimeEntry) error
	GetByID(ctx context.Context, id string) (models.TimeEntryWithTarget, error)
	GetOpen(ctx context.Context, userID string) (models.TimeEntryWithTarget, error)
	Close(ctx context.Context, id string, end time.Time, duration int, description *string, breaks []models.Break) error
	UpdateBreaks(ctx context.Context, id string, breaks []models.Break) error
	UpdateGuarded(ctx context.Context, id string, mutate func(entry *models.TimeEntry) error) error
	DeleteGuarded(ctx context.Context, id string, check func(entry models.TimeEntry) error) error
	List(ctx context.Context, filter models.TimeEntryFilter) ([]models.TimeEntryWithTarget, int, error)
	Summarize(ctx context.Context, filter models.TimeEntryFilter, loc *time.Location) ([]models.ReportRow, error)
}

type DailyLoginStore interface {
	InsertIfAbsent(ctx context.Context, tracker models.DailyLoginTracker) (models.DailyLoginTracker, bool, error)
	GetByUserDate(ctx context.Context, userID string, date time.Time) (models.DailyLoginTracker, error)
	EndDay(ctx context.Context, userID string, date time.Time, end time.Time, notes, location *string) (models.DailyLoginTracker, bool, error)
	History(ctx context.Context, userID string, from, to *time.Time, page models.Page) (models.DayHistory, error)
	TeamOverview(ctx context.Context, date time.Time) ([]models.TeamMemberDay, error)
}

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
