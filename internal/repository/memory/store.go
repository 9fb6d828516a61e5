// Package memory is an in-process gateway with the same invariants as the
// Postgres repositories: unique keys, one open time entry per user and one
// login tracker per user and date. It backs the service and handler tests.
package memory

import (
	"slices"
	"sync"

	"timetrack/api/internal/models"
)

type memberKey struct {
	userID string
	orgID  string
}

type trackerKey struct {
	userID string
	date   string
}

type Store struct {
	mu sync.Mutex

	users      map[string]models.User
	sessions   map[string]models.Session
	orgs       map[string]models.Organization
	members    map[memberKey]models.UserOrganization
	customers  map[string]models.Customer
	processes  map[string]models.Process
	activities map[string]models.Activity
	entries    map[string]models.TimeEntry
	trackers   map[trackerKey]models.DailyLoginTracker
}

func New() *Store {
	return &Store{
		users:      make(map[string]models.User),
		sessions:   make(map[string]models.Session),
		orgs:       make(map[string]models.Organization),
		members:    make(map[memberKey]models.UserOrganization),
		customers:  make(map[string]models.Customer),
		processes:  make(map[string]models.Process),
		activities: make(map[string]models.Activity),
		entries:    make(map[string]models.TimeEntry),
		trackers:   make(map[trackerKey]models.DailyLoginTracker),
	}
}

func (s *Store) Users() *Users                 { return &Users{s: s} }
func (s *Store) Sessions() *Sessions           { return &Sessions{s: s} }
func (s *Store) Organizations() *Organizations { return &Organizations{s: s} }
func (s *Store) Customers() *Customers         { return &Customers{s: s} }
func (s *Store) Processes() *Processes         { return &Processes{s: s} }
func (s *Store) TimeEntries() *TimeEntries     { return &TimeEntries{s: s} }
func (s *Store) DailyLogins() *DailyLogins     { return &DailyLogins{s: s} }

func cloneEntry(e models.TimeEntry) models.TimeEntry {
	e.Breaks = slices.Clone(e.Breaks)
	if e.EndTime != nil {
		end := *e.EndTime
		e.EndTime = &end
	}
	if e.DurationMinutes != nil {
		d := *e.DurationMinutes
		e.DurationMinutes = &d
	}
	return e
}

func cloneUser(u models.User) models.User {
	u.PasswordHash = slices.Clone(u.PasswordHash)
	if u.LockUntil != nil {
		t := *u.LockUntil
		u.LockUntil = &t
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		u.LastLogin = &t
	}
	return u
}

func cloneTracker(t models.DailyLoginTracker) models.DailyLoginTracker {
	if t.DayEndTime != nil {
		end := *t.DayEndTime
		t.DayEndTime = &end
	}
	if t.TotalWorkingHours != nil {
		h := *t.TotalWorkingHours
		t.TotalWorkingHours = &h
	}
	return t
}

func page[T any](items []T, p models.Page) []T {
	p = models.NewPage(p.Number, p.Limit)
	start := p.Offset()
	if start >= len(items) {
		return []T{}
	}
	end := min(start+p.Limit, len(items))
	return items[start:end]
}
