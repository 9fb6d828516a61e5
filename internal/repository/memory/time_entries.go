package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"timetrack/api/internal/models"
	"timetrack/api/internal/repository"
)

type TimeEntries struct {
	s *Store
}

func (r *TimeEntries) Create(_ context.Context, entry models.TimeEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.entries[entry.ID]; ok {
		return repository.ErrDuplicate
	}
	if entry.Open() {
		for _, existing := range r.s.entries {
			if existing.UserID == entry.UserID && existing.Open() {
				return repository.ErrActiveEntryExists
			}
		}
	}
	if !r.s.targetExists(entry.UserID, entry.Target) {
		return repository.ErrInUse
	}
	if entry.Breaks == nil {
		entry.Breaks = []models.Break{}
	}
	now := time.Now().UTC()
	entry.CreatedAt, entry.UpdatedAt = now, now
	r.s.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (r *TimeEntries) GetByID(_ context.Context, id string) (models.TimeEntryWithTarget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry, ok := r.s.entries[id]
	if !ok {
		return models.TimeEntryWithTarget{}, repository.ErrNotFound
	}
	return r.s.withTarget(entry), nil
}

func (r *TimeEntries) GetOpen(_ context.Context, userID string) (models.TimeEntryWithTarget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, entry := range r.s.entries {
		if entry.UserID == userID && entry.Open() {
			return r.s.withTarget(entry), nil
		}
	}
	return models.TimeEntryWithTarget{}, repository.ErrNotFound
}

func (r *TimeEntries) Close(_ context.Context, id string, end time.Time, duration int, description *string, breaks []models.Break) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry, ok := r.s.entries[id]
	if !ok || !entry.Open() {
		return repository.ErrNotFound
	}
	entry.EndTime = &end
	entry.DurationMinutes = &duration
	if description != nil {
		entry.Description = *description
	}
	if breaks == nil {
		breaks = []models.Break{}
	}
	entry.Breaks = breaks
	entry.UpdatedAt = time.Now().UTC()
	r.s.entries[id] = cloneEntry(entry)
	return nil
}

func (r *TimeEntries) UpdateBreaks(_ context.Context, id string, breaks []models.Break) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry, ok := r.s.entries[id]
	if !ok || !entry.Open() {
		return repository.ErrNotFound
	}
	entry.Breaks = slices.Clone(breaks)
	entry.UpdatedAt = time.Now().UTC()
	r.s.entries[id] = entry
	return nil
}

func (r *TimeEntries) UpdateGuarded(_ context.Context, id string, mutate func(entry *models.TimeEntry) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.entries[id]
	if !ok {
		return repository.ErrNotFound
	}
	entry := cloneEntry(stored)
	if err := mutate(&entry); err != nil {
		return err
	}
	if !r.s.targetExists(entry.UserID, entry.Target) {
		return repository.ErrInUse
	}
	entry.UpdatedAt = time.Now().UTC()
	r.s.entries[id] = cloneEntry(entry)
	return nil
}

func (r *TimeEntries) DeleteGuarded(_ context.Context, id string, check func(entry models.TimeEntry) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry, ok := r.s.entries[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := check(cloneEntry(entry)); err != nil {
		return err
	}
	delete(r.s.entries, id)
	return nil
}

func (r *TimeEntries) List(_ context.Context, filter models.TimeEntryFilter) ([]models.TimeEntryWithTarget, int, error) {
	filter = filter.Normalize()

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := r.s.matchEntries(filter)
	slices.SortFunc(matched, func(a, b models.TimeEntryWithTarget) int {
		// Nulls sort last in either direction.
		if c := cmp.Compare(nullRank(a.TimeEntry, filter.SortBy), nullRank(b.TimeEntry, filter.SortBy)); c != 0 {
			return c
		}
		c := cmp.Or(compareEntries(a.TimeEntry, b.TimeEntry, filter.SortBy), cmp.Compare(a.ID, b.ID))
		if filter.SortDesc {
			c = -c
		}
		return c
	})
	return page(matched, filter.Page), len(matched), nil
}

func (r *TimeEntries) Summarize(_ context.Context, filter models.TimeEntryFilter, loc *time.Location) ([]models.ReportRow, error) {
	filter.Status = models.EntryStatusCompleted
	if loc == nil {
		loc = time.UTC
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	type key struct {
		day        time.Time
		org, cust  string
		activityID string
	}
	buckets := make(map[key]*models.ReportRow)
	for _, entry := range r.s.matchEntries(filter) {
		k := key{
			day:        models.DayKey(entry.StartTime, loc),
			org:        entry.Target.OrganizationID,
			cust:       entry.Target.CustomerID,
			activityID: entry.Target.ActivityID,
		}
		row, ok := buckets[k]
		if !ok {
			row = &models.ReportRow{
				Day:              k.day,
				OrganizationID:   k.org,
				OrganizationName: entry.OrganizationName,
				CustomerID:       k.cust,
				CustomerName:     entry.CustomerName,
				ActivityID:       k.activityID,
				ActivityName:     entry.ActivityName,
			}
			buckets[k] = row
		}
		row.Entries++
		if entry.DurationMinutes != nil {
			row.TotalMinutes += *entry.DurationMinutes
		}
	}

	out := make([]models.ReportRow, 0, len(buckets))
	for _, row := range buckets {
		out = append(out, *row)
	}
	slices.SortFunc(out, func(a, b models.ReportRow) int {
		return cmp.Or(
			a.Day.Compare(b.Day),
			cmp.Compare(a.OrganizationName, b.OrganizationName),
			cmp.Compare(a.CustomerName, b.CustomerName),
			cmp.Compare(a.ActivityName, b.ActivityName),
		)
	})
	return out, nil
}

func (s *Store) matchEntries(filter models.TimeEntryFilter) []models.TimeEntryWithTarget {
	search := strings.ToLower(filter.Search)
	var out []models.TimeEntryWithTarget
	for _, e := range s.entries {
		switch {
		case filter.UserID != "" && e.UserID != filter.UserID,
			filter.OrganizationID != "" && e.Target.OrganizationID != filter.OrganizationID,
			filter.CustomerID != "" && e.Target.CustomerID != filter.CustomerID,
			filter.ProcessID != "" && e.Target.ProcessID != filter.ProcessID,
			filter.ActivityID != "" && e.Target.ActivityID != filter.ActivityID,
			filter.From != nil && e.StartTime.Before(*filter.From),
			filter.To != nil && e.StartTime.After(*filter.To),
			filter.Status == models.EntryStatusOpen && !e.Open(),
			filter.Status == models.EntryStatusCompleted && e.Open():
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.TaskName), search) &&
			!strings.Contains(strings.ToLower(e.Description), search) {
			continue
		}
		out = append(out, s.withTarget(e))
	}
	return out
}

func (s *Store) withTarget(e models.TimeEntry) models.TimeEntryWithTarget {
	return models.TimeEntryWithTarget{
		TimeEntry:        cloneEntry(e),
		UserName:         s.users[e.UserID].Name,
		OrganizationName: s.orgs[e.Target.OrganizationID].Name,
		CustomerName:     s.customers[e.Target.CustomerID].Name,
		ProcessName:      s.processes[e.Target.ProcessID].Name,
		ActivityName:     s.activities[e.Target.ActivityID].Name,
	}
}

func (s *Store) targetExists(userID string, t models.Target) bool {
	_, user := s.users[userID]
	_, org := s.orgs[t.OrganizationID]
	_, customer := s.customers[t.CustomerID]
	_, process := s.processes[t.ProcessID]
	_, activity := s.activities[t.ActivityID]
	return user && org && customer && process && activity
}

func compareEntries(a, b models.TimeEntry, sortBy string) int {
	switch sortBy {
	case "endTime":
		if a.EndTime == nil || b.EndTime == nil {
			return 0
		}
		return a.EndTime.Compare(*b.EndTime)
	case "durationMinutes":
		if a.DurationMinutes == nil || b.DurationMinutes == nil {
			return 0
		}
		return cmp.Compare(*a.DurationMinutes, *b.DurationMinutes)
	case "taskName":
		return cmp.Compare(a.TaskName, b.TaskName)
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return a.StartTime.Compare(b.StartTime)
	}
}

func nullRank(e models.TimeEntry, sortBy string) int {
	switch {
	case sortBy == "endTime" && e.EndTime == nil,
		sortBy == "durationMinutes" && e.DurationMinutes == nil:
		return 1
	}
	return 0
}
