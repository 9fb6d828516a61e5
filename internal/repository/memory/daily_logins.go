package memory

import (
	"cmp"
	"context"
	"slices"
	"time"

	"timetrack/api/internal/models"
	"timetrack/api/internal/repository"
)

type DailyLogins struct {
	s *Store
}

func keyFor(userID string, date time.Time) trackerKey {
	return trackerKey{userID: userID, date: date.Format(models.DateLayout)}
}

func (r *DailyLogins) InsertIfAbsent(_ context.Context, tracker models.DailyLoginTracker) (models.DailyLoginTracker, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := keyFor(tracker.UserID, tracker.LoginDate)
	if existing, ok := r.s.trackers[key]; ok {
		return cloneTracker(existing), false, nil
	}
	if _, ok := r.s.users[tracker.UserID]; !ok {
		return models.DailyLoginTracker{}, false, repository.ErrInUse
	}
	tracker.DayEndTime = nil
	tracker.TotalWorkingHours = nil
	now := time.Now().UTC()
	tracker.CreatedAt, tracker.UpdatedAt = now, now
	r.s.trackers[key] = tracker
	return cloneTracker(tracker), true, nil
}

func (r *DailyLogins) GetByUserDate(_ context.Context, userID string, date time.Time) (models.DailyLoginTracker, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tracker, ok := r.s.trackers[keyFor(userID, date)]
	if !ok {
		return models.DailyLoginTracker{}, repository.ErrNotFound
	}
	return cloneTracker(tracker), nil
}

func (r *DailyLogins) EndDay(_ context.Context, userID string, date time.Time, end time.Time, notes, location *string) (models.DailyLoginTracker, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := keyFor(userID, date)
	tracker, ok := r.s.trackers[key]
	if !ok {
		return models.DailyLoginTracker{}, false, repository.ErrNotFound
	}
	if tracker.DayEndTime != nil {
		return cloneTracker(tracker), false, nil
	}
	tracker.EndDay(end)
	if notes != nil {
		tracker.Notes = *notes
	}
	if location != nil {
		tracker.Location = *location
	}
	tracker.UpdatedAt = time.Now().UTC()
	r.s.trackers[key] = tracker
	return cloneTracker(tracker), true, nil
}

func (r *DailyLogins) History(_ context.Context, userID string, from, to *time.Time, p models.Page) (models.DayHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var (
		matched   []models.DailyLoginTracker
		completed int
		hours     float64
	)
	for key, tracker := range r.s.trackers {
		if key.userID != userID {
			continue
		}
		if from != nil && tracker.LoginDate.Before(models.DayKey(*from, time.UTC)) {
			continue
		}
		if to != nil && tracker.LoginDate.After(models.DayKey(*to, time.UTC)) {
			continue
		}
		if tracker.DayEndTime != nil {
			completed++
		}
		if tracker.TotalWorkingHours != nil {
			hours += *tracker.TotalWorkingHours
		}
		matched = append(matched, cloneTracker(tracker))
	}
	slices.SortFunc(matched, func(a, b models.DailyLoginTracker) int {
		return b.LoginDate.Compare(a.LoginDate)
	})

	p = models.NewPage(p.Number, p.Limit)
	return models.DayHistory{
		Trackers:   page(matched, p),
		Summary:    models.NewDayHistorySummary(len(matched), completed, hours),
		Pagination: models.NewPagination(p, len(matched)),
	}, nil
}

func (r *DailyLogins) TeamOverview(_ context.Context, date time.Time) ([]models.TeamMemberDay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var members []models.TeamMemberDay
	for _, user := range r.s.users {
		if !user.IsActive {
			continue
		}
		member := models.TeamMemberDay{
			UserID: user.ID,
			Name:   user.Name,
			Email:  user.Email,
			Role:   user.Role,
		}
		if tracker, ok := r.s.trackers[keyFor(user.ID, date)]; ok {
			t := cloneTracker(tracker)
			member.Tracker = &t
		}
		members = append(members, member)
	}
	slices.SortFunc(members, func(a, b models.TeamMemberDay) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.UserID, b.UserID))
	})
	return members, nil
}
