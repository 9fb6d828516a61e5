package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/models"
	"timetrack/api/internal/repository"
)

func requireKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	appErr := apperr.As(err)
	require.Equal(t, kind, appErr.Kind, "unexpected error: %v", err)
	return appErr
}

func (f *fixture) countEntries(t *testing.T, userID string, status models.EntryStatus) int {
	t.Helper()
	_, total, err := f.store.TimeEntries().List(f.ctx, models.TimeEntryFilter{UserID: userID, Status: status})
	require.NoError(t, err)
	return total
}

func TestStartStopScenario(t *testing.T) {
	f := newFixture(t)

	entry, err := f.timer.Start(f.ctx, f.user, StartInput{Target: f.target, TaskName: "API work"})
	require.NoError(t, err)
	assert.True(t, entry.Open())
	assert.Equal(t, baseTime, entry.StartTime)
	assert.Equal(t, "Globex", entry.CustomerName)
	assert.Equal(t, "Coding", entry.ActivityName)
	assert.Nil(t, entry.DurationMinutes)

	f.clock.Advance(5 * time.Minute)
	_, err = f.timer.Start(f.ctx, f.user, StartInput{Target: f.target, TaskName: "Another"})
	appErr := requireKind(t, err, apperr.KindConflict)
	assert.Equal(t, "You already have an active timer running for project: Globex", appErr.Message)

	f.clock.Set(baseTime.Add(time.Hour))
	stopped, err := f.timer.Stop(f.ctx, f.user, ptr("shipped"))
	require.NoError(t, err)
	require.NotNil(t, stopped.EndTime)
	require.NotNil(t, stopped.DurationMinutes)
	assert.Equal(t, 60, *stopped.DurationMinutes)
	assert.Equal(t, "shipped", stopped.Description)

	active, err := f.timer.Active(f.ctx, f.user)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestStopWithoutOpenEntry(t *testing.T) {
	f := newFixture(t)

	_, err := f.timer.Stop(f.ctx, f.user, nil)
	appErr := requireKind(t, err, apperr.KindConflict)
	assert.Equal(t, "No active timer found", appErr.Message)
	assert.Zero(t, f.countEntries(t, f.user.ID, models.EntryStatusAll))
}

func TestConcurrentStartsLeaveOneOpenEntry(t *testing.T) {
	f := newFixture(t)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.timer.Start(f.ctx, f.user, StartInput{Target: f.target, TaskName: "race"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if apperr.Is(err, apperr.KindConflict) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, conflicts)
	assert.Equal(t, 1, f.countEntries(t, f.user.ID, models.EntryStatusOpen))
}

func TestStartResolvesTarget(t *testing.T) {
	f := newFixture(t)

	otherOrg, err := f.catalog.CreateOrganization(f.ctx, "Initech", "")
	require.NoError(t, err)
	otherCustomer, err := f.catalog.CreateCustomer(f.ctx, models.Customer{OrganizationID: otherOrg.ID, Name: "Umbrella"})
	require.NoError(t, err)
	otherProcess, err := f.catalog.CreateProcess(f.ctx, "Support", "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		actor  models.User
		mutate func(t *models.Target)
		kind   apperr.Kind
	}{
		{"unknown organization", f.user, func(t *models.Target) { t.OrganizationID = "missing" }, apperr.KindNotFound},
		{"customer of another organization", f.user, func(t *models.Target) { t.CustomerID = otherCustomer.ID }, apperr.KindNotFound},
		{"activity of another process", f.user, func(t *models.Target) { t.ProcessID = otherProcess.ID }, apperr.KindNotFound},
		{"unknown activity", f.user, func(t *models.Target) { t.ActivityID = "missing" }, apperr.KindNotFound},
		{"missing reference", f.user, func(t *models.Target) { t.CustomerID = "" }, apperr.KindValidation},
		{"not a member", f.user, func(t *models.Target) {
			t.OrganizationID = otherOrg.ID
			t.CustomerID = otherCustomer.ID
		}, apperr.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := f.target
			tt.mutate(&target)
			_, err := f.timer.Start(f.ctx, tt.actor, StartInput{Target: target, TaskName: "x"})
			requireKind(t, err, tt.kind)
		})
	}
	assert.Zero(t, f.countEntries(t, f.user.ID, models.EntryStatusAll))

	t.Run("admins bypass membership", func(t *testing.T) {
		target := f.target
		target.OrganizationID = otherOrg.ID
		target.CustomerID = otherCustomer.ID
		_, err := f.timer.Start(f.ctx, f.root, StartInput{Target: target, TaskName: "audit"})
		require.NoError(t, err)
	})
}

// vanishingTargets reports a foreign key violation on insert, as the
// database does when a target row is deleted after it was resolved.
type vanishingTargets struct {
	TimeEntryStore
}

func (vanishingTargets) Create(context.Context, models.TimeEntry) error {
	return repository.ErrInUse
}

func TestCreateWithRemovedTarget(t *testing.T) {
	f := newFixture(t)
	timer := NewTimerService(vanishingTargets{f.store.TimeEntries()},
		f.store.Organizations(), f.store.Customers(), f.store.Processes(), nil, zerolog.Nop()).WithClock(f.clock.Now)

	_, err := timer.Start(f.ctx, f.user, StartInput{Target: f.target, TaskName: "x"})
	appErr := requireKind(t, err, apperr.KindNotFound)
	assert.Equal(t, "Time entry target not found", appErr.Message)

	start := baseTime.Add(-time.Hour)
	_, err = timer.CreateManual(f.ctx, f.user, ManualInput{
		Target: f.target, TaskName: "x", StartTime: start, EndTime: start.Add(time.Minute),
	})
	appErr = requireKind(t, err, apperr.KindNotFound)
	assert.Equal(t, "Time entry target not found", appErr.Message)
}

func TestCreateManual(t *testing.T) {
	f := newFixture(t)
	start := baseTime.Add(-3 * time.Hour)

	t.Run("end not after start", func(t *testing.T) {
		for _, end := range []time.Time{start, start.Add(-time.Minute)} {
			_, err := f.timer.CreateManual(f.ctx, f.user, ManualInput{
				Target: f.target, TaskName: "meeting", StartTime: start, EndTime: end,
			})
			appErr := requireKind(t, err, apperr.KindValidation)
			assert.Equal(t, "endTime", appErr.Fields[0].Field)
		}
		assert.Zero(t, f.countEntries(t, f.user.ID, models.EntryStatusAll))
	})

	t.Run("start in the future", func(t *testing.T) {
		_, err := f.timer.CreateManual(f.ctx, f.user, ManualInput{
			Target: f.target, TaskName: "later", StartTime: baseTime.Add(time.Hour), EndTime: baseTime.Add(2 * time.Hour),
		})
		requireKind(t, err, apperr.KindValidation)
	})

	t.Run("duration truncates to whole minutes", func(t *testing.T) {
		entry, err := f.timer.CreateManual(f.ctx, f.user, ManualInput{
			Target:    f.target,
			TaskName:  "meeting",
			StartTime: start,
			EndTime:   start.Add(90*time.Minute + 59*time.Second),
		})
		require.NoError(t, err)
		assert.True(t, entry.IsManual)
		require.NotNil(t, entry.DurationMinutes)
		assert.Equal(t, 90, *entry.DurationMinutes)
	})

	t.Run("allowed while a timer runs", func(t *testing.T) {
		_, err := f.timer.Start(f.ctx, f.user, StartInput{Target: f.target, TaskName: "live"})
		require.NoError(t, err)
		_, err = f.timer.CreateManual(f.ctx, f.user, ManualInput{
			Target: f.target, TaskName: "backfill", StartTime: start, EndTime: start.Add(time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, f.countEntries(t, f.user.ID, models.EntryStatusOpen))
	})
}

func TestUpdateAndDeleteGuards(t *testing.T) {
	f := newFixture(t)

	open, err := f.timer.Start(f.ctx, f.user, StartInput{Target: f.target, TaskName: "running"})
	require.NoError(t, err)

	_, err = f.timer.Update(f.ctx, f.user, open.ID, models.TimeEntryPatch{TaskName: ptr("renamed")})
	requireKind(t, err, apperr.KindConflict)
	err = f.timer.Delete(f.ctx, f.user, open.ID)
	requireKind(t, err, apperr.KindConflict)

	f.clock.Advance(30 * time.Minute)
	closed, err := f.timer.Stop(f.ctx, f.user, nil)
	require.NoError(t, err)

	t.Run("other users cannot see the entry", func(t *testing.T) {
		_, err := f.timer.Update(f.ctx, f.manager, closed.ID, models.TimeEntryPatch{TaskName: ptr("mine")})
		requireKind(t, err, apperr.KindNotFound)
		requireKind(t, f.timer.Delete(f.ctx, f.manager, closed.ID), apperr.KindNotFound)
	})

	t.Run("timestamps recompute duration", func(t *testing.T) {
		newEnd := closed.StartTime.Add(2*time.Hour + 30*time.Second)
		updated, err := f.timer.Update(f.ctx, f.user, closed.ID, models.TimeEntryPatch{
			TaskName: ptr("renamed"),
			EndTime:  &newEnd,
		})
		require.NoError(t, err)
		assert.Equal(t, "renamed", updated.TaskName)
		require.NotNil(t, updated.DurationMinutes)
		assert.Equal(t, 120, *updated.DurationMinutes)
	})

	t.Run("start cannot move into the future", func(t *testing.T) {
		future := f.clock.Now().Add(time.Hour)
		_, err := f.timer.Update(f.ctx, f.user, closed.ID, models.TimeEntryPatch{StartTime: &future})
		appErr := requireKind(t, err, apperr.KindValidation)
		require.Len(t, appErr.Fields, 1)
		assert.Equal(t, "startTime", appErr.Fields[0].Field)

		stored, err := f.store.TimeEntries().GetByID(f.ctx, closed.ID)
		require.NoError(t, err)
		assert.Equal(t, closed.StartTime, stored.StartTime)
	})

	t.Run("ordering is revalidated", func(t *testing.T) {
		newStart := closed.StartTime.Add(5 * time.Hour)
		_, err := f.timer.Update(f.ctx, f.user, closed.ID, models.TimeEntryPatch{StartTime: &newStart})
		requireKind(t, err, apperr.KindValidation)

		stored, err := f.store.TimeEntries().GetByID(f.ctx, closed.ID)
		require.NoError(t, err)
		assert.Equal(t, closed.StartTime, stored.StartTime)
	})

	t.Run("target changes are resolved", func(t *testing.T) {
		_, err := f.timer.Update(f.ctx, f.user, closed.ID, models.TimeEntryPatch{ActivityID: ptr("missing")})
		requireKind(t, err, apperr.KindNotFound)
	})

	t.Run("delete completed entry", func(t *testing.T) {
		require.NoError(t, f.timer.Delete(f.ctx, f.user, closed.ID))
		requireKind(t, f.timer.Delete(f.ctx, f.user, closed.ID), apperr.KindNotFound)
	})
}

func TestListVisibilityAndFilters(t *testing.T) {
	f := newFixture(t)

	for i, name := range []string{"alpha review", "beta build", "gamma review"} {
		start := baseTime.Add(-time.Duration(10-i) * time.Hour)
		_, err := f.timer.CreateManual(f.ctx, f.user, ManualInput{
			Target: f.target, TaskName: name, StartTime: start, EndTime: start.Add(time.Duration(i+1) * 15 * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := f.timer.Start(f.ctx, f.user, StartInput{Target: f.target, TaskName: "delta"})
	require.NoError(t, err)

	t.Run("users cannot list others", func(t *testing.T) {
		_, _, err := f.timer.List(f.ctx, f.manager, f.user.ID, models.TimeEntryFilter{})
		require.NoError(t, err)
		_, _, err = f.timer.List(f.ctx, f.user, f.manager.ID, models.TimeEntryFilter{})
		requireKind(t, err, apperr.KindForbidden)
	})

	t.Run("defaults newest first", func(t *testing.T) {
		entries, page, err := f.timer.List(f.ctx, f.user, "", models.TimeEntryFilter{})
		require.NoError(t, err)
		require.Len(t, entries, 4)
		assert.Equal(t, "delta", entries[0].TaskName)
		assert.Equal(t, models.Pagination{CurrentPage: 1, TotalPages: 1, TotalItems: 4, Limit: 20}, page)
	})

	t.Run("search and status", func(t *testing.T) {
		entries, _, err := f.timer.List(f.ctx, f.user, "", models.TimeEntryFilter{
			Search: "REVIEW",
			Status: models.EntryStatusCompleted,
			SortBy: "taskName",
		})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "alpha review", entries[0].TaskName)

		open, _, err := f.timer.List(f.ctx, f.user, "", models.TimeEntryFilter{Status: models.EntryStatusOpen})
		require.NoError(t, err)
		require.Len(t, open, 1)
	})

	t.Run("duration sort puts open entries last", func(t *testing.T) {
		entries, _, err := f.timer.List(f.ctx, f.user, "", models.TimeEntryFilter{SortBy: "durationMinutes", SortDesc: true})
		require.NoError(t, err)
		require.Len(t, entries, 4)
		assert.Equal(t, 45, *entries[0].DurationMinutes)
		assert.Nil(t, entries[3].DurationMinutes)
	})

	t.Run("pagination", func(t *testing.T) {
		entries, page, err := f.timer.List(f.ctx, f.user, "", models.TimeEntryFilter{Page: models.Page{Number: 2, Limit: 3}})
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		assert.Equal(t, 2, page.TotalPages)
	})

	t.Run("inverted range", func(t *testing.T) {
		from, to := baseTime, baseTime.Add(-time.Hour)
		_, _, err := f.timer.List(f.ctx, f.user, "", models.TimeEntryFilter{From: &from, To: &to})
		requireKind(t, err, apperr.KindValidation)
	})
}

func TestBreaksDoNotAffectDuration(t *testing.T) {
	f := newFixture(t)

	_, err := f.timer.StartBreak(f.ctx, f.user, "coffee")
	requireKind(t, err, apperr.KindConflict)

	_, err = f.timer.Start(f.ctx, f.user, StartInput{Target: f.target, TaskName: "focus"})
	require.NoError(t, err)

	_, err = f.timer.EndBreak(f.ctx, f.user)
	requireKind(t, err, apperr.KindConflict)

	f.clock.Advance(20 * time.Minute)
	entry, err := f.timer.StartBreak(f.ctx, f.user, "coffee")
	require.NoError(t, err)
	require.Len(t, entry.Breaks, 1)
	assert.True(t, entry.Breaks[0].Open())

	_, err = f.timer.StartBreak(f.ctx, f.user, "again")
	requireKind(t, err, apperr.KindConflict)

	f.clock.Advance(10 * time.Minute)
	entry, err = f.timer.EndBreak(f.ctx, f.user)
	require.NoError(t, err)
	assert.False(t, entry.Breaks[0].Open())

	f.clock.Advance(5 * time.Minute)
	_, err = f.timer.StartBreak(f.ctx, f.user, "")
	require.NoError(t, err)

	f.clock.Advance(25 * time.Minute)
	stopped, err := f.timer.Stop(f.ctx, f.user, nil)
	require.NoError(t, err)
	require.Len(t, stopped.Breaks, 2)
	assert.False(t, stopped.Breaks[1].Open(), "stop closes a running break")
	assert.Equal(t, 60, *stopped.DurationMinutes)
}
