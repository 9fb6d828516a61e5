package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleLevel(t *testing.T) {
	assert.Less(t, RoleUser.Level(), RoleManager.Level())
	assert.Less(t, RoleManager.Level(), RoleAdmin.Level())
	assert.Equal(t, 0, Role("owner").Level())
	assert.False(t, Role("").Valid())

	assert.True(t, RoleAdmin.AtLeast(RoleManager))
	assert.True(t, RoleManager.AtLeast(RoleManager))
	assert.False(t, RoleUser.AtLeast(RoleManager))
}

func TestUserLocked(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	until := now.Add(10 * time.Minute)

	assert.False(t, User{}.Locked(now))
	assert.True(t, User{LockUntil: &until}.Locked(now))
	assert.False(t, User{LockUntil: &until}.Locked(until))
}

func TestDurationMinutes(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"one hour", start.Add(time.Hour), 60},
		{"truncates seconds", start.Add(59*time.Minute + 59*time.Second), 59},
		{"under a minute", start.Add(30 * time.Second), 0},
		{"end before start", start.Add(-time.Minute), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DurationMinutes(start, tt.end))
		})
	}
}

func TestTimeEntryCloseIgnoresBreaks(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	breakEnd := start.Add(30 * time.Minute)
	entry := TimeEntry{
		StartTime: start,
		Breaks:    []Break{{StartTime: start.Add(10 * time.Minute), EndTime: &breakEnd}},
	}
	require.True(t, entry.Open())

	entry.Close(start.Add(time.Hour))

	assert.False(t, entry.Open())
	require.NotNil(t, entry.DurationMinutes)
	assert.Equal(t, 60, *entry.DurationMinutes)
}

func TestTimeEntryOpenBreak(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(5 * time.Minute)
	entry := TimeEntry{Breaks: []Break{{StartTime: start, EndTime: &end}}}
	assert.Equal(t, -1, entry.OpenBreak())

	entry.Breaks = append(entry.Breaks, Break{StartTime: start.Add(time.Hour)})
	assert.Equal(t, 1, entry.OpenBreak())
}

func TestTimeEntryPatchApply(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	entry := TimeEntry{TaskName: "old", StartTime: start, EndTime: &end, Target: Target{CustomerID: "c1"}}

	newEnd := start.Add(2 * time.Hour)
	task := "new"
	customer := "c2"
	patch := TimeEntryPatch{TaskName: &task, EndTime: &newEnd, CustomerID: &customer}
	patch.Apply(&entry)

	assert.Equal(t, "new", entry.TaskName)
	assert.Equal(t, newEnd, *entry.EndTime)
	assert.Equal(t, "c2", entry.Target.CustomerID)
	assert.True(t, patch.TouchesTarget())
	assert.False(t, TimeEntryPatch{TaskName: &task}.TouchesTarget())
}

func TestTimeEntryFilterNormalize(t *testing.T) {
	f := TimeEntryFilter{SortBy: "password", Status: "paused"}.Normalize()

	assert.Equal(t, "startTime", f.SortBy)
	assert.True(t, f.SortDesc)
	assert.Equal(t, EntryStatusAll, f.Status)
	assert.Equal(t, NewPage(1, DefaultPageLimit), f.Page)

	f = TimeEntryFilter{SortBy: "durationMinutes", Status: EntryStatusOpen}.Normalize()
	assert.Equal(t, "durationMinutes", f.SortBy)
	assert.False(t, f.SortDesc)
	assert.Equal(t, EntryStatusOpen, f.Status)
}

func TestPagination(t *testing.T) {
	assert.Equal(t, Page{Number: 1, Limit: 20}, NewPage(0, 0))
	assert.Equal(t, Page{Number: 3, Limit: 100}, NewPage(3, 500))
	assert.Equal(t, 40, Page{Number: 3, Limit: 20}.Offset())

	p := NewPagination(Page{Number: 2, Limit: 10}, 25)
	assert.Equal(t, Pagination{CurrentPage: 2, TotalPages: 3, TotalItems: 25, Limit: 10}, p)
	assert.Equal(t, 0, NewPagination(Page{Number: 1, Limit: 10}, 0).TotalPages)
}

func TestWorkingHours(t *testing.T) {
	first := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	assert.Equal(t, 8.5, WorkingHours(first, first.Add(8*time.Hour+30*time.Minute)))
	assert.Equal(t, 0.33, WorkingHours(first, first.Add(20*time.Minute)))
	assert.Equal(t, 0.0, WorkingHours(first, first.Add(-time.Hour)))
}

func TestFormatHours(t *testing.T) {
	assert.Equal(t, "8h 30m", FormatHours(8.5))
	assert.Equal(t, "0h 0m", FormatHours(-2))
	assert.Equal(t, "1h 15m", FormatHours(1.25))
}

func TestTrackerStatus(t *testing.T) {
	var missing *DailyLoginTracker
	assert.Equal(t, DayNotStarted, missing.Status())

	first := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	tracker := &DailyLoginTracker{FirstLoginTime: first}
	assert.Equal(t, DayStarted, tracker.Status())
	assert.Nil(t, tracker.TotalWorkingHours)

	tracker.EndDay(first.Add(9 * time.Hour))
	assert.Equal(t, DayEnded, tracker.Status())
	require.NotNil(t, tracker.TotalWorkingHours)
	assert.Equal(t, 9.0, *tracker.TotalWorkingHours)
}

func TestDayKey(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	late := time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), DayKey(late, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), DayKey(late, berlin))
	assert.Equal(t, DayKey(late, time.UTC), DayKey(late, nil))
}

func TestNewDayHistorySummary(t *testing.T) {
	s := NewDayHistorySummary(5, 4, 30)
	assert.Equal(t, 7.5, s.AverageHoursPerDay)
	assert.Equal(t, 5, s.TotalDays)

	empty := NewDayHistorySummary(2, 0, 0)
	assert.Equal(t, 0.0, empty.AverageHoursPerDay)
}
