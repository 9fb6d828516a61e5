package service

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/models"
)

func (f *fixture) loginAt(t *testing.T, at time.Time) FirstLoginResult {
	t.Helper()
	f.clock.Set(at)
	res, err := f.daily.TrackFirstLogin(f.ctx, FirstLoginInput{UserID: f.user.ID, LoginTime: at, IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	return res
}

func TestTrackFirstLoginKeepsEarliest(t *testing.T) {
	f := newFixture(t)

	first := f.loginAt(t, baseTime)
	assert.True(t, first.IsFirstLogin)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), first.Tracker.LoginDate)

	again := f.loginAt(t, baseTime.Add(4*time.Hour))
	assert.False(t, again.IsFirstLogin)
	assert.Equal(t, first.Tracker.ID, again.Tracker.ID)
	assert.Equal(t, baseTime, again.Tracker.FirstLoginTime)

	nextDay := f.loginAt(t, baseTime.Add(24*time.Hour))
	assert.True(t, nextDay.IsFirstLogin)
}

func TestTrackFirstLoginUsesTrackingTimezone(t *testing.T) {
	f := newFixture(t)
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	daily := NewDailyLoginService(f.store.DailyLogins(), berlin, nil, zerolog.Nop())
	late := time.Date(2024, 3, 11, 23, 30, 0, 0, time.UTC)
	res, err := daily.TrackFirstLogin(f.ctx, FirstLoginInput{UserID: f.user.ID, LoginTime: late})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), res.Tracker.LoginDate)
}

func TestDayLifecycle(t *testing.T) {
	f := newFixture(t)

	status, err := f.daily.TodayStatus(f.ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DayNotStarted, status.Status)
	assert.Nil(t, status.Tracker)

	_, err = f.daily.EndDay(f.ctx, EndDayInput{UserID: f.user.ID})
	appErr := requireKind(t, err, apperr.KindConflict)
	assert.Equal(t, "No login recorded for today", appErr.Message)

	f.loginAt(t, baseTime)
	status, err = f.daily.TodayStatus(f.ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DayStarted, status.Status)
	require.NotNil(t, status.Tracker)
	assert.Nil(t, status.Tracker.TotalWorkingHours)

	f.clock.Set(baseTime.Add(8*time.Hour + 30*time.Minute))
	ended, err := f.daily.EndDay(f.ctx, EndDayInput{UserID: f.user.ID, Notes: ptr("  wrapped up  ")})
	require.NoError(t, err)
	assert.False(t, ended.AlreadyEnded)
	require.NotNil(t, ended.Tracker.TotalWorkingHours)
	assert.Equal(t, 8.5, *ended.Tracker.TotalWorkingHours)
	assert.Equal(t, "wrapped up", ended.Tracker.Notes)

	f.clock.Advance(time.Hour)
	again, err := f.daily.EndDay(f.ctx, EndDayInput{UserID: f.user.ID, Notes: ptr("late note")})
	require.NoError(t, err)
	assert.True(t, again.AlreadyEnded)
	assert.Equal(t, *ended.Tracker.DayEndTime, *again.Tracker.DayEndTime)
	assert.Equal(t, "wrapped up", again.Tracker.Notes)

	status, err = f.daily.TodayStatus(f.ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DayEnded, status.Status)
}

func TestDayHistory(t *testing.T) {
	f := newFixture(t)

	days := []struct {
		offset time.Duration
		worked time.Duration
	}{
		{0, 8 * time.Hour},
		{24 * time.Hour, 4 * time.Hour},
		{48 * time.Hour, 0},
	}
	for _, d := range days {
		f.loginAt(t, baseTime.Add(d.offset))
		if d.worked > 0 {
			f.clock.Advance(d.worked)
			_, err := f.daily.EndDay(f.ctx, EndDayInput{UserID: f.user.ID})
			require.NoError(t, err)
		}
	}

	history, err := f.daily.History(f.ctx, HistoryInput{UserID: f.user.ID, Page: models.Page{Number: 1, Limit: 2}})
	require.NoError(t, err)
	require.Len(t, history.Trackers, 2)
	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), history.Trackers[0].LoginDate)
	assert.Nil(t, history.Trackers[0].TotalWorkingHours)
	assert.Equal(t, models.DayHistorySummary{
		TotalDays:          3,
		CompletedDays:      2,
		TotalWorkingHours:  12,
		AverageHoursPerDay: 6,
	}, history.Summary)
	assert.Equal(t, 2, history.Pagination.TotalPages)

	from := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	ranged, err := f.daily.History(f.ctx, HistoryInput{UserID: f.user.ID, From: &from, To: &from})
	require.NoError(t, err)
	require.Len(t, ranged.Trackers, 1)
	assert.Equal(t, 4.0, ranged.Summary.TotalWorkingHours)

	to := from.Add(-24 * time.Hour)
	_, err = f.daily.History(f.ctx, HistoryInput{UserID: f.user.ID, From: &from, To: &to})
	requireKind(t, err, apperr.KindValidation)
}

func TestTeamOverview(t *testing.T) {
	f := newFixture(t)
	f.loginAt(t, baseTime)

	_, _, err := f.daily.TeamOverview(f.ctx, f.user, nil)
	requireKind(t, err, apperr.KindForbidden)

	day, members, err := f.daily.TeamOverview(f.ctx, f.manager, nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), day)
	require.Len(t, members, 3)
	assert.Equal(t, "Ada User", members[0].Name)
	require.NotNil(t, members[0].Tracker)
	assert.Equal(t, baseTime, members[0].Tracker.FirstLoginTime)
	assert.Nil(t, members[1].Tracker)

	yesterday := baseTime.Add(-24 * time.Hour)
	_, members, err = f.daily.TeamOverview(f.ctx, f.root, &yesterday)
	require.NoError(t, err)
	for _, m := range members {
		assert.Nil(t, m.Tracker)
	}
}

func TestTeamOverviewUsesTrackingTimezone(t *testing.T) {
	f := newFixture(t)
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	daily := NewDailyLoginService(f.store.DailyLogins(), berlin, nil, zerolog.Nop())
	late := time.Date(2024, 3, 11, 23, 30, 0, 0, time.UTC)
	_, err = daily.TrackFirstLogin(f.ctx, FirstLoginInput{UserID: f.user.ID, LoginTime: late})
	require.NoError(t, err)

	at := time.Date(2024, 3, 11, 23, 45, 0, 0, time.UTC)
	day, members, err := daily.TeamOverview(f.ctx, f.manager, &at)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC), day)
	require.NotEmpty(t, members)
	assert.Equal(t, "Ada User", members[0].Name)
	require.NotNil(t, members[0].Tracker)
	assert.Equal(t, late, members[0].Tracker.FirstLoginTime)
}
