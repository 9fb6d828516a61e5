package models

import (
	"fmt"
	"math"
	"time"
)

const DateLayout = "2006-01-02"

type DayStatus string

const (
	DayNotStarted DayStatus = "not_started"
	DayStarted    DayStatus = "started"
	DayEnded      DayStatus = "ended"
)

type DailyLoginTracker struct {
	ID                string
	UserID            string
	LoginDate         time.Time
	FirstLoginTime    time.Time
	DayEndTime        *time.Time
	IPAddress         string
	UserAgent         string
	Location          string
	Notes             string
	TotalWorkingHours *float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (t *DailyLoginTracker) Status() DayStatus {
	if t == nil {
		return DayNotStarted
	}
	if t.DayEndTime != nil {
		return DayEnded
	}
	return DayStarted
}

// EndDay stamps the end of the day and recomputes the working hours.
func (t *DailyLoginTracker) EndDay(end time.Time) {
	t.DayEndTime = &end
	hours := WorkingHours(t.FirstLoginTime, end)
	t.TotalWorkingHours = &hours
}

// WorkingHours returns the hours between first login and day end rounded to
// two decimals, never negative.
func WorkingHours(first, end time.Time) float64 {
	hours := end.Sub(first).Hours()
	if hours < 0 {
		return 0
	}
	return math.Round(hours*100) / 100
}

// FormatHours renders fractional hours as "8h 30m".
func FormatHours(hours float64) string {
	if hours < 0 {
		hours = 0
	}
	total := int(math.Round(hours * 60))
	return fmt.Sprintf("%dh %dm", total/60, total%60)
}

// DayKey truncates t to its calendar date in loc.
func DayKey(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

type DayHistorySummary struct {
	TotalDays          int     `json:"totalDays"`
	CompletedDays      int     `json:"completedDays"`
	TotalWorkingHours  float64 `json:"totalWorkingHours"`
	AverageHoursPerDay float64 `json:"averageHoursPerDay"`
}

// NewDayHistorySummary averages over completed days only.
func NewDayHistorySummary(totalDays, completedDays int, totalHours float64) DayHistorySummary {
	s := DayHistorySummary{
		TotalDays:         totalDays,
		CompletedDays:     completedDays,
		TotalWorkingHours: math.Round(totalHours*100) / 100,
	}
	if completedDays > 0 {
		s.AverageHoursPerDay = math.Round(totalHours/float64(completedDays)*100) / 100
	}
	return s
}

type DayHistory struct {
	Trackers   []DailyLoginTracker
	Summary    DayHistorySummary
	Pagination Pagination
}

// TeamMemberDay is one active user joined with their tracker for a date.
// Tracker is nil when the user did not log in that day.
type TeamMemberDay struct {
	UserID  string
	Name    string
	Email   string
	Role    Role
	Tracker *DailyLoginTracker
}
