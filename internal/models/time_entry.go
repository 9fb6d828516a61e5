package models

import "time"

// Target identifies what a time entry is booked against. Customer must belong
// to Organization and Activity must belong to Process.
type Target struct {
	OrganizationID string
	CustomerID     string
	ProcessID      string
	ActivityID     string
}

// ResolvedTarget is a Target joined with display names.
type ResolvedTarget struct {
	Target
	OrganizationName string
	CustomerName     string
	ProcessName      string
	ActivityName     string
}

type Break struct {
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

func (b Break) Open() bool {
	return b.EndTime == nil
}

type TimeEntry struct {
	ID              string
	UserID          string
	Target          Target
	TaskName        string
	Description     string
	StartTime       time.Time
	EndTime         *time.Time
	DurationMinutes *int
	IsManual        bool
	Breaks          []Break
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Open reports whether the entry is a running timer.
func (e TimeEntry) Open() bool {
	return e.EndTime == nil
}

// OpenBreak returns the index of the running break, or -1.
func (e TimeEntry) OpenBreak() int {
	for i := len(e.Breaks) - 1; i >= 0; i-- {
		if e.Breaks[i].Open() {
			return i
		}
	}
	return -1
}

// Close sets the end time and recomputes the duration.
func (e *TimeEntry) Close(end time.Time) {
	e.EndTime = &end
	d := DurationMinutes(e.StartTime, end)
	e.DurationMinutes = &d
}

// DurationMinutes returns whole minutes between start and end, truncated.
// Breaks are not subtracted.
func DurationMinutes(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}
	return int(end.Sub(start) / time.Minute)
}

// TimeEntryWithTarget is a time entry joined with its target and owner names.
type TimeEntryWithTarget struct {
	TimeEntry
	UserName         string
	OrganizationName string
	CustomerName     string
	ProcessName      string
	ActivityName     string
}

// ProjectName is the label users know a booking target by.
func (e TimeEntryWithTarget) ProjectName() string {
	return e.CustomerName
}

// TimeEntryPatch carries optional edits to a completed entry.
type TimeEntryPatch struct {
	TaskName       *string
	Description    *string
	StartTime      *time.Time
	EndTime        *time.Time
	OrganizationID *string
	CustomerID     *string
	ProcessID      *string
	ActivityID     *string
}

func (p TimeEntryPatch) TouchesTarget() bool {
	return p.OrganizationID != nil || p.CustomerID != nil || p.ProcessID != nil || p.ActivityID != nil
}

// Apply merges the patch into e. Timestamps are merged but the duration is
// left for the caller to recompute after validation.
func (p TimeEntryPatch) Apply(e *TimeEntry) {
	if p.TaskName != nil {
		e.TaskName = *p.TaskName
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.StartTime != nil {
		e.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		end := *p.EndTime
		e.EndTime = &end
	}
	if p.OrganizationID != nil {
		e.Target.OrganizationID = *p.OrganizationID
	}
	if p.CustomerID != nil {
		e.Target.CustomerID = *p.CustomerID
	}
	if p.ProcessID != nil {
		e.Target.ProcessID = *p.ProcessID
	}
	if p.ActivityID != nil {
		e.Target.ActivityID = *p.ActivityID
	}
}

type EntryStatus string

const (
	EntryStatusAll       EntryStatus = "all"
	EntryStatusOpen      EntryStatus = "open"
	EntryStatusCompleted EntryStatus = "completed"
)

// Sortable time entry columns, keyed by their API names.
var TimeEntrySortFields = map[string]string{
	"startTime":       "te.start_time",
	"endTime":         "te.end_time",
	"durationMinutes": "te.duration_minutes",
	"taskName":        "te.task_name",
	"createdAt":       "te.created_at",
}

type TimeEntryFilter struct {
	UserID         string
	OrganizationID string
	CustomerID     string
	ProcessID      string
	ActivityID     string
	From           *time.Time
	To             *time.Time
	Search         string
	Status         EntryStatus
	SortBy         string
	SortDesc       bool
	Page           Page
}

// Normalize applies defaults: all statuses, newest first by start time.
func (f TimeEntryFilter) Normalize() TimeEntryFilter {
	switch f.Status {
	case EntryStatusOpen, EntryStatusCompleted:
	default:
		f.Status = EntryStatusAll
	}
	if _, ok := TimeEntrySortFields[f.SortBy]; !ok {
		f.SortBy = "startTime"
		f.SortDesc = true
	}
	f.Page = NewPage(f.Page.Number, f.Page.Limit)
	return f
}
