package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/ids"
	"timetrack/api/internal/metrics"
	"timetrack/api/internal/models"
	"timetrack/api/internal/policy"
	"timetrack/api/internal/repository"
)

const msgNoActiveTimer = "No active timer found"

// TimerService runs the per-user time entry lifecycle: at most one open
// entry per user, closed by Stop or created already closed by CreateManual.
type TimerService struct {
	entries   TimeEntryStore
	orgs      OrganizationStore
	customers CustomerStore
	processes ProcessStore
	metrics   *metrics.Metrics
	log       zerolog.Logger
	clock     Clock
}

func NewTimerService(
	entries TimeEntryStore,
	orgs OrganizationStore,
	customers CustomerStore,
	processes ProcessStore,
	m *metrics.Metrics,
	log zerolog.Logger,
) *TimerService {
	return &TimerService{
		entries:   entries,
		orgs:      orgs,
		customers: customers,
		processes: processes,
		metrics:   m,
		log:       log,
	}
}

func (s *TimerService) WithClock(c Clock) *TimerService {
	s.clock = c
	return s
}

type StartInput struct {
	Target      models.Target
	TaskName    string
	Description string
}

func (s *TimerService) Start(ctx context.Context, actor models.User, in StartInput) (models.TimeEntryWithTarget, error) {
	taskName := strings.TrimSpace(in.TaskName)
	if taskName == "" {
		return models.TimeEntryWithTarget{}, apperr.Validation("Validation failed",
			apperr.FieldError{Field: "taskName", Message: "is required"})
	}

	if open, err := s.entries.GetOpen(ctx, actor.ID); err == nil {
		return models.TimeEntryWithTarget{}, activeTimerConflict(open)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return models.TimeEntryWithTarget{}, fmt.Errorf("load open entry: %w", err)
	}

	if _, err := s.resolveTarget(ctx, actor, in.Target); err != nil {
		return models.TimeEntryWithTarget{}, err
	}

	entry := models.TimeEntry{
		ID:          ids.New(),
		UserID:      actor.ID,
		Target:      in.Target,
		TaskName:    taskName,
		Description: strings.TrimSpace(in.Description),
		StartTime:   s.clock.now(),
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrActiveEntryExists) {
			// Lost the race against a concurrent start.
			open, getErr := s.entries.GetOpen(ctx, actor.ID)
			if getErr != nil {
				return models.TimeEntryWithTarget{}, apperr.Conflict("You already have an active timer running")
			}
			return models.TimeEntryWithTarget{}, activeTimerConflict(open)
		}
		return models.TimeEntryWithTarget{}, createEntryError(err)
	}

	s.metrics.TimerEvent("start")
	s.log.Info().Str("user_id", actor.ID).Str("entry_id", entry.ID).Msg("timer started")
	return s.get(ctx, entry.ID)
}

// createEntryError maps an insert failure. A target removed after it was
// resolved shows up as a foreign key violation.
func createEntryError(err error) error {
	if errors.Is(err, repository.ErrInUse) {
		return apperr.NotFound("Time entry target not found")
	}
	return storeError(err, "create time entry", "Time entry")
}

func activeTimerConflict(open models.TimeEntryWithTarget) error {
	return apperr.Conflict("You already have an active timer running for project: " + open.ProjectName())
}

// Stop closes the user's open entry. Without an open entry nothing is written.
func (s *TimerService) Stop(ctx context.Context, actor models.User, description *string) (models.TimeEntryWithTarget, error) {
	open, err := s.entries.GetOpen(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.TimeEntryWithTarget{}, apperr.Conflict(msgNoActiveTimer)
		}
		return models.TimeEntryWithTarget{}, fmt.Errorf("load open entry: %w", err)
	}

	end := s.clock.now()
	if !end.After(open.StartTime) {
		// end_time must be strictly after start_time.
		end = open.StartTime.Add(time.Microsecond)
	}

	breaks := open.Breaks
	if i := open.OpenBreak(); i >= 0 {
		breaks[i].EndTime = &end
	}

	duration := models.DurationMinutes(open.StartTime, end)
	if err := s.entries.Close(ctx, open.ID, end, duration, trimmed(description), breaks); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.TimeEntryWithTarget{}, apperr.Conflict(msgNoActiveTimer)
		}
		return models.TimeEntryWithTarget{}, fmt.Errorf("close time entry: %w", err)
	}

	s.metrics.TimerEvent("stop")
	s.log.Info().
		Str("user_id", actor.ID).
		Str("entry_id", open.ID).
		Int("duration_minutes", duration).
		Msg("timer stopped")
	return s.get(ctx, open.ID)
}

// Active returns the running timer, or nil when the user is idle.
func (s *TimerService) Active(ctx context.Context, actor models.User) (*models.TimeEntryWithTarget, error) {
	open, err := s.entries.GetOpen(ctx, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load open entry: %w", err)
	}
	return &open, nil
}

type ManualInput struct {
	Target      models.Target
	TaskName    string
	Description string
	StartTime   time.Time
	EndTime     time.Time
}

func (s *TimerService) CreateManual(ctx context.Context, actor models.User, in ManualInput) (models.TimeEntryWithTarget, error) {
	var fields []apperr.FieldError
	taskName := strings.TrimSpace(in.TaskName)
	if taskName == "" {
		fields = append(fields, apperr.FieldError{Field: "taskName", Message: "is required"})
	}
	if !in.EndTime.After(in.StartTime) {
		fields = append(fields, apperr.FieldError{Field: "endTime", Message: "must be after startTime"})
	}
	if in.StartTime.After(s.clock.now()) {
		fields = append(fields, apperr.FieldError{Field: "startTime", Message: "must not be in the future"})
	}
	if len(fields) > 0 {
		return models.TimeEntryWithTarget{}, apperr.Validation("Validation failed", fields...)
	}

	if _, err := s.resolveTarget(ctx, actor, in.Target); err != nil {
		return models.TimeEntryWithTarget{}, err
	}

	entry := models.TimeEntry{
		ID:          ids.New(),
		UserID:      actor.ID,
		Target:      in.Target,
		TaskName:    taskName,
		Description: strings.TrimSpace(in.Description),
		StartTime:   in.StartTime.UTC(),
		IsManual:    true,
	}
	entry.Close(in.EndTime.UTC())
	if err := s.entries.Create(ctx, entry); err != nil {
		return models.TimeEntryWithTarget{}, createEntryError(err)
	}

	s.metrics.TimerEvent("manual")
	return s.get(ctx, entry.ID)
}

// Update edits a completed entry owned by actor.
func (s *TimerService) Update(ctx context.Context, actor models.User, entryID string, patch models.TimeEntryPatch) (models.TimeEntryWithTarget, error) {
	if patch.TaskName != nil {
		name := strings.TrimSpace(*patch.TaskName)
		if name == "" {
			return models.TimeEntryWithTarget{}, apperr.Validation("Validation failed",
				apperr.FieldError{Field: "taskName", Message: "must not be empty"})
		}
		patch.TaskName = &name
	}

	current, err := s.entries.GetByID(ctx, entryID)
	if err != nil {
		return models.TimeEntryWithTarget{}, notFound(err, "load time entry", "Time entry not found")
	}
	if err := editable(current.TimeEntry, actor, "edited"); err != nil {
		return models.TimeEntryWithTarget{}, err
	}

	if patch.TouchesTarget() {
		merged := current.TimeEntry
		patch.Apply(&merged)
		if _, err := s.resolveTarget(ctx, actor, merged.Target); err != nil {
			return models.TimeEntryWithTarget{}, err
		}
	}

	now := s.clock.now()
	err = s.entries.UpdateGuarded(ctx, entryID, func(entry *models.TimeEntry) error {
		if err := editable(*entry, actor, "edited"); err != nil {
			return err
		}
		patch.Apply(entry)
		if patch.StartTime != nil && entry.StartTime.After(now) {
			return apperr.Validation("Validation failed",
				apperr.FieldError{Field: "startTime", Message: "must not be in the future"})
		}
		if entry.EndTime == nil || !entry.EndTime.After(entry.StartTime) {
			return apperr.Validation("Validation failed",
				apperr.FieldError{Field: "endTime", Message: "must be after startTime"})
		}
		entry.Close(*entry.EndTime)
		return nil
	})
	if err != nil {
		return models.TimeEntryWithTarget{}, storeError(err, "update time entry", "Time entry")
	}

	s.log.Info().Str("user_id", actor.ID).Str("entry_id", entryID).Msg("time entry updated")
	return s.get(ctx, entryID)
}

func (s *TimerService) Delete(ctx context.Context, actor models.User, entryID string) error {
	err := s.entries.DeleteGuarded(ctx, entryID, func(entry models.TimeEntry) error {
		return editable(entry, actor, "deleted")
	})
	if err != nil {
		return storeError(err, "delete time entry", "Time entry")
	}
	s.log.Info().Str("user_id", actor.ID).Str("entry_id", entryID).Msg("time entry deleted")
	return nil
}

// editable hides other users' entries and rejects running timers.
func editable(entry models.TimeEntry, actor models.User, verb string) error {
	if entry.UserID != actor.ID {
		return apperr.NotFound("Time entry not found")
	}
	if entry.Open() {
		return apperr.Conflict(fmt.Sprintf("Only completed entries can be %s. Stop the timer first", verb))
	}
	return nil
}

// List returns subjectID's entries. Viewing another user requires manager.
func (s *TimerService) List(ctx context.Context, viewer models.User, subjectID string, filter models.TimeEntryFilter) ([]models.TimeEntryWithTarget, models.Pagination, error) {
	if subjectID == "" {
		subjectID = viewer.ID
	}
	if err := policy.CanViewUser(viewer, subjectID); err != nil {
		return nil, models.Pagination{}, err
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, models.Pagination{}, apperr.Validation("Validation failed",
			apperr.FieldError{Field: "endDate", Message: "must not be before startDate"})
	}

	filter.UserID = subjectID
	filter = filter.Normalize()
	entries, total, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list time entries: %w", err)
	}
	if entries == nil {
		entries = []models.TimeEntryWithTarget{}
	}
	return entries, models.NewPagination(filter.Page, total), nil
}

func (s *TimerService) StartBreak(ctx context.Context, actor models.User, reason string) (models.TimeEntryWithTarget, error) {
	open, err := s.openEntry(ctx, actor)
	if err != nil {
		return models.TimeEntryWithTarget{}, err
	}
	if open.OpenBreak() >= 0 {
		return models.TimeEntryWithTarget{}, apperr.Conflict("A break is already in progress")
	}

	breaks := append(open.Breaks, models.Break{
		StartTime: s.clock.now(),
		Reason:    strings.TrimSpace(reason),
	})
	if err := s.saveBreaks(ctx, open.ID, breaks); err != nil {
		return models.TimeEntryWithTarget{}, err
	}
	s.metrics.TimerEvent("break_start")
	return s.get(ctx, open.ID)
}

func (s *TimerService) EndBreak(ctx context.Context, actor models.User) (models.TimeEntryWithTarget, error) {
	open, err := s.openEntry(ctx, actor)
	if err != nil {
		return models.TimeEntryWithTarget{}, err
	}
	i := open.OpenBreak()
	if i < 0 {
		return models.TimeEntryWithTarget{}, apperr.Conflict("No break in progress")
	}

	end := s.clock.now()
	open.Breaks[i].EndTime = &end
	if err := s.saveBreaks(ctx, open.ID, open.Breaks); err != nil {
		return models.TimeEntryWithTarget{}, err
	}
	s.metrics.TimerEvent("break_end")
	return s.get(ctx, open.ID)
}

func (s *TimerService) openEntry(ctx context.Context, actor models.User) (models.TimeEntryWithTarget, error) {
	open, err := s.entries.GetOpen(ctx, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.TimeEntryWithTarget{}, apperr.Conflict(msgNoActiveTimer)
	}
	if err != nil {
		return models.TimeEntryWithTarget{}, fmt.Errorf("load open entry: %w", err)
	}
	return open, nil
}

func (s *TimerService) saveBreaks(ctx context.Context, entryID string, breaks []models.Break) error {
	err := s.entries.UpdateBreaks(ctx, entryID, breaks)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Conflict(msgNoActiveTimer)
	}
	if err != nil {
		return fmt.Errorf("update breaks: %w", err)
	}
	return nil
}

func (s *TimerService) get(ctx context.Context, id string) (models.TimeEntryWithTarget, error) {
	entry, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return models.TimeEntryWithTarget{}, notFound(err, "load time entry", "Time entry not found")
	}
	return entry, nil
}

// resolveTarget checks that every target reference exists, that the customer
// belongs to the organization and the activity to the process, and that the
// actor may book time against the organization.
func (s *TimerService) resolveTarget(ctx context.Context, actor models.User, t models.Target) (models.ResolvedTarget, error) {
	var fields []apperr.FieldError
	for _, ref := range []struct{ field, value string }{
		{"organizationId", t.OrganizationID},
		{"customerId", t.CustomerID},
		{"processId", t.ProcessID},
		{"activityId", t.ActivityID},
	} {
		if strings.TrimSpace(ref.value) == "" {
			fields = append(fields, apperr.FieldError{Field: ref.field, Message: "is required"})
		}
	}
	if len(fields) > 0 {
		return models.ResolvedTarget{}, apperr.Validation("Validation failed", fields...)
	}

	org, err := s.orgs.GetByID(ctx, t.OrganizationID)
	if err != nil {
		return models.ResolvedTarget{}, notFound(err, "load organization", "Organization not found")
	}
	customer, err := s.customers.GetByID(ctx, t.CustomerID)
	if err != nil {
		return models.ResolvedTarget{}, notFound(err, "load customer", "Customer not found")
	}
	if customer.OrganizationID != org.ID {
		return models.ResolvedTarget{}, apperr.NotFound("Customer not found in organization")
	}
	process, err := s.processes.GetProcess(ctx, t.ProcessID)
	if err != nil {
		return models.ResolvedTarget{}, notFound(err, "load process", "Process not found")
	}
	activity, err := s.processes.GetActivity(ctx, t.ActivityID)
	if err != nil {
		return models.ResolvedTarget{}, notFound(err, "load activity", "Activity not found")
	}
	if activity.ProcessID != process.ID {
		return models.ResolvedTarget{}, apperr.NotFound("Activity not found for process")
	}

	if !org.IsActive || !customer.IsActive {
		return models.ResolvedTarget{}, apperr.Conflict("Cannot book time against an inactive organization or customer")
	}

	if actor.Role != models.RoleAdmin {
		member, err := s.orgs.IsMember(ctx, org.ID, actor.ID)
		if err != nil {
			return models.ResolvedTarget{}, fmt.Errorf("check membership: %w", err)
		}
		if !member {
			return models.ResolvedTarget{}, apperr.Forbidden("You are not a member of this organization")
		}
	}

	return models.ResolvedTarget{
		Target:           t,
		OrganizationName: org.Name,
		CustomerName:     customer.Name,
		ProcessName:      process.Name,
		ActivityName:     activity.Name,
	}, nil
}
