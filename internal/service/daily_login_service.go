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

type DailyLoginService struct {
	trackers DailyLoginStore
	loc      *time.Location
	metrics  *metrics.Metrics
	log      zerolog.Logger
	clock    Clock
}

func NewDailyLoginService(trackers DailyLoginStore, loc *time.Location, m *metrics.Metrics, log zerolog.Logger) *DailyLoginService {
	if loc == nil {
		loc = time.UTC
	}
	return &DailyLoginService{
		trackers: trackers,
		loc:      loc,
		metrics:  m,
		log:      log,
	}
}

func (s *DailyLoginService) WithClock(c Clock) *DailyLoginService {
	s.clock = c
	return s
}

// Today returns the calendar date of now in the tracking timezone.
// Location is the timezone login dates are derived in.
func (s *DailyLoginService) Location() *time.Location {
	return s.loc
}

func (s *DailyLoginService) Today() time.Time {
	return models.DayKey(s.clock.now(), s.loc)
}

type FirstLoginInput struct {
	UserID    string
	LoginTime time.Time
	IPAddress string
	UserAgent string
	Location  string
}

type FirstLoginResult struct {
	Tracker      models.DailyLoginTracker
	IsFirstLogin bool
}

// TrackFirstLogin records the first login of the day. Later logins on the
// same date return the stored tracker unchanged.
func (s *DailyLoginService) TrackFirstLogin(ctx context.Context, in FirstLoginInput) (FirstLoginResult, error) {
	loginTime := in.LoginTime.UTC()
	tracker, created, err := s.trackers.InsertIfAbsent(ctx, models.DailyLoginTracker{
		ID:             ids.New(),
		UserID:         in.UserID,
		LoginDate:      models.DayKey(loginTime, s.loc),
		FirstLoginTime: loginTime,
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
		Location:       in.Location,
	})
	if err != nil {
		return FirstLoginResult{}, fmt.Errorf("track first login: %w", err)
	}

	if created {
		s.metrics.DayEvent("start")
		s.log.Info().
			Str("user_id", in.UserID).
			Str("date", tracker.LoginDate.Format(models.DateLayout)).
			Msg("first login of day recorded")
	}
	return FirstLoginResult{Tracker: tracker, IsFirstLogin: created}, nil
}

type TodayStatus struct {
	Date    time.Time
	Status  models.DayStatus
	Tracker *models.DailyLoginTracker
}

func (s *DailyLoginService) TodayStatus(ctx context.Context, userID string) (TodayStatus, error) {
	today := s.Today()
	tracker, err := s.trackers.GetByUserDate(ctx, userID, today)
	if errors.Is(err, repository.ErrNotFound) {
		return TodayStatus{Date: today, Status: models.DayNotStarted}, nil
	}
	if err != nil {
		return TodayStatus{}, fmt.Errorf("load today tracker: %w", err)
	}
	return TodayStatus{Date: today, Status: tracker.Status(), Tracker: &tracker}, nil
}

type EndDayInput struct {
	UserID   string
	Notes    *string
	Location *string
}

type EndDayResult struct {
	Tracker      models.DailyLoginTracker
	AlreadyEnded bool
}

// EndDay stamps today's day end. A second call leaves the stored end time
// untouched and reports AlreadyEnded.
func (s *DailyLoginService) EndDay(ctx context.Context, in EndDayInput) (EndDayResult, error) {
	now := s.clock.now()
	today := models.DayKey(now, s.loc)

	tracker, updated, err := s.trackers.EndDay(ctx, in.UserID, today, now, trimmed(in.Notes), trimmed(in.Location))
	if errors.Is(err, repository.ErrNotFound) {
		return EndDayResult{}, apperr.Conflict("No login recorded for today")
	}
	if err != nil {
		return EndDayResult{}, fmt.Errorf("end day: %w", err)
	}

	if !updated {
		return EndDayResult{Tracker: tracker, AlreadyEnded: true}, nil
	}

	s.metrics.DayEvent("end")
	s.log.Info().
		Str("user_id", in.UserID).
		Str("date", today.Format(models.DateLayout)).
		Msg("day ended")
	return EndDayResult{Tracker: tracker}, nil
}

type HistoryInput struct {
	UserID string
	From   *time.Time
	To     *time.Time
	Page   models.Page
}

func (s *DailyLoginService) History(ctx context.Context, in HistoryInput) (models.DayHistory, error) {
	if in.From != nil && in.To != nil && in.From.After(*in.To) {
		return models.DayHistory{}, apperr.Validation("Validation failed",
			apperr.FieldError{Field: "endDate", Message: "must not be before startDate"})
	}
	history, err := s.trackers.History(ctx, in.UserID, in.From, in.To, models.NewPage(in.Page.Number, in.Page.Limit))
	if err != nil {
		return models.DayHistory{}, fmt.Errorf("load day history: %w", err)
	}
	return history, nil
}

// TeamOverview lists every active user with their tracker for date, which
// defaults to today.
func (s *DailyLoginService) TeamOverview(ctx context.Context, requester models.User, date *time.Time) (time.Time, []models.TeamMemberDay, error) {
	if err := policy.RequireRole(requester.Role, models.RoleManager); err != nil {
		return time.Time{}, nil, err
	}
	day := s.Today()
	if date != nil {
		day = models.DayKey(*date, s.loc)
	}

	members, err := s.trackers.TeamOverview(ctx, day)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("load team overview: %w", err)
	}
	return day, members, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
