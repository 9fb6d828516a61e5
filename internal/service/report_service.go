package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/ids"
	"timetrack/api/internal/metrics"
	"timetrack/api/internal/models"
	"timetrack/api/internal/policy"
)

// ReportStore persists rendered reports and hands out time-limited links.
type ReportStore interface {
	PutReport(ctx context.Context, key string, body []byte, contentType string) (url string, expiresAt time.Time, err error)
}

type ReportService struct {
	entries TimeEntryStore
	store   ReportStore
	loc     *time.Location
	metrics *metrics.Metrics
	log     zerolog.Logger
	clock   Clock
}

func NewReportService(entries TimeEntryStore, store ReportStore, loc *time.Location, m *metrics.Metrics, log zerolog.Logger) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		entries: entries,
		store:   store,
		loc:     loc,
		metrics: m,
		log:     log,
	}
}

func (s *ReportService) WithClock(c Clock) *ReportService {
	s.clock = c
	return s
}

// scope restricts filter to what viewer may see. Without a user filter,
// admins report across everyone and others report on themselves.
func (s *ReportService) scope(viewer models.User, filter models.TimeEntryFilter) (models.TimeEntryFilter, error) {
	switch {
	case filter.UserID == "" && viewer.Role == models.RoleAdmin:
	case filter.UserID == "":
		filter.UserID = viewer.ID
	default:
		if err := policy.CanViewUser(viewer, filter.UserID); err != nil {
			return filter, err
		}
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return filter, apperr.Validation("Validation failed",
			apperr.FieldError{Field: "endDate", Message: "must not be before startDate"})
	}
	filter.Status = models.EntryStatusCompleted
	return filter, nil
}

func (s *ReportService) Summary(ctx context.Context, viewer models.User, filter models.TimeEntryFilter) (models.ReportSummary, error) {
	filter, err := s.scope(viewer, filter)
	if err != nil {
		return models.ReportSummary{}, err
	}
	rows, err := s.entries.Summarize(ctx, filter, s.loc)
	if err != nil {
		return models.ReportSummary{}, fmt.Errorf("summarize entries: %w", err)
	}
	if rows == nil {
		rows = []models.ReportRow{}
	}
	return models.NewReportSummary(rows), nil
}

var exportHeader = []string{
	"date", "user", "organization", "customer", "process", "activity",
	"task", "description", "start_time", "end_time", "duration_minutes", "manual",
}

// Export renders the completed entries matching filter as CSV and stores it.
func (s *ReportService) Export(ctx context.Context, viewer models.User, filter models.TimeEntryFilter) (models.ReportExport, error) {
	filter, err := s.scope(viewer, filter)
	if err != nil {
		return models.ReportExport{}, err
	}
	filter.SortBy = "startTime"
	filter.SortDesc = false

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return models.ReportExport{}, fmt.Errorf("write csv header: %w", err)
	}

	rows := 0
	for pageNo := 1; ; pageNo++ {
		filter.Page = models.Page{Number: pageNo, Limit: models.MaxPageLimit}
		entries, total, err := s.entries.List(ctx, filter)
		if err != nil {
			return models.ReportExport{}, fmt.Errorf("list entries: %w", err)
		}
		for _, e := range entries {
			if err := w.Write(s.csvRecord(e)); err != nil {
				return models.ReportExport{}, fmt.Errorf("write csv row: %w", err)
			}
			rows++
		}
		if len(entries) == 0 || rows >= total {
			break
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return models.ReportExport{}, fmt.Errorf("flush csv: %w", err)
	}

	now := s.clock.now()
	key := fmt.Sprintf("reports/%s/%s-%s.csv", viewer.ID, now.Format("20060102"), ids.New())
	url, expires, err := s.store.PutReport(ctx, key, buf.Bytes(), "text/csv")
	if err != nil {
		s.metrics.Export("error")
		return models.ReportExport{}, fmt.Errorf("store report: %w", err)
	}

	s.metrics.Export("ok")
	s.log.Info().Str("user_id", viewer.ID).Str("object", key).Int("rows", rows).Msg("report exported")
	return models.ReportExport{ObjectKey: key, URL: url, ExpiresAt: expires, Rows: rows}, nil
}

func (s *ReportService) csvRecord(e models.TimeEntryWithTarget) []string {
	end, duration := "", ""
	if e.EndTime != nil {
		end = e.EndTime.UTC().Format(time.RFC3339)
	}
	if e.DurationMinutes != nil {
		duration = strconv.Itoa(*e.DurationMinutes)
	}
	return []string{
		models.DayKey(e.StartTime, s.loc).Format(models.DateLayout),
		csvText(e.UserName),
		csvText(e.OrganizationName),
		csvText(e.CustomerName),
		csvText(e.ProcessName),
		csvText(e.ActivityName),
		csvText(e.TaskName),
		csvText(e.Description),
		e.StartTime.UTC().Format(time.RFC3339),
		end,
		duration,
		strconv.FormatBool(e.IsManual),
	}
}

// csvText quotes user text that a spreadsheet would otherwise evaluate as a
// formula.
func csvText(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
