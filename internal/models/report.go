package models

import "time"

// ReportRow aggregates completed entries by day, customer and activity.
type ReportRow struct {
	Day              time.Time
	OrganizationID   string
	OrganizationName string
	CustomerID       string
	CustomerName     string
	ActivityID       string
	ActivityName     string
	Entries          int
	TotalMinutes     int
}

type ReportSummary struct {
	Rows         []ReportRow
	TotalEntries int
	TotalMinutes int
}

// NewReportSummary totals the rows.
func NewReportSummary(rows []ReportRow) ReportSummary {
	s := ReportSummary{Rows: rows}
	for _, r := range rows {
		s.TotalEntries += r.Entries
		s.TotalMinutes += r.TotalMinutes
	}
	return s
}

// ReportExport points at a rendered report stored in object storage.
type ReportExport struct {
	ObjectKey string
	URL       string
	ExpiresAt time.Time
	Rows      int
}
