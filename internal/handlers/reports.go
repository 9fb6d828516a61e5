package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"timetrack/api/internal/models"
)

type reportFilter struct {
	UserID         string `form:"userId" json:"userId"`
	OrganizationID string `form:"organizationId" json:"organizationId"`
	CustomerID     string `form:"customerId" json:"customerId"`
	ProcessID      string `form:"processId" json:"processId"`
	ActivityID     string `form:"activityId" json:"activityId"`
	StartDate      string `form:"startDate" json:"startDate"`
	EndDate        string `form:"endDate" json:"endDate"`
}

func (r reportFilter) filter() (models.TimeEntryFilter, error) {
	from, to, err := parseRange(r.StartDate, r.EndDate)
	if err != nil {
		return models.TimeEntryFilter{}, err
	}
	return models.TimeEntryFilter{
		UserID:         r.UserID,
		OrganizationID: r.OrganizationID,
		CustomerID:     r.CustomerID,
		ProcessID:      r.ProcessID,
		ActivityID:     r.ActivityID,
		From:           from,
		To:             to,
	}, nil
}

func (h HandlerSet) ReportSummary(c *gin.Context) {
	var q reportFilter
	if !bindQuery(c, &q) {
		return
	}
	filter, err := q.filter()
	if err != nil {
		fail(c, err)
		return
	}

	summary, err := h.svc.Reports.Summary(c.Request.Context(), principal(c).User, filter)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", toReportSummary(summary))
}

type exportResponse struct {
	ObjectKey string    `json:"objectKey"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
	Rows      int       `json:"rows"`
}

func (h HandlerSet) ExportReport(c *gin.Context) {
	var req reportFilter
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	filter, err := req.filter()
	if err != nil {
		fail(c, err)
		return
	}

	export, err := h.svc.Reports.Export(c.Request.Context(), principal(c).User, filter)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Report exported", exportResponse{
		ObjectKey: export.ObjectKey,
		URL:       export.URL,
		ExpiresAt: export.ExpiresAt,
		Rows:      export.Rows,
	})
}
