package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"timetrack/api/internal/models"
	"timetrack/api/internal/service"
)

type targetRequest struct {
	OrganizationID string `json:"organizationId" binding:"required"`
	CustomerID     string `json:"customerId" binding:"required"`
	ProcessID      string `json:"processId" binding:"required"`
	ActivityID     string `json:"activityId" binding:"required"`
}

func (r targetRequest) target() models.Target {
	return models.Target{
		OrganizationID: r.OrganizationID,
		CustomerID:     r.CustomerID,
		ProcessID:      r.ProcessID,
		ActivityID:     r.ActivityID,
	}
}

type startTimerRequest struct {
	targetRequest
	TaskName    string `json:"taskName" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
}

func (h HandlerSet) StartTimer(c *gin.Context) {
	var req startTimerRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.svc.Timer.Start(c.Request.Context(), principal(c).User, service.StartInput{
		Target:      req.target(),
		TaskName:    req.TaskName,
		Description: req.Description,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Timer started successfully", toEntry(entry))
}

type stopTimerRequest struct {
	Description *string `json:"description" binding:"omitempty,max=2000"`
}

func (h HandlerSet) StopTimer(c *gin.Context) {
	var req stopTimerRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	entry, err := h.svc.Timer.Stop(c.Request.Context(), principal(c).User, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Timer stopped successfully", toEntry(entry))
}

func (h HandlerSet) ActiveTimer(c *gin.Context) {
	entry, err := h.svc.Timer.Active(c.Request.Context(), principal(c).User)
	if err != nil {
		fail(c, err)
		return
	}
	if entry == nil {
		ok(c, "No active timer", gin.H{"entry": nil})
		return
	}
	ok(c, "", gin.H{"entry": toEntry(*entry)})
}

type startBreakRequest struct {
	Reason string `json:"reason" binding:"max=200"`
}

func (h HandlerSet) StartBreak(c *gin.Context) {
	var req startBreakRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	entry, err := h.svc.Timer.StartBreak(c.Request.Context(), principal(c).User, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Break started", toEntry(entry))
}

func (h HandlerSet) EndBreak(c *gin.Context) {
	entry, err := h.svc.Timer.EndBreak(c.Request.Context(), principal(c).User)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Break ended", toEntry(entry))
}

type manualEntryRequest struct {
	targetRequest
	TaskName    string     `json:"taskName" binding:"required,max=200"`
	Description string     `json:"description" binding:"max=2000"`
	StartTime   *time.Time `json:"startTime" binding:"required"`
	EndTime     *time.Time `json:"endTime" binding:"required"`
}

func (h HandlerSet) CreateManualEntry(c *gin.Context) {
	var req manualEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.svc.Timer.CreateManual(c.Request.Context(), principal(c).User, service.ManualInput{
		Target:      req.target(),
		TaskName:    req.TaskName,
		Description: req.Description,
		StartTime:   *req.StartTime,
		EndTime:     *req.EndTime,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Time entry created successfully", toEntry(entry))
}

type updateEntryRequest struct {
	TaskName       *string    `json:"taskName" binding:"omitempty,max=200"`
	Description    *string    `json:"description" binding:"omitempty,max=2000"`
	StartTime      *time.Time `json:"startTime"`
	EndTime        *time.Time `json:"endTime"`
	OrganizationID *string    `json:"organizationId" binding:"omitempty,min=1"`
	CustomerID     *string    `json:"customerId" binding:"omitempty,min=1"`
	ProcessID      *string    `json:"processId" binding:"omitempty,min=1"`
	ActivityID     *string    `json:"activityId" binding:"omitempty,min=1"`
}

func (h HandlerSet) UpdateEntry(c *gin.Context) {
	var req updateEntryRequest
	if !bindJSON(c, &req) {
		return
	}

	entry, err := h.svc.Timer.Update(c.Request.Context(), principal(c).User, c.Param("id"), models.TimeEntryPatch{
		TaskName:       req.TaskName,
		Description:    req.Description,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		OrganizationID: req.OrganizationID,
		CustomerID:     req.CustomerID,
		ProcessID:      req.ProcessID,
		ActivityID:     req.ActivityID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Time entry updated successfully", toEntry(entry))
}

func (h HandlerSet) DeleteEntry(c *gin.Context) {
	if err := h.svc.Timer.Delete(c.Request.Context(), principal(c).User, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Time entry deleted successfully", nil)
}

type entryQuery struct {
	pageQuery
	StartDate      string `form:"startDate"`
	EndDate        string `form:"endDate"`
	OrganizationID string `form:"organizationId"`
	CustomerID     string `form:"customerId"`
	ProcessID      string `form:"processId"`
	ActivityID     string `form:"activityId"`
	Search         string `form:"search" binding:"max=200"`
	Status         string `form:"status" binding:"omitempty,oneof=open completed all"`
	SortBy         string `form:"sortBy"`
	SortOrder      string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
}

func (q entryQuery) filter() (models.TimeEntryFilter, error) {
	from, to, err := parseRange(q.StartDate, q.EndDate)
	if err != nil {
		return models.TimeEntryFilter{}, err
	}
	f := models.TimeEntryFilter{
		OrganizationID: q.OrganizationID,
		CustomerID:     q.CustomerID,
		ProcessID:      q.ProcessID,
		ActivityID:     q.ActivityID,
		From:           from,
		To:             to,
		Search:         q.Search,
		Status:         models.EntryStatus(q.Status),
		SortBy:         q.SortBy,
		SortDesc:       q.SortOrder != "asc",
		Page:           q.page(),
	}
	return f.Normalize(), nil
}

type entryListResponse struct {
	Entries    []timeEntryResponse `json:"entries"`
	Pagination models.Pagination   `json:"pagination"`
}

func (h HandlerSet) ListEntries(c *gin.Context) {
	h.listEntries(c, "")
}

func (h HandlerSet) ListUserEntries(c *gin.Context) {
	h.listEntries(c, c.Param("userId"))
}

func (h HandlerSet) listEntries(c *gin.Context, subjectID string) {
	var q entryQuery
	if !bindQuery(c, &q) {
		return
	}
	filter, err := q.filter()
	if err != nil {
		fail(c, err)
		return
	}

	entries, page, err := h.svc.Timer.List(c.Request.Context(), principal(c).User, subjectID, filter)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", entryListResponse{Entries: toEntries(entries), Pagination: page})
}
