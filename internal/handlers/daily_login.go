package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"timetrack/api/internal/models"
	"timetrack/api/internal/service"
)

type todayResponse struct {
	Date    string           `json:"date"`
	Status  string           `json:"status"`
	Tracker *trackerResponse `json:"tracker"`
}

func (h HandlerSet) TodayStatus(c *gin.Context) {
	status, err := h.svc.Daily.TodayStatus(c.Request.Context(), principal(c).User.ID)
	if err != nil {
		fail(c, err)
		return
	}

	resp := todayResponse{
		Date:   status.Date.Format(models.DateLayout),
		Status: string(status.Status),
	}
	if status.Tracker != nil {
		t := toTracker(*status.Tracker)
		resp.Tracker = &t
	}
	ok(c, "", resp)
}

type endDayRequest struct {
	Notes    *string `json:"notes" binding:"omitempty,max=1000"`
	Location *string `json:"location" binding:"omitempty,max=200"`
}

func (h HandlerSet) EndDay(c *gin.Context) {
	var req endDayRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	result, err := h.svc.Daily.EndDay(c.Request.Context(), service.EndDayInput{
		UserID:   principal(c).User.ID,
		Notes:    req.Notes,
		Location: req.Location,
	})
	if err != nil {
		fail(c, err)
		return
	}
	if result.AlreadyEnded {
		c.JSON(http.StatusBadRequest, envelope{
			Success: false,
			Message: "Day already ended",
			Data:    toTracker(result.Tracker),
		})
		return
	}
	ok(c, "Day ended successfully", toTracker(result.Tracker))
}

type historyQuery struct {
	pageQuery
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

type historyResponse struct {
	Trackers   []trackerResponse        `json:"trackers"`
	Summary    models.DayHistorySummary `json:"summary"`
	Pagination models.Pagination        `json:"pagination"`
}

func (h HandlerSet) DayHistory(c *gin.Context) {
	var q historyQuery
	if !bindQuery(c, &q) {
		return
	}
	from, to, err := parseRange(q.StartDate, q.EndDate)
	if err != nil {
		fail(c, err)
		return
	}

	history, err := h.svc.Daily.History(c.Request.Context(), service.HistoryInput{
		UserID: principal(c).User.ID,
		From:   from,
		To:     to,
		Page:   q.page(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", historyResponse{
		Trackers:   toTrackers(history.Trackers),
		Summary:    history.Summary,
		Pagination: history.Pagination,
	})
}

type teamOverviewResponse struct {
	Date    string               `json:"date"`
	Members []teamMemberResponse `json:"members"`
}

func (h HandlerSet) TeamOverview(c *gin.Context) {
	date, err := parseDayParam("date", c.Query("date"), h.svc.Daily.Location())
	if err != nil {
		fail(c, err)
		return
	}

	day, members, err := h.svc.Daily.TeamOverview(c.Request.Context(), principal(c).User, date)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", teamOverviewResponse{
		Date:    day.Format(models.DateLayout),
		Members: toTeam(members),
	})
}
