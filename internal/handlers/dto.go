package handlers

import (
	"time"

	"timetrack/api/internal/models"
	"timetrack/api/internal/security"
	"timetrack/api/internal/service"
)

type userResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Role          string     `json:"role"`
	IsActive      bool       `json:"isActive"`
	LoginAttempts int        `json:"loginAttempts"`
	LockUntil     *time.Time `json:"lockUntil,omitempty"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func toUser(u models.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          string(u.Role),
		IsActive:      u.IsActive,
		LoginAttempts: u.LoginAttempts,
		LockUntil:     u.LockUntil,
		LastLogin:     u.LastLogin,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func toUsers(users []models.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUser(u))
	}
	return out
}

type tokensResponse struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	TokenType        string    `json:"tokenType"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

func toTokens(t security.TokenPair) tokensResponse {
	return tokensResponse{
		AccessToken:      t.AccessToken,
		RefreshToken:     t.RefreshToken,
		TokenType:        "Bearer",
		AccessExpiresAt:  t.AccessExpiresAt,
		RefreshExpiresAt: t.RefreshExpiresAt,
	}
}

type firstLoginResponse struct {
	IsFirstLogin bool            `json:"isFirstLogin"`
	Tracker      trackerResponse `json:"tracker"`
}

type authResponse struct {
	User       userResponse        `json:"user"`
	Tokens     tokensResponse      `json:"tokens"`
	DailyLogin *firstLoginResponse `json:"dailyLogin,omitempty"`
}

func toAuth(r service.AuthResult) authResponse {
	resp := authResponse{
		User:   toUser(r.User),
		Tokens: toTokens(r.Tokens),
	}
	if r.FirstLogin != nil {
		resp.DailyLogin = &firstLoginResponse{
			IsFirstLogin: r.FirstLogin.IsFirstLogin,
			Tracker:      toTracker(r.FirstLogin.Tracker),
		}
	}
	return resp
}

type sessionResponse struct {
	ID         string    `json:"id"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Current    bool      `json:"current"`
}

func toSessions(sessions []models.Session, currentID string) []sessionResponse {
	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, sessionResponse{
			ID:         s.ID,
			IPAddress:  s.IPAddress,
			UserAgent:  s.UserAgent,
			CreatedAt:  s.CreatedAt,
			LastSeenAt: s.LastSeenAt,
			ExpiresAt:  s.ExpiresAt,
			Current:    s.ID == currentID,
		})
	}
	return out
}

type ref struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type timeEntryResponse struct {
	ID              string         `json:"id"`
	UserID          string         `json:"userId"`
	UserName        string         `json:"userName,omitempty"`
	Organization    ref            `json:"organization"`
	Customer        ref            `json:"customer"`
	Process         ref            `json:"process"`
	Activity        ref            `json:"activity"`
	TaskName        string         `json:"taskName"`
	Description     string         `json:"description"`
	StartTime       time.Time      `json:"startTime"`
	EndTime         *time.Time     `json:"endTime"`
	DurationMinutes *int           `json:"durationMinutes"`
	IsManual        bool           `json:"isManual"`
	IsActive        bool           `json:"isActive"`
	Breaks          []models.Break `json:"breaks"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func toEntry(e models.TimeEntryWithTarget) timeEntryResponse {
	breaks := e.Breaks
	if breaks == nil {
		breaks = []models.Break{}
	}
	return timeEntryResponse{
		ID:              e.ID,
		UserID:          e.UserID,
		UserName:        e.UserName,
		Organization:    ref{ID: e.Target.OrganizationID, Name: e.OrganizationName},
		Customer:        ref{ID: e.Target.CustomerID, Name: e.CustomerName},
		Process:         ref{ID: e.Target.ProcessID, Name: e.ProcessName},
		Activity:        ref{ID: e.Target.ActivityID, Name: e.ActivityName},
		TaskName:        e.TaskName,
		Description:     e.Description,
		StartTime:       e.StartTime,
		EndTime:         e.EndTime,
		DurationMinutes: e.DurationMinutes,
		IsManual:        e.IsManual,
		IsActive:        e.Open(),
		Breaks:          breaks,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toEntries(entries []models.TimeEntryWithTarget) []timeEntryResponse {
	out := make([]timeEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntry(e))
	}
	return out
}

type trackerResponse struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	LoginDate         string     `json:"loginDate"`
	FirstLoginTime    time.Time  `json:"firstLoginTime"`
	DayEndTime        *time.Time `json:"dayEndTime"`
	TotalWorkingHours *float64   `json:"totalWorkingHours"`
	FormattedHours    string     `json:"formattedHours,omitempty"`
	Status            string     `json:"status"`
	IPAddress         string     `json:"ipAddress,omitempty"`
	UserAgent         string     `json:"userAgent,omitempty"`
	Location          string     `json:"location,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

func toTracker(t models.DailyLoginTracker) trackerResponse {
	resp := trackerResponse{
		ID:                t.ID,
		UserID:            t.UserID,
		LoginDate:         t.LoginDate.Format(models.DateLayout),
		FirstLoginTime:    t.FirstLoginTime,
		DayEndTime:        t.DayEndTime,
		TotalWorkingHours: t.TotalWorkingHours,
		Status:            string(t.Status()),
		IPAddress:         t.IPAddress,
		UserAgent:         t.UserAgent,
		Location:          t.Location,
		Notes:             t.Notes,
	}
	if t.TotalWorkingHours != nil {
		resp.FormattedHours = models.FormatHours(*t.TotalWorkingHours)
	}
	return resp
}

func toTrackers(trackers []models.DailyLoginTracker) []trackerResponse {
	out := make([]trackerResponse, 0, len(trackers))
	for _, t := range trackers {
		out = append(out, toTracker(t))
	}
	return out
}

type teamMemberResponse struct {
	UserID  string           `json:"userId"`
	Name    string           `json:"name"`
	Email   string           `json:"email"`
	Role    string           `json:"role"`
	Status  string           `json:"status"`
	Tracker *trackerResponse `json:"tracker"`
}

func toTeam(members []models.TeamMemberDay) []teamMemberResponse {
	out := make([]teamMemberResponse, 0, len(members))
	for _, m := range members {
		resp := teamMemberResponse{
			UserID: m.UserID,
			Name:   m.Name,
			Email:  m.Email,
			Role:   string(m.Role),
			Status: string(m.Tracker.Status()),
		}
		if m.Tracker != nil {
			t := toTracker(*m.Tracker)
			resp.Tracker = &t
		}
		out = append(out, resp)
	}
	return out
}

type organizationResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toOrganization(o models.Organization) organizationResponse {
	return organizationResponse{
		ID:          o.ID,
		Name:        o.Name,
		Description: o.Description,
		IsActive:    o.IsActive,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func toOrganizations(orgs []models.Organization) []organizationResponse {
	out := make([]organizationResponse, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, toOrganization(o))
	}
	return out
}

type memberResponse struct {
	UserID         string    `json:"userId"`
	OrganizationID string    `json:"organizationId"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}

type customerResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	ContactEmail   string    `json:"contactEmail,omitempty"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toCustomer(c models.Customer) customerResponse {
	return customerResponse{
		ID:             c.ID,
		OrganizationID: c.OrganizationID,
		Name:           c.Name,
		ContactEmail:   c.ContactEmail,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

type processResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProcess(p models.Process) processResponse {
	return processResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

type activityResponse struct {
	ID          string    `json:"id"`
	ProcessID   string    `json:"processId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toActivity(a models.Activity) activityResponse {
	return activityResponse{
		ID:          a.ID,
		ProcessID:   a.ProcessID,
		Name:        a.Name,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

type reportRowResponse struct {
	Date         string `json:"date"`
	Organization ref    `json:"organization"`
	Customer     ref    `json:"customer"`
	Activity     ref    `json:"activity"`
	Entries      int    `json:"entries"`
	TotalMinutes int    `json:"totalMinutes"`
}

type reportSummaryResponse struct {
	Rows         []reportRowResponse `json:"rows"`
	TotalEntries int                 `json:"totalEntries"`
	TotalMinutes int                 `json:"totalMinutes"`
}

func toReportSummary(s models.ReportSummary) reportSummaryResponse {
	rows := make([]reportRowResponse, 0, len(s.Rows))
	for _, r := range s.Rows {
		rows = append(rows, reportRowResponse{
			Date:         r.Day.Format(models.DateLayout),
			Organization: ref{ID: r.OrganizationID, Name: r.OrganizationName},
			Customer:     ref{ID: r.CustomerID, Name: r.CustomerName},
			Activity:     ref{ID: r.ActivityID, Name: r.ActivityName},
			Entries:      r.Entries,
			TotalMinutes: r.TotalMinutes,
		})
	}
	return reportSummaryResponse{Rows: rows, TotalEntries: s.TotalEntries, TotalMinutes: s.TotalMinutes}
}
