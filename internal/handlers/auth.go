package handlers

import (
	"github.com/gin-gonic/gin"

	"timetrack/api/internal/models"
	"timetrack/api/internal/service"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

func (h HandlerSet) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.svc.Auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
	})
	if err != nil {
		fail(c, err)
		return
	}

	created(c, "User registered successfully", toAuth(result))
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Location string `json:"location"`
}

func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.svc.Auth.Login(c.Request.Context(), service.LoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		Location:  req.Location,
	})
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, "Login successful", toAuth(result))
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.svc.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, "Token refreshed", toAuth(result))
}

func (h HandlerSet) Logout(c *gin.Context) {
	if err := h.svc.Auth.Logout(c.Request.Context(), principal(c).SessionID); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Logged out successfully", nil)
}

type profileResponse struct {
	User          userResponse           `json:"user"`
	Organizations []organizationResponse `json:"organizations"`
}

func (h HandlerSet) Me(c *gin.Context) {
	profile, err := h.svc.Auth.Me(c.Request.Context(), principal(c).User.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", profileResponse{
		User:          toUser(profile.User),
		Organizations: toOrganizations(profile.Organizations),
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

func (h HandlerSet) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	p := principal(c)
	err := h.svc.Auth.ChangePassword(c.Request.Context(), service.ChangePasswordInput{
		UserID:          p.User.ID,
		SessionID:       p.SessionID,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Password changed successfully", nil)
}

func (h HandlerSet) ListSessions(c *gin.Context) {
	p := principal(c)
	sessions, err := h.svc.Auth.ListSessions(c.Request.Context(), p.User.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", gin.H{"sessions": toSessions(sessions, p.SessionID)})
}

func (h HandlerSet) RevokeSession(c *gin.Context) {
	if err := h.svc.Auth.RevokeSession(c.Request.Context(), principal(c), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Session revoked", nil)
}
