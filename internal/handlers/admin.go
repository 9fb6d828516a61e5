package handlers

import (
	"github.com/gin-gonic/gin"

	"timetrack/api/internal/models"
	"timetrack/api/internal/service"
)

type userQuery struct {
	pageQuery
	Search   string `form:"search" binding:"max=200"`
	Role     string `form:"role" binding:"omitempty,oneof=user manager admin"`
	IsActive *bool  `form:"isActive"`
}

type userListResponse struct {
	Users      []userResponse    `json:"users"`
	Pagination models.Pagination `json:"pagination"`
}

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	var q userQuery
	if !bindQuery(c, &q) {
		return
	}

	users, page, err := h.svc.Admin.List(c.Request.Context(), models.UserFilter{
		Search:   q.Search,
		Role:     models.Role(q.Role),
		IsActive: q.IsActive,
		Page:     q.page(),
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", userListResponse{Users: toUsers(users), Pagination: page})
}

func (h HandlerSet) AdminGetUser(c *gin.Context) {
	user, err := h.svc.Admin.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", toUser(user))
}

type createUserRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"omitempty,oneof=user manager admin"`
	IsActive *bool  `json:"isActive"`
}

func (h HandlerSet) AdminCreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.svc.Admin.Create(c.Request.Context(), service.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     models.Role(req.Role),
		IsActive: req.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "User created successfully", toUser(user))
}

type updateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,max=100"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Role     *string `json:"role" binding:"omitempty,oneof=user manager admin"`
	IsActive *bool   `json:"isActive"`
	Password *string `json:"password" binding:"omitempty,min=8"`
}

func (h HandlerSet) AdminUpdateUser(c *gin.Context) {
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	patch := models.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		IsActive: req.IsActive,
		Password: req.Password,
	}
	if req.Role != nil {
		role := models.Role(*req.Role)
		patch.Role = &role
	}

	user, err := h.svc.Admin.Update(c.Request.Context(), principal(c).User, c.Param("id"), patch)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "User updated successfully", toUser(user))
}

func (h HandlerSet) AdminDeleteUser(c *gin.Context) {
	if err := h.svc.Admin.Delete(c.Request.Context(), principal(c).User, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "User deleted successfully", nil)
}

func (h HandlerSet) AdminUnlockUser(c *gin.Context) {
	user, err := h.svc.Admin.Unlock(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "User unlocked successfully", toUser(user))
}
