package handlers

import (
	"github.com/gin-gonic/gin"

	"timetrack/api/internal/models"
)

func (h HandlerSet) ListOrganizations(c *gin.Context) {
	orgs, err := h.svc.Catalog.ListOrganizations(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", toOrganizations(orgs))
}

func (h HandlerSet) GetOrganization(c *gin.Context) {
	org, err := h.svc.Catalog.GetOrganization(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", toOrganization(org))
}

type organizationRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=1000"`
}

func (h HandlerSet) CreateOrganization(c *gin.Context) {
	var req organizationRequest
	if !bindJSON(c, &req) {
		return
	}
	org, err := h.svc.Catalog.CreateOrganization(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Organization created successfully", toOrganization(org))
}

type organizationPatchRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
	IsActive    *bool   `json:"isActive"`
}

func (h HandlerSet) UpdateOrganization(c *gin.Context) {
	var req organizationPatchRequest
	if !bindJSON(c, &req) {
		return
	}
	org, err := h.svc.Catalog.UpdateOrganization(c.Request.Context(), c.Param("id"), models.OrganizationPatch{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Organization updated successfully", toOrganization(org))
}

func (h HandlerSet) DeleteOrganization(c *gin.Context) {
	if err := h.svc.Catalog.DeleteOrganization(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Organization deleted successfully", nil)
}

type memberRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role" binding:"max=50"`
}

func (h HandlerSet) AddMember(c *gin.Context) {
	var req memberRequest
	if !bindJSON(c, &req) {
		return
	}
	member, err := h.svc.Catalog.AddMember(c.Request.Context(), c.Param("id"), req.UserID, req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Member added successfully", memberResponse{
		UserID:         member.UserID,
		OrganizationID: member.OrganizationID,
		Role:           member.Role,
		CreatedAt:      member.CreatedAt,
	})
}

func (h HandlerSet) RemoveMember(c *gin.Context) {
	if err := h.svc.Catalog.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Member removed successfully", nil)
}

func (h HandlerSet) ListCustomers(c *gin.Context) {
	customers, err := h.svc.Catalog.ListCustomers(c.Request.Context(), c.Query("organizationId"))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]customerResponse, 0, len(customers))
	for _, cu := range customers {
		out = append(out, toCustomer(cu))
	}
	ok(c, "", out)
}

func (h HandlerSet) GetCustomer(c *gin.Context) {
	customer, err := h.svc.Catalog.GetCustomer(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", toCustomer(customer))
}

type customerRequest struct {
	OrganizationID string `json:"organizationId" binding:"required"`
	Name           string `json:"name" binding:"required,max=100"`
	ContactEmail   string `json:"contactEmail" binding:"omitempty,email"`
}

func (h HandlerSet) CreateCustomer(c *gin.Context) {
	var req customerRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.svc.Catalog.CreateCustomer(c.Request.Context(), models.Customer{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		ContactEmail:   req.ContactEmail,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Customer created successfully", toCustomer(customer))
}

type customerPatchRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=100"`
	ContactEmail *string `json:"contactEmail" binding:"omitempty,email"`
	IsActive     *bool   `json:"isActive"`
}

func (h HandlerSet) UpdateCustomer(c *gin.Context) {
	var req customerPatchRequest
	if !bindJSON(c, &req) {
		return
	}
	customer, err := h.svc.Catalog.UpdateCustomer(c.Request.Context(), c.Param("id"), models.CustomerPatch{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		IsActive:     req.IsActive,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Customer updated successfully", toCustomer(customer))
}

func (h HandlerSet) DeleteCustomer(c *gin.Context) {
	if err := h.svc.Catalog.DeleteCustomer(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Customer deleted successfully", nil)
}

func (h HandlerSet) ListProcesses(c *gin.Context) {
	processes, err := h.svc.Catalog.ListProcesses(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]processResponse, 0, len(processes))
	for _, p := range processes {
		out = append(out, toProcess(p))
	}
	ok(c, "", out)
}

func (h HandlerSet) GetProcess(c *gin.Context) {
	process, err := h.svc.Catalog.GetProcess(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", toProcess(process))
}

type namedRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description" binding:"max=1000"`
}

type namedPatchRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=1000"`
}

func (h HandlerSet) CreateProcess(c *gin.Context) {
	var req namedRequest
	if !bindJSON(c, &req) {
		return
	}
	process, err := h.svc.Catalog.CreateProcess(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Process created successfully", toProcess(process))
}

func (h HandlerSet) UpdateProcess(c *gin.Context) {
	var req namedPatchRequest
	if !bindJSON(c, &req) {
		return
	}
	process, err := h.svc.Catalog.UpdateProcess(c.Request.Context(), c.Param("id"), models.ProcessPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Process updated successfully", toProcess(process))
}

func (h HandlerSet) DeleteProcess(c *gin.Context) {
	if err := h.svc.Catalog.DeleteProcess(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Process deleted successfully", nil)
}

func (h HandlerSet) ListActivities(c *gin.Context) {
	activities, err := h.svc.Catalog.ListActivities(c.Request.Context(), c.Query("processId"))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]activityResponse, 0, len(activities))
	for _, a := range activities {
		out = append(out, toActivity(a))
	}
	ok(c, "", out)
}

func (h HandlerSet) GetActivity(c *gin.Context) {
	activity, err := h.svc.Catalog.GetActivity(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "", toActivity(activity))
}

type activityRequest struct {
	ProcessID string `json:"processId" binding:"required"`
	namedRequest
}

func (h HandlerSet) CreateActivity(c *gin.Context) {
	var req activityRequest
	if !bindJSON(c, &req) {
		return
	}
	activity, err := h.svc.Catalog.CreateActivity(c.Request.Context(), models.Activity{
		ProcessID:   req.ProcessID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, "Activity created successfully", toActivity(activity))
}

func (h HandlerSet) UpdateActivity(c *gin.Context) {
	var req namedPatchRequest
	if !bindJSON(c, &req) {
		return
	}
	activity, err := h.svc.Catalog.UpdateActivity(c.Request.Context(), c.Param("id"), models.ActivityPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Activity updated successfully", toActivity(activity))
}

func (h HandlerSet) DeleteActivity(c *gin.Context) {
	if err := h.svc.Catalog.DeleteActivity(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, "Activity deleted successfully", nil)
}
