// Package policy holds the authorization rules shared by the HTTP layer and
// the services.
package policy

import (
	"fmt"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/models"
)

// RequireRole fails with a forbidden error unless actor ranks at least min.
func RequireRole(actor models.Role, min models.Role) error {
	if actor.AtLeast(min) {
		return nil
	}
	return apperr.Forbidden(fmt.Sprintf("Access denied: requires %s role or higher", min))
}

// CanViewUser reports whether actor may read data owned by subjectID.
func CanViewUser(actor models.User, subjectID string) error {
	if actor.ID == subjectID {
		return nil
	}
	return RequireRole(actor.Role, models.RoleManager)
}

// CanDeactivate guards against an admin locking themselves out.
func CanDeactivate(actor models.User, targetID string) error {
	if actor.ID == targetID {
		return apperr.Conflict("You cannot deactivate your own account")
	}
	return nil
}

// CanDelete applies the self-deletion and last-admin rules. activeAdmins is
// the number of active admins including target.
func CanDelete(actor models.User, target models.User, activeAdmins int) error {
	if actor.ID == target.ID {
		return apperr.Conflict("You cannot delete your own account")
	}
	return keepsAnAdmin(target, activeAdmins, "Cannot delete the last remaining admin")
}

// CanChangeRoleOrStatus rejects edits that would leave no active admin.
func CanChangeRoleOrStatus(target models.User, patch models.UserPatch, activeAdmins int) error {
	demoted := patch.Role != nil && *patch.Role != models.RoleAdmin
	deactivated := patch.IsActive != nil && !*patch.IsActive
	if !demoted && !deactivated {
		return nil
	}
	return keepsAnAdmin(target, activeAdmins, "Cannot demote or deactivate the last remaining admin")
}

func keepsAnAdmin(target models.User, activeAdmins int, message string) error {
	if target.Role == models.RoleAdmin && target.IsActive && activeAdmins <= 1 {
		return apperr.Conflict(message)
	}
	return nil
}
