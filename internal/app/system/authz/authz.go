// Package authz holds the ownership and role rules for mutating records.
package authz

import (
	"github.com/dalemusser/hearth/internal/app/system/auth"
	"github.com/dalemusser/hearth/internal/domain/models"
)

// IsAdmin reports whether id carries the admin role.
func IsAdmin(id auth.Identity) bool {
	return id.IsAdmin
}

// CanModifyEvent allows the event's creator and admins.
func CanModifyEvent(id auth.Identity, ev models.Event) bool {
	return id.IsAdmin || (!ev.CreatedBy.IsZero() && ev.CreatedBy == id.ID)
}

// CanCompleteTask allows the task's assignee and admins. Unassigned tasks
// can only be completed by an admin, and the completion still needs an
// assignee to credit (checked by the caller).
func CanCompleteTask(id auth.Identity, t models.Task) bool {
	if id.IsAdmin {
		return true
	}
	return t.AssignedTo != nil && *t.AssignedTo == id.ID
}

// CanEditUser allows admins and the user themself.
func CanEditUser(id auth.Identity, userID string) bool {
	return id.IsAdmin || id.ID.Hex() == userID
}
