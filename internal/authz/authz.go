// Package authz centralizes the role and ownership predicates that gate task
// mutations. Every call site goes through these functions so the
// member/manager asymmetry on completion cannot drift between endpoints.
package authz

import (
	"github.com/taskdeck/taskdeck-api/internal/models"
)

// ActorContext identifies the authenticated user performing an operation.
// It is always passed explicitly; nothing in the engine reads session state.
type ActorContext struct {
	ID   uint64
	Role models.Role
}

// IsManagement reports whether the actor holds an admin or manager role.
func (a ActorContext) IsManagement() bool {
	return a.Role == models.RoleAdmin || a.Role == models.RoleManager
}

// CanModify reports whether the actor may start or hold the task: management
// roles always may, members only on tasks assigned to them.
func CanModify(actor ActorContext, task *models.Task) bool {
	if actor.IsManagement() {
		return true
	}
	return task.AssignedTo != nil && *task.AssignedTo == actor.ID
}

// CanComplete reports whether the actor may complete a task. Only admins and
// managers may; a member never self-completes, even on their own task.
func CanComplete(actor ActorContext) bool {
	return actor.IsManagement()
}

// CanManage reports whether the actor may create or delete tasks and projects.
func CanManage(actor ActorContext) bool {
	return actor.IsManagement()
}
