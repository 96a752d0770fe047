// Package policy decides whether an authenticated user may perform an action.
// Every check is pure: it looks only at the user and the resource it is given.
package policy

import (
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhub/taskhub-api/internal/apperr"
	"github.com/taskhub/taskhub-api/internal/models"
)

// Roles is a role requirement. An empty set allows any authenticated user.
type Roles []models.Role

// Allows reports whether role satisfies the requirement.
func (r Roles) Allows(role models.Role) bool {
	if len(r) == 0 {
		return true
	}
	for _, want := range r {
		if want == role {
			return true
		}
	}
	return false
}

// writers is every role except READ_ONLY_USER.
var writers = Roles{models.RoleAdmin, models.RoleTaskCreator, models.RoleUser}

// Rules maps "METHOD /route" (gin route pattern relative to the API base)
// to the roles allowed to call it. Routes not listed need only authentication.
// READ_ONLY_USER may read everything but write no project or task; it may
// still edit its own profile.
var Rules = map[string]Roles{
	"GET /users":        {models.RoleAdmin, models.RoleTaskCreator},
	"POST /users":       {models.RoleAdmin},
	"DELETE /users/:id": {models.RoleAdmin},

	"POST /projects":                       writers,
	"PUT /projects/:id":                    writers,
	"DELETE /projects/:id":                 writers,
	"POST /projects/:id/members":           writers,
	"DELETE /projects/:id/members/:userId": writers,

	"POST /tasks":                 writers,
	"PUT /tasks/:id":              writers,
	"DELETE /tasks/:id":           writers,
	"POST /tasks/:id/attachments": writers,
}

// Authorize is the role gate.
func Authorize(u *models.User, required Roles) error {
	if u == nil || !required.Allows(u.Role) {
		return apperr.Forbidden(apperr.MsgNoPermission)
	}
	return nil
}

// Task and project actions, used in denial messages.
const (
	ActionUpdate        = "update"
	ActionDelete        = "delete"
	ActionManageMembers = "manage members of"
	ActionAttach        = "attach files to"
)

// AuthorizeTask allows the task owner, its assignee, or an ADMIN.
func AuthorizeTask(u *models.User, t *models.Task, action string) error {
	if u != nil && t != nil && (u.IsAdmin() || t.OwnerID == u.ID || t.AssigneeID == u.ID) {
		return nil
	}
	return apperr.Forbidden("Not authorized to " + action + " this task")
}

// AuthorizeProject allows the project owner or an ADMIN.
func AuthorizeProject(u *models.User, p *models.Project, action string) error {
	if u != nil && p != nil && (u.IsAdmin() || p.OwnerID == u.ID) {
		return nil
	}
	return apperr.Forbidden("Not authorized to " + action + " this project")
}

// AuthorizeUserUpdate allows users to edit themselves and ADMINs to edit
// anyone. Only an ADMIN may change a role or the login identity (email and
// emailVerified), including their own: logins resolve users by email.
func AuthorizeUserUpdate(actor *models.User, target primitive.ObjectID, changesRole, changesIdentity bool) error {
	if actor == nil {
		return apperr.Forbidden(apperr.MsgNoPermission)
	}
	if actor.IsAdmin() {
		return nil
	}
	if changesRole || changesIdentity {
		return apperr.Forbidden(apperr.MsgNoPermission)
	}
	if actor.ID != target {
		return apperr.Forbidden("Not authorized to update this user")
	}
	return nil
}
