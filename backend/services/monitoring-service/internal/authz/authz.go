// Package authz holds the capability table and the request actor.
package authz

import (
	"context"

	"envmonitor/backend/services/monitoring-service/internal/models"
)

// Action is a capability a role may hold.
type Action string

const (
	ActionResolveAlert  Action = "alerts:resolve"
	ActionDismissAlert  Action = "alerts:dismiss"
	ActionManageCatalog Action = "catalog:manage"
	ActionManageUsers   Action = "users:manage"
)

// staff is every known role; any signed-in operator may work alerts and the
// catalog.
var staff = map[models.Role]struct{}{
	models.RoleAdmin:      {},
	models.RoleManager:    {},
	models.RoleResearcher: {},
	models.RoleTechnician: {},
}

var capabilities = map[Action]map[models.Role]struct{}{
	ActionResolveAlert:  staff,
	ActionDismissAlert:  staff,
	ActionManageCatalog: staff,
	ActionManageUsers:   {models.RoleAdmin: {}},
}

// Can reports whether role is allowed to perform action. Unknown roles and
// actions are denied.
func Can(role models.Role, action Action) bool {
	roles, ok := capabilities[action]
	if !ok {
		return false
	}
	_, ok = roles[role]
	return ok
}

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID string
	Role   models.Role
}

// Can is shorthand for Can(a.Role, action).
func (a Actor) Can(action Action) bool {
	return a.UserID != "" && Can(a.Role, action)
}

type actorKey struct{}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor.
func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
