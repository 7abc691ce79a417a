// Package authz is the single place where ticketing permissions are
// decided. Services call these checks instead of comparing ids and roles
// inline.
package authz

import (
	"github.com/farellandr/blocktix/internal/models"
	"github.com/google/uuid"
)

// Actor is the authenticated caller as supplied by the identity provider.
type Actor struct {
	ID   uuid.UUID
	Role string
}

func (a Actor) Authenticated() bool {
	return a.ID != uuid.Nil
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) IsOrganizer() bool {
	return a.Role == models.RoleOrganizer
}

type Action string

const (
	ActionCreateEvent   Action = "event:create"
	ActionManageEvent   Action = "event:manage"
	ActionViewAttendees Action = "event:attendees"
	ActionViewDashboard Action = "dashboard:view"
	ActionPurchase      Action = "ticket:purchase"
	ActionViewTicket    Action = "ticket:view"
	ActionShowCode      Action = "ticket:code"
	ActionRedeem        Action = "ticket:redeem"
	ActionTransfer      Action = "ticket:transfer"
	ActionRefund        Action = "ticket:refund"
	ActionManageRoles   Action = "user:roles"
)

// Resource carries the ownership facts a decision may depend on. Fields
// that do not apply to an action are left zero.
type Resource struct {
	OrganizerID uuid.UUID
	HolderID    uuid.UUID
	BuyerID     uuid.UUID
}

// Can reports whether actor may perform action on res.
func Can(actor Actor, action Action, res Resource) bool {
	if !actor.Authenticated() {
		return false
	}

	switch action {
	case ActionCreateEvent, ActionViewDashboard:
		return actor.IsOrganizer() || actor.IsAdmin()
	case ActionManageEvent, ActionViewAttendees:
		return ownsEvent(actor, res) || actor.IsAdmin()
	case ActionPurchase:
		return actor.ID == res.BuyerID || actor.IsAdmin()
	case ActionViewTicket, ActionRedeem, ActionRefund:
		return actor.ID == res.HolderID || ownsEvent(actor, res) || actor.IsAdmin()
	case ActionTransfer, ActionShowCode:
		// Only the holder can give a ticket away or present it at the
		// door; admins and organizers cannot act as the holder.
		return actor.ID == res.HolderID
	case ActionManageRoles:
		return actor.IsAdmin()
	}
	return false
}

func ownsEvent(actor Actor, res Resource) bool {
	return res.OrganizerID != uuid.Nil && actor.ID == res.OrganizerID
}
