// Package access holds the authorization predicates for communities and tickets.
// Every function is pure: it only inspects already-loaded entities.
package access

import "github.com/spec-kit/discord-ticket-service/internal/domain"

// IsOwner reports whether actor owns the community.
func IsOwner(actor *domain.Actor, community *domain.Community) bool {
	if actor == nil || community == nil {
		return false
	}
	return actor.ID != "" && actor.ID == community.OwnerID
}

// IsModerator reports whether actor has staff rights on the community.
// The owner always qualifies even though it is not stored in the moderator set.
func IsModerator(actor *domain.Actor, community *domain.Community) bool {
	if IsOwner(actor, community) {
		return true
	}
	if actor == nil || community == nil || actor.ID == "" {
		return false
	}
	return community.HasModerator(actor.ID)
}

// CanViewCommunity gates the community dashboard.
func CanViewCommunity(actor *domain.Actor, community *domain.Community) bool {
	return IsModerator(actor, community)
}

// CanViewTicket allows staff and the ticket's own requester.
func CanViewTicket(actor *domain.Actor, ticket *domain.Ticket, community *domain.Community) bool {
	if IsModerator(actor, community) {
		return true
	}
	return actor != nil && ticket != nil && actor.ID != "" && actor.ID == ticket.ActorID
}

// CanManageTicket gates assignment, category changes, close/reopen and notes.
func CanManageTicket(actor *domain.Actor, community *domain.Community) bool {
	return IsModerator(actor, community)
}

// CanAdministerCommunity gates moderator and category roster changes.
func CanAdministerCommunity(actor *domain.Actor, community *domain.Community) bool {
	return IsOwner(actor, community)
}

// CanPostMessage requires view rights on an open ticket.
func CanPostMessage(actor *domain.Actor, ticket *domain.Ticket, community *domain.Community) bool {
	return CanViewTicket(actor, ticket, community) && ticket.IsOpen()
}
