package dto

import (
	"time"

	"github.com/spec-kit/discord-ticket-service/internal/domain"
)

// ActorResponse is the public shape of an actor. Notes are only set for staff viewers and
// Email only for the actor itself.
type ActorResponse struct {
	ID          string        `json:"id"`
	DiscordID   string        `json:"discord_id"`
	DisplayName string        `json:"username"`
	AvatarRef   *string       `json:"avatar"`
	Email       *string       `json:"email,omitempty"`
	Notes       []domain.Note `json:"notes,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// MeResponse is the caller's own profile.
type MeResponse struct {
	Actor       ActorResponse      `json:"user"`
	Communities []CommunitySummary `json:"servers"`
}

// ActorProfileResponse is an actor with its visible tickets.
type ActorProfileResponse struct {
	Actor   ActorResponse   `json:"user"`
	Tickets []TicketSummary `json:"tickets"`
}

// AddNoteRequest payload.
type AddNoteRequest struct {
	Content string `json:"content"`
}

// NewActorResponse maps an actor as seen by someone else: the email is withheld.
func NewActorResponse(actor *domain.Actor) ActorResponse {
	return ActorResponse{
		ID:          actor.ID,
		DiscordID:   actor.ExternalID,
		DisplayName: actor.DisplayName,
		AvatarRef:   actor.AvatarRef,
		Notes:       actor.Notes,
		CreatedAt:   actor.CreatedAt,
	}
}

// NewOwnActorResponse maps the caller's own record, including its email.
func NewOwnActorResponse(actor *domain.Actor) ActorResponse {
	resp := NewActorResponse(actor)
	resp.Email = actor.Email
	return resp
}
