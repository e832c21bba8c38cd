package events

import (
	"time"

	"github.com/spec-kit/discord-ticket-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketMessageAdded    EventType = "ticket_message_added"
	EventTicketNoteAdded       EventType = "ticket_note_added"
	EventTicketCategoryChanged EventType = "ticket_category_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
)

// Event represents a domain event emitted by services after a write commits.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	TicketID    string      `json:"ticket_id"`
	CommunityID string      `json:"community_id"`
	RequesterID string      `json:"requester_id"`
	ActorID     string      `json:"actor_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category string `json:"category"`
	Source   string `json:"source"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	SenderID        string `json:"sender_id"`
	BodyPreview     string `json:"body_preview"`
	AttachmentCount int    `json:"attachment_count"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	AuthorID string `json:"author_id"`
}

// TicketCategoryChangedPayload payload.
type TicketCategoryChangedPayload struct {
	OldCategory string `json:"old_category"`
	NewCategory string `json:"new_category"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OldAssigneeID *string `json:"old_assignee_id,omitempty"`
	NewAssigneeID *string `json:"new_assignee_id,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}
