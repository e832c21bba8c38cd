package domain

import (
	"errors"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen   TicketStatus = "open"
	TicketStatusClosed TicketStatus = "closed"
)

// DefaultCategory is always a valid ticket category, listed in the roster or not.
const DefaultCategory = "General"

var (
	ErrMissingActor     = errors.New("actor id is required")
	ErrMissingCommunity = errors.New("community id is required")
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return s == TicketStatusOpen || s == TicketStatusClosed
}

// Ticket is the aggregate for a support conversation between one actor and one community.
// ClosedAt and ClosedByID are set together on close and cleared together on reopen.
type Ticket struct {
	ID          string
	ActorID     string
	CommunityID string
	Category    string
	Status      TicketStatus
	AssigneeID  *string
	Messages    []TicketMessage
	Notes       []Note
	ClosedAt    *time.Time
	ClosedByID  *string
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTicket builds an open ticket carrying the requester's first message.
func NewTicket(actorID, communityID, category string, first TicketMessage) (*Ticket, error) {
	if actorID == "" {
		return nil, ErrMissingActor
	}
	if communityID == "" {
		return nil, ErrMissingCommunity
	}
	if category == "" {
		category = DefaultCategory
	}
	if first.Attachments == nil {
		first.Attachments = []AttachmentReference{}
	}
	return &Ticket{
		ActorID:     actorID,
		CommunityID: communityID,
		Category:    category,
		Status:      TicketStatusOpen,
		Messages:    []TicketMessage{first},
		Notes:       []Note{},
	}, nil
}

// IsOpen reports whether the ticket accepts messages.
func (t *Ticket) IsOpen() bool {
	return t.Status == TicketStatusOpen
}

// MarkClosed moves the ticket to closed and records who closed it.
func (t *Ticket) MarkClosed(actorID string, at time.Time) {
	t.Status = TicketStatusClosed
	t.ClosedAt = &at
	t.ClosedByID = &actorID
}

// MarkOpen moves the ticket back to open and clears the close markers.
func (t *Ticket) MarkOpen() {
	t.Status = TicketStatusOpen
	t.ClosedAt = nil
	t.ClosedByID = nil
}

// Clone returns a copy whose slices can be mutated without touching t.
func (t *Ticket) Clone() *Ticket {
	cp := *t
	cp.Messages = append([]TicketMessage(nil), t.Messages...)
	cp.Notes = append([]Note(nil), t.Notes...)
	if t.AssigneeID != nil {
		id := *t.AssigneeID
		cp.AssigneeID = &id
	}
	if t.ClosedAt != nil {
		at := *t.ClosedAt
		cp.ClosedAt = &at
	}
	if t.ClosedByID != nil {
		id := *t.ClosedByID
		cp.ClosedByID = &id
	}
	return &cp
}
