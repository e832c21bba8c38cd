package dto

import (
	"time"

	"github.com/spec-kit/discord-ticket-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CommunityID    string              `json:"server_id"`
	Category       string              `json:"category"`
	InitialMessage string              `json:"initial_message"`
	Attachments    []AttachmentPayload `json:"attachments"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Content     string              `json:"content"`
	Attachments []AttachmentPayload `json:"attachments"`
}

// AttachmentPayload references a file hosted on the Discord CDN.
type AttachmentPayload struct {
	URL      string `json:"url"`
	FileName string `json:"filename"`
}

// AssignRequest payload. A null assignee clears the assignment.
type AssignRequest struct {
	AssigneeID *string `json:"assignee_id"`
}

// ChangeCategoryRequest payload.
type ChangeCategoryRequest struct {
	Category string `json:"category"`
}

// TicketSummary response.
type TicketSummary struct {
	ID           string              `json:"id"`
	ActorID      string              `json:"user_id"`
	CommunityID  string              `json:"server_id"`
	Category     string              `json:"category"`
	Status       domain.TicketStatus `json:"status"`
	AssigneeID   *string             `json:"assigned_to"`
	MessageCount int                 `json:"message_count"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	ClosedAt     *time.Time          `json:"closed_at"`
}

// TicketDetailResponse provides full ticket info. Notes are omitted for non-staff viewers.
type TicketDetailResponse struct {
	TicketSummary
	ClosedByID *string                 `json:"closed_by"`
	Messages   []TicketMessageResponse `json:"messages"`
	Notes      []domain.Note           `json:"notes,omitempty"`
}

// TicketMessageResponse represents a conversation message.
type TicketMessageResponse struct {
	Content     string              `json:"content"`
	SenderID    string              `json:"sender_id"`
	Attachments []AttachmentPayload `json:"attachments"`
	CreatedAt   time.Time           `json:"created_at"`
}

// ToAttachments maps request attachments to domain references.
func ToAttachments(in []AttachmentPayload) []domain.AttachmentReference {
	out := make([]domain.AttachmentReference, 0, len(in))
	for _, a := range in {
		out = append(out, domain.AttachmentReference{Ref: a.URL, FileName: a.FileName})
	}
	return out
}

// NewTicketSummary maps a domain ticket.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:           t.ID,
		ActorID:      t.ActorID,
		CommunityID:  t.CommunityID,
		Category:     t.Category,
		Status:       t.Status,
		AssigneeID:   t.AssigneeID,
		MessageCount: len(t.Messages),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		ClosedAt:     t.ClosedAt,
	}
}

// NewTicketSummaries maps a slice.
func NewTicketSummaries(tickets []domain.Ticket) []TicketSummary {
	out := make([]TicketSummary, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketSummary(&tickets[i]))
	}
	return out
}

// NewTicketDetail maps a domain ticket with its conversation.
func NewTicketDetail(t *domain.Ticket) TicketDetailResponse {
	msgs := make([]TicketMessageResponse, 0, len(t.Messages))
	for _, m := range t.Messages {
		atts := make([]AttachmentPayload, 0, len(m.Attachments))
		for _, a := range m.Attachments {
			atts = append(atts, AttachmentPayload{URL: a.Ref, FileName: a.FileName})
		}
		msgs = append(msgs, TicketMessageResponse{
			Content:     m.Content,
			SenderID:    m.SenderID,
			Attachments: atts,
			CreatedAt:   m.CreatedAt,
		})
	}
	return TicketDetailResponse{
		TicketSummary: NewTicketSummary(t),
		ClosedByID:    t.ClosedByID,
		Messages:      msgs,
		Notes:         t.Notes,
	}
}
