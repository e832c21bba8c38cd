package domain

import "time"

// TicketMessage captures one entry in a ticket thread.
type TicketMessage struct {
	Content     string                `json:"content"`
	SenderID    string                `json:"sender_id"`
	Attachments []AttachmentReference `json:"attachments"`
	CreatedAt   time.Time             `json:"created_at"`
}

// AttachmentReference is an opaque pointer to a file hosted by the chat network.
type AttachmentReference struct {
	Ref      string `json:"url"`
	FileName string `json:"filename"`
}
