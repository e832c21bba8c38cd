package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrMissingExternalID is returned when an entity lacks its Discord identifier.
var ErrMissingExternalID = errors.New("external id is required")

// Actor is a registered Discord user, either a ticket requester or community staff.
type Actor struct {
	ID          string
	ExternalID  string
	DisplayName string
	AvatarRef   *string
	Email       *string
	Notes       []Note
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Note is a staff-authored annotation. Notes are append-only.
type Note struct {
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks construction invariants.
func (a *Actor) Validate() error {
	if strings.TrimSpace(a.ExternalID) == "" {
		return ErrMissingExternalID
	}
	return nil
}

// RefreshProfile overwrites the fields the identity provider owns.
func (a *Actor) RefreshProfile(displayName string, avatarRef, email *string) {
	a.DisplayName = displayName
	a.AvatarRef = avatarRef
	a.Email = email
}

// Clone returns a copy whose notes can be mutated without touching a.
func (a *Actor) Clone() *Actor {
	cp := *a
	cp.Notes = append([]Note(nil), a.Notes...)
	if a.AvatarRef != nil {
		avatar := *a.AvatarRef
		cp.AvatarRef = &avatar
	}
	if a.Email != nil {
		email := *a.Email
		cp.Email = &email
	}
	return &cp
}
