package domain

import (
	"errors"
	"strings"
	"time"
)

// ErrMissingOwner is returned when a community is built without an owner.
var ErrMissingOwner = errors.New("owner id is required")

// Community is a registered Discord guild.
// The owner is never stored in ModeratorIDs.
type Community struct {
	ID               string
	ExternalID       string
	DisplayName      string
	IconRef          *string
	OwnerID          string
	ModeratorIDs     []string
	TicketCategories []TicketCategory
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TicketCategory is an entry in a community's category roster. Names are not unique.
type TicketCategory struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ColorTag string `json:"color"`
}

// Validate checks construction invariants.
func (c *Community) Validate() error {
	if strings.TrimSpace(c.ExternalID) == "" {
		return ErrMissingExternalID
	}
	if c.OwnerID == "" {
		return ErrMissingOwner
	}
	return nil
}

// HasModerator reports whether actorID is in the stored moderator set.
func (c *Community) HasModerator(actorID string) bool {
	for _, id := range c.ModeratorIDs {
		if id == actorID {
			return true
		}
	}
	return false
}

// HasCategoryName reports whether a roster entry carries name.
func (c *Community) HasCategoryName(name string) bool {
	for _, cat := range c.TicketCategories {
		if cat.Name == name {
			return true
		}
	}
	return false
}

// Clone returns a copy whose rosters can be mutated without touching c.
func (c *Community) Clone() *Community {
	cp := *c
	cp.ModeratorIDs = append([]string(nil), c.ModeratorIDs...)
	cp.TicketCategories = append([]TicketCategory(nil), c.TicketCategories...)
	if c.IconRef != nil {
		icon := *c.IconRef
		cp.IconRef = &icon
	}
	return &cp
}
