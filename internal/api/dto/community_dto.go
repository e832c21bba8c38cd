package dto

import (
	"time"

	"github.com/spec-kit/discord-ticket-service/internal/domain"
)

// CommunitySummary is a community in list views.
type CommunitySummary struct {
	ID          string  `json:"id"`
	DiscordID   string  `json:"discord_id"`
	DisplayName string  `json:"name"`
	IconRef     *string `json:"icon"`
	OwnerID     string  `json:"owner_id"`
}

// CommunityResponse is the full community view.
type CommunityResponse struct {
	CommunitySummary
	ModeratorIDs     []string                `json:"moderators"`
	TicketCategories []domain.TicketCategory `json:"ticket_categories"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// AddModeratorRequest identifies the actor to promote by internal or Discord id.
type AddModeratorRequest struct {
	ActorID    string `json:"actor_id"`
	ExternalID string `json:"discord_id"`
}

// AddCategoryRequest payload.
type AddCategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// NewCommunitySummary maps a domain community.
func NewCommunitySummary(c *domain.Community) CommunitySummary {
	return CommunitySummary{
		ID:          c.ID,
		DiscordID:   c.ExternalID,
		DisplayName: c.DisplayName,
		IconRef:     c.IconRef,
		OwnerID:     c.OwnerID,
	}
}

// NewCommunitySummaries maps a slice.
func NewCommunitySummaries(communities []domain.Community) []CommunitySummary {
	out := make([]CommunitySummary, 0, len(communities))
	for i := range communities {
		out = append(out, NewCommunitySummary(&communities[i]))
	}
	return out
}

// NewCommunityResponse maps a domain community with its rosters.
func NewCommunityResponse(c *domain.Community) CommunityResponse {
	moderators := c.ModeratorIDs
	if moderators == nil {
		moderators = []string{}
	}
	categories := c.TicketCategories
	if categories == nil {
		categories = []domain.TicketCategory{}
	}
	return CommunityResponse{
		CommunitySummary: NewCommunitySummary(c),
		ModeratorIDs:     moderators,
		TicketCategories: categories,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}
