package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/discord-ticket-service/internal/api/dto"
	"github.com/spec-kit/discord-ticket-service/internal/auth"
	"github.com/spec-kit/discord-ticket-service/internal/domain"
	"github.com/spec-kit/discord-ticket-service/internal/service"
	apperrors "github.com/spec-kit/discord-ticket-service/pkg/util/errorutil"
)

// ServersHandler exposes community administration endpoints.
type ServersHandler struct {
	communities *service.CommunityService
}

// NewServersHandler constructs handler.
func NewServersHandler(communityService *service.CommunityService) *ServersHandler {
	return &ServersHandler{communities: communityService}
}

// List handles GET /api/servers.
func (h *ServersHandler) List(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	communities, err := h.communities.ListCommunities(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewCommunitySummaries(communities))
}

// Get handles GET /api/servers/:serverId.
func (h *ServersHandler) Get(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	community, err := h.communities.GetCommunity(c.UserContext(), caller, c.Params("serverId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewCommunityResponse(community))
}

// AddModerator handles POST /api/servers/:serverId/moderators.
func (h *ServersHandler) AddModerator(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AddModeratorRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	serverID := c.Params("serverId")
	var result *domain.Community
	switch {
	case strings.TrimSpace(req.ActorID) != "":
		result, err = h.communities.AddModerator(c.UserContext(), caller, serverID, req.ActorID)
	case strings.TrimSpace(req.ExternalID) != "":
		result, err = h.communities.AddModeratorByExternalID(c.UserContext(), caller, serverID, req.ExternalID)
	default:
		return apperrors.NewValidationError("actor_id or discord_id required", nil)
	}
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewCommunityResponse(result))
}

// RemoveModerator handles DELETE /api/servers/:serverId/moderators/:moderatorId.
func (h *ServersHandler) RemoveModerator(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	community, err := h.communities.RemoveModerator(c.UserContext(), caller, c.Params("serverId"), c.Params("moderatorId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewCommunityResponse(community))
}

// AddCategory handles POST /api/servers/:serverId/categories.
func (h *ServersHandler) AddCategory(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AddCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	community, err := h.communities.AddCategory(c.UserContext(), caller, c.Params("serverId"), service.CategoryInput{
		Name:     req.Name,
		ColorTag: req.Color,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewCommunityResponse(community))
}

// RemoveCategory handles DELETE /api/servers/:serverId/categories/:categoryId.
func (h *ServersHandler) RemoveCategory(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	community, err := h.communities.RemoveCategory(c.UserContext(), caller, c.Params("serverId"), c.Params("categoryId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewCommunityResponse(community))
}
