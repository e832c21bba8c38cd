package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/discord-ticket-service/internal/api/dto"
	"github.com/spec-kit/discord-ticket-service/internal/auth"
	"github.com/spec-kit/discord-ticket-service/internal/service"
)

// UsersHandler exposes actor profile endpoints.
type UsersHandler struct {
	actors *service.ActorService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(actorService *service.ActorService) *UsersHandler {
	return &UsersHandler{actors: actorService}
}

// Me handles GET /api/users/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	me, communities, err := h.actors.GetMe(c.UserContext(), caller)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.MeResponse{
		Actor:       dto.NewOwnActorResponse(me),
		Communities: dto.NewCommunitySummaries(communities),
	})
}

// Profile handles GET /api/users/:userId.
func (h *UsersHandler) Profile(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	profile, err := h.actors.GetActorProfile(c.UserContext(), caller, c.Params("userId"))
	if err != nil {
		return err
	}
	actor := dto.NewActorResponse(profile.Actor)
	if profile.Actor.ID == caller.ID {
		actor = dto.NewOwnActorResponse(profile.Actor)
	}
	return respond(c, fiber.StatusOK, dto.ActorProfileResponse{
		Actor:   actor,
		Tickets: dto.NewTicketSummaries(profile.Tickets),
	})
}

// AddNote handles POST /api/users/:userId/notes.
func (h *UsersHandler) AddNote(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AddNoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	actor, err := h.actors.AddActorNote(c.UserContext(), caller, c.Params("userId"), req.Content)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewActorResponse(actor))
}
