package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/discord-ticket-service/internal/api/dto"
	"github.com/spec-kit/discord-ticket-service/internal/auth"
	"github.com/spec-kit/discord-ticket-service/internal/service"
)

// AuthHandler exposes the Discord login endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// AuthorizeURL handles GET /api/auth/discord/url.
func (h *AuthHandler) AuthorizeURL(c *fiber.Ctx) error {
	url, state, err := h.auth.AuthorizeURL()
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.AuthorizeURLResponse{URL: url, State: state})
}

// Login handles POST /api/auth/discord/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.DiscordLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	result, err := h.auth.LoginWithCode(c.UserContext(), req.Code, req.State)
	if err != nil {
		return err
	}
	actor := *result.Actor
	actor.Notes = nil
	return respond(c, fiber.StatusOK, dto.LoginResponse{
		Actor:       dto.NewOwnActorResponse(&actor),
		Communities: dto.NewCommunitySummaries(result.Communities),
		Auth:        dto.AuthResponse{Token: result.Token, ExpiresAt: result.ExpiresAt},
	})
}

// Check handles GET /api/auth/check behind the auth middleware.
func (h *AuthHandler) Check(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	actor := *caller
	actor.Notes = nil
	return respond(c, fiber.StatusOK, fiber.Map{
		"valid": true,
		"user":  dto.NewOwnActorResponse(&actor),
	})
}
