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

// TicketsHandler manages ticket endpoints for requesters and staff.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if strings.TrimSpace(req.CommunityID) == "" {
		return apperrors.NewValidationError("server_id required", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), caller, service.TicketCreateInput{
		CommunityID:    req.CommunityID,
		Category:       req.Category,
		InitialMessage: req.InitialMessage,
		Attachments:    dto.ToAttachments(req.Attachments),
		Source:         service.SourceDashboard,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewTicketDetail(ticket))
}

// ListMine GET /api/tickets/mine.
func (h *TicketsHandler) ListMine(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	limit, offset := parsePage(c)
	tickets, err := h.service.ListOwnTickets(c.UserContext(), caller, limit, offset)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketSummaries(tickets))
}

// ListByServer GET /api/tickets/server/:serverId.
func (h *TicketsHandler) ListByServer(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	limit, offset := parsePage(c)
	filter := service.TicketListFilter{Limit: limit, Offset: offset}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		s := domain.TicketStatus(status)
		filter.Status = &s
	}
	tickets, err := h.service.ListCommunityTickets(c.UserContext(), caller, c.Params("serverId"), filter)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketSummaries(tickets))
}

// SearchByUser GET /api/tickets/server/:serverId/user?discord_id=.
func (h *TicketsHandler) SearchByUser(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.SearchTicketsByExternalID(c.UserContext(), caller, c.Params("serverId"), c.Query("discord_id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketSummaries(tickets))
}

// GetTicket GET /api/tickets/:ticketId.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	ticket, _, err := h.service.GetTicket(c.UserContext(), caller, c.Params("ticketId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketDetail(ticket))
}

// AddMessage POST /api/tickets/:ticketId/messages.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.AppendMessage(c.UserContext(), caller, c.Params("ticketId"), service.MessageInput{
		Content:     req.Content,
		Attachments: dto.ToAttachments(req.Attachments),
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewTicketDetail(ticket))
}

// AddNote POST /api/tickets/:ticketId/notes.
func (h *TicketsHandler) AddNote(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AddNoteRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.AppendNote(c.UserContext(), caller, c.Params("ticketId"), req.Content)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, dto.NewTicketDetail(ticket))
}

// Assign PUT /api/tickets/:ticketId/assign.
func (h *TicketsHandler) Assign(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.Assign(c.UserContext(), caller, c.Params("ticketId"), req.AssigneeID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketDetail(ticket))
}

// ChangeCategory PUT /api/tickets/:ticketId/category.
func (h *TicketsHandler) ChangeCategory(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	var req dto.ChangeCategoryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	ticket, err := h.service.ChangeCategory(c.UserContext(), caller, c.Params("ticketId"), req.Category)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketDetail(ticket))
}

// Close PUT /api/tickets/:ticketId/close.
func (h *TicketsHandler) Close(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Close(c.UserContext(), caller, c.Params("ticketId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketDetail(ticket))
}

// Reopen PUT /api/tickets/:ticketId/reopen.
func (h *TicketsHandler) Reopen(c *fiber.Ctx) error {
	caller, err := auth.ActorFromContext(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Reopen(c.UserContext(), caller, c.Params("ticketId"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, dto.NewTicketDetail(ticket))
}
