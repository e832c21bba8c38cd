package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/discord-ticket-service/internal/access"
	"github.com/spec-kit/discord-ticket-service/internal/domain"
	"github.com/spec-kit/discord-ticket-service/internal/events"
	"github.com/spec-kit/discord-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/discord-ticket-service/pkg/util/errorutil"
)

// Ticket sources recorded on the created event.
const (
	SourceDashboard     = "dashboard"
	SourceDirectMessage = "direct_message"
)

const previewLength = 120

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets     repository.TicketRepository
	communities repository.CommunityRepository
	actors      repository.ActorRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo    repository.TicketRepository
	CommunityRepo repository.CommunityRepository
	ActorRepo     repository.ActorRepository
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Clock         func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	CommunityID    string
	Category       string
	InitialMessage string
	Attachments    []domain.AttachmentReference
	Source         string
}

// MessageInput is the body of a conversation message.
type MessageInput struct {
	Content     string
	Attachments []domain.AttachmentReference
}

// TicketListFilter narrows community listings.
type TicketListFilter struct {
	Status *domain.TicketStatus
	Limit  int
	Offset int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &TicketService{
		tickets:     deps.TicketRepo,
		communities: deps.CommunityRepo,
		actors:      deps.ActorRepo,
		dispatcher:  deps.Dispatcher,
		logger:      nopLogger(deps.Logger),
		now:         clock,
	}
}

// CreateTicket opens a ticket for the caller in the given community.
func (s *TicketService) CreateTicket(ctx context.Context, caller *domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if _, err := s.actors.GetByID(ctx, caller.ID); err != nil {
		return nil, notFoundOr(err, "actor", map[string]any{"actor_id": caller.ID})
	}
	community, err := s.communities.GetByID(ctx, input.CommunityID)
	if err != nil {
		return nil, notFoundOr(err, "community", map[string]any{"community_id": input.CommunityID})
	}
	msg, err := s.buildMessage(caller.ID, MessageInput{Content: input.InitialMessage, Attachments: input.Attachments})
	if err != nil {
		return nil, err
	}
	existing, err := s.tickets.FindOpen(ctx, caller.ID, community.ID)
	switch {
	case err == nil:
		return nil, apperrors.NewConflict("an open ticket already exists for this community",
			map[string]any{"ticket_id": existing.ID})
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.MapError(err)
	}
	ticket, err := domain.NewTicket(caller.ID, community.ID, strings.TrimSpace(input.Category), msg)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, mapCreateTicketError(err)
	}

	source := input.Source
	if source == "" {
		source = SourceDashboard
	}
	publish(ctx, s.dispatcher, s.logger, ticketEvent(events.EventTicketCreated, ticket, caller.ID, events.TicketCreatedPayload{
		Category: ticket.Category,
		Source:   source,
	}))
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("community_id", ticket.CommunityID),
		zap.String("source", source))
	return ticket, nil
}

// GetTicket returns a ticket visible to the caller. Notes are stripped unless the caller is staff.
func (s *TicketService) GetTicket(ctx context.Context, caller *domain.Actor, ticketID string) (*domain.Ticket, *domain.Community, error) {
	ticket, community, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !access.CanViewTicket(caller, ticket, community) {
		return nil, nil, apperrors.NewForbidden("you cannot view this ticket")
	}
	if !access.CanManageTicket(caller, community) {
		ticket.Notes = nil
	}
	return ticket, community, nil
}

// ListCommunityTickets lists the community's tickets for its staff.
func (s *TicketService) ListCommunityTickets(ctx context.Context, caller *domain.Actor, communityID string, filter TicketListFilter) ([]domain.Ticket, error) {
	community, err := s.staffCommunity(ctx, caller, communityID)
	if err != nil {
		return nil, err
	}
	repoFilter := repository.TicketFilter{
		CommunityID: &community.ID,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	if filter.Status != nil {
		if !filter.Status.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": *filter.Status})
		}
		repoFilter.Statuses = []domain.TicketStatus{*filter.Status}
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// SearchTicketsByExternalID lists a community's tickets opened by the actor with the given Discord id.
func (s *TicketService) SearchTicketsByExternalID(ctx context.Context, caller *domain.Actor, communityID, externalID string) ([]domain.Ticket, error) {
	community, err := s.staffCommunity(ctx, caller, communityID)
	if err != nil {
		return nil, err
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, apperrors.NewValidationError("discord_id is required", nil)
	}
	target, err := s.actors.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, notFoundOr(err, "actor", map[string]any{"external_id": externalID})
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		ActorID:     &target.ID,
		CommunityID: &community.ID,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// ListOwnTickets lists tickets the caller opened, across all communities.
func (s *TicketService) ListOwnTickets(ctx context.Context, caller *domain.Actor, limit, offset int) ([]domain.Ticket, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		ActorID: &caller.ID,
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range tickets {
		tickets[i].Notes = nil
	}
	return tickets, nil
}

// AppendMessage adds a conversation message. Closed tickets reject messages from everyone.
func (s *TicketService) AppendMessage(ctx context.Context, caller *domain.Actor, ticketID string, input MessageInput) (*domain.Ticket, error) {
	ticket, community, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !access.CanPostMessage(caller, ticket, community) {
		if !access.CanViewTicket(caller, ticket, community) {
			return nil, apperrors.NewForbidden("you cannot post on this ticket")
		}
		return nil, apperrors.NewInvalidState("ticket is closed", map[string]any{"ticket_id": ticket.ID})
	}
	msg, err := s.buildMessage(caller.ID, input)
	if err != nil {
		return nil, err
	}

	updated := ticket.Clone()
	updated.Messages = append(updated.Messages, msg)
	if err := s.tickets.Update(ctx, updated); err != nil {
		return nil, mapWriteError(err, "ticket")
	}
	publish(ctx, s.dispatcher, s.logger, ticketEvent(events.EventTicketMessageAdded, updated, caller.ID, events.TicketMessageAddedPayload{
		SenderID:        caller.ID,
		BodyPreview:     stringPreview(msg.Content, previewLength),
		AttachmentCount: len(msg.Attachments),
	}))
	return s.viewFor(caller, updated, community), nil
}

// AppendNote adds a staff-only note.
func (s *TicketService) AppendNote(ctx context.Context, caller *domain.Actor, ticketID, content string) (*domain.Ticket, error) {
	ticket, community, err := s.managedTicket(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("note content is required", nil)
	}

	updated := ticket.Clone()
	updated.Notes = append(updated.Notes, domain.Note{
		Content:   content,
		AuthorID:  caller.ID,
		CreatedAt: s.now(),
	})
	if err := s.tickets.Update(ctx, updated); err != nil {
		return nil, mapWriteError(err, "ticket")
	}
	publish(ctx, s.dispatcher, s.logger, ticketEvent(events.EventTicketNoteAdded, updated, caller.ID, events.TicketNoteAddedPayload{
		AuthorID: caller.ID,
	}))
	return s.viewFor(caller, updated, community), nil
}

// ChangeCategory moves a ticket to the default category or one the community defines.
func (s *TicketService) ChangeCategory(ctx context.Context, caller *domain.Actor, ticketID, category string) (*domain.Ticket, error) {
	ticket, community, err := s.managedTicket(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, apperrors.NewValidationError("category is required", nil)
	}
	if category != domain.DefaultCategory && !community.HasCategoryName(category) {
		return nil, apperrors.NewNotFound("category", map[string]any{"category": category})
	}
	if ticket.Category == category {
		return s.viewFor(caller, ticket, community), nil
	}

	old := ticket.Category
	updated := ticket.Clone()
	updated.Category = category
	if err := s.tickets.Update(ctx, updated); err != nil {
		return nil, mapWriteError(err, "ticket")
	}
	publish(ctx, s.dispatcher, s.logger, ticketEvent(events.EventTicketCategoryChanged, updated, caller.ID, events.TicketCategoryChangedPayload{
		OldCategory: old,
		NewCategory: category,
	}))
	return s.viewFor(caller, updated, community), nil
}

// Assign sets or clears the ticket's staff assignee. A nil assigneeID clears it.
func (s *TicketService) Assign(ctx context.Context, caller *domain.Actor, ticketID string, assigneeID *string) (*domain.Ticket, error) {
	ticket, community, err := s.managedTicket(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}
	if assigneeID != nil && *assigneeID == "" {
		assigneeID = nil
	}
	if assigneeID != nil {
		assignee, err := s.actors.GetByID(ctx, *assigneeID)
		if err != nil {
			return nil, notFoundOr(err, "assignee", map[string]any{"assignee_id": *assigneeID})
		}
		if !access.IsModerator(assignee, community) {
			return nil, apperrors.NewForbidden("assignee is not staff of this community")
		}
	}

	old := ticket.AssigneeID
	updated := ticket.Clone()
	updated.AssigneeID = assigneeID
	if err := s.tickets.Update(ctx, updated); err != nil {
		return nil, mapWriteError(err, "ticket")
	}
	publish(ctx, s.dispatcher, s.logger, ticketEvent(events.EventTicketAssigned, updated, caller.ID, events.TicketAssignedPayload{
		OldAssigneeID: old,
		NewAssigneeID: assigneeID,
	}))
	return s.viewFor(caller, updated, community), nil
}

// Close closes an open ticket.
func (s *TicketService) Close(ctx context.Context, caller *domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, community, err := s.managedTicket(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.IsOpen() {
		return nil, apperrors.NewInvalidState("ticket is already closed", map[string]any{"ticket_id": ticket.ID})
	}
	updated := ticket.Clone()
	updated.MarkClosed(caller.ID, s.now())
	return s.saveStatusChange(ctx, caller, community, ticket.Status, updated)
}

// Reopen reopens a closed ticket. It conflicts when the requester already has another open
// ticket in the same community.
func (s *TicketService) Reopen(ctx context.Context, caller *domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, community, err := s.managedTicket(ctx, caller, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.IsOpen() {
		return nil, apperrors.NewInvalidState("ticket is already open", map[string]any{"ticket_id": ticket.ID})
	}
	updated := ticket.Clone()
	updated.MarkOpen()
	return s.saveStatusChange(ctx, caller, community, ticket.Status, updated)
}

func (s *TicketService) saveStatusChange(ctx context.Context, caller *domain.Actor, community *domain.Community, old domain.TicketStatus, updated *domain.Ticket) (*domain.Ticket, error) {
	if err := s.tickets.Update(ctx, updated); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("requester already has an open ticket in this community", map[string]any{"ticket_id": updated.ID})
		}
		return nil, mapWriteError(err, "ticket")
	}
	publish(ctx, s.dispatcher, s.logger, ticketEvent(events.EventTicketStatusChanged, updated, caller.ID, events.TicketStatusChangedPayload{
		OldStatus: old,
		NewStatus: updated.Status,
	}))
	s.logger.Info("ticket status changed",
		zap.String("ticket_id", updated.ID),
		zap.String("status", string(updated.Status)),
		zap.String("actor_id", caller.ID))
	return s.viewFor(caller, updated, community), nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, *domain.Community, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	community, err := s.communities.GetByID(ctx, ticket.CommunityID)
	if err != nil {
		return nil, nil, notFoundOr(err, "community", map[string]any{"community_id": ticket.CommunityID})
	}
	return ticket, community, nil
}

func (s *TicketService) managedTicket(ctx context.Context, caller *domain.Actor, ticketID string) (*domain.Ticket, *domain.Community, error) {
	ticket, community, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if !access.CanManageTicket(caller, community) {
		return nil, nil, apperrors.NewForbidden("only community staff can manage tickets")
	}
	return ticket, community, nil
}

func (s *TicketService) staffCommunity(ctx context.Context, caller *domain.Actor, communityID string) (*domain.Community, error) {
	community, err := s.communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, notFoundOr(err, "community", map[string]any{"community_id": communityID})
	}
	if !access.CanManageTicket(caller, community) {
		return nil, apperrors.NewForbidden("only community staff can list tickets")
	}
	return community, nil
}

func (s *TicketService) buildMessage(senderID string, input MessageInput) (domain.TicketMessage, error) {
	content := strings.TrimSpace(input.Content)
	attachments := make([]domain.AttachmentReference, 0, len(input.Attachments))
	for _, att := range input.Attachments {
		if strings.TrimSpace(att.Ref) == "" {
			return domain.TicketMessage{}, apperrors.NewValidationError("attachment url is required", nil)
		}
		attachments = append(attachments, att)
	}
	if content == "" && len(attachments) == 0 {
		return domain.TicketMessage{}, apperrors.NewValidationError("message content is required", nil)
	}
	return domain.TicketMessage{
		Content:     content,
		SenderID:    senderID,
		Attachments: attachments,
		CreatedAt:   s.now(),
	}, nil
}

func (s *TicketService) viewFor(caller *domain.Actor, ticket *domain.Ticket, community *domain.Community) *domain.Ticket {
	if !access.CanManageTicket(caller, community) {
		ticket.Notes = nil
	}
	return ticket
}

func mapCreateTicketError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict("an open ticket already exists for this community", nil)
	}
	return mapWriteError(err, "ticket")
}
