package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/discord-ticket-service/internal/domain"
	"github.com/spec-kit/discord-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/discord-ticket-service/pkg/util/errorutil"
)

// Replies sent back to the author of a direct message.
const (
	ReplyLoginRequired = "You need to log in to the dashboard once before you can open a ticket."
	ReplyAppended      = "Your message has been added to your open ticket."
	ReplyNoCommunity   = "I could not find a server we share. Ask a server administrator to add me and log in to the dashboard."
	ReplyAmbiguous     = "You share several servers with me. Please open your ticket from the dashboard and pick the server."
	ReplyEmptyMessage  = "Your message is empty. Send some text or an attachment."
	ReplyFailure       = "An error occurred while processing your message, please try again later."
	replyCreatedFormat = "Your ticket has been opened for %s. A moderator will answer you here."
)

// RouteOutcome is the branch the router took for one inbound message.
type RouteOutcome string

const (
	OutcomeUnregistered RouteOutcome = "unregistered"
	OutcomeAppended     RouteOutcome = "appended"
	OutcomeCreated      RouteOutcome = "created"
	OutcomeNoCommunity  RouteOutcome = "no_community"
	OutcomeAmbiguous    RouteOutcome = "ambiguous"
	OutcomeRejected     RouteOutcome = "rejected"
	OutcomeFailed       RouteOutcome = "failed"
)

// MessageTransport is the chat platform side of the router.
type MessageTransport interface {
	Reply(ctx context.Context, externalID, text string) error
	ListCurrentGuildIDs(ctx context.Context) ([]string, error)
}

// InboundMessage is a direct message already stripped of platform types.
type InboundMessage struct {
	AuthorExternalID string
	Content          string
	Attachments      []domain.AttachmentReference
}

// RouteResult describes what happened to an inbound message.
type RouteResult struct {
	Outcome     RouteOutcome
	TicketID    string
	CommunityID string
	Reply       string
}

// Router turns direct messages into ticket creations or appends.
type Router struct {
	actors      repository.ActorRepository
	communities repository.CommunityRepository
	tickets     repository.TicketRepository
	ticketSvc   *TicketService
	transport   MessageTransport
	logger      *zap.Logger
}

// RouterDependencies bundles collaborators for the router.
type RouterDependencies struct {
	ActorRepo     repository.ActorRepository
	CommunityRepo repository.CommunityRepository
	TicketRepo    repository.TicketRepository
	TicketService *TicketService
	Transport     MessageTransport
	Logger        *zap.Logger
}

// NewRouter constructs the router.
func NewRouter(deps RouterDependencies) *Router {
	return &Router{
		actors:      deps.ActorRepo,
		communities: deps.CommunityRepo,
		tickets:     deps.TicketRepo,
		ticketSvc:   deps.TicketService,
		transport:   deps.Transport,
		logger:      nopLogger(deps.Logger),
	}
}

// HandleDirectMessage routes one direct message and replies to its author. Every failure
// after the author is known produces a reply; the returned error is for logging only.
func (r *Router) HandleDirectMessage(ctx context.Context, msg InboundMessage) (*RouteResult, error) {
	result, routeErr := r.route(ctx, msg)
	if result.Reply != "" {
		if err := r.transport.Reply(ctx, msg.AuthorExternalID, result.Reply); err != nil {
			r.logger.Warn("direct message reply failed",
				zap.String("external_id", msg.AuthorExternalID),
				zap.String("outcome", string(result.Outcome)),
				zap.Error(err))
			routeErr = errors.Join(routeErr, err)
		}
	}
	if routeErr != nil {
		r.logger.Error("direct message routing failed",
			zap.String("external_id", msg.AuthorExternalID),
			zap.String("outcome", string(result.Outcome)),
			zap.Error(routeErr))
	} else {
		r.logger.Info("direct message routed",
			zap.String("outcome", string(result.Outcome)),
			zap.String("ticket_id", result.TicketID))
	}
	return result, routeErr
}

func (r *Router) route(ctx context.Context, msg InboundMessage) (*RouteResult, error) {
	actor, err := r.actors.GetByExternalID(ctx, msg.AuthorExternalID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &RouteResult{Outcome: OutcomeUnregistered, Reply: ReplyLoginRequired}, nil
		}
		return failed(err)
	}

	input := MessageInput{Content: msg.Content, Attachments: msg.Attachments}
	if strings.TrimSpace(msg.Content) == "" && len(msg.Attachments) == 0 {
		return &RouteResult{Outcome: OutcomeRejected, Reply: ReplyEmptyMessage}, nil
	}

	open, err := r.tickets.FindOpenByActor(ctx, actor.ID)
	switch {
	case err == nil:
		ticket, err := r.ticketSvc.AppendMessage(ctx, actor, open.ID, input)
		if err != nil {
			return r.rejected(err)
		}
		return &RouteResult{Outcome: OutcomeAppended, TicketID: ticket.ID, CommunityID: ticket.CommunityID, Reply: ReplyAppended}, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return failed(err)
	}

	guildIDs, err := r.transport.ListCurrentGuildIDs(ctx)
	if err != nil {
		return failed(fmt.Errorf("list guilds: %w", err))
	}
	candidates, err := r.communities.ListByExternalIDs(ctx, guildIDs)
	if err != nil {
		return failed(err)
	}
	switch len(candidates) {
	case 0:
		return &RouteResult{Outcome: OutcomeNoCommunity, Reply: ReplyNoCommunity}, nil
	case 1:
	default:
		return &RouteResult{Outcome: OutcomeAmbiguous, Reply: ReplyAmbiguous}, nil
	}

	community := candidates[0]
	ticket, err := r.ticketSvc.CreateTicket(ctx, actor, TicketCreateInput{
		CommunityID:    community.ID,
		Category:       domain.DefaultCategory,
		InitialMessage: msg.Content,
		Attachments:    msg.Attachments,
		Source:         SourceDirectMessage,
	})
	if err != nil {
		return r.rejected(err)
	}
	return &RouteResult{
		Outcome:     OutcomeCreated,
		TicketID:    ticket.ID,
		CommunityID: community.ID,
		Reply:       fmt.Sprintf(replyCreatedFormat, community.DisplayName),
	}, nil
}

func (r *Router) rejected(err error) (*RouteResult, error) {
	if apperrors.IsKind(err, apperrors.CodeValidation) {
		return &RouteResult{Outcome: OutcomeRejected, Reply: ReplyEmptyMessage}, nil
	}
	return failed(err)
}

func failed(err error) (*RouteResult, error) {
	return &RouteResult{Outcome: OutcomeFailed, Reply: ReplyFailure}, err
}
