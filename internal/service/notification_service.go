package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/discord-ticket-service/internal/config"
	"github.com/spec-kit/discord-ticket-service/internal/domain"
	"github.com/spec-kit/discord-ticket-service/internal/events"
	"github.com/spec-kit/discord-ticket-service/internal/queue"
	"github.com/spec-kit/discord-ticket-service/internal/repository"
)

// DirectMessageQueue accepts outbound DM jobs for the bot process.
type DirectMessageQueue interface {
	EnqueueDirectMessage(ctx context.Context, job queue.DirectMessageJob) error
}

// NotificationService turns ticket events into direct messages to the requester.
type NotificationService struct {
	dispatcher  events.Dispatcher
	queue       DirectMessageQueue
	actors      repository.ActorRepository
	communities repository.CommunityRepository
	logger      *zap.Logger
	cfg         config.NotificationConfig
}

// NotificationDependencies bundles collaborators for notification service.
type NotificationDependencies struct {
	Dispatcher    events.Dispatcher
	Queue         DirectMessageQueue
	ActorRepo     repository.ActorRepository
	CommunityRepo repository.CommunityRepository
	Logger        *zap.Logger
	Config        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		dispatcher:  deps.Dispatcher,
		queue:       deps.Queue,
		actors:      deps.ActorRepo,
		communities: deps.CommunityRepo,
		logger:      nopLogger(deps.Logger),
		cfg:         deps.Config,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || !n.cfg.Enabled || n.queue == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketMessageAdded, n.handleTicketMessageAdded)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
}

func (n *NotificationService) handleTicketMessageAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketMessageAddedPayload)
	if !ok || payload.SenderID == event.RequesterID {
		return nil
	}
	return n.notifyRequester(ctx, event, func(community string) string {
		text := fmt.Sprintf("New reply on your ticket in %s:\n%s", community, payload.BodyPreview)
		if payload.AttachmentCount > 0 {
			text += fmt.Sprintf("\n(%d attachment(s))", payload.AttachmentCount)
		}
		return text
	})
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	return n.notifyRequester(ctx, event, func(community string) string {
		if payload.NewStatus == domain.TicketStatusClosed {
			return fmt.Sprintf("Your ticket in %s has been closed.", community)
		}
		return fmt.Sprintf("Your ticket in %s has been reopened.", community)
	})
}

func (n *NotificationService) notifyRequester(ctx context.Context, event events.Event, render func(community string) string) error {
	requester, err := n.actors.GetByID(ctx, event.RequesterID)
	if err != nil {
		return fmt.Errorf("load requester %s: %w", event.RequesterID, err)
	}
	communityName := "a server"
	if community, err := n.communities.GetByID(ctx, event.CommunityID); err == nil && community.DisplayName != "" {
		communityName = community.DisplayName
	}
	job := queue.DirectMessageJob{
		ExternalID: requester.ExternalID,
		Text:       render(communityName),
		TicketID:   event.TicketID,
	}
	if err := n.queue.EnqueueDirectMessage(ctx, job); err != nil {
		return fmt.Errorf("enqueue dm for ticket %s: %w", event.TicketID, err)
	}
	n.logger.Debug("requester notification queued",
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
	return nil
}
