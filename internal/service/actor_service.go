package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/discord-ticket-service/internal/access"
	"github.com/spec-kit/discord-ticket-service/internal/domain"
	"github.com/spec-kit/discord-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/discord-ticket-service/pkg/util/errorutil"
)

const profileTicketLimit = 200

// ActorService serves actor profiles and staff notes about actors.
type ActorService struct {
	actors      repository.ActorRepository
	communities repository.CommunityRepository
	tickets     repository.TicketRepository
	logger      *zap.Logger
	now         func() time.Time
}

// ActorDependencies bundles repositories for actor service.
type ActorDependencies struct {
	ActorRepo     repository.ActorRepository
	CommunityRepo repository.CommunityRepository
	TicketRepo    repository.TicketRepository
	Logger        *zap.Logger
	Clock         func() time.Time
}

// ActorProfile is an actor as seen by a given caller.
type ActorProfile struct {
	Actor   *domain.Actor
	Tickets []domain.Ticket
	IsStaff bool
}

// NewActorService constructs the service.
func NewActorService(deps ActorDependencies) *ActorService {
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &ActorService{
		actors:      deps.ActorRepo,
		communities: deps.CommunityRepo,
		tickets:     deps.TicketRepo,
		logger:      nopLogger(deps.Logger),
		now:         clock,
	}
}

// GetMe returns the caller's own record, without staff notes, and the communities it staffs.
func (s *ActorService) GetMe(ctx context.Context, caller *domain.Actor) (*domain.Actor, []domain.Community, error) {
	if caller == nil {
		return nil, nil, apperrors.NewUnauthorized("authentication required")
	}
	me, err := s.actors.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, nil, notFoundOr(err, "actor", map[string]any{"actor_id": caller.ID})
	}
	me.Notes = nil
	communities, err := s.communities.ListByMember(ctx, caller.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return me, communities, nil
}

// GetActorProfile returns the target as the caller may see it. An actor viewing itself
// sees its own tickets and never its notes, even when it staffs those communities. Staff
// see notes and the target's tickets in the communities they staff.
func (s *ActorService) GetActorProfile(ctx context.Context, caller *domain.Actor, actorID string) (*ActorProfile, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	target, err := s.actors.GetByID(ctx, actorID)
	if err != nil {
		return nil, notFoundOr(err, "actor", map[string]any{"actor_id": actorID})
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{ActorID: &target.ID, Limit: profileTicketLimit})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if caller.ID == target.ID {
		target.Notes = nil
		for i := range tickets {
			tickets[i].Notes = nil
		}
		return &ActorProfile{Actor: target, Tickets: tickets}, nil
	}
	staffed, err := s.staffedCommunities(ctx, caller)
	if err != nil {
		return nil, err
	}

	visible := make([]domain.Ticket, 0, len(tickets))
	for _, t := range tickets {
		if _, ok := staffed[t.CommunityID]; ok {
			visible = append(visible, t)
		}
	}
	if len(visible) > 0 {
		return &ActorProfile{Actor: target, Tickets: visible, IsStaff: true}, nil
	}
	return nil, apperrors.NewForbidden("you are not staff of a community this actor has tickets in")
}

// AddActorNote appends a staff note to the target actor. Actors cannot annotate themselves.
func (s *ActorService) AddActorNote(ctx context.Context, caller *domain.Actor, actorID, content string) (*domain.Actor, error) {
	if caller != nil && caller.ID == actorID {
		return nil, apperrors.NewForbidden("actors cannot add notes about themselves")
	}
	profile, err := s.GetActorProfile(ctx, caller, actorID)
	if err != nil {
		return nil, err
	}
	if !profile.IsStaff {
		return nil, apperrors.NewForbidden("only staff can annotate actors")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("note content is required", nil)
	}

	updated := profile.Actor.Clone()
	updated.Notes = append(updated.Notes, domain.Note{
		Content:   content,
		AuthorID:  caller.ID,
		CreatedAt: s.now(),
	})
	if err := s.actors.Update(ctx, updated); err != nil {
		return nil, mapWriteError(err, "actor")
	}
	s.logger.Info("actor note added", zap.String("actor_id", updated.ID), zap.String("author_id", caller.ID))
	return updated, nil
}

func (s *ActorService) staffedCommunities(ctx context.Context, caller *domain.Actor) (map[string]struct{}, error) {
	communities, err := s.communities.ListByMember(ctx, caller.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	out := make(map[string]struct{}, len(communities))
	for i := range communities {
		if access.CanManageTicket(caller, &communities[i]) {
			out[communities[i].ID] = struct{}{}
		}
	}
	return out, nil
}
