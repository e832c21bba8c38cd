package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/discord-ticket-service/internal/access"
	"github.com/spec-kit/discord-ticket-service/internal/domain"
	"github.com/spec-kit/discord-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/discord-ticket-service/pkg/util/errorutil"
)

// CommunityService manages community rosters and ticket categories.
type CommunityService struct {
	communities repository.CommunityRepository
	actors      repository.ActorRepository
	logger      *zap.Logger
}

// CommunityDependencies bundles repositories for community service.
type CommunityDependencies struct {
	CommunityRepo repository.CommunityRepository
	ActorRepo     repository.ActorRepository
	Logger        *zap.Logger
}

// CategoryInput describes a new ticket category.
type CategoryInput struct {
	Name     string
	ColorTag string
}

// NewCommunityService constructs the service.
func NewCommunityService(deps CommunityDependencies) *CommunityService {
	return &CommunityService{
		communities: deps.CommunityRepo,
		actors:      deps.ActorRepo,
		logger:      nopLogger(deps.Logger),
	}
}

// ListCommunities returns the communities the caller owns or moderates.
func (s *CommunityService) ListCommunities(ctx context.Context, caller *domain.Actor) ([]domain.Community, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	communities, err := s.communities.ListByMember(ctx, caller.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return communities, nil
}

// GetCommunity returns a community the caller owns or moderates.
func (s *CommunityService) GetCommunity(ctx context.Context, caller *domain.Actor, communityID string) (*domain.Community, error) {
	community, err := s.load(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !access.CanViewCommunity(caller, community) {
		return nil, apperrors.NewForbidden("you are not staff of this community")
	}
	return community, nil
}

// AddModerator grants moderator rights to an existing actor.
func (s *CommunityService) AddModerator(ctx context.Context, caller *domain.Actor, communityID, targetActorID string) (*domain.Community, error) {
	community, err := s.administered(ctx, caller, communityID)
	if err != nil {
		return nil, err
	}
	target, err := s.actors.GetByID(ctx, targetActorID)
	if err != nil {
		return nil, notFoundOr(err, "actor", map[string]any{"actor_id": targetActorID})
	}
	if target.ID == community.OwnerID {
		return nil, apperrors.NewConflict("the owner cannot be added as moderator", nil)
	}
	if community.HasModerator(target.ID) {
		return nil, apperrors.NewConflict("actor is already a moderator", map[string]any{"actor_id": target.ID})
	}

	updated := community.Clone()
	updated.ModeratorIDs = append(updated.ModeratorIDs, target.ID)
	if err := s.communities.Update(ctx, updated); err != nil {
		return nil, mapWriteError(err, "community")
	}
	s.logger.Info("moderator added", zap.String("community_id", updated.ID), zap.String("actor_id", target.ID))
	return updated, nil
}

// AddModeratorByExternalID resolves the target by Discord id, then adds it.
func (s *CommunityService) AddModeratorByExternalID(ctx context.Context, caller *domain.Actor, communityID, externalID string) (*domain.Community, error) {
	if _, err := s.administered(ctx, caller, communityID); err != nil {
		return nil, err
	}
	target, err := s.actors.GetByExternalID(ctx, strings.TrimSpace(externalID))
	if err != nil {
		return nil, notFoundOr(err, "actor", map[string]any{"external_id": externalID})
	}
	return s.AddModerator(ctx, caller, communityID, target.ID)
}

// RemoveModerator revokes moderator rights. Removing a non-moderator is a no-op.
func (s *CommunityService) RemoveModerator(ctx context.Context, caller *domain.Actor, communityID, targetActorID string) (*domain.Community, error) {
	community, err := s.administered(ctx, caller, communityID)
	if err != nil {
		return nil, err
	}
	if !community.HasModerator(targetActorID) {
		return community, nil
	}

	updated := community.Clone()
	kept := updated.ModeratorIDs[:0]
	for _, id := range updated.ModeratorIDs {
		if id != targetActorID {
			kept = append(kept, id)
		}
	}
	updated.ModeratorIDs = kept
	if err := s.communities.Update(ctx, updated); err != nil {
		return nil, mapWriteError(err, "community")
	}
	s.logger.Info("moderator removed", zap.String("community_id", updated.ID), zap.String("actor_id", targetActorID))
	return updated, nil
}

// AddCategory defines a new ticket category with a fresh identifier.
func (s *CommunityService) AddCategory(ctx context.Context, caller *domain.Actor, communityID string, input CategoryInput) (*domain.Community, error) {
	community, err := s.administered(ctx, caller, communityID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("category name is required", nil)
	}

	updated := community.Clone()
	updated.TicketCategories = append(updated.TicketCategories, domain.TicketCategory{
		ID:       uuid.NewString(),
		Name:     name,
		ColorTag: strings.TrimSpace(input.ColorTag),
	})
	if err := s.communities.Update(ctx, updated); err != nil {
		return nil, mapWriteError(err, "community")
	}
	return updated, nil
}

// RemoveCategory deletes a category by id. Unknown ids are a no-op. Tickets keep their category name.
func (s *CommunityService) RemoveCategory(ctx context.Context, caller *domain.Actor, communityID, categoryID string) (*domain.Community, error) {
	community, err := s.administered(ctx, caller, communityID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, c := range community.TicketCategories {
		if c.ID == categoryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return community, nil
	}

	updated := community.Clone()
	updated.TicketCategories = append(updated.TicketCategories[:idx], updated.TicketCategories[idx+1:]...)
	if err := s.communities.Update(ctx, updated); err != nil {
		return nil, mapWriteError(err, "community")
	}
	return updated, nil
}

func (s *CommunityService) load(ctx context.Context, communityID string) (*domain.Community, error) {
	community, err := s.communities.GetByID(ctx, communityID)
	if err != nil {
		return nil, notFoundOr(err, "community", map[string]any{"community_id": communityID})
	}
	return community, nil
}

func (s *CommunityService) administered(ctx context.Context, caller *domain.Actor, communityID string) (*domain.Community, error) {
	community, err := s.load(ctx, communityID)
	if err != nil {
		return nil, err
	}
	if !access.CanAdministerCommunity(caller, community) {
		return nil, apperrors.NewForbidden("only the community owner can do this")
	}
	return community, nil
}
