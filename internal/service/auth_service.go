package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/discord-ticket-service/internal/auth"
	"github.com/spec-kit/discord-ticket-service/internal/config"
	"github.com/spec-kit/discord-ticket-service/internal/domain"
	"github.com/spec-kit/discord-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/discord-ticket-service/pkg/util/errorutil"
)

// IdentityProvider resolves dashboard logins against the chat platform.
type IdentityProvider interface {
	AuthorizeURL(state string) string
	ResolveLogin(ctx context.Context, code string) (*domain.LoginProfile, error)
}

// AuthService coordinates Discord login and session checks.
type AuthService struct {
	actors      repository.ActorRepository
	communities repository.CommunityRepository
	identity    IdentityProvider
	tokenMgr    *auth.TokenManager
	logger      *zap.Logger
}

// AuthDependencies encapsulates collaborators for auth service.
type AuthDependencies struct {
	ActorRepo        repository.ActorRepository
	CommunityRepo    repository.CommunityRepository
	IdentityProvider IdentityProvider
	Logger           *zap.Logger
}

// LoginResult is returned after a successful login.
type LoginResult struct {
	Actor       *domain.Actor
	Communities []domain.Community
	Token       string
	ExpiresAt   time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		actors:      deps.ActorRepo,
		communities: deps.CommunityRepo,
		identity:    deps.IdentityProvider,
		tokenMgr:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		logger:      nopLogger(deps.Logger),
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// AuthorizeURL returns the provider consent URL and the signed state it carries.
func (s *AuthService) AuthorizeURL() (string, string, error) {
	state, err := s.tokenMgr.GenerateState()
	if err != nil {
		return "", "", apperrors.NewInternalError(err)
	}
	return s.identity.AuthorizeURL(state), state, nil
}

// LoginWithCode checks the state issued by AuthorizeURL, exchanges the authorization code,
// upserts the actor and provisions a community for every guild the actor administers.
func (s *AuthService) LoginWithCode(ctx context.Context, code, state string) (*LoginResult, error) {
	if err := s.tokenMgr.VerifyState(strings.TrimSpace(state)); err != nil {
		s.logger.Warn("discord login state rejected", zap.Error(err))
		return nil, apperrors.NewUnauthorized("invalid or expired login state")
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperrors.NewValidationError("authorization code is required", nil)
	}
	profile, err := s.identity.ResolveLogin(ctx, code)
	if err != nil {
		s.logger.Warn("discord login failed", zap.Error(err))
		return nil, apperrors.NewUnauthorized("discord login failed")
	}
	if strings.TrimSpace(profile.ExternalID) == "" {
		return nil, apperrors.NewUnauthorized("discord profile has no id")
	}

	actor, err := s.upsertActor(ctx, profile)
	if err != nil {
		return nil, err
	}
	for _, guild := range profile.AdminGuilds() {
		if err := s.provisionCommunity(ctx, actor, guild); err != nil {
			return nil, err
		}
	}
	communities, err := s.communities.ListByMember(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	token, expiresAt, err := s.tokenMgr.GenerateToken(actor.ID, actor.ExternalID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("actor logged in", zap.String("actor_id", actor.ID), zap.Int("communities", len(communities)))
	return &LoginResult{Actor: actor, Communities: communities, Token: token, ExpiresAt: expiresAt}, nil
}

// CheckSession validates a token and returns its actor.
func (s *AuthService) CheckSession(ctx context.Context, token string) (*domain.Actor, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthorized("invalid token")
	}
	actor, err := s.actors.GetByID(ctx, claims.ActorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("actor not found")
		}
		return nil, apperrors.MapError(err)
	}
	return actor, nil
}

func (s *AuthService) upsertActor(ctx context.Context, profile *domain.LoginProfile) (*domain.Actor, error) {
	existing, err := s.actors.GetByExternalID(ctx, profile.ExternalID)
	if err == nil {
		updated := existing.Clone()
		updated.RefreshProfile(profile.DisplayName, profile.AvatarRef, profile.Email)
		if err := s.actors.Update(ctx, updated); err != nil {
			return nil, mapWriteError(err, "actor")
		}
		return updated, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	actor := &domain.Actor{
		ExternalID:  profile.ExternalID,
		DisplayName: profile.DisplayName,
		AvatarRef:   profile.AvatarRef,
		Email:       profile.Email,
		Notes:       []domain.Note{},
	}
	if err := actor.Validate(); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), nil)
	}
	if err := s.actors.Create(ctx, actor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// concurrent first login for the same user
			existing, err := s.actors.GetByExternalID(ctx, profile.ExternalID)
			if err != nil {
				return nil, apperrors.MapError(err)
			}
			return existing, nil
		}
		return nil, mapWriteError(err, "actor")
	}
	s.logger.Info("actor registered", zap.String("actor_id", actor.ID))
	return actor, nil
}

func (s *AuthService) provisionCommunity(ctx context.Context, owner *domain.Actor, guild domain.GuildMembership) error {
	_, err := s.communities.GetByExternalID(ctx, guild.GuildID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	community := &domain.Community{
		ExternalID:       guild.GuildID,
		DisplayName:      guild.Name,
		IconRef:          guild.IconRef,
		OwnerID:          owner.ID,
		ModeratorIDs:     []string{},
		TicketCategories: []domain.TicketCategory{},
	}
	if err := s.communities.Create(ctx, community); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil
		}
		return mapWriteError(err, "community")
	}
	s.logger.Info("community provisioned",
		zap.String("community_id", community.ID),
		zap.String("guild_id", guild.GuildID),
		zap.String("owner_id", owner.ID))
	return nil
}
