package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/discord-ticket-service/internal/config"
	"github.com/spec-kit/discord-ticket-service/internal/domain"
	"github.com/spec-kit/discord-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/discord-ticket-service/pkg/util/errorutil"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	token, expiresAt, err := tm.GenerateToken("actor-1", "42")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "actor-1", claims.ActorID)
	assert.Equal(t, "42", claims.ExternalID)
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	token, _, err := tm.GenerateToken("actor-1", "42")
	require.NoError(t, err)

	_, err = NewTokenManager("other", 60).ParseToken(token)
	assert.Error(t, err)

	later := NewTokenManager("secret", 60)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.ParseToken(token)
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	store := repository.NewMemoryStore()
	actor := &domain.Actor{ExternalID: "42", DisplayName: "alice"}
	require.NoError(t, store.Actors.Create(context.Background(), actor))

	tm := NewTokenManager("secret", 60)
	mw := NewAuthMiddleware(tm, store.Actors)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		caller, err := ActorFromContext(c)
		if err != nil {
			return err
		}
		return c.SendString(caller.DisplayName)
	})

	token, _, err := tm.GenerateToken(actor.ID, actor.ExternalID)
	require.NoError(t, err)
	orphan, _, err := tm.GenerateToken("missing", "0")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"garbage token", "Bearer nope", http.StatusUnauthorized},
		{"unknown actor", "Bearer " + orphan, http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestProfileFromDiscord(t *testing.T) {
	user := &discordgo.User{ID: "42", Username: "alice", GlobalName: "Alice", Avatar: "abc", Email: "a@example.com"}
	guilds := []*discordgo.UserGuild{
		{ID: "g1", Name: "Admins", Permissions: discordgo.PermissionAdministrator, Icon: "ic"},
		{ID: "g2", Name: "Members", Permissions: discordgo.PermissionSendMessages},
		{ID: "g3", Name: "Owned", Owner: true},
	}

	profile := profileFromDiscord(user, guilds)
	assert.Equal(t, "42", profile.ExternalID)
	assert.Equal(t, "Alice", profile.DisplayName)
	require.NotNil(t, profile.AvatarRef)
	require.NotNil(t, profile.Email)
	require.Len(t, profile.Guilds, 3)
	assert.True(t, profile.Guilds[0].IsAdmin)
	require.NotNil(t, profile.Guilds[0].IconRef)
	assert.False(t, profile.Guilds[1].IsAdmin)
	assert.Nil(t, profile.Guilds[1].IconRef)
	assert.True(t, profile.Guilds[2].IsAdmin)

	admin := profile.AdminGuilds()
	require.Len(t, admin, 2)
	assert.Equal(t, "g1", admin[0].GuildID)
}

func TestAuthorizeURLCarriesState(t *testing.T) {
	p := NewDiscordIdentityProvider(config.DiscordConfig{ClientID: "cid", RedirectURI: "http://localhost/cb"})
	url := p.AuthorizeURL("xyz")
	assert.Contains(t, url, "https://discord.com/oauth2/authorize")
	assert.Contains(t, url, "state=xyz")
	assert.Contains(t, url, "client_id=cid")
}

func TestLoginStateLifecycle(t *testing.T) {
	tm := NewTokenManager("secret", 60)
	state, err := tm.GenerateState()
	require.NoError(t, err)
	assert.NoError(t, tm.VerifyState(state))

	assert.Error(t, tm.VerifyState(""))
	assert.Error(t, NewTokenManager("other", 60).VerifyState(state))

	later := NewTokenManager("secret", 60)
	later.now = func() time.Time { return time.Now().Add(stateTTL + time.Minute) }
	assert.Error(t, later.VerifyState(state))

	session, _, err := tm.GenerateToken("actor-1", "42")
	require.NoError(t, err)
	assert.Error(t, tm.VerifyState(session))

	_, err = tm.ParseToken(state)
	assert.Error(t, err)
}
