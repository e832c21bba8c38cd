package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/discord-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/discord-ticket-service/internal/auth"
	"github.com/spec-kit/discord-ticket-service/internal/config"
	"github.com/spec-kit/discord-ticket-service/internal/domain"
	"github.com/spec-kit/discord-ticket-service/internal/events"
	"github.com/spec-kit/discord-ticket-service/internal/observability"
	"github.com/spec-kit/discord-ticket-service/internal/repository"
	"github.com/spec-kit/discord-ticket-service/internal/service"
)

type stubIdentity struct {
	profiles map[string]*domain.LoginProfile
}

func (s *stubIdentity) AuthorizeURL(state string) string {
	return "https://discord.com/oauth2/authorize?state=" + state
}

func (s *stubIdentity) ResolveLogin(_ context.Context, code string) (*domain.LoginProfile, error) {
	if p, ok := s.profiles[code]; ok {
		return p, nil
	}
	return nil, errors.New("invalid_grant")
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var requesterEmail = "requester@example.com"

type testServer struct {
	app   *fiber.App
	store *repository.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	identity := &stubIdentity{profiles: map[string]*domain.LoginProfile{
		"owner-code": {
			ExternalID:  "100",
			DisplayName: "owner",
			Guilds:      []domain.GuildMembership{{GuildID: "guild-1", Name: "Guild One", IsAdmin: true}},
		},
		"mod-code":       {ExternalID: "200", DisplayName: "mod"},
		"requester-code": {ExternalID: "300", DisplayName: "requester", Email: &requesterEmail},
	}}
	cfg := config.Config{Auth: config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 60}}
	authService := service.NewAuthService(cfg, service.AuthDependencies{
		ActorRepo:        store.Actors,
		CommunityRepo:    store.Communities,
		IdentityProvider: identity,
		Logger:           logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:    store.Tickets,
		CommunityRepo: store.Communities,
		ActorRepo:     store.Actors,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	communityService := service.NewCommunityService(service.CommunityDependencies{
		CommunityRepo: store.Communities,
		ActorRepo:     store.Actors,
		Logger:        logger,
	})
	actorService := service.NewActorService(service.ActorDependencies{
		ActorRepo:     store.Actors,
		CommunityRepo: store.Communities,
		TicketRepo:    store.Tickets,
		Logger:        logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("test", "dev", map[string]handlers.Pinger{}, metrics),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(actorService),
		Servers:        handlers.NewServersHandler(communityService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store.Actors),
	})
	return &testServer{app: app, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (s *testServer) state(t *testing.T) string {
	t.Helper()
	status, env := s.do(t, nethttp.MethodGet, "/api/auth/discord/url", "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	return decode[struct {
		State string `json:"state"`
	}](t, env).State
}

func (s *testServer) login(t *testing.T, code string) (string, string) {
	t.Helper()
	status, env := s.do(t, nethttp.MethodPost, "/api/auth/discord/login", "", map[string]string{"code": code, "state": s.state(t)})
	require.Equal(t, nethttp.StatusOK, status)
	var data struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Auth struct {
			Token string `json:"token"`
		} `json:"auth"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data.Auth.Token, data.User.ID
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, nethttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.True(t, env.Success)

	status, _ = s.do(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)

	status, env = s.do(t, nethttp.MethodGet, "/metrics", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.True(t, env.Success)
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, nethttp.MethodGet, "/api/auth/discord/url", "", nil)
	require.Equal(t, nethttp.StatusOK, status)
	urlResp := decode[struct {
		URL   string `json:"url"`
		State string `json:"state"`
	}](t, env)
	assert.Contains(t, urlResp.URL, urlResp.State)

	status, env = s.do(t, nethttp.MethodPost, "/api/auth/discord/login", "", map[string]string{"code": "bogus", "state": urlResp.State})
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "UNAUTHORIZED", env.Error.Code)

	status, _ = s.do(t, nethttp.MethodPost, "/api/auth/discord/login", "", map[string]string{"code": "owner-code", "state": "forged"})
	assert.Equal(t, nethttp.StatusUnauthorized, status)

	token, _ := s.login(t, "owner-code")
	status, _ = s.do(t, nethttp.MethodGet, "/api/auth/check", token, nil)
	assert.Equal(t, nethttp.StatusOK, status)

	status, _ = s.do(t, nethttp.MethodGet, "/api/auth/check", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
}

func TestTicketFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	ownerToken, _ := s.login(t, "owner-code")
	modToken, modID := s.login(t, "mod-code")
	requesterToken, requesterID := s.login(t, "requester-code")

	status, env := s.do(t, nethttp.MethodGet, "/api/servers", ownerToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	servers := decode[[]struct {
		ID string `json:"id"`
	}](t, env)
	require.Len(t, servers, 1)
	serverID := servers[0].ID

	status, _ = s.do(t, nethttp.MethodPost, "/api/servers/"+serverID+"/moderators", modToken, map[string]string{"actor_id": requesterID})
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, _ = s.do(t, nethttp.MethodPost, "/api/servers/"+serverID+"/moderators", ownerToken, map[string]string{"discord_id": "200"})
	require.Equal(t, nethttp.StatusOK, status)

	status, _ = s.do(t, nethttp.MethodPost, "/api/servers/"+serverID+"/categories", ownerToken, map[string]string{"name": "Billing", "color": "#f00"})
	require.Equal(t, nethttp.StatusCreated, status)

	status, env = s.do(t, nethttp.MethodPost, "/api/tickets", requesterToken, map[string]string{
		"server_id":       serverID,
		"initial_message": "I was double charged",
	})
	require.Equal(t, nethttp.StatusCreated, status)
	ticketID := decode[struct {
		ID string `json:"id"`
	}](t, env).ID

	status, env = s.do(t, nethttp.MethodPost, "/api/tickets", requesterToken, map[string]string{
		"server_id":       serverID,
		"initial_message": "again",
	})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	base := "/api/tickets/" + ticketID
	status, _ = s.do(t, nethttp.MethodPost, base+"/notes", requesterToken, map[string]string{"content": "x"})
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, _ = s.do(t, nethttp.MethodPost, base+"/notes", modToken, map[string]string{"content": "refund pending"})
	require.Equal(t, nethttp.StatusCreated, status)

	status, _ = s.do(t, nethttp.MethodPut, base+"/category", modToken, map[string]string{"category": "Billing"})
	require.Equal(t, nethttp.StatusOK, status)

	status, _ = s.do(t, nethttp.MethodPut, base+"/category", modToken, map[string]string{"category": "Nope"})
	assert.Equal(t, nethttp.StatusNotFound, status)

	status, env = s.do(t, nethttp.MethodPut, base+"/assign", ownerToken, map[string]string{"assignee_id": modID})
	require.Equal(t, nethttp.StatusOK, status)
	assigned := decode[struct {
		AssignedTo *string `json:"assigned_to"`
	}](t, env)
	require.NotNil(t, assigned.AssignedTo)
	assert.Equal(t, modID, *assigned.AssignedTo)

	status, env = s.do(t, nethttp.MethodGet, base, requesterToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.NotContains(t, string(env.Data), "refund pending")

	status, env = s.do(t, nethttp.MethodGet, base, modToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Contains(t, string(env.Data), "refund pending")

	status, env = s.do(t, nethttp.MethodGet, "/api/tickets/server/"+serverID+"?status=open", modToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, decode[[]json.RawMessage](t, env), 1)

	status, env = s.do(t, nethttp.MethodGet, "/api/tickets/server/"+serverID+"/user?discord_id=300", modToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, decode[[]json.RawMessage](t, env), 1)

	status, _ = s.do(t, nethttp.MethodPut, base+"/close", requesterToken, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, _ = s.do(t, nethttp.MethodPut, base+"/close", modToken, nil)
	require.Equal(t, nethttp.StatusOK, status)

	status, env = s.do(t, nethttp.MethodPost, base+"/messages", requesterToken, map[string]string{"content": "thanks"})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "INVALID_STATE", env.Error.Code)

	status, _ = s.do(t, nethttp.MethodPut, base+"/reopen", ownerToken, nil)
	require.Equal(t, nethttp.StatusOK, status)

	status, _ = s.do(t, nethttp.MethodPost, base+"/messages", requesterToken, map[string]string{"content": "thanks"})
	require.Equal(t, nethttp.StatusCreated, status)

	status, env = s.do(t, nethttp.MethodGet, "/api/tickets/mine", requesterToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, decode[[]json.RawMessage](t, env), 1)
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t)
	ownerToken, _ := s.login(t, "owner-code")
	requesterToken, requesterID := s.login(t, "requester-code")

	status, env := s.do(t, nethttp.MethodGet, "/api/servers", ownerToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	serverID := decode[[]struct {
		ID string `json:"id"`
	}](t, env)[0].ID

	status, _ = s.do(t, nethttp.MethodGet, "/api/users/"+requesterID, ownerToken, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, _ = s.do(t, nethttp.MethodPost, "/api/tickets", requesterToken, map[string]string{
		"server_id":       serverID,
		"initial_message": "hello",
	})
	require.Equal(t, nethttp.StatusCreated, status)

	status, _ = s.do(t, nethttp.MethodPost, "/api/users/"+requesterID+"/notes", ownerToken, map[string]string{"content": "vip"})
	require.Equal(t, nethttp.StatusCreated, status)

	status, env = s.do(t, nethttp.MethodGet, "/api/users/"+requesterID, ownerToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Contains(t, string(env.Data), "vip")

	status, env = s.do(t, nethttp.MethodGet, "/api/users/me", requesterToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.NotContains(t, string(env.Data), "vip")
}

func TestStaffProfileOfSelfHidesNotes(t *testing.T) {
	s := newTestServer(t)
	ownerToken, _ := s.login(t, "owner-code")
	modToken, modID := s.login(t, "mod-code")

	status, env := s.do(t, nethttp.MethodGet, "/api/servers", ownerToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	serverID := decode[[]struct {
		ID string `json:"id"`
	}](t, env)[0].ID

	status, _ = s.do(t, nethttp.MethodPost, "/api/servers/"+serverID+"/moderators", ownerToken, map[string]string{"actor_id": modID})
	require.Equal(t, nethttp.StatusOK, status)

	status, _ = s.do(t, nethttp.MethodPost, "/api/tickets", modToken, map[string]string{
		"server_id":       serverID,
		"initial_message": "my own issue",
	})
	require.Equal(t, nethttp.StatusCreated, status)

	status, _ = s.do(t, nethttp.MethodPost, "/api/users/"+modID+"/notes", ownerToken, map[string]string{"content": "consider demoting"})
	require.Equal(t, nethttp.StatusCreated, status)

	status, env = s.do(t, nethttp.MethodGet, "/api/users/"+modID, modToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.NotContains(t, string(env.Data), "consider demoting")

	status, _ = s.do(t, nethttp.MethodPost, "/api/users/"+modID+"/notes", modToken, map[string]string{"content": "self"})
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, env = s.do(t, nethttp.MethodGet, "/api/users/"+modID, ownerToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Contains(t, string(env.Data), "consider demoting")
}

func TestEmailOnlyVisibleToItsOwner(t *testing.T) {
	s := newTestServer(t)
	ownerToken, _ := s.login(t, "owner-code")
	requesterToken, requesterID := s.login(t, "requester-code")

	status, env := s.do(t, nethttp.MethodGet, "/api/servers", ownerToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	serverID := decode[[]struct {
		ID string `json:"id"`
	}](t, env)[0].ID

	status, _ = s.do(t, nethttp.MethodPost, "/api/tickets", requesterToken, map[string]string{
		"server_id":       serverID,
		"initial_message": "hello",
	})
	require.Equal(t, nethttp.StatusCreated, status)

	status, env = s.do(t, nethttp.MethodGet, "/api/users/"+requesterID, ownerToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.NotContains(t, string(env.Data), requesterEmail)

	status, env = s.do(t, nethttp.MethodGet, "/api/users/me", requesterToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Contains(t, string(env.Data), requesterEmail)
}

func TestUnknownRouteUsesEnvelope(t *testing.T) {
	s := newTestServer(t)
	status, env := s.do(t, nethttp.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.False(t, env.Success)
}
