package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/discord-ticket-service/internal/domain"
	"github.com/spec-kit/discord-ticket-service/internal/events"
	"github.com/spec-kit/discord-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/discord-ticket-service/pkg/util/errorutil"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	store      *repository.MemoryStore
	dispatcher events.Dispatcher
	tickets    *TicketService
	community  *domain.Community
	owner      *domain.Actor
	moderator  *domain.Actor
	requester  *domain.Actor
	stranger   *domain.Actor

	mu     sync.Mutex
	events []events.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	h := &harness{
		store:      repository.NewMemoryStore(),
		dispatcher: events.NewInMemoryDispatcher(),
	}
	for _, et := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketMessageAdded,
		events.EventTicketNoteAdded,
		events.EventTicketCategoryChanged,
		events.EventTicketAssigned,
		events.EventTicketStatusChanged,
	} {
		h.dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.events = append(h.events, e)
			return nil
		})
	}

	h.owner = h.addActor(t, "100", "owner")
	h.moderator = h.addActor(t, "200", "mod")
	h.requester = h.addActor(t, "300", "requester")
	h.stranger = h.addActor(t, "400", "stranger")

	h.community = &domain.Community{
		ExternalID:   "guild-1",
		DisplayName:  "Guild One",
		OwnerID:      h.owner.ID,
		ModeratorIDs: []string{h.moderator.ID},
		TicketCategories: []domain.TicketCategory{
			{ID: "cat-billing", Name: "Billing", ColorTag: "#ff0000"},
		},
	}
	require.NoError(t, h.store.Communities.Create(ctx, h.community))

	h.tickets = NewTicketService(TicketDependencies{
		TicketRepo:    h.store.Tickets,
		CommunityRepo: h.store.Communities,
		ActorRepo:     h.store.Actors,
		Dispatcher:    h.dispatcher,
		Clock:         func() time.Time { return fixedNow },
	})
	return h
}

func (h *harness) addActor(t *testing.T, externalID, name string) *domain.Actor {
	t.Helper()
	actor := &domain.Actor{ExternalID: externalID, DisplayName: name}
	require.NoError(t, h.store.Actors.Create(context.Background(), actor))
	return actor
}

func (h *harness) openTicket(t *testing.T) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(context.Background(), h.requester, TicketCreateInput{
		CommunityID:    h.community.ID,
		InitialMessage: "help me",
	})
	require.NoError(t, err)
	return ticket
}

func (h *harness) eventTypes() []events.EventType {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]events.EventType, 0, len(h.events))
	for _, e := range h.events {
		out = append(out, e.Type)
	}
	return out
}

func requireKind(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Truef(t, apperrors.IsKind(err, code), "expected %s, got %v", code, err)
}
