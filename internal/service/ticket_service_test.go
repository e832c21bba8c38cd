package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/discord-ticket-service/internal/domain"
	"github.com/spec-kit/discord-ticket-service/internal/events"
	"github.com/spec-kit/discord-ticket-service/internal/repository"
	apperrors "github.com/spec-kit/discord-ticket-service/pkg/util/errorutil"
)

func TestCreateTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ticket := h.openTicket(t)
	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.DefaultCategory, ticket.Category)
	require.Len(t, ticket.Messages, 1)
	assert.Equal(t, "help me", ticket.Messages[0].Content)
	assert.Equal(t, h.requester.ID, ticket.Messages[0].SenderID)
	assert.Equal(t, fixedNow, ticket.Messages[0].CreatedAt)
	assert.Empty(t, ticket.Notes)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, h.eventTypes())

	t.Run("second open ticket in same community conflicts", func(t *testing.T) {
		_, err := h.tickets.CreateTicket(ctx, h.requester, TicketCreateInput{CommunityID: h.community.ID, InitialMessage: "again"})
		requireKind(t, err, apperrors.CodeConflict)
		domainErr := apperrors.ToDomainError(err)
		assert.Equal(t, ticket.ID, domainErr.Details["ticket_id"])
		assert.Equal(t, []events.EventType{events.EventTicketCreated}, h.eventTypes())
	})

	t.Run("unknown community", func(t *testing.T) {
		_, err := h.tickets.CreateTicket(ctx, h.stranger, TicketCreateInput{CommunityID: "nope", InitialMessage: "x"})
		requireKind(t, err, apperrors.CodeNotFound)
	})

	t.Run("unknown actor", func(t *testing.T) {
		_, err := h.tickets.CreateTicket(ctx, &domain.Actor{ID: "ghost"}, TicketCreateInput{CommunityID: h.community.ID, InitialMessage: "x"})
		requireKind(t, err, apperrors.CodeNotFound)
	})

	t.Run("empty message", func(t *testing.T) {
		_, err := h.tickets.CreateTicket(ctx, h.stranger, TicketCreateInput{CommunityID: h.community.ID, InitialMessage: "   "})
		requireKind(t, err, apperrors.CodeValidation)
	})

	t.Run("attachment only message", func(t *testing.T) {
		created, err := h.tickets.CreateTicket(ctx, h.stranger, TicketCreateInput{
			CommunityID: h.community.ID,
			Attachments: []domain.AttachmentReference{{Ref: "https://cdn/x.png", FileName: "x.png"}},
		})
		require.NoError(t, err)
		require.Len(t, created.Messages[0].Attachments, 1)
	})
}

func TestAppendMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t)

	updated, err := h.tickets.AppendMessage(ctx, h.requester, ticket.ID, MessageInput{Content: "more details"})
	require.NoError(t, err)
	require.Len(t, updated.Messages, 2)
	assert.Equal(t, "more details", updated.Messages[1].Content)

	updated, err = h.tickets.AppendMessage(ctx, h.moderator, ticket.ID, MessageInput{Content: "on it"})
	require.NoError(t, err)
	assert.Len(t, updated.Messages, 3)

	_, err = h.tickets.AppendMessage(ctx, h.stranger, ticket.ID, MessageInput{Content: "hi"})
	requireKind(t, err, apperrors.CodeForbidden)

	_, err = h.tickets.AppendMessage(ctx, h.requester, ticket.ID, MessageInput{})
	requireKind(t, err, apperrors.CodeValidation)

	_, err = h.tickets.AppendMessage(ctx, h.requester, "missing", MessageInput{Content: "x"})
	requireKind(t, err, apperrors.CodeNotFound)
}

func TestAppendMessageOnClosedTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t)
	_, err := h.tickets.Close(ctx, h.moderator, ticket.ID)
	require.NoError(t, err)

	for _, caller := range []*domain.Actor{h.requester, h.moderator, h.owner} {
		_, err := h.tickets.AppendMessage(ctx, caller, ticket.ID, MessageInput{Content: "late"})
		requireKind(t, err, apperrors.CodeInvalidState)
	}
	_, err = h.tickets.AppendMessage(ctx, h.stranger, ticket.ID, MessageInput{Content: "late"})
	requireKind(t, err, apperrors.CodeForbidden)

	stored, err := h.store.Tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 1)
}

func TestAppendNoteVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t)

	_, err := h.tickets.AppendNote(ctx, h.requester, ticket.ID, "sneaky")
	requireKind(t, err, apperrors.CodeForbidden)

	_, err = h.tickets.AppendNote(ctx, h.moderator, ticket.ID, "  ")
	requireKind(t, err, apperrors.CodeValidation)

	updated, err := h.tickets.AppendNote(ctx, h.moderator, ticket.ID, "known spammer")
	require.NoError(t, err)
	require.Len(t, updated.Notes, 1)
	assert.Equal(t, h.moderator.ID, updated.Notes[0].AuthorID)

	asRequester, _, err := h.tickets.GetTicket(ctx, h.requester, ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, asRequester.Notes)

	asOwner, _, err := h.tickets.GetTicket(ctx, h.owner, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, asOwner.Notes, 1)

	_, _, err = h.tickets.GetTicket(ctx, h.stranger, ticket.ID)
	requireKind(t, err, apperrors.CodeForbidden)

	_, err = h.tickets.AppendNote(ctx, h.moderator, "missing", "x")
	requireKind(t, err, apperrors.CodeNotFound)
}

func TestChangeCategory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t)

	_, err := h.tickets.ChangeCategory(ctx, h.requester, ticket.ID, "Billing")
	requireKind(t, err, apperrors.CodeForbidden)

	_, err = h.tickets.ChangeCategory(ctx, h.moderator, ticket.ID, "Unknown")
	requireKind(t, err, apperrors.CodeNotFound)

	updated, err := h.tickets.ChangeCategory(ctx, h.moderator, ticket.ID, "Billing")
	require.NoError(t, err)
	assert.Equal(t, "Billing", updated.Category)

	updated, err = h.tickets.ChangeCategory(ctx, h.owner, ticket.ID, domain.DefaultCategory)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCategory, updated.Category)
	assert.Contains(t, h.eventTypes(), events.EventTicketCategoryChanged)
}

func TestAssign(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t)

	_, err := h.tickets.Assign(ctx, h.requester, ticket.ID, &h.moderator.ID)
	requireKind(t, err, apperrors.CodeForbidden)

	_, err = h.tickets.Assign(ctx, h.owner, ticket.ID, &h.stranger.ID)
	requireKind(t, err, apperrors.CodeForbidden)

	missing := "ghost"
	_, err = h.tickets.Assign(ctx, h.owner, ticket.ID, &missing)
	requireKind(t, err, apperrors.CodeNotFound)

	updated, err := h.tickets.Assign(ctx, h.owner, ticket.ID, &h.moderator.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, h.moderator.ID, *updated.AssigneeID)

	updated, err = h.tickets.Assign(ctx, h.moderator, ticket.ID, &h.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, h.owner.ID, *updated.AssigneeID)

	updated, err = h.tickets.Assign(ctx, h.moderator, ticket.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, updated.AssigneeID)
}

func TestCloseAndReopen(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t)

	_, err := h.tickets.Close(ctx, h.requester, ticket.ID)
	requireKind(t, err, apperrors.CodeForbidden)

	closed, err := h.tickets.Close(ctx, h.moderator, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	require.NotNil(t, closed.ClosedByID)
	assert.Equal(t, fixedNow, *closed.ClosedAt)
	assert.Equal(t, h.moderator.ID, *closed.ClosedByID)

	_, err = h.tickets.Close(ctx, h.moderator, ticket.ID)
	requireKind(t, err, apperrors.CodeInvalidState)

	reopened, err := h.tickets.Reopen(ctx, h.owner, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, reopened.Status)
	assert.Nil(t, reopened.ClosedAt)
	assert.Nil(t, reopened.ClosedByID)

	_, err = h.tickets.Reopen(ctx, h.owner, ticket.ID)
	requireKind(t, err, apperrors.CodeInvalidState)

	_, err = h.tickets.AppendMessage(ctx, h.requester, ticket.ID, MessageInput{Content: "thanks"})
	require.NoError(t, err)
}

func TestReopenConflictsWithAnotherOpenTicket(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.openTicket(t)
	_, err := h.tickets.Close(ctx, h.moderator, first.ID)
	require.NoError(t, err)
	h.openTicket(t)

	_, err = h.tickets.Reopen(ctx, h.moderator, first.ID)
	requireKind(t, err, apperrors.CodeConflict)
}

func TestListCommunityTickets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.openTicket(t)
	_, err := h.tickets.Close(ctx, h.moderator, first.ID)
	require.NoError(t, err)
	second := h.openTicket(t)

	_, err = h.tickets.ListCommunityTickets(ctx, h.requester, h.community.ID, TicketListFilter{})
	requireKind(t, err, apperrors.CodeForbidden)

	all, err := h.tickets.ListCommunityTickets(ctx, h.moderator, h.community.ID, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	open := domain.TicketStatusOpen
	onlyOpen, err := h.tickets.ListCommunityTickets(ctx, h.owner, h.community.ID, TicketListFilter{Status: &open})
	require.NoError(t, err)
	require.Len(t, onlyOpen, 1)
	assert.Equal(t, second.ID, onlyOpen[0].ID)

	bogus := domain.TicketStatus("pending")
	_, err = h.tickets.ListCommunityTickets(ctx, h.owner, h.community.ID, TicketListFilter{Status: &bogus})
	requireKind(t, err, apperrors.CodeValidation)
}

func TestSearchTicketsByExternalID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t)

	found, err := h.tickets.SearchTicketsByExternalID(ctx, h.moderator, h.community.ID, h.requester.ExternalID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, ticket.ID, found[0].ID)

	_, err = h.tickets.SearchTicketsByExternalID(ctx, h.moderator, h.community.ID, "999")
	requireKind(t, err, apperrors.CodeNotFound)

	_, err = h.tickets.SearchTicketsByExternalID(ctx, h.stranger, h.community.ID, h.requester.ExternalID)
	requireKind(t, err, apperrors.CodeForbidden)
}

func TestListOwnTickets(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := h.openTicket(t)
	_, err := h.tickets.AppendNote(ctx, h.moderator, ticket.ID, "private")
	require.NoError(t, err)

	mine, err := h.tickets.ListOwnTickets(ctx, h.requester, 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Empty(t, mine[0].Notes)

	theirs, err := h.tickets.ListOwnTickets(ctx, h.stranger, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

type countingTickets struct {
	repository.TicketRepository
	creates int
}

func (c *countingTickets) Create(ctx context.Context, ticket *domain.Ticket) error {
	c.creates++
	return c.TicketRepository.Create(ctx, ticket)
}

func TestCreateTicketChecksOpenTicketBeforeWriting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.openTicket(t)

	counting := &countingTickets{TicketRepository: h.store.Tickets}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:    counting,
		CommunityRepo: h.store.Communities,
		ActorRepo:     h.store.Actors,
		Clock:         func() time.Time { return fixedNow },
	})

	_, err := svc.CreateTicket(ctx, h.requester, TicketCreateInput{CommunityID: h.community.ID, InitialMessage: "again"})
	requireKind(t, err, apperrors.CodeConflict)
	assert.Zero(t, counting.creates)

	_, err = svc.CreateTicket(ctx, h.stranger, TicketCreateInput{CommunityID: h.community.ID, InitialMessage: "first"})
	require.NoError(t, err)
	assert.Equal(t, 1, counting.creates)
}
