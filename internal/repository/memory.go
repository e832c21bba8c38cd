package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/discord-ticket-service/internal/domain"
)

// MemoryStore is a process-local store with the same contract as the Postgres repositories:
// missing rows yield pgx.ErrNoRows, version mismatches yield ErrStaleWrite and unique keys
// yield ErrDuplicate.
type MemoryStore struct {
	Actors      ActorRepository
	Communities CommunityRepository
	Tickets     TicketRepository
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Actors:      &memoryActors{byID: map[string]*domain.Actor{}},
		Communities: &memoryCommunities{byID: map[string]*domain.Community{}},
		Tickets:     &memoryTickets{byID: map[string]*ticketRecord{}},
	}
}

type memoryActors struct {
	mu   sync.RWMutex
	byID map[string]*domain.Actor
}

func (m *memoryActors) Create(_ context.Context, actor *domain.Actor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.ExternalID == actor.ExternalID {
			return ErrDuplicate
		}
	}
	now := time.Now().UTC()
	actor.ID = uuid.NewString()
	actor.Version = 1
	actor.CreatedAt = now
	actor.UpdatedAt = now
	if actor.Notes == nil {
		actor.Notes = []domain.Note{}
	}
	m.byID[actor.ID] = actor.Clone()
	return nil
}

func (m *memoryActors) Update(_ context.Context, actor *domain.Actor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byID[actor.ID]
	if !ok || current.Version != actor.Version {
		return ErrStaleWrite
	}
	actor.Version++
	actor.UpdatedAt = time.Now().UTC()
	stored := actor.Clone()
	stored.ExternalID = current.ExternalID
	stored.CreatedAt = current.CreatedAt
	m.byID[actor.ID] = stored
	return nil
}

func (m *memoryActors) GetByID(_ context.Context, id string) (*domain.Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	actor, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return actor.Clone(), nil
}

func (m *memoryActors) GetByExternalID(_ context.Context, externalID string) (*domain.Actor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, actor := range m.byID {
		if actor.ExternalID == externalID {
			return actor.Clone(), nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memoryCommunities struct {
	mu   sync.RWMutex
	byID map[string]*domain.Community
}

func (m *memoryCommunities) Create(_ context.Context, community *domain.Community) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.ExternalID == community.ExternalID {
			return ErrDuplicate
		}
	}
	now := time.Now().UTC()
	community.ID = uuid.NewString()
	community.Version = 1
	community.CreatedAt = now
	community.UpdatedAt = now
	if community.ModeratorIDs == nil {
		community.ModeratorIDs = []string{}
	}
	if community.TicketCategories == nil {
		community.TicketCategories = []domain.TicketCategory{}
	}
	m.byID[community.ID] = community.Clone()
	return nil
}

func (m *memoryCommunities) Update(_ context.Context, community *domain.Community) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.byID[community.ID]
	if !ok || current.Version != community.Version {
		return ErrStaleWrite
	}
	community.Version++
	community.UpdatedAt = time.Now().UTC()
	stored := community.Clone()
	stored.ExternalID = current.ExternalID
	stored.OwnerID = current.OwnerID
	stored.CreatedAt = current.CreatedAt
	m.byID[community.ID] = stored
	return nil
}

func (m *memoryCommunities) GetByID(_ context.Context, id string) (*domain.Community, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	community, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return community.Clone(), nil
}

func (m *memoryCommunities) GetByExternalID(_ context.Context, externalID string) (*domain.Community, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, community := range m.byID {
		if community.ExternalID == externalID {
			return community.Clone(), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memoryCommunities) ListByExternalIDs(_ context.Context, externalIDs []string) ([]domain.Community, error) {
	wanted := make(map[string]struct{}, len(externalIDs))
	for _, id := range externalIDs {
		wanted[id] = struct{}{}
	}
	return m.list(func(c *domain.Community) bool {
		_, ok := wanted[c.ExternalID]
		return ok
	}), nil
}

func (m *memoryCommunities) ListByMember(_ context.Context, actorID string) ([]domain.Community, error) {
	return m.list(func(c *domain.Community) bool {
		return c.OwnerID == actorID || c.HasModerator(actorID)
	}), nil
}

func (m *memoryCommunities) list(keep func(*domain.Community) bool) []domain.Community {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []domain.Community
	for _, community := range m.byID {
		if keep(community) {
			result = append(result, *community.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

type ticketRecord struct {
	ticket *domain.Ticket
	seq    int
}

type memoryTickets struct {
	mu   sync.RWMutex
	byID map[string]*ticketRecord
	seq  int
}

func (m *memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ticket.Status == domain.TicketStatusOpen && m.openLocked(ticket.ActorID, ticket.CommunityID, "") != nil {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	ticket.ID = uuid.NewString()
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	m.seq++
	m.byID[ticket.ID] = &ticketRecord{ticket: ticket.Clone(), seq: m.seq}
	return nil
}

func (m *memoryTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.byID[ticket.ID]
	if !ok || rec.ticket.Version != ticket.Version {
		return ErrStaleWrite
	}
	if ticket.Status == domain.TicketStatusOpen && m.openLocked(rec.ticket.ActorID, rec.ticket.CommunityID, ticket.ID) != nil {
		return ErrDuplicate
	}
	ticket.Version++
	ticket.UpdatedAt = time.Now().UTC()
	stored := ticket.Clone()
	stored.ActorID = rec.ticket.ActorID
	stored.CommunityID = rec.ticket.CommunityID
	stored.CreatedAt = rec.ticket.CreatedAt
	rec.ticket = stored
	return nil
}

func (m *memoryTickets) openLocked(actorID, communityID, exceptID string) *ticketRecord {
	for id, rec := range m.byID {
		t := rec.ticket
		if id != exceptID && t.ActorID == actorID && t.CommunityID == communityID && t.IsOpen() {
			return rec
		}
	}
	return nil
}

func (m *memoryTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return rec.ticket.Clone(), nil
}

func (m *memoryTickets) FindOpenByActor(_ context.Context, actorID string) (*domain.Ticket, error) {
	open := m.sorted(func(t *domain.Ticket) bool { return t.ActorID == actorID && t.IsOpen() })
	if len(open) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &open[0], nil
}

func (m *memoryTickets) FindOpen(_ context.Context, actorID, communityID string) (*domain.Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec := m.openLocked(actorID, communityID, "")
	if rec == nil {
		return nil, pgx.ErrNoRows
	}
	return rec.ticket.Clone(), nil
}

func (m *memoryTickets) ListWithFilter(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	var communities map[string]struct{}
	if filter.CommunityIDs != nil {
		communities = make(map[string]struct{}, len(filter.CommunityIDs))
		for _, id := range filter.CommunityIDs {
			communities[id] = struct{}{}
		}
	}
	statuses := make(map[domain.TicketStatus]struct{}, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = struct{}{}
	}

	matched := m.sorted(func(t *domain.Ticket) bool {
		if filter.ActorID != nil && t.ActorID != *filter.ActorID {
			return false
		}
		if filter.CommunityID != nil && t.CommunityID != *filter.CommunityID {
			return false
		}
		if communities != nil {
			if _, ok := communities[t.CommunityID]; !ok {
				return false
			}
		}
		if len(statuses) > 0 {
			if _, ok := statuses[t.Status]; !ok {
				return false
			}
		}
		return true
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// sorted returns matching tickets, newest first.
func (m *memoryTickets) sorted(keep func(*domain.Ticket) bool) []domain.Ticket {
	m.mu.RLock()
	defer m.mu.RUnlock()
	recs := make([]*ticketRecord, 0, len(m.byID))
	for _, rec := range m.byID {
		if keep(rec.ticket) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq > recs[j].seq })
	result := make([]domain.Ticket, 0, len(recs))
	for _, rec := range recs {
		result = append(result, *rec.ticket.Clone())
	}
	return result
}
