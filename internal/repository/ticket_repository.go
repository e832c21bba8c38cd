package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/discord-ticket-service/internal/domain"
)

// TicketFilter captures dashboard search parameters.
type TicketFilter struct {
	ActorID      *string
	CommunityID  *string
	CommunityIDs []string
	Statuses     []domain.TicketStatus
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	FindOpenByActor(ctx context.Context, actorID string) (*domain.Ticket, error)
	FindOpen(ctx context.Context, actorID, communityID string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, actor_id, community_id, category, status, assignee_id, messages, notes,
               closed_at, closed_by_id, version, created_at, updated_at`

const defaultListLimit = 50

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (actor_id, community_id, category, status, assignee_id, messages, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, version, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.ActorID,
		ticket.CommunityID,
		ticket.Category,
		ticket.Status,
		ticket.AssigneeID,
		ticket.Messages,
		ticket.Notes,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
	return mapWriteError(err)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET category=$1, status=$2, assignee_id=$3, messages=$4, notes=$5,
            closed_at=$6, closed_by_id=$7, version=version+1, updated_at=NOW()
        WHERE id=$8 AND version=$9
        RETURNING version, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Category,
		ticket.Status,
		ticket.AssigneeID,
		ticket.Messages,
		ticket.Notes,
		ticket.ClosedAt,
		ticket.ClosedByID,
		ticket.ID,
		ticket.Version,
	).Scan(&ticket.Version, &ticket.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStaleWrite
	}
	return mapWriteError(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) FindOpenByActor(ctx context.Context, actorID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
             WHERE actor_id=$1 AND status='open' ORDER BY created_at DESC LIMIT 1`
	return r.fetchSingle(ctx, query, actorID)
}

func (r *ticketRepository) FindOpen(ctx context.Context, actorID, communityID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
             WHERE actor_id=$1 AND community_id=$2 AND status='open' LIMIT 1`
	return r.fetchSingle(ctx, query, actorID, communityID)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, args...).Scan(ticketDest(&ticket)...); err != nil {
		return nil, mapReadError(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ActorID != nil {
		args = append(args, *filter.ActorID)
		clauses = append(clauses, fmt.Sprintf("actor_id=$%d", len(args)))
	}
	if filter.CommunityID != nil {
		args = append(args, *filter.CommunityID)
		clauses = append(clauses, fmt.Sprintf("community_id=$%d", len(args)))
	}
	if filter.CommunityIDs != nil {
		args = append(args, filter.CommunityIDs)
		clauses = append(clauses, fmt.Sprintf("community_id::text = ANY($%d)", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func ticketDest(t *domain.Ticket) []any {
	return []any{
		&t.ID,
		&t.ActorID,
		&t.CommunityID,
		&t.Category,
		&t.Status,
		&t.AssigneeID,
		&t.Messages,
		&t.Notes,
		&t.ClosedAt,
		&t.ClosedByID,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(ticketDest(&ticket)...); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
