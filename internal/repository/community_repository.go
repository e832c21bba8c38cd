package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/discord-ticket-service/internal/domain"
)

// CommunityRepository encapsulates community (guild) persistence.
type CommunityRepository interface {
	Create(ctx context.Context, community *domain.Community) error
	Update(ctx context.Context, community *domain.Community) error
	GetByID(ctx context.Context, id string) (*domain.Community, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Community, error)
	ListByExternalIDs(ctx context.Context, externalIDs []string) ([]domain.Community, error)
	ListByMember(ctx context.Context, actorID string) ([]domain.Community, error)
}

type communityRepository struct {
	pool *pgxpool.Pool
}

// NewCommunityRepository instantiates repository.
func NewCommunityRepository(pool *pgxpool.Pool) CommunityRepository {
	return &communityRepository{pool: pool}
}

const communityColumns = `id, external_id, display_name, icon_ref, owner_id, moderator_ids,
               ticket_categories, version, created_at, updated_at`

func (r *communityRepository) Create(ctx context.Context, community *domain.Community) error {
	const query = `
        INSERT INTO communities (external_id, display_name, icon_ref, owner_id, moderator_ids, ticket_categories)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, version, created_at, updated_at`

	if community.ModeratorIDs == nil {
		community.ModeratorIDs = []string{}
	}
	if community.TicketCategories == nil {
		community.TicketCategories = []domain.TicketCategory{}
	}
	err := r.pool.QueryRow(ctx, query,
		community.ExternalID,
		community.DisplayName,
		community.IconRef,
		community.OwnerID,
		community.ModeratorIDs,
		community.TicketCategories,
	).Scan(&community.ID, &community.Version, &community.CreatedAt, &community.UpdatedAt)
	return mapWriteError(err)
}

func (r *communityRepository) Update(ctx context.Context, community *domain.Community) error {
	const query = `
        UPDATE communities SET display_name=$1, icon_ref=$2, moderator_ids=$3, ticket_categories=$4,
            version=version+1, updated_at=NOW()
        WHERE id=$5 AND version=$6
        RETURNING version, updated_at`

	err := r.pool.QueryRow(ctx, query,
		community.DisplayName,
		community.IconRef,
		community.ModeratorIDs,
		community.TicketCategories,
		community.ID,
		community.Version,
	).Scan(&community.Version, &community.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStaleWrite
	}
	return mapWriteError(err)
}

func (r *communityRepository) GetByID(ctx context.Context, id string) (*domain.Community, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return r.fetchSingle(ctx, `SELECT `+communityColumns+` FROM communities WHERE id=$1`, id)
}

func (r *communityRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Community, error) {
	return r.fetchSingle(ctx, `SELECT `+communityColumns+` FROM communities WHERE external_id=$1`, externalID)
}

func (r *communityRepository) ListByExternalIDs(ctx context.Context, externalIDs []string) ([]domain.Community, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + communityColumns + ` FROM communities WHERE external_id = ANY($1) ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, externalIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCommunities(rows)
}

func (r *communityRepository) ListByMember(ctx context.Context, actorID string) ([]domain.Community, error) {
	query := `SELECT ` + communityColumns + ` FROM communities
             WHERE owner_id::text = $1 OR $1 = ANY(moderator_ids)
             ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, actorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCommunities(rows)
}

func (r *communityRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Community, error) {
	var community domain.Community
	if err := r.pool.QueryRow(ctx, query, arg).Scan(communityDest(&community)...); err != nil {
		return nil, mapReadError(err)
	}
	return &community, nil
}

func communityDest(c *domain.Community) []any {
	return []any{
		&c.ID,
		&c.ExternalID,
		&c.DisplayName,
		&c.IconRef,
		&c.OwnerID,
		&c.ModeratorIDs,
		&c.TicketCategories,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}

func scanCommunities(rows pgx.Rows) ([]domain.Community, error) {
	var result []domain.Community
	for rows.Next() {
		var community domain.Community
		if err := rows.Scan(communityDest(&community)...); err != nil {
			return nil, err
		}
		result = append(result, community)
	}
	return result, rows.Err()
}
