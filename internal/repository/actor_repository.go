package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/discord-ticket-service/internal/domain"
)

// ActorRepository defines persistence access for registered Discord users.
type ActorRepository interface {
	Create(ctx context.Context, actor *domain.Actor) error
	Update(ctx context.Context, actor *domain.Actor) error
	GetByID(ctx context.Context, id string) (*domain.Actor, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.Actor, error)
}

type actorRepository struct {
	pool *pgxpool.Pool
}

// NewActorRepository returns a Postgres-backed implementation.
func NewActorRepository(pool *pgxpool.Pool) ActorRepository {
	return &actorRepository{pool: pool}
}

const actorColumns = `id, external_id, display_name, avatar_ref, email, notes, version, created_at, updated_at`

func (r *actorRepository) Create(ctx context.Context, actor *domain.Actor) error {
	const query = `
        INSERT INTO actors (external_id, display_name, avatar_ref, email, notes)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, version, created_at, updated_at`

	if actor.Notes == nil {
		actor.Notes = []domain.Note{}
	}
	err := r.pool.QueryRow(ctx, query,
		actor.ExternalID,
		actor.DisplayName,
		actor.AvatarRef,
		actor.Email,
		actor.Notes,
	).Scan(&actor.ID, &actor.Version, &actor.CreatedAt, &actor.UpdatedAt)
	return mapWriteError(err)
}

func (r *actorRepository) Update(ctx context.Context, actor *domain.Actor) error {
	const query = `
        UPDATE actors SET display_name=$1, avatar_ref=$2, email=$3, notes=$4,
            version=version+1, updated_at=NOW()
        WHERE id=$5 AND version=$6
        RETURNING version, updated_at`

	err := r.pool.QueryRow(ctx, query,
		actor.DisplayName,
		actor.AvatarRef,
		actor.Email,
		actor.Notes,
		actor.ID,
		actor.Version,
	).Scan(&actor.Version, &actor.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrStaleWrite
	}
	return mapWriteError(err)
}

func (r *actorRepository) GetByID(ctx context.Context, id string) (*domain.Actor, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	return r.fetchSingle(ctx, `SELECT `+actorColumns+` FROM actors WHERE id=$1`, id)
}

func (r *actorRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Actor, error) {
	return r.fetchSingle(ctx, `SELECT `+actorColumns+` FROM actors WHERE external_id=$1`, externalID)
}

func (r *actorRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Actor, error) {
	var actor domain.Actor
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&actor.ID,
		&actor.ExternalID,
		&actor.DisplayName,
		&actor.AvatarRef,
		&actor.Email,
		&actor.Notes,
		&actor.Version,
		&actor.CreatedAt,
		&actor.UpdatedAt,
	); err != nil {
		return nil, mapReadError(err)
	}
	return &actor, nil
}
