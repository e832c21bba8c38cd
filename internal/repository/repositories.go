package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups the stores the services depend on.
type Repositories struct {
	Actors      ActorRepository
	Communities CommunityRepository
	Tickets     TicketRepository
}

// NewRepositories returns Postgres-backed repositories, or a process-local store when
// no pool is configured.
func NewRepositories(pool *pgxpool.Pool) Repositories {
	if pool == nil {
		mem := NewMemoryStore()
		return Repositories{Actors: mem.Actors, Communities: mem.Communities, Tickets: mem.Tickets}
	}
	return Repositories{
		Actors:      NewActorRepository(pool),
		Communities: NewCommunityRepository(pool),
		Tickets:     NewTicketRepository(pool),
	}
}

// InMemory reports whether the repositories are process-local.
func (r Repositories) InMemory() bool {
	_, ok := r.Actors.(*memoryActors)
	return ok
}
