// Package postgres persists the delegation ledger and its consumers. The
// append-then-advance-head unit of every lifecycle transition is a single
// database transaction guarded by a compare-and-swap on the aggregate's
// head hash.
package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/publicworks-io/regie/internal/domain"
)

//go:embed schema.sql
var schema string

type Store struct {
	pool        *pgxpool.Pool
	delegations *DelegationRepo
	events      *EventRepo
	actors      *ActorRepo
	dossiers    *DossierCommentRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:        pool,
		delegations: NewDelegationRepo(pool),
		events:      NewEventRepo(pool),
		actors:      NewActorRepo(pool),
		dossiers:    NewDossierCommentRepo(pool),
	}, nil
}

// EnsureSchema creates the tables and indexes if they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres.EnsureSchema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Delegations() domain.DelegationRepository         { return s.delegations }
func (s *Store) Events() domain.EventRepository                   { return s.events }
func (s *Store) Actors() domain.ActorRepository                   { return s.actors }
func (s *Store) DossierComments() domain.DossierCommentRepository { return s.dossiers }
