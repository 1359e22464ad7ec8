package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/publicworks-io/regie/internal/domain"
)

type ActorRepo struct {
	pool *pgxpool.Pool
}

func NewActorRepo(pool *pgxpool.Pool) *ActorRepo {
	return &ActorRepo{pool: pool}
}

const actorColumns = `id, delegation_id, person_id, name, role, role_type,
	required, can_approve, can_revoke, must_be_notified, note, created_at`

func (r *ActorRepo) GetByID(ctx context.Context, delegationID, id uuid.UUID) (*domain.DelegationActor, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+actorColumns+` FROM delegation_actors
		 WHERE delegation_id = $1 AND id = $2`,
		delegationID, id,
	)

	a, err := scanActor(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("actorRepo.GetByID: %w", err)
	}
	return a, nil
}

func (r *ActorRepo) ListByDelegation(ctx context.Context, delegationID uuid.UUID) ([]*domain.DelegationActor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+actorColumns+` FROM delegation_actors
		 WHERE delegation_id = $1
		 ORDER BY created_at, id`,
		delegationID,
	)
	if err != nil {
		return nil, fmt.Errorf("actorRepo.ListByDelegation: %w", err)
	}
	defer rows.Close()

	var actors []*domain.DelegationActor
	for rows.Next() {
		a, scanErr := scanActor(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("actorRepo.ListByDelegation: scan: %w", scanErr)
		}
		actors = append(actors, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("actorRepo.ListByDelegation: rows: %w", err)
	}
	return actors, nil
}

func scanActor(row pgx.Row) (*domain.DelegationActor, error) {
	var a domain.DelegationActor
	err := row.Scan(
		&a.ID, &a.DelegationID, &a.PersonID, &a.Name, &a.Role, &a.RoleType,
		&a.Required, &a.CanApprove, &a.CanRevoke, &a.MustBeNotified, &a.Note, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
