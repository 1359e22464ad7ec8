package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/publicworks-io/regie/internal/domain"
)

type EventRepo struct {
	pool *pgxpool.Pool
}

func NewEventRepo(pool *pgxpool.Pool) *EventRepo {
	return &EventRepo{pool: pool}
}

func (r *EventRepo) History(ctx context.Context, delegationID uuid.UUID) ([]*domain.DelegationEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, delegation_id, seq, type, actor_id, actor_name, actor_role,
		        summary, details, previous_hash, event_hash, created_at
		 FROM delegation_events
		 WHERE delegation_id = $1
		 ORDER BY seq`,
		delegationID,
	)
	if err != nil {
		return nil, fmt.Errorf("eventRepo.History: %w", err)
	}
	defer rows.Close()

	var events []*domain.DelegationEvent
	for rows.Next() {
		var e domain.DelegationEvent
		if scanErr := rows.Scan(
			&e.ID, &e.DelegationID, &e.Seq, &e.Type,
			&e.Actor.ID, &e.Actor.Name, &e.Actor.Role,
			&e.Summary, &e.Details, &e.PreviousHash, &e.EventHash, &e.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("eventRepo.History: scan: %w", scanErr)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventRepo.History: rows: %w", err)
	}
	return events, nil
}

func (r *EventRepo) CountByType(ctx context.Context, delegationID uuid.UUID, t domain.EventType) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM delegation_events WHERE delegation_id = $1 AND type = $2`,
		delegationID, t,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("eventRepo.CountByType: %w", err)
	}
	return n, nil
}
