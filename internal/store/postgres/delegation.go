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

const delegationColumns = `id, delegator_id, delegator_name, delegator_role,
	delegate_id, delegate_name, delegate_role, scopes, starts_at, ends_at,
	status, extendable, max_extensions, extension_days, head_hash,
	suspended_by, suspended_at, suspended_reason,
	revoked_by, revoked_at, revoked_reason, created_at, updated_at`

type DelegationRepo struct {
	pool *pgxpool.Pool
}

func NewDelegationRepo(pool *pgxpool.Pool) *DelegationRepo {
	return &DelegationRepo{pool: pool}
}

func (r *DelegationRepo) Create(ctx context.Context, d *domain.Delegation, genesis *domain.DelegationEvent) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("delegationRepo.Create: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx,
		`INSERT INTO delegations (`+delegationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		         $16, $17, $18, $19, $20, $21, $22, $23)`,
		d.ID, d.Delegator.ID, d.Delegator.Name, d.Delegator.Role,
		d.Delegate.ID, d.Delegate.Name, d.Delegate.Role,
		d.Scopes, d.StartsAt, d.EndsAt,
		d.Status, d.Extendable, d.MaxExtensions, d.ExtensionDays, d.HeadHash,
		d.SuspendedBy, d.SuspendedAt, d.SuspendedReason,
		d.RevokedBy, d.RevokedAt, d.RevokedReason, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("delegationRepo.Create: insert delegation: %w", err)
	}

	genesis.Seq = 1
	if err := insertEvent(ctx, tx, genesis); err != nil {
		return fmt.Errorf("delegationRepo.Create: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("delegationRepo.Create: commit: %w", err)
	}
	return nil
}

func (r *DelegationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Delegation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+delegationColumns+` FROM delegations WHERE id = $1`, id)

	d, err := scanDelegation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("delegationRepo.GetByID: %w", err)
	}
	return d, nil
}

func (r *DelegationRepo) List(ctx context.Context, limit, offset int) ([]*domain.Delegation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+delegationColumns+` FROM delegations
		 ORDER BY created_at, id
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("delegationRepo.List: %w", err)
	}
	defer rows.Close()

	var out []*domain.Delegation
	for rows.Next() {
		d, scanErr := scanDelegation(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("delegationRepo.List: scan: %w", scanErr)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delegationRepo.List: rows: %w", err)
	}
	return out, nil
}

func (r *DelegationRepo) FilterMissing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT wanted.id
		 FROM unnest($1::uuid[]) AS wanted(id)
		 LEFT JOIN delegations d ON d.id = wanted.id
		 WHERE d.id IS NULL`, ids)
	if err != nil {
		return nil, fmt.Errorf("delegationRepo.FilterMissing: %w", err)
	}
	defer rows.Close()

	var missing []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if scanErr := rows.Scan(&id); scanErr != nil {
			return nil, fmt.Errorf("delegationRepo.FilterMissing: scan: %w", scanErr)
		}
		missing = append(missing, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delegationRepo.FilterMissing: rows: %w", err)
	}
	return missing, nil
}

// ApplyTransition commits a snapshot update, one ledger event and any
// actor membership change in a single transaction. The UPDATE's
// head-hash predicate is the compare-and-swap: zero rows means either
// the aggregate is gone (ErrNotFound) or another writer advanced the
// head first (ErrChainConflict).
func (r *DelegationRepo) ApplyTransition(ctx context.Context, delta *domain.TransitionDelta) error {
	d := delta.Delegation

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("delegationRepo.ApplyTransition: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	tag, err := tx.Exec(ctx,
		`UPDATE delegations SET
		    starts_at = $1, ends_at = $2, status = $3, head_hash = $4,
		    suspended_by = $5, suspended_at = $6, suspended_reason = $7,
		    revoked_by = $8, revoked_at = $9, revoked_reason = $10,
		    updated_at = $11
		 WHERE id = $12 AND head_hash = $13`,
		d.StartsAt, d.EndsAt, d.Status, d.HeadHash,
		d.SuspendedBy, d.SuspendedAt, d.SuspendedReason,
		d.RevokedBy, d.RevokedAt, d.RevokedReason,
		d.UpdatedAt,
		d.ID, delta.ExpectedHead,
	)
	if err != nil {
		return fmt.Errorf("delegationRepo.ApplyTransition: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM delegations WHERE id = $1)`, d.ID).Scan(&exists); err != nil {
			return fmt.Errorf("delegationRepo.ApplyTransition: existence check: %w", err)
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrChainConflict
	}

	// The aggregate row is locked by the UPDATE above, so the seq
	// assignment cannot race with another writer on the same chain.
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM delegation_events WHERE delegation_id = $1`,
		d.ID).Scan(&delta.Event.Seq); err != nil {
		return fmt.Errorf("delegationRepo.ApplyTransition: next seq: %w", err)
	}
	if err := insertEvent(ctx, tx, delta.Event); err != nil {
		return fmt.Errorf("delegationRepo.ApplyTransition: %w", err)
	}

	if delta.RemoveActorID != nil {
		tag, err := tx.Exec(ctx,
			`DELETE FROM delegation_actors WHERE delegation_id = $1 AND id = $2`,
			d.ID, *delta.RemoveActorID)
		if err != nil {
			return fmt.Errorf("delegationRepo.ApplyTransition: remove actor: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
	}
	if a := delta.AddActor; a != nil {
		_, err := tx.Exec(ctx,
			`INSERT INTO delegation_actors (id, delegation_id, person_id, name, role, role_type,
			                                required, can_approve, can_revoke, must_be_notified, note, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			a.ID, a.DelegationID, a.PersonID, a.Name, a.Role, a.RoleType,
			a.Required, a.CanApprove, a.CanRevoke, a.MustBeNotified, a.Note, a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("delegationRepo.ApplyTransition: add actor: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("delegationRepo.ApplyTransition: commit: %w", err)
	}
	return nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, e *domain.DelegationEvent) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO delegation_events (id, delegation_id, seq, type, actor_id, actor_name, actor_role,
		                                summary, details, previous_hash, event_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.DelegationID, e.Seq, e.Type, e.Actor.ID, e.Actor.Name, e.Actor.Role,
		e.Summary, e.Details, e.PreviousHash, e.EventHash, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func scanDelegation(row pgx.Row) (*domain.Delegation, error) {
	var d domain.Delegation
	err := row.Scan(
		&d.ID, &d.Delegator.ID, &d.Delegator.Name, &d.Delegator.Role,
		&d.Delegate.ID, &d.Delegate.Name, &d.Delegate.Role,
		&d.Scopes, &d.StartsAt, &d.EndsAt,
		&d.Status, &d.Extendable, &d.MaxExtensions, &d.ExtensionDays, &d.HeadHash,
		&d.SuspendedBy, &d.SuspendedAt, &d.SuspendedReason,
		&d.RevokedBy, &d.RevokedAt, &d.RevokedReason, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
