package delegation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/publicworks-io/regie/internal/domain"
)

// BulkRequest applies one lifecycle action to a list of delegations.
// Reason is used by suspend/revoke, NewEndsAt by extend.
type BulkRequest struct {
	Action    domain.LifecycleAction
	IDs       []uuid.UUID
	Reason    string
	NewEndsAt time.Time
}

type BulkItemResult struct {
	ID      uuid.UUID `json:"id"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
}

type BulkResult struct {
	Items        []BulkItemResult `json:"items"`
	SuccessCount int              `json:"success_count"`
	FailCount    int              `json:"fail_count"`
}

// MissingIDsError rejects a whole batch whose id list references
// delegations that do not exist. Existence is the only fail-fast check;
// business-rule failures are evaluated per item.
type MissingIDsError struct {
	IDs []uuid.UUID
}

func (e *MissingIDsError) Error() string {
	strs := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		strs[i] = id.String()
	}
	return "delegation: unknown ids in batch: " + strings.Join(strs, ", ")
}

func (e *MissingIDsError) Unwrap() error { return domain.ErrNotFound }

// ApplyBulk runs the requested action over each id as an independent
// transaction. One item's failure (policy, transition, chain conflict) is
// recorded in its result and the batch moves on; nothing committed for
// other items is ever rolled back.
func (s *Service) ApplyBulk(ctx context.Context, req BulkRequest, performer domain.ActorRef) (*BulkResult, error) {
	if len(req.IDs) == 0 {
		return nil, fmt.Errorf("delegation.ApplyBulk: %w", &domain.ValidationError{Field: "ids", Detail: "must not be empty"})
	}
	if len(req.IDs) > s.maxBatch {
		return nil, fmt.Errorf("delegation.ApplyBulk: %d ids (cap %d): %w", len(req.IDs), s.maxBatch, domain.ErrTooManyItems)
	}

	switch req.Action {
	case domain.ActionSuspend, domain.ActionReactivate, domain.ActionRevoke:
	case domain.ActionExtend:
		if req.NewEndsAt.IsZero() {
			return nil, fmt.Errorf("delegation.ApplyBulk: %w", &domain.ValidationError{Field: "new_ends_at", Detail: "is required for extend"})
		}
	default:
		return nil, fmt.Errorf("delegation.ApplyBulk: %w", &domain.ValidationError{Field: "action", Detail: fmt.Sprintf("unknown action %q", req.Action)})
	}

	missing, err := s.store.Delegations().FilterMissing(ctx, req.IDs)
	if err != nil {
		return nil, fmt.Errorf("delegation.ApplyBulk: existence check: %w", err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("delegation.ApplyBulk: %w", &MissingIDsError{IDs: missing})
	}

	result := &BulkResult{Items: make([]BulkItemResult, 0, len(req.IDs))}
	for _, id := range req.IDs {
		var itemErr error
		switch req.Action {
		case domain.ActionSuspend:
			_, itemErr = s.Suspend(ctx, id, performer, req.Reason)
		case domain.ActionReactivate:
			_, itemErr = s.Reactivate(ctx, id, performer)
		case domain.ActionRevoke:
			_, itemErr = s.Revoke(ctx, id, performer, req.Reason)
		case domain.ActionExtend:
			_, itemErr = s.Extend(ctx, id, performer, req.NewEndsAt)
		}

		item := BulkItemResult{ID: id, Success: itemErr == nil}
		if itemErr != nil {
			item.Error = itemErr.Error()
			result.FailCount++
		} else {
			result.SuccessCount++
		}
		result.Items = append(result.Items, item)
	}

	return result, nil
}
