package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DelegationActor is a party attached to a delegation with specific
// rights. Membership changes only flow through the actor registry, which
// records each add/remove as a chained event on the owning delegation.
type DelegationActor struct {
	ID           uuid.UUID `json:"id"`
	DelegationID uuid.UUID `json:"delegation_id"`
	// PersonID is nil for externally-named parties.
	PersonID *uuid.UUID `json:"person_id,omitempty"`
	Name     string     `json:"name"`
	Role     string     `json:"role,omitempty"`
	// RoleType tags the actor's function on this delegation, e.g.
	// "approver", "observer", "required-party".
	RoleType string `json:"role_type"`

	Required       bool `json:"required"`
	CanApprove     bool `json:"can_approve"`
	CanRevoke      bool `json:"can_revoke"`
	MustBeNotified bool `json:"must_be_notified"`

	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ActorRepository interface {
	GetByID(ctx context.Context, delegationID, id uuid.UUID) (*DelegationActor, error)
	ListByDelegation(ctx context.Context, delegationID uuid.UUID) ([]*DelegationActor, error)
}
