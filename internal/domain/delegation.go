package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type DelegationStatus string

const (
	DelegationPending   DelegationStatus = "pending"
	DelegationActive    DelegationStatus = "active"
	DelegationSuspended DelegationStatus = "suspended"
	DelegationExpired   DelegationStatus = "expired"
	DelegationRevoked   DelegationStatus = "revoked"
)

// LifecycleAction is an explicit, caller-requested transition. The pending
// -> active and active -> expired moves are not actions: they follow from
// the validity window and are derived at read time (see EffectiveStatus).
type LifecycleAction string

const (
	ActionExtend     LifecycleAction = "extend"
	ActionSuspend    LifecycleAction = "suspend"
	ActionReactivate LifecycleAction = "reactivate"
	ActionRevoke     LifecycleAction = "revoke"
)

// CanApply checks whether an action is legal from this status.
// revoked is terminal; every other status can be revoked.
func (s DelegationStatus) CanApply(a LifecycleAction) bool {
	switch a {
	case ActionSuspend:
		return s == DelegationActive
	case ActionReactivate:
		return s == DelegationSuspended
	case ActionExtend:
		return s == DelegationActive || s == DelegationExpired
	case ActionRevoke:
		return s != DelegationRevoked
	default:
		return false
	}
}

// PartyRef identifies a person involved in a delegation. ID is nil for
// externally-named parties (e.g. a contractor's representative who has no
// account in the console).
type PartyRef struct {
	ID   *uuid.UUID `json:"id,omitempty"`
	Name string     `json:"name"`
	Role string     `json:"role,omitempty"`
}

// ActorRef is the authenticated identity performing an operation, as
// resolved from the request credentials.
type ActorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Delegation is the aggregate root of an authority delegation. It owns its
// events and actors; HeadHash points at the most recently accepted event
// and doubles as the optimistic-concurrency token for every mutation.
type Delegation struct {
	ID        uuid.UUID        `json:"id"`
	Delegator PartyRef         `json:"delegator"`
	Delegate  PartyRef         `json:"delegate"`
	Scopes    []string         `json:"scopes"`
	StartsAt  time.Time        `json:"starts_at"`
	EndsAt    time.Time        `json:"ends_at"`
	Status    DelegationStatus `json:"status"`

	Extendable    bool `json:"extendable"`
	MaxExtensions int  `json:"max_extensions"`
	// ExtensionDays caps the length of a single extension; 0 means no
	// per-extension cap.
	ExtensionDays int `json:"extension_days"`

	HeadHash string `json:"head_hash"`

	SuspendedBy     *string    `json:"suspended_by,omitempty"`
	SuspendedAt     *time.Time `json:"suspended_at,omitempty"`
	SuspendedReason string     `json:"suspended_reason,omitempty"`
	RevokedBy       *string    `json:"revoked_by,omitempty"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
	RevokedReason   string     `json:"revoked_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EffectiveStatus folds the validity window into the stored status. A
// stored pending delegation whose window has opened reads as active; a
// stored pending or active one whose window has closed reads as expired.
// suspended and revoked are explicit states and never shift with time.
func (d *Delegation) EffectiveStatus(now time.Time) DelegationStatus {
	switch d.Status {
	case DelegationPending, DelegationActive:
		if now.After(d.EndsAt) {
			return DelegationExpired
		}
		if !now.Before(d.StartsAt) {
			return DelegationActive
		}
		return DelegationPending
	default:
		return d.Status
	}
}

// TransitionDelta is the atomic unit of every mutation: the aggregate
// snapshot after the transition (HeadHash already advanced to the new
// event's hash), the single event being appended, and an optional actor
// membership change. Stores must commit all of it in one transaction,
// accepting only if the aggregate's live head still equals ExpectedHead.
type TransitionDelta struct {
	Delegation   *Delegation
	Event        *DelegationEvent
	ExpectedHead string

	AddActor      *DelegationActor
	RemoveActorID *uuid.UUID
}

type DelegationRepository interface {
	// Create inserts the aggregate snapshot together with its genesis
	// CREATED event in one transaction.
	Create(ctx context.Context, d *Delegation, genesis *DelegationEvent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Delegation, error)
	List(ctx context.Context, limit, offset int) ([]*Delegation, error)
	// FilterMissing returns which of the given ids have no aggregate row.
	FilterMissing(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error)
	// ApplyTransition commits a TransitionDelta, or fails with
	// ErrChainConflict when the live head moved, ErrNotFound when the
	// aggregate vanished.
	ApplyTransition(ctx context.Context, delta *TransitionDelta) error
}
