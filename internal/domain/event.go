package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCreated      EventType = "CREATED"
	EventActorAdded   EventType = "ACTOR_ADDED"
	EventActorRemoved EventType = "ACTOR_REMOVED"
	EventExtended     EventType = "EXTENDED"
	EventSuspended    EventType = "SUSPENDED"
	EventReactivated  EventType = "REACTIVATED"
	EventRevoked      EventType = "REVOKED"
)

// EventDetails is the closed set of per-type payloads. Each variant is a
// plain struct so a malformed payload is a compile error, not a runtime
// surprise; the JSON encoding of the variant is what gets hashed.
type EventDetails interface {
	EventType() EventType
}

type CreatedDetails struct {
	Delegator     PartyRef  `json:"delegator"`
	Delegate      PartyRef  `json:"delegate"`
	Scopes        []string  `json:"scopes"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Extendable    bool      `json:"extendable"`
	MaxExtensions int       `json:"max_extensions"`
	ExtensionDays int       `json:"extension_days"`
}

func (CreatedDetails) EventType() EventType { return EventCreated }

type ActorAddedDetails struct {
	ActorID        uuid.UUID  `json:"actor_id"`
	PersonID       *uuid.UUID `json:"person_id,omitempty"`
	Name           string     `json:"name"`
	RoleType       string     `json:"role_type"`
	Required       bool       `json:"required"`
	CanApprove     bool       `json:"can_approve"`
	CanRevoke      bool       `json:"can_revoke"`
	MustBeNotified bool       `json:"must_be_notified"`
}

func (ActorAddedDetails) EventType() EventType { return EventActorAdded }

type ActorRemovedDetails struct {
	ActorID uuid.UUID `json:"actor_id"`
	Name    string    `json:"name"`
}

func (ActorRemovedDetails) EventType() EventType { return EventActorRemoved }

type ExtendedDetails struct {
	PreviousEndsAt time.Time `json:"previous_ends_at"`
	NewEndsAt      time.Time `json:"new_ends_at"`
	DaysExtended   int       `json:"days_extended"`
	Sequence       int       `json:"sequence"`
	Remaining      int       `json:"remaining"`
}

func (ExtendedDetails) EventType() EventType { return EventExtended }

type SuspendedDetails struct {
	Reason string `json:"reason"`
}

func (SuspendedDetails) EventType() EventType { return EventSuspended }

type ReactivatedDetails struct{}

func (ReactivatedDetails) EventType() EventType { return EventReactivated }

type RevokedDetails struct {
	Reason string `json:"reason"`
}

func (RevokedDetails) EventType() EventType { return EventRevoked }

// DelegationEvent is one immutable link in a delegation's chain. Details
// holds the exact JSON bytes that were hashed; Seq is assigned by the
// store at commit time and orders the history.
type DelegationEvent struct {
	ID           uuid.UUID       `json:"id"`
	DelegationID uuid.UUID       `json:"delegation_id"`
	Seq          int64           `json:"seq"`
	Type         EventType       `json:"type"`
	Actor        ActorRef        `json:"actor"`
	Summary      string          `json:"summary"`
	Details      json.RawMessage `json:"details"`
	PreviousHash string          `json:"previous_hash"`
	EventHash    string          `json:"event_hash"`
	CreatedAt    time.Time       `json:"created_at"`
}

// DecodeDetails unmarshals the stored payload back into its typed variant.
func (e *DelegationEvent) DecodeDetails() (EventDetails, error) {
	var (
		out EventDetails
		err error
	)
	switch e.Type {
	case EventCreated:
		var d CreatedDetails
		err = json.Unmarshal(e.Details, &d)
		out = d
	case EventActorAdded:
		var d ActorAddedDetails
		err = json.Unmarshal(e.Details, &d)
		out = d
	case EventActorRemoved:
		var d ActorRemovedDetails
		err = json.Unmarshal(e.Details, &d)
		out = d
	case EventExtended:
		var d ExtendedDetails
		err = json.Unmarshal(e.Details, &d)
		out = d
	case EventSuspended:
		var d SuspendedDetails
		err = json.Unmarshal(e.Details, &d)
		out = d
	case EventReactivated:
		var d ReactivatedDetails
		err = json.Unmarshal(e.Details, &d)
		out = d
	case EventRevoked:
		var d RevokedDetails
		err = json.Unmarshal(e.Details, &d)
		out = d
	default:
		return nil, fmt.Errorf("domain: unknown event type %q", e.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("domain: decode %s details: %w", e.Type, err)
	}
	return out, nil
}

type EventRepository interface {
	// History returns every event for the aggregate in acceptance order.
	History(ctx context.Context, delegationID uuid.UUID) ([]*DelegationEvent, error)
	CountByType(ctx context.Context, delegationID uuid.UUID, t EventType) (int, error)
}
