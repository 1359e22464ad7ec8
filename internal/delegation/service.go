// Package delegation implements the authority-delegation lifecycle on top
// of the hash-chained event ledger. Every mutation validates a state
// transition, appends exactly one event whose digest folds in the current
// head, and advances the aggregate's head pointer in one transaction.
// Concurrent writers race on the head hash: the loser gets
// domain.ErrChainConflict and must re-read before retrying.
package delegation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/publicworks-io/regie/internal/domain"
	"github.com/publicworks-io/regie/internal/hashchain"
	"github.com/publicworks-io/regie/internal/notify"
)

// DefaultMaxBatch bounds ApplyBulk input size.
const DefaultMaxBatch = 100

// Store aggregates the repositories the engine writes through.
// *postgres.Store and *memory.Store satisfy it.
type Store interface {
	Delegations() domain.DelegationRepository
	Events() domain.EventRepository
	Actors() domain.ActorRepository
}

type Service struct {
	store      Store
	dispatcher *notify.Dispatcher
	now        func() time.Time
	maxBatch   int
}

type Option func(*Service)

// WithClock overrides the time source. Tests use this to drive the
// pending -> active -> expired window transitions deterministically.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMaxBatch overrides the ApplyBulk size cap.
func WithMaxBatch(n int) Option {
	return func(s *Service) { s.maxBatch = n }
}

// NewService creates the lifecycle engine. dispatcher may be nil when no
// notification fan-out is wired (e.g. in tests).
func NewService(store Store, dispatcher *notify.Dispatcher, opts ...Option) *Service {
	s := &Service{
		store:      store,
		dispatcher: dispatcher,
		now:        time.Now,
		maxBatch:   DefaultMaxBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

type CreateParams struct {
	Delegator     domain.PartyRef
	Delegate      domain.PartyRef
	Scopes        []string
	StartsAt      time.Time
	EndsAt        time.Time
	Extendable    bool
	MaxExtensions int
	ExtensionDays int
}

func (p *CreateParams) validate() error {
	if p.Delegator.Name == "" {
		return &domain.ValidationError{Field: "delegator", Detail: "name is required"}
	}
	if p.Delegate.Name == "" {
		return &domain.ValidationError{Field: "delegate", Detail: "name is required"}
	}
	if !p.EndsAt.After(p.StartsAt) {
		return &domain.ValidationError{Field: "ends_at", Detail: "must be after starts_at"}
	}
	if p.MaxExtensions < 0 {
		return &domain.ValidationError{Field: "max_extensions", Detail: "must not be negative"}
	}
	if p.ExtensionDays < 0 {
		return &domain.ValidationError{Field: "extension_days", Detail: "must not be negative"}
	}
	return nil
}

// Create opens a new delegation and writes its genesis CREATED event.
// The aggregate's head starts at the genesis event's hash.
func (s *Service) Create(ctx context.Context, params CreateParams, performer domain.ActorRef) (*domain.Delegation, error) {
	if err := params.validate(); err != nil {
		return nil, fmt.Errorf("delegation.Create: %w", err)
	}

	now := s.now().UTC()
	d := &domain.Delegation{
		ID:            uuid.New(),
		Delegator:     params.Delegator,
		Delegate:      params.Delegate,
		Scopes:        params.Scopes,
		StartsAt:      params.StartsAt.UTC(),
		EndsAt:        params.EndsAt.UTC(),
		Status:        domain.DelegationPending,
		Extendable:    params.Extendable,
		MaxExtensions: params.MaxExtensions,
		ExtensionDays: params.ExtensionDays,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	details := domain.CreatedDetails{
		Delegator:     d.Delegator,
		Delegate:      d.Delegate,
		Scopes:        d.Scopes,
		StartsAt:      d.StartsAt,
		EndsAt:        d.EndsAt,
		Extendable:    d.Extendable,
		MaxExtensions: d.MaxExtensions,
		ExtensionDays: d.ExtensionDays,
	}
	summary := fmt.Sprintf("Delegation granted to %s by %s", d.Delegate.Name, d.Delegator.Name)

	event, err := s.buildEvent(d.ID, details, performer, summary, hashchain.Genesis, now)
	if err != nil {
		return nil, fmt.Errorf("delegation.Create: %w", err)
	}
	d.HeadHash = event.EventHash

	if err := s.store.Delegations().Create(ctx, d, event); err != nil {
		return nil, fmt.Errorf("delegation.Create: %w", err)
	}

	s.dispatch(ctx, d, event)
	return d, nil
}

// ---------------------------------------------------------------------------
// Lifecycle transitions
// ---------------------------------------------------------------------------

// Suspend halts an active delegation. The reason is recorded on both the
// snapshot and the SUSPENDED event.
func (s *Service) Suspend(ctx context.Context, id uuid.UUID, performer domain.ActorRef, reason string) (*domain.Delegation, error) {
	d, eff, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delegation.Suspend: %w", err)
	}
	if !eff.CanApply(domain.ActionSuspend) {
		return nil, fmt.Errorf("delegation.Suspend: from %s: %w", eff, domain.ErrInvalidTransition)
	}

	now := s.now().UTC()
	head := d.HeadHash
	d.Status = domain.DelegationSuspended
	d.SuspendedBy = &performer.ID
	d.SuspendedAt = &now
	d.SuspendedReason = reason

	summary := "Delegation suspended"
	if reason != "" {
		summary += ": " + reason
	}

	if err := s.commit(ctx, d, domain.SuspendedDetails{Reason: reason}, performer, summary, head, nil, nil); err != nil {
		return nil, fmt.Errorf("delegation.Suspend: %w", err)
	}
	return d, nil
}

// Reactivate resumes a suspended delegation.
func (s *Service) Reactivate(ctx context.Context, id uuid.UUID, performer domain.ActorRef) (*domain.Delegation, error) {
	d, eff, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delegation.Reactivate: %w", err)
	}
	if !eff.CanApply(domain.ActionReactivate) {
		return nil, fmt.Errorf("delegation.Reactivate: from %s: %w", eff, domain.ErrInvalidTransition)
	}

	head := d.HeadHash
	d.Status = domain.DelegationActive
	d.SuspendedBy = nil
	d.SuspendedAt = nil
	d.SuspendedReason = ""

	if err := s.commit(ctx, d, domain.ReactivatedDetails{}, performer, "Delegation reactivated", head, nil, nil); err != nil {
		return nil, fmt.Errorf("delegation.Reactivate: %w", err)
	}
	return d, nil
}

// Revoke terminates a delegation. Terminal: no action is legal afterward.
func (s *Service) Revoke(ctx context.Context, id uuid.UUID, performer domain.ActorRef, reason string) (*domain.Delegation, error) {
	d, eff, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delegation.Revoke: %w", err)
	}
	if !eff.CanApply(domain.ActionRevoke) {
		return nil, fmt.Errorf("delegation.Revoke: from %s: %w", eff, domain.ErrInvalidTransition)
	}

	now := s.now().UTC()
	head := d.HeadHash
	d.Status = domain.DelegationRevoked
	d.RevokedBy = &performer.ID
	d.RevokedAt = &now
	d.RevokedReason = reason

	summary := "Delegation revoked"
	if reason != "" {
		summary += ": " + reason
	}

	if err := s.commit(ctx, d, domain.RevokedDetails{Reason: reason}, performer, summary, head, nil, nil); err != nil {
		return nil, fmt.Errorf("delegation.Revoke: %w", err)
	}
	return d, nil
}

// ExtendResult reports the outcome of a successful extension.
type ExtendResult struct {
	Delegation     *domain.Delegation `json:"delegation"`
	PreviousEndsAt time.Time          `json:"previous_ends_at"`
	NewEndsAt      time.Time          `json:"new_ends_at"`
	DaysExtended   int                `json:"days_extended"`
	// Sequence is this extension's ordinal (1-based).
	Sequence int `json:"sequence"`
	// Remaining is how many extensions are still allowed after this one.
	Remaining int `json:"remaining"`
}

// Extend pushes the delegation's end date out. The extension count is
// derived from the ledger (EXTENDED events), never from a stored counter,
// so it cannot drift from the history. An expired delegation that is
// still within its extension budget comes back active.
func (s *Service) Extend(ctx context.Context, id uuid.UUID, performer domain.ActorRef, newEnd time.Time) (*ExtendResult, error) {
	d, eff, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delegation.Extend: %w", err)
	}
	if !eff.CanApply(domain.ActionExtend) {
		return nil, fmt.Errorf("delegation.Extend: from %s: %w", eff, domain.ErrInvalidTransition)
	}
	if !d.Extendable {
		return nil, fmt.Errorf("delegation.Extend: %w", &domain.PolicyError{Reason: domain.PolicyNotExtendable})
	}

	used, err := s.store.Events().CountByType(ctx, id, domain.EventExtended)
	if err != nil {
		return nil, fmt.Errorf("delegation.Extend: count extensions: %w", err)
	}
	if used >= d.MaxExtensions {
		return nil, fmt.Errorf("delegation.Extend: %w", &domain.PolicyError{
			Reason: domain.PolicyMaxExtensionsReached,
			Detail: fmt.Sprintf("%d of %d used", used, d.MaxExtensions),
		})
	}

	newEnd = newEnd.UTC()
	if !newEnd.After(d.EndsAt) {
		return nil, fmt.Errorf("delegation.Extend: %w", &domain.PolicyError{
			Reason: domain.PolicyEndNotAfterCurrent,
			Detail: fmt.Sprintf("new end %s is not after current end %s", newEnd.Format(time.RFC3339), d.EndsAt.Format(time.RFC3339)),
		})
	}
	if d.ExtensionDays > 0 && newEnd.After(d.EndsAt.AddDate(0, 0, d.ExtensionDays)) {
		return nil, fmt.Errorf("delegation.Extend: %w", &domain.PolicyError{
			Reason: domain.PolicyExtensionTooLong,
			Detail: fmt.Sprintf("single extension is capped at %d days", d.ExtensionDays),
		})
	}

	result := &ExtendResult{
		PreviousEndsAt: d.EndsAt,
		NewEndsAt:      newEnd,
		DaysExtended:   int(math.Ceil(newEnd.Sub(d.EndsAt).Hours() / 24)),
		Sequence:       used + 1,
		Remaining:      d.MaxExtensions - used - 1,
	}

	head := d.HeadHash
	d.Status = domain.DelegationActive
	d.EndsAt = newEnd

	details := domain.ExtendedDetails{
		PreviousEndsAt: result.PreviousEndsAt,
		NewEndsAt:      result.NewEndsAt,
		DaysExtended:   result.DaysExtended,
		Sequence:       result.Sequence,
		Remaining:      result.Remaining,
	}
	summary := fmt.Sprintf("Delegation extended to %s (extension %d of %d)",
		newEnd.Format("2006-01-02"), result.Sequence, d.MaxExtensions)

	if err := s.commit(ctx, d, details, performer, summary, head, nil, nil); err != nil {
		return nil, fmt.Errorf("delegation.Extend: %w", err)
	}
	result.Delegation = d
	return result, nil
}

// ---------------------------------------------------------------------------
// Actor registry
// ---------------------------------------------------------------------------

type ActorParams struct {
	PersonID       *uuid.UUID
	Name           string
	Role           string
	RoleType       string
	Required       bool
	CanApprove     bool
	CanRevoke      bool
	MustBeNotified bool
	Note           string
}

// AddActor attaches a party to the delegation. The membership change is
// itself a chained ACTOR_ADDED event, so the roster is part of the
// auditable history rather than a silently mutable side table.
func (s *Service) AddActor(ctx context.Context, delegationID uuid.UUID, params ActorParams, performer domain.ActorRef) (*domain.DelegationActor, error) {
	if params.Name == "" {
		return nil, fmt.Errorf("delegation.AddActor: %w", &domain.ValidationError{Field: "name", Detail: "is required"})
	}
	if params.RoleType == "" {
		return nil, fmt.Errorf("delegation.AddActor: %w", &domain.ValidationError{Field: "role_type", Detail: "is required"})
	}

	d, _, err := s.load(ctx, delegationID)
	if err != nil {
		return nil, fmt.Errorf("delegation.AddActor: %w", err)
	}

	actor := &domain.DelegationActor{
		ID:             uuid.New(),
		DelegationID:   delegationID,
		PersonID:       params.PersonID,
		Name:           params.Name,
		Role:           params.Role,
		RoleType:       params.RoleType,
		Required:       params.Required,
		CanApprove:     params.CanApprove,
		CanRevoke:      params.CanRevoke,
		MustBeNotified: params.MustBeNotified,
		Note:           params.Note,
		CreatedAt:      s.now().UTC(),
	}

	details := domain.ActorAddedDetails{
		ActorID:        actor.ID,
		PersonID:       actor.PersonID,
		Name:           actor.Name,
		RoleType:       actor.RoleType,
		Required:       actor.Required,
		CanApprove:     actor.CanApprove,
		CanRevoke:      actor.CanRevoke,
		MustBeNotified: actor.MustBeNotified,
	}
	summary := fmt.Sprintf("Actor added: %s (%s)", actor.Name, actor.RoleType)

	head := d.HeadHash
	if err := s.commit(ctx, d, details, performer, summary, head, actor, nil); err != nil {
		return nil, fmt.Errorf("delegation.AddActor: %w", err)
	}
	return actor, nil
}

// RemoveActor detaches a party, writing an ACTOR_REMOVED event. The actor
// must belong to the named delegation; an id attached to a different
// aggregate is rejected, never silently ignored.
func (s *Service) RemoveActor(ctx context.Context, delegationID, actorID uuid.UUID, performer domain.ActorRef) error {
	d, _, err := s.load(ctx, delegationID)
	if err != nil {
		return fmt.Errorf("delegation.RemoveActor: %w", err)
	}

	actor, err := s.store.Actors().GetByID(ctx, delegationID, actorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("delegation.RemoveActor: actor %s is not attached to delegation %s: %w",
				actorID, delegationID, domain.ErrInvalidReference)
		}
		return fmt.Errorf("delegation.RemoveActor: %w", err)
	}

	details := domain.ActorRemovedDetails{ActorID: actor.ID, Name: actor.Name}
	summary := "Actor removed: " + actor.Name

	head := d.HeadHash
	if err := s.commit(ctx, d, details, performer, summary, head, nil, &actorID); err != nil {
		return fmt.Errorf("delegation.RemoveActor: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Get returns the aggregate snapshot with the window-derived status
// already folded in.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Delegation, error) {
	d, eff, err := s.load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delegation.Get: %w", err)
	}
	d.Status = eff
	return d, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*domain.Delegation, error) {
	ds, err := s.store.Delegations().List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("delegation.List: %w", err)
	}
	now := s.now()
	for _, d := range ds {
		d.Status = d.EffectiveStatus(now)
	}
	return ds, nil
}

func (s *Service) History(ctx context.Context, id uuid.UUID) ([]*domain.DelegationEvent, error) {
	if _, err := s.store.Delegations().GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("delegation.History: %w", err)
	}
	events, err := s.store.Events().History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delegation.History: %w", err)
	}
	return events, nil
}

func (s *Service) ListActors(ctx context.Context, id uuid.UUID) ([]*domain.DelegationActor, error) {
	if _, err := s.store.Delegations().GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("delegation.ListActors: %w", err)
	}
	actors, err := s.store.Actors().ListByDelegation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delegation.ListActors: %w", err)
	}
	return actors, nil
}

// ---------------------------------------------------------------------------
// Integrity
// ---------------------------------------------------------------------------

// VerifyResult reports a full-chain replay. BrokenAt is the index of the
// first corrupt event, or -1.
type VerifyResult struct {
	Valid       bool `json:"valid"`
	Events      int  `json:"events"`
	BrokenAt    int  `json:"broken_at"`
	HeadMatches bool `json:"head_matches"`
}

// Verify replays the delegation's history from genesis, recomputing every
// digest and checking the final one against the aggregate's head pointer.
// Detects tampering and storage corruption.
func (s *Service) Verify(ctx context.Context, id uuid.UUID) (*VerifyResult, error) {
	d, err := s.store.Delegations().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delegation.Verify: %w", err)
	}
	events, err := s.store.Events().History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("delegation.Verify: %w", err)
	}

	links := make([]hashchain.Link, len(events))
	for i, e := range events {
		links[i] = hashchain.Link{
			Details:      e.Details,
			EventType:    string(e.Type),
			ActorID:      e.Actor.ID,
			Timestamp:    e.CreatedAt,
			PreviousHash: e.PreviousHash,
			EventHash:    e.EventHash,
		}
	}

	brokenAt, err := hashchain.VerifyChain(links)
	if err != nil {
		return nil, fmt.Errorf("delegation.Verify: %w", err)
	}

	head := hashchain.Genesis
	if len(events) > 0 {
		head = events[len(events)-1].EventHash
	}
	headMatches := head == d.HeadHash

	return &VerifyResult{
		Valid:       brokenAt == -1 && headMatches,
		Events:      len(events),
		BrokenAt:    brokenAt,
		HeadMatches: headMatches,
	}, nil
}

// ---------------------------------------------------------------------------
// Internals
// ---------------------------------------------------------------------------

func (s *Service) load(ctx context.Context, id uuid.UUID) (*domain.Delegation, domain.DelegationStatus, error) {
	d, err := s.store.Delegations().GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return d, d.EffectiveStatus(s.now()), nil
}

func (s *Service) buildEvent(delegationID uuid.UUID, details domain.EventDetails, performer domain.ActorRef, summary, previousHash string, ts time.Time) (*domain.DelegationEvent, error) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal %s details: %w", details.EventType(), err)
	}

	hash, err := hashchain.Digest(raw, string(details.EventType()), performer.ID, ts, previousHash)
	if err != nil {
		return nil, fmt.Errorf("digest %s event: %w", details.EventType(), err)
	}

	return &domain.DelegationEvent{
		ID:           uuid.New(),
		DelegationID: delegationID,
		Type:         details.EventType(),
		Actor:        performer,
		Summary:      summary,
		Details:      raw,
		PreviousHash: previousHash,
		EventHash:    hash,
		CreatedAt:    ts,
	}, nil
}

// commit builds the event for details, advances d's head to its hash and
// applies the whole delta through the store's atomic transition path.
func (s *Service) commit(ctx context.Context, d *domain.Delegation, details domain.EventDetails, performer domain.ActorRef, summary, expectedHead string, addActor *domain.DelegationActor, removeActorID *uuid.UUID) error {
	ts := s.now().UTC()
	event, err := s.buildEvent(d.ID, details, performer, summary, expectedHead, ts)
	if err != nil {
		return err
	}

	d.HeadHash = event.EventHash
	d.UpdatedAt = ts

	delta := &domain.TransitionDelta{
		Delegation:    d,
		Event:         event,
		ExpectedHead:  expectedHead,
		AddActor:      addActor,
		RemoveActorID: removeActorID,
	}
	if err := s.store.Delegations().ApplyTransition(ctx, delta); err != nil {
		return err
	}

	s.dispatch(ctx, d, event)
	return nil
}

// dispatch fans the committed event out to notification sinks. Best
// effort: a committed transition never fails because fan-out did.
func (s *Service) dispatch(ctx context.Context, d *domain.Delegation, event *domain.DelegationEvent) {
	if s.dispatcher == nil {
		return
	}

	rec := notify.Record{
		DelegationID: d.ID,
		EventID:      event.ID,
		EventType:    string(event.Type),
		Summary:      event.Summary,
		ActorName:    event.Actor.Name,
		OccurredAt:   event.CreatedAt,
	}

	actors, err := s.store.Actors().ListByDelegation(ctx, d.ID)
	if err != nil {
		log.Warn().Err(err).Str("delegation_id", d.ID.String()).Msg("delegation: listing actors for notification")
	} else {
		for _, a := range actors {
			if a.MustBeNotified && a.PersonID != nil {
				rec.NotifyIDs = append(rec.NotifyIDs, *a.PersonID)
			}
		}
	}

	s.dispatcher.Dispatch(ctx, rec)
}
