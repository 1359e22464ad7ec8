// Package memory provides an in-process implementation of the store
// contracts with the same compare-and-swap semantics as the postgres
// backend. It backs service-level tests and local development without a
// database.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/publicworks-io/regie/internal/domain"
	"github.com/publicworks-io/regie/internal/hashchain"
)

type Store struct {
	mu          sync.RWMutex
	delegations map[uuid.UUID]*domain.Delegation
	events      map[uuid.UUID][]*domain.DelegationEvent
	actors      map[uuid.UUID][]*domain.DelegationActor
	comments    map[string][]*domain.DossierComment
}

func New() *Store {
	return &Store{
		delegations: make(map[uuid.UUID]*domain.Delegation),
		events:      make(map[uuid.UUID][]*domain.DelegationEvent),
		actors:      make(map[uuid.UUID][]*domain.DelegationActor),
		comments:    make(map[string][]*domain.DossierComment),
	}
}

func (s *Store) Delegations() domain.DelegationRepository         { return (*delegationRepo)(s) }
func (s *Store) Events() domain.EventRepository                   { return (*eventRepo)(s) }
func (s *Store) Actors() domain.ActorRepository                   { return (*actorRepo)(s) }
func (s *Store) DossierComments() domain.DossierCommentRepository { return (*dossierRepo)(s) }

// ---------------------------------------------------------------------------
// Delegations
// ---------------------------------------------------------------------------

type delegationRepo Store

func (r *delegationRepo) Create(_ context.Context, d *domain.Delegation, genesis *domain.DelegationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.delegations[d.ID]; exists {
		return domain.ErrChainConflict
	}

	cd := *d
	ce := *genesis
	ce.Seq = 1
	r.delegations[d.ID] = &cd
	r.events[d.ID] = append(r.events[d.ID], &ce)
	genesis.Seq = ce.Seq
	return nil
}

func (r *delegationRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Delegation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.delegations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cd := *d
	return &cd, nil
}

func (r *delegationRepo) List(_ context.Context, limit, offset int) ([]*domain.Delegation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*domain.Delegation, 0, len(r.delegations))
	for _, d := range r.delegations {
		cd := *d
		all = append(all, &cd)
	}
	// Stable order for pagination.
	for i := range all {
		for j := i + 1; j < len(all); j++ {
			if all[j].CreatedAt.Before(all[i].CreatedAt) {
				all[i], all[j] = all[j], all[i]
			}
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (r *delegationRepo) FilterMissing(_ context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing []uuid.UUID
	for _, id := range ids {
		if _, ok := r.delegations[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (r *delegationRepo) ApplyTransition(_ context.Context, delta *domain.TransitionDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	live, ok := r.delegations[delta.Delegation.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if live.HeadHash != delta.ExpectedHead {
		return domain.ErrChainConflict
	}

	cd := *delta.Delegation
	ce := *delta.Event
	ce.Seq = int64(len(r.events[cd.ID])) + 1

	if delta.RemoveActorID != nil {
		existing := r.actors[cd.ID]
		idx := -1
		for i, a := range existing {
			if a.ID == *delta.RemoveActorID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.ErrNotFound
		}
		r.actors[cd.ID] = append(existing[:idx], existing[idx+1:]...)
	}
	if delta.AddActor != nil {
		ca := *delta.AddActor
		r.actors[cd.ID] = append(r.actors[cd.ID], &ca)
	}

	r.delegations[cd.ID] = &cd
	r.events[cd.ID] = append(r.events[cd.ID], &ce)
	delta.Event.Seq = ce.Seq
	return nil
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

type eventRepo Store

func (r *eventRepo) History(_ context.Context, delegationID uuid.UUID) ([]*domain.DelegationEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[delegationID]
	out := make([]*domain.DelegationEvent, 0, len(events))
	for _, e := range events {
		ce := *e
		out = append(out, &ce)
	}
	return out, nil
}

func (r *eventRepo) CountByType(_ context.Context, delegationID uuid.UUID, t domain.EventType) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.events[delegationID] {
		if e.Type == t {
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Actors
// ---------------------------------------------------------------------------

type actorRepo Store

func (r *actorRepo) GetByID(_ context.Context, delegationID, id uuid.UUID) (*domain.DelegationActor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.actors[delegationID] {
		if a.ID == id {
			ca := *a
			return &ca, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *actorRepo) ListByDelegation(_ context.Context, delegationID uuid.UUID) ([]*domain.DelegationActor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	actors := r.actors[delegationID]
	out := make([]*domain.DelegationActor, 0, len(actors))
	for _, a := range actors {
		ca := *a
		out = append(out, &ca)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Dossier comments
// ---------------------------------------------------------------------------

type dossierRepo Store

func (r *dossierRepo) Append(_ context.Context, c *domain.DossierComment, expectedHead string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	head := hashchain.Genesis
	trail := r.comments[c.DossierID]
	if len(trail) > 0 {
		head = trail[len(trail)-1].CommentHash
	}
	if head != expectedHead {
		return domain.ErrChainConflict
	}

	cc := *c
	cc.Seq = int64(len(trail)) + 1
	r.comments[c.DossierID] = append(trail, &cc)
	c.Seq = cc.Seq
	return nil
}

func (r *dossierRepo) History(_ context.Context, dossierID string) ([]*domain.DossierComment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trail := r.comments[dossierID]
	out := make([]*domain.DossierComment, 0, len(trail))
	for _, c := range trail {
		cc := *c
		out = append(out, &cc)
	}
	return out, nil
}

func (r *dossierRepo) Head(_ context.Context, dossierID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trail := r.comments[dossierID]
	if len(trail) == 0 {
		return hashchain.Genesis, nil
	}
	return trail[len(trail)-1].CommentHash, nil
}
