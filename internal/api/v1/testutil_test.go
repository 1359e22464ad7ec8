package v1_test

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/publicworks-io/regie/internal/delegation"
	"github.com/publicworks-io/regie/internal/domain"
	"github.com/publicworks-io/regie/internal/dossier"
	"github.com/publicworks-io/regie/internal/server/middleware"
)

// ---------------------------------------------------------------------------
// Context helpers: inject the authenticated actor for DoCtx
// ---------------------------------------------------------------------------

var testActor = domain.ActorRef{ID: "u-chef", Name: "A. Morvan", Role: "chef_de_service"}

func actorCtx() context.Context {
	return context.WithValue(context.Background(), middleware.ContextKeyActor, testActor)
}

// ---------------------------------------------------------------------------
// Mock DelegationService
// ---------------------------------------------------------------------------

type mockDelegationService struct {
	createFunc      func(ctx context.Context, params delegation.CreateParams, performer domain.ActorRef) (*domain.Delegation, error)
	getFunc         func(ctx context.Context, id uuid.UUID) (*domain.Delegation, error)
	listFunc        func(ctx context.Context, limit, offset int) ([]*domain.Delegation, error)
	historyFunc     func(ctx context.Context, id uuid.UUID) ([]*domain.DelegationEvent, error)
	verifyFunc      func(ctx context.Context, id uuid.UUID) (*delegation.VerifyResult, error)
	suspendFunc     func(ctx context.Context, id uuid.UUID, performer domain.ActorRef, reason string) (*domain.Delegation, error)
	reactivateFunc  func(ctx context.Context, id uuid.UUID, performer domain.ActorRef) (*domain.Delegation, error)
	revokeFunc      func(ctx context.Context, id uuid.UUID, performer domain.ActorRef, reason string) (*domain.Delegation, error)
	extendFunc      func(ctx context.Context, id uuid.UUID, performer domain.ActorRef, newEnd time.Time) (*delegation.ExtendResult, error)
	addActorFunc    func(ctx context.Context, delegationID uuid.UUID, params delegation.ActorParams, performer domain.ActorRef) (*domain.DelegationActor, error)
	removeActorFunc func(ctx context.Context, delegationID, actorID uuid.UUID, performer domain.ActorRef) error
	listActorsFunc  func(ctx context.Context, id uuid.UUID) ([]*domain.DelegationActor, error)
	applyBulkFunc   func(ctx context.Context, req delegation.BulkRequest, performer domain.ActorRef) (*delegation.BulkResult, error)
}

func (m *mockDelegationService) Create(ctx context.Context, params delegation.CreateParams, performer domain.ActorRef) (*domain.Delegation, error) {
	return m.createFunc(ctx, params, performer)
}

func (m *mockDelegationService) Get(ctx context.Context, id uuid.UUID) (*domain.Delegation, error) {
	return m.getFunc(ctx, id)
}

func (m *mockDelegationService) List(ctx context.Context, limit, offset int) ([]*domain.Delegation, error) {
	return m.listFunc(ctx, limit, offset)
}

func (m *mockDelegationService) History(ctx context.Context, id uuid.UUID) ([]*domain.DelegationEvent, error) {
	return m.historyFunc(ctx, id)
}

func (m *mockDelegationService) Verify(ctx context.Context, id uuid.UUID) (*delegation.VerifyResult, error) {
	return m.verifyFunc(ctx, id)
}

func (m *mockDelegationService) Suspend(ctx context.Context, id uuid.UUID, performer domain.ActorRef, reason string) (*domain.Delegation, error) {
	return m.suspendFunc(ctx, id, performer, reason)
}

func (m *mockDelegationService) Reactivate(ctx context.Context, id uuid.UUID, performer domain.ActorRef) (*domain.Delegation, error) {
	return m.reactivateFunc(ctx, id, performer)
}

func (m *mockDelegationService) Revoke(ctx context.Context, id uuid.UUID, performer domain.ActorRef, reason string) (*domain.Delegation, error) {
	return m.revokeFunc(ctx, id, performer, reason)
}

func (m *mockDelegationService) Extend(ctx context.Context, id uuid.UUID, performer domain.ActorRef, newEnd time.Time) (*delegation.ExtendResult, error) {
	return m.extendFunc(ctx, id, performer, newEnd)
}

func (m *mockDelegationService) AddActor(ctx context.Context, delegationID uuid.UUID, params delegation.ActorParams, performer domain.ActorRef) (*domain.DelegationActor, error) {
	return m.addActorFunc(ctx, delegationID, params, performer)
}

func (m *mockDelegationService) RemoveActor(ctx context.Context, delegationID, actorID uuid.UUID, performer domain.ActorRef) error {
	return m.removeActorFunc(ctx, delegationID, actorID, performer)
}

func (m *mockDelegationService) ListActors(ctx context.Context, id uuid.UUID) ([]*domain.DelegationActor, error) {
	return m.listActorsFunc(ctx, id)
}

func (m *mockDelegationService) ApplyBulk(ctx context.Context, req delegation.BulkRequest, performer domain.ActorRef) (*delegation.BulkResult, error) {
	return m.applyBulkFunc(ctx, req, performer)
}

// ---------------------------------------------------------------------------
// Mock DossierTrail
// ---------------------------------------------------------------------------

type mockDossierTrail struct {
	commentFunc func(ctx context.Context, dossierID, text string, author domain.ActorRef) (*domain.DossierComment, error)
	historyFunc func(ctx context.Context, dossierID string) ([]*domain.DossierComment, error)
	verifyFunc  func(ctx context.Context, dossierID string) (*dossier.VerifyResult, error)
}

func (m *mockDossierTrail) Comment(ctx context.Context, dossierID, text string, author domain.ActorRef) (*domain.DossierComment, error) {
	return m.commentFunc(ctx, dossierID, text, author)
}

func (m *mockDossierTrail) History(ctx context.Context, dossierID string) ([]*domain.DossierComment, error) {
	return m.historyFunc(ctx, dossierID)
}

func (m *mockDossierTrail) Verify(ctx context.Context, dossierID string) (*dossier.VerifyResult, error) {
	return m.verifyFunc(ctx, dossierID)
}
