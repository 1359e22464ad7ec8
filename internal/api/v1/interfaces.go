package v1

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/publicworks-io/regie/internal/delegation"
	"github.com/publicworks-io/regie/internal/domain"
	"github.com/publicworks-io/regie/internal/dossier"
)

// DelegationService abstracts the lifecycle engine for handler testing.
// *delegation.Service satisfies this interface.
type DelegationService interface {
	Create(ctx context.Context, params delegation.CreateParams, performer domain.ActorRef) (*domain.Delegation, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Delegation, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Delegation, error)
	History(ctx context.Context, id uuid.UUID) ([]*domain.DelegationEvent, error)
	Verify(ctx context.Context, id uuid.UUID) (*delegation.VerifyResult, error)

	Suspend(ctx context.Context, id uuid.UUID, performer domain.ActorRef, reason string) (*domain.Delegation, error)
	Reactivate(ctx context.Context, id uuid.UUID, performer domain.ActorRef) (*domain.Delegation, error)
	Revoke(ctx context.Context, id uuid.UUID, performer domain.ActorRef, reason string) (*domain.Delegation, error)
	Extend(ctx context.Context, id uuid.UUID, performer domain.ActorRef, newEnd time.Time) (*delegation.ExtendResult, error)

	AddActor(ctx context.Context, delegationID uuid.UUID, params delegation.ActorParams, performer domain.ActorRef) (*domain.DelegationActor, error)
	RemoveActor(ctx context.Context, delegationID, actorID uuid.UUID, performer domain.ActorRef) error
	ListActors(ctx context.Context, id uuid.UUID) ([]*domain.DelegationActor, error)

	ApplyBulk(ctx context.Context, req delegation.BulkRequest, performer domain.ActorRef) (*delegation.BulkResult, error)
}

// DossierTrail abstracts the comment trail for handler testing.
// *dossier.Trail satisfies this interface.
type DossierTrail interface {
	Comment(ctx context.Context, dossierID, text string, author domain.ActorRef) (*domain.DossierComment, error)
	History(ctx context.Context, dossierID string) ([]*domain.DossierComment, error)
	Verify(ctx context.Context, dossierID string) (*dossier.VerifyResult, error)
}
