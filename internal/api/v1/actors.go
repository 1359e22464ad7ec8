package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/publicworks-io/regie/internal/delegation"
	"github.com/publicworks-io/regie/internal/domain"
)

type AddActorInput struct {
	ID   uuid.UUID `path:"id" doc:"Delegation ID"`
	Body struct {
		PersonID       *uuid.UUID `json:"person_id,omitempty" doc:"Person ID, absent for externally-named parties"`
		Name           string     `json:"name" minLength:"1" maxLength:"200" doc:"Display name"`
		Role           string     `json:"role,omitempty" maxLength:"100" doc:"Organizational role"`
		RoleType       string     `json:"role_type" minLength:"1" maxLength:"100" doc:"Function on this delegation, e.g. approver"`
		Required       bool       `json:"required,omitempty" doc:"Whether this actor is a required party"`
		CanApprove     bool       `json:"can_approve,omitempty" doc:"May approve on behalf of the delegation"`
		CanRevoke      bool       `json:"can_revoke,omitempty" doc:"May revoke the delegation"`
		MustBeNotified bool       `json:"must_be_notified,omitempty" doc:"Receives transition notifications"`
		Note           string     `json:"note,omitempty" maxLength:"500" doc:"Free-text note"`
	}
}

type AddActorOutput struct {
	Body *domain.DelegationActor
}

type ListActorsInput struct {
	ID uuid.UUID `path:"id" doc:"Delegation ID"`
}

type ListActorsOutput struct {
	Body []*domain.DelegationActor
}

type RemoveActorInput struct {
	ID      uuid.UUID `path:"id" doc:"Delegation ID"`
	ActorID uuid.UUID `path:"actorID" doc:"Actor ID"`
}

func RegisterActorRoutes(api huma.API, svc DelegationService) {
	huma.Register(api, huma.Operation{
		OperationID: "add-delegation-actor",
		Method:      http.MethodPost,
		Path:        "/delegations/{id}/actors",
		Summary:     "Attach an actor to a delegation",
		Tags:        []string{"Actors"},
	}, func(ctx context.Context, input *AddActorInput) (*AddActorOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		a, err := svc.AddActor(ctx, input.ID, delegation.ActorParams{
			PersonID:       input.Body.PersonID,
			Name:           input.Body.Name,
			Role:           input.Body.Role,
			RoleType:       input.Body.RoleType,
			Required:       input.Body.Required,
			CanApprove:     input.Body.CanApprove,
			CanRevoke:      input.Body.CanRevoke,
			MustBeNotified: input.Body.MustBeNotified,
			Note:           input.Body.Note,
		}, actor)
		if err != nil {
			return nil, mapError(err)
		}
		return &AddActorOutput{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-delegation-actors",
		Method:      http.MethodGet,
		Path:        "/delegations/{id}/actors",
		Summary:     "List a delegation's actors",
		Tags:        []string{"Actors"},
	}, func(ctx context.Context, input *ListActorsInput) (*ListActorsOutput, error) {
		actors, err := svc.ListActors(ctx, input.ID)
		if err != nil {
			return nil, mapError(err)
		}
		return &ListActorsOutput{Body: actors}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-delegation-actor",
		Method:      http.MethodDelete,
		Path:        "/delegations/{id}/actors/{actorID}",
		Summary:     "Detach an actor from a delegation",
		Tags:        []string{"Actors"},
	}, func(ctx context.Context, input *RemoveActorInput) (*struct{}, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}
		if err := svc.RemoveActor(ctx, input.ID, input.ActorID, actor); err != nil {
			return nil, mapError(err)
		}
		return nil, nil
	})
}
