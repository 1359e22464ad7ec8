package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"

	"github.com/publicworks-io/regie/internal/delegation"
	"github.com/publicworks-io/regie/internal/domain"
	"github.com/publicworks-io/regie/internal/server/middleware"
)

type PartyInput struct {
	ID   *uuid.UUID `json:"id,omitempty" doc:"Person ID, absent for externally-named parties"`
	Name string     `json:"name" minLength:"1" maxLength:"200" doc:"Display name"`
	Role string     `json:"role,omitempty" maxLength:"100" doc:"Organizational role"`
}

type CreateDelegationInput struct {
	Body struct {
		Delegator     PartyInput `json:"delegator" doc:"Authority holder"`
		Delegate      PartyInput `json:"delegate" doc:"Person receiving the authority"`
		Scopes        []string   `json:"scopes,omitempty" doc:"Capability tags covered by the delegation"`
		StartsAt      time.Time  `json:"starts_at" doc:"Validity window open"`
		EndsAt        time.Time  `json:"ends_at" doc:"Validity window close"`
		Extendable    bool       `json:"extendable,omitempty" doc:"Whether the window may be extended"`
		MaxExtensions int        `json:"max_extensions,omitempty" minimum:"0" doc:"Total extensions allowed"`
		ExtensionDays int        `json:"extension_days,omitempty" minimum:"0" doc:"Cap on a single extension length in days, 0 = uncapped"`
	}
}

type CreateDelegationOutput struct {
	Body *domain.Delegation
}

type ListDelegationsInput struct {
	Limit  int `query:"limit" minimum:"1" maximum:"200" default:"50" doc:"Page size"`
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Page offset"`
}

type ListDelegationsOutput struct {
	Body []*domain.Delegation
}

type GetDelegationInput struct {
	ID uuid.UUID `path:"id" doc:"Delegation ID"`
}

type GetDelegationOutput struct {
	Body *domain.Delegation
}

type LifecycleReasonInput struct {
	ID   uuid.UUID `path:"id" doc:"Delegation ID"`
	Body struct {
		Reason string `json:"reason,omitempty" maxLength:"500" doc:"Reason recorded on the event"`
	}
}

type LifecycleOutput struct {
	Body *domain.Delegation
}

type ReactivateInput struct {
	ID uuid.UUID `path:"id" doc:"Delegation ID"`
}

type ExtendInput struct {
	ID   uuid.UUID `path:"id" doc:"Delegation ID"`
	Body struct {
		NewEndsAt time.Time `json:"new_ends_at" doc:"New validity window close"`
	}
}

type ExtendOutput struct {
	Body *delegation.ExtendResult
}

type HistoryInput struct {
	ID uuid.UUID `path:"id" doc:"Delegation ID"`
}

type HistoryOutput struct {
	Body []*domain.DelegationEvent
}

type VerifyInput struct {
	ID uuid.UUID `path:"id" doc:"Delegation ID"`
}

type VerifyOutput struct {
	Body *delegation.VerifyResult
}

type BulkInput struct {
	Body struct {
		Action    string      `json:"action" enum:"suspend,reactivate,revoke,extend" doc:"Lifecycle action applied to every id"`
		IDs       []uuid.UUID `json:"ids" minItems:"1" doc:"Delegation IDs"`
		Reason    string      `json:"reason,omitempty" maxLength:"500" doc:"Reason for suspend/revoke"`
		NewEndsAt time.Time   `json:"new_ends_at,omitempty" doc:"New end date for extend"`
	}
}

type BulkOutput struct {
	Body *delegation.BulkResult
}

func actorFrom(ctx context.Context) (domain.ActorRef, error) {
	actor, ok := middleware.ActorFromContext(ctx)
	if !ok {
		return domain.ActorRef{}, huma.Error401Unauthorized("missing actor context")
	}
	return actor, nil
}

func RegisterDelegationRoutes(api huma.API, svc DelegationService) {
	huma.Register(api, huma.Operation{
		OperationID: "create-delegation",
		Method:      http.MethodPost,
		Path:        "/delegations",
		Summary:     "Create a delegation of authority",
		Tags:        []string{"Delegations"},
	}, func(ctx context.Context, input *CreateDelegationInput) (*CreateDelegationOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}

		d, err := svc.Create(ctx, delegation.CreateParams{
			Delegator:     domain.PartyRef(input.Body.Delegator),
			Delegate:      domain.PartyRef(input.Body.Delegate),
			Scopes:        input.Body.Scopes,
			StartsAt:      input.Body.StartsAt,
			EndsAt:        input.Body.EndsAt,
			Extendable:    input.Body.Extendable,
			MaxExtensions: input.Body.MaxExtensions,
			ExtensionDays: input.Body.ExtensionDays,
		}, actor)
		if err != nil {
			return nil, mapError(err)
		}

		return &CreateDelegationOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-delegations",
		Method:      http.MethodGet,
		Path:        "/delegations",
		Summary:     "List delegations",
		Tags:        []string{"Delegations"},
	}, func(ctx context.Context, input *ListDelegationsInput) (*ListDelegationsOutput, error) {
		ds, err := svc.List(ctx, input.Limit, input.Offset)
		if err != nil {
			return nil, mapError(err)
		}
		return &ListDelegationsOutput{Body: ds}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-delegation",
		Method:      http.MethodGet,
		Path:        "/delegations/{id}",
		Summary:     "Get a delegation by ID",
		Tags:        []string{"Delegations"},
	}, func(ctx context.Context, input *GetDelegationInput) (*GetDelegationOutput, error) {
		d, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, mapError(err)
		}
		return &GetDelegationOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "suspend-delegation",
		Method:      http.MethodPost,
		Path:        "/delegations/{id}/suspend",
		Summary:     "Suspend an active delegation",
		Tags:        []string{"Delegations"},
	}, func(ctx context.Context, input *LifecycleReasonInput) (*LifecycleOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}
		d, err := svc.Suspend(ctx, input.ID, actor, input.Body.Reason)
		if err != nil {
			return nil, mapError(err)
		}
		return &LifecycleOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reactivate-delegation",
		Method:      http.MethodPost,
		Path:        "/delegations/{id}/reactivate",
		Summary:     "Reactivate a suspended delegation",
		Tags:        []string{"Delegations"},
	}, func(ctx context.Context, input *ReactivateInput) (*LifecycleOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}
		d, err := svc.Reactivate(ctx, input.ID, actor)
		if err != nil {
			return nil, mapError(err)
		}
		return &LifecycleOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-delegation",
		Method:      http.MethodPost,
		Path:        "/delegations/{id}/revoke",
		Summary:     "Revoke a delegation (terminal)",
		Tags:        []string{"Delegations"},
	}, func(ctx context.Context, input *LifecycleReasonInput) (*LifecycleOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}
		d, err := svc.Revoke(ctx, input.ID, actor, input.Body.Reason)
		if err != nil {
			return nil, mapError(err)
		}
		return &LifecycleOutput{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "extend-delegation",
		Method:      http.MethodPost,
		Path:        "/delegations/{id}/extend",
		Summary:     "Extend a delegation's validity window",
		Tags:        []string{"Delegations"},
	}, func(ctx context.Context, input *ExtendInput) (*ExtendOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}
		res, err := svc.Extend(ctx, input.ID, actor, input.Body.NewEndsAt)
		if err != nil {
			return nil, mapError(err)
		}
		return &ExtendOutput{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "delegation-history",
		Method:      http.MethodGet,
		Path:        "/delegations/{id}/history",
		Summary:     "Full event history of a delegation",
		Tags:        []string{"Delegations"},
	}, func(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
		events, err := svc.History(ctx, input.ID)
		if err != nil {
			return nil, mapError(err)
		}
		return &HistoryOutput{Body: events}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "verify-delegation",
		Method:      http.MethodGet,
		Path:        "/delegations/{id}/verify",
		Summary:     "Replay and verify a delegation's hash chain",
		Tags:        []string{"Delegations"},
	}, func(ctx context.Context, input *VerifyInput) (*VerifyOutput, error) {
		res, err := svc.Verify(ctx, input.ID)
		if err != nil {
			return nil, mapError(err)
		}
		return &VerifyOutput{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "bulk-delegations",
		Method:      http.MethodPost,
		Path:        "/delegations/bulk",
		Summary:     "Apply one lifecycle action to a list of delegations",
		Tags:        []string{"Delegations"},
	}, func(ctx context.Context, input *BulkInput) (*BulkOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}
		res, err := svc.ApplyBulk(ctx, delegation.BulkRequest{
			Action:    domain.LifecycleAction(input.Body.Action),
			IDs:       input.Body.IDs,
			Reason:    input.Body.Reason,
			NewEndsAt: input.Body.NewEndsAt,
		}, actor)
		if err != nil {
			return nil, mapError(err)
		}
		return &BulkOutput{Body: res}, nil
	})
}
