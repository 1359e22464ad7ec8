package v1_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/publicworks-io/regie/internal/api/v1"
	"github.com/publicworks-io/regie/internal/delegation"
	"github.com/publicworks-io/regie/internal/domain"
)

// ---------------------------------------------------------------------------
// TestAddDelegationActor
// ---------------------------------------------------------------------------

func TestAddDelegationActor(t *testing.T) {
	t.Parallel()

	delegationID := uuid.New()
	personID := uuid.New()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockDelegationService{
			addActorFunc: func(_ context.Context, did uuid.UUID, params delegation.ActorParams, performer domain.ActorRef) (*domain.DelegationActor, error) {
				assert.Equal(t, delegationID, did)
				assert.Equal(t, "B. Niang", params.Name)
				assert.Equal(t, "approver", params.RoleType)
				assert.True(t, params.MustBeNotified)
				assert.Equal(t, testActor, performer)
				return &domain.DelegationActor{
					ID:             uuid.New(),
					DelegationID:   did,
					PersonID:       &personID,
					Name:           params.Name,
					RoleType:       params.RoleType,
					CanApprove:     params.CanApprove,
					MustBeNotified: params.MustBeNotified,
				}, nil
			},
		}
		v1.RegisterActorRoutes(api, svc)

		resp := api.PostCtx(actorCtx(), "/delegations/"+delegationID.String()+"/actors", map[string]any{
			"person_id":        personID.String(),
			"name":             "B. Niang",
			"role_type":        "approver",
			"can_approve":      true,
			"must_be_notified": true,
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var got domain.DelegationActor
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, delegationID, got.DelegationID)
		assert.Equal(t, "approver", got.RoleType)
	})

	t.Run("cross_aggregate_person", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockDelegationService{
			addActorFunc: func(_ context.Context, _ uuid.UUID, _ delegation.ActorParams, _ domain.ActorRef) (*domain.DelegationActor, error) {
				return nil, fmt.Errorf("delegation.AddActor: %w", domain.ErrInvalidReference)
			},
		}
		v1.RegisterActorRoutes(api, svc)

		resp := api.PostCtx(actorCtx(), "/delegations/"+delegationID.String()+"/actors", map[string]any{
			"name":      "B. Niang",
			"role_type": "approver",
		})

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("missing_role_type", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockDelegationService{
			addActorFunc: func(_ context.Context, _ uuid.UUID, _ delegation.ActorParams, _ domain.ActorRef) (*domain.DelegationActor, error) {
				return nil, fmt.Errorf("delegation.AddActor: %w", &domain.ValidationError{Field: "role_type", Detail: "is required"})
			},
		}
		v1.RegisterActorRoutes(api, svc)

		resp := api.PostCtx(actorCtx(), "/delegations/"+delegationID.String()+"/actors", map[string]any{
			"name":      "B. Niang",
			"role_type": "x",
		})

		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestListDelegationActors
// ---------------------------------------------------------------------------

func TestListDelegationActors(t *testing.T) {
	t.Parallel()

	delegationID := uuid.New()

	_, api := humatest.New(t)
	svc := &mockDelegationService{
		listActorsFunc: func(_ context.Context, did uuid.UUID) ([]*domain.DelegationActor, error) {
			assert.Equal(t, delegationID, did)
			return []*domain.DelegationActor{
				{ID: uuid.New(), DelegationID: did, Name: "B. Niang", RoleType: "approver"},
				{ID: uuid.New(), DelegationID: did, Name: "S. Keller", RoleType: "observer"},
			}, nil
		},
	}
	v1.RegisterActorRoutes(api, svc)

	resp := api.GetCtx(actorCtx(), "/delegations/"+delegationID.String()+"/actors")

	require.Equal(t, http.StatusOK, resp.Code)

	var got []*domain.DelegationActor
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "observer", got[1].RoleType)
}

// ---------------------------------------------------------------------------
// TestRemoveDelegationActor
// ---------------------------------------------------------------------------

func TestRemoveDelegationActor(t *testing.T) {
	t.Parallel()

	delegationID := uuid.New()
	actorID := uuid.New()

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockDelegationService{
			removeActorFunc: func(_ context.Context, did, aid uuid.UUID, performer domain.ActorRef) error {
				assert.Equal(t, delegationID, did)
				assert.Equal(t, actorID, aid)
				assert.Equal(t, testActor, performer)
				return nil
			},
		}
		v1.RegisterActorRoutes(api, svc)

		resp := api.DeleteCtx(actorCtx(), "/delegations/"+delegationID.String()+"/actors/"+actorID.String())

		assert.Equal(t, http.StatusNoContent, resp.Code)
	})

	t.Run("unknown_actor", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		svc := &mockDelegationService{
			removeActorFunc: func(_ context.Context, _, _ uuid.UUID, _ domain.ActorRef) error {
				return fmt.Errorf("delegation.RemoveActor: %w", domain.ErrNotFound)
			},
		}
		v1.RegisterActorRoutes(api, svc)

		resp := api.DeleteCtx(actorCtx(), "/delegations/"+delegationID.String()+"/actors/"+uuid.NewString())

		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}
