package v1_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/publicworks-io/regie/internal/api/v1"
	"github.com/publicworks-io/regie/internal/domain"
	"github.com/publicworks-io/regie/internal/dossier"
	"github.com/publicworks-io/regie/internal/hashchain"
)

// ---------------------------------------------------------------------------
// TestAddDossierComment
// ---------------------------------------------------------------------------

func TestAddDossierComment(t *testing.T) {
	t.Parallel()

	const dossierID = "DOS-2026-017"

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		trail := &mockDossierTrail{
			commentFunc: func(_ context.Context, did, text string, author domain.ActorRef) (*domain.DossierComment, error) {
				assert.Equal(t, dossierID, did)
				assert.Equal(t, "pièce manquante au dossier", text)
				assert.Equal(t, testActor, author)
				return &domain.DossierComment{
					ID:           uuid.New(),
					DossierID:    did,
					Seq:          1,
					Author:       author,
					Body:         json.RawMessage(`{"text":"pièce manquante au dossier"}`),
					PreviousHash: hashchain.Genesis,
					CommentHash:  "c1",
					CreatedAt:    time.Now(),
				}, nil
			},
		}
		v1.RegisterDossierRoutes(api, trail)

		resp := api.PostCtx(actorCtx(), "/dossiers/"+dossierID+"/comments", map[string]any{
			"text": "pièce manquante au dossier",
		})

		require.Equal(t, http.StatusOK, resp.Code)

		var got domain.DossierComment
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, int64(1), got.Seq)
		assert.Equal(t, hashchain.Genesis, got.PreviousHash)
	})

	t.Run("chain_conflict", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		trail := &mockDossierTrail{
			commentFunc: func(_ context.Context, _, _ string, _ domain.ActorRef) (*domain.DossierComment, error) {
				return nil, fmt.Errorf("dossier.Comment: %w", domain.ErrChainConflict)
			},
		}
		v1.RegisterDossierRoutes(api, trail)

		resp := api.PostCtx(actorCtx(), "/dossiers/"+dossierID+"/comments", map[string]any{
			"text": "doublon",
		})

		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("missing_actor", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterDossierRoutes(api, &mockDossierTrail{})

		resp := api.PostCtx(context.Background(), "/dossiers/"+dossierID+"/comments", map[string]any{
			"text": "anonyme",
		})

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})
}

// ---------------------------------------------------------------------------
// TestListDossierComments
// ---------------------------------------------------------------------------

func TestListDossierComments(t *testing.T) {
	t.Parallel()

	const dossierID = "DOS-2026-017"

	_, api := humatest.New(t)
	trail := &mockDossierTrail{
		historyFunc: func(_ context.Context, did string) ([]*domain.DossierComment, error) {
			assert.Equal(t, dossierID, did)
			return []*domain.DossierComment{
				{ID: uuid.New(), DossierID: did, Seq: 1, PreviousHash: hashchain.Genesis, CommentHash: "c1"},
				{ID: uuid.New(), DossierID: did, Seq: 2, PreviousHash: "c1", CommentHash: "c2"},
			}, nil
		},
	}
	v1.RegisterDossierRoutes(api, trail)

	resp := api.GetCtx(actorCtx(), "/dossiers/"+dossierID+"/comments")

	require.Equal(t, http.StatusOK, resp.Code)

	var got []*domain.DossierComment
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[1].PreviousHash)
}

// ---------------------------------------------------------------------------
// TestVerifyDossierComments
// ---------------------------------------------------------------------------

func TestVerifyDossierComments(t *testing.T) {
	t.Parallel()

	const dossierID = "DOS-2026-017"

	t.Run("valid_trail", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		trail := &mockDossierTrail{
			verifyFunc: func(_ context.Context, did string) (*dossier.VerifyResult, error) {
				assert.Equal(t, dossierID, did)
				return &dossier.VerifyResult{Valid: true, Comments: 3, BrokenAt: -1}, nil
			},
		}
		v1.RegisterDossierRoutes(api, trail)

		resp := api.GetCtx(actorCtx(), "/dossiers/"+dossierID+"/comments/verify")

		require.Equal(t, http.StatusOK, resp.Code)

		var got dossier.VerifyResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.True(t, got.Valid)
		assert.Equal(t, 3, got.Comments)
	})

	t.Run("backend_error", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		trail := &mockDossierTrail{
			verifyFunc: func(_ context.Context, _ string) (*dossier.VerifyResult, error) {
				return nil, fmt.Errorf("dossier.Verify: db connection refused")
			},
		}
		v1.RegisterDossierRoutes(api, trail)

		resp := api.GetCtx(actorCtx(), "/dossiers/"+dossierID+"/comments/verify")

		assert.Equal(t, http.StatusInternalServerError, resp.Code)
	})
}
