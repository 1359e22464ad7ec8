package v1

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/publicworks-io/regie/internal/domain"
	"github.com/publicworks-io/regie/internal/dossier"
)

type AddCommentInput struct {
	DossierID string `path:"dossierID" doc:"Dossier reference, e.g. DOS-2026-017"`
	Body      struct {
		Text string `json:"text" minLength:"1" maxLength:"4000" doc:"Comment text"`
	}
}

type AddCommentOutput struct {
	Body *domain.DossierComment
}

type ListCommentsInput struct {
	DossierID string `path:"dossierID" doc:"Dossier reference"`
}

type ListCommentsOutput struct {
	Body []*domain.DossierComment
}

type VerifyCommentsInput struct {
	DossierID string `path:"dossierID" doc:"Dossier reference"`
}

type VerifyCommentsOutput struct {
	Body *dossier.VerifyResult
}

func RegisterDossierRoutes(api huma.API, trail DossierTrail) {
	huma.Register(api, huma.Operation{
		OperationID: "add-dossier-comment",
		Method:      http.MethodPost,
		Path:        "/dossiers/{dossierID}/comments",
		Summary:     "Append a comment to a dossier's trail",
		Tags:        []string{"Dossiers"},
	}, func(ctx context.Context, input *AddCommentInput) (*AddCommentOutput, error) {
		actor, err := actorFrom(ctx)
		if err != nil {
			return nil, err
		}
		c, err := trail.Comment(ctx, input.DossierID, input.Body.Text, actor)
		if err != nil {
			return nil, mapError(err)
		}
		return &AddCommentOutput{Body: c}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-dossier-comments",
		Method:      http.MethodGet,
		Path:        "/dossiers/{dossierID}/comments",
		Summary:     "List a dossier's comment trail",
		Tags:        []string{"Dossiers"},
	}, func(ctx context.Context, input *ListCommentsInput) (*ListCommentsOutput, error) {
		comments, err := trail.History(ctx, input.DossierID)
		if err != nil {
			return nil, mapError(err)
		}
		return &ListCommentsOutput{Body: comments}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "verify-dossier-comments",
		Method:      http.MethodGet,
		Path:        "/dossiers/{dossierID}/comments/verify",
		Summary:     "Replay and verify a dossier's comment chain",
		Tags:        []string{"Dossiers"},
	}, func(ctx context.Context, input *VerifyCommentsInput) (*VerifyCommentsOutput, error) {
		res, err := trail.Verify(ctx, input.DossierID)
		if err != nil {
			return nil, mapError(err)
		}
		return &VerifyCommentsOutput{Body: res}, nil
	})
}
