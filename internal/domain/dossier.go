package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DossierComment is one link in a blocked dossier's comment trail. Each
// dossier forms its own independent chain with the same digest primitive
// as delegations; Body holds the exact JSON bytes that were hashed.
type DossierComment struct {
	ID           uuid.UUID       `json:"id"`
	DossierID    string          `json:"dossier_id"`
	Seq          int64           `json:"seq"`
	Author       ActorRef        `json:"author"`
	Body         json.RawMessage `json:"body"`
	PreviousHash string          `json:"previous_hash"`
	CommentHash  string          `json:"comment_hash"`
	CreatedAt    time.Time       `json:"created_at"`
}

type DossierCommentRepository interface {
	// Append persists the comment, accepting only if the trail's live
	// head still equals expectedHead (ErrChainConflict otherwise).
	Append(ctx context.Context, c *DossierComment, expectedHead string) error
	History(ctx context.Context, dossierID string) ([]*DossierComment, error)
	// Head returns the hash of the latest comment, or the genesis
	// sentinel for an empty trail.
	Head(ctx context.Context, dossierID string) (string, error)
}
