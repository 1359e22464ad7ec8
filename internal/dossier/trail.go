// Package dossier maintains the tamper-evident comment trail attached to
// blocked dossiers. Each dossier forms its own hash chain, independent of
// every delegation chain: the digest primitive is shared, the chains are
// not.
package dossier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/publicworks-io/regie/internal/domain"
	"github.com/publicworks-io/regie/internal/hashchain"
)

// commentEventType tags comment links in the digest input, keeping dossier
// digests distinct from delegation event digests over identical payloads.
const commentEventType = "COMMENT"

type commentBody struct {
	Text string `json:"text"`
}

type Trail struct {
	comments domain.DossierCommentRepository
	now      func() time.Time
}

type Option func(*Trail)

func WithClock(now func() time.Time) Option {
	return func(t *Trail) { t.now = now }
}

func NewTrail(comments domain.DossierCommentRepository, opts ...Option) *Trail {
	t := &Trail{comments: comments, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Comment appends one comment to the dossier's chain. Two concurrent
// authors race on the trail head; the loser gets domain.ErrChainConflict
// and retries against the new head.
func (t *Trail) Comment(ctx context.Context, dossierID, text string, author domain.ActorRef) (*domain.DossierComment, error) {
	if dossierID == "" {
		return nil, fmt.Errorf("dossier.Comment: %w", &domain.ValidationError{Field: "dossier_id", Detail: "is required"})
	}
	if text == "" {
		return nil, fmt.Errorf("dossier.Comment: %w", &domain.ValidationError{Field: "text", Detail: "is required"})
	}

	head, err := t.comments.Head(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("dossier.Comment: head: %w", err)
	}

	body, err := json.Marshal(commentBody{Text: text})
	if err != nil {
		return nil, fmt.Errorf("dossier.Comment: marshal body: %w", err)
	}

	ts := t.now().UTC()
	hash, err := hashchain.Digest(body, commentEventType, author.ID, ts, head)
	if err != nil {
		return nil, fmt.Errorf("dossier.Comment: %w", err)
	}

	c := &domain.DossierComment{
		ID:           uuid.New(),
		DossierID:    dossierID,
		Author:       author,
		Body:         body,
		PreviousHash: head,
		CommentHash:  hash,
		CreatedAt:    ts,
	}
	if err := t.comments.Append(ctx, c, head); err != nil {
		return nil, fmt.Errorf("dossier.Comment: %w", err)
	}
	return c, nil
}

func (t *Trail) History(ctx context.Context, dossierID string) ([]*domain.DossierComment, error) {
	comments, err := t.comments.History(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("dossier.History: %w", err)
	}
	return comments, nil
}

// VerifyResult mirrors the delegation ledger's replay report.
type VerifyResult struct {
	Valid    bool `json:"valid"`
	Comments int  `json:"comments"`
	BrokenAt int  `json:"broken_at"`
}

// Verify replays the dossier's trail from genesis.
func (t *Trail) Verify(ctx context.Context, dossierID string) (*VerifyResult, error) {
	comments, err := t.comments.History(ctx, dossierID)
	if err != nil {
		return nil, fmt.Errorf("dossier.Verify: %w", err)
	}

	links := make([]hashchain.Link, len(comments))
	for i, c := range comments {
		links[i] = hashchain.Link{
			Details:      c.Body,
			EventType:    commentEventType,
			ActorID:      c.Author.ID,
			Timestamp:    c.CreatedAt,
			PreviousHash: c.PreviousHash,
			EventHash:    c.CommentHash,
		}
	}

	brokenAt, err := hashchain.VerifyChain(links)
	if err != nil {
		return nil, fmt.Errorf("dossier.Verify: %w", err)
	}

	return &VerifyResult{
		Valid:    brokenAt == -1,
		Comments: len(comments),
		BrokenAt: brokenAt,
	}, nil
}
