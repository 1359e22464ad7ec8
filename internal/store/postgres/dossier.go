package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/publicworks-io/regie/internal/domain"
	"github.com/publicworks-io/regie/internal/hashchain"
)

type DossierCommentRepo struct {
	pool *pgxpool.Pool
}

func NewDossierCommentRepo(pool *pgxpool.Pool) *DossierCommentRepo {
	return &DossierCommentRepo{pool: pool}
}

// Append commits one comment, guarded by a compare-and-swap on the
// trail's head. The latest row is locked FOR UPDATE so two concurrent
// authors serialize; the one whose expected head went stale gets
// ErrChainConflict.
func (r *DossierCommentRepo) Append(ctx context.Context, c *domain.DossierComment, expectedHead string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("dossierCommentRepo.Append: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	head := hashchain.Genesis
	var lastSeq int64
	err = tx.QueryRow(ctx,
		`SELECT seq, comment_hash FROM dossier_comments
		 WHERE dossier_id = $1
		 ORDER BY seq DESC LIMIT 1
		 FOR UPDATE`,
		c.DossierID,
	).Scan(&lastSeq, &head)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("dossierCommentRepo.Append: read head: %w", err)
	}

	if head != expectedHead {
		return domain.ErrChainConflict
	}

	c.Seq = lastSeq + 1
	_, err = tx.Exec(ctx,
		`INSERT INTO dossier_comments (id, dossier_id, seq, author_id, author_name, author_role,
		                               body, previous_hash, comment_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		c.ID, c.DossierID, c.Seq, c.Author.ID, c.Author.Name, c.Author.Role,
		c.Body, c.PreviousHash, c.CommentHash, c.CreatedAt,
	)
	if err != nil {
		// Two first comments on an empty trail have no row to lock on;
		// the (dossier_id, seq) unique constraint breaks that tie.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrChainConflict
		}
		return fmt.Errorf("dossierCommentRepo.Append: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("dossierCommentRepo.Append: commit: %w", err)
	}
	return nil
}

func (r *DossierCommentRepo) History(ctx context.Context, dossierID string) ([]*domain.DossierComment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, dossier_id, seq, author_id, author_name, author_role,
		        body, previous_hash, comment_hash, created_at
		 FROM dossier_comments
		 WHERE dossier_id = $1
		 ORDER BY seq`,
		dossierID,
	)
	if err != nil {
		return nil, fmt.Errorf("dossierCommentRepo.History: %w", err)
	}
	defer rows.Close()

	var comments []*domain.DossierComment
	for rows.Next() {
		var c domain.DossierComment
		if scanErr := rows.Scan(
			&c.ID, &c.DossierID, &c.Seq,
			&c.Author.ID, &c.Author.Name, &c.Author.Role,
			&c.Body, &c.PreviousHash, &c.CommentHash, &c.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("dossierCommentRepo.History: scan: %w", scanErr)
		}
		comments = append(comments, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dossierCommentRepo.History: rows: %w", err)
	}
	return comments, nil
}

func (r *DossierCommentRepo) Head(ctx context.Context, dossierID string) (string, error) {
	var head string
	err := r.pool.QueryRow(ctx,
		`SELECT comment_hash FROM dossier_comments
		 WHERE dossier_id = $1
		 ORDER BY seq DESC LIMIT 1`,
		dossierID,
	).Scan(&head)
	if errors.Is(err, pgx.ErrNoRows) {
		return hashchain.Genesis, nil
	}
	if err != nil {
		return "", fmt.Errorf("dossierCommentRepo.Head: %w", err)
	}
	return head, nil
}
