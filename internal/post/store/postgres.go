package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"veil/internal/post/models"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// Postgres persists posts. Window counts are rolling recounts over
// created_at; an index on (persona_id, created_at) keeps them cheap.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, p *models.Post) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, persona_id, body, moderation_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID.String(), p.PersonaID.String(), p.Body, string(p.ModerationStatus), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, postID id.PostID) (*models.Post, error) {
	row := s.db.QueryRowContext(ctx, selectPost+` WHERE id = $1`, postID.String())
	return scanPost(row)
}

func (s *Postgres) CountByPersonaSince(ctx context.Context, personaID id.PersonaID, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM posts WHERE persona_id = $1 AND created_at >= $2
	`, personaID.String(), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts by persona: %w", err)
	}
	return count, nil
}

func (s *Postgres) CountByPersonasSince(ctx context.Context, personaIDs []id.PersonaID, since time.Time) (int, error) {
	if len(personaIDs) == 0 {
		return 0, nil
	}
	raw := make([]string, len(personaIDs))
	for i, pid := range personaIDs {
		raw[i] = pid.String()
	}
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM posts WHERE persona_id = ANY($1) AND created_at >= $2
	`, pq.Array(raw), since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts by personas: %w", err)
	}
	return count, nil
}

func (s *Postgres) Execute(ctx context.Context, postID id.PostID, validate func(*models.Post) error, mutate func(*models.Post)) (*models.Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, selectPost+` WHERE id = $1 FOR UPDATE`, postID.String())
	p, err := scanPost(row)
	if err != nil {
		return nil, err
	}

	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)

	_, err = tx.ExecContext(ctx, `
		UPDATE posts SET moderation_status = $2, updated_at = $3, deleted_at = $4 WHERE id = $1
	`, p.ID.String(), string(p.ModerationStatus), p.UpdatedAt, p.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

const selectPost = `
	SELECT id, persona_id, body, moderation_status, created_at, updated_at, deleted_at
	FROM posts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var p models.Post
	var rawID, rawPersona, rawStatus string
	err := row.Scan(&rawID, &rawPersona, &p.Body, &rawStatus, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan post: %w", err)
	}
	postID, err := id.ParsePostID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse post id: %w", err)
	}
	personaID, err := id.ParsePersonaID(rawPersona)
	if err != nil {
		return nil, fmt.Errorf("parse persona id: %w", err)
	}
	p.ID = postID
	p.PersonaID = personaID
	p.ModerationStatus = models.ModerationStatus(rawStatus)
	return &p, nil
}
