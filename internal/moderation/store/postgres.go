package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"veil/internal/moderation/models"
	id "veil/pkg/domain"
)

// Postgres persists the moderation audit log in an insert-only table.
// Immutability is enforced here by construction (no UPDATE/DELETE statements)
// and at the database by revoking those privileges from the service role.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, entry *models.LogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO moderation_log (id, target_type, target_id, actor_id, action, reason, explanation, dry_run, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, entry.ID, string(entry.Target.Type), entry.Target.ID, entry.ActorID.String(),
		string(entry.Action), entry.Reason, entry.Explanation, entry.DryRun, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append moderation log entry: %w", err)
	}
	return nil
}

func (s *Postgres) FindByTarget(ctx context.Context, target models.Target, limit int) ([]models.LogEntry, error) {
	return s.list(ctx, selectEntry+`
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, string(target.Type), target.ID, limit)
}

func (s *Postgres) FindRecent(ctx context.Context, limit int) ([]models.LogEntry, error) {
	return s.list(ctx, selectEntry+`
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
}

const selectEntry = `
	SELECT id, target_type, target_id, actor_id, action, reason, explanation, dry_run, created_at
	FROM moderation_log`

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]models.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list moderation log entries: %w", err)
	}
	defer rows.Close()

	var out []models.LogEntry
	for rows.Next() {
		var e models.LogEntry
		var rawTargetType, rawActor string
		var targetID uuid.UUID
		if err := rows.Scan(&e.ID, &rawTargetType, &targetID, &rawActor,
			&e.Action, &e.Reason, &e.Explanation, &e.DryRun, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan moderation log entry: %w", err)
		}
		actor, err := id.ParseModeratorID(rawActor)
		if err != nil {
			return nil, fmt.Errorf("parse actor id: %w", err)
		}
		e.Target = models.Target{Type: models.TargetType(rawTargetType), ID: targetID}
		e.ActorID = actor
		out = append(out, e)
	}
	return out, rows.Err()
}
