package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"veil/internal/trust/models"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// Postgres is the append-only trust ledger over an insert-only table. There
// is deliberately no UPDATE statement in this file.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, grant *models.Grant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trust_grants (persona_id, level, granted_at)
		VALUES ($1, $2, $3)
	`, grant.PersonaID.String(), string(grant.Level), grant.GrantedAt)
	if err != nil {
		return fmt.Errorf("append trust grant: %w", err)
	}
	return nil
}

func (s *Postgres) CurrentLevel(ctx context.Context, personaID id.PersonaID) (models.Level, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT level FROM trust_grants
		WHERE persona_id = $1
		ORDER BY granted_at DESC
		LIMIT 1
	`, personaID.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("current trust level: %w", err)
	}
	return models.Level(raw), nil
}

func (s *Postgres) HistoryByPersona(ctx context.Context, personaID id.PersonaID) ([]models.Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT persona_id, level, granted_at FROM trust_grants
		WHERE persona_id = $1
		ORDER BY granted_at
	`, personaID.String())
	if err != nil {
		return nil, fmt.Errorf("list trust grants: %w", err)
	}
	defer rows.Close()

	var out []models.Grant
	for rows.Next() {
		var g models.Grant
		var rawID, rawLevel string
		if err := rows.Scan(&rawID, &rawLevel, &g.GrantedAt); err != nil {
			return nil, fmt.Errorf("scan trust grant: %w", err)
		}
		pid, err := id.ParsePersonaID(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse persona id: %w", err)
		}
		g.PersonaID = pid
		g.Level = models.Level(rawLevel)
		out = append(out, g)
	}
	return out, rows.Err()
}
