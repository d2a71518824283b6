package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"veil/internal/persona/models"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// Postgres persists personas plus the display_name_claims recency index.
//
// CreateIfAllowed runs inside one transaction: the active count is taken
// after locking the owner's rows, the claim row is upserted conditionally,
// and the unique index on display_name_claims(name_fold) backstops the one
// race a recount cannot see (two nodes claiming the same brand-new name).
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

func (s *Postgres) CreateIfAllowed(ctx context.Context, p *models.Persona, maxActive int, reuseWindow time.Duration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Lock the owner's persona rows so the count cannot move under us.
	var active int
	err = tx.QueryRowContext(ctx, `
		SELECT count(*) FROM (
			SELECT 1 FROM personas
			WHERE accountability_id = $1 AND status = 'active'
			FOR UPDATE
		) locked
	`, p.AccountabilityID.String()).Scan(&active)
	if err != nil {
		return fmt.Errorf("count active personas: %w", err)
	}
	if active >= maxActive {
		return sentinel.ErrLimitReached
	}

	folded := strings.ToLower(strings.TrimSpace(p.DisplayName))
	cutoff := p.CreatedAt.Add(-reuseWindow)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO display_name_claims (name_fold, accountability_id, last_used_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (name_fold) DO UPDATE
		SET accountability_id = EXCLUDED.accountability_id,
		    last_used_at = EXCLUDED.last_used_at
		WHERE display_name_claims.accountability_id = EXCLUDED.accountability_id
		   OR display_name_claims.last_used_at < $4
	`, folded, p.AccountabilityID.String(), p.CreatedAt, cutoff)
	if err != nil {
		return fmt.Errorf("claim display name: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Claim held by a different profile inside the window.
		return sentinel.ErrAlreadyUsed
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO personas (id, accountability_id, display_name, avatar_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID.String(), p.AccountabilityID.String(), p.DisplayName, p.AvatarURL, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert persona: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, personaID id.PersonaID) (*models.Persona, error) {
	row := s.db.QueryRowContext(ctx, selectPersona+` WHERE id = $1`, personaID.String())
	return scanPersona(row)
}

func (s *Postgres) ListActiveByOwner(ctx context.Context, owner id.AccountabilityID) ([]*models.Persona, error) {
	return s.list(ctx, selectPersona+` WHERE accountability_id = $1 AND status = 'active' ORDER BY created_at`, owner.String())
}

func (s *Postgres) ListByOwner(ctx context.Context, owner id.AccountabilityID) ([]*models.Persona, error) {
	return s.list(ctx, selectPersona+` WHERE accountability_id = $1 ORDER BY created_at`, owner.String())
}

func (s *Postgres) CountActiveByOwner(ctx context.Context, owner id.AccountabilityID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT count(*) FROM personas WHERE accountability_id = $1 AND status = 'active'
	`, owner.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active personas: %w", err)
	}
	return count, nil
}

func (s *Postgres) Execute(ctx context.Context, personaID id.PersonaID, validate func(*models.Persona) error, mutate func(*models.Persona)) (*models.Persona, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, selectPersona+` WHERE id = $1 FOR UPDATE`, personaID.String())
	p, err := scanPersona(row)
	if err != nil {
		return nil, err
	}

	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)

	_, err = tx.ExecContext(ctx, `
		UPDATE personas
		SET display_name = $2, avatar_url = $3, status = $4, updated_at = $5, deleted_at = $6
		WHERE id = $1
	`, p.ID.String(), p.DisplayName, p.AvatarURL, string(p.Status), p.UpdatedAt, p.DeletedAt)
	if err != nil {
		return nil, fmt.Errorf("update persona: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

const selectPersona = `
	SELECT id, accountability_id, display_name, avatar_url, status, created_at, updated_at, deleted_at
	FROM personas`

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]*models.Persona, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list personas: %w", err)
	}
	defer rows.Close()

	var out []*models.Persona
	for rows.Next() {
		p, err := scanPersona(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPersona(row rowScanner) (*models.Persona, error) {
	var p models.Persona
	var rawID, rawOwner, rawStatus string
	err := row.Scan(&rawID, &rawOwner, &p.DisplayName, &p.AvatarURL, &rawStatus, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan persona: %w", err)
	}
	pid, err := id.ParsePersonaID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse persona id: %w", err)
	}
	owner, err := id.ParseAccountabilityID(rawOwner)
	if err != nil {
		return nil, fmt.Errorf("parse accountability id: %w", err)
	}
	p.ID = pid
	p.AccountabilityID = owner
	p.Status = models.Status(rawStatus)
	return &p, nil
}
