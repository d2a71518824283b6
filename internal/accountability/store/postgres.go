package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"veil/internal/accountability/models"
	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// Postgres persists accountability profiles. Email-key uniqueness rides on a
// unique index over email_key, so the conditional insert is a single
// statement and concurrent registrations race safely at the database.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const uniqueViolation = "23505"

func (s *Postgres) CreateIfEmailKeyAvailable(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO accountability_profiles (
			id, email_key, email_cipher, password_hash,
			abuse_score, risk_level, verified, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		p.ID.String(), p.EmailKey, p.EmailCipher, p.PasswordHash,
		p.AbuseScore, string(p.RiskLevel), p.Verified, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert accountability profile: %w", err)
	}
	return nil
}

// Remove deletes a profile, freeing its email key. Removing an absent profile
// is a no-op, so compensation paths can call it unconditionally.
func (s *Postgres) Remove(ctx context.Context, profileID id.AccountabilityID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM accountability_profiles WHERE id = $1`, profileID.String())
	if err != nil {
		return fmt.Errorf("delete accountability profile: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, profileID id.AccountabilityID) (*models.Profile, error) {
	return s.findBy(ctx, "id = $1", profileID.String())
}

func (s *Postgres) FindByEmailKey(ctx context.Context, emailKey string) (*models.Profile, error) {
	return s.findBy(ctx, "email_key = $1", emailKey)
}

func (s *Postgres) findBy(ctx context.Context, where string, arg any) (*models.Profile, error) {
	query := `
		SELECT id, email_key, email_cipher, password_hash,
		       abuse_score, risk_level, verified, created_at, updated_at, last_rotated_at
		FROM accountability_profiles
		WHERE ` + where
	row := s.db.QueryRowContext(ctx, query, arg)
	return scanProfile(row)
}

// Execute loads the row FOR UPDATE, runs validate and mutate, and writes the
// result back, all inside one transaction. Concurrent score updates serialize
// on the row lock.
func (s *Postgres) Execute(ctx context.Context, profileID id.AccountabilityID, validate func(*models.Profile) error, mutate func(*models.Profile)) (*models.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, email_key, email_cipher, password_hash,
		       abuse_score, risk_level, verified, created_at, updated_at, last_rotated_at
		FROM accountability_profiles
		WHERE id = $1
		FOR UPDATE
	`, profileID.String())
	p, err := scanProfile(row)
	if err != nil {
		return nil, err
	}

	if err := validate(p); err != nil {
		return nil, err
	}
	mutate(p)

	_, err = tx.ExecContext(ctx, `
		UPDATE accountability_profiles
		SET abuse_score = $2, risk_level = $3, verified = $4, updated_at = $5, last_rotated_at = $6
		WHERE id = $1
	`, p.ID.String(), p.AbuseScore, string(p.RiskLevel), p.Verified, p.UpdatedAt, p.LastRotatedAt)
	if err != nil {
		return nil, fmt.Errorf("update accountability profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var rawID, rawRisk string
	err := row.Scan(
		&rawID, &p.EmailKey, &p.EmailCipher, &p.PasswordHash,
		&p.AbuseScore, &rawRisk, &p.Verified, &p.CreatedAt, &p.UpdatedAt, &p.LastRotatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan accountability profile: %w", err)
	}
	parsed, err := id.ParseAccountabilityID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse accountability id: %w", err)
	}
	p.ID = parsed
	p.RiskLevel = models.RiskLevel(rawRisk)
	return &p, nil
}
