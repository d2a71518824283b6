package models

import (
	"time"

	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// RiskLevel is a pure function of the abuse score; it is never set
// independently so the two cannot drift apart.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Score thresholds for risk derivation.
const (
	mediumRiskThreshold = 0.3
	highRiskThreshold   = 0.7
)

// RiskFromScore derives the risk level from an abuse score.
// Below 0.3 is LOW, below 0.7 is MEDIUM, everything else HIGH.
func RiskFromScore(score float64) RiskLevel {
	switch {
	case score < mediumRiskThreshold:
		return RiskLow
	case score < highRiskThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Profile is the hidden accountability layer behind every persona.
//
// Invariants:
//   - AbuseScore stays within [0.0, 1.0]
//   - RiskLevel always equals RiskFromScore(AbuseScore)
//   - The profile is never exposed through any public-facing response
//
// The profile is created once at registration and exists for the lifetime of
// the account. Personas rotate; this record and its abuse signals persist.
type Profile struct {
	ID            id.AccountabilityID `json:"id"`
	EmailKey      string              `json:"email_key"`
	EmailCipher   string              `json:"email_cipher"`
	PasswordHash  string              `json:"password_hash"`
	AbuseScore    float64             `json:"abuse_score"`
	RiskLevel     RiskLevel           `json:"risk_level"`
	Verified      bool                `json:"verified"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	LastRotatedAt *time.Time          `json:"last_rotated_at,omitempty"`
}

// NewProfile constructs a profile at registration time with a clean slate.
// EmailKey is the one-way lookup key; EmailCipher is the reversible form kept
// solely for recovery flows and must never be queried by.
func NewProfile(profileID id.AccountabilityID, emailKey, emailCipher, passwordHash string, now time.Time) (*Profile, error) {
	if emailKey == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "profile requires an email lookup key")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "profile requires a password credential")
	}
	return &Profile{
		ID:           profileID,
		EmailKey:     emailKey,
		EmailCipher:  emailCipher,
		PasswordHash: passwordHash,
		AbuseScore:   0.0,
		RiskLevel:    RiskLow,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CanApplyAbuseScore validates a score update without mutating.
// Use with ApplyAbuseScore in Execute callbacks.
func (p *Profile) CanApplyAbuseScore(score float64) error {
	if score < 0.0 || score > 1.0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "abuse score must be within [0.0, 1.0]")
	}
	return nil
}

// ApplyAbuseScore sets the score and re-derives the risk level in one step.
// Call CanApplyAbuseScore first to validate.
func (p *Profile) ApplyAbuseScore(score float64, now time.Time) {
	p.AbuseScore = score
	p.RiskLevel = RiskFromScore(score)
	p.UpdatedAt = now
}

// ApplyRotation records when the profile last rotated a persona. The rotation
// cooldown policy reads this.
func (p *Profile) ApplyRotation(now time.Time) {
	t := now
	p.LastRotatedAt = &t
	p.UpdatedAt = now
}
