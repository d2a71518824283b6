package models

import (
	"time"

	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// Level is a rung on the trust ladder. Promotion is manual (admin-triggered)
// in this phase; levels gate persona-creation and posting quotas via the
// policy engine.
type Level string

const (
	LevelNew     Level = "NEW"
	LevelRegular Level = "REGULAR"
	LevelTrusted Level = "TRUSTED"
)

// IsValid checks if the level is one of the supported enum values.
func (l Level) IsValid() bool {
	switch l {
	case LevelNew, LevelRegular, LevelTrusted:
		return true
	}
	return false
}

func (l Level) String() string { return string(l) }

// ParseLevel creates a Level from a string, validating it.
func ParseLevel(s string) (Level, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "trust level cannot be empty")
	}
	l := Level(s)
	if !l.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid trust level: must be NEW, REGULAR or TRUSTED")
	}
	return l, nil
}

// Grant is one append-only ledger entry. History is never mutated; the
// current level of a persona is the entry with the latest GrantedAt. That
// gives the promotion/demotion audit trail for free.
type Grant struct {
	PersonaID id.PersonaID `json:"persona_id"`
	Level     Level        `json:"level"`
	GrantedAt time.Time    `json:"granted_at"`
}

// NewGrant validates and constructs a ledger entry.
func NewGrant(personaID id.PersonaID, level Level, now time.Time) (*Grant, error) {
	if personaID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "grant requires a persona id")
	}
	if !level.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "grant requires a valid trust level")
	}
	return &Grant{PersonaID: personaID, Level: level, GrantedAt: now}, nil
}
