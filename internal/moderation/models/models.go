package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// TargetType tags which entity a log entry refers to.
type TargetType string

const (
	TargetAccountabilityProfile TargetType = "ACCOUNTABILITY_PROFILE"
	TargetPersona               TargetType = "PERSONA"
	TargetPost                  TargetType = "POST"
)

// IsValid checks if the target type is one of the supported enum values.
func (t TargetType) IsValid() bool {
	switch t {
	case TargetAccountabilityProfile, TargetPersona, TargetPost:
		return true
	}
	return false
}

// ParseTargetType creates a TargetType from a string, validating it.
func ParseTargetType(s string) (TargetType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "target type cannot be empty")
	}
	t := TargetType(strings.ToUpper(s))
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid target type")
	}
	return t, nil
}

// Target is the tagged union of entities a moderation action can point at.
// Exactly one entity is referenced; the type tag says which table the ID
// belongs to.
type Target struct {
	Type TargetType `json:"type"`
	ID   uuid.UUID  `json:"id"`
}

func AccountabilityTarget(profileID id.AccountabilityID) Target {
	return Target{Type: TargetAccountabilityProfile, ID: uuid.UUID(profileID)}
}

func PersonaTarget(personaID id.PersonaID) Target {
	return Target{Type: TargetPersona, ID: uuid.UUID(personaID)}
}

func PostTarget(postID id.PostID) Target {
	return Target{Type: TargetPost, ID: uuid.UUID(postID)}
}

// Action names a privileged operation for the audit trail.
type Action string

const (
	ActionTrustLevelChanged Action = "trust_level_changed"
	ActionAbuseScoreChanged Action = "abuse_score_changed"
	ActionPostRemoved       Action = "post_removed"
	ActionPostRestored      Action = "post_restored"
	ActionContextAccessed   Action = "accountability_context_accessed"
)

// LogEntry is one append-only audit record. Immutable once written; the sole
// source of truth for who did what, when, and why. Every RiskLevel or
// TrustLevel change requires exactly one of these.
type LogEntry struct {
	ID          uuid.UUID      `json:"id"`
	Target      Target         `json:"target"`
	ActorID     id.ModeratorID `json:"actor_id"`
	Action      Action         `json:"action"`
	Reason      string         `json:"reason"`
	Explanation string         `json:"explanation,omitempty"`
	DryRun      bool           `json:"dry_run"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewLogEntry validates and constructs an audit record.
func NewLogEntry(target Target, actor id.ModeratorID, action Action, reason, explanation string, dryRun bool, now time.Time) (*LogEntry, error) {
	if !target.Type.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit entry requires a valid target type")
	}
	if target.ID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit entry requires a target id")
	}
	if actor.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit entry requires an actor")
	}
	if action == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit entry requires an action")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "audit entry requires a reason")
	}
	return &LogEntry{
		ID:          uuid.New(),
		Target:      target,
		ActorID:     actor,
		Action:      action,
		Reason:      reason,
		Explanation: explanation,
		DryRun:      dryRun,
		CreatedAt:   now,
	}, nil
}
