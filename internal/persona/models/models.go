package models

import (
	"time"

	trustmodels "veil/internal/trust/models"
	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// Status is the persona lifecycle state machine.
//
// Transitions:
//   - active → deactivated (rotation; preserves historical authorship)
//   - active → soft_deleted (explicit removal)
//   - deactivated → soft_deleted
//   - soft_deleted → hard_deleted (after retention, by an offline job)
//
// Modeling lifecycle as an explicit state instead of scattered nullable
// timestamps makes illegal states unrepresentable.
type Status string

const (
	StatusActive      Status = "active"
	StatusDeactivated Status = "deactivated"
	StatusSoftDeleted Status = "soft_deleted"
	StatusHardDeleted Status = "hard_deleted"
)

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusDeactivated, StatusSoftDeleted, StatusHardDeleted:
		return true
	}
	return false
}

// CanTransitionTo reports whether the lifecycle allows the transition.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusActive:
		return next == StatusDeactivated || next == StatusSoftDeleted
	case StatusDeactivated:
		return next == StatusSoftDeleted
	case StatusSoftDeleted:
		return next == StatusHardDeleted
	default:
		return false
	}
}

// Persona is the public, displayable identity a user posts under.
//
// Invariants:
//   - Owned by exactly one accountability profile, fixed at creation
//   - DisplayName is non-empty and at most 64 characters
//   - Deactivation flips status only; historical authorship links survive
type Persona struct {
	ID id.PersonaID `json:"id"`
	// AccountabilityID is the hidden owner. It is stripped from every public
	// view; only privileged moderation code may traverse it.
	AccountabilityID id.AccountabilityID `json:"accountability_id"`
	DisplayName      string              `json:"display_name"`
	AvatarURL        string              `json:"avatar_url,omitempty"`
	Status           Status              `json:"status"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	DeletedAt        *time.Time          `json:"deleted_at,omitempty"`
}

func (p *Persona) IsActive() bool {
	return p.Status == StatusActive
}

// NewPersona validates and constructs an active persona.
func NewPersona(personaID id.PersonaID, owner id.AccountabilityID, displayName, avatarURL string, now time.Time) (*Persona, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "persona requires an owning accountability profile")
	}
	if displayName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name cannot be empty")
	}
	if len(displayName) > 64 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name must be 64 characters or less")
	}
	return &Persona{
		ID:               personaID,
		AccountabilityID: owner,
		DisplayName:      displayName,
		AvatarURL:        avatarURL,
		Status:           StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// CanDeactivate checks if the persona can transition to deactivated.
// Use with ApplyDeactivation in Execute callbacks.
func (p *Persona) CanDeactivate() error {
	if !p.Status.CanTransitionTo(StatusDeactivated) {
		return dErrors.New(dErrors.CodeInvariantViolation, "persona is not active")
	}
	return nil
}

// ApplyDeactivation transitions the persona to deactivated.
// Call CanDeactivate first to validate the transition.
func (p *Persona) ApplyDeactivation(now time.Time) {
	p.Status = StatusDeactivated
	p.UpdatedAt = now
}

// CanSoftDelete checks if the persona can transition to soft_deleted.
func (p *Persona) CanSoftDelete() error {
	if !p.Status.CanTransitionTo(StatusSoftDeleted) {
		return dErrors.New(dErrors.CodeInvariantViolation, "persona cannot be deleted from its current state")
	}
	return nil
}

// ApplySoftDelete transitions the persona to soft_deleted and stamps the
// deletion time. Hard deletion happens after retention, out of band.
func (p *Persona) ApplySoftDelete(now time.Time) {
	p.Status = StatusSoftDeleted
	t := now
	p.DeletedAt = &t
	p.UpdatedAt = now
}

// View is the public persona payload. It deliberately has no field for the
// accountability ID, abuse score, or risk level; constructing one is the only
// sanctioned way to serialize a persona outward.
type View struct {
	ID          id.PersonaID      `json:"id"`
	DisplayName string            `json:"displayName"`
	AvatarURL   string            `json:"avatarUrl,omitempty"`
	TrustLevel  trustmodels.Level `json:"trustLevel"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// NewView builds the public projection of a persona.
func NewView(p *Persona, level trustmodels.Level) View {
	return View{
		ID:          p.ID,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		TrustLevel:  level,
		CreatedAt:   p.CreatedAt,
	}
}
