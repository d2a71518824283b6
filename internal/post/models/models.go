package models

import (
	"time"

	id "veil/pkg/domain"
	dErrors "veil/pkg/domain-errors"
)

// ModerationStatus tracks content-level moderation state.
type ModerationStatus string

const (
	ModerationVisible ModerationStatus = "visible"
	ModerationRemoved ModerationStatus = "removed"
)

// IsValid checks if the status is one of the supported enum values.
func (s ModerationStatus) IsValid() bool {
	return s == ModerationVisible || s == ModerationRemoved
}

// Post is public content authored by a persona. Posts reference personas,
// never accountability profiles; the Post→Persona link is the only path from
// content back to accountability and only privileged moderation code walks it.
type Post struct {
	ID               id.PostID        `json:"id"`
	PersonaID        id.PersonaID     `json:"persona_id"`
	Body             string           `json:"body"`
	ModerationStatus ModerationStatus `json:"moderation_status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        *time.Time       `json:"deleted_at,omitempty"`
}

// NewPost validates and constructs a visible post.
func NewPost(postID id.PostID, personaID id.PersonaID, body string, now time.Time) (*Post, error) {
	if personaID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "post requires an authoring persona")
	}
	if body == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "post body cannot be empty")
	}
	if len(body) > 10000 {
		return nil, dErrors.New(dErrors.CodeValidation, "post body must be 10000 characters or less")
	}
	return &Post{
		ID:               postID,
		PersonaID:        personaID,
		Body:             body,
		ModerationStatus: ModerationVisible,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// CanRemove checks if the post can be moderated away.
func (p *Post) CanRemove() error {
	if p.ModerationStatus == ModerationRemoved {
		return dErrors.New(dErrors.CodeInvariantViolation, "post is already removed")
	}
	return nil
}

// ApplyRemoval marks the post removed. Content is soft-hidden, not erased,
// so the audit trail keeps a target to point at.
func (p *Post) ApplyRemoval(now time.Time) {
	p.ModerationStatus = ModerationRemoved
	t := now
	p.DeletedAt = &t
	p.UpdatedAt = now
}

// CanRestore checks if a removed post can be brought back.
func (p *Post) CanRestore() error {
	if p.ModerationStatus != ModerationRemoved {
		return dErrors.New(dErrors.CodeInvariantViolation, "post is not removed")
	}
	return nil
}

// ApplyRestore makes the post visible again.
func (p *Post) ApplyRestore(now time.Time) {
	p.ModerationStatus = ModerationVisible
	p.DeletedAt = nil
	p.UpdatedAt = now
}
