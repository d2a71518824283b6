// Package domain defines typed identifiers shared across services.
//
// Every entity gets its own UUID-backed type so a persona ID can never be
// passed where an accountability profile ID is expected. That distinction is
// load-bearing here: the whole system exists to keep the public identity
// (persona) and the hidden identity (accountability profile) from being
// conflated.
package domain

import (
	"github.com/google/uuid"

	dErrors "veil/pkg/domain-errors"
)

type (
	// AccountabilityID identifies the hidden accountability profile. It must
	// never appear in a public-facing response body.
	AccountabilityID uuid.UUID

	// PersonaID identifies a public persona.
	PersonaID uuid.UUID

	// PostID identifies a piece of public content.
	PostID uuid.UUID

	// ModeratorID identifies the actor of a privileged operation.
	ModeratorID uuid.UUID
)

func (id AccountabilityID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id PersonaID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id PostID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id ModeratorID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

func (id AccountabilityID) String() string { return uuid.UUID(id).String() }
func (id PersonaID) String() string        { return uuid.UUID(id).String() }
func (id PostID) String() string           { return uuid.UUID(id).String() }
func (id ModeratorID) String() string      { return uuid.UUID(id).String() }

// NewAccountabilityID generates a fresh accountability profile ID.
func NewAccountabilityID() AccountabilityID { return AccountabilityID(uuid.New()) }

// NewPersonaID generates a fresh persona ID.
func NewPersonaID() PersonaID { return PersonaID(uuid.New()) }

// NewPostID generates a fresh post ID.
func NewPostID() PostID { return PostID(uuid.New()) }

// NewModeratorID generates a fresh moderator ID.
func NewModeratorID() ModeratorID { return ModeratorID(uuid.New()) }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. All ParseXID helpers funnel through here so every ID type
// rejects malformed input identically at trust boundaries.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return parsed, nil
}

func ParseAccountabilityID(s string) (AccountabilityID, error) {
	u, err := parseUUID(s)
	return AccountabilityID(u), err
}

func ParsePersonaID(s string) (PersonaID, error) {
	u, err := parseUUID(s)
	return PersonaID(u), err
}

func ParsePostID(s string) (PostID, error) {
	u, err := parseUUID(s)
	return PostID(u), err
}

func ParseModeratorID(s string) (ModeratorID, error) {
	u, err := parseUUID(s)
	return ModeratorID(u), err
}
