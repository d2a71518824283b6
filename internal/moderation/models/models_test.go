package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "veil/pkg/domain"
)

func TestParseTargetType(t *testing.T) {
	cases := map[string]TargetType{
		"PERSONA":                TargetPersona,
		"persona":                TargetPersona,
		"post":                   TargetPost,
		"accountability_profile": TargetAccountabilityProfile,
	}
	for in, want := range cases {
		got, err := ParseTargetType(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got)
	}

	for _, invalid := range []string{"", "widget", "account"} {
		_, err := ParseTargetType(invalid)
		assert.Error(t, err, "input %q", invalid)
	}
}

func TestNewLogEntry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	actor := id.NewModeratorID()
	target := PersonaTarget(id.NewPersonaID())

	t.Run("valid entry", func(t *testing.T) {
		entry, err := NewLogEntry(target, actor, ActionTrustLevelChanged, "spam wave", "Level: NEW → REGULAR", false, now)
		require.NoError(t, err)
		assert.NotEqual(t, entry.ID.String(), "00000000-0000-0000-0000-000000000000")
		assert.Equal(t, target, entry.Target)
		assert.Equal(t, now, entry.CreatedAt)
	})

	t.Run("reason is mandatory", func(t *testing.T) {
		_, err := NewLogEntry(target, actor, ActionTrustLevelChanged, "", "", false, now)
		assert.Error(t, err)
	})

	t.Run("actor is mandatory", func(t *testing.T) {
		_, err := NewLogEntry(target, id.ModeratorID{}, ActionTrustLevelChanged, "spam wave", "", false, now)
		assert.Error(t, err)
	})

	t.Run("target id is mandatory", func(t *testing.T) {
		_, err := NewLogEntry(Target{Type: TargetPersona}, actor, ActionTrustLevelChanged, "spam wave", "", false, now)
		assert.Error(t, err)
	})
}
